package imaging

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/erazemk/zaloga/internal/model"
)

func TestPlaceholder(t *testing.T) {
	data, err := Placeholder(model.KindPart, "Ball Bearing")
	if err != nil {
		t.Fatalf("Placeholder: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != TileWidth || bounds.Dy() != TileHeight {
		t.Errorf("expected %dx%d, got %dx%d", TileWidth, TileHeight, bounds.Dx(), bounds.Dy())
	}

	// Corner keeps the background colour.
	r, g, b, _ := img.At(0, 0).RGBA()
	if r>>8 != 0xf9 || g>>8 != 0x73 || b>>8 != 0x16 {
		t.Errorf("unexpected part background: %x %x %x", r>>8, g>>8, b>>8)
	}
}

func TestPlaceholderKindsDiffer(t *testing.T) {
	part, err := Placeholder(model.KindPart, "Lathe")
	if err != nil {
		t.Fatal(err)
	}
	machine, err := Placeholder(model.KindMachine, "Lathe")
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(part, machine) {
		t.Error("expected different tiles per kind")
	}
}

func TestInitials(t *testing.T) {
	tests := map[string]string{
		"Ball Bearing":   "BB",
		"lathe":          "L",
		"cnc mill three": "CM",
		"  ":             "?",
		"":               "?",
		"#5 spring":      "5S",
		"--- ***":        "?",
		"Öl pump":        "?P",
	}
	for in, want := range tests {
		if got := Initials(in); got != want {
			t.Errorf("Initials(%q) = %q, want %q", in, got, want)
		}
	}
}
