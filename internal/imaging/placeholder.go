// Package imaging renders placeholder tiles for items without a picture.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"unicode"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/erazemk/zaloga/internal/model"
)

// Tile dimensions of the generated placeholder.
const (
	TileWidth  = 320
	TileHeight = 200
)

// scale is the upscaling factor from the glyph canvas to the tile.
const scale = 5

var (
	partColor    = color.RGBA{0xf9, 0x73, 0x16, 0xff}
	machineColor = color.RGBA{0x16, 0xa3, 0x4a, 0xff}
)

// Placeholder renders a PNG tile in the kind's colour showing the
// initials of label.
func Placeholder(kind model.Kind, label string) ([]byte, error) {
	bg := partColor
	if kind == model.KindMachine {
		bg = machineColor
	}

	// Draw the text small, then upscale with Catmull-Rom so the 7x13
	// bitmap font reads as a large soft glyph.
	small := image.NewRGBA(image.Rect(0, 0, TileWidth/scale, TileHeight/scale))
	draw.Draw(small, small.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	text := Initials(label)
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  small,
		Src:  image.White,
		Face: face,
	}
	width := d.MeasureString(text).Ceil()
	x := (small.Bounds().Dx() - width) / 2
	y := (small.Bounds().Dy()+face.Metrics().Ascent.Ceil())/2 - 1
	d.Dot = fixed.P(x, y)
	d.DrawString(text)

	dst := image.NewRGBA(image.Rect(0, 0, TileWidth, TileHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), small, small.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// Initials returns up to two upper-case initials from label, or "?" when
// label has no letters or digits.
func Initials(label string) string {
	var b strings.Builder
	for _, word := range strings.Fields(label) {
		for _, r := range word {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				// basicfont only covers ASCII.
				if r > unicode.MaxASCII {
					r = '?'
				}
				b.WriteRune(unicode.ToUpper(r))
				break
			}
		}
		if b.Len() == 2 {
			break
		}
	}
	if b.Len() == 0 {
		return "?"
	}
	return b.String()
}
