package model

import (
	"fmt"
	"time"
)

// LowStockThreshold is the quantity below which an item is flagged.
const LowStockThreshold = 3

// Kind is the catalog an item belongs to.
type Kind string

// Kinds.
const (
	KindPart    Kind = "part"
	KindMachine Kind = "machine"
)

// Kinds lists every catalog in display order.
var Kinds = []Kind{KindPart, KindMachine}

// ParseKind accepts a kind name or its URL segment ("parts", "machines").
func ParseKind(s string) (Kind, error) {
	switch s {
	case "part", "parts":
		return KindPart, nil
	case "machine", "machines":
		return KindMachine, nil
	}
	return "", fmt.Errorf("unknown kind %q", s)
}

// Table returns the backing table name.
func (k Kind) Table() string {
	if k == KindMachine {
		return "machines"
	}
	return "spare_parts"
}

// NameColumn returns the kind-specific name column.
func (k Kind) NameColumn() string {
	if k == KindMachine {
		return "machine_name"
	}
	return "part_name"
}

// Segment returns the URL path segment for the kind.
func (k Kind) Segment() string {
	if k == KindMachine {
		return "machines"
	}
	return "parts"
}

// Label returns the human readable singular name.
func (k Kind) Label() string {
	if k == KindMachine {
		return "Machine"
	}
	return "Spare Part"
}

// Item is a spare part or a machine.
type Item struct {
	ID           string    `json:"id"`
	Kind         Kind      `json:"kind"`
	Name         string    `json:"name"`
	ImageURL     string    `json:"image_url,omitempty"`
	SerialNumber string    `json:"serial_number"`
	Quantity     int       `json:"quantity"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LowStock reports whether the item is running low.
func (i Item) LowStock() bool {
	return i.Quantity < LowStockThreshold
}

// LowStock returns the items whose quantity is below LowStockThreshold.
func LowStock(items []Item) []Item {
	var low []Item
	for _, it := range items {
		if it.LowStock() {
			low = append(low, it)
		}
	}
	return low
}
