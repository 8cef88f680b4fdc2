package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/erazemk/zaloga/internal/model"
)

// ErrValidation is returned by Submit when required fields are missing.
var ErrValidation = errors.New("please fill in all required fields")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Form holds the raw editor fields as submitted.
type Form struct {
	ImageURL     string `json:"image_url"`
	Name         string `json:"name" validate:"required"`
	SerialNumber string `json:"serial_number" validate:"required"`
	Quantity     string `json:"quantity"`
}

// Editor is the create/edit dialog for a single item.
type Editor struct {
	Kind   model.Kind
	Target *model.Item
	Form   Form
	Err    error

	open bool
}

// NewEditor opens an editor for kind. A nil target opens it in create mode;
// otherwise the form is pre-filled from target.
func NewEditor(kind model.Kind, target *model.Item) *Editor {
	e := &Editor{Kind: kind, Target: target, open: true}
	if target != nil {
		e.Form = Form{
			ImageURL:     target.ImageURL,
			Name:         target.Name,
			SerialNumber: target.SerialNumber,
			Quantity:     strconv.Itoa(target.Quantity),
		}
	} else {
		e.Form.Quantity = "0"
	}
	return e
}

// Creating reports whether the editor is in create mode.
func (e *Editor) Creating() bool { return e.Target == nil }

// Open reports whether the editor is still showing.
func (e *Editor) Open() bool { return e.open }

// Cancel closes the editor without saving.
func (e *Editor) Cancel() { e.open = false }

// Submit validates form and saves it through svc. On success the editor
// closes and the saved item is returned. On failure the editor stays open
// with form preserved and Err set.
func (e *Editor) Submit(ctx context.Context, svc *Service, form Form) (*model.Item, error) {
	e.Form = form

	if err := validate.Struct(form); err != nil {
		e.Err = ErrValidation
		return nil, e.Err
	}

	item := model.Item{
		Kind:         e.Kind,
		ImageURL:     form.ImageURL,
		Name:         form.Name,
		SerialNumber: form.SerialNumber,
		Quantity:     ParseQuantity(form.Quantity),
	}

	var saved *model.Item
	var err error
	if e.Creating() {
		saved, err = svc.Create(ctx, item)
	} else {
		saved, err = svc.Update(ctx, e.Target.ID, item)
	}
	if err != nil {
		e.Err = fmt.Errorf("saving %s: %w", e.Kind, err)
		return nil, e.Err
	}

	e.Err = nil
	e.open = false
	return saved, nil
}

// ParseQuantity parses a quantity field, treating anything unparseable as 0.
func ParseQuantity(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
