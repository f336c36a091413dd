package rsvp

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/Raymond9734/event-rsvp-backend/internal/models"
)

// Control is what a renderer needs to draw one form field
type Control struct {
	Kind     models.FieldType
	Name     string
	Label    string
	Required bool
	Options  []string
	Multiple bool
	Min      *int
	Step     int
	Disabled bool
}

// Field is one dynamic question of an RSVP form. The concrete type is one
// of TextField, TextareaField, SelectField, RadioField, CheckboxField or
// NumberField.
type Field interface {
	Definition() models.RSVPField
	Control(disabled bool) Control
	Validate(value any) error
	field()
}

// NewField picks the variant for def.Type. Unknown types render as text.
func NewField(def models.RSVPField) Field {
	switch def.Type {
	case models.FieldTextarea:
		return TextareaField{def}
	case models.FieldSelect:
		return SelectField{def}
	case models.FieldRadio:
		return RadioField{def}
	case models.FieldCheckbox:
		return CheckboxField{def}
	case models.FieldNumber:
		return NumberField{def}
	default:
		return TextField{def}
	}
}

// RenderedFields returns the form fields that are drawn as ordinary inputs.
// The attendance field is left out because the status selector drives it.
func RenderedFields(form models.RSVPForm) []Field {
	fields := make([]Field, 0, len(form.Fields))
	for _, def := range form.Fields {
		if def.Name == models.AttendanceField {
			continue
		}
		fields = append(fields, NewField(def))
	}
	return fields
}

// TextField is a single line text input
type TextField struct{ def models.RSVPField }

// TextareaField is a multi-line text input
type TextareaField struct{ def models.RSVPField }

// SelectField is a single choice dropdown
type SelectField struct{ def models.RSVPField }

// RadioField is an exclusive choice group
type RadioField struct{ def models.RSVPField }

// CheckboxField is a multi choice group
type CheckboxField struct{ def models.RSVPField }

// NumberField is a whole number input with a minimum of 0
type NumberField struct{ def models.RSVPField }

func (f TextField) field()     {}
func (f TextareaField) field() {}
func (f SelectField) field()   {}
func (f RadioField) field()    {}
func (f CheckboxField) field() {}
func (f NumberField) field()   {}

func (f TextField) Definition() models.RSVPField     { return f.def }
func (f TextareaField) Definition() models.RSVPField { return f.def }
func (f SelectField) Definition() models.RSVPField   { return f.def }
func (f RadioField) Definition() models.RSVPField    { return f.def }
func (f CheckboxField) Definition() models.RSVPField { return f.def }
func (f NumberField) Definition() models.RSVPField   { return f.def }

func (f TextField) Control(disabled bool) Control {
	return baseControl(f.def, models.FieldText, disabled)
}

func (f TextareaField) Control(disabled bool) Control {
	return baseControl(f.def, models.FieldTextarea, disabled)
}

func (f SelectField) Control(disabled bool) Control {
	c := baseControl(f.def, models.FieldSelect, disabled)
	c.Options = slices.Clone(f.def.Options)
	return c
}

func (f RadioField) Control(disabled bool) Control {
	c := baseControl(f.def, models.FieldRadio, disabled)
	c.Options = slices.Clone(f.def.Options)
	return c
}

func (f CheckboxField) Control(disabled bool) Control {
	c := baseControl(f.def, models.FieldCheckbox, disabled)
	c.Options = slices.Clone(f.def.Options)
	c.Multiple = true
	return c
}

func (f NumberField) Control(disabled bool) Control {
	c := baseControl(f.def, models.FieldNumber, disabled)
	zero := 0
	c.Min = &zero
	c.Step = 1
	return c
}

func (f TextField) Validate(value any) error     { return validateText(f.def, value) }
func (f TextareaField) Validate(value any) error { return validateText(f.def, value) }
func (f SelectField) Validate(value any) error   { return validateChoice(f.def, value) }
func (f RadioField) Validate(value any) error    { return validateChoice(f.def, value) }

func (f CheckboxField) Validate(value any) error {
	choices, ok := stringList(value)
	if !ok {
		return fieldError(f.def, "must be a list of options")
	}
	if len(choices) == 0 {
		if f.def.Required {
			return requiredError(f.def)
		}
		return nil
	}
	for _, choice := range choices {
		if !slices.Contains(f.def.Options, choice) {
			return fieldError(f.def, fmt.Sprintf("has an unknown option %q", choice))
		}
	}
	return nil
}

func (f NumberField) Validate(value any) error {
	n, present, ok := numberValue(value)
	if !ok {
		return fieldError(f.def, "must be a number")
	}
	if !present {
		if f.def.Required {
			return requiredError(f.def)
		}
		return nil
	}
	if n < 0 {
		return fieldError(f.def, "must not be negative")
	}
	if n != math.Trunc(n) {
		return fieldError(f.def, "must be a whole number")
	}
	return nil
}

func baseControl(def models.RSVPField, kind models.FieldType, disabled bool) Control {
	return Control{
		Kind:     kind,
		Name:     def.Name,
		Label:    def.Label,
		Required: def.Required,
		Disabled: disabled,
	}
}

func validateText(def models.RSVPField, value any) error {
	if value == nil {
		if def.Required {
			return requiredError(def)
		}
		return nil
	}
	s, ok := value.(string)
	if !ok {
		return fieldError(def, "must be text")
	}
	if def.Required && strings.TrimSpace(s) == "" {
		return requiredError(def)
	}
	return nil
}

func validateChoice(def models.RSVPField, value any) error {
	if value == nil || value == "" {
		if def.Required {
			return requiredError(def)
		}
		return nil
	}
	s, ok := value.(string)
	if !ok || !slices.Contains(def.Options, s) {
		return fieldError(def, "must be one of the listed options")
	}
	return nil
}

// stringList accepts the shapes a multi choice value arrives in, both as
// []string from local input and []any after a JSON round trip.
func stringList(value any) ([]string, bool) {
	switch v := value.(type) {
	case nil:
		return nil, true
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// numberValue returns the numeric value of v. present is false for an empty
// input; ok is false when v is not a number at all.
func numberValue(value any) (n float64, present, ok bool) {
	switch v := value.(type) {
	case nil:
		return 0, false, true
	case float64:
		return v, !math.IsNaN(v), !math.IsInf(v, 0)
	case int:
		return float64(v), true, true
	case int64:
		return float64(v), true, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil, err == nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false, false
		}
		return f, true, true
	default:
		return 0, false, false
	}
}

func fieldLabel(def models.RSVPField) string {
	if def.Label != "" {
		return def.Label
	}
	return def.Name
}

func requiredError(def models.RSVPField) error {
	return models.ErrInvalidInput(fieldLabel(def) + " is required")
}

func fieldError(def models.RSVPField, problem string) error {
	return models.ErrInvalidInput(fieldLabel(def) + " " + problem)
}
