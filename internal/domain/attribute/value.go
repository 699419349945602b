package attribute

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// PersonType is the object type carried by person references
const PersonType = "Person"

// Person is a reference to an assigned person
type Person struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// Value is the normalized value of an attribute. Which field is meaningful
// depends on the attribute type: Checked for checkbox, People for person and
// Text for everything else. An empty date is an empty Text.
type Value struct {
	Text    string
	Checked bool
	People  []Person
}

// TextValue builds a value for text-like types
func TextValue(s string) Value {
	return Value{Text: s}
}

// CheckboxValue builds a checkbox value
func CheckboxValue(checked bool) Value {
	return Value{Checked: checked}
}

// PersonValue builds a person value with a single reference
func PersonValue(id int64) Value {
	return Value{People: []Person{{ID: id, Type: PersonType}}}
}

// Normalize converts a raw backend value into a semantic value.
// personID is only consulted for person attributes.
func Normalize(t Type, raw *string, personID *int64) Value {
	str := ""
	if raw != nil {
		str = *raw
	}

	switch t {
	case TypeCheckbox:
		return CheckboxValue(str == "1")
	case TypePerson:
		if personID == nil {
			return Value{}
		}
		return PersonValue(*personID)
	case TypeDate, TypeDropdown, TypeMultiselect:
		return TextValue(str)
	case TypeText, TypeInput:
		return TextValue(str)
	default:
		return TextValue(str)
	}
}

// Denormalize converts a semantic value back into its wire form
func Denormalize(t Type, v Value) interface{} {
	switch t {
	case TypeCheckbox:
		if v.Checked {
			return "1"
		}
		return "0"
	case TypePerson:
		if len(v.People) == 0 {
			return nil
		}
		return v.People[0].ID
	case TypeText, TypeInput, TypeDate, TypeDropdown, TypeMultiselect:
		return v.Text
	default:
		return v.Text
	}
}

// Display returns the value in the shape shown to API clients:
// bool for checkbox, a person list for person, a string otherwise.
func Display(t Type, v Value) interface{} {
	switch t {
	case TypeCheckbox:
		return v.Checked
	case TypePerson:
		if v.People == nil {
			return []Person{}
		}
		return v.People
	case TypeText, TypeInput, TypeDate, TypeDropdown, TypeMultiselect:
		return v.Text
	default:
		return v.Text
	}
}

// IsEmpty applies the type-specific emptiness check used for mandatory attributes
func IsEmpty(t Type, v Value) bool {
	switch t {
	case TypeText:
		return PlainText(v.Text) == ""
	case TypePerson:
		return len(v.People) == 0
	case TypeCheckbox:
		return !v.Checked
	case TypeInput, TypeDate, TypeDropdown, TypeMultiselect:
		return v.Text == ""
	default:
		return v.Text == ""
	}
}

// ParseInput parses a JSON-encoded user input into a value of the given type.
// Checkbox accepts a bool or "1"/"0"; person accepts null, an id, a list of ids
// or a list of person references; every other type accepts a string.
func ParseInput(t Type, raw json.RawMessage) (Value, error) {
	raw = bytes.TrimSpace(raw)

	switch t {
	case TypeCheckbox:
		return parseCheckbox(raw)
	case TypePerson:
		return parsePerson(raw)
	case TypeText, TypeInput, TypeDate, TypeDropdown, TypeMultiselect:
		return parseText(raw)
	default:
		return Value{}, fmt.Errorf("%w: %q", ErrInvalidType, t)
	}
}

func parseCheckbox(raw json.RawMessage) (Value, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return CheckboxValue(b), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch s {
		case "1", "true":
			return CheckboxValue(true), nil
		case "0", "false", "":
			return CheckboxValue(false), nil
		}
	}

	return Value{}, fmt.Errorf("%w: checkbox expects a boolean, got %s", ErrInvalidValue, raw)
}

func parsePerson(raw json.RawMessage) (Value, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Value{}, nil
	}

	var id int64
	if err := json.Unmarshal(raw, &id); err == nil {
		return PersonValue(id), nil
	}

	var people []Person
	if err := json.Unmarshal(raw, &people); err == nil {
		if len(people) == 0 {
			return Value{}, nil
		}
		return PersonValue(people[0].ID), nil
	}

	var ids []int64
	if err := json.Unmarshal(raw, &ids); err == nil {
		if len(ids) == 0 {
			return Value{}, nil
		}
		return PersonValue(ids[0]), nil
	}

	return Value{}, fmt.Errorf("%w: person expects an id or a person list, got %s", ErrInvalidValue, raw)
}

func parseText(raw json.RawMessage) (Value, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return TextValue(""), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return TextValue(s), nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return TextValue(n.String()), nil
	}

	return Value{}, fmt.Errorf("%w: expected a string, got %s", ErrInvalidValue, raw)
}

// FormatPersonID renders a person id for tabular output
func FormatPersonID(v Value) string {
	if len(v.People) == 0 {
		return ""
	}
	return strconv.FormatInt(v.People[0].ID, 10)
}
