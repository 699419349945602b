package attribute

// Type is the semantic type of a custom attribute
type Type string

const (
	TypeText        Type = "text"
	TypeInput       Type = "input"
	TypeCheckbox    Type = "checkbox"
	TypeDate        Type = "date"
	TypeDropdown    Type = "dropdown"
	TypeMultiselect Type = "multiselect"
	TypePerson      Type = "person"
)

// serverTypes maps attribute_type names used by the backend to semantic types
var serverTypes = map[string]Type{
	"Rich Text":   TypeText,
	"Text":        TypeInput,
	"Checkbox":    TypeCheckbox,
	"Date":        TypeDate,
	"Dropdown":    TypeDropdown,
	"Multiselect": TypeMultiselect,
	"Map:Person":  TypePerson,
}

// ParseServerType resolves a backend attribute_type name.
// Unknown names resolve to TypeInput and report ok=false so callers can log them.
func ParseServerType(name string) (Type, bool) {
	t, ok := serverTypes[name]
	if !ok {
		return TypeInput, false
	}
	return t, true
}

// String returns the string representation of the type
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeText,
		TypeInput,
		TypeCheckbox,
		TypeDate,
		TypeDropdown,
		TypeMultiselect,
		TypePerson:
		return true
	default:
		return false
	}
}
