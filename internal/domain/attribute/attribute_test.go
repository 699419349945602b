package attribute

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func int64Ptr(n int64) *int64 { return &n }

func TestParseServerType(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Type
		known bool
	}{
		{"rich text", "Rich Text", TypeText, true},
		{"plain text", "Text", TypeInput, true},
		{"checkbox", "Checkbox", TypeCheckbox, true},
		{"date", "Date", TypeDate, true},
		{"dropdown", "Dropdown", TypeDropdown, true},
		{"multiselect", "Multiselect", TypeMultiselect, true},
		{"person", "Map:Person", TypePerson, true},
		{"unknown falls back to input", "Map:Org", TypeInput, false},
		{"empty", "", TypeInput, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, known := ParseServerType(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.known, known)
			assert.True(t, got.IsValid())
		})
	}
}

func TestType_IsValid(t *testing.T) {
	assert.True(t, TypeDropdown.IsValid())
	assert.False(t, Type("Other").IsValid())
	assert.Equal(t, "person", TypePerson.String())
}

func TestDecodeRequirement(t *testing.T) {
	tests := []struct {
		bitmask int
		want    RequiredInfo
	}{
		{0, RequiredInfo{}},
		{1, RequiredInfo{Comment: true}},
		{2, RequiredInfo{Attachment: true}},
		{3, RequiredInfo{Comment: true, Attachment: true}},
		{4, RequiredInfo{URL: true}},
		{5, RequiredInfo{Comment: true, URL: true}},
		{6, RequiredInfo{Attachment: true, URL: true}},
		{7, RequiredInfo{Comment: true, Attachment: true, URL: true}},
		{9, RequiredInfo{Comment: true}},
		{-1, RequiredInfo{}},
	}

	for _, tt := range tests {
		got := DecodeRequirement(tt.bitmask)
		assert.Equal(t, tt.want, got, "bitmask %d", tt.bitmask)
		assert.Equal(t, tt.want.Comment || tt.want.Attachment || tt.want.URL, got.Any(), "bitmask %d", tt.bitmask)
	}
}

func TestRequiredInfo_HasAndTitle(t *testing.T) {
	info := DecodeRequirement(5)

	assert.True(t, info.Has(KindComment))
	assert.False(t, info.Has(KindAttachment))
	assert.True(t, info.Has(KindURL))
	assert.False(t, info.Has(Kind("other")))
	assert.Equal(t, "Required Comment, Evidence Url", info.Title())
	assert.Equal(t, "Required Comment, Evidence File, Evidence Url", DecodeRequirement(7).Title())
}

func TestParseOptions(t *testing.T) {
	t.Run("zips labels and bitmasks", func(t *testing.T) {
		opts := ParseOptions("Yes,No,N/A", "0,1,6")

		assert.Equal(t, []string{"Yes", "No", "N/A"}, opts.Labels)
		assert.Equal(t, []int{0, 1, 6}, opts.Bitmasks)
		assert.Equal(t, 1, opts.Bitmask("No"))
		assert.Equal(t, 6, opts.Bitmask("N/A"))
		assert.Equal(t, 0, opts.Bitmask("Maybe"))
		assert.Equal(t, 3, opts.Len())
	})

	t.Run("non string source is an empty list", func(t *testing.T) {
		opts := ParseOptions(nil, 42)

		assert.Empty(t, opts.Labels)
		assert.Empty(t, opts.Bitmasks)
		assert.Equal(t, 0, opts.Bitmask(""))
	})

	t.Run("missing bitmasks default to zero", func(t *testing.T) {
		opts := ParseOptions("a,b,c", "2")

		assert.Equal(t, []int{2, 0, 0}, opts.Bitmasks)
	})

	t.Run("surplus bitmasks are dropped", func(t *testing.T) {
		opts := ParseOptions("a", "1,2,4")

		assert.Equal(t, []int{1}, opts.Bitmasks)
	})

	t.Run("garbage bitmask is zero", func(t *testing.T) {
		opts := ParseOptions("a,b", " 4 ,x")

		assert.Equal(t, []int{4, 0}, opts.Bitmasks)
	})
}

func TestOptions_Check(t *testing.T) {
	opts := ParseOptions("Effective,Ineffective,Partial", "0,1,6")

	tests := []struct {
		name    string
		typ     Type
		value   string
		wantErr bool
	}{
		{name: "dropdown option", typ: TypeDropdown, value: "Ineffective"},
		{name: "dropdown cleared", typ: TypeDropdown, value: ""},
		{name: "dropdown unknown value", typ: TypeDropdown, value: "Not an option", wantErr: true},
		{name: "dropdown wrong case", typ: TypeDropdown, value: "ineffective", wantErr: true},
		{name: "dropdown trailing space", typ: TypeDropdown, value: "Ineffective ", wantErr: true},
		{name: "multiselect options", typ: TypeMultiselect, value: "Effective,Partial"},
		{name: "multiselect one unknown part", typ: TypeMultiselect, value: "Effective,Maybe", wantErr: true},
		{name: "multiselect empty part", typ: TypeMultiselect, value: "Effective,", wantErr: true},
		{name: "text is not checked", typ: TypeInput, value: "anything"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := opts.Check(tt.typ, tt.value)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidValue)
				return
			}
			assert.NoError(t, err)
		})
	}

	t.Run("dropdown without options accepts only empty", func(t *testing.T) {
		assert.NoError(t, Options{}.Check(TypeDropdown, ""))
		assert.ErrorIs(t, Options{}.Check(TypeDropdown, "x"), ErrInvalidValue)
	})
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		typ      Type
		raw      *string
		personID *int64
		want     Value
	}{
		{"checkbox one", TypeCheckbox, strPtr("1"), nil, CheckboxValue(true)},
		{"checkbox zero", TypeCheckbox, strPtr("0"), nil, CheckboxValue(false)},
		{"checkbox nil", TypeCheckbox, nil, nil, CheckboxValue(false)},
		{"date", TypeDate, strPtr("2024-03-01"), nil, TextValue("2024-03-01")},
		{"empty date", TypeDate, strPtr(""), nil, TextValue("")},
		{"dropdown nil", TypeDropdown, nil, nil, TextValue("")},
		{"person", TypePerson, strPtr("Person"), int64Ptr(17), PersonValue(17)},
		{"person without id", TypePerson, nil, nil, Value{}},
		{"rich text", TypeText, strPtr("<p>hi</p>"), nil, TextValue("<p>hi</p>")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.typ, tt.raw, tt.personID))
		})
	}
}

func TestDenormalize(t *testing.T) {
	assert.Equal(t, "1", Denormalize(TypeCheckbox, CheckboxValue(true)))
	assert.Equal(t, "0", Denormalize(TypeCheckbox, CheckboxValue(false)))
	assert.Equal(t, int64(5), Denormalize(TypePerson, PersonValue(5)))
	assert.Nil(t, Denormalize(TypePerson, Value{}))
	assert.Equal(t, "", Denormalize(TypeDate, TextValue("")))
	assert.Equal(t, "Yes", Denormalize(TypeDropdown, TextValue("Yes")))
}

func TestNormalize_RoundTrip(t *testing.T) {
	for _, raw := range []string{"1", "0"} {
		v := Normalize(TypeCheckbox, strPtr(raw), nil)
		assert.Equal(t, raw, Denormalize(TypeCheckbox, v))
	}
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, true, Display(TypeCheckbox, CheckboxValue(true)))
	assert.Equal(t, []Person{}, Display(TypePerson, Value{}))
	assert.Equal(t, []Person{{ID: 3, Type: PersonType}}, Display(TypePerson, PersonValue(3)))
	assert.Equal(t, "x", Display(TypeInput, TextValue("x")))
}

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		name  string
		typ   Type
		value Value
		want  bool
	}{
		{"rich text markup only", TypeText, TextValue("<p><br></p>"), true},
		{"rich text whitespace", TypeText, TextValue("<p>   </p>"), true},
		{"rich text content", TypeText, TextValue("<b>done</b>"), false},
		{"input empty", TypeInput, TextValue(""), true},
		{"input spaces count", TypeInput, TextValue(" "), false},
		{"checkbox unchecked", TypeCheckbox, CheckboxValue(false), true},
		{"checkbox checked", TypeCheckbox, CheckboxValue(true), false},
		{"person none", TypePerson, Value{}, true},
		{"person one", TypePerson, PersonValue(1), false},
		{"date set", TypeDate, TextValue("2024-01-01"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEmpty(tt.typ, tt.value))
		})
	}
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "", PlainText(""))
	assert.Equal(t, "hello world", PlainText("<p>hello <b>world</b></p>"))
	assert.Equal(t, "a & b", PlainText("a &amp; b"))
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		raw     string
		want    Value
		wantErr bool
	}{
		{"checkbox bool", TypeCheckbox, `true`, CheckboxValue(true), false},
		{"checkbox string", TypeCheckbox, `"0"`, CheckboxValue(false), false},
		{"checkbox garbage", TypeCheckbox, `"maybe"`, Value{}, true},
		{"person id", TypePerson, `12`, PersonValue(12), false},
		{"person list", TypePerson, `[{"id":8,"type":"Person"}]`, PersonValue(8), false},
		{"person id list", TypePerson, `[9]`, PersonValue(9), false},
		{"person null", TypePerson, `null`, Value{}, false},
		{"person empty list", TypePerson, `[]`, Value{}, false},
		{"person garbage", TypePerson, `"x"`, Value{}, true},
		{"text string", TypeInput, `"abc"`, TextValue("abc"), false},
		{"text number", TypeInput, `12.5`, TextValue("12.5"), false},
		{"text null", TypeDate, `null`, TextValue(""), false},
		{"text object", TypeDropdown, `{}`, Value{}, true},
		{"unknown type", Type("Other"), `"a"`, Value{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInput(tt.typ, json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseInput_WrapsSentinels(t *testing.T) {
	_, err := ParseInput(TypeCheckbox, json.RawMessage(`[]`))
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = ParseInput(Type("Other"), json.RawMessage(`""`))
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestFormatPersonID(t *testing.T) {
	assert.Equal(t, "", FormatPersonID(Value{}))
	assert.Equal(t, "42", FormatPersonID(PersonValue(42)))
}

func TestAttachments_HasContent(t *testing.T) {
	var nilBundle *Attachments
	assert.False(t, nilBundle.HasContent())
	assert.False(t, NewAttachments().HasContent())
	assert.True(t, (&Attachments{Comment: strPtr("c")}).HasContent())
	assert.True(t, (&Attachments{URLs: []string{"u"}}).HasContent())
}

func TestNewInstance(t *testing.T) {
	def := Definition{Title: "Q", Type: TypeDropdown, ServerType: "Dropdown", Mandatory: true}

	t.Run("dropdown requiring info gets a bundle", func(t *testing.T) {
		inst := NewInstance(def, 10, 1, TextValue("No"), ParseOptions("Yes,No", "0,1"))

		assert.True(t, inst.IsApplicable)
		assert.True(t, inst.Validation.Valid)
		assert.True(t, inst.Validation.Mandatory)
		require.NotNil(t, inst.Attachments)
		assert.Equal(t, RequiredInfo{Comment: true}, inst.RequiredInfo())
	})

	t.Run("dropdown without requirement has no bundle", func(t *testing.T) {
		inst := NewInstance(def, 10, 1, TextValue("Yes"), ParseOptions("Yes,No", "0,1"))

		assert.Nil(t, inst.Attachments)
	})

	t.Run("non dropdown never requires info", func(t *testing.T) {
		inst := NewInstance(Definition{Title: "T", Type: TypeInput}, 1, 1, TextValue("No"), ParseOptions("Yes,No", "7,7"))

		assert.False(t, inst.RequiredInfo().Any())
		assert.Nil(t, inst.Attachments)
	})

	t.Run("not applicable placeholder", func(t *testing.T) {
		inst := NewNotApplicable(def)

		assert.False(t, inst.IsApplicable)
		assert.True(t, inst.Validation.Valid)
		assert.Equal(t, int64(0), inst.ID)
	})
}
