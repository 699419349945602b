package attribute

// File is an uploaded evidence file
type File struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Link  string `json:"link"`
}

// Attachments is the supporting information entered for one dropdown answer
type Attachments struct {
	Comment *string  `json:"comment"`
	URLs    []string `json:"urls"`
	Files   []File   `json:"files"`
}

// NewAttachments returns an empty bundle
func NewAttachments() *Attachments {
	return &Attachments{
		URLs:  []string{},
		Files: []File{},
	}
}

// HasContent reports whether anything was entered into the bundle
func (a *Attachments) HasContent() bool {
	if a == nil {
		return false
	}
	return a.Comment != nil || len(a.URLs) > 0 || len(a.Files) > 0
}

// ErrorsMap flags which required kinds are still missing
type ErrorsMap struct {
	File    bool `json:"file"`
	URL     bool `json:"url"`
	Comment bool `json:"comment"`
}

// Validation is the derived validation record of an attribute.
// Only Validate writes to it.
type Validation struct {
	Mandatory             bool `json:"mandatory"`
	Valid                 bool `json:"valid"`
	RequiresAttachment    bool `json:"requires_attachment"`
	HasMissingInfo        bool `json:"has_missing_info"`
	HasUnsavedAttachments bool `json:"has_unsaved_attachments"`
}

// Definition describes one attribute column of the grid
type Definition struct {
	Title        string
	Type         Type
	ServerType   string
	Mandatory    bool
	DefaultValue *string
}

// Instance is one attribute on one assessment row
type Instance struct {
	// ID is the custom attribute definition id on this assessment, 0 while unresolved
	ID int64
	// AssessmentID is the definition_id the backend expects back
	AssessmentID int64

	Title      string
	Type       Type
	ServerType string
	Value      Value
	Options    Options

	Modified     bool
	IsApplicable bool
	Attachments  *Attachments
	Errors       ErrorsMap
	Validation   Validation
}

// NewInstance creates an applicable instance. It starts valid; the owning row
// validates it during initialization.
func NewInstance(def Definition, id, assessmentID int64, value Value, opts Options) *Instance {
	inst := &Instance{
		ID:           id,
		AssessmentID: assessmentID,
		Title:        def.Title,
		Type:         def.Type,
		ServerType:   def.ServerType,
		Value:        value,
		Options:      opts,
		IsApplicable: true,
		Validation: Validation{
			Mandatory: def.Mandatory,
			Valid:     true,
		},
	}
	if inst.Type == TypeDropdown && inst.RequiredInfo().Any() {
		inst.Attachments = NewAttachments()
	}
	return inst
}

// NewNotApplicable creates a placeholder for a column the assessment does not have
func NewNotApplicable(def Definition) *Instance {
	return &Instance{
		Title:      def.Title,
		Type:       def.Type,
		ServerType: def.ServerType,
		Validation: Validation{
			Mandatory: def.Mandatory,
			Valid:     true,
		},
	}
}

// RequiredInfo decodes the requirement of the currently selected option.
// Non-dropdown attributes never require supporting information.
func (i *Instance) RequiredInfo() RequiredInfo {
	if i.Type != TypeDropdown {
		return RequiredInfo{}
	}
	return DecodeRequirement(i.Options.Bitmask(i.Value.Text))
}
