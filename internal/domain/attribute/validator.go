package attribute

// RowCounts exposes the row-level aggregates dropdown validation depends on.
// Attachment and url sufficiency is judged across the whole row: one shared
// file or url can satisfy several dropdown answers.
type RowCounts interface {
	// RequiredCount returns how many applicable dropdown attributes of the row
	// currently require the kind
	RequiredCount(kind Kind) int
	// SuppliedCount returns how many items of the kind the row already has
	SuppliedCount(kind Kind) int
}

// Validate recomputes inst.Validation and inst.Errors in place.
// Attributes that are not applicable are left untouched.
func Validate(inst *Instance, row RowCounts) {
	if !inst.IsApplicable {
		return
	}

	switch inst.Type {
	case TypeDropdown:
		validateDropdown(inst, row)
	case TypeText, TypeInput, TypeCheckbox, TypeDate, TypeMultiselect, TypePerson:
		validateDefault(inst)
	}
}

func validateDefault(inst *Instance) {
	if !inst.Validation.Mandatory {
		return
	}
	inst.Validation.Valid = !IsEmpty(inst.Type, inst.Value)
}

func validateDropdown(inst *Instance, row RowCounts) {
	required := inst.RequiredInfo()
	validation := &inst.Validation
	validation.RequiresAttachment = required.Any()

	missingFile := required.Attachment &&
		row.RequiredCount(KindAttachment) > row.SuppliedCount(KindAttachment)
	missingURL := required.URL &&
		row.RequiredCount(KindURL) > row.SuppliedCount(KindURL)
	// comment sufficiency is per attribute
	missingComment := required.Comment && inst.Errors.Comment
	missing := missingFile || missingURL || missingComment

	if validation.RequiresAttachment {
		if inst.Attachments == nil {
			inst.Attachments = NewAttachments()
		}
		validation.Valid = !missing
		validation.HasMissingInfo = missing
		validation.HasUnsavedAttachments = inst.Attachments.HasContent()
	} else {
		inst.Attachments = nil
		validation.Valid = !validation.Mandatory || inst.Value.Text != ""
		validation.HasMissingInfo = false
		validation.HasUnsavedAttachments = false
	}

	inst.Errors = ErrorsMap{
		File:    missingFile,
		URL:     missingURL,
		Comment: missingComment,
	}
}
