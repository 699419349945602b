package bulk

import (
	"fmt"

	"github.com/garyjia/assessment-bulk/internal/domain/attribute"
	"github.com/garyjia/assessment-bulk/internal/domain/event"
)

// Sink receives row notifications
type Sink interface {
	Publish(evt *event.Event)
}

// RequiredInfoChanges is what the required-info dialog hands back
type RequiredInfoChanges struct {
	Comment *string          `json:"comment"`
	URLs    []string         `json:"urls"`
	Files   []attribute.File `json:"files"`
}

// Row is the editable state of one assessment
type Row struct {
	AssessmentID int64
	Slug         string
	Title        string
	Status       string
	Type         string

	// Attachments already stored on the assessment, not tied to an answer
	URLsCount  int
	FilesCount int

	Attributes        []*attribute.Instance
	IsReadyToComplete bool

	sink Sink
}

// NewRow creates a row that reports to sink
func NewRow(rec AssessmentRecord, attrs []*attribute.Instance, sink Sink) *Row {
	return &Row{
		AssessmentID: rec.ID,
		Slug:         rec.Slug,
		Title:        rec.Title,
		Status:       rec.Status,
		Type:         rec.AssessmentType,
		URLsCount:    rec.URLsCount,
		FilesCount:   rec.FilesCount,
		Attributes:   attrs,
		sink:         sink,
	}
}

// Init validates every attribute once and announces the row if it is ready
// straight away (answers saved earlier may already satisfy it).
func (r *Row) Init() {
	r.ValidateAll()
	r.IsReadyToComplete = r.CheckReadiness()

	if r.IsReadyToComplete {
		r.publish(event.NewReadyToComplete(r.AssessmentID))
	}
}

// ValidateAll re-runs validation over every attribute of the row
func (r *Row) ValidateAll() {
	for _, attr := range r.Attributes {
		attribute.Validate(attr, r)
	}
}

// CheckReadiness reports whether every attribute is valid
func (r *Row) CheckReadiness() bool {
	for _, attr := range r.Attributes {
		if !attr.Validation.Valid {
			return false
		}
	}
	return true
}

// RequiredCount implements attribute.RowCounts
func (r *Row) RequiredCount(kind attribute.Kind) int {
	count := 0
	for _, attr := range r.Attributes {
		if !attr.IsApplicable || attr.Type != attribute.TypeDropdown {
			continue
		}
		if attr.RequiredInfo().Has(kind) {
			count++
		}
	}
	return count
}

// SuppliedCount implements attribute.RowCounts
func (r *Row) SuppliedCount(kind attribute.Kind) int {
	count := 0
	switch kind {
	case attribute.KindAttachment:
		count = r.FilesCount
		for _, attr := range r.Attributes {
			if attr.Attachments != nil {
				count += len(attr.Attachments.Files)
			}
		}
	case attribute.KindURL:
		count = r.URLsCount
		for _, attr := range r.Attributes {
			if attr.Attachments != nil {
				count += len(attr.Attachments.URLs)
			}
		}
	case attribute.KindComment:
		// comments are judged per attribute
	}
	return count
}

// AttributeValueChanged applies a user edit to the attribute at index
func (r *Row) AttributeValueChanged(value attribute.Value, index int) error {
	if index < 0 || index >= len(r.Attributes) {
		return fmt.Errorf("%w: %d", ErrAttributeIndex, index)
	}
	attr := r.Attributes[index]
	if !attr.IsApplicable {
		return fmt.Errorf("%w: %q", ErrNotApplicable, attr.Title)
	}
	if err := attr.Options.Check(attr.Type, value.Text); err != nil {
		return fmt.Errorf("%q: %w", attr.Title, err)
	}

	attr.Value = value
	attr.Modified = true
	attr.Attachments = nil
	if attr.Type == attribute.TypeDropdown {
		required := attr.RequiredInfo()
		if required.Any() {
			attr.Attachments = attribute.NewAttachments()
		}
		// a fresh selection starts without a comment
		attr.Errors.Comment = required.Comment
	}

	r.revalidate()
	return nil
}

// UpdateRequiredInfo stores the comment, urls and files supplied for an attribute
func (r *Row) UpdateRequiredInfo(attributeID int64, changes RequiredInfoChanges) error {
	attr := r.findAttribute(attributeID)
	if attr == nil {
		return fmt.Errorf("%w: %d", ErrAttributeNotFound, attributeID)
	}
	if attr.Attachments == nil {
		return fmt.Errorf("%w: %q", ErrNoRequiredInfo, attr.Title)
	}

	var comment *string
	if changes.Comment != nil && attribute.PlainText(*changes.Comment) != "" {
		c := *changes.Comment
		comment = &c
	}

	attr.Attachments = &attribute.Attachments{
		Comment: comment,
		URLs:    append([]string{}, changes.URLs...),
		Files:   append([]attribute.File{}, changes.Files...),
	}
	attr.Modified = true
	attr.Errors.Comment = comment == nil

	r.revalidate()
	return nil
}

// HasAttribute reports whether the row holds an applicable attribute with the id
func (r *Row) HasAttribute(attributeID int64) bool {
	return r.findAttribute(attributeID) != nil
}

// revalidate re-runs the whole row because attachment sufficiency of one
// attribute depends on the others, then reports the change.
func (r *Row) revalidate() {
	r.ValidateAll()
	r.IsReadyToComplete = r.CheckReadiness()
	r.publish(event.NewAttributeModified(r.AssessmentID, r.IsReadyToComplete))
}

// markPersisted quiets the row after its answers were accepted by the backend.
// Entered urls and files now belong to the assessment, so they move into the
// baseline counts and the aggregate supply stays the same.
func (r *Row) markPersisted() {
	for _, attr := range r.Attributes {
		attr.Modified = false
		attr.Validation.HasUnsavedAttachments = false
		if attr.Attachments == nil {
			continue
		}
		r.FilesCount += len(attr.Attachments.Files)
		r.URLsCount += len(attr.Attachments.URLs)
		if attr.Attachments.Comment != nil {
			attr.Errors.Comment = false
		}
		attr.Attachments = attribute.NewAttachments()
	}
	r.ValidateAll()
	r.IsReadyToComplete = r.CheckReadiness()
}

func (r *Row) findAttribute(attributeID int64) *attribute.Instance {
	if attributeID == 0 {
		return nil
	}
	for _, attr := range r.Attributes {
		if attr.IsApplicable && attr.ID == attributeID {
			return attr
		}
	}
	return nil
}

func (r *Row) publish(evt *event.Event) {
	if r.sink != nil {
		r.sink.Publish(evt)
	}
}
