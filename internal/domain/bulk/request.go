package bulk

import (
	"encoding/json"

	"github.com/garyjia/assessment-bulk/internal/domain/attribute"
)

// Request is the body of the save-answers and complete endpoints
type Request struct {
	AssessmentsIDs []int64            `json:"assessments_ids"`
	Attributes     []AssessmentValues `json:"attributes"`
}

// AssessmentRef identifies an assessment in the request
type AssessmentRef struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug"`
}

// AssessmentValues carries the changed answers of one assessment
type AssessmentValues struct {
	Assessment AssessmentRef  `json:"assessment"`
	Values     []ValuePayload `json:"values"`
}

// ValuePayload is one changed answer
type ValuePayload struct {
	Value        interface{} `json:"value"`
	Title        string      `json:"title"`
	Type         string      `json:"type"`
	DefinitionID int64       `json:"definition_id"`
	ID           int64       `json:"id"`
	Extra        Extra       `json:"extra"`
}

// Extra holds the supporting information of an answer. It encodes as {}
// when the answer has no attachment bundle.
type Extra struct {
	Present bool
	URLs    []string
	Files   []FilePayload
	Comment *CommentPayload
}

// FilePayload references an uploaded file
type FilePayload struct {
	Title          string `json:"title"`
	SourceGdriveID string `json:"source_gdrive_id"`
}

// CommentPayload is the comment attached to an answer
type CommentPayload struct {
	Description string    `json:"description"`
	ModifiedBy  PersonRef `json:"modified_by"`
}

// PersonRef identifies the author of a comment
type PersonRef struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
}

// MarshalJSON implements json.Marshaler
func (e Extra) MarshalJSON() ([]byte, error) {
	if !e.Present {
		return []byte("{}"), nil
	}

	urls := e.URLs
	if urls == nil {
		urls = []string{}
	}
	files := e.Files
	if files == nil {
		files = []FilePayload{}
	}

	return json.Marshal(struct {
		URLs    []string        `json:"urls"`
		Files   []FilePayload   `json:"files"`
		Comment *CommentPayload `json:"comment"`
	}{
		URLs:    urls,
		Files:   files,
		Comment: e.Comment,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (e *Extra) UnmarshalJSON(data []byte) error {
	var raw struct {
		URLs    []string        `json:"urls"`
		Files   []FilePayload   `json:"files"`
		Comment *CommentPayload `json:"comment"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*e = Extra{
		Present: raw.URLs != nil || raw.Files != nil || raw.Comment != nil,
		URLs:    raw.URLs,
		Files:   raw.Files,
		Comment: raw.Comment,
	}
	return nil
}

// buildValue serializes one answer
func buildValue(attr *attribute.Instance, personID int64) ValuePayload {
	payload := ValuePayload{
		Value:        attribute.Denormalize(attr.Type, attr.Value),
		Title:        attr.Title,
		Type:         attr.ServerType,
		DefinitionID: attr.AssessmentID,
		ID:           attr.ID,
	}

	if attr.Attachments != nil {
		extra := Extra{
			Present: true,
			URLs:    append([]string{}, attr.Attachments.URLs...),
			Files:   make([]FilePayload, 0, len(attr.Attachments.Files)),
		}
		for _, f := range attr.Attachments.Files {
			extra.Files = append(extra.Files, FilePayload{
				Title:          f.Title,
				SourceGdriveID: f.ID,
			})
		}
		if attr.Attachments.Comment != nil {
			extra.Comment = &CommentPayload{
				Description: *attr.Attachments.Comment,
				ModifiedBy: PersonRef{
					Type: attribute.PersonType,
					ID:   personID,
				},
			}
		}
		payload.Extra = extra
	}

	return payload
}
