package bulk

import (
	"strconv"

	"github.com/garyjia/assessment-bulk/internal/domain/attribute"
)

// SearchResult is the response of the bulk attribute search endpoint
type SearchResult struct {
	Assessments []AssessmentRecord `json:"assessments"`
	Attributes  []AttributeColumn  `json:"attributes"`
}

// AssessmentRecord is one assessment of the search response
type AssessmentRecord struct {
	ID             int64  `json:"id"`
	Slug           string `json:"slug"`
	Title          string `json:"title"`
	Status         string `json:"status"`
	AssessmentType string `json:"assessment_type"`
	URLsCount      int    `json:"urls_count"`
	FilesCount     int    `json:"files_count"`
}

// AttributeColumn groups equal custom attribute definitions across assessments
type AttributeColumn struct {
	Title         string  `json:"title"`
	Mandatory     bool    `json:"mandatory"`
	AttributeType string  `json:"attribute_type"`
	DefaultValue  *string `json:"default_value"`
	// Values is keyed by assessment id
	Values map[string]AttributeValueRecord `json:"values"`
}

// AttributeValueRecord is the per-assessment part of a column
type AttributeValueRecord struct {
	Value                 *string     `json:"value"`
	AttributePersonID     *int64      `json:"attribute_person_id"`
	PreconditionsFailed   *bool       `json:"preconditions_failed"`
	DefinitionID          int64       `json:"definition_id"`
	AttributeDefinitionID int64       `json:"attribute_definition_id"`
	MultiChoiceOptions    interface{} `json:"multi_choice_options"`
	MultiChoiceMandatory  interface{} `json:"multi_choice_mandatory"`
}

// Column is the resolved metadata of one grid column
type Column struct {
	attribute.Definition
	// KnownType is false when the backend type name was not recognized
	KnownType bool
}

// buildColumns resolves the column metadata of a search result
func buildColumns(cols []AttributeColumn) []Column {
	columns := make([]Column, 0, len(cols))
	for _, col := range cols {
		t, known := attribute.ParseServerType(col.AttributeType)
		columns = append(columns, Column{
			Definition: attribute.Definition{
				Title:        col.Title,
				Type:         t,
				ServerType:   col.AttributeType,
				Mandatory:    col.Mandatory,
				DefaultValue: col.DefaultValue,
			},
			KnownType: known,
		})
	}
	return columns
}

// buildAttributes maps the columns onto one assessment. A column without a
// value record for the assessment yields a non-applicable placeholder.
func buildAttributes(rec AssessmentRecord, cols []AttributeColumn, columns []Column) []*attribute.Instance {
	key := strconv.FormatInt(rec.ID, 10)
	attrs := make([]*attribute.Instance, 0, len(cols))

	for i, col := range cols {
		def := columns[i].Definition
		valueRec, ok := col.Values[key]
		if !ok {
			attrs = append(attrs, attribute.NewNotApplicable(def))
			continue
		}

		raw := valueRec.Value
		if raw == nil {
			raw = def.DefaultValue
		}

		definitionID := valueRec.DefinitionID
		if definitionID == 0 {
			definitionID = rec.ID
		}

		attrs = append(attrs, attribute.NewInstance(
			def,
			valueRec.AttributeDefinitionID,
			definitionID,
			attribute.Normalize(def.Type, raw, valueRec.AttributePersonID),
			attribute.ParseOptions(valueRec.MultiChoiceOptions, valueRec.MultiChoiceMandatory),
		))
	}

	return attrs
}
