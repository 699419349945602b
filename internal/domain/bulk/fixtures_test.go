package bulk

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/garyjia/assessment-bulk/internal/domain/event"
)

// searchJSON has two assessments. Assessment 2 lacks the "Owner" attribute.
const searchJSON = `{
  "assessments": [
    {"id": 1, "slug": "ASSESSMENT-1", "title": "First", "status": "In Progress",
     "assessment_type": "Control", "urls_count": 0, "files_count": 0},
    {"id": 2, "slug": "ASSESSMENT-2", "title": "Second", "status": "Not Started",
     "assessment_type": "Control", "urls_count": 1, "files_count": 0}
  ],
  "attributes": [
    {"title": "Tested", "mandatory": false, "attribute_type": "Checkbox", "default_value": "0",
     "values": {
       "1": {"value": "1", "definition_id": 1, "attribute_definition_id": 11},
       "2": {"value": null, "definition_id": 2, "attribute_definition_id": 21}
     }},
    {"title": "Conclusion", "mandatory": true, "attribute_type": "Dropdown", "default_value": "",
     "values": {
       "1": {"value": "Effective", "definition_id": 1, "attribute_definition_id": 12,
             "multi_choice_options": "Effective,Ineffective,Partial", "multi_choice_mandatory": "0,1,6"},
       "2": {"value": "", "definition_id": 2, "attribute_definition_id": 22,
             "multi_choice_options": "Effective,Ineffective,Partial", "multi_choice_mandatory": "0,1,6"}
     }},
    {"title": "Owner", "mandatory": true, "attribute_type": "Map:Person", "default_value": null,
     "values": {
       "1": {"value": "Person", "attribute_person_id": 7, "definition_id": 1, "attribute_definition_id": 13}
     }},
    {"title": "Score", "mandatory": false, "attribute_type": "Map:Org", "default_value": null,
     "values": {
       "1": {"value": "3", "definition_id": 1, "attribute_definition_id": 14},
       "2": {"value": "", "definition_id": 2, "attribute_definition_id": 24}
     }}
  ]
}`

// attribute indexes inside a row of searchJSON
const (
	idxTested = iota
	idxConclusion
	idxOwner
	idxScore
)

func loadSearch(t *testing.T) *SearchResult {
	t.Helper()
	var result SearchResult
	require.NoError(t, json.Unmarshal([]byte(searchJSON), &result))
	return &result
}

func loadedGrid(t *testing.T) *Grid {
	t.Helper()
	g := NewGrid()
	g.BeginLoad()
	g.Load(loadSearch(t))
	return g
}

// recordingSink collects row notifications
type recordingSink struct {
	events []*event.Event
}

func (s *recordingSink) Publish(evt *event.Event) {
	s.events = append(s.events, evt)
}

func (s *recordingSink) count(typ event.Type) int {
	n := 0
	for _, evt := range s.events {
		if evt.Type == typ {
			n++
		}
	}
	return n
}

func strPtr(s string) *string { return &s }
