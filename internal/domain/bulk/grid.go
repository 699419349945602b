package bulk

import (
	"fmt"

	"github.com/garyjia/assessment-bulk/internal/domain/attribute"
	"github.com/garyjia/assessment-bulk/internal/domain/event"
)

// Grid is the state of one bulk completion grid: rows, the set of rows that
// are ready to complete and the session flags the submit buttons depend on.
// Grid is not safe for concurrent use; callers serialize access.
type Grid struct {
	rows    []*Row
	columns []Column

	readyIDs map[int64]struct{}

	isAttributeModified        bool
	isBackgroundTaskInProgress bool
	isGridEmpty                bool
	isLoading                  bool
	isDataLoaded               bool
}

// NewGrid creates an empty grid
func NewGrid() *Grid {
	return &Grid{
		readyIDs: make(map[int64]struct{}),
	}
}

// BeginLoad marks the start of a search round trip
func (g *Grid) BeginLoad() {
	g.isLoading = true
	g.isDataLoaded = false
}

// AbortLoad clears the loading flag after a failed search
func (g *Grid) AbortLoad() {
	g.isLoading = false
}

// Load replaces the grid contents with a search result.
// Rows are validated and announce their readiness while being added.
func (g *Grid) Load(result *SearchResult) {
	g.rows = nil
	g.columns = nil
	g.readyIDs = make(map[int64]struct{})
	g.isAttributeModified = false
	g.isGridEmpty = false

	if result != nil {
		g.columns = buildColumns(result.Attributes)
		g.rows = make([]*Row, 0, len(result.Assessments))
		for _, rec := range result.Assessments {
			row := NewRow(rec, buildAttributes(rec, result.Attributes, g.columns), g)
			g.rows = append(g.rows, row)
			row.Init()
		}
	}

	g.isGridEmpty = len(g.rows) == 0
	g.isLoading = false
	g.isDataLoaded = true
}

// Publish implements Sink. It keeps the ready set and the modified flag in
// step with row notifications.
func (g *Grid) Publish(evt *event.Event) {
	if evt == nil {
		return
	}

	switch evt.Type {
	case event.TypeAttributeModified:
		g.isAttributeModified = true
		if evt.Ready {
			g.readyIDs[evt.AssessmentID] = struct{}{}
		} else {
			delete(g.readyIDs, evt.AssessmentID)
		}
	case event.TypeReadyToComplete:
		g.readyIDs[evt.AssessmentID] = struct{}{}
	}
}

// Rows returns the rows in display order
func (g *Grid) Rows() []*Row {
	return g.rows
}

// Columns returns the column metadata of the last load
func (g *Grid) Columns() []Column {
	return g.columns
}

// Row looks a row up by assessment id
func (g *Grid) Row(assessmentID int64) (*Row, error) {
	for _, row := range g.rows {
		if row.AssessmentID == assessmentID {
			return row, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrRowNotFound, assessmentID)
}

// ChangeValue forwards an edit to the row holding the assessment
func (g *Grid) ChangeValue(assessmentID int64, index int, value attribute.Value) error {
	row, err := g.Row(assessmentID)
	if err != nil {
		return err
	}
	return row.AttributeValueChanged(value, index)
}

// UpdateRequiredInfo forwards required-info changes to the row holding the attribute
func (g *Grid) UpdateRequiredInfo(attributeID int64, changes RequiredInfoChanges) error {
	for _, row := range g.rows {
		if row.HasAttribute(attributeID) {
			return row.UpdateRequiredInfo(attributeID, changes)
		}
	}
	return fmt.Errorf("%w: %d", ErrAttributeNotFound, attributeID)
}

// FindAttribute returns the applicable attribute with the id and its row
func (g *Grid) FindAttribute(attributeID int64) (*Row, *attribute.Instance, error) {
	for _, row := range g.rows {
		if attr := row.findAttribute(attributeID); attr != nil {
			return row, attr, nil
		}
	}
	return nil, nil, fmt.Errorf("%w: %d", ErrAttributeNotFound, attributeID)
}

// ReadyIDs returns the ids of ready rows in display order
func (g *Grid) ReadyIDs() []int64 {
	ids := make([]int64, 0, len(g.readyIDs))
	for _, row := range g.rows {
		if _, ok := g.readyIDs[row.AssessmentID]; ok {
			ids = append(ids, row.AssessmentID)
		}
	}
	return ids
}

// IsReady reports whether the row is in the ready set
func (g *Grid) IsReady(assessmentID int64) bool {
	_, ok := g.readyIDs[assessmentID]
	return ok
}

// ReadyCount returns the number of rows ready to complete
func (g *Grid) ReadyCount() int {
	return len(g.readyIDs)
}

// IsAttributeModified reports whether anything was edited since the last load or submit
func (g *Grid) IsAttributeModified() bool {
	return g.isAttributeModified
}

// IsBackgroundTaskInProgress reports whether a submitted task is still tracked
func (g *Grid) IsBackgroundTaskInProgress() bool {
	return g.isBackgroundTaskInProgress
}

// SetBackgroundTaskInProgress toggles the in-progress flag
func (g *Grid) SetBackgroundTaskInProgress(inProgress bool) {
	g.isBackgroundTaskInProgress = inProgress
}

// IsGridEmpty reports whether the last load or completion left no rows
func (g *Grid) IsGridEmpty() bool {
	return g.isGridEmpty
}

// IsLoading reports whether a search is in flight
func (g *Grid) IsLoading() bool {
	return g.isLoading
}

// IsDataLoaded reports whether a search result has been loaded
func (g *Grid) IsDataLoaded() bool {
	return g.isDataLoaded
}

// IsCompleteEnabled reports whether completion can be submitted
func (g *Grid) IsCompleteEnabled() bool {
	return g.ReadyCount() > 0 && !g.isBackgroundTaskInProgress
}

// IsSaveEnabled reports whether saving answers can be submitted
func (g *Grid) IsSaveEnabled() bool {
	return g.isAttributeModified && !g.isBackgroundTaskInProgress
}

// BuildRequest produces the body of the save-answers (forSaveOnly) or
// complete call. Only applicable, modified attributes are sent. personID is
// the author recorded on comments.
func (g *Grid) BuildRequest(forSaveOnly bool, personID int64) *Request {
	req := &Request{
		AssessmentsIDs: []int64{},
		Attributes:     []AssessmentValues{},
	}
	if !forSaveOnly {
		req.AssessmentsIDs = g.ReadyIDs()
	}

	for _, row := range g.rows {
		values := make([]ValuePayload, 0)
		for _, attr := range row.Attributes {
			if !attr.IsApplicable || !attr.Modified {
				continue
			}
			values = append(values, buildValue(attr, personID))
		}

		if len(values) == 0 && (forSaveOnly || !g.IsReady(row.AssessmentID)) {
			continue
		}

		req.Attributes = append(req.Attributes, AssessmentValues{
			Assessment: AssessmentRef{
				ID:   row.AssessmentID,
				Slug: row.Slug,
			},
			Values: values,
		})
	}

	return req
}

// CleanUpAfterCompletion drops the completed rows and quiets the survivors
func (g *Grid) CleanUpAfterCompletion() {
	survivors := make([]*Row, 0, len(g.rows))
	for _, row := range g.rows {
		if g.IsReady(row.AssessmentID) {
			continue
		}
		row.markPersisted()
		survivors = append(survivors, row)
	}

	g.rows = survivors
	g.readyIDs = make(map[int64]struct{})
	for _, row := range g.rows {
		if row.IsReadyToComplete {
			g.readyIDs[row.AssessmentID] = struct{}{}
		}
	}
	g.isAttributeModified = false
	g.isGridEmpty = len(g.rows) == 0
}

// CleanUpAfterSaveAnswers quiets every row without removing any
func (g *Grid) CleanUpAfterSaveAnswers() {
	for _, row := range g.rows {
		row.markPersisted()
		if row.IsReadyToComplete {
			g.readyIDs[row.AssessmentID] = struct{}{}
		} else {
			delete(g.readyIDs, row.AssessmentID)
		}
	}
	g.isAttributeModified = false
}
