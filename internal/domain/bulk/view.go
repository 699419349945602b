package bulk

import "github.com/garyjia/assessment-bulk/internal/domain/attribute"

// GridView is a read-only copy of the grid for API and CLI output
type GridView struct {
	Columns []ColumnView `json:"columns"`
	Rows    []RowView    `json:"rows"`

	ReadyIDs                   []int64 `json:"ready_ids"`
	ReadyCount                 int     `json:"ready_count"`
	IsAttributeModified        bool    `json:"is_attribute_modified"`
	IsBackgroundTaskInProgress bool    `json:"is_background_task_in_progress"`
	IsGridEmpty                bool    `json:"is_grid_empty"`
	IsLoading                  bool    `json:"is_loading"`
	IsDataLoaded               bool    `json:"is_data_loaded"`
	IsCompleteEnabled          bool    `json:"is_complete_enabled"`
	IsSaveEnabled              bool    `json:"is_save_enabled"`
}

// ColumnView describes one attribute column
type ColumnView struct {
	Title      string         `json:"title"`
	Type       attribute.Type `json:"type"`
	ServerType string         `json:"server_type"`
	Mandatory  bool           `json:"mandatory"`
}

// RowView is one assessment row
type RowView struct {
	AssessmentID int64           `json:"assessment_id"`
	Slug         string          `json:"slug"`
	Title        string          `json:"title"`
	Status       string          `json:"status"`
	Type         string          `json:"type"`
	URLsCount    int             `json:"urls_count"`
	FilesCount   int             `json:"files_count"`
	Ready        bool            `json:"ready"`
	Attributes   []AttributeView `json:"attributes"`
}

// AttributeView is one cell of the grid
type AttributeView struct {
	ID           int64                  `json:"id"`
	Title        string                 `json:"title"`
	Type         attribute.Type         `json:"type"`
	Applicable   bool                   `json:"applicable"`
	Modified     bool                   `json:"modified"`
	Value        interface{}            `json:"value"`
	Options      []string               `json:"options,omitempty"`
	RequiredInfo attribute.RequiredInfo `json:"required_info"`
	Attachments  *attribute.Attachments `json:"attachments"`
	Errors       attribute.ErrorsMap    `json:"errors"`
	Validation   attribute.Validation   `json:"validation"`
}

// View copies the grid state
func (g *Grid) View() GridView {
	view := GridView{
		Columns:                    make([]ColumnView, 0, len(g.columns)),
		Rows:                       make([]RowView, 0, len(g.rows)),
		ReadyIDs:                   g.ReadyIDs(),
		ReadyCount:                 g.ReadyCount(),
		IsAttributeModified:        g.isAttributeModified,
		IsBackgroundTaskInProgress: g.isBackgroundTaskInProgress,
		IsGridEmpty:                g.isGridEmpty,
		IsLoading:                  g.isLoading,
		IsDataLoaded:               g.isDataLoaded,
		IsCompleteEnabled:          g.IsCompleteEnabled(),
		IsSaveEnabled:              g.IsSaveEnabled(),
	}

	for _, col := range g.columns {
		view.Columns = append(view.Columns, ColumnView{
			Title:      col.Title,
			Type:       col.Type,
			ServerType: col.ServerType,
			Mandatory:  col.Mandatory,
		})
	}

	for _, row := range g.rows {
		rv := RowView{
			AssessmentID: row.AssessmentID,
			Slug:         row.Slug,
			Title:        row.Title,
			Status:       row.Status,
			Type:         row.Type,
			URLsCount:    row.URLsCount,
			FilesCount:   row.FilesCount,
			Ready:        g.IsReady(row.AssessmentID),
			Attributes:   make([]AttributeView, 0, len(row.Attributes)),
		}
		for _, attr := range row.Attributes {
			rv.Attributes = append(rv.Attributes, viewAttribute(attr))
		}
		view.Rows = append(view.Rows, rv)
	}

	return view
}

func viewAttribute(attr *attribute.Instance) AttributeView {
	av := AttributeView{
		ID:           attr.ID,
		Title:        attr.Title,
		Type:         attr.Type,
		Applicable:   attr.IsApplicable,
		Modified:     attr.Modified,
		RequiredInfo: attr.RequiredInfo(),
		Errors:       attr.Errors,
		Validation:   attr.Validation,
	}
	if attr.IsApplicable {
		av.Value = attribute.Display(attr.Type, attr.Value)
	}
	if attr.Options.Len() > 0 {
		av.Options = append([]string{}, attr.Options.Labels...)
	}
	if attr.Attachments != nil {
		a := *attr.Attachments
		a.URLs = append([]string{}, a.URLs...)
		a.Files = append([]attribute.File{}, a.Files...)
		if a.Comment != nil {
			c := *a.Comment
			a.Comment = &c
		}
		av.Attachments = &a
	}
	return av
}
