// Package export writes bulk completion grids to spreadsheets
package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/assessment-bulk/internal/application/port"
	"github.com/garyjia/assessment-bulk/internal/domain/attribute"
	"github.com/garyjia/assessment-bulk/internal/domain/bulk"
)

// Sheet names of the workbook
const (
	SheetAssessments = "Assessments"
	SheetComments    = "Comments"
)

// fixed leading columns of the assessments sheet
var baseHeader = []string{"Code", "Title", "State", "Ready", "Evidence URL", "Evidence File"}

var commentHeader = []string{"Code", "Attribute", "Attribute ID", "Comment"}

// MatrixExporter renders a grid as an xlsx matrix: one row per assessment,
// one column per attribute title
type MatrixExporter struct {
	storage port.FileStorage
	logger  *zap.Logger
	now     func() time.Time
}

// NewMatrixExporter creates an exporter. storage may be nil when only
// Write is used.
func NewMatrixExporter(storage port.FileStorage, logger *zap.Logger) *MatrixExporter {
	return &MatrixExporter{
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
}

// Build creates the workbook. The caller closes it.
func (e *MatrixExporter) Build(view bulk.GridView) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SheetAssessments); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	if err := e.fillAssessments(f, view); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := e.fillComments(f, view); err != nil {
		_ = f.Close()
		return nil, err
	}

	return f, nil
}

// Write renders the grid into w
func (e *MatrixExporter) Write(w io.Writer, view bulk.GridView) error {
	f, err := e.Build(view)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Export stores the workbook of a session and returns its relative path
func (e *MatrixExporter) Export(ctx context.Context, sessionID string, view bulk.GridView) (string, error) {
	if e.storage == nil {
		return "", fmt.Errorf("export storage is not configured")
	}

	var buf bytes.Buffer
	if err := e.Write(&buf, view); err != nil {
		return "", err
	}

	name := path.Join("exports", sessionID, e.now().UTC().Format("20060102T150405")+".xlsx")
	if err := e.storage.Save(ctx, name, buf.Bytes()); err != nil {
		return "", fmt.Errorf("failed to store export: %w", err)
	}

	e.logger.Info("Grid exported",
		zap.String("session_id", sessionID),
		zap.String("path", name),
		zap.Int("rows", len(view.Rows)))
	return name, nil
}

func (e *MatrixExporter) fillAssessments(f *excelize.File, view bulk.GridView) error {
	header := make([]interface{}, 0, len(baseHeader)+len(view.Columns))
	for _, h := range baseHeader {
		header = append(header, h)
	}
	for _, col := range view.Columns {
		header = append(header, col.Title)
	}
	if err := f.SetSheetRow(SheetAssessments, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range view.Rows {
		urls, files := evidence(row)
		values := []interface{}{
			row.Slug,
			row.Title,
			row.Status,
			yesNo(row.Ready),
			strings.Join(urls, "\n"),
			strings.Join(files, "\n"),
		}
		for _, attr := range row.Attributes {
			values = append(values, CellValue(attr))
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetAssessments, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %s: %w", row.Slug, err)
		}
	}

	if err := f.SetPanes(SheetAssessments, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		e.logger.Warn("Failed to freeze header row", zap.Error(err))
	}
	return nil
}

// fillComments adds the comments sheet when any answer carries a comment
func (e *MatrixExporter) fillComments(f *excelize.File, view bulk.GridView) error {
	var rows [][]interface{}
	for _, row := range view.Rows {
		for _, attr := range row.Attributes {
			if attr.Attachments == nil || attr.Attachments.Comment == nil {
				continue
			}
			rows = append(rows, []interface{}{
				row.Slug,
				attr.Title,
				attr.ID,
				*attr.Attachments.Comment,
			})
		}
	}
	if len(rows) == 0 {
		return nil
	}

	if _, err := f.NewSheet(SheetComments); err != nil {
		return fmt.Errorf("failed to add comments sheet: %w", err)
	}

	header := make([]interface{}, 0, len(commentHeader))
	for _, h := range commentHeader {
		header = append(header, h)
	}
	if err := f.SetSheetRow(SheetComments, "A1", &header); err != nil {
		return fmt.Errorf("failed to write comments header: %w", err)
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetComments, cell, &rows[i]); err != nil {
			return fmt.Errorf("failed to write comment row: %w", err)
		}
	}
	return nil
}

// CellValue renders one attribute for tabular output: checkbox as yes/no,
// person as the person id and everything else as text. Attributes the
// assessment does not have are blank.
func CellValue(attr bulk.AttributeView) string {
	if !attr.Applicable {
		return ""
	}
	switch v := attr.Value.(type) {
	case bool:
		return yesNo(v)
	case []attribute.Person:
		return attribute.FormatPersonID(attribute.Value{People: v})
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// evidence collects the urls and file titles entered across a row
func evidence(row bulk.RowView) (urls, files []string) {
	for _, attr := range row.Attributes {
		if attr.Attachments == nil {
			continue
		}
		urls = append(urls, attr.Attachments.URLs...)
		for _, file := range attr.Attachments.Files {
			files = append(files, file.Title)
		}
	}
	return urls, files
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
