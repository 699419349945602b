package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/garyjia/assessment-bulk/internal/application/port"
	"github.com/garyjia/assessment-bulk/internal/domain/bulk"
	"github.com/garyjia/assessment-bulk/internal/domain/entity"
	"github.com/garyjia/assessment-bulk/internal/export"
)

// renderGrid prints the grid with one column per attribute. Mandatory
// columns are marked with an asterisk.
func renderGrid(w io.Writer, view bulk.GridView) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)

	header := table.Row{"ID", "Code", "Title", "State", "Ready"}
	for _, col := range view.Columns {
		title := col.Title
		if col.Mandatory {
			title += " *"
		}
		header = append(header, title)
	}
	tw.AppendHeader(header)

	for _, row := range view.Rows {
		ready := ""
		if row.Ready {
			ready = "yes"
		}
		r := table.Row{row.AssessmentID, row.Slug, row.Title, row.Status, ready}
		for _, attr := range row.Attributes {
			r = append(r, export.CellValue(attr))
		}
		tw.AppendRow(r)
	}
	tw.AppendFooter(table.Row{"", "", "", "Ready", fmt.Sprintf("%d/%d", view.ReadyCount, len(view.Rows))})
	tw.Render()
}

func renderOperations(w io.Writer, ops []*entity.Operation) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Session", "Kind", "Task", "Status", "Rows", "Created", "Finished", "Message"})
	for _, op := range ops {
		finished := ""
		if op.FinishedAt != nil {
			finished = op.FinishedAt.Format(time.RFC3339)
		}
		tw.AppendRow(table.Row{
			op.ID,
			op.SessionID,
			op.Kind,
			op.TaskID,
			op.Status,
			op.RowCount,
			op.CreatedAt.Format(time.RFC3339),
			finished,
			op.Message,
		})
	}
	tw.Render()
}

// newStdinConfirmer asks on out and reads a yes/no answer from in. With
// assumeYes every question is accepted without asking.
func newStdinConfirmer(in io.Reader, out io.Writer, assumeYes bool) port.Confirmer {
	reader := bufio.NewReader(in)
	return port.ConfirmFunc(func(_ context.Context, message string) bool {
		if assumeYes {
			return true
		}
		fmt.Fprintf(out, "%s [y/N] ", message)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		}
		return false
	})
}

type answer struct {
	assessmentID int64
	index        int
	value        json.RawMessage
}

// parseAnswers reads <assessment-id>:<attribute-index>=<json value> pairs
func parseAnswers(raw []string) ([]answer, error) {
	out := make([]answer, 0, len(raw))
	for _, r := range raw {
		target, value, ok := strings.Cut(r, "=")
		if !ok {
			return nil, fmt.Errorf("answer %q: expected <assessment-id>:<attribute-index>=<value>", r)
		}
		idPart, indexPart, ok := strings.Cut(target, ":")
		if !ok {
			return nil, fmt.Errorf("answer %q: expected <assessment-id>:<attribute-index>", r)
		}
		id, err := strconv.ParseInt(idPart, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("answer %q: invalid assessment id", r)
		}
		index, err := strconv.Atoi(indexPart)
		if err != nil {
			return nil, fmt.Errorf("answer %q: invalid attribute index", r)
		}
		if !json.Valid([]byte(value)) {
			return nil, fmt.Errorf("answer %q: value is not valid JSON", r)
		}
		out = append(out, answer{assessmentID: id, index: index, value: json.RawMessage(value)})
	}
	return out, nil
}
