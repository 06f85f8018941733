// Package xlsx renders a processed claim as a spreadsheet report with one
// sheet per concern: decision, extracted documents, and validation findings.
package xlsx

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/medassist/claim-processor/internal/core/domain"
)

const (
	sheetDecision   = "Decision"
	sheetDocuments  = "Documents"
	sheetValidation = "Validation"
)

type Renderer struct{}

func New() *Renderer {
	return &Renderer{}
}

func (r *Renderer) Render(result domain.ClaimResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetDecision)
	if err := r.writeDecision(f, result); err != nil {
		return nil, err
	}
	if err := r.writeDocuments(f, result); err != nil {
		return nil, err
	}
	if err := r.writeValidation(f, result.Validation); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) writeDecision(f *excelize.File, result domain.ClaimResult) error {
	rows := [][]any{
		{"Status", string(result.Decision.Status)},
		{"Reason", result.Decision.Reason},
		{"Confidence", result.Decision.Confidence},
	}
	if result.Decision.RecommendedAmount != nil {
		rows = append(rows, []any{"Recommended Amount", *result.Decision.RecommendedAmount})
	}
	rows = append(rows,
		[]any{},
		[]any{"Total Documents", result.Summary.TotalDocuments},
		[]any{"Classified Documents", result.Summary.ClassifiedDocuments},
		[]any{"Extracted Documents", result.Summary.ExtractedDocuments},
	)
	return writeRows(f, sheetDecision, rows)
}

func (r *Renderer) writeDocuments(f *excelize.File, result domain.ClaimResult) error {
	if _, err := f.NewSheet(sheetDocuments); err != nil {
		return err
	}

	rows := [][]any{{"Document", "Type", "Confidence", "Field", "Value"}}
	for _, key := range sortedKeys(result.Documents) {
		doc := result.Documents[key]
		if len(doc.Fields) == 0 {
			rows = append(rows, []any{key, string(doc.Type), doc.Confidence, "", ""})
			continue
		}
		for _, field := range sortedKeys(doc.Fields) {
			rows = append(rows, []any{key, string(doc.Type), doc.Confidence, field, renderValue(doc.Fields[field])})
		}
	}
	return writeRows(f, sheetDocuments, rows)
}

func (r *Renderer) writeValidation(f *excelize.File, lists domain.ValidationLists) error {
	if _, err := f.NewSheet(sheetValidation); err != nil {
		return err
	}

	rows := [][]any{{"Kind", "Detail"}}
	for _, m := range lists.MissingDocuments {
		rows = append(rows, []any{"missing_document", m})
	}
	for _, d := range lists.Discrepancies {
		rows = append(rows, []any{"discrepancy", d})
	}
	for _, w := range lists.Warnings {
		rows = append(rows, []any{"warning", w})
	}
	return writeRows(f, sheetValidation, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func renderValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []domain.LineItem:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, fmt.Sprintf("%s (%d x %.2f)", item.Description, item.Quantity, item.Amount))
		}
		return strings.Join(parts, "; ")
	default:
		return fmt.Sprintf("%v", val)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
