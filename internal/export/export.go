package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/onurcolak/sms-dispatch-service/internal/domain"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"

	sheetName = "messages"
)

var header = []string{"body", "recipient", "status", "gateway", "created_at"}

var newlines = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

func (f Format) Filename() string {
	return "messages." + string(f)
}

// record flattens a row so that each message stays on one line.
func record(r domain.ExportRow) []string {
	return []string{
		newlines.Replace(r.Body),
		r.Recipient,
		r.Status.String(),
		newlines.Replace(r.GatewayName),
		r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// WriteCSV writes a header line and one record per row. Fields holding a
// comma or a quote are quoted by the csv writer.
func WriteCSV(w io.Writer, rows []domain.ExportRow) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(record(r)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// XLSX builds a single-sheet workbook with the same columns as the CSV.
func XLSX(rows []domain.ExportRow) ([]byte, error) {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	if err := xl.SetSheetName(xl.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := xl.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		rec := record(r)
		if err := xl.SetSheetRow(sheetName, cell, &rec); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func Render(format Format, rows []domain.ExportRow) ([]byte, error) {
	switch format {
	case FormatXLSX:
		return XLSX(rows)
	default:
		var buf bytes.Buffer
		if err := WriteCSV(&buf, rows); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
}
