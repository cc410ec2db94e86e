package importer

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Record is one permit row as it appears in an export, before parsing.
type Record struct {
	ID           string `csv:"id" json:"id"`
	Latitude     string `csv:"latitude" json:"latitude"`
	Longitude    string `csv:"longitude" json:"longitude"`
	Address      string `csv:"address" json:"address"`
	City         string `csv:"city" json:"city"`
	State        string `csv:"state" json:"state"`
	Zip          string `csv:"zip" json:"zip"`
	BuilderName  string `csv:"builder_name" json:"builder_name"`
	BuilderPhone string `csv:"builder_phone" json:"builder_phone"`
	PermitType   string `csv:"permit_type" json:"permit_type"`
	Status       string `csv:"status" json:"status"`
	Notes        string `csv:"notes" json:"notes"`
	CreatedAt    string `csv:"created_at" json:"created_at"`
}

// headerAliases maps common export column names onto Record columns.
var headerAliases = map[string]string{
	"permit_id":      "id",
	"permit_number":  "id",
	"lat":            "latitude",
	"lng":            "longitude",
	"lon":            "longitude",
	"long":           "longitude",
	"street":         "address",
	"street_address": "address",
	"zip_code":       "zip",
	"zipcode":        "zip",
	"postal_code":    "zip",
	"builder":        "builder_name",
	"contractor":     "builder_name",
	"phone":          "builder_phone",
	"type":           "permit_type",
	"filed":          "created_at",
	"filed_at":       "created_at",
	"issued_date":    "created_at",
	"date":           "created_at",
}

// normalizeHeader lowercases a column name, joins words with "_" and
// resolves aliases.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.Join(strings.FieldsFunc(h, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '.'
	}), "_"))
	if alias, ok := headerAliases[h]; ok {
		return alias
	}
	return h
}

// rowReader adapts in-memory rows to csvutil.Reader.
type rowReader struct {
	rows [][]string
	next int
}

func (r *rowReader) Read() ([]string, error) {
	for r.next < len(r.rows) {
		row := r.rows[r.next]
		r.next++
		if !blankRow(row) {
			return row, nil
		}
	}
	return nil, io.EOF
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// decodeRows decodes rows whose first row is the header.
func decodeRows(r csvutil.Reader) ([]Record, error) {
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "importer: read header")
	}
	for i, h := range header {
		header[i] = normalizeHeader(h)
	}

	dec, err := csvutil.NewDecoder(r, header...)
	if err != nil {
		return nil, eris.Wrap(err, "importer: build decoder")
	}

	records := []Record{}
	for {
		var rec Record
		if err := dec.Decode(&rec); errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, eris.Wrapf(err, "importer: decode row %d", len(records)+2)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadCSV decodes permit rows from CSV with a header row.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "importer: read csv")
	}
	return decodeRows(&rowReader{rows: padRows(rows)})
}

// ReadXLSX decodes permit rows from the first sheet of a workbook.
func ReadXLSX(path string) ([]Record, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "importer: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("importer: %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return decodeRows(&rowReader{rows: padRows(rows)})
}

// jsonRecord accepts coordinates as numbers or strings.
type jsonRecord struct {
	Record
	Latitude  json.Number `json:"latitude"`
	Longitude json.Number `json:"longitude"`
}

// ReadJSON decodes a JSON array of permit objects.
func ReadJSON(r io.Reader) ([]Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw []jsonRecord
	if err := dec.Decode(&raw); err != nil {
		return nil, eris.Wrap(err, "importer: decode json")
	}
	records := make([]Record, len(raw))
	for i, jr := range raw {
		rec := jr.Record
		rec.Latitude = jr.Latitude.String()
		rec.Longitude = jr.Longitude.String()
		records[i] = rec
	}
	return records, nil
}

// ReadFile picks a reader from the file extension.
func ReadFile(path string) ([]Record, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".xlsx" {
		return ReadXLSX(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "importer: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	switch ext {
	case ".csv":
		return ReadCSV(f)
	case ".json":
		return ReadJSON(f)
	default:
		return nil, eris.Errorf("importer: unsupported file type %q (want .csv, .xlsx or .json)", ext)
	}
}

// padRows widens short rows to the header width so csvutil sees a uniform table.
func padRows(rows [][]string) [][]string {
	if len(rows) == 0 {
		return rows
	}
	width := len(rows[0])
	for i, row := range rows {
		if len(row) < width {
			rows[i] = append(row, make([]string, width-len(row))...)
		} else if len(row) > width {
			rows[i] = row[:width]
		}
	}
	return rows
}
