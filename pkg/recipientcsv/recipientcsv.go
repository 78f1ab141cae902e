// Package recipientcsv reads and writes the recipient sheet used by the batch sender.
//
// The format is naive: one row per line, fields split on comma, no quoting or escaping.
// A literal comma inside a field is not supported.
package recipientcsv

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// Header is the first line of every exported sheet, and is skipped on import.
var Header = []string{"Email", "Name", "PAN", "PAN1"}

// DefaultFileName is the download name used on export.
const DefaultFileName = "email_data.csv"

type Row struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	PAN   string `json:"pan"`
	PAN1  string `json:"pan1"`
}

// IsEmpty reports whether every field is blank.
func (r Row) IsEmpty() bool {
	return r.Email == "" && r.Name == "" && r.PAN == "" && r.PAN1 == ""
}

// Decode reads sheet content. The first line is always treated as header, even if it doesn't look like one.
// Missing columns become empty string, extra columns are ignored, all-empty rows are dropped.
func Decode(r io.Reader) (rows []Row, err error) {
	rows = make([]Row, 0)

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if lineNum == 1 {
			continue
		}

		values := strings.Split(scanner.Text(), ",")
		row := Row{
			Email: field(values, 0),
			Name:  field(values, 1),
			PAN:   field(values, 2),
			PAN1:  field(values, 3),
		}

		if row.IsEmpty() {
			continue
		}

		rows = append(rows, row)
	}

	if err = scanner.Err(); err != nil {
		err = fmt.Errorf("cannot read csv line %d: %w", lineNum+1, err)
		return
	}

	return
}

// Encode writes header then rows, joined with newline and no trailing newline.
func Encode(w io.Writer, rows []Row) error {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, strings.Join(Header, ","))
	for _, row := range rows {
		lines = append(lines, strings.Join([]string{row.Email, row.Name, row.PAN, row.PAN1}, ","))
	}

	_, err := io.WriteString(w, strings.Join(lines, "\n"))
	if err != nil {
		return fmt.Errorf("cannot write csv: %w", err)
	}

	return nil
}

// EncodeBytes is Encode into memory.
func EncodeBytes(rows []Row) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := Encode(buf, rows); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func field(values []string, i int) string {
	if i >= len(values) {
		return ""
	}

	// TrimSpace also drop the \r left by CRLF line ending
	return strings.TrimSpace(values[i])
}
