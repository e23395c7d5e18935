// Package participants reads the BIDS participants.tsv metadata table and
// answers age-at-scan queries keyed by subject and session.
package participants

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/fsrecon/internal/fsutil"
)

// FileName is the metadata table expected at the dataset root.
const FileName = "participants.tsv"

// Required column names.
const (
	ColSubject = "subject_id"
	ColSession = "session_id"
	ColAge     = "age_at_scan"
)

var requiredColumns = []string{ColSubject, ColSession, ColAge}

var (
	// ErrNotFound is returned when no row matches a subject/session pair.
	ErrNotFound = errors.New("no matching row")
	// ErrAmbiguous is returned when more than one row matches.
	ErrAmbiguous = errors.New("multiple matching rows")
	// ErrInvalidAge is returned when age_at_scan is not a finite decimal number.
	ErrInvalidAge = errors.New("not a finite decimal number")
)

// MissingColumnsError lists the required columns absent from the header.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s is missing required column(s) %s; rename the columns holding subject id, session id and age to %s, %s and %s",
		FileName, strings.Join(e.Missing, ", "), ColSubject, ColSession, ColAge)
}

// Row is one participants.tsv record reduced to the fields used here. Age
// is kept as text until queried so malformed values only fail the scans
// that need them.
type Row struct {
	Subject string
	Session string
	Age     string
}

// Table is an in-memory copy of participants.tsv.
type Table struct {
	Columns []string
	Rows    []Row
}

// Load reads and parses path from fsys.
func Load(fsys fsutil.FileSystem, path string) (*Table, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse reads a tab-separated table with a header line.
func Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &MissingColumnsError{Missing: requiredColumns}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		header[i] = name
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Missing: missing}
	}

	t := &Table{Columns: header}
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		t.Rows = append(t.Rows, Row{
			Subject: field(rec, index[ColSubject]),
			Session: field(rec, index[ColSession]),
			Age:     field(rec, index[ColAge]),
		})
	}

	return t, nil
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// Age returns the age_at_scan value for the exact subject/session pair, in
// the units the dataset records it in.
func (t *Table) Age(subject, session string) (float64, error) {
	var match *Row
	for i := range t.Rows {
		r := &t.Rows[i]
		if r.Subject != subject || r.Session != session {
			continue
		}
		if match != nil {
			return 0, fmt.Errorf("%s/%s: %w", subject, session, ErrAmbiguous)
		}
		match = r
	}
	if match == nil {
		return 0, fmt.Errorf("%s/%s: %w", subject, session, ErrNotFound)
	}

	age, err := parseAge(match.Age)
	if err != nil {
		return 0, fmt.Errorf("%s/%s: invalid %s %q: %w", subject, session, ColAge, match.Age, err)
	}
	return age, nil
}

// parseAge accepts plain decimal numbers only. ParseFloat also takes
// hex floats, digit separators, NaN and Inf, none of which is an age.
func parseAge(s string) (float64, error) {
	if strings.ContainsAny(s, "xX_") {
		return 0, ErrInvalidAge
	}
	age, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(age) || math.IsInf(age, 0) {
		return 0, ErrInvalidAge
	}
	return age, nil
}
