// Package sheetcodec converts between typed domain records and the flat
// string rows the spreadsheet stores. It owns header-to-column mapping,
// date parsing (including spreadsheet serials), phone sanitization, and
// the sub-task cell grammar.
package sheetcodec

import (
	_ "embed"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed columns.yaml
var columnsYAML []byte

// Logical field names for the intake (event request) sheet.
const (
	FieldOrganizationName   = "organization_name"
	FieldContactName        = "contact_name"
	FieldEmail              = "email"
	FieldPhone              = "phone"
	FieldEventDate          = "event_date"
	FieldSubmittedOn        = "submitted_on"
	FieldLocation           = "location"
	FieldExpectedAttendance = "expected_attendance"
	FieldStatus             = "status"
	FieldNotes              = "notes"
)

// Logical field names for the project sheet.
const (
	FieldProjectName  = "name"
	FieldProjectOwner = "owner"
	FieldTargetDate   = "target_date"
	FieldSubTasks     = "sub_tasks"
	FieldLastModified = "last_modified"
)

// MinResolvedFields is the confidence threshold for header mapping.
// When fewer logical fields than this resolve against the header row,
// the mapper abandons header matching entirely and uses the fixed
// positions instead — a partially-matched header is more dangerous than
// no match, because it silently shuffles fields.
const MinResolvedFields = 5

// FieldSpec describes one logical field: its accepted header spellings
// and its fixed fallback position (0-based).
type FieldSpec struct {
	Field    string   `yaml:"field"`
	Position int      `yaml:"position"`
	Synonyms []string `yaml:"synonyms"`
}

type columnTables struct {
	Events   []FieldSpec `yaml:"events"`
	Projects []FieldSpec `yaml:"projects"`
}

var tables columnTables

func init() {
	if err := yaml.Unmarshal(columnsYAML, &tables); err != nil {
		panic(fmt.Sprintf("sheetcodec: embedded columns.yaml invalid: %v", err))
	}
}

// EventFields returns the field specs for the intake sheet.
func EventFields() []FieldSpec { return tables.Events }

// ProjectFields returns the field specs for the project sheet.
func ProjectFields() []FieldSpec { return tables.Projects }

// Mapper resolves logical field names to column indexes for one sheet,
// built once per pass from the sheet's header row.
type Mapper struct {
	cols     map[string]int
	fallback bool
}

// NewMapper builds a column mapping from the header row. Header cells are
// matched case-insensitively against each field's synonym list. If fewer
// than MinResolvedFields fields resolve, the fixed-position table is used
// and a single warning is logged. NewMapper never fails: unmapped fields
// simply report !ok from Col.
func NewMapper(header []string, specs []FieldSpec, logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}

	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = normalizeHeader(h)
	}

	cols := make(map[string]int, len(specs))
	for _, spec := range specs {
		if idx, ok := matchHeader(normalized, spec.Synonyms); ok {
			cols[spec.Field] = idx
		}
	}

	if len(cols) >= MinResolvedFields {
		if len(cols) < len(specs) {
			var missing []string
			for _, spec := range specs {
				if _, ok := cols[spec.Field]; !ok {
					missing = append(missing, spec.Field)
				}
			}
			logger.Warn("some header fields did not resolve, decoding them as empty",
				"fields", strings.Join(missing, ","))
		}
		return &Mapper{cols: cols}
	}

	logger.Warn("header mapping below confidence threshold, using fixed positions",
		"resolved", len(cols),
		"threshold", MinResolvedFields,
		"header_cells", len(header))

	cols = make(map[string]int, len(specs))
	for _, spec := range specs {
		cols[spec.Field] = spec.Position
	}
	return &Mapper{cols: cols, fallback: true}
}

// Col returns the column index for a logical field.
func (m *Mapper) Col(field string) (int, bool) {
	idx, ok := m.cols[field]
	return idx, ok
}

// UsedFallback reports whether the fixed-position table was used.
func (m *Mapper) UsedFallback() bool { return m.fallback }

// cell returns the trimmed value of field in row, or "" if the field is
// unmapped or the row is short.
func (m *Mapper) cell(row []string, field string) string {
	idx, ok := m.cols[field]
	if !ok || idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// matchHeader finds the first synonym present in the normalized header.
// Synonyms are tried in order, so more specific spellings should be
// listed first in columns.yaml.
func matchHeader(normalized []string, synonyms []string) (int, bool) {
	for _, syn := range synonyms {
		want := normalizeHeader(syn)
		for i, h := range normalized {
			if h == want {
				return i, true
			}
		}
	}
	return 0, false
}

// normalizeHeader lowercases, trims, collapses internal whitespace, and
// strips decorations ("*", ":") that form builders like to append.
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.TrimRight(h, "*:? ")
	return strings.Join(strings.Fields(h), " ")
}
