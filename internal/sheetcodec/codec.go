package sheetcodec

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fieldday/eventsync/internal/types"
)

// DataShapeError reports a malformed row or field. The offending row is
// skipped and logged; it never aborts a pass.
type DataShapeError struct {
	Field  string
	Value  string
	Reason string
}

func (e *DataShapeError) Error() string {
	return fmt.Sprintf("malformed %s %q: %s", e.Field, e.Value, e.Reason)
}

var (
	phoneShapePattern = regexp.MustCompile(`^[+]?[\d\s().-]{7,}$`)
	nonDigitPattern   = regexp.MustCompile(`\D`)
	dateShapePattern  = regexp.MustCompile(`^\d{1,4}[-/]\d{1,2}[-/]\d{1,4}`)
)

// SanitizePhone reduces a phone value to its comparison form: digits only.
func SanitizePhone(raw string) string {
	return nonDigitPattern.ReplaceAllString(raw, "")
}

// looksLikePhone reports whether a cell value is shaped like a phone
// number: phone punctuation only, with at least 7 digits.
func looksLikePhone(raw string) bool {
	return phoneShapePattern.MatchString(raw) && len(SanitizePhone(raw)) >= 7
}

// Codec decodes and encodes sheet rows for both entity types. It logs
// per-field warnings instead of failing a row wherever a usable record
// can still be produced.
type Codec struct {
	logger *slog.Logger
}

// NewCodec returns a Codec logging through logger (slog.Default if nil).
func NewCodec(logger *slog.Logger) *Codec {
	if logger == nil {
		logger = slog.Default()
	}
	return &Codec{logger: logger}
}

// DecodeEventRow converts one intake sheet row into an EventRequest.
// rowIndex is the 1-based sheet row, recorded as the row-index anchor.
// A row with neither email nor organization is unusable and returns a
// DataShapeError; anything less is decoded best-effort with warnings.
func (c *Codec) DecodeEventRow(row []string, m *Mapper, rowIndex int) (*types.EventRequest, error) {
	e := &types.EventRequest{
		OrganizationName: m.cell(row, FieldOrganizationName),
		ContactName:      m.cell(row, FieldContactName),
		Email:            strings.ToLower(m.cell(row, FieldEmail)),
		Location:         m.cell(row, FieldLocation),
		Notes:            m.cell(row, FieldNotes),
	}
	e.SheetRowIndex = rowIndex

	if e.Email == "" && e.OrganizationName == "" {
		return nil, &DataShapeError{
			Field:  "row",
			Value:  strings.Join(row, ","),
			Reason: "no email or organization",
		}
	}

	e.Phone = c.decodePhoneField(FieldPhone, m.cell(row, FieldPhone), rowIndex)
	e.EventDate = c.decodeDateField(FieldEventDate, m.cell(row, FieldEventDate), rowIndex)
	e.SubmittedOn = c.decodeDateField(FieldSubmittedOn, m.cell(row, FieldSubmittedOn), rowIndex)

	if raw := m.cell(row, FieldExpectedAttendance); raw != "" {
		if n, err := strconv.Atoi(strings.TrimSuffix(raw, ".0")); err == nil && n >= 0 {
			e.ExpectedAttendance = n
		} else {
			c.logger.Warn("non-numeric attendance, dropped", "value", raw, "row", rowIndex)
		}
	}

	status := types.RequestStatus(strings.ToLower(m.cell(row, FieldStatus)))
	if types.ValidRequestStatus(status) {
		e.Status = status
	} else {
		if status != "" {
			c.logger.Warn("unknown status, defaulting to new", "value", string(status), "row", rowIndex)
		}
		e.Status = types.StatusNew
	}

	return e, nil
}

// DecodeProjectRow converts one project sheet row into a Project.
func (c *Codec) DecodeProjectRow(row []string, m *Mapper, rowIndex int) (*types.Project, error) {
	p := &types.Project{
		Name:   m.cell(row, FieldProjectName),
		Owner:  m.cell(row, FieldProjectOwner),
		Email:  strings.ToLower(m.cell(row, FieldEmail)),
		Status: m.cell(row, FieldStatus),
	}
	p.SheetRowIndex = rowIndex

	if p.Name == "" {
		return nil, &DataShapeError{
			Field:  FieldProjectName,
			Value:  strings.Join(row, ","),
			Reason: "project row has no name",
		}
	}

	p.TargetDate = c.decodeDateField(FieldTargetDate, m.cell(row, FieldTargetDate), rowIndex)
	p.SubTasks = ParseSubTasks(m.cell(row, FieldSubTasks))
	p.UpdatedAt = c.decodeDateField(FieldLastModified, m.cell(row, FieldLastModified), rowIndex)

	return p, nil
}

// EncodeProjectRow produces the project sheet's exact column layout.
// The order matches the fixed-position table in columns.yaml; this is
// the layout the sheet expects regardless of how its headers are
// currently spelled.
func (c *Codec) EncodeProjectRow(p *types.Project) []string {
	return []string{
		p.Name,
		p.Owner,
		p.Email,
		p.Status,
		EncodeDate(p.TargetDate),
		FormatSubTasks(p.SubTasks),
		EncodeDateTime(p.UpdatedAt),
	}
}

// decodeDateField parses a date cell, defending against phone-like
// values. A value shaped like a phone number is dropped rather than
// misread as an absurd date serial.
func (c *Codec) decodeDateField(field, raw string, rowIndex int) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if looksLikePhone(raw) && !dateShapePattern.MatchString(raw) && strings.ContainsAny(raw, "()-. +") {
		c.logger.Warn("phone-shaped value in date column, dropped",
			"field", field, "value", raw, "row", rowIndex)
		return time.Time{}
	}
	t, ok := DecodeDate(raw)
	if !ok {
		c.logger.Warn("unparseable date, dropped",
			"field", field, "value", raw, "row", rowIndex)
		return time.Time{}
	}
	return t
}

// decodePhoneField sanitizes a phone cell, defending against calendar
// dates that landed in the phone column.
func (c *Codec) decodePhoneField(field, raw string, rowIndex int) string {
	if raw == "" {
		return ""
	}
	if dateShapePattern.MatchString(raw) {
		c.logger.Warn("date-shaped value in phone column, dropped",
			"field", field, "value", raw, "row", rowIndex)
		return ""
	}
	digits := SanitizePhone(raw)
	if len(digits) < 7 {
		c.logger.Warn("implausible phone, dropped",
			"field", field, "value", raw, "row", rowIndex)
		return ""
	}
	return digits
}
