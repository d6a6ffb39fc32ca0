package occupancy

import (
	"fmt"
	"strings"
	"time"

	"github.com/JamesPrial/bed-occupancy-core/pkg/errors"
)

// dateLayouts are tried in order; layouts without a zone are read as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"20060102",
}

// Record dates are limited to four-digit UTC years so every backend stores
// and returns them unchanged.
const (
	MinYear = 0
	MaxYear = 9999
)

// CheckYear rejects dates whose UTC year falls outside MinYear..MaxYear
func CheckYear(field string, t time.Time) error {
	if year := t.UTC().Year(); year < MinYear || year > MaxYear {
		return errors.ValidationRange(field,
			fmt.Sprintf("year must be between %04d and %04d, got %d", MinYear, MaxYear, year))
	}
	return nil
}

// ParseDate parses a record date as accepted on the wire and in imports:
// RFC 3339, ISO date-time without zone, a bare YYYY-MM-DD or compact YYYYMMDD.
func ParseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.ValidationRequired(field)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Newf(errors.ErrCodeValidationFormat,
		"%s must be an RFC 3339 timestamp or a YYYY-MM-DD or YYYYMMDD date, got '%s'", field, value).
		WithDetails(map[string]string{"field": field})
}
