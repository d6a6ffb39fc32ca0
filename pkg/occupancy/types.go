// Package occupancy defines the ward bed-occupancy record shared by every
// storage backend and transport.
package occupancy

import (
	"strings"
	"time"

	"github.com/JamesPrial/bed-occupancy-core/pkg/errors"
)

// DatePrecision is the resolution every backend persists RecordDate at.
const DatePrecision = time.Millisecond

// WardType classifies the ward a record belongs to
type WardType string

const (
	WardTypeICU        WardType = "icu"
	WardTypeEmergency  WardType = "emergency"
	WardTypeGeneral    WardType = "general"
	WardTypePediatric  WardType = "pediatric"
	WardTypeMaternity  WardType = "maternity"
	WardTypeSurgical   WardType = "surgical"
	WardTypeCardiology WardType = "cardiology"
	WardTypeNeurology  WardType = "neurology"
)

var knownWardTypes = map[WardType]bool{
	WardTypeICU:        true,
	WardTypeEmergency:  true,
	WardTypeGeneral:    true,
	WardTypePediatric:  true,
	WardTypeMaternity:  true,
	WardTypeSurgical:   true,
	WardTypeCardiology: true,
	WardTypeNeurology:  true,
}

// Valid reports whether w is empty or one of the known ward types
func (w WardType) Valid() bool {
	return w == "" || knownWardTypes[w]
}

// Record is a point-in-time snapshot of total vs. occupied beds for one ward.
// Records are append-only: once stored they are never modified.
type Record struct {
	ID           string    `json:"id"`
	HospitalID   string    `json:"hospital_id"`
	WardID       string    `json:"ward_id"`
	WardType     WardType  `json:"ward_type,omitempty"`
	BedCount     int       `json:"bed_count"`
	OccupiedBeds int       `json:"occupied_beds"`
	RecordDate   time.Time `json:"record_date"`
}

// RecordInput is what callers submit to create a Record
type RecordInput struct {
	HospitalID   string    `json:"hospital_id" mapstructure:"hospital_id"`
	WardID       string    `json:"ward_id" mapstructure:"ward_id"`
	WardType     WardType  `json:"ward_type,omitempty" mapstructure:"ward_type"`
	BedCount     int       `json:"bed_count" mapstructure:"bed_count"`
	OccupiedBeds int       `json:"occupied_beds" mapstructure:"occupied_beds"`
	RecordDate   time.Time `json:"record_date" mapstructure:"record_date"`
}

// Normalize trims identifiers, lower-cases the ward type and brings the
// record date to UTC at DatePrecision.
func (in RecordInput) Normalize() RecordInput {
	in.HospitalID = strings.TrimSpace(in.HospitalID)
	in.WardID = strings.TrimSpace(in.WardID)
	in.WardType = WardType(strings.ToLower(strings.TrimSpace(string(in.WardType))))
	in.RecordDate = NormalizeDate(in.RecordDate)
	return in
}

// Validate checks the data-model invariants. It returns a VALIDATION_* error
// from pkg/errors for the first violation found.
func (in RecordInput) Validate() error {
	if strings.TrimSpace(in.HospitalID) == "" {
		return errors.ValidationRequired("hospital_id")
	}
	if strings.TrimSpace(in.WardID) == "" {
		return errors.ValidationRequired("ward_id")
	}
	if in.BedCount < 0 {
		return errors.ValidationRange("bed_count", "must be non-negative")
	}
	if in.OccupiedBeds < 0 {
		return errors.ValidationRange("occupied_beds", "must be non-negative")
	}
	if in.OccupiedBeds > in.BedCount {
		return errors.Newf(errors.ErrCodeValidationConstraint,
			"occupied_beds (%d) cannot exceed bed_count (%d)", in.OccupiedBeds, in.BedCount).
			WithDetails(map[string]int{"bed_count": in.BedCount, "occupied_beds": in.OccupiedBeds})
	}
	if in.RecordDate.IsZero() {
		return errors.ValidationRequired("record_date")
	}
	if err := CheckYear("record_date", in.RecordDate); err != nil {
		return err
	}
	if !WardType(strings.ToLower(strings.TrimSpace(string(in.WardType)))).Valid() {
		return errors.ValidationInvalid("ward_type", "unknown ward type '"+string(in.WardType)+"'")
	}
	return nil
}

// Prepare validates and normalizes in one step; backends call it before any I/O.
func (in RecordInput) Prepare() (RecordInput, error) {
	if err := in.Validate(); err != nil {
		return RecordInput{}, err
	}
	return in.Normalize(), nil
}

// ToRecord builds the stored form of the input under the given identity
func (in RecordInput) ToRecord(id string) Record {
	return Record{
		ID:           id,
		HospitalID:   in.HospitalID,
		WardID:       in.WardID,
		WardType:     in.WardType,
		BedCount:     in.BedCount,
		OccupiedBeds: in.OccupiedBeds,
		RecordDate:   in.RecordDate,
	}
}

// Query selects the occupancy log of one ward. Start and End are inclusive
// and optional.
type Query struct {
	HospitalID string
	WardID     string
	Start      *time.Time
	End        *time.Time
}

// Prepare validates the required identifiers and normalizes the bounds
func (q Query) Prepare() (Query, error) {
	q.HospitalID = strings.TrimSpace(q.HospitalID)
	q.WardID = strings.TrimSpace(q.WardID)
	if q.HospitalID == "" {
		return Query{}, errors.ValidationRequired("hospital_id")
	}
	if q.WardID == "" {
		return Query{}, errors.ValidationRequired("ward_id")
	}
	if q.Start != nil {
		if err := CheckYear("start_date", *q.Start); err != nil {
			return Query{}, err
		}
		start := NormalizeDate(*q.Start)
		q.Start = &start
	}
	if q.End != nil {
		if err := CheckYear("end_date", *q.End); err != nil {
			return Query{}, err
		}
		end := NormalizeDate(*q.End)
		q.End = &end
	}
	return q, nil
}

// Matches reports whether r belongs to the query's ward and date range
func (q Query) Matches(r Record) bool {
	if r.HospitalID != q.HospitalID || r.WardID != q.WardID {
		return false
	}
	if q.Start != nil && r.RecordDate.Before(*q.Start) {
		return false
	}
	if q.End != nil && r.RecordDate.After(*q.End) {
		return false
	}
	return true
}

// Statistics summarises the stored records
type Statistics struct {
	TotalRecords    int64   `json:"total_records"`
	UniqueHospitals int64   `json:"unique_hospitals"`
	UniqueWards     int64   `json:"unique_wards"`
	AvgOccupiedBeds float64 `json:"avg_occupied_beds"`
	AvgTotalBeds    float64 `json:"avg_total_beds"`
}

// HealthStatus is the result of a backend health check
type HealthStatus struct {
	Backend     string     `json:"backend"`
	Status      string     `json:"status"`
	Reachable   bool       `json:"reachable"`
	RecordCount int64      `json:"record_count"`
	Statistics  Statistics `json:"statistics"`
	CheckedAt   time.Time  `json:"checked_at"`
}

// StatusConnected is reported by a reachable backend
const StatusConnected = "connected"

// NormalizeDate converts t to UTC at DatePrecision
func NormalizeDate(t time.Time) time.Time {
	return t.UTC().Truncate(DatePrecision)
}
