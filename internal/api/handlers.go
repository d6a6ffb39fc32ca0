package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/JamesPrial/bed-occupancy-core/pkg/errors"
	"github.com/JamesPrial/bed-occupancy-core/pkg/occupancy"
)

const maxBodyBytes = 1 << 20

// createRequest is the wire form of a new record. Dates are accepted in any
// layout occupancy.ParseDate understands.
type createRequest struct {
	HospitalID   string `json:"hospital_id"`
	WardID       string `json:"ward_id"`
	WardType     string `json:"ward_type"`
	BedCount     *int   `json:"bed_count"`
	OccupiedBeds int    `json:"occupied_beds"`
	RecordDate   string `json:"record_date"`
}

func (req createRequest) toInput() (occupancy.RecordInput, error) {
	if req.BedCount == nil {
		return occupancy.RecordInput{}, errors.ValidationRequired("bed_count")
	}
	date, err := occupancy.ParseDate("record_date", req.RecordDate)
	if err != nil {
		return occupancy.RecordInput{}, err
	}
	return occupancy.RecordInput{
		HospitalID:   req.HospitalID,
		WardID:       req.WardID,
		WardType:     occupancy.WardType(req.WardType),
		BedCount:     *req.BedCount,
		OccupiedBeds: req.OccupiedBeds,
		RecordDate:   date,
	}, nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeData(w, r, http.StatusOK, "Hospital bed occupancy service", map[string]string{
		"version":       s.version,
		"database_type": s.databaseType,
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(&req); err != nil {
		s.writeError(w, r, errors.Wrap(err, errors.ErrCodeTransportInvalidJSON, "request body must be a JSON object"))
		return
	}

	in, err := req.toInput()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	record, err := s.backend.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.InfoContext(r.Context(), "Occupancy record created",
		slog.String("id", record.ID),
		slog.String("hospital_id", record.HospitalID),
		slog.String("ward_id", record.WardID),
	)
	s.writeData(w, r, http.StatusCreated, "Occupancy record created", record)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := occupancy.Query{
		HospitalID: params.Get("hospital_id"),
		WardID:     params.Get("ward_id"),
	}

	var err error
	if q.Start, err = optionalDate("start_date", params.Get("start_date")); err != nil {
		s.writeError(w, r, err)
		return
	}
	if q.End, err = optionalDate("end_date", params.Get("end_date")); err != nil {
		s.writeError(w, r, err)
		return
	}

	records, err := s.backend.Query(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeList(w, r, fmt.Sprintf("Retrieved %d records", len(records)), records, len(records))
}

func optionalDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := occupancy.ParseDate(field, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Server) handleListAll(w http.ResponseWriter, r *http.Request) {
	records, err := s.backend.ListAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeList(w, r, fmt.Sprintf("Retrieved %d records", len(records)), records, len(records))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	record, err := s.backend.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeData(w, r, http.StatusOK, "", record)
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// dbHealth is the payload of the database health routes
type dbHealth struct {
	DatabaseType string                  `json:"database_type"`
	Health       *occupancy.HealthStatus `json:"health"`
}

func (s *Server) handleDBHealth(w http.ResponseWriter, r *http.Request) {
	status, err := s.backend.Health(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeData(w, r, http.StatusOK, "Database is reachable", dbHealth{
		DatabaseType: s.databaseType,
		Health:       status,
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	status, err := s.backend.Health(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeData(w, r, http.StatusOK, "", map[string]interface{}{
		"version":        s.version,
		"database_type":  s.databaseType,
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
		"health":         status,
	})
}
