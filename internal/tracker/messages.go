// Package tracker implements the real-time location tracking service: the
// per-connection session manager, the active-presence registry, the
// broadcaster and the retention sweeper.
package tracker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/SamuelRM25/codispro/internal/store"
)

// Message kinds exchanged over the socket. Inbound kinds reuse the event
// names the dashboard map already speaks.
const (
	KindLocationUpdate    = "location:update"
	KindLocationHistory   = "location:history"
	KindLocationActive    = "location:active"
	KindLocationBroadcast = "location:broadcast"
	KindError             = "error"
)

// Envelope is the wire frame for every message in both directions.
type Envelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ValidationError reports a malformed or missing field in an inbound message.
// It is returned to the sending connection only; no state is mutated.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// UpdateRequest is the payload of a location:update message. Latitude and
// longitude are pointers so that absent fields can be told apart from zero
// coordinates.
type UpdateRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	SubjectID string   `json:"subjectId"`
	VehicleID string   `json:"vehicleId,omitempty"`
}

// Validate checks required fields and coordinate ranges.
func (r *UpdateRequest) Validate() error {
	if r.SubjectID == "" {
		return &ValidationError{Field: "subjectId", Reason: "must not be empty"}
	}
	if r.Latitude == nil {
		return &ValidationError{Field: "latitude", Reason: "is required"}
	}
	if r.Longitude == nil {
		return &ValidationError{Field: "longitude", Reason: "is required"}
	}
	if lat := *r.Latitude; lat < -90 || lat > 90 {
		return &ValidationError{Field: "latitude", Reason: "must be between -90 and 90"}
	}
	if lon := *r.Longitude; lon < -180 || lon > 180 {
		return &ValidationError{Field: "longitude", Reason: "must be between -180 and 180"}
	}
	return nil
}

// HistoryRequest is the payload of a location:history message. All fields
// are optional; Limit defaults and caps are applied by the store filter.
type HistoryRequest struct {
	SubjectID string `json:"subjectId,omitempty"`
	VehicleID string `json:"vehicleId,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// BroadcastEvent is the payload of a location:broadcast message pushed to
// every open connection after an accepted update.
type BroadcastEvent struct {
	CapturedAt time.Time `json:"capturedAt"`
	SubjectID  string    `json:"subjectId"`
	VehicleID  string    `json:"vehicleId,omitempty"`
	Accuracy   *float64  `json:"accuracy,omitempty"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
}

// HistorySample is a single stored sample in a location:history response.
type HistorySample struct {
	CapturedAt time.Time `json:"capturedAt"`
	RecordedAt time.Time `json:"recordedAt"`
	SubjectID  string    `json:"subjectId"`
	VehicleID  string    `json:"vehicleId,omitempty"`
	Accuracy   *float64  `json:"accuracy,omitempty"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
}

// ErrorMessage is the payload of an error message sent back to the
// originating connection.
type ErrorMessage struct {
	Message string `json:"message"`
}

// historySamples converts stored rows to their wire representation.
func historySamples(rows []store.LocationLog) []HistorySample {
	samples := make([]HistorySample, len(rows))
	for i, row := range rows {
		samples[i] = HistorySample{
			SubjectID:  row.SubjectID,
			VehicleID:  row.VehicleID,
			Latitude:   row.Latitude,
			Longitude:  row.Longitude,
			Accuracy:   row.Accuracy,
			CapturedAt: row.CapturedAt,
			RecordedAt: row.RecordedAt,
		}
	}
	return samples
}

// encodeEnvelope marshals a payload into a complete wire frame.
func encodeEnvelope(kind string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}
	return json.Marshal(Envelope{Kind: kind, Data: data})
}
