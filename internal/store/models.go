// Package store provides the persistence gateway for location samples,
// backed by the same PostgreSQL database the management application uses.
package store

import (
	"time"
)

// LocationLog is a single GPS sample reported by a field client.
// Rows are append-only: they are written once at ingestion and removed
// only by the retention sweeper.
type LocationLog struct {
	CapturedAt time.Time `gorm:"index:idx_subject_captured;index:idx_captured_at;not null"`
	RecordedAt time.Time `gorm:"autoCreateTime"`
	SubjectID  string    `gorm:"index:idx_subject_captured;not null"`
	VehicleID  string    `gorm:"index:idx_vehicle"`
	Latitude   float64   `gorm:"not null"`
	Longitude  float64   `gorm:"not null"`
	Accuracy   *float64
	ID         uint `gorm:"primaryKey"`
}

// TableName specifies the table name for the LocationLog model.
func (LocationLog) TableName() string {
	return "location_logs"
}
