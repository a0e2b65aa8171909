// Package simulator fabricates field clients that stream synthetic GPS
// updates to a running tracker, for load testing and map demos.
package simulator

import (
	"math/rand"

	"github.com/brianvoe/gofakeit/v7"
)

// Field crews report from around the main office; simulated clients start
// nearby and wander from there.
const (
	baseLatitude  = 14.6349
	baseLongitude = -90.5069

	// Degrees of initial scatter around the base position.
	startSpread = 0.05

	// Maximum degrees moved per step, roughly 50m.
	stepSize = 0.0005
)

// FieldClient is one simulated worker, optionally operating a vehicle.
type FieldClient struct {
	SubjectID string
	VehicleID string

	latitude  float64
	longitude float64
}

// Update is a single synthetic position report.
type Update struct {
	SubjectID string
	VehicleID string
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

// NewFieldClient fabricates a client with a random identity and start
// position. Roughly half the clients are assigned a vehicle.
// Note: Uses math/rand which is acceptable for simulation data.
func NewFieldClient() *FieldClient {
	c := &FieldClient{
		SubjectID: gofakeit.UUID(),
		latitude:  baseLatitude + (rand.Float64()-0.5)*startSpread,  // #nosec G404 - weak random is acceptable for test data generation
		longitude: baseLongitude + (rand.Float64()-0.5)*startSpread, // #nosec G404
	}

	if gofakeit.Bool() {
		c.VehicleID = gofakeit.UUID()
	}

	return c
}

// NextUpdate advances the client one random-walk step and returns the
// resulting position report.
func (c *FieldClient) NextUpdate() Update {
	c.latitude += (rand.Float64() - 0.5) * 2 * stepSize  // #nosec G404
	c.longitude += (rand.Float64() - 0.5) * 2 * stepSize // #nosec G404

	// Keep coordinates inside WGS84 bounds; the tracker rejects them otherwise.
	c.latitude = clamp(c.latitude, -90, 90)
	c.longitude = clamp(c.longitude, -180, 180)

	return Update{
		SubjectID: c.SubjectID,
		VehicleID: c.VehicleID,
		Latitude:  c.latitude,
		Longitude: c.longitude,
		Accuracy:  5 + rand.Float64()*45, // #nosec G404 - 5-50m reported accuracy
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
