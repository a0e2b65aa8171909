package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// envelope mirrors the tracker's wire frame from the client side.
type envelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// updatePayload mirrors the location:update payload.
type updatePayload struct {
	SubjectID string  `json:"subjectId"`
	VehicleID string  `json:"vehicleId,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

// Runner connects a set of simulated field clients to a tracker and streams
// position updates until the context is canceled.
type Runner struct {
	logger   *slog.Logger
	url      string
	clients  []*FieldClient
	interval time.Duration
}

// RunnerConfig holds the configuration for the Runner.
type RunnerConfig struct {
	Logger *slog.Logger

	// URL is the tracker websocket endpoint, e.g. ws://localhost:3001/ws.
	URL string

	// Clients is the number of simulated field clients.
	Clients int

	// Interval is the time between updates per client.
	Interval time.Duration
}

// NewRunner creates a new Runner instance.
func NewRunner(cfg *RunnerConfig) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("runner config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.URL == "" {
		return nil, errors.New("tracker URL cannot be empty")
	}

	if cfg.Clients <= 0 {
		return nil, errors.New("client count must be positive")
	}

	if cfg.Interval <= 0 {
		return nil, errors.New("update interval must be positive")
	}

	clients := make([]*FieldClient, 0, cfg.Clients)
	for range cfg.Clients {
		clients = append(clients, NewFieldClient())
	}

	return &Runner{
		logger:   cfg.Logger,
		url:      cfg.URL,
		clients:  clients,
		interval: cfg.Interval,
	}, nil
}

// Run streams updates from every client and blocks until the context is
// canceled or all client connections have failed.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("starting simulator",
		"url", r.url,
		"clients", len(r.clients),
		"interval", r.interval,
	)

	var wg sync.WaitGroup
	for _, client := range r.clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.runClient(ctx, client); err != nil {
				r.logger.Error("simulated client stopped",
					"subject_id", client.SubjectID,
					"error", err,
				)
			}
		}()
	}

	wg.Wait()
	r.logger.Info("simulator stopped")
	return nil
}

// runClient dials the tracker and streams updates for one field client.
func (r *Runner) runClient(ctx context.Context, client *FieldClient) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, r.url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial tracker: %w", err)
	}
	defer conn.Close()

	r.logger.Info("simulated client connected", "subject_id", client.SubjectID)

	// Drain inbound frames so broadcasts and pings do not back up.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil
		case <-ticker.C:
			if err := r.sendUpdate(conn, client.NextUpdate()); err != nil {
				return fmt.Errorf("failed to send update: %w", err)
			}
		}
	}
}

// sendUpdate writes one location:update frame.
func (r *Runner) sendUpdate(conn *websocket.Conn, update Update) error {
	data, err := json.Marshal(updatePayload{
		SubjectID: update.SubjectID,
		VehicleID: update.VehicleID,
		Latitude:  update.Latitude,
		Longitude: update.Longitude,
		Accuracy:  update.Accuracy,
	})
	if err != nil {
		return err
	}

	frame, err := json.Marshal(envelope{Kind: "location:update", Data: data})
	if err != nil {
		return err
	}

	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, frame)
}
