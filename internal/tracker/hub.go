package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/SamuelRM25/codispro/internal/store"
	"github.com/SamuelRM25/codispro/pkg/metrics"
)

// Hub drives every client session: it validates inbound messages, persists
// accepted updates, maintains the presence registry and fans position
// changes out to all observers.
type Hub struct {
	logger      *slog.Logger
	store       store.LocationStore
	registry    *Registry
	broadcaster *Broadcaster
	metrics     *metrics.TrackerMetrics
	now         func() time.Time
}

// HubConfig holds the configuration for the Hub.
type HubConfig struct {
	Logger  *slog.Logger
	Store   store.LocationStore
	Metrics *metrics.TrackerMetrics // Optional metrics

	// Now overrides the clock used to stamp capturedAt. Defaults to time.Now.
	Now func() time.Time
}

// NewHub creates a new Hub instance.
func NewHub(cfg *HubConfig) (*Hub, error) {
	if cfg == nil {
		return nil, errors.New("hub config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.Store == nil {
		return nil, errors.New("store cannot be nil")
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Hub{
		logger:      cfg.Logger,
		store:       cfg.Store,
		registry:    NewRegistry(),
		broadcaster: NewBroadcaster(cfg.Metrics),
		metrics:     cfg.Metrics,
		now:         now,
	}, nil
}

// Registry exposes the presence registry, read-only use intended.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Register adds a newly connected sink to the observer set.
func (h *Hub) Register(s Sink) {
	h.broadcaster.Register(s)

	if h.metrics != nil {
		h.metrics.ConnectionsActive.Inc()
	}

	h.logger.Info("client connected", "connection_id", s.ID())
}

// Disconnect removes the sink from the observer set and clears its presence.
// A subject stays active while another connection still reports for it.
func (h *Hub) Disconnect(s Sink) {
	h.broadcaster.Unregister(s.ID())

	subjectID, stillReporting, ok := h.registry.Remove(s.ID())

	if h.metrics != nil {
		h.metrics.ConnectionsActive.Dec()
		h.metrics.SubjectsActive.Set(float64(h.registry.Subjects()))
	}

	if ok {
		h.logger.Info("client disconnected",
			"connection_id", s.ID(),
			"subject_id", subjectID,
			"still_reporting", stillReporting,
		)
		return
	}

	h.logger.Info("client disconnected", "connection_id", s.ID())
}

// Dispatch handles one inbound frame from the given sink. Errors are
// converted to an error message back to the originating sink and never
// affect other connections.
func (h *Hub) Dispatch(ctx context.Context, s Sink, raw []byte) {
	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		h.countMessage("malformed", "error")
		h.sendError(s, "malformed message")
		return
	}

	switch envelope.Kind {
	case KindLocationUpdate:
		h.handleUpdate(ctx, s, envelope.Data)
	case KindLocationHistory:
		h.handleHistory(ctx, s, envelope.Data)
	case KindLocationActive:
		h.handleActive(s)
	default:
		h.countMessage("unknown", "error")
		h.sendError(s, "unknown message kind: "+envelope.Kind)
	}
}

// handleUpdate processes a location:update message. The durable write must
// succeed before the registry is touched or anything is broadcast, so a
// failed update is never visible to other connections.
func (h *Hub) handleUpdate(ctx context.Context, s Sink, data []byte) {
	var req UpdateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		h.countMessage(KindLocationUpdate, "error")
		h.sendError(s, "malformed location update")
		return
	}

	if err := req.Validate(); err != nil {
		h.countMessage(KindLocationUpdate, "error")
		h.sendError(s, err.Error())
		return
	}

	// Client clocks are not trusted; the fix is stamped at ingestion.
	capturedAt := h.now().UTC()

	sample := &store.LocationLog{
		SubjectID:  req.SubjectID,
		VehicleID:  req.VehicleID,
		Latitude:   *req.Latitude,
		Longitude:  *req.Longitude,
		Accuracy:   req.Accuracy,
		CapturedAt: capturedAt,
	}

	if err := h.store.Append(ctx, sample); err != nil {
		h.logger.Error("failed to save location",
			"connection_id", s.ID(),
			"subject_id", req.SubjectID,
			"error", err,
		)
		h.countMessage(KindLocationUpdate, "error")
		h.sendError(s, "error saving location")
		return
	}

	h.registry.Upsert(s.ID(), LastKnownPosition{
		SubjectID:  req.SubjectID,
		VehicleID:  req.VehicleID,
		Latitude:   *req.Latitude,
		Longitude:  *req.Longitude,
		Accuracy:   req.Accuracy,
		CapturedAt: capturedAt,
	})

	if h.metrics != nil {
		h.metrics.SubjectsActive.Set(float64(h.registry.Subjects()))
	}

	payload, err := encodeEnvelope(KindLocationBroadcast, BroadcastEvent{
		SubjectID:  req.SubjectID,
		VehicleID:  req.VehicleID,
		Latitude:   *req.Latitude,
		Longitude:  *req.Longitude,
		Accuracy:   req.Accuracy,
		CapturedAt: capturedAt,
	})
	if err != nil {
		h.logger.Error("failed to encode broadcast", "error", err)
		h.countMessage(KindLocationUpdate, "error")
		return
	}

	h.broadcaster.Publish(payload)
	h.countMessage(KindLocationUpdate, "success")

	h.logger.Debug("location updated",
		"connection_id", s.ID(),
		"subject_id", req.SubjectID,
		"latitude", *req.Latitude,
		"longitude", *req.Longitude,
	)
}

// handleHistory processes a location:history message. The response goes to
// the requesting sink only.
func (h *Hub) handleHistory(ctx context.Context, s Sink, data []byte) {
	var req HistoryRequest
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			h.countMessage(KindLocationHistory, "error")
			h.sendError(s, "malformed history request")
			return
		}
	}

	rows, err := h.store.Query(ctx, store.HistoryFilter{
		SubjectID: req.SubjectID,
		VehicleID: req.VehicleID,
		Limit:     req.Limit,
	})
	if err != nil {
		h.logger.Error("failed to fetch location history",
			"connection_id", s.ID(),
			"subject_id", req.SubjectID,
			"error", err,
		)
		h.countMessage(KindLocationHistory, "error")
		h.sendError(s, "error fetching history")
		return
	}

	h.reply(s, KindLocationHistory, historySamples(rows))
	h.countMessage(KindLocationHistory, "success")
}

// handleActive returns the full last-known-position table to the requesting
// sink only. Pure in-memory read, no failure mode.
func (h *Hub) handleActive(s Sink) {
	h.reply(s, KindLocationActive, h.registry.Snapshot())
	h.countMessage(KindLocationActive, "success")
}

// reply sends a payload to a single sink.
func (h *Hub) reply(s Sink, kind string, payload any) {
	frame, err := encodeEnvelope(kind, payload)
	if err != nil {
		h.logger.Error("failed to encode reply", "kind", kind, "error", err)
		return
	}
	if !s.Send(frame) {
		h.logger.Warn("dropped reply to lagging client",
			"connection_id", s.ID(),
			"kind", kind,
		)
	}
}

// sendError reports a failure to the originating sink only.
func (h *Hub) sendError(s Sink, message string) {
	h.reply(s, KindError, ErrorMessage{Message: message})
}

func (h *Hub) countMessage(kind, status string) {
	if h.metrics != nil {
		h.metrics.MessagesTotal.WithLabelValues(kind, status).Inc()
	}
}
