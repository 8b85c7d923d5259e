package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/stowage/internal/audit"
	"github.com/eugenenazirov/stowage/internal/planner"
	"github.com/eugenenazirov/stowage/internal/simulation"
	"github.com/eugenenazirov/stowage/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const (
	defaultMaxUploadBytes = 10 << 20
	systemUser            = "system"
)

// Handler wires the planner, inventory store, audit log and simulator into
// HTTP handlers.
type Handler struct {
	engine    planner.Engine
	storage   storage.Storage
	audit     *audit.Log
	simulator *simulation.Simulator
	logger    *zap.Logger

	clock     func() time.Time
	maxUpload int64
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests. It is ignored
// for waste classification when a simulator is attached.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithAuditLog sets the audit trail actions are recorded to.
func WithAuditLog(l *audit.Log) HandlerOption {
	return func(h *Handler) {
		h.audit = l
	}
}

// WithSimulator attaches the simulated calendar.
func WithSimulator(s *simulation.Simulator) HandlerOption {
	return func(h *Handler) {
		h.simulator = s
	}
}

// WithHandlerLogger sets the logger used by handlers.
func WithHandlerLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMaxUploadBytes bounds the size of import uploads.
func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxUpload = n
		}
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(engine planner.Engine, store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		engine:  engine,
		storage: store,
		logger:  zap.NewNop(),
		clock: func() time.Time {
			return time.Now().UTC()
		},
		maxUpload: defaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.audit == nil {
		h.audit = audit.New(audit.WithClock(h.clock), audit.WithLogger(h.logger))
	}
	if h.simulator == nil {
		h.simulator = simulation.New(store, h.clock(), h.logger)
	}
	return h
}

// now is the mission date used for expiry decisions.
func (h *Handler) now() time.Time {
	return h.simulator.Now()
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	items, containers := h.storage.Snapshot()
	resp := healthResponse{
		Status:     "ok",
		Timestamp:  h.clock(),
		Items:      len(items),
		Containers: len(containers),
	}
	writeJSON(w, http.StatusOK, resp)
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type healthResponse struct {
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
	Items      int       `json:"items"`
	Containers int       `json:"containers"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}

// writeDomainError maps planner and storage errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, planner.ErrInvalidGeometry),
		errors.Is(err, planner.ErrInvalidItem),
		errors.Is(err, planner.ErrDuplicateID),
		errors.Is(err, storage.ErrEmptyID):
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
	case errors.Is(err, planner.ErrUnknownItem),
		errors.Is(err, storage.ErrItemNotFound):
		writeError(w, http.StatusNotFound, "Item not found", err.Error())
	case errors.Is(err, planner.ErrUnknownContainer),
		errors.Is(err, storage.ErrContainerNotFound):
		writeError(w, http.StatusNotFound, "Container not found", err.Error())
	default:
		writeInternalError(w, err)
	}
}

func userOrSystem(userID string) string {
	if userID == "" {
		return systemUser
	}
	return userID
}
