package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"prepmaster/backend/internal/server/httpx"
)

const pingTimeout = 2 * time.Second

// Pinger is used to check database connectivity (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler serves GET /health for load balancers and CI.
type Handler struct {
	pinger Pinger
	now    func() time.Time
	log    logrus.FieldLogger
}

// New returns a health handler. If pinger is nil the database check is skipped.
func New(pinger Pinger, now func() time.Time, log logrus.FieldLogger) *Handler {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{pinger: pinger, now: now, log: log}
}

type healthResponse struct {
	Status    string    `json:"status"`
	Database  string    `json:"database,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Health reports 200 when the server and its database are reachable, 503 otherwise.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Timestamp: h.now().UTC()}
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()
		if err := h.pinger.PingContext(ctx); err != nil {
			h.log.WithError(err).Warn("health: database ping failed")
			resp.Status = "unavailable"
			resp.Database = "down"
			httpx.JSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		resp.Database = "up"
	}
	httpx.JSON(w, http.StatusOK, resp)
}
