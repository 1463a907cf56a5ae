package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/latticefold/internal/modules/export"
	"github.com/aristath/latticefold/internal/modules/jobs"
	"github.com/aristath/latticefold/internal/modules/optimization"
)

const streamWriteTimeout = 5 * time.Second

// StreamMessage is one frame of the trace stream.
type StreamMessage struct {
	Type   string               `json:"type"` // "record" or "done"
	JobID  string               `json:"job_id"`
	Record *optimization.Record `json:"record,omitempty"`
	Status jobs.Status          `json:"status,omitempty"`
	Error  string               `json:"error,omitempty"`
	Report *export.Report       `json:"report,omitempty"`
}

// HandleStream handles GET /api/predictions/{id}/stream. It upgrades to a
// WebSocket and sends every convergence record, then a final "done" frame
// once the job finishes.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.registry.Get(id); err != nil {
		h.writeError(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		h.log.Error().Err(err).Str("job_id", id).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.CloseNow()

	// the client never sends; CloseRead handles pings and close frames
	ctx := conn.CloseRead(r.Context())

	if err := h.streamJob(ctx, conn, id); err != nil {
		if !errors.Is(err, context.Canceled) {
			h.log.Debug().Err(err).Str("job_id", id).Msg("Trace stream ended")
		}
		return
	}
	conn.Close(websocket.StatusNormalClosure, "job finished")
}

func (h *Handler) streamJob(ctx context.Context, conn *websocket.Conn, id string) error {
	sent := 0
	for {
		job, changed, err := h.registry.Watch(id)
		if err != nil {
			return err
		}

		for ; sent < len(job.Trace); sent++ {
			rec := job.Trace[sent]
			if err := write(ctx, conn, StreamMessage{Type: "record", JobID: id, Record: &rec}); err != nil {
				return err
			}
		}

		if job.Status.IsTerminal() {
			return write(ctx, conn, StreamMessage{
				Type:   "done",
				JobID:  id,
				Status: job.Status,
				Error:  job.Error,
				Report: job.Report,
			})
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg StreamMessage) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}
