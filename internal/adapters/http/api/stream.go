package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/hiscore/internal/domain/broadcast"
	"github.com/okian/hiscore/internal/domain/types"
	"github.com/okian/hiscore/pkg/logger"
	"github.com/okian/hiscore/pkg/metrics"
)

// StreamHandler serves the live leaderboard over SSE and WebSocket. Both
// transports push the same JSON array as GET /api/leaderboard.
type StreamHandler struct {
	deps         StreamDependencies
	logger       logger.Logger
	writeTimeout time.Duration
	upgrader     websocket.Upgrader
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(deps StreamDependencies, l logger.Logger, writeTimeout time.Duration) *StreamHandler {
	return &StreamHandler{
		deps:         deps,
		logger:       l,
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Live views are read-only and served to any origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func encodeSnapshot(s broadcast.Snapshot) ([]byte, error) {
	return json.Marshal(types.FromModels(s.Entries))
}

// serve registers an observer and streams its snapshots through send until
// ctx ends or send fails.
func (h *StreamHandler) serve(ctx context.Context, transport string, o *broadcast.Observer, send func([]byte) error) {
	defer h.deps.Unregister(o.ID())

	err := o.Stream(ctx, func(s broadcast.Snapshot) error {
		data, err := encodeSnapshot(s)
		if err != nil {
			return err
		}
		return send(data)
	})
	if err != nil {
		metrics.RecordDeliveryFailure(transport)
		h.logger.Warn(ctx, "observer dropped",
			logger.String("transport", transport),
			logger.String("observer", o.ID()),
			logger.Error(err),
		)
	}
}

// HandleSSE handles GET /api/leaderboard/stream requests.
func (h *StreamHandler) HandleSSE(w http.ResponseWriter, r *http.Request) {
	const op = "api.stream_sse"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if _, ok := w.(http.Flusher); !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", NewKind(op, ErrUnsupported))
		return
	}

	o, err := h.deps.Register(r.Context())
	if err != nil {
		writeDomainError(w, op, err)
		return
	}

	rc := http.NewResponseController(w)
	deadlines := true
	writeAndFlush := func(data []byte) error {
		if deadlines {
			if err := rc.SetWriteDeadline(time.Now().Add(h.writeTimeout)); err != nil {
				deadlines = false
			}
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	h.serve(r.Context(), "sse", o, writeAndFlush)
}

// HandleWebSocket handles GET /api/leaderboard/ws requests.
func (h *StreamHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	const op = "api.stream_ws"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.logger.Debug(r.Context(), "websocket upgrade failed", logger.Error(Wrap(op, err)))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	o, err := h.deps.Register(ctx)
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "registration failed"),
			time.Now().Add(h.writeTimeout))
		return
	}

	// Clients never send data; reading surfaces their close frame.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.serve(ctx, "ws", o, func(data []byte) error {
		if err := conn.SetWriteDeadline(time.Now().Add(h.writeTimeout)); err != nil {
			return err
		}
		err := conn.WriteMessage(websocket.TextMessage, data)
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}
