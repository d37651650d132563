package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/sat-explorer/internal/chart"
	"github.com/stemsi/sat-explorer/internal/metrics"
	"github.com/stemsi/sat-explorer/internal/model"
	"github.com/stemsi/sat-explorer/internal/service"
	ws "github.com/stemsi/sat-explorer/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// InteractionRecorder receives one entry per redraw.
type InteractionRecorder interface {
	Record(ctx context.Context, it model.Interaction)
}

// SessionHandler drives the interactive explorer over a WebSocket.
type SessionHandler struct {
	explorer *service.ExplorerService
	recorder InteractionRecorder
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewSessionHandler creates a new SessionHandler. recorder may be nil.
func NewSessionHandler(explorer *service.ExplorerService, recorder InteractionRecorder, log zerolog.Logger, allowedOrigins []string) *SessionHandler {
	return &SessionHandler{
		explorer: explorer,
		recorder: recorder,
		log:      log.With().Str("component", "session_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// session is the state owned by one connection's read loop.
type session struct {
	id     string
	conn   *websocket.Conn
	params model.Params
	seq    int
	log    zerolog.Logger
}

// Session godoc
// WS /ws/v1/session
// Every control change is filtered and redrawn before the next message is read.
func (h *SessionHandler) Session(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	metrics.ActiveSessions.Inc()
	defer metrics.ActiveSessions.Dec()

	id := uuid.NewString()
	s := &session{
		id:     id,
		conn:   conn,
		params: model.DefaultParams(),
		log:    h.log.With().Str("session_id", id).Logger(),
	}
	ctx := c.Request.Context()

	s.log.Info().Msg("Session opened")

	if err := ws.WriteTyped(conn, ws.ReadyResponse{
		Event:     ws.EventReady,
		SessionID: id,
		Controls:  h.explorer.Controls(),
	}); err != nil {
		return
	}
	if err := h.redraw(ctx, s); err != nil {
		return
	}

	for {
		var msg ws.RequestPayload
		err := ws.ReadJSON(conn, &msg)
		if errors.Is(err, ws.ErrMalformedMessage) {
			s.log.Warn().Err(err).Msg("Malformed message")
			if werr := ws.WriteError(conn, err.Error()); werr != nil {
				break
			}
			continue
		}
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn().Err(err).Msg("Unexpected close")
			} else {
				s.log.Debug().Msg("Connection closed")
			}
			break
		}

		var werr error
		switch msg.Action {
		case ws.ActionSetParams:
			werr = h.handleSetParams(ctx, s, &msg)
		case ws.ActionPing:
			werr = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			s.log.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			werr = ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
		if werr != nil {
			s.log.Debug().Err(werr).Msg("Write failed")
			break
		}
	}
}

// handleSetParams merges a control change into the session and redraws.
// A rejected change leaves the previous params in place.
func (h *SessionHandler) handleSetParams(ctx context.Context, s *session, msg *ws.RequestPayload) error {
	next := msg.Merge(s.params)
	if err := h.explorer.Validate(next); err != nil {
		if errors.Is(err, service.ErrUnknownMajor) {
			return ws.WriteError(s.conn, "unknown major: "+next.Major)
		}
		return ws.WriteError(s.conn, err.Error())
	}
	s.params = next
	return h.redraw(ctx, s)
}

// redraw renders the session's current params and sends one chart event.
func (h *SessionHandler) redraw(ctx context.Context, s *session) error {
	start := time.Now()

	views, err := h.explorer.Views(s.params)
	if err != nil {
		return ws.WriteError(s.conn, err.Error())
	}
	png, err := h.explorer.Chart(ctx, s.params, chart.FormatPNG)
	if err != nil {
		s.log.Error().Err(err).Msg("Redraw failed")
		return ws.WriteError(s.conn, "chart render failed")
	}

	s.seq++
	erwCount, mathCount := len(views.ERW), len(views.Math)
	if err := ws.WriteTyped(s.conn, ws.ChartResponse{
		Event:     ws.EventChart,
		Seq:       s.seq,
		Params:    s.params,
		ERWCount:  erwCount,
		MathCount: mathCount,
		Summary:   views.Summary,
		Image:     base64.StdEncoding.EncodeToString(png),
	}); err != nil {
		return err
	}

	if h.recorder != nil {
		h.recorder.Record(ctx, model.Interaction{
			SessionID: s.id,
			Params:    s.params,
			ERWCount:  erwCount,
			MathCount: mathCount,
			RenderMS:  time.Since(start).Milliseconds(),
			At:        time.Now().UTC(),
		})
	}
	return nil
}
