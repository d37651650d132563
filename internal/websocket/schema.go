package websocket

import "github.com/stemsi/sat-explorer/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSetParams Action = "set_params"
	ActionPing      Action = "ping"
)

// RequestPayload is any client message. Score fields are pointers so a
// control change can carry only the value that moved.
type RequestPayload struct {
	Action   Action  `json:"action"`
	MinScore *int    `json:"min_score,omitempty"`
	MaxScore *int    `json:"max_score,omitempty"`
	Major    *string `json:"major,omitempty"`
}

// Merge applies the fields present in r onto p.
func (r *RequestPayload) Merge(p model.Params) model.Params {
	if r.MinScore != nil {
		p.MinScore = *r.MinScore
	}
	if r.MaxScore != nil {
		p.MaxScore = *r.MaxScore
	}
	if r.Major != nil {
		p.Major = *r.Major
	}
	return p
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventReady Event = "ready"
	EventChart Event = "chart"
	EventError Event = "error"
	EventPong  Event = "pong"
)

// ReadyResponse opens a session and lists the controls.
type ReadyResponse struct {
	Event     Event             `json:"event"`
	SessionID string            `json:"session_id"`
	Controls  model.ControlSpec `json:"controls"`
}

// ChartResponse carries one redraw. Image is a base64 PNG.
type ChartResponse struct {
	Event     Event          `json:"event"`
	Seq       int            `json:"seq"`
	Params    model.Params   `json:"params"`
	ERWCount  int            `json:"erw_count"`
	MathCount int            `json:"math_count"`
	Summary   []model.Series `json:"summary"`
	Image     string         `json:"image"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
