package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/sat-explorer/internal/dataset"
	"github.com/stemsi/sat-explorer/internal/middleware"
	"github.com/stemsi/sat-explorer/internal/model"
	"github.com/stemsi/sat-explorer/internal/service"
	"github.com/stemsi/sat-explorer/internal/validator"
	ws "github.com/stemsi/sat-explorer/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	validator.Setup()
	os.Exit(m.Run())
}

func sampleRecords() []model.Record {
	return []model.Record{
		{ERW: 650, Math: 700, Major: "Engineering"},
		{ERW: 480, Math: 390, Major: "Biology"},
		{ERW: 720, Math: 760, Major: "Engineering"},
		{ERW: 350, Math: 450, Major: "History"},
		{ERW: 600, Math: 610, Major: "Biology"},
	}
}

type recorderStub struct {
	mu    sync.Mutex
	items []model.Interaction
}

func (r *recorderStub) Record(_ context.Context, it model.Interaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, it)
}

func (r *recorderStub) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

type testEnv struct {
	engine   *gin.Engine
	shares   *service.ShareService
	recorder *recorderStub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	explorer := service.NewExplorerService(dataset.New(sampleRecords()), nil, time.Minute, zerolog.Nop())
	shares := service.NewShareService("test-secret", time.Hour)
	rec := &recorderStub{}

	eh := NewExplorerHandler(explorer, shares, zerolog.Nop())
	sh := NewSessionHandler(explorer, rec, zerolog.Nop(), nil)
	ph := NewPageHandler(explorer)
	sys := NewSystemHandler(explorer.Dataset(), "file")

	r := gin.New()
	r.GET("/", ph.Index)
	r.GET("/health", sys.Health)
	r.GET("/api/v1/controls", eh.GetControls)
	r.GET("/api/v1/views", eh.GetViews)
	r.GET("/api/v1/chart.png", eh.GetChartPNG)
	r.GET("/api/v1/chart.svg", eh.GetChartSVG)
	r.POST("/api/v1/share", eh.CreateShare)
	shared := r.Group("/api/v1/shared/:token", middleware.RequireShareToken(shares))
	shared.GET("/chart.png", eh.GetSharedChart)
	shared.GET("/views", eh.GetSharedViews)
	r.GET("/ws/v1/session", sh.Session)

	return &testEnv{engine: r, shares: shares, recorder: rec}
}

func (e *testEnv) do(method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestGetControls(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodGet, "/api/v1/controls", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Controls model.ControlSpec `json:"controls"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	assert.Equal(t, []string{"All", "Engineering", "Biology", "History"}, data.Controls.Majors)
	assert.Equal(t, 400, data.Controls.DefaultMin)
	assert.Equal(t, 800, data.Controls.DefaultMax)
	assert.Equal(t, "All", data.Controls.DefaultMajor)
}

func TestGetViews(t *testing.T) {
	env := newTestEnv(t)

	t.Run("defaults", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/v1/views", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var res model.ViewResult
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &res))
		assert.Equal(t, model.DefaultParams(), res.Params)
		assert.Len(t, res.ERW, 4)
		assert.Len(t, res.Math, 4)
	})

	t.Run("major filter", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/v1/views?min_score=600&max_score=700&major=Engineering", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var res model.ViewResult
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &res))
		assert.Equal(t, model.View{{ERW: 650, Math: 700, Major: "Engineering"}}, res.ERW)
		assert.Equal(t, model.View{{ERW: 650, Math: 700, Major: "Engineering"}}, res.Math)
	})

	t.Run("min above max", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/v1/views?min_score=700&max_score=500", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var res model.ViewResult
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &res))
		assert.Empty(t, res.ERW)
		assert.Empty(t, res.Math)
	})

	t.Run("non-integer score", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/v1/views?min_score=abc", nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", decode(t, w).Error.Code)
	})

	t.Run("unknown major", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/v1/views?major=Astrology", nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "UNKNOWN_MAJOR", decode(t, w).Error.Code)
	})
}

func TestGetChart(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/v1/chart.png?min_score=500&max_score=800&major=Biology", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), pngMagic))

	w = env.do(http.MethodGet, "/api/v1/chart.svg", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "image/svg+xml")
	assert.Contains(t, w.Body.String(), "<svg")

	w = env.do(http.MethodGet, "/api/v1/chart.png?min_score=800&max_score=200", nil)
	require.Equal(t, http.StatusOK, w.Code, "empty views still render")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), pngMagic))
}

func TestShareFlow(t *testing.T) {
	env := newTestEnv(t)

	body := []byte(`{"min_score":600,"max_score":800,"major":"Engineering"}`)
	w := env.do(http.MethodPost, "/api/v1/share", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var share shareResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &share))
	require.NotEmpty(t, share.Token)
	assert.True(t, share.ExpiresAt.After(time.Now()))

	w = env.do(http.MethodGet, share.ChartURL, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), pngMagic))

	w = env.do(http.MethodGet, "/api/v1/shared/"+share.Token+"/views", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res model.ViewResult
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &res))
	assert.Equal(t, model.Params{MinScore: 600, MaxScore: 800, Major: "Engineering"}, res.Params)
	assert.Len(t, res.ERW, 2)
}

func TestCreateShare_Invalid(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"missing scores", `{"major":"All"}`, "VALIDATION_ERROR"},
		{"missing major", `{"min_score":400,"max_score":800}`, "VALIDATION_ERROR"},
		{"malformed", `{"min_score":`, "VALIDATION_ERROR"},
		{"unknown major", `{"min_score":400,"max_score":800,"major":"Astrology"}`, "UNKNOWN_MAJOR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/api/v1/share", []byte(tt.body))
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, decode(t, w).Error.Code)
		})
	}
}

func TestGetSharedChart_BadToken(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodGet, "/api/v1/shared/not-a-token/chart.png", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_SHARE_TOKEN", decode(t, w).Error.Code)
}

func TestIndexPage(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)

	page := w.Body.String()
	assert.Contains(t, page, `id="min-score" min="200" max="800" step="10" value="400"`)
	assert.Contains(t, page, `id="max-score" min="200" max="800" step="10" value="800"`)
	assert.Contains(t, page, `<option value="All" selected>All</option>`)
	assert.Contains(t, page, `<option value="History">History</option>`)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var h healthStatus
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &h))
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, 5, h.Rows)
	assert.Equal(t, 3, h.Majors)
}

func dialSession(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(env.engine)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/v1/session"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readEvent reads one message and returns its raw form plus the event name.
func readEvent(t *testing.T, conn *websocket.Conn) (map[string]json.RawMessage, ws.Event) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	var msg map[string]json.RawMessage
	require.NoError(t, conn.ReadJSON(&msg))
	var ev ws.Event
	require.NoError(t, json.Unmarshal(msg["event"], &ev))
	return msg, ev
}

func readChart(t *testing.T, conn *websocket.Conn) ws.ChartResponse {
	t.Helper()
	msg, ev := readEvent(t, conn)
	require.Equal(t, ws.EventChart, ev)
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	var chart ws.ChartResponse
	require.NoError(t, json.Unmarshal(raw, &chart))
	return chart
}

func TestSession(t *testing.T) {
	env := newTestEnv(t)
	conn := dialSession(t, env)

	msg, ev := readEvent(t, conn)
	require.Equal(t, ws.EventReady, ev)
	assert.NotEmpty(t, msg["session_id"])

	first := readChart(t, conn)
	assert.Equal(t, 1, first.Seq)
	assert.Equal(t, model.DefaultParams(), first.Params)
	assert.Equal(t, 4, first.ERWCount)
	assert.Equal(t, 4, first.MathCount)
	img, err := base64.StdEncoding.DecodeString(first.Image)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngMagic))

	// Only the moved control is sent; the others persist.
	require.NoError(t, conn.WriteJSON(map[string]any{"action": "set_params", "major": "Biology"}))
	second := readChart(t, conn)
	assert.Equal(t, 2, second.Seq)
	assert.Equal(t, model.Params{MinScore: 400, MaxScore: 800, Major: "Biology"}, second.Params)
	assert.Equal(t, 2, second.ERWCount)
	assert.Equal(t, 1, second.MathCount)

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "set_params", "min_score": 650}))
	third := readChart(t, conn)
	assert.Equal(t, model.Params{MinScore: 650, MaxScore: 800, Major: "Biology"}, third.Params)
	assert.Equal(t, 0, third.ERWCount)
	assert.Equal(t, 0, third.MathCount)

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "ping"}))
	_, ev = readEvent(t, conn)
	assert.Equal(t, ws.EventPong, ev)

	assert.Eventually(t, func() bool { return env.recorder.count() == 3 }, time.Second, 10*time.Millisecond)
}

func TestSession_Errors(t *testing.T) {
	env := newTestEnv(t)
	conn := dialSession(t, env)

	readEvent(t, conn)
	readChart(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "set_params", "major": "Astrology"}))
	msg, ev := readEvent(t, conn)
	require.Equal(t, ws.EventError, ev)
	assert.Contains(t, string(msg["error"]), "unknown major")

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "dance"}))
	msg, ev = readEvent(t, conn)
	require.Equal(t, ws.EventError, ev)
	assert.Contains(t, string(msg["error"]), "unknown action")

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "set_params", "min_score": "abc"}))
	msg, ev = readEvent(t, conn)
	require.Equal(t, ws.EventError, ev)
	assert.Contains(t, string(msg["error"]), "malformed message")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	_, ev = readEvent(t, conn)
	require.Equal(t, ws.EventError, ev)

	// The rejected inputs did not replace the session params or close it.
	require.NoError(t, conn.WriteJSON(map[string]any{"action": "set_params", "max_score": 700}))
	chart := readChart(t, conn)
	assert.Equal(t, model.Params{MinScore: 400, MaxScore: 700, Major: "All"}, chart.Params)
	assert.Equal(t, 3, chart.ERWCount)
	assert.Equal(t, 3, chart.MathCount)
}
