package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/sat-explorer/internal/model"
	"github.com/stemsi/sat-explorer/internal/response"
)

// SystemHandler reports liveness and dataset facts.
type SystemHandler struct {
	ds        *model.Dataset
	source    string
	startTime time.Time
}

func NewSystemHandler(ds *model.Dataset, source string) *SystemHandler {
	return &SystemHandler{ds: ds, source: source, startTime: time.Now()}
}

type healthStatus struct {
	Status      string `json:"status"`
	Source      string `json:"source"`
	Rows        int    `json:"rows"`
	Majors      int    `json:"majors"`
	Fingerprint string `json:"fingerprint"`
	Uptime      string `json:"uptime"`
	Goroutines  int    `json:"goroutines"`
	GoVersion   string `json:"go_version"`
}

// Health godoc
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	response.Success(c, http.StatusOK, healthStatus{
		Status:      "ok",
		Source:      h.source,
		Rows:        h.ds.Len(),
		Majors:      len(h.ds.Majors) - 1,
		Fingerprint: h.ds.Fingerprint,
		Uptime:      time.Since(h.startTime).Round(time.Second).String(),
		Goroutines:  runtime.NumGoroutine(),
		GoVersion:   runtime.Version(),
	})
}
