package handler

import (
	_ "embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/stemsi/sat-explorer/internal/model"
	"github.com/stemsi/sat-explorer/internal/service"
)

//go:embed web/index.html
var indexHTML string

var indexTemplate = template.Must(template.New("index").Parse(indexHTML))

// PageHandler serves the explorer page with its three controls.
type PageHandler struct {
	explorer *service.ExplorerService
}

func NewPageHandler(explorer *service.ExplorerService) *PageHandler {
	return &PageHandler{explorer: explorer}
}

type pageData struct {
	Title    string
	Controls model.ControlSpec
	WSPath   string
}

// Index godoc
// GET /
func (h *PageHandler) Index(c *gin.Context) {
	c.Render(http.StatusOK, render.HTML{
		Template: indexTemplate,
		Name:     "index",
		Data: pageData{
			Title:    "SAT Score Explorer",
			Controls: h.explorer.Controls(),
			WSPath:   "/ws/v1/session",
		},
	})
}
