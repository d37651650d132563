package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/sat-explorer/internal/chart"
	"github.com/stemsi/sat-explorer/internal/middleware"
	"github.com/stemsi/sat-explorer/internal/model"
	"github.com/stemsi/sat-explorer/internal/response"
	"github.com/stemsi/sat-explorer/internal/service"
	"github.com/stemsi/sat-explorer/internal/validator"
)

// ExplorerHandler serves the filter, chart and share endpoints.
type ExplorerHandler struct {
	explorer *service.ExplorerService
	shares   *service.ShareService
	log      zerolog.Logger
}

// NewExplorerHandler creates a new ExplorerHandler.
func NewExplorerHandler(explorer *service.ExplorerService, shares *service.ShareService, log zerolog.Logger) *ExplorerHandler {
	return &ExplorerHandler{
		explorer: explorer,
		shares:   shares,
		log:      log.With().Str("component", "explorer_handler").Logger(),
	}
}

type paramsQuery struct {
	MinScore int    `form:"min_score" json:"min_score"`
	MaxScore int    `form:"max_score" json:"max_score"`
	Major    string `form:"major" json:"major" binding:"required,max=200"`
}

type shareRequest struct {
	MinScore *int   `json:"min_score" binding:"required"`
	MaxScore *int   `json:"max_score" binding:"required"`
	Major    string `json:"major" binding:"required,max=200"`
}

type shareResponse struct {
	Token     string    `json:"token"`
	ChartURL  string    `json:"chart_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// bindParams reads the control values from the query, defaulting every
// absent value to its initial control value.
func bindParams(c *gin.Context) (model.Params, bool) {
	def := model.DefaultParams()
	q := paramsQuery{MinScore: def.MinScore, MaxScore: def.MaxScore, Major: def.Major}
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return model.Params{}, false
	}
	return model.Params{MinScore: q.MinScore, MaxScore: q.MaxScore, Major: q.Major}, true
}

// GetControls godoc
// GET /api/v1/controls
func (h *ExplorerHandler) GetControls(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"controls": h.explorer.Controls()})
}

// GetViews godoc
// GET /api/v1/views?min_score=&max_score=&major=
func (h *ExplorerHandler) GetViews(c *gin.Context) {
	p, ok := bindParams(c)
	if !ok {
		return
	}

	res, err := h.explorer.Views(p)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// GetChartPNG godoc
// GET /api/v1/chart.png?min_score=&max_score=&major=
func (h *ExplorerHandler) GetChartPNG(c *gin.Context) {
	h.serveChart(c, chart.FormatPNG)
}

// GetChartSVG godoc
// GET /api/v1/chart.svg?min_score=&max_score=&major=
func (h *ExplorerHandler) GetChartSVG(c *gin.Context) {
	h.serveChart(c, chart.FormatSVG)
}

func (h *ExplorerHandler) serveChart(c *gin.Context, format chart.Format) {
	p, ok := bindParams(c)
	if !ok {
		return
	}
	h.writeChart(c, p, format)
}

func (h *ExplorerHandler) writeChart(c *gin.Context, p model.Params, format chart.Format) {
	data, err := h.explorer.Chart(c.Request.Context(), p, format)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Image(c, format.ContentType(), data)
}

// CreateShare godoc
// POST /api/v1/share
// Signs the posted filter state into a token that reproduces the chart.
func (h *ExplorerHandler) CreateShare(c *gin.Context) {
	var req shareRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	p := model.Params{MinScore: *req.MinScore, MaxScore: *req.MaxScore, Major: req.Major}
	if err := h.explorer.Validate(p); err != nil {
		h.fail(c, err)
		return
	}

	token, expires, err := h.shares.Issue(p)
	if err != nil {
		h.log.Error().Err(err).Msg("Issue share token failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, shareResponse{
		Token:     token,
		ChartURL:  "/api/v1/shared/" + token + "/chart.png",
		ExpiresAt: expires.UTC(),
	})
}

// GetSharedChart godoc
// GET /api/v1/shared/:token/chart.png
func (h *ExplorerHandler) GetSharedChart(c *gin.Context) {
	p, ok := middleware.GetShareParams(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidShareToken)
		return
	}
	h.writeChart(c, p, chart.FormatPNG)
}

// GetSharedViews godoc
// GET /api/v1/shared/:token/views
func (h *ExplorerHandler) GetSharedViews(c *gin.Context) {
	p, ok := middleware.GetShareParams(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidShareToken)
		return
	}

	res, err := h.explorer.Views(p)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// fail maps service errors onto the API error codes.
func (h *ExplorerHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownMajor):
		response.Fail(c, http.StatusBadRequest, response.ErrUnknownMajor)
	case errors.Is(err, chart.ErrUnsupportedFormat):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidFormat)
	default:
		h.log.Error().Err(err).Msg("Explorer request failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrRenderFailed)
	}
}
