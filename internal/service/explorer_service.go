package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/sat-explorer/internal/chart"
	"github.com/stemsi/sat-explorer/internal/config"
	"github.com/stemsi/sat-explorer/internal/filter"
	"github.com/stemsi/sat-explorer/internal/metrics"
	"github.com/stemsi/sat-explorer/internal/model"
	"github.com/stemsi/sat-explorer/internal/summary"
	"golang.org/x/sync/singleflight"
)

// Domain Errors
var (
	ErrUnknownMajor = errors.New("major is not present in the dataset")
)

// ExplorerService filters the loaded dataset and renders charts for it.
// The dataset is shared read-only by every caller.
type ExplorerService struct {
	ds       *model.Dataset
	cache    ChartCache
	cacheTTL time.Duration
	group    singleflight.Group
	log      zerolog.Logger
}

// NewExplorerService creates a new ExplorerService. cache may be nil.
func NewExplorerService(ds *model.Dataset, cache ChartCache, cacheTTL time.Duration, log zerolog.Logger) *ExplorerService {
	if cache == nil {
		cache = noopCache{}
	}
	metrics.DatasetRows.Set(float64(ds.Len()))
	return &ExplorerService{
		ds:       ds,
		cache:    cache,
		cacheTTL: cacheTTL,
		log:      log.With().Str("component", "explorer_service").Logger(),
	}
}

// Dataset returns the loaded dataset.
func (s *ExplorerService) Dataset() *model.Dataset {
	return s.ds
}

// Controls describes the sliders and the major selector.
func (s *ExplorerService) Controls() model.ControlSpec {
	majors := make([]string, len(s.ds.Majors))
	copy(majors, s.ds.Majors)
	return model.ControlSpec{
		ScoreMin:     model.ScoreLowerBound,
		ScoreMax:     model.ScoreUpperBound,
		ScoreStep:    model.ScoreStep,
		DefaultMin:   model.DefaultMinScore,
		DefaultMax:   model.DefaultMaxScore,
		Majors:       majors,
		DefaultMajor: model.AllMajors,
	}
}

// Validate checks that p selects a known major. Score bounds are not
// checked against each other; min above max is a valid, empty selection.
func (s *ExplorerService) Validate(p model.Params) error {
	if !s.ds.HasMajor(p.Major) {
		return fmt.Errorf("%w: %q", ErrUnknownMajor, p.Major)
	}
	return nil
}

// Views filters the dataset and summarizes both views.
func (s *ExplorerService) Views(p model.Params) (*model.ViewResult, error) {
	if err := s.Validate(p); err != nil {
		return nil, err
	}

	erw, math := filter.Apply(s.ds.Records, p)

	erwSummary, err := summary.ERW(erw)
	if err != nil {
		return nil, fmt.Errorf("summarize erw: %w", err)
	}
	mathSummary, err := summary.Math(math)
	if err != nil {
		return nil, fmt.Errorf("summarize math: %w", err)
	}

	return &model.ViewResult{
		Params:  p,
		ERW:     erw,
		Math:    math,
		Summary: []model.Series{erwSummary, mathSummary},
	}, nil
}

// Chart renders the chart for p, consulting the cache first. Concurrent
// requests for the same chart share one render.
func (s *ExplorerService) Chart(ctx context.Context, p model.Params, format chart.Format) ([]byte, error) {
	if err := s.Validate(p); err != nil {
		return nil, err
	}

	key := config.CacheKey.ChartKey(s.ds.Fingerprint, string(format), p.MinScore, p.MaxScore, p.Major)

	if data, ok, err := s.cache.Get(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Chart cache read failed")
	} else if ok {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return data, nil
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		data, err := s.render(p, format)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("Chart cache write failed")
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (s *ExplorerService) render(p model.Params, format chart.Format) ([]byte, error) {
	start := time.Now()
	erw, math := filter.Apply(s.ds.Records, p)
	data, err := chart.Render(erw, math, s.ds.Majors, format)
	metrics.ObserveRender(string(format), start, err)
	if err != nil {
		s.log.Error().Err(err).Str("format", string(format)).Msg("Chart render failed")
	}
	return data, err
}
