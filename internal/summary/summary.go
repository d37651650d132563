// Package summary computes descriptive statistics for a filtered view.
package summary

import (
	"github.com/montanaflynn/stats"
	"github.com/stemsi/sat-explorer/internal/model"
)

// Of summarizes the scores selected by score for every row of view. An empty
// view yields a zero Series with only the name set.
func Of(name string, view model.View, score func(model.Record) int) (model.Series, error) {
	s := model.Series{Name: name, Count: len(view)}
	if len(view) == 0 {
		return s, nil
	}

	data := make(stats.Float64Data, len(view))
	for i, r := range view {
		data[i] = float64(score(r))
	}

	var err error
	if s.Mean, err = data.Mean(); err != nil {
		return s, err
	}
	if s.Median, err = data.Median(); err != nil {
		return s, err
	}
	if s.Min, err = data.Min(); err != nil {
		return s, err
	}
	if s.Max, err = data.Max(); err != nil {
		return s, err
	}
	s.Mean, _ = stats.Round(s.Mean, 2)
	return s, nil
}

// ERW summarizes the ERW scores of view.
func ERW(view model.View) (model.Series, error) {
	return Of("ERW", view, func(r model.Record) int { return r.ERW })
}

// Math summarizes the Math scores of view.
func Math(view model.View) (model.Series, error) {
	return Of("Math", view, func(r model.Record) int { return r.Math })
}
