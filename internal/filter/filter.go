// Package filter computes the ERW and Math views for a set of control values.
package filter

import "github.com/stemsi/sat-explorer/internal/model"

// Apply returns the ERW and Math views of records for p. Both bounds are
// inclusive. A min above max yields two empty views. Row order is preserved
// and records is never modified.
func Apply(records []model.Record, p model.Params) (erw, math model.View) {
	erw = model.View{}
	math = model.View{}
	for _, r := range records {
		if p.Major != model.AllMajors && r.Major != p.Major {
			continue
		}
		if inRange(r.ERW, p) {
			erw = append(erw, r)
		}
		if inRange(r.Math, p) {
			math = append(math, r)
		}
	}
	return erw, math
}

func inRange(score int, p model.Params) bool {
	return p.MinScore <= score && score <= p.MaxScore
}
