package model

import "time"

// AllMajors is the sentinel major option that disables major filtering.
const AllMajors = "All"

// Record is one row of the score dataset.
type Record struct {
	ERW   int    `json:"erw"`
	Math  int    `json:"math"`
	Major string `json:"major"`
}

// Dataset is the immutable, in-memory score table loaded at startup.
type Dataset struct {
	Records []Record
	// Majors holds the selector options: AllMajors first, then distinct
	// majors in first-seen order.
	Majors []string
	// Fingerprint identifies the dataset contents for cache keys.
	Fingerprint string
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// HasMajor reports whether major is a valid selector option.
func (d *Dataset) HasMajor(major string) bool {
	for _, m := range d.Majors {
		if m == major {
			return true
		}
	}
	return false
}

// Params is the current state of the three controls.
type Params struct {
	MinScore int    `json:"min_score"`
	MaxScore int    `json:"max_score"`
	Major    string `json:"major"`
}

// View is a filtered subset of dataset rows.
type View []Record

// Interaction is one control change handled by an interactive session.
type Interaction struct {
	SessionID string `json:"session_id"`
	Params
	ERWCount  int       `json:"erw_count"`
	MathCount int       `json:"math_count"`
	RenderMS  int64     `json:"render_ms"`
	At        time.Time `json:"at"`
}
