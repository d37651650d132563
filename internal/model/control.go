package model

// Slider bounds and defaults for the score range controls.
const (
	ScoreLowerBound = 200
	ScoreUpperBound = 800
	ScoreStep       = 10
	DefaultMinScore = 400
	DefaultMaxScore = 800
)

// ControlSpec describes the controls rendered by the interactive page.
type ControlSpec struct {
	ScoreMin     int      `json:"score_min"`
	ScoreMax     int      `json:"score_max"`
	ScoreStep    int      `json:"score_step"`
	DefaultMin   int      `json:"default_min"`
	DefaultMax   int      `json:"default_max"`
	Majors       []string `json:"majors"`
	DefaultMajor string   `json:"default_major"`
}

// DefaultParams returns the control values shown before any interaction.
func DefaultParams() Params {
	return Params{
		MinScore: DefaultMinScore,
		MaxScore: DefaultMaxScore,
		Major:    AllMajors,
	}
}

// Series summarizes one plotted view.
type Series struct {
	Name   string  `json:"name"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// ViewResult is the outcome of one filter pass.
type ViewResult struct {
	Params  Params   `json:"params"`
	ERW     View     `json:"erw"`
	Math    View     `json:"math"`
	Summary []Series `json:"summary"`
}
