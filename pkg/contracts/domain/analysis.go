// Package domain holds the wire types shared by the HTTP API and the CLI.
package domain

import "time"

// Analysis sources
const (
	SourceJSON   = "json"
	SourceUpload = "upload"
	SourceFile   = "file"
	SourceSheets = "sheets"
)

// AnalysisRequest is the JSON body of POST /api/v1/analyses. Values may
// mix numbers and numeric strings; entries that do not parse are dropped.
type AnalysisRequest struct {
	Name     string  `json:"name,omitempty" validate:"omitempty,max=200"`
	Values   []any   `json:"values" validate:"required,min=1"`
	BinWidth float64 `json:"bin_width,omitempty" validate:"omitempty,gt=0"`
}

// AnalysisResponse is the full result of one analysis
type AnalysisResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name,omitempty"`
	Source    string            `json:"source"`
	Digest    string            `json:"digest"`
	CreatedAt time.Time         `json:"created_at"`
	Duration  string            `json:"duration"`
	Extrema   ExtremaView       `json:"extrema"`
	Peaks     []RecordView      `json:"peaks"`
	Valleys   []RecordView      `json:"valleys"`
	Spectrum  []SpectrumBinView `json:"spectrum"`
	Histogram []SpectrumBinView `json:"histogram,omitempty"`
	Summary   SummaryView       `json:"summary"`
}

// ExtremaView pairs each extremum with its position in the cleaned signal
type ExtremaView struct {
	Values      []float64 `json:"values"`
	SignalIndex []int     `json:"signal_index"`
}

// LevelPointView is one step of a record's level history
type LevelPointView struct {
	Index int     `json:"index"`
	Level float64 `json:"level"`
}

// RecordView is one half cycle with its drawing history
type RecordView struct {
	Kind        string           `json:"kind"`
	OriginValue float64          `json:"origin_value"`
	OriginIndex int              `json:"origin_index"`
	SignalIndex int              `json:"signal_index"`
	Range       float64          `json:"range"`
	Terminated  bool             `json:"terminated"`
	History     []LevelPointView `json:"history"`
}

// SpectrumBinView counts half cycles with range in [low, high). The
// exact spectrum has low == high.
type SpectrumBinView struct {
	Low        float64 `json:"low"`
	High       float64 `json:"high"`
	HalfCycles int     `json:"half_cycles"`
	Cycles     float64 `json:"cycles"`
}

// SummaryView aggregates an analysis
type SummaryView struct {
	Samples    int     `json:"samples"`
	Extrema    int     `json:"extrema"`
	Peaks      int     `json:"peaks"`
	Valleys    int     `json:"valleys"`
	HalfCycles int     `json:"half_cycles"`
	Closed     int     `json:"closed"`
	Open       int     `json:"open"`
	FullCycles float64 `json:"full_cycles"`
	MaxRange   float64 `json:"max_range"`
}

// AnalysisEvent is the payload of analysis lifecycle events
type AnalysisEvent struct {
	Name     string       `json:"name,omitempty"`
	Source   string       `json:"source"`
	Input    int          `json:"input,omitempty"`
	Digest   string       `json:"digest,omitempty"`
	Summary  *SummaryView `json:"summary,omitempty"`
	Duration string       `json:"duration,omitempty"`
	Error    string       `json:"error,omitempty"`
}
