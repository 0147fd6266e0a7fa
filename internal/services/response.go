package services

import (
	"github.com/djangbahevans/RainflowCycleCounting/internal/rainflow"
	"github.com/djangbahevans/RainflowCycleCounting/internal/report"
	"github.com/djangbahevans/RainflowCycleCounting/pkg/contracts/domain"
)

// BuildResponse converts a completed analysis to its wire form
func BuildResponse(a *Analysis) *domain.AnalysisResponse {
	res := a.Result
	resp := &domain.AnalysisResponse{
		ID:        a.ID,
		Name:      a.Name,
		Source:    a.Source,
		Digest:    a.Digest,
		CreatedAt: a.CreatedAt,
		Duration:  a.Duration.String(),
		Extrema: domain.ExtremaView{
			Values:      append([]float64{}, res.Extrema.Values...),
			SignalIndex: append([]int{}, res.Extrema.SignalIndex...),
		},
		Peaks:     recordViews(res, res.Peaks),
		Valleys:   recordViews(res, res.Valleys),
		Spectrum:  binViews(report.Spectrum(res)),
		Histogram: binViews(a.Bins),
		Summary:   SummaryView(report.Summarize(res)),
	}
	if len(a.Bins) == 0 {
		resp.Histogram = nil
	}
	return resp
}

// SummaryView converts a report summary to its wire form
func SummaryView(s report.Summary) domain.SummaryView {
	return domain.SummaryView{
		Samples:    s.Samples,
		Extrema:    s.Extrema,
		Peaks:      s.Peaks,
		Valleys:    s.Valleys,
		HalfCycles: s.HalfCycles,
		Closed:     s.Closed,
		Open:       s.Open,
		FullCycles: s.FullCycles,
		MaxRange:   s.MaxRange,
	}
}

func recordViews(res *rainflow.Result, records []rainflow.Record) []domain.RecordView {
	out := make([]domain.RecordView, 0, len(records))
	for i := range records {
		r := &records[i]
		history := r.History()
		points := make([]domain.LevelPointView, len(history))
		for j, p := range history {
			points[j] = domain.LevelPointView{Index: p.Index, Level: p.Level}
		}
		out = append(out, domain.RecordView{
			Kind:        r.Kind().String(),
			OriginValue: r.OriginValue(),
			OriginIndex: r.OriginIndex(),
			SignalIndex: res.SignalIndexOf(r.OriginIndex()),
			Range:       r.Range(),
			Terminated:  r.Terminated(),
			History:     points,
		})
	}
	return out
}

func binViews(bins []report.SpectrumBin) []domain.SpectrumBinView {
	out := make([]domain.SpectrumBinView, 0, len(bins))
	for _, b := range bins {
		out = append(out, domain.SpectrumBinView{
			Low:        b.Low,
			High:       b.High,
			HalfCycles: b.HalfCycles,
			Cycles:     b.Cycles(),
		})
	}
	return out
}
