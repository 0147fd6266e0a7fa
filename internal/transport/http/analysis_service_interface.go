package http

import (
	"context"

	"github.com/djangbahevans/RainflowCycleCounting/internal/services"
	"github.com/djangbahevans/RainflowCycleCounting/pkg/contracts/domain"
)

// AnalysisServiceInterface is the service surface the analysis handler uses
type AnalysisServiceInterface interface {
	Run(ctx context.Context, in services.AnalysisInput) (*services.Analysis, error)
	Analyze(ctx context.Context, in services.AnalysisInput) (*domain.AnalysisResponse, error)
	AnalyzeUpload(ctx context.Context, in services.UploadInput) (*domain.AnalysisResponse, error)
}

// Ensure the concrete service satisfies the interface
var _ AnalysisServiceInterface = (*services.AnalysisService)(nil)
