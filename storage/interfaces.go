package storage

import (
	"context"

	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/models"
)

// AnalysisStore is the interface any analysis storage backend must satisfy.
type AnalysisStore interface {
	// SaveAnalysis persists the analysis, its property record and risk report
	// atomically and returns the new analysis id.
	SaveAnalysis(ctx context.Context, a *models.Analysis) (int64, error)
	ListAnalyses(ctx context.Context, userID int64, limit int) ([]*models.Analysis, error)
	Close() error
}

// AnalysisArchive stores a human-readable copy of an analysis.
type AnalysisArchive interface {
	Write(a *models.Analysis) (string, error)
}
