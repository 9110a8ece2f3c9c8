// Package repository persists risk reports and loads the department catalog.
package repository

import (
	"context"
	"time"

	"github.com/okian/triage/internal/domain/model"
	"github.com/okian/triage/internal/domain/routing"
)

// StoredReport is a persisted assessment.
type StoredReport struct {
	Report    model.RiskReport
	CreatedAt time.Time
}

// ReportStore provides read/write access to past assessments.
type ReportStore interface {
	// Save persists report under report.AssessmentID.
	Save(ctx context.Context, report model.RiskReport) error
	// Get returns the report with the given assessment ID.
	// Returns ErrNotFound if the ID is unknown.
	Get(ctx context.Context, id string) (StoredReport, error)
	// Recent returns up to limit reports, newest first.
	Recent(ctx context.Context, limit int) ([]StoredReport, error)
}

// CatalogLoader builds a fresh department catalog from its source.
type CatalogLoader interface {
	LoadCatalog(ctx context.Context) (*routing.Catalog, error)
}
