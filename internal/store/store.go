package store

import (
	"context"

	"github.com/manp-monitoring/report-service/internal/model"
)

// Store defines the persistence interface for field reports.
type Store interface {
	// UpsertReport inserts a report, silently keeping the existing row when
	// the id already exists. First write wins; no fields are merged.
	UpsertReport(ctx context.Context, report *model.Report) error

	// ListReportsByUser returns all reports for a user, newest first.
	ListReportsByUser(ctx context.Context, userID string) ([]*model.Report, error)

	Close() error
}
