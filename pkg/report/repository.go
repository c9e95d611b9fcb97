package report

import "context"

// Repository persists run reports.
type Repository interface {
	// Load retrieves the last saved report.
	// Returns an empty report and nil error if none exists.
	Load(ctx context.Context) (Report, error)

	// Save persists the report atomically.
	Save(ctx context.Context, r Report) error
}
