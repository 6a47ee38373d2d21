package store

import (
	"context"
	"time"

	"github.com/sells-group/repeat311/internal/model"
)

// Run describes one archived pipeline run.
type Run struct {
	ID        string    `json:"id"`
	InputPath string    `json:"input_path"`
	Features  int       `json:"features"`
	Groups    int       `json:"groups"`
	CreatedAt time.Time `json:"created_at"`
}

// RepeatAddress is one archived repeat-address group, ranked as in the report.
type RepeatAddress struct {
	Rank       int    `json:"rank"`
	AddressKey string `json:"address_key"`
	Requests   int    `json:"requests"`
}

// Store archives pipeline runs.
type Store interface {
	SaveRun(ctx context.Context, run Run, records []model.ServiceRequest, groups []model.AddressGroup) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRepeatAddresses(ctx context.Context, runID string) ([]RepeatAddress, error)
	CountRequests(ctx context.Context, runID string) (int, error)

	Migrate(ctx context.Context) error
	Close() error
}
