package services

import (
	"context"
	"io"

	"github.com/username/customsdash/backend/src/models"
)

// DefaultDatasetID names the dataset read from the configured default path.
const DefaultDatasetID = "default"

// DatasetService loads, caches and renders customs datasets.
type DatasetService interface {
	Upload(ctx context.Context, name string, data []byte) (*models.DatasetSummary, error)
	LoadDefault(ctx context.Context) (*models.DatasetSummary, error)
	Summary(ctx context.Context, datasetID, hsColumn string) (*models.DatasetSummary, error)
	Records(ctx context.Context, datasetID string, filter models.FilterRequest, hsColumn string, limit int) (*models.RecordsPage, error)
	// Dashboard returns ErrEmptyFilterResult together with a result carrying a
	// warning when no record survives the filters.
	Dashboard(ctx context.Context, datasetID string, req models.DashboardRequest) (*models.DashboardResult, error)
	ExportCSV(ctx context.Context, datasetID string, filter models.FilterRequest, hsColumn string, w io.Writer) error
	ExportXLSX(ctx context.Context, datasetID string, req models.DashboardRequest, chartID string, w io.Writer) error
}
