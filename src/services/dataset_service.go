// backend/src/services/dataset_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/customsdash/backend/src/database"
	"github.com/username/customsdash/backend/src/logger"
	"github.com/username/customsdash/backend/src/models"
	"github.com/username/customsdash/backend/src/parsers"
	"github.com/username/customsdash/backend/src/processors"
	"github.com/username/customsdash/backend/src/utils"
	"golang.org/x/sync/singleflight"
)

const (
	// Parsed datasets never expire; a new source is a new key.
	ckDataset = "ds_%s"

	// Rendered dashboards, keyed by dataset id and request hash.
	ckDashboard = "dash_%s_%s"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute

	emptyFilterWarning = "No records match the selected filters."
)

// datasetEntry is an immutable cache value.
type datasetEntry struct {
	ID      string
	Name    string
	Table   models.CanonicalTable
	Options models.FilterOptions
}

// DatasetServiceOptions carries the configuration the service needs.
type DatasetServiceOptions struct {
	ParseOptions      parsers.Options
	DefaultSourcePath string
	DashboardTTL      time.Duration
	ClampTopN         func(int) int
}

type datasetServiceImpl struct {
	normalizer  processors.SchemaNormalizer
	charts      processors.ChartProcessor
	sources     *database.SourceRepository
	reportCache *cache.Cache
	loads       singleflight.Group
	opts        DatasetServiceOptions
}

// NewDatasetService wires the service. sources may be nil, in which case
// uploads live only as long as the process.
func NewDatasetService(
	normalizer processors.SchemaNormalizer,
	charts processors.ChartProcessor,
	sources *database.SourceRepository,
	reportCache *cache.Cache,
	opts DatasetServiceOptions,
) DatasetService {
	if opts.DashboardTTL <= 0 {
		opts.DashboardTTL = DefaultCacheExpiration
	}
	if opts.ClampTopN == nil {
		opts.ClampTopN = func(n int) int { return n }
	}
	return &datasetServiceImpl{
		normalizer:  normalizer,
		charts:      charts,
		sources:     sources,
		reportCache: reportCache,
		opts:        opts,
	}
}

func (s *datasetServiceImpl) Upload(ctx context.Context, name string, data []byte) (*models.DatasetSummary, error) {
	id := utils.ContentHash(data)
	entry, err := s.load(ctx, id, models.Source{Name: name, Data: data})
	if err != nil {
		return nil, err
	}
	return models.NewDatasetSummary(entry.ID, entry.Name, entry.Table, entry.Options), nil
}

func (s *datasetServiceImpl) LoadDefault(ctx context.Context) (*models.DatasetSummary, error) {
	entry, err := s.loadDefault(ctx)
	if err != nil {
		return nil, err
	}
	return models.NewDatasetSummary(entry.ID, entry.Name, entry.Table, entry.Options), nil
}

func (s *datasetServiceImpl) Summary(ctx context.Context, datasetID, hsColumn string) (*models.DatasetSummary, error) {
	entry, err := s.dataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	table, err := withHSColumn(entry.Table, hsColumn)
	if err != nil {
		return nil, err
	}
	opts := entry.Options
	if table.HSColumn != entry.Table.HSColumn {
		opts = processors.FilterOptions(table)
	}
	return models.NewDatasetSummary(entry.ID, entry.Name, table, opts), nil
}

func (s *datasetServiceImpl) Records(ctx context.Context, datasetID string, filter models.FilterRequest, hsColumn string, limit int) (*models.RecordsPage, error) {
	entry, err := s.dataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	table, err := withHSColumn(entry.Table, hsColumn)
	if err != nil {
		return nil, err
	}

	view := processors.ApplyFilters(table, filter)
	rows := view.Records
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	columns := make([]string, 0, len(models.CanonicalFields))
	for _, f := range view.Capabilities.Present() {
		columns = append(columns, string(f))
	}
	return &models.RecordsPage{DatasetID: entry.ID, Total: view.Len(), Columns: columns, Rows: rows}, nil
}

func (s *datasetServiceImpl) Dashboard(ctx context.Context, datasetID string, req models.DashboardRequest) (*models.DashboardResult, error) {
	log := logger.FromContext(ctx)

	entry, err := s.dataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	req, err = s.normalizeRequest(req)
	if err != nil {
		return nil, err
	}

	reqHash, err := utils.GenerateETag(req)
	if err != nil {
		return nil, fmt.Errorf("hash dashboard request: %w", err)
	}
	cacheKey := fmt.Sprintf(ckDashboard, entry.ID, reqHash)
	if cached, found := s.reportCache.Get(cacheKey); found {
		log.Debug("Cache hit for dashboard", "datasetID", entry.ID)
		result := cached.(*models.DashboardResult)
		if result.Warning != "" {
			return result, ErrEmptyFilterResult
		}
		return result, nil
	}

	table, err := withHSColumn(entry.Table, req.HSColumn)
	if err != nil {
		return nil, err
	}

	view := processors.ApplyFilters(table, req.Filter)
	result := &models.DashboardResult{
		DatasetID: entry.ID,
		Request:   req,
		RowCount:  view.Len(),
		Charts:    []models.ChartTable{},
		Skipped:   []models.SkippedChart{},
	}
	if view.Len() == 0 {
		log.Info("Dashboard filters matched no records", "datasetID", entry.ID)
		result.Warning = emptyFilterWarning
		s.reportCache.Set(cacheKey, result, s.opts.DashboardTTL)
		return result, ErrEmptyFilterResult
	}

	yearless := processors.ApplyFilters(table, req.Filter.WithoutYear())
	charts, skipped := s.charts.Build(view, yearless, req)
	result.Charts = charts
	if skipped != nil {
		result.Skipped = skipped
	}

	s.reportCache.Set(cacheKey, result, s.opts.DashboardTTL)
	log.Info("Dashboard computed", "datasetID", entry.ID, "rows", view.Len(), "charts", len(charts), "skipped", len(result.Skipped))
	return result, nil
}

func (s *datasetServiceImpl) normalizeRequest(req models.DashboardRequest) (models.DashboardRequest, error) {
	switch req.Metric {
	case "":
		req.Metric = models.FieldValue
	case models.FieldValue, models.FieldQuantity:
	default:
		return req, fmt.Errorf("%w: metric must be %q or %q", ErrInvalidRequest, models.FieldValue, models.FieldQuantity)
	}
	if req.TopN < 0 {
		return req, fmt.Errorf("%w: top_n must be positive", ErrInvalidRequest)
	}
	req.TopN = s.opts.ClampTopN(req.TopN)
	return req, nil
}

// withHSColumn applies a user-confirmed HS column to the table.
func withHSColumn(table models.CanonicalTable, hsColumn string) (models.CanonicalTable, error) {
	if hsColumn == "" || hsColumn == table.HSColumn {
		return table, nil
	}
	out, ok := table.WithHSColumn(hsColumn)
	if !ok {
		return table, fmt.Errorf("%w: unknown hs_column %q", ErrInvalidRequest, hsColumn)
	}
	return out, nil
}

// dataset resolves a dataset id through the cache, then the source store.
func (s *datasetServiceImpl) dataset(ctx context.Context, datasetID string) (*datasetEntry, error) {
	if datasetID == DefaultDatasetID {
		return s.loadDefault(ctx)
	}
	if cached, found := s.reportCache.Get(fmt.Sprintf(ckDataset, datasetID)); found {
		return cached.(*datasetEntry), nil
	}
	if s.sources == nil {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, datasetID)
	}

	stored, err := s.sources.Get(ctx, datasetID)
	if errors.Is(err, database.ErrSourceNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, datasetID)
	}
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("Restoring dataset from source store", "datasetID", datasetID, "name", stored.Name)
	return s.load(ctx, datasetID, models.Source{Name: stored.Name, Data: stored.Content})
}

func (s *datasetServiceImpl) loadDefault(ctx context.Context) (*datasetEntry, error) {
	path := s.opts.DefaultSourcePath
	info, err := os.Stat(path)
	if err != nil {
		logger.FromContext(ctx).Error("Default source unavailable", "path", path, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, &parsers.LoadError{Source: path, Err: err})
	}
	id := utils.ContentHash(
		[]byte(path),
		[]byte(strconv.FormatInt(info.ModTime().UnixNano(), 10)),
		[]byte(strconv.FormatInt(info.Size(), 10)),
	)
	if cached, found := s.reportCache.Get(fmt.Sprintf(ckDataset, id)); found {
		return cached.(*datasetEntry), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, &parsers.LoadError{Source: path, Err: err})
	}
	return s.load(ctx, id, models.Source{Name: info.Name(), Path: path, Data: data, ModTime: info.ModTime()})
}

// load parses and normalizes src once per id. Concurrent callers for the same
// id share one parse; the result is written to the cache exactly once.
func (s *datasetServiceImpl) load(ctx context.Context, id string, src models.Source) (*datasetEntry, error) {
	key := fmt.Sprintf(ckDataset, id)
	log := logger.FromContext(ctx)

	v, err, shared := s.loads.Do(key, func() (interface{}, error) {
		if cached, found := s.reportCache.Get(key); found {
			return cached.(*datasetEntry), nil
		}
		log.Info("Cache miss for dataset, parsing source", "datasetID", id, "source", src.Name)
		start := time.Now()

		raw, err := parsers.Load(src, s.opts.ParseOptions)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
		}
		table, _ := s.normalizer.Normalize(raw, "")
		entry := &datasetEntry{
			ID:      id,
			Name:    src.Name,
			Table:   table,
			Options: processors.FilterOptions(table),
		}

		if err := s.reportCache.Add(key, entry, cache.NoExpiration); err != nil {
			// Lost a race with another writer; keep the first entry.
			if cached, found := s.reportCache.Get(key); found {
				return cached.(*datasetEntry), nil
			}
		}
		s.persist(ctx, id, src)
		log.Info("Dataset cached", "datasetID", id, "records", table.Len(), "encoding", table.Encoding, "duration", time.Since(start))
		return entry, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Debug("Dataset load shared with concurrent request", "datasetID", id)
	}
	return v.(*datasetEntry), nil
}

func (s *datasetServiceImpl) persist(ctx context.Context, id string, src models.Source) {
	if s.sources == nil {
		return
	}
	created, err := s.sources.Save(ctx, database.StoredSource{
		DatasetID: id,
		Name:      src.Name,
		Kind:      parsers.DetectKind(src),
		Content:   src.Data,
	})
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to persist dataset source", "datasetID", id, "error", err)
		return
	}
	if created {
		logger.FromContext(ctx).Debug("Dataset source persisted", "datasetID", id, "bytes", len(src.Data))
	}
}
