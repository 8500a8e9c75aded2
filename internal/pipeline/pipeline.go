// Package pipeline runs one fetch, map and save pass of the NESO solar
// forecast consumer.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tejusbharadwaj/neso-solar-consumer/internal/database"
	"github.com/tejusbharadwaj/neso-solar-consumer/internal/events"
	"github.com/tejusbharadwaj/neso-solar-consumer/internal/metrics"
	"github.com/tejusbharadwaj/neso-solar-consumer/internal/models"
)

type contextKey string

const runIDKey contextKey = "runID"

// RunIDFromContext returns the id of the run ctx belongs to, if any.
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// Fetcher retrieves normalized datastore tables.
type Fetcher interface {
	FetchData(ctx context.Context, resourceID string, limit int) (models.Table, error)
	FetchDataUsingSQL(ctx context.Context, sqlQuery string) (models.Table, error)
}

// Mapper turns a table into forecasts.
type Mapper interface {
	Map(ctx context.Context, table models.Table, modelTag, modelVersion string) ([]models.Forecast, error)
}

// Store persists forecasts.
type Store interface {
	SaveForecasts(ctx context.Context, forecasts []models.Forecast, opts database.SaveOptions) error
}

// Config holds the per-run parameters.
type Config struct {
	ResourceID string
	Limit      int
	// SQLQuery, when set, replaces the resource id and limit.
	SQLQuery string

	ModelName    string
	ModelVersion string

	SaveToLastSevenDays bool
}

// Result describes what a run did.
type Result struct {
	RunID     string
	Fetched   int
	Dropped   int
	Forecasts int
	Values    int
	Saved     bool
	// FetchErr is the reason the fetch came back empty, if it did.
	FetchErr error
}

type Pipeline struct {
	cfg       Config
	fetcher   Fetcher
	mapper    Mapper
	store     Store
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *logrus.Logger
}

func New(cfg Config, fetcher Fetcher, mapper Mapper, store Store, publisher events.Publisher, m *metrics.Metrics, logger *logrus.Logger) *Pipeline {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Pipeline{
		cfg:       cfg,
		fetcher:   fetcher,
		mapper:    mapper,
		store:     store,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// Run executes one pass. A fetch that yields nothing and a table that maps
// to no forecasts both end the run early without touching the store and
// without an error. Catalog failures and the save error are returned; the
// latter unchanged.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	started := time.Now()
	res := Result{RunID: uuid.NewString()}
	ctx = context.WithValue(ctx, runIDKey, res.RunID)

	log := p.logger.WithFields(logrus.Fields{
		"run_id":        res.RunID,
		"model":         p.cfg.ModelName,
		"model_version": p.cfg.ModelVersion,
	})
	log.Info("Starting NESO solar forecast run")

	table, err := p.fetch(ctx)
	res.Fetched = table.Len()
	res.Dropped = table.Dropped
	if p.metrics != nil {
		p.metrics.RowsFetched.Add(float64(res.Fetched))
		p.metrics.RowsDropped.Add(float64(res.Dropped))
	}
	if err != nil || table.Empty() {
		res.FetchErr = err
		log.WithError(err).Warn("No data fetched, nothing will be saved")
		p.metrics.ObserveRun(metrics.OutcomeFetchFailed, started)
		return res, nil
	}
	log.WithFields(logrus.Fields{
		"rows":    res.Fetched,
		"dropped": res.Dropped,
	}).Info("Fetched datastore records")

	forecasts, err := p.mapper.Map(ctx, table, p.cfg.ModelName, p.cfg.ModelVersion)
	if err != nil {
		log.WithError(err).Error("Failed to build forecasts")
		p.metrics.ObserveRun(metrics.OutcomeMapFailed, started)
		return res, fmt.Errorf("failed to build forecasts: %w", err)
	}
	if len(forecasts) == 0 {
		log.Warn("No forecasts generated, nothing will be saved")
		p.metrics.ObserveRun(metrics.OutcomeEmpty, started)
		return res, nil
	}

	res.Forecasts = len(forecasts)
	for _, f := range forecasts {
		res.Values += len(f.Values)
	}

	if err := p.store.SaveForecasts(ctx, forecasts, database.SaveOptions{SaveToLastSevenDays: p.cfg.SaveToLastSevenDays}); err != nil {
		log.WithError(err).Error("Failed to save forecasts")
		p.metrics.ObserveRun(metrics.OutcomeSaveFailed, started)
		return res, err
	}
	res.Saved = true
	if p.metrics != nil {
		p.metrics.ValuesSaved.Add(float64(res.Values))
	}

	p.publish(ctx, log, res.RunID, forecasts)

	log.WithFields(logrus.Fields{
		"forecasts": res.Forecasts,
		"values":    res.Values,
		"duration":  time.Since(started),
	}).Info("Forecasts saved")
	p.metrics.ObserveRun(metrics.OutcomeSaved, started)
	return res, nil
}

func (p *Pipeline) fetch(ctx context.Context) (models.Table, error) {
	if p.cfg.SQLQuery != "" {
		return p.fetcher.FetchDataUsingSQL(ctx, p.cfg.SQLQuery)
	}
	return p.fetcher.FetchData(ctx, p.cfg.ResourceID, p.cfg.Limit)
}

func (p *Pipeline) publish(ctx context.Context, log *logrus.Entry, runID string, forecasts []models.Forecast) {
	for _, f := range forecasts {
		ev := events.NewForecastSaved(runID, f)
		if err := p.publisher.PublishForecastSaved(ctx, ev); err != nil {
			log.WithError(err).WithField("gsp_id", ev.GSPID).Warn("Failed to publish forecast event")
		}
	}
}
