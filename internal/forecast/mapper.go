// Package forecast maps normalized NESO rows onto forecast aggregates.
//
// A pipeline run produces a single forecast curve per model and location,
// not one forecast per row. Power values arrive in kW and are stored in MW.
package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/tejusbharadwaj/neso-solar-consumer/internal/models"
)

// NationalGSPID is the location key of the national aggregate.
const NationalGSPID = 0

const kwPerMW = 1000.0

// LocationMode selects how forecast locations are resolved.
type LocationMode string

const (
	// LocationNational puts every value on the default location.
	LocationNational LocationMode = "national"
	// LocationPerGSP builds one forecast per gsp_id found in the rows.
	LocationPerGSP LocationMode = "per_gsp"
)

// Catalog resolves references to models, locations and input data.
type Catalog interface {
	GetModel(ctx context.Context, name, version string) (models.MLModel, error)
	GetLatestInputDataLastUpdated(ctx context.Context) (models.InputDataLastUpdated, error)
	GetLocation(ctx context.Context, gspID int) (models.Location, error)
}

type Options struct {
	LocationMode LocationMode
	DefaultGSPID int
}

type Mapper struct {
	catalog Catalog
	opts    Options
	logger  *logrus.Logger
	now     func() time.Time
}

func NewMapper(catalog Catalog, opts Options, logger *logrus.Logger) *Mapper {
	if opts.LocationMode == "" {
		opts.LocationMode = LocationNational
	}
	return &Mapper{
		catalog: catalog,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
	}
}

// curve is the ordered set of values bound for one location.
type curve struct {
	gspID  int
	values []models.ForecastValue
}

// Map converts a table into forecasts.
//
// Duplicate rows within a location are collapsed and rows without a
// timestamp or power value are skipped. If nothing survives, Map returns no forecasts and no error and
// the catalog is not consulted.
func (m *Mapper) Map(ctx context.Context, table models.Table, modelTag, modelVersion string) ([]models.Forecast, error) {
	curves := m.buildCurves(table.Rows)
	if len(curves) == 0 {
		m.logger.WithField("rows", table.Len()).Warn("No forecast values left after filtering")
		return nil, nil
	}

	model, err := m.catalog.GetModel(ctx, modelTag, modelVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to get model %s/%s: %w", modelTag, modelVersion, err)
	}

	inputData, err := m.catalog.GetLatestInputDataLastUpdated(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get input data last updated: %w", err)
	}

	created := m.now().UTC()
	forecasts := make([]models.Forecast, 0, len(curves))
	for _, c := range curves {
		location, err := m.catalog.GetLocation(ctx, c.gspID)
		if err != nil {
			return nil, fmt.Errorf("failed to get location for gsp %d: %w", c.gspID, err)
		}

		forecasts = append(forecasts, models.Forecast{
			Model:                model,
			CreationTime:         created,
			Location:             location,
			InputDataLastUpdated: inputData,
			Values:               c.values,
			Historic:             false,
		})

		m.logSummary(model, c)
	}

	return forecasts, nil
}

// buildCurves groups rows by resolved location, then deduplicates and
// converts each group. Locations left without values are omitted.
func (m *Mapper) buildCurves(rows []models.Row) []curve {
	var groups [][]models.Row
	var ids []int
	index := map[int]int{}

	for _, row := range rows {
		gspID := m.gspIDOf(row)
		i, ok := index[gspID]
		if !ok {
			i = len(groups)
			index[gspID] = i
			groups = append(groups, nil)
			ids = append(ids, gspID)
		}
		groups[i] = append(groups[i], row)
	}

	curves := make([]curve, 0, len(groups))
	for i, group := range groups {
		c := curve{gspID: ids[i]}
		for _, row := range Deduplicate(group) {
			if row.TimestampUTC.IsZero() || row.PowerKW == nil {
				continue
			}
			c.values = append(c.values, models.ForecastValue{
				TargetTime:      row.TimestampUTC.UTC(),
				ExpectedPowerMW: *row.PowerKW / kwPerMW,
			})
		}
		if len(c.values) > 0 {
			curves = append(curves, c)
		}
	}

	return curves
}

func (m *Mapper) gspIDOf(row models.Row) int {
	if m.opts.LocationMode == LocationPerGSP && row.GSPID != nil {
		return *row.GSPID
	}
	return m.opts.DefaultGSPID
}

func (m *Mapper) logSummary(model models.MLModel, c curve) {
	power := make([]float64, len(c.values))
	for i, v := range c.values {
		power[i] = v.ExpectedPowerMW
	}

	m.logger.WithFields(logrus.Fields{
		"model":   model.Name,
		"version": model.Version,
		"gsp_id":  c.gspID,
		"values":  len(c.values),
		"peak_mw": floats.Max(power),
		"mean_mw": stat.Mean(power, nil),
		"start":   c.values[0].TargetTime,
		"end":     c.values[len(c.values)-1].TargetTime,
	}).Info("Formatted forecast")
}
