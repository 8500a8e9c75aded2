package forecast

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejusbharadwaj/neso-solar-consumer/internal/models"
)

type stubCatalog struct {
	modelCalls    int
	inputCalls    int
	locationCalls []int
	locationErr   error
}

func (s *stubCatalog) GetModel(_ context.Context, name, version string) (models.MLModel, error) {
	s.modelCalls++
	return models.MLModel{ID: 1, Name: name, Version: version}, nil
}

func (s *stubCatalog) GetLatestInputDataLastUpdated(context.Context) (models.InputDataLastUpdated, error) {
	s.inputCalls++
	return models.InputDataLastUpdated{ID: 9}, nil
}

func (s *stubCatalog) GetLocation(_ context.Context, gspID int) (models.Location, error) {
	s.locationCalls = append(s.locationCalls, gspID)
	if s.locationErr != nil {
		return models.Location{}, s.locationErr
	}
	return models.Location{ID: int64(gspID + 100), GSPID: gspID}, nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func ptr[T any](v T) *T { return &v }

func row(hour, minute int, kw *float64) models.Row {
	return models.Row{
		TimestampUTC: time.Date(2025, 1, 14, hour, minute, 0, 0, time.UTC),
		PowerKW:      kw,
	}
}

func fixedMapper(catalog Catalog, opts Options) *Mapper {
	m := NewMapper(catalog, opts, testLogger())
	m.now = func() time.Time { return time.Date(2025, 1, 14, 4, 0, 0, 0, time.UTC) }
	return m
}

func TestMapScenario(t *testing.T) {
	catalog := &stubCatalog{}
	table := models.Table{Rows: []models.Row{
		row(5, 30, ptr(0.0)),
		row(6, 0, ptr(101.0)),
		row(6, 30, ptr(200.0)),
	}}

	forecasts, err := fixedMapper(catalog, Options{}).Map(context.Background(), table, "real_data_model", "1.0")
	require.NoError(t, err)
	require.Len(t, forecasts, 1)

	f := forecasts[0]
	assert.Equal(t, "real_data_model", f.Model.Name)
	assert.Equal(t, "1.0", f.Model.Version)
	assert.Equal(t, NationalGSPID, f.Location.GSPID)
	assert.Equal(t, int64(9), f.InputDataLastUpdated.ID)
	assert.False(t, f.Historic)
	assert.Equal(t, time.UTC, f.CreationTime.Location())

	require.Len(t, f.Values, 3)
	assert.Equal(t, time.Date(2025, 1, 14, 5, 30, 0, 0, time.UTC), f.Values[0].TargetTime)
	assert.Equal(t, 0.0, f.Values[0].ExpectedPowerMW)
	assert.InDelta(t, 0.101, f.Values[1].ExpectedPowerMW, 1e-12)
	assert.InDelta(t, 0.2, f.Values[2].ExpectedPowerMW, 1e-12)

	assert.Equal(t, 1, catalog.modelCalls)
	assert.Equal(t, 1, catalog.inputCalls)
	assert.Equal(t, []int{NationalGSPID}, catalog.locationCalls)
}

func TestMapUnitConversion(t *testing.T) {
	table := models.Table{Rows: []models.Row{row(12, 0, ptr(1000.0))}}

	forecasts, err := fixedMapper(&stubCatalog{}, Options{}).Map(context.Background(), table, "m", "1")
	require.NoError(t, err)
	require.Len(t, forecasts, 1)
	assert.Equal(t, 1.0, forecasts[0].Values[0].ExpectedPowerMW)
}

func TestMapDeduplicates(t *testing.T) {
	table := models.Table{Rows: []models.Row{
		row(6, 0, ptr(101.0)),
		row(6, 0, ptr(101.0)),
		row(6, 30, ptr(200.0)),
	}}

	forecasts, err := fixedMapper(&stubCatalog{}, Options{}).Map(context.Background(), table, "m", "1")
	require.NoError(t, err)
	require.Len(t, forecasts, 1)
	assert.Len(t, forecasts[0].Values, 2)
}

func TestMapSkipsNulls(t *testing.T) {
	table := models.Table{Rows: []models.Row{
		row(5, 30, nil),
		{PowerKW: ptr(10.0)},
		row(6, 0, ptr(101.0)),
	}}

	forecasts, err := fixedMapper(&stubCatalog{}, Options{}).Map(context.Background(), table, "m", "1")
	require.NoError(t, err)
	require.Len(t, forecasts, 1)
	require.Len(t, forecasts[0].Values, 1)
	assert.Equal(t, 6, forecasts[0].Values[0].TargetTime.Hour())
}

func TestMapAllNullReturnsEmpty(t *testing.T) {
	catalog := &stubCatalog{}
	table := models.Table{Rows: []models.Row{
		row(5, 30, nil),
		row(6, 0, nil),
	}}

	forecasts, err := fixedMapper(catalog, Options{}).Map(context.Background(), table, "m", "1")
	require.NoError(t, err)
	assert.Empty(t, forecasts)
	assert.Zero(t, catalog.modelCalls)
	assert.Empty(t, catalog.locationCalls)
}

func TestMapIsIdempotent(t *testing.T) {
	table := models.Table{Rows: []models.Row{
		row(5, 30, ptr(0.0)),
		row(6, 0, ptr(101.0)),
	}}
	mapper := NewMapper(&stubCatalog{}, Options{}, testLogger())

	first, err := mapper.Map(context.Background(), table, "m", "1")
	require.NoError(t, err)
	second, err := mapper.Map(context.Background(), table, "m", "1")
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Values, second[0].Values)
}

func TestMapPerGSP(t *testing.T) {
	catalog := &stubCatalog{}
	gsp := func(r models.Row, id int) models.Row {
		r.GSPID = ptr(id)
		return r
	}
	table := models.Table{Rows: []models.Row{
		gsp(row(6, 0, ptr(10.0)), 5),
		gsp(row(6, 0, ptr(20.0)), 3),
		row(6, 0, ptr(30.0)),
		gsp(row(6, 30, ptr(11.0)), 5),
	}}

	forecasts, err := fixedMapper(catalog, Options{LocationMode: LocationPerGSP}).Map(context.Background(), table, "m", "1")
	require.NoError(t, err)
	require.Len(t, forecasts, 3)

	assert.Equal(t, []int{5, 3, NationalGSPID}, catalog.locationCalls)
	assert.Len(t, forecasts[0].Values, 2)
	assert.Len(t, forecasts[1].Values, 1)
	assert.Len(t, forecasts[2].Values, 1)
	assert.Equal(t, 1, catalog.modelCalls)
}

func TestMapPerGSPKeepsMatchingValuesAcrossLocations(t *testing.T) {
	catalog := &stubCatalog{}
	gsp := func(r models.Row, id int) models.Row {
		r.GSPID = ptr(id)
		return r
	}
	table := models.Table{Rows: []models.Row{
		gsp(row(5, 30, ptr(0.0)), 5),
		gsp(row(5, 30, ptr(0.0)), 3),
		gsp(row(5, 30, ptr(0.0)), 3),
		gsp(row(6, 0, ptr(40.0)), 3),
	}}

	forecasts, err := fixedMapper(catalog, Options{LocationMode: LocationPerGSP}).Map(context.Background(), table, "m", "1")
	require.NoError(t, err)
	require.Len(t, forecasts, 2)

	assert.Equal(t, []int{5, 3}, catalog.locationCalls)
	assert.Len(t, forecasts[0].Values, 1)
	require.Len(t, forecasts[1].Values, 2)
	assert.True(t, forecasts[1].Values[0].TargetTime.Equal(time.Date(2025, 1, 14, 5, 30, 0, 0, time.UTC)))
	assert.InDelta(t, 0.04, forecasts[1].Values[1].ExpectedPowerMW, 1e-9)
}

func TestMapNationalIgnoresGSP(t *testing.T) {
	catalog := &stubCatalog{}
	r := row(6, 0, ptr(10.0))
	r.GSPID = ptr(5)

	forecasts, err := fixedMapper(catalog, Options{}).Map(context.Background(), models.Table{Rows: []models.Row{r}}, "m", "1")
	require.NoError(t, err)
	require.Len(t, forecasts, 1)
	assert.Equal(t, []int{NationalGSPID}, catalog.locationCalls)
}

func TestMapCatalogError(t *testing.T) {
	boom := errors.New("connection refused")
	catalog := &stubCatalog{locationErr: boom}
	table := models.Table{Rows: []models.Row{row(6, 0, ptr(10.0))}}

	forecasts, err := fixedMapper(catalog, Options{}).Map(context.Background(), table, "m", "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, forecasts)
}

func TestDeduplicate(t *testing.T) {
	end := time.Date(2025, 1, 14, 6, 30, 0, 0, time.UTC)
	withEnd := row(6, 0, ptr(5.0))
	withEnd.EndUTC = &end

	rows := []models.Row{
		row(6, 0, ptr(5.0)),
		withEnd,
		row(6, 0, ptr(5.0)),
		row(6, 0, ptr(6.0)),
		row(6, 0, nil),
		row(6, 0, nil),
	}

	out := Deduplicate(rows)
	require.Len(t, out, 4)
	assert.Nil(t, out[0].EndUTC)
	assert.NotNil(t, out[1].EndUTC)
	assert.Equal(t, 6.0, *out[2].PowerKW)
	assert.Nil(t, out[3].PowerKW)
}
