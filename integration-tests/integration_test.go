//go:build integration
// +build integration

package integration_test

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejusbharadwaj/neso-solar-consumer/internal/api"
	"github.com/tejusbharadwaj/neso-solar-consumer/internal/database"
	"github.com/tejusbharadwaj/neso-solar-consumer/internal/events"
	"github.com/tejusbharadwaj/neso-solar-consumer/internal/forecast"
	"github.com/tejusbharadwaj/neso-solar-consumer/internal/metrics"
	"github.com/tejusbharadwaj/neso-solar-consumer/internal/pipeline"
)

const nesoBody = `{
  "success": true,
  "result": {
    "records": [
      {"DATE_GMT": "2025-01-14T00:00:00", "TIME_GMT": "05:30", "SETTLEMENT_PERIOD": 12, "EMBEDDED_SOLAR_FORECAST": 0},
      {"DATE_GMT": "2025-01-14T00:00:00", "TIME_GMT": "06:00", "SETTLEMENT_PERIOD": 13, "EMBEDDED_SOLAR_FORECAST": 101},
      {"DATE_GMT": "2025-01-14T00:00:00", "TIME_GMT": "06:30", "SETTLEMENT_PERIOD": 14, "EMBEDDED_SOLAR_FORECAST": 200}
    ]
  }
}`

// Helper function to get environment variables with defaults
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func connString() string {
	if url := os.Getenv("DB_URL"); url != "" {
		return url
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnvOrDefault("DB_HOST", "db"),
		getEnvOrDefault("DB_PORT", "5432"),
		getEnvOrDefault("DB_USER", "neso"),
		getEnvOrDefault("DB_PASSWORD", "neso"),
		getEnvOrDefault("DB_NAME", "neso"),
	)
}

func setupTestDB(t *testing.T) (*database.PostgresRepo, *sql.DB) {
	t.Helper()
	connStr := connString()

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile("schema.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	_, err = db.Exec(`TRUNCATE TABLE forecast_value_last_seven_days, forecast_value, forecast,
        input_data_last_updated, location, ml_model RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	repo, err := database.NewPostgresRepo(connStr, database.PoolConfig{MaxConnections: 4})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	return repo, db
}

func newPipeline(t *testing.T, repo *database.PostgresRepo, baseURL string) *pipeline.Pipeline {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	catalog, err := database.NewCachedCatalog(repo, 16)
	require.NoError(t, err)

	client := api.NewClient(api.ClientConfig{BaseURL: baseURL, Timeout: 5 * time.Second}, logger)
	mapper := forecast.NewMapper(catalog, forecast.Options{}, logger)

	return pipeline.New(pipeline.Config{
		ResourceID:          "db6c038f-98af-4570-ab60-24d71ebd0ae5",
		Limit:               5,
		ModelName:           "real_data_model",
		ModelVersion:        "1.0",
		SaveToLastSevenDays: true,
	}, client, mapper, repo, events.NopPublisher{}, metrics.New(prometheus.NewRegistry()), logger)
}

func TestPipelineSavesForecast(t *testing.T) {
	repo, db := setupTestDB(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, nesoBody)
	}))
	defer srv.Close()

	res, err := newPipeline(t, repo, srv.URL).Run(context.Background())
	require.NoError(t, err)
	require.True(t, res.Saved)

	var forecasts int
	require.NoError(t, db.QueryRow("SELECT count(*) FROM forecast").Scan(&forecasts))
	assert.Equal(t, 1, forecasts)

	rows, err := db.Query(`
        SELECT target_time, expected_power_generation_megawatts
        FROM forecast_value
        ORDER BY target_time
    `)
	require.NoError(t, err)
	defer rows.Close()

	var got []float64
	var first time.Time
	for rows.Next() {
		var ts time.Time
		var mw float64
		require.NoError(t, rows.Scan(&ts, &mw))
		if first.IsZero() {
			first = ts
		}
		got = append(got, mw)
	}
	require.NoError(t, rows.Err())
	require.Len(t, got, 3)
	assert.InDelta(t, 0.0, got[0], 1e-9)
	assert.InDelta(t, 0.101, got[1], 1e-9)
	assert.InDelta(t, 0.2, got[2], 1e-9)
	assert.True(t, first.Equal(time.Date(2025, 1, 14, 5, 30, 0, 0, time.UTC)))

	var recent int
	require.NoError(t, db.QueryRow("SELECT count(*) FROM forecast_value_last_seven_days").Scan(&recent))
	assert.Equal(t, 3, recent)

	var label string
	require.NoError(t, db.QueryRow("SELECT label FROM location WHERE gsp_id = 0").Scan(&label))
	assert.Equal(t, "National", label)
}

func TestPipelineRerunReusesCatalog(t *testing.T) {
	repo, db := setupTestDB(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, nesoBody)
	}))
	defer srv.Close()

	p := newPipeline(t, repo, srv.URL)
	for i := 0; i < 2; i++ {
		_, err := p.Run(context.Background())
		require.NoError(t, err)
	}

	var models, locations, forecasts int
	require.NoError(t, db.QueryRow("SELECT count(*) FROM ml_model").Scan(&models))
	require.NoError(t, db.QueryRow("SELECT count(*) FROM location").Scan(&locations))
	require.NoError(t, db.QueryRow("SELECT count(*) FROM forecast").Scan(&forecasts))
	assert.Equal(t, 1, models)
	assert.Equal(t, 1, locations)
	assert.Equal(t, 2, forecasts)
}

func TestPipelineUnreachableAPI(t *testing.T) {
	repo, db := setupTestDB(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	res, err := newPipeline(t, repo, url).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Saved)
	assert.Error(t, res.FetchErr)

	var forecasts int
	require.NoError(t, db.QueryRow("SELECT count(*) FROM forecast").Scan(&forecasts))
	assert.Zero(t, forecasts)
}
