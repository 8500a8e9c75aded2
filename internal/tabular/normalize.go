// Package tabular turns raw NESO datastore records into normalized forecast rows.
//
// Each record contributes one row with a UTC timestamp built from the
// DATE_GMT and TIME_GMT fields and a power value in kW taken from
// EMBEDDED_SOLAR_FORECAST. Records that cannot produce both are dropped.
// Row order always follows the source order.
package tabular

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tejusbharadwaj/neso-solar-consumer/internal/models"
)

// Source field names published by the NESO embedded forecast dataset.
const (
	DateField             = "DATE_GMT"
	TimeField             = "TIME_GMT"
	ValueField            = "EMBEDDED_SOLAR_FORECAST"
	SettlementPeriodField = "SETTLEMENT_PERIOD"
	GSPIDField            = "gsp_id"
)

const (
	timestampLayout  = "2006-01-02 15:04"
	settlementPeriod = 30 * time.Minute
)

var ErrMissingColumns = errors.New("missing expected source columns")

// Normalize converts records into a Table.
//
// An empty input yields an empty table. If a required field is absent from
// every record the whole batch is rejected with ErrMissingColumns; if it is
// only absent from some records, those records are dropped.
func Normalize(records []models.RawRecord) (models.Table, error) {
	if len(records) == 0 {
		return models.Table{}, nil
	}

	if missing := missingColumns(records); len(missing) > 0 {
		return models.Table{}, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	table := models.Table{Rows: make([]models.Row, 0, len(records))}
	for _, rec := range records {
		row, ok := normalizeRecord(rec)
		if !ok {
			table.Dropped++
			continue
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

func missingColumns(records []models.RawRecord) []string {
	var missing []string
	for _, col := range []string{DateField, TimeField, ValueField} {
		found := false
		for _, rec := range records {
			if _, ok := rec[col]; ok {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, col)
		}
	}
	return missing
}

func normalizeRecord(rec models.RawRecord) (models.Row, bool) {
	ts, ok := parseTimestamp(rec[DateField], rec[TimeField])
	if !ok {
		return models.Row{}, false
	}

	power, ok := toFloat(rec[ValueField])
	if !ok {
		return models.Row{}, false
	}

	row := models.Row{
		TimestampUTC: ts,
		PowerKW:      &power,
	}

	if v, ok := rec[SettlementPeriodField]; ok && v != nil {
		end := ts.Add(settlementPeriod)
		row.EndUTC = &end
	}

	if v, ok := rec[GSPIDField]; ok {
		if f, ok := toFloat(v); ok {
			id := int(f)
			row.GSPID = &id
		}
	}

	return row, true
}

// parseTimestamp joins the first 10 characters of the date with the trimmed
// time and parses the result as a UTC minute timestamp.
func parseTimestamp(date, clock any) (time.Time, bool) {
	d, ok := date.(string)
	if !ok {
		return time.Time{}, false
	}
	c, ok := clock.(string)
	if !ok {
		return time.Time{}, false
	}

	if len(d) > 10 {
		d = d[:10]
	}

	ts, err := time.ParseInLocation(timestampLayout, d+" "+strings.TrimSpace(c), time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// toFloat accepts finite numbers only; NaN and infinities count as missing.
func toFloat(v any) (float64, bool) {
	f, ok := parseFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
