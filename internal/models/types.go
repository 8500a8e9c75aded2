package models

import "time"

// APIResponse represents the CKAN datastore envelope returned by the NESO API
type APIResponse struct {
	Success bool `json:"success"`
	Result  *struct {
		Records []RawRecord `json:"records"`
	} `json:"result"`
}

// RawRecord is one datastore row keyed by source field name
type RawRecord map[string]any

// Row is a normalized forecast row
type Row struct {
	TimestampUTC time.Time
	EndUTC       *time.Time
	PowerKW      *float64
	GSPID        *int
}

// Table holds normalized rows in source order
type Table struct {
	Rows    []Row
	Dropped int
}

func (t Table) Len() int {
	return len(t.Rows)
}

func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// ForecastValue is one point of a forecast curve
type ForecastValue struct {
	TargetTime      time.Time `json:"target_time"`
	ExpectedPowerMW float64   `json:"expected_power_generation_megawatts"`
}

// Forecast is a single model's forecast curve for one location
type Forecast struct {
	Model                MLModel
	CreationTime         time.Time
	Location             Location
	InputDataLastUpdated InputDataLastUpdated
	Values               []ForecastValue
	Historic             bool
}

// MLModel identifies the model that produced a forecast
type MLModel struct {
	ID      int64
	Name    string
	Version string
}

// Location is a GSP region; GSP 0 is the national aggregate
type Location struct {
	ID    int64
	GSPID int
	Label string
}

// InputDataLastUpdated records the freshness of each input source
type InputDataLastUpdated struct {
	ID        int64
	GSP       time.Time
	NWP       time.Time
	PV        time.Time
	Satellite time.Time
}
