package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/tejusbharadwaj/neso-solar-consumer/internal/models"
	"github.com/tejusbharadwaj/neso-solar-consumer/internal/tabular"
)

const (
	DefaultBaseURL = "https://api.neso.energy"

	searchPath    = "/api/3/action/datastore_search"
	searchSQLPath = "/api/3/action/datastore_search_sql"
)

var (
	ErrInvalidRequest = errors.New("invalid datastore request")
	ErrRequest        = errors.New("error making datastore request")
	ErrStatus         = errors.New("error status from datastore")
	ErrDecode         = errors.New("failed to decode datastore response")
	ErrMissingRecords = errors.New("response has no result.records")
	ErrAPIFailure     = errors.New("datastore reported failure")
	ErrCircuitOpen    = errors.New("datastore circuit breaker open")
)

// ClientConfig configures the NESO datastore client.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration

	// BreakerMaxFailures is the number of consecutive failed requests that
	// opens the breaker. BreakerOpenTimeout is how long it stays open.
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
}

// Client fetches records from the NESO CKAN datastore and normalizes them.
//
// Every fetch either returns a populated table and a nil error, or an empty
// table together with an error describing why. Callers that only care about
// data can ignore the error and check Table.Empty.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

func NewClient(cfg ClientConfig, logger *logrus.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BreakerMaxFailures == 0 {
		cfg.BreakerMaxFailures = 5
	}
	if cfg.BreakerOpenTimeout <= 0 {
		cfg.BreakerOpenTimeout = 5 * time.Minute
	}

	maxFailures := cfg.BreakerMaxFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "neso-datastore",
		Timeout: cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		logger:     logger,
	}
}

// FetchData requests up to limit records of a datastore resource.
func (c *Client) FetchData(ctx context.Context, resourceID string, limit int) (models.Table, error) {
	if resourceID == "" {
		return c.fail("", fmt.Errorf("%w: resource id is required", ErrInvalidRequest))
	}
	if limit <= 0 {
		return c.fail("", fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidRequest, limit))
	}

	u := c.baseURL + searchPath + "?resource_id=" + resourceID + "&limit=" + strconv.Itoa(limit)
	return c.fetch(ctx, u)
}

// FetchDataUsingSQL runs a datastore SQL query, e.g.
//
//	SELECT * from "db6c038f-98af-4570-ab60-24d71ebd0ae5" LIMIT 5
func (c *Client) FetchDataUsingSQL(ctx context.Context, sqlQuery string) (models.Table, error) {
	if strings.TrimSpace(sqlQuery) == "" {
		return c.fail("", fmt.Errorf("%w: sql query is required", ErrInvalidRequest))
	}

	u := c.baseURL + searchSQLPath + "?sql=" + encodeQuery(sqlQuery)
	return c.fetch(ctx, u)
}

func (c *Client) fetch(ctx context.Context, u string) (models.Table, error) {
	body, err := c.get(ctx, u)
	if err != nil {
		return c.fail(u, err)
	}

	records, err := decodeRecords(body)
	if err != nil {
		return c.fail(u, err)
	}

	table, err := tabular.Normalize(records)
	if err != nil {
		return c.fail(u, err)
	}

	c.logger.WithFields(logrus.Fields{
		"url":     u,
		"records": len(records),
		"rows":    table.Len(),
		"dropped": table.Dropped,
	}).Debug("Fetched datastore records")

	return table, nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRequest, err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRequest, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: got %d", ErrStatus, resp.StatusCode)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRequest, err)
		}
		return data, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}

func decodeRecords(body []byte) ([]models.RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var apiResp models.APIResponse
	if err := dec.Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if apiResp.Result == nil || apiResp.Result.Records == nil {
		if !apiResp.Success {
			return nil, ErrAPIFailure
		}
		return nil, ErrMissingRecords
	}

	return apiResp.Result.Records, nil
}

func (c *Client) fail(u string, err error) (models.Table, error) {
	c.logger.WithFields(logrus.Fields{
		"url":   u,
		"error": err.Error(),
	}).Warn("Datastore fetch failed")
	return models.Table{}, err
}

var queryUnescaper = strings.NewReplacer("+", "%20", "%2F", "/")

// encodeQuery percent-encodes a query the way the datastore expects: spaces
// as %20 rather than '+', and '/' left as is.
func encodeQuery(q string) string {
	return queryUnescaper.Replace(url.QueryEscape(q))
}
