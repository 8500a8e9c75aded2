package database

// Models and locations never change once created, so their lookups are kept in
// an LRU. Input data freshness always goes to the database.

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/tejusbharadwaj/neso-solar-consumer/internal/models"
)

type modelKey struct {
	name    string
	version string
}

type locationKey int

// CachedCatalog memoizes model and location lookups of another Catalog.
type CachedCatalog struct {
	inner Catalog
	cache *lru.Cache
}

func NewCachedCatalog(inner Catalog, size int) (*CachedCatalog, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog cache: %w", err)
	}
	return &CachedCatalog{inner: inner, cache: cache}, nil
}

func (c *CachedCatalog) GetModel(ctx context.Context, name, version string) (models.MLModel, error) {
	key := modelKey{name: name, version: version}
	if cached, ok := c.cache.Get(key); ok {
		return cached.(models.MLModel), nil
	}

	m, err := c.inner.GetModel(ctx, name, version)
	if err != nil {
		return models.MLModel{}, err
	}
	c.cache.Add(key, m)
	return m, nil
}

func (c *CachedCatalog) GetLocation(ctx context.Context, gspID int) (models.Location, error) {
	key := locationKey(gspID)
	if cached, ok := c.cache.Get(key); ok {
		return cached.(models.Location), nil
	}

	loc, err := c.inner.GetLocation(ctx, gspID)
	if err != nil {
		return models.Location{}, err
	}
	c.cache.Add(key, loc)
	return loc, nil
}

func (c *CachedCatalog) GetLatestInputDataLastUpdated(ctx context.Context) (models.InputDataLastUpdated, error) {
	return c.inner.GetLatestInputDataLastUpdated(ctx)
}

var _ Catalog = (*CachedCatalog)(nil)
