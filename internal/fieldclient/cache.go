package fieldclient

import (
	"context"
	"encoding/json"
	"errors"
	"rentflow/internal/types"
	"rentflow/pkg/logger"
	"time"

	"github.com/google/uuid"
)

// CacheFreshness bounds how old a local copy may be and still be served.
const CacheFreshness = 24 * time.Hour

var (
	ErrCacheMiss  = errors.New("no local copy of the inspection")
	ErrCacheStale = errors.New("local copy of the inspection is too old")
)

// Cache mirrors the in-progress inspection into the device store.
type Cache struct {
	store Store
	clock Clock
	log   logger.Logger
}

func NewCache(store Store, clock Clock) *Cache {
	return &Cache{
		store: store,
		clock: clock,
		log:   logger.New("fieldclient").File("cache"),
	}
}

func (c *Cache) Save(ctx context.Context, view *types.InspectionView) error {
	log := c.log.Function("Save")

	payload, err := json.Marshal(view)
	if err != nil {
		return log.Err("failed to encode inspection", err, "inspectionID", view.ID)
	}
	if err := c.store.Put(ctx, view.ID, payload, c.clock.Now()); err != nil {
		return log.Err("failed to save inspection", err, "inspectionID", view.ID)
	}
	return nil
}

// Load returns the local copy when it is younger than CacheFreshness. A stale
// copy is deleted and reported as ErrCacheStale.
func (c *Cache) Load(ctx context.Context, id uuid.UUID) (*types.InspectionView, error) {
	log := c.log.Function("Load")

	payload, savedAt, found, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, log.Err("failed to read local copy", err, "inspectionID", id)
	}
	if !found {
		return nil, ErrCacheMiss
	}

	if c.clock.Now().Sub(savedAt) >= CacheFreshness {
		log.Info("discarding stale local copy", "inspectionID", id, "savedAt", savedAt)
		if err := c.store.Delete(ctx, id); err != nil {
			log.Warn("failed to delete stale local copy", "inspectionID", id, "error", err)
		}
		return nil, ErrCacheStale
	}

	var view types.InspectionView
	if err := json.Unmarshal(payload, &view); err != nil {
		_ = c.store.Delete(ctx, id)
		return nil, log.Err("failed to decode local copy", err, "inspectionID", id)
	}
	return &view, nil
}

func (c *Cache) Purge(ctx context.Context, id uuid.UUID) error {
	if err := c.store.Delete(ctx, id); err != nil {
		return c.log.Function("Purge").Err("failed to purge local copy", err, "inspectionID", id)
	}
	return nil
}
