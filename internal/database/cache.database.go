package database

import (
	"context"
	"fmt"
	"rentflow/config"
	"rentflow/pkg/logger"
	"time"

	"github.com/valkey-io/valkey-go"
)

// Valkey Database Index Organization
const (
	// GENERAL_CACHE_INDEX (DB 0) - locks and miscellaneous keys
	GENERAL_CACHE_INDEX = iota

	// USER_CACHE_INDEX (DB 1) - user profiles
	USER_CACHE_INDEX

	// INSPECTION_CACHE_INDEX (DB 2) - full inspection trees keyed by inspection ID
	INSPECTION_CACHE_INDEX

	// EVENTS_CACHE_INDEX (DB 3) - pub/sub notifications for the delivery collaborator
	EVENTS_CACHE_INDEX
)

func (s *DB) initializeCacheDB(config config.Config) error {
	log := s.log.Function("initializeCacheDB")
	log.Info("initializing cache database")

	address := config.DatabaseCacheAddress
	port := config.DatabaseCachePort
	if address == "" || port == 0 {
		return log.Errorf("failed to initialize cache database", "address or port is empty")
	}

	initAddress := []string{fmt.Sprintf("%s:%d", address, port)}
	newClient := func(index int, name string) (CacheClient, error) {
		client, err := valkey.NewClient(valkey.ClientOption{
			InitAddress: initAddress,
			SelectDB:    index,
		})
		if err != nil {
			return nil, log.Err("failed to create valkey client", err, "cache", name)
		}
		return client, nil
	}

	var cacheDB Cache
	var err error
	if cacheDB.General, err = newClient(GENERAL_CACHE_INDEX, "general"); err != nil {
		return err
	}
	if cacheDB.User, err = newClient(USER_CACHE_INDEX, "user"); err != nil {
		return err
	}
	if cacheDB.Inspection, err = newClient(INSPECTION_CACHE_INDEX, "inspection"); err != nil {
		return err
	}
	if cacheDB.Events, err = newClient(EVENTS_CACHE_INDEX, "events"); err != nil {
		return err
	}

	s.Cache = cacheDB

	if config.DatabaseCacheReset != -1 {
		go clearCacheDB(config.DatabaseCacheReset, cacheDB)
	}

	return nil
}

func clearCacheDB(index int, cacheDB Cache) {
	log := logger.New("database").File("cache.database").Function("clearCacheDB")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var client CacheClient
	var dbName string

	switch index {
	case GENERAL_CACHE_INDEX:
		client = cacheDB.General
		dbName = "General"
	case USER_CACHE_INDEX:
		client = cacheDB.User
		dbName = "User"
	case INSPECTION_CACHE_INDEX:
		client = cacheDB.Inspection
		dbName = "Inspection"
	case EVENTS_CACHE_INDEX:
		client = cacheDB.Events
		dbName = "Events"
	default:
		log.Warn("Invalid cache database index", "index", index)
		return
	}

	if err := client.Do(ctx, client.B().Flushdb().Build()).Error(); err != nil {
		log.Er("Failed to clear cache database", err, "index", index, "dbName", dbName)
		return
	}

	log.Info("Successfully cleared cache database", "index", index, "dbName", dbName)
}
