// Package database owns the valkey-backed cache layer: per-concern
// client handles (general, session, user, events, per-client API) plus
// the generic CacheBuilder fluent helper. The catalog's SQL store lives
// in internal/catalog instead, with its own lifecycle (a single
// embedded SQLite file guarded by a process-wide RWMutex) that doesn't
// fit this package's "just valkey" scope.
package database

import (
	"context"
	"time"

	"lms/config"
	"lms/pkg/logger"

	"github.com/valkey-io/valkey-go"
)

type CacheClient valkey.Client

type Cache struct {
	General   CacheClient
	Session   CacheClient
	User      CacheClient
	Events    CacheClient
	ClientAPI CacheClient
}

type DB struct {
	Cache Cache
	log   logger.Logger
}

func New(config config.Config) (DB, error) {
	log := logger.New("database").Function("New")

	log.Info("Initializing cache database")
	db := &DB{log: log}

	if err := db.initializeCacheDB(config); err != nil {
		return DB{}, log.Err("failed to initialize cache database", err)
	}

	return *db, nil
}

func (s *DB) Close() (err error) {
	clients := []CacheClient{s.Cache.General, s.Cache.Session, s.Cache.User, s.Cache.Events, s.Cache.ClientAPI}
	for _, c := range clients {
		if c != nil {
			c.Close()
		}
	}
	return nil
}

func (s *DB) FlushAllCaches() error {
	log := s.log.Function("FlushAllCaches")
	log.Info("Flushing all cache databases")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cacheClients := []struct {
		client CacheClient
		name   string
	}{
		{s.Cache.General, "General"},
		{s.Cache.Session, "Session"},
		{s.Cache.User, "User"},
		{s.Cache.Events, "Events"},
		{s.Cache.ClientAPI, "ClientAPI"},
	}

	for _, cache := range cacheClients {
		if cache.client != nil {
			if err := cache.client.Do(ctx, cache.client.B().Flushdb().Build()).Error(); err != nil {
				log.Er("Failed to flush cache database", err, "cache", cache.name)
				return err
			}
			log.Info("Successfully flushed cache database", "cache", cache.name)
		}
	}

	log.Info("All cache databases flushed successfully")
	return nil
}
