package main

import (
	"context"
	"fmt"

	"paystore/internal/boltdb"
	"paystore/internal/conf"
	"paystore/internal/constants"
	"paystore/internal/redisdb"
	"paystore/internal/store"

	"github.com/golang/glog"
)

type closableStore interface {
	store.Store
	Close() error
}

type memoryStore struct {
	*store.Memory
}

func (memoryStore) Close() error { return nil }

// sealedStore keeps the Close of the backend it wraps.
type sealedStore struct {
	*store.Sealed
	closer func() error
}

func (s sealedStore) Close() error { return s.closer() }

// openStore opens the configured backend, sealing values when a key is set.
func openStore(ctx context.Context, cfg *conf.Config) (closableStore, error) {
	var backend closableStore
	switch cfg.Store.Backend {
	case constants.StoreBackendBolt:
		c, err := boltdb.Open(cfg.Store.BoltPath, constants.OrdersBucketName(cfg.AppID))
		if err != nil {
			return nil, err
		}
		backend = c
	case constants.StoreBackendRedis:
		c, err := redisdb.Open(ctx, redisdb.Options{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   constants.OrdersRedisPrefix(cfg.AppID),
		})
		if err != nil {
			return nil, err
		}
		backend = c
	case constants.StoreBackendMemory:
		glog.Warningf("memory store selected, orders will not survive a restart")
		backend = memoryStore{store.NewMemory()}
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	if cfg.Store.SealKey == "" {
		return backend, nil
	}
	key, err := store.ParseKey(cfg.Store.SealKey)
	if err != nil {
		backend.Close()
		return nil, err
	}
	glog.Infof("order values sealed at rest")
	return sealedStore{Sealed: store.NewSealed(backend, key), closer: backend.Close}, nil
}
