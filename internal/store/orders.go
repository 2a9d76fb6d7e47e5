package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"paystore/internal/models"

	"github.com/golang/glog"
)

// Orders persists order records on top of a byte Store. It holds no copies:
// every lookup goes back to the store.
type Orders struct {
	store Store
}

func NewOrders(s Store) *Orders {
	return &Orders{store: s}
}

// PutRecord writes rec under its OrderID.
func (o *Orders) PutRecord(ctx context.Context, rec *models.OrderRecord) error {
	if rec == nil || rec.OrderID == "" {
		return errors.New("order record without order id")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := o.store.Put(ctx, rec.OrderID, data); err != nil {
		return fmt.Errorf("put order %s: %w", rec.OrderID, err)
	}
	return nil
}

// GetRecord returns the record stored under key. Missing, unreadable and
// undecodable entries all report false; a damaged entry is never an error.
func (o *Orders) GetRecord(ctx context.Context, key string) (*models.OrderRecord, bool) {
	data, err := o.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			glog.Warningf("get order %s, err:%v", key, err)
		}
		return nil, false
	}

	rec := &models.OrderRecord{}
	if err := json.Unmarshal(data, rec); err != nil {
		glog.Warningf("decode order %s, err:%v", key, err)
		return nil, false
	}
	if rec.OrderID == "" {
		rec.OrderID = key
	}
	return rec, true
}

func (o *Orders) RemoveRecord(ctx context.Context, key string) error {
	if err := o.store.Remove(ctx, key); err != nil {
		return fmt.Errorf("remove order %s: %w", key, err)
	}
	return nil
}

func (o *Orders) Keys(ctx context.Context) ([]string, error) {
	return o.store.ListKeys(ctx)
}

// Records returns every decodable record in key order.
func (o *Orders) Records(ctx context.Context) ([]*models.OrderRecord, error) {
	keys, err := o.store.ListKeys(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]*models.OrderRecord, 0, len(keys))
	for _, key := range keys {
		rec, ok := o.GetRecord(ctx, key)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// FindPending returns the first pending record, in key order, for productID.
func (o *Orders) FindPending(ctx context.Context, productID string) (*models.OrderRecord, error) {
	return o.find(ctx, func(rec *models.OrderRecord) bool {
		return rec.ProductID == productID && !rec.IsComplete()
	})
}

// FindComplete returns the first completed record, in key order, for productID.
func (o *Orders) FindComplete(ctx context.Context, productID string) (*models.OrderRecord, error) {
	return o.find(ctx, func(rec *models.OrderRecord) bool {
		return rec.ProductID == productID && rec.IsComplete()
	})
}

// find scans all keys; the number of live orders is expected to stay small.
func (o *Orders) find(ctx context.Context, match func(*models.OrderRecord) bool) (*models.OrderRecord, error) {
	records, err := o.Records(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if match(rec) {
			return rec, nil
		}
	}
	return nil, nil
}
