package boltdb

import (
	"context"
	"fmt"
	"time"

	"paystore/internal/store"
	"paystore/pkg/utils"

	"github.com/boltdb/bolt"
	"github.com/golang/glog"
)

// Client stores order records in a single bolt bucket.
type Client struct {
	bdb    *bolt.DB
	bucket []byte
}

var _ store.Store = (*Client)(nil)

// Open opens or creates the db file at dbPath and makes sure bucketName exists.
func Open(dbPath, bucketName string) (*Client, error) {
	if err := utils.CheckParentDir(dbPath); err != nil {
		glog.Errorf("utils.CheckParentDir %s, err:%s", dbPath, err.Error())
		return nil, err
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		glog.Errorf("bolt.Open %s, err:%s", dbPath, err.Error())
		return nil, err
	}

	c := &Client{bdb: db, bucket: []byte(bucketName)}
	if err := c.createBucket(); err != nil {
		glog.Errorf("createBucket %s, err:%s", bucketName, err.Error())
		_ = db.Close()
		return nil, err
	}

	return c, nil
}

func (c *Client) createBucket() error {
	return c.bdb.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(c.bucket)
		if err != nil {
			glog.Warningf("create bucket %s,err: %s", c.bucket, err.Error())
		}
		return err
	})
}

func (c *Client) Close() error {
	return c.bdb.Close()
}

func (c *Client) Put(ctx context.Context, key string, value []byte) error {
	return c.bdb.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(c.bucket)
		if err != nil {
			glog.Warningf("create bucket %s,err: %s", c.bucket, err.Error())
			return err
		}

		if err = bucket.Put([]byte(key), value); err != nil {
			glog.Warningf("bucket.Put %s,err: %s", c.bucket, err.Error())
			return err
		}
		return nil
	})
}

func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := c.bdb.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(c.bucket)
		if bucket == nil {
			return store.ErrNotFound
		}

		data := bucket.Get([]byte(key))
		if data == nil {
			return store.ErrNotFound
		}
		// data is only valid inside the transaction
		value = make([]byte, len(data))
		copy(value, data)
		return nil
	})
	return value, err
}

func (c *Client) Remove(ctx context.Context, key string) error {
	return c.bdb.Update(func(tx *bolt.Tx) error {
		//if not exist, Delete do not return error
		bucket := tx.Bucket(c.bucket)
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
}

func (c *Client) ListKeys(ctx context.Context) ([]string, error) {
	var keys []string
	err := c.bdb.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(c.bucket)
		if bucket == nil {
			return fmt.Errorf("bucket %s not found", c.bucket)
		}

		cursor := bucket.Cursor()
		for k, _ := cursor.First(); k != nil; k, _ = cursor.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys, err
}
