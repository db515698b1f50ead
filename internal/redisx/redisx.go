package redisx

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key prefixes; everything this service writes lives under "homely:".
const (
	selectionPrefix  = "homely:session:"
	predictionPrefix = "homely:prediction:"
)

type Client struct{ Rdb *redis.Client }

func New(addr string, password string, db int) *Client {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	return &Client{Rdb: rdb}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.Rdb.Ping(ctx).Err()
}

func (c *Client) Close() error { return c.Rdb.Close() }

// Selection returns the address selected in a session; ok is false when
// the session has no selection or it expired.
func (c *Client) Selection(ctx context.Context, sessionID string) (string, bool, error) {
	v, err := c.Rdb.Get(ctx, selectionPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *Client) SetSelection(ctx context.Context, sessionID, address string, ttl time.Duration) error {
	return c.Rdb.Set(ctx, selectionPrefix+sessionID, address, ttl).Err()
}

// Prediction returns a cached rendered prediction by request digest.
func (c *Client) Prediction(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.Rdb.Get(ctx, predictionPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *Client) SetPrediction(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return c.Rdb.Set(ctx, predictionPrefix+key, val, ttl).Err()
}
