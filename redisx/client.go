// Package redisx wraps a Redis client with typed accessors. Redis stores
// everything as strings; these helpers fix the encoding per kind (booleans
// as 0/1, integers base 10, structured values as JSON) so call sites never
// hand-parse, and report absence as a found flag instead of an error.
package redisx

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/graniteware/granite"
	"github.com/graniteware/granite/codec"
	backend "github.com/redis/go-redis/v9"
)

// Client wraps a go-redis client with a key prefix and default TTL.
type Client struct {
	rdb    *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Client)

// WithTTL sets the default expiration applied by the Set helpers.
func WithTTL(ttl time.Duration) Option {
	return func(c *Client) { c.ttl = ttl }
}

// WithPrefix sets the prefix prepended to every key.
func WithPrefix(prefix string) Option {
	return func(c *Client) { c.prefix = prefix }
}

// New connects to the given address and wraps the connection.
func New(address, password string, db int, opts ...Option) *Client {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient wraps an existing client.
func NewFromClient(rdb *backend.Client, opts ...Option) *Client {
	c := &Client{rdb: rdb}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) key(k string) string { return c.prefix + k }

// GetString returns the string at key. found is false when the key does
// not exist.
func (c *Client) GetString(ctx context.Context, key string) (string, bool, error) {
	v, err := c.rdb.Get(ctx, c.key(key)).Result()
	if errors.Is(err, backend.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// SetString stores a string under the default TTL.
func (c *Client) SetString(ctx context.Context, key, value string) error {
	return c.rdb.Set(ctx, c.key(key), value, c.ttl).Err()
}

// GetBool reads a boolean stored as "0"/"1".
func (c *Client) GetBool(ctx context.Context, key string) (bool, bool, error) {
	v, found, err := c.GetString(ctx, key)
	if err != nil || !found {
		return false, found, err
	}
	return v == "1", true, nil
}

// SetBool stores a boolean as "0"/"1".
func (c *Client) SetBool(ctx context.Context, key string, value bool) error {
	s := "0"
	if value {
		s = "1"
	}
	return c.SetString(ctx, key, s)
}

// GetInt reads a base-10 integer.
func (c *Client) GetInt(ctx context.Context, key string) (int64, bool, error) {
	v, found, err := c.GetString(ctx, key)
	if err != nil || !found {
		return 0, found, err
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return i, true, nil
}

// SetInt stores an integer base 10.
func (c *Client) SetInt(ctx context.Context, key string, value int64) error {
	return c.SetString(ctx, key, strconv.FormatInt(value, 10))
}

// Incr atomically increments the integer at key and returns the new value.
func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	return c.rdb.Incr(ctx, c.key(key)).Result()
}

// GetJSON reads a JSON document and, when schema is non-nil, validates it
// before returning the coerced value. A document that no longer matches
// the schema is surfaced as the validation error, not silently passed on.
func (c *Client) GetJSON(ctx context.Context, key string, schema *granite.Schema) (any, bool, error) {
	v, found, err := c.GetString(ctx, key)
	if err != nil || !found {
		return nil, found, err
	}
	doc, err := codec.UnmarshalJSON([]byte(v))
	if err != nil {
		return nil, false, err
	}
	if schema != nil {
		doc, err = schema.Validate(doc)
		if err != nil {
			return nil, false, err
		}
	}
	return doc, true, nil
}

// SetJSON validates value against schema (when non-nil) and stores the
// coerced result as JSON.
func (c *Client) SetJSON(ctx context.Context, key string, value any, schema *granite.Schema) error {
	if schema != nil {
		var err error
		value, err = schema.Validate(value)
		if err != nil {
			return err
		}
	}
	data, err := codec.MarshalJSON(value)
	if err != nil {
		return err
	}
	return c.SetString(ctx, key, string(data))
}

// HGetString reads one hash field. found is false when the field is absent.
func (c *Client) HGetString(ctx context.Context, key, field string) (string, bool, error) {
	v, err := c.rdb.HGet(ctx, c.key(key), field).Result()
	if errors.Is(err, backend.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// HSetString writes one hash field.
func (c *Client) HSetString(ctx context.Context, key, field, value string) error {
	return c.rdb.HSet(ctx, c.key(key), field, value).Err()
}

// HGetInt reads one hash field as a base-10 integer.
func (c *Client) HGetInt(ctx context.Context, key, field string) (int64, bool, error) {
	v, found, err := c.HGetString(ctx, key, field)
	if err != nil || !found {
		return 0, found, err
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return i, true, nil
}

// RPushString appends to the list at key.
func (c *Client) RPushString(ctx context.Context, key string, values ...string) error {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return c.rdb.RPush(ctx, c.key(key), args...).Err()
}

// LPopString pops the head of the list at key. found is false when the
// list is empty or missing.
func (c *Client) LPopString(ctx context.Context, key string) (string, bool, error) {
	v, err := c.rdb.LPop(ctx, c.key(key)).Result()
	if errors.Is(err, backend.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// LRangeStrings returns the elements of the list at key in [start, stop],
// inclusive, with negative offsets counting from the tail.
func (c *Client) LRangeStrings(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return c.rdb.LRange(ctx, c.key(key), start, stop).Result()
}

// Delete removes keys. Missing keys are not an error.
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.rdb.Del(ctx, full...).Err()
}

// Expire sets a TTL on an existing key.
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return c.rdb.Expire(ctx, c.key(key), ttl).Err()
}

// Close releases the underlying connection.
func (c *Client) Close() error { return c.rdb.Close() }
