package sessionstore

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "framehost:session:"

// redisStore implements Store backed by a Redis instance.
type redisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisStore connects to the given Redis URL and returns a Store.
// Snapshots expire after ttl; zero means no expiry.
func NewRedisStore(addr string, ttl time.Duration) (*redisStore, error) {
	opts, err := parseRedisURL(addr)
	if err != nil {
		return nil, err
	}
	c := redis.NewUniversalClient(opts)
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &redisStore{client: c, ttl: ttl}, nil
}

// parseRedisURL parses addr into UniversalOptions supporting single, cluster,
// and sentinel Redis deployments. A bare host:port string without a scheme is
// accepted as a single-node address. The URL path carries the db number for
// plain deployments and the master name for sentinel; sentinel selects its db
// through the db query parameter instead.
func parseRedisURL(addr string) (*redis.UniversalOptions, error) {
	if !strings.Contains(addr, "://") {
		return &redis.UniversalOptions{Addrs: []string{addr}}, nil
	}
	u, err := url.Parse(addr)
	if err != nil {
		return nil, err
	}

	sentinel := strings.HasSuffix(u.Scheme, "-sentinel")
	base := strings.TrimSuffix(u.Scheme, "-sentinel")
	if base != "redis" && base != "rediss" {
		return nil, fmt.Errorf("redis: invalid URL scheme: %s", u.Scheme)
	}

	opts := &redis.UniversalOptions{Addrs: strings.Split(u.Host, ",")}
	if u.User != nil {
		opts.Username = u.User.Username()
		opts.Password, _ = u.User.Password()
	}

	q := u.Query()
	path := strings.TrimPrefix(u.Path, "/")
	db := q.Get("db")
	if sentinel {
		opts.MasterName = path
		opts.SentinelUsername = q.Get("sentinel_username")
		opts.SentinelPassword = q.Get("sentinel_password")
	} else if path != "" {
		db = path
	}
	if db != "" {
		n, err := strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("redis: invalid db %q", db)
		}
		opts.DB = n
	}
	if base == "rediss" {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts, nil
}

func (r *redisStore) Save(ctx context.Context, sessionID string, snapshot []byte) error {
	return r.client.Set(ctx, redisKeyPrefix+sessionID, snapshot, r.ttl).Err()
}

func (r *redisStore) Load(ctx context.Context, sessionID string) ([]byte, error) {
	b, err := r.client.Get(ctx, redisKeyPrefix+sessionID).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *redisStore) Delete(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, redisKeyPrefix+sessionID).Err()
}
