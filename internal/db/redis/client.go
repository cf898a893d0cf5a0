// Package redis implements db.Store on rueidis for Redis and Valkey.
package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/prodsearch/internal/db"
)

var _ db.Store = (*Store)(nil)

// Connection defaults.
const (
	DefaultClientName  = "prodsearch"
	DefaultDialTimeout = 5 * time.Second

	// pipelineBatch caps the commands sent in one DoMulti.
	pipelineBatch = 256

	readyPollMin = 50 * time.Millisecond
	readyPollMax = time.Second
)

// Config holds connection parameters for a Redis or Valkey server.
type Config struct {
	Addrs       []string
	Username    string
	Password    string
	DB          int
	ClientName  string
	DialTimeout time.Duration
}

// Store is the rueidis-backed db.Store.
type Store struct {
	client rueidis.Client
}

// NewStore connects to the first reachable address in cfg.Addrs.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("redis: at least one address is required")
	}
	if cfg.ClientName == "" {
		cfg.ClientName = DefaultClientName
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		ClientName:   cfg.ClientName,
		Dialer:       net.Dialer{Timeout: cfg.DialTimeout},
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("redis: connect %v: %w", cfg.Addrs, err)
	}
	return &Store{client: client}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.do(ctx, s.b().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady pings with a doubling interval until the server answers or
// timeout expires. The timeout error carries the last ping failure.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	wait := readyPollMin
	var lastErr error
	for {
		if lastErr = s.Ping(ctx); lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("database not ready after %s: %w", timeout, errors.Join(ctx.Err(), lastErr))
		case <-time.After(wait):
		}
		wait = min(wait*2, readyPollMax)
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

// doBatched sends cmds in pipelines of at most pipelineBatch commands and
// returns the results in order. It stops at the first failed batch.
func (s *Store) doBatched(ctx context.Context, cmds []rueidis.Completed) ([]rueidis.RedisResult, error) {
	out := make([]rueidis.RedisResult, 0, len(cmds))
	for start := 0; start < len(cmds); start += pipelineBatch {
		end := min(start+pipelineBatch, len(cmds))
		out = append(out, s.client.DoMulti(ctx, cmds[start:end]...)...)
		if err := ctx.Err(); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}
