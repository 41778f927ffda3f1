package trust

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options selects the registries to layer. Redis overrides, when configured,
// take precedence over the YAML file.
type Options struct {
	File      string
	Default   int
	RedisAddr string
	RedisKey  string
}

// Build assembles the registry described by opts. The returned close func
// releases the Redis connection, if any.
func Build(ctx context.Context, opts Options) (Registry, func() error, error) {
	noop := func() error { return nil }

	var layers []Registry
	var closeFn = noop

	if opts.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, noop, fmt.Errorf("ping trust redis %s: %w", opts.RedisAddr, err)
		}

		layers = append(layers, NewRedis(rdb, opts.RedisKey, opts.Default))
		closeFn = rdb.Close
	}

	if opts.File != "" {
		s, err := LoadFile(opts.File)
		if err != nil {
			_ = closeFn()
			return nil, noop, err
		}
		layers = append(layers, s)
	}

	return NewChain(opts.Default, layers...), closeFn, nil
}
