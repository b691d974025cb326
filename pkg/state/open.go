package state

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"botcore/pkg/logger"
)

// Backend names accepted by Open.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Options selects and configures a KV backend.
type Options struct {
	Backend string

	// File backend. FlushInterval 0 writes every change through.
	Path          string
	FlushInterval time.Duration

	// Redis backend.
	Redis     redis.Options
	Namespace string
}

// Open builds the backend named by opts.Backend. An empty name means file.
func Open(ctx context.Context, log *logger.Logger, opts Options) (KV, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case BackendFile, "":
		if opts.Path == "" {
			return nil, fmt.Errorf("file state backend needs a path")
		}
		return OpenFile(log, opts.Path, opts.FlushInterval)

	case BackendRedis:
		if opts.Redis.Addr == "" {
			return nil, fmt.Errorf("redis state backend needs an address")
		}
		return DialRedis(ctx, log, &opts.Redis, opts.Namespace)

	default:
		return nil, fmt.Errorf("unknown state backend %q", opts.Backend)
	}
}
