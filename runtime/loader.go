package runtime

import (
	"context"
	goruntime "runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/wippyai/beamdasm/beam"
	"github.com/wippyai/beamdasm/errors"
)

// Options configures a Loader.
type Options struct {
	// Logger receives load events. Defaults to the package Logger.
	Logger *zap.Logger
	// Decode is passed to every decode. A nil Decode.Logger inherits Logger.
	Decode beam.DecodeOptions
	// CacheSize bounds the number of cached modules; below one means one.
	CacheSize int
	// Concurrency limits parallel decodes in LoadAll; zero means GOMAXPROCS.
	Concurrency int
}

// Loader reads, decodes and caches BEAM files.
//
// Concurrent Loads of the same path share one decode.
type Loader struct {
	cache  *Cache
	log    *zap.Logger
	flight singleflight.Group
	opts   Options
}

// New creates a Loader with its own cache.
func New(opts Options) *Loader {
	log := opts.Logger
	if log == nil {
		log = Logger()
	}
	if opts.Decode.Logger == nil {
		opts.Decode.Logger = log
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = goruntime.GOMAXPROCS(0)
	}
	return &Loader{
		cache: NewCache(opts.CacheSize),
		log:   log,
		opts:  opts,
	}
}

// Cache exposes the loader's cache.
func (l *Loader) Cache() *Cache {
	return l.cache
}

// Load returns the module at path, decoding it unless a model for the same
// path is cached.
func (l *Loader) Load(ctx context.Context, path string) (*beam.Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Load(path, err)
	}
	key := Key(path)
	if m, ok := l.cache.Get(key); ok {
		l.log.Debug("module cache hit", zap.String("path", key))
		return m, nil
	}

	v, err, shared := l.flight.Do(key, func() (any, error) {
		return l.decode(key)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		l.log.Debug("module decode shared", zap.String("path", key))
	}
	return v.(*beam.Module), nil
}

// Reload decodes path again, replacing any cached model.
func (l *Loader) Reload(ctx context.Context, path string) (*beam.Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Load(path, err)
	}
	key := Key(path)
	l.flight.Forget(key)
	v, err, _ := l.flight.Do(key, func() (any, error) {
		return l.decode(key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*beam.Module), nil
}

func (l *Loader) decode(key string) (*beam.Module, error) {
	m, err := beam.DecodeFileWithOptions(key, l.opts.Decode)
	if err != nil {
		l.log.Warn("module decode failed", zap.String("path", key), zap.Error(err))
		return nil, err
	}
	l.cache.Put(key, m)
	l.log.Debug("module decoded",
		zap.String("path", key),
		zap.String("module", m.Name()),
		zap.Int("instructions", len(m.Instructions)),
		zap.Int("diagnostics", len(m.Diagnostics)),
	)
	return m, nil
}

// LoadAll loads paths in parallel. Results keep the order of paths. The
// first failure cancels the remaining loads and is returned.
func (l *Loader) LoadAll(ctx context.Context, paths []string) ([]*beam.Module, error) {
	out := make([]*beam.Module, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.Concurrency)
	for i, p := range paths {
		g.Go(func() error {
			m, err := l.Load(ctx, p)
			if err != nil {
				return err
			}
			out[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Forget drops the cached model for path.
func (l *Loader) Forget(path string) {
	key := Key(path)
	l.flight.Forget(key)
	l.cache.Remove(key)
}
