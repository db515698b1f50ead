// Package dataset loads the property and amenity datasets and holds them
// behind a single readiness barrier.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yourorg/homely-api/internal/amenity"
	"github.com/yourorg/homely-api/internal/property"
)

// ErrNotReady is returned by data accessors before the first complete load.
var ErrNotReady = errors.New("datasets still loading")

// Catalog publishes the loaded datasets. Nothing is visible until every
// dataset has loaded, and what is published is never modified.
type Catalog struct {
	ready   chan struct{}
	once    sync.Once
	mu      sync.RWMutex
	locator *property.Locator
	index   *amenity.Index
	lastErr error
}

func NewCatalog() *Catalog { return &Catalog{ready: make(chan struct{})} }

func (c *Catalog) Ready() bool {
	select {
	case <-c.ready:
		return true
	default:
		return false
	}
}

// Wait blocks until the catalog is ready or ctx ends.
func (c *Catalog) Wait(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Catalog) Locator() (*property.Locator, error) {
	if !c.Ready() {
		return nil, ErrNotReady
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.locator, nil
}

func (c *Catalog) Index() (*amenity.Index, error) {
	if !c.Ready() {
		return nil, ErrNotReady
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index, nil
}

// LastError is the most recent load failure, cleared on success.
func (c *Catalog) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Publish installs a complete dataset and opens the barrier.
func (c *Catalog) Publish(loc *property.Locator, ix *amenity.Index) {
	c.mu.Lock()
	c.locator, c.index, c.lastErr = loc, ix, nil
	c.mu.Unlock()
	c.once.Do(func() { close(c.ready) })
}

func (c *Catalog) fail(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

type Config struct {
	PropertiesSource string
	AmenitySources   []amenity.Source
	// RetryInterval is the first pause after a failed load; it doubles up to MaxRetryInterval.
	RetryInterval    time.Duration
	MaxRetryInterval time.Duration
}

type Loader struct {
	Fetcher *Fetcher
	DB      Database
	Catalog *Catalog
	Logger  *slog.Logger
	Config  Config
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func (l *Loader) validate() error {
	if l == nil {
		return errors.New("nil loader")
	}
	if l.Catalog == nil {
		return errors.New("loader requires a catalog")
	}
	if l.Config.PropertiesSource == "" {
		return errors.New("loader requires a properties source")
	}
	if len(l.Config.AmenitySources) != len(amenity.Categories) {
		return fmt.Errorf("loader requires %d amenity sources, got %d", len(amenity.Categories), len(l.Config.AmenitySources))
	}
	if l.Fetcher == nil {
		l.Fetcher = NewFetcher(0)
	}
	return nil
}

// Run loads until the first success, backing off between failures.
func (l *Loader) Run(ctx context.Context) error {
	if err := l.validate(); err != nil {
		return err
	}
	wait := l.Config.RetryInterval
	if wait <= 0 {
		wait = 2 * time.Second
	}
	maxWait := l.Config.MaxRetryInterval
	if maxWait <= 0 {
		maxWait = time.Minute
	}
	for {
		err := l.LoadOnce(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.logger().Warn("dataset load failed; retrying", slog.String("error", err.Error()), slog.Duration("in", wait))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
		if wait > maxWait {
			wait = maxWait
		}
	}
}

// LoadOnce fetches all seven datasets concurrently and publishes them
// together. On any failure nothing is published.
func (l *Loader) LoadOnce(ctx context.Context) error {
	if err := l.validate(); err != nil {
		return err
	}
	start := time.Now()
	ix := amenity.NewIndex(l.Config.AmenitySources)
	var props []property.Property

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		props, err = l.loadProperties(gctx)
		if err != nil {
			return fmt.Errorf("properties: %w", err)
		}
		return nil
	})
	for _, src := range l.Config.AmenitySources {
		g.Go(func() error {
			list, err := l.loadAmenities(gctx, src)
			if err != nil {
				return fmt.Errorf("%s: %w", src.Category.Key(), err)
			}
			ix.Set(src.Category, list)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		l.Catalog.fail(err)
		return err
	}

	l.Catalog.Publish(property.NewLocator(props), ix)
	attrs := []any{slog.Int("properties", len(props)), slog.Duration("took", time.Since(start))}
	for _, c := range amenity.Categories {
		attrs = append(attrs, slog.Int(c.Key(), ix.Len(c)))
	}
	l.logger().Info("datasets loaded", attrs...)
	return nil
}

func (l *Loader) loadProperties(ctx context.Context) ([]property.Property, error) {
	var (
		props []property.Property
		err   error
	)
	if l.Config.PropertiesSource == PostgresSource {
		if l.DB == nil {
			return nil, errors.New("postgres source configured without a database")
		}
		props, err = l.DB.LoadProperties(ctx)
	} else {
		var raw []byte
		raw, err = l.Fetcher.Fetch(ctx, l.Config.PropertiesSource)
		if err == nil {
			props, err = DecodeProperties(raw)
		}
	}
	if err != nil {
		return nil, err
	}
	kept := props[:0]
	for _, p := range props {
		if !p.Coordinate().Valid() {
			continue
		}
		kept = append(kept, p)
	}
	if dropped := len(props) - len(kept); dropped > 0 {
		l.logger().Warn("dropped properties with invalid coordinates", slog.Int("count", dropped))
	}
	return kept, nil
}

func (l *Loader) loadAmenities(ctx context.Context, src amenity.Source) ([]amenity.Amenity, error) {
	var (
		list []amenity.Amenity
		err  error
	)
	if src.Location == PostgresSource {
		if l.DB == nil {
			return nil, errors.New("postgres source configured without a database")
		}
		list, err = l.DB.LoadAmenities(ctx, src.Category)
	} else {
		var raw []byte
		raw, err = l.Fetcher.Fetch(ctx, src.Location)
		if err == nil {
			list, err = DecodeAmenities(raw)
		}
	}
	if err != nil {
		return nil, err
	}
	kept := list[:0]
	for _, a := range list {
		if a.Coordinate().Valid() {
			kept = append(kept, a)
		}
	}
	if dropped := len(list) - len(kept); dropped > 0 {
		l.logger().Warn("dropped amenities with invalid coordinates",
			slog.String("category", src.Category.Key()), slog.Int("count", dropped))
	}
	return kept, nil
}
