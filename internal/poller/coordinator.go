// Package poller drives one build comparison per new build seen in the
// build index.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"build-watcher/internal/cache"
	"build-watcher/internal/engine"
	"build-watcher/internal/observability"
	"build-watcher/internal/storage"
)

// ErrTickInFlight is returned when a tick starts while another one runs.
var ErrTickInFlight = errors.New("poll tick already in flight")

// BuildSource reads the build index and manifests.
type BuildSource interface {
	LatestBuilds(ctx context.Context, n int) ([]engine.MinimalBuild, error)
	Manifest(ctx context.Context, hash string) (*engine.BuildManifest, error)
}

type Comparator interface {
	Compare(ctx context.Context, newer, older *engine.BuildManifest) (*engine.BuildDifferences, error)
}

// Notifier publishes a comparison result.
type Notifier interface {
	Notify(ctx context.Context, r Report) error
}

// Report is the outcome of one comparison.
type Report struct {
	Build        engine.MinimalBuild      `json:"build"`
	Previous     engine.MinimalBuild      `json:"previous"`
	Differences  *engine.BuildDifferences `json:"differences"`
	TotalChanges int                      `json:"totalChanges"`
	ComparedAt   time.Time                `json:"comparedAt"`
}

// Outcome describes what a tick did.
type Outcome int

const (
	Idle     Outcome = iota // latest hash already processed
	Baseline                // first sighting with nothing to compare against
	Compared                // a comparison ran
)

func (o Outcome) String() string {
	switch o {
	case Idle:
		return "idle"
	case Baseline:
		return "baseline"
	default:
		return "compared"
	}
}

type Coordinator struct {
	src      BuildSource
	cmp      Comparator
	notifier Notifier
	store    storage.HashStore
	latest   *cache.Snapshot[Report]

	running atomic.Bool
}

func New(src BuildSource, cmp Comparator, n Notifier, store storage.HashStore, latest *cache.Snapshot[Report]) *Coordinator {
	if latest == nil {
		latest = &cache.Snapshot[Report]{}
	}
	return &Coordinator{src: src, cmp: cmp, notifier: n, store: store, latest: latest}
}

// Latest returns the last successful comparison, if any.
func (c *Coordinator) Latest() (Report, bool) { return c.latest.Load() }

// Tick runs one poll cycle.
//
// The recorded hash advances only after a successful comparison and
// before notifications go out, so a failed comparison is retried on the
// next tick and a failed notification is not.
func (c *Coordinator) Tick(ctx context.Context) (Outcome, error) {
	if !c.running.CompareAndSwap(false, true) {
		observability.PollsTotal.WithLabelValues("skipped").Inc()
		return Idle, ErrTickInFlight
	}
	defer c.running.Store(false)

	out, err := c.tick(ctx)
	if err != nil {
		observability.PollsTotal.WithLabelValues("error").Inc()
		return out, err
	}
	observability.PollsTotal.WithLabelValues(out.String()).Inc()
	return out, nil
}

func (c *Coordinator) tick(ctx context.Context) (Outcome, error) {
	index, err := c.src.LatestBuilds(ctx, 2)
	if err != nil {
		return Idle, fmt.Errorf("build index: %w", err)
	}
	if len(index) == 0 {
		return Idle, fmt.Errorf("%w: build index is empty", engine.ErrResourceUnavailable)
	}

	last, err := c.store.LastHash(ctx)
	if err != nil {
		return Idle, fmt.Errorf("load last hash: %w", err)
	}
	latest := index[0]
	if latest.BuildHash == last {
		return Idle, nil
	}

	refHash := last
	if refHash == "" {
		if len(index) < 2 {
			log.Info().Str("hash", latest.BuildHash).Msg("single build in index; recording baseline")
			return Baseline, c.store.SetLastHash(ctx, latest.BuildHash)
		}
		refHash = index[1].BuildHash
	}

	log.Info().Str("hash", latest.BuildHash).Str("build", latest.BuildNumber).Str("previous", refHash).Msg("new build detected")

	newer, err := c.src.Manifest(ctx, latest.BuildHash)
	if err != nil {
		return Idle, fmt.Errorf("manifest %s: %w", latest.BuildHash, err)
	}
	older, err := c.src.Manifest(ctx, refHash)
	if err != nil {
		return Idle, fmt.Errorf("manifest %s: %w", refHash, err)
	}

	diffs, err := c.cmp.Compare(ctx, newer, older)
	if err != nil {
		return Idle, fmt.Errorf("compare %s..%s: %w", refHash, latest.BuildHash, err)
	}

	if err := c.store.SetLastHash(ctx, newer.BuildHash); err != nil {
		return Compared, fmt.Errorf("record hash: %w", err)
	}
	observability.RecordBuild(newer.BuildNumber)

	r := Report{
		Build:        newer.MinimalBuild,
		Previous:     older.MinimalBuild,
		Differences:  diffs,
		TotalChanges: diffs.TotalChangeCount(),
		ComparedAt:   time.Now().UTC(),
	}
	c.latest.Store(r)

	if err := c.notifier.Notify(ctx, r); err != nil {
		return Compared, fmt.Errorf("notify: %w", err)
	}
	return Compared, nil
}
