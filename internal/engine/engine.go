package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"build-watcher/internal/diff"
	"build-watcher/internal/observability"
)

// Extractor recovers the string and CSS rule tables of one build.
type Extractor interface {
	Extract(ctx context.Context, b *BuildManifest) (*Assets, error)
}

// Comparator computes the differences between two builds.
type Comparator struct {
	extract Extractor
}

func NewComparator(x Extractor) *Comparator { return &Comparator{extract: x} }

// Compare diffs newer against older across every domain. Both builds are
// extracted concurrently; if either extraction fails no result is returned.
func (c *Comparator) Compare(ctx context.Context, newer, older *BuildManifest) (*BuildDifferences, error) {
	start := time.Now()

	d := &BuildDifferences{}
	if newer.CSP != older.CSP {
		d.CSP = &diff.Change[string]{OldValue: older.CSP, NewValue: newer.CSP}
	}
	d.GlobalEnvs = diff.Diff(newer.GlobalEnvs, older.GlobalEnvs, diff.Equal[string])
	// Identity only: config and treatment edits are not reported.
	d.Experiments = diff.Diff(experimentTable(newer.Experiments), experimentTable(older.Experiments), diff.SameKey[Experiment])

	var newAssets, oldAssets *Assets
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := c.extract.Extract(gctx, newer)
		if err != nil {
			return fmt.Errorf("extract build %s: %w", newer.BuildHash, err)
		}
		newAssets = a
		return nil
	})
	g.Go(func() error {
		a, err := c.extract.Extract(gctx, older)
		if err != nil {
			return fmt.Errorf("extract build %s: %w", older.BuildHash, err)
		}
		oldAssets = a
		return nil
	})
	if err := g.Wait(); err != nil {
		observability.ComparisonsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	d.Strings = diff.Diff(newAssets.Strings, oldAssets.Strings, diff.Equal[string])
	d.CSSRules = diff.Diff(newAssets.CSSRules, oldAssets.CSSRules, diff.TablesEqual[string])

	observability.ComparisonsTotal.WithLabelValues("ok").Inc()
	observability.ComparisonDuration.Observe(time.Since(start).Seconds())
	observability.RecordChanges("experiments", d.Experiments.Count())
	observability.RecordChanges("strings", d.Strings.Count())
	observability.RecordChanges("global_envs", d.GlobalEnvs.Count())
	observability.RecordChanges("css_rules", d.CSSRules.Count())

	log.Info().
		Str("new", newer.BuildHash).
		Str("old", older.BuildHash).
		Int("experiments", d.Experiments.Count()).
		Int("strings", d.Strings.Count()).
		Int("global_envs", d.GlobalEnvs.Count()).
		Int("css_rules", d.CSSRules.Count()).
		Bool("csp_changed", d.CSP != nil).
		Dur("took", time.Since(start)).
		Msg("builds compared")
	return d, nil
}
