// Package extract recovers comparable tables from a build's fetched
// script and stylesheet assets.
package extract

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"build-watcher/internal/engine"
)

// AssetFetcher downloads a versioned asset by file name.
type AssetFetcher interface {
	FetchAsset(ctx context.Context, name string) ([]byte, error)
}

// Options tunes string-table discovery.
type Options struct {
	// ScriptIndex selects the root script that holds the string table.
	// Nil or negative selects DefaultScriptIndex.
	ScriptIndex *int
	// SkipModules is the number of leading modules never searched.
	SkipModules int
	// MarkerKey identifies the string table module. Default: INTERACTION_REQUIRED_TITLE.
	MarkerKey string
}

// DefaultScriptIndex is the root script position of the string table.
const DefaultScriptIndex = 3

// ScriptAt returns an Options.ScriptIndex selecting root script i.
func ScriptAt(i int) *int { return &i }

func (o *Options) defaults() {
	if o.ScriptIndex == nil || *o.ScriptIndex < 0 {
		o.ScriptIndex = ScriptAt(DefaultScriptIndex)
	}
	if o.SkipModules < 0 {
		o.SkipModules = 0
	}
	if o.MarkerKey == "" {
		o.MarkerKey = "INTERACTION_REQUIRED_TITLE"
	}
}

type Extractor struct {
	fetch  AssetFetcher
	opts   Options
	script int
}

func New(f AssetFetcher, opts Options) *Extractor {
	opts.defaults()
	return &Extractor{fetch: f, opts: opts, script: *opts.ScriptIndex}
}

// Extract fetches the build's string-table script and stylesheet and
// recovers both tables. Any failure aborts; no partial result is returned.
func (x *Extractor) Extract(ctx context.Context, b *engine.BuildManifest) (*engine.Assets, error) {
	if x.script >= len(b.RootScripts) {
		return nil, fmt.Errorf("%w: build %s has %d root scripts, want index %d",
			engine.ErrResourceUnavailable, b.BuildHash, len(b.RootScripts), x.script)
	}
	if b.Stylesheet == "" {
		return nil, fmt.Errorf("%w: build %s has no stylesheet", engine.ErrResourceUnavailable, b.BuildHash)
	}

	script, err := x.fetch.FetchAsset(ctx, b.RootScripts[x.script])
	if err != nil {
		return nil, err
	}
	strs, err := StringTable(script, x.opts.SkipModules, x.opts.MarkerKey)
	if err != nil {
		return nil, fmt.Errorf("strings of %s: %w", b.RootScripts[x.script], err)
	}

	sheet, err := x.fetch.FetchAsset(ctx, b.Stylesheet)
	if err != nil {
		return nil, err
	}
	rules, err := CSSRules(sheet)
	if err != nil {
		return nil, fmt.Errorf("css of %s: %w", b.Stylesheet, err)
	}

	log.Debug().
		Str("hash", b.BuildHash).
		Int("strings", strs.Len()).
		Int("css_rules", rules.Len()).
		Msg("assets extracted")
	return &engine.Assets{Strings: strs, CSSRules: rules}, nil
}
