package engine

import (
	"time"

	"build-watcher/internal/diff"
)

// MinimalBuild is one entry of the build index, newest first.
type MinimalBuild struct {
	BuildNumber string `json:"buildNumber"`
	BuildID     string `json:"buildId"`
	DateCreated string `json:"dateCreated"`
	BuildHash   string `json:"buildHash"`
}

// BuildManifest is the full record of one build. Never mutated after decode.
type BuildManifest struct {
	MinimalBuild
	Path           string              `json:"path"`
	GlobalEnvs     *diff.Table[string] `json:"globalEnvs"`
	Stylesheet     string              `json:"stylesheet"`
	RootScripts    []string            `json:"rootScripts"`
	WebpackModules []string            `json:"webpackModules"`
	Experiments    []Experiment        `json:"experiments"`
	CSP            string              `json:"csp"`
}

// CreatedAt parses DateCreated; zero time if it is not RFC 3339.
func (b MinimalBuild) CreatedAt() time.Time {
	t, err := time.Parse(time.RFC3339, b.DateCreated)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Config is a flat experiment configuration: key -> string, bool or number.
type Config = *diff.Table[any]

type Treatment struct {
	ID     int    `json:"id"`
	Label  string `json:"label"`
	Config Config `json:"config"`
}

// Experiment is compared by ID only.
type Experiment struct {
	Kind          string      `json:"kind"`
	ID            string      `json:"id"`
	Label         string      `json:"label"`
	DefaultConfig Config      `json:"defaultConfig"`
	Treatments    []Treatment `json:"treatments"`
}

// Declarations maps CSS property -> value for one selector.
type Declarations = *diff.Table[string]

// Assets holds the tables recovered from a build's script and stylesheet.
type Assets struct {
	Strings  *diff.Table[string]
	CSSRules *diff.Table[Declarations]
}

// BuildDifferences aggregates the change sets of every compared domain.
// CSP is nil when both builds report the same policy.
type BuildDifferences struct {
	Experiments diff.ChangeSet[Experiment]   `json:"experiments"`
	Strings     diff.ChangeSet[string]       `json:"strings"`
	GlobalEnvs  diff.ChangeSet[string]       `json:"globalEnvs"`
	CSSRules    diff.ChangeSet[Declarations] `json:"cssRules"`
	CSP         *diff.Change[string]         `json:"csp,omitempty"`
}

// TotalChangeCount sums every change set. A changed CSP is not counted.
func (d *BuildDifferences) TotalChangeCount() int {
	return d.Experiments.Count() +
		d.Strings.Count() +
		d.GlobalEnvs.Count() +
		d.CSSRules.Count()
}

func experimentTable(exps []Experiment) *diff.Table[Experiment] {
	t := diff.NewTable[Experiment]()
	for _, e := range exps {
		t.Set(e.ID, e)
	}
	return t
}
