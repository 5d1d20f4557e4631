package tracker

import (
	"fmt"
	"io"
	"strings"

	"github.com/gobwas/glob"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/cases"
)

// Config is the process-wide validation configuration. It is read once when
// an Engine is created.
type Config struct {
	// DebugBreak calls the engine's break hook on the first report of each
	// unique failure.
	DebugBreak bool `toml:"debug_break"`

	// Bypass replays operations inline as they are recorded instead of
	// deferring them to submission.
	Bypass bool `toml:"bypass"`

	// AutoLogResources lists resource names that enable logging
	// automatically. Entries containing *, ?, [ or { are glob patterns.
	// Matching ignores case.
	AutoLogResources []string `toml:"auto_log_resources"`

	// CaptureBacktraces records call stacks for watched resources.
	CaptureBacktraces bool `toml:"capture_backtraces"`

	// LogUnnamedResources logs operations on resources without a name.
	LogUnnamedResources bool `toml:"log_unnamed_resources"`

	// ValidateBufferSourceCopy requires the CopySrc usage on buffers copied
	// to staging memory.
	ValidateBufferSourceCopy bool `toml:"validate_buffer_source_copy"`

	// BreadcrumbLog logs every breadcrumb begin and end during replay.
	BreadcrumbLog bool `toml:"breadcrumb_log"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		DebugBreak:               true,
		CaptureBacktraces:        true,
		ValidateBufferSourceCopy: true,
	}
}

// LoadConfig decodes a TOML document over DefaultConfig. Unknown keys are
// rejected.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("tracker: decode config: %w", err)
	}
	if _, err := compileWatchList(cfg.AutoLogResources); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseAutoLogList splits a comma separated list of resource names,
// trimming whitespace and dropping empty entries.
func ParseAutoLogList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// watchList matches resource names against AutoLogResources.
type watchList struct {
	exact map[string]struct{}
	globs []glob.Glob
}

func foldCase(s string) string { return cases.Fold().String(s) }

func compileWatchList(patterns []string) (*watchList, error) {
	w := &watchList{exact: make(map[string]struct{}, len(patterns))}
	for _, p := range patterns {
		folded := foldCase(p)
		if !strings.ContainsAny(p, "*?[{") {
			w.exact[folded] = struct{}{}
			continue
		}
		g, err := glob.Compile(folded)
		if err != nil {
			return nil, fmt.Errorf("tracker: auto-log pattern %q: %w", p, err)
		}
		w.globs = append(w.globs, g)
	}
	return w, nil
}

// Match reports whether name is watched. A nil list matches nothing.
func (w *watchList) Match(name string) bool {
	if w == nil || (len(w.exact) == 0 && len(w.globs) == 0) {
		return false
	}
	folded := foldCase(name)
	if _, ok := w.exact[folded]; ok {
		return true
	}
	for _, g := range w.globs {
		if g.Match(folded) {
			return true
		}
	}
	return false
}
