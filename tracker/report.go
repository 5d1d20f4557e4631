package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/gogpu/gpuval/internal/dedupe"
)

// Kind classifies a validation failure.
type Kind uint8

const (
	// KindHazard is a missing barrier, UAV overlap without a barrier, or an
	// access during an open transition.
	KindHazard Kind = iota
	// KindProtocol is a misuse of the transition protocol: duplicate or
	// unsolicited begin/end, mismatched states, wrong pipeline, missing fence.
	KindProtocol
	// KindTransientLifecycle is an acquire, discard or aliasing error.
	KindTransientLifecycle
	// KindOverlapToggle is a mismatched Begin/EndUAVOverlap pair.
	KindOverlapToggle
	// KindShaderBinding is a uniform buffer or view binding mismatch.
	KindShaderBinding
	// KindFacade is a call-site check such as locking inside a render pass.
	KindFacade
	// KindBreadcrumb is a breadcrumb nesting or range error.
	KindBreadcrumb
)

func (k Kind) String() string {
	switch k {
	case KindHazard:
		return "Hazard"
	case KindProtocol:
		return "Protocol"
	case KindTransientLifecycle:
		return "TransientLifecycle"
	case KindOverlapToggle:
		return "OverlapToggle"
	case KindShaderBinding:
		return "ShaderBinding"
	case KindFacade:
		return "Facade"
	case KindBreadcrumb:
		return "Breadcrumb"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Failure is one reported validation failure.
type Failure struct {
	Kind        Kind
	Message     string
	Resource    string
	ResourceID  uuid.UUID
	Breadcrumbs string
}

// Error implements error.
func (f Failure) Error() string {
	if f.Breadcrumbs != "" {
		return fmt.Sprintf("%s: %s (breadcrumbs: %s)", f.Kind, f.Message, f.Breadcrumbs)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Stats counts reports since the engine was created.
type Stats struct {
	Reported   uint64
	Suppressed uint64
}

// reporter is the single report-once gate. It hashes each formatted message
// and only logs, records and breaks for the first occurrence.
type reporter struct {
	seen       *dedupe.Set
	debugBreak bool
	onFailure  func(Failure)
	onBreak    func(Failure)

	mu       sync.Mutex
	failures []Failure
}

func newReporter(debugBreak bool, onFailure, onBreak func(Failure)) *reporter {
	return &reporter{
		seen:       dedupe.New(),
		debugBreak: debugBreak,
		onFailure:  onFailure,
		onBreak:    onBreak,
	}
}

func (rep *reporter) report(f Failure) bool {
	if !rep.seen.ObserveString(f.Message) {
		return false
	}

	attrs := []any{slog.String("kind", f.Kind.String())}
	if f.Resource != "" {
		attrs = append(attrs, slog.String("resource", f.Resource))
	}
	if f.Breadcrumbs != "" {
		attrs = append(attrs, slog.String("breadcrumbs", f.Breadcrumbs))
	}
	Logger().Log(context.Background(), slog.LevelError, "RHI validation failed: "+f.Message, attrs...)

	rep.mu.Lock()
	rep.failures = append(rep.failures, f)
	rep.mu.Unlock()

	if rep.onFailure != nil {
		rep.onFailure(f)
	}
	if rep.debugBreak && rep.onBreak != nil {
		rep.onBreak(f)
	}
	return true
}

func (rep *reporter) list() []Failure {
	rep.mu.Lock()
	defer rep.mu.Unlock()
	out := make([]Failure, len(rep.failures))
	copy(out, rep.failures)
	return out
}

func (rep *reporter) stats() Stats {
	s := rep.seen.Stats()
	return Stats{Reported: s.Unique, Suppressed: s.Repeats}
}

// traceHint formats labelled backtraces for a diagnostic. Arguments
// alternate label string and *Backtrace. Without any captured trace it
// suggests enabling logging for the resource.
func traceHint(r *Resource, pairs ...any) string {
	var sb strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		label, _ := pairs[i].(string)
		trace, _ := pairs[i+1].(*Backtrace)
		if trace == nil {
			continue
		}
		fmt.Fprintf(&sb, "\n    %s: %s", label, trace.Top())
	}
	if sb.Len() == 0 && r != nil && r.loggingMode == LoggingNone {
		return "\n    Enable logging for this resource (auto_log_resources) to capture backtraces."
	}
	return sb.String()
}
