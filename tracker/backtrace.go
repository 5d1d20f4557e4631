package tracker

import (
	"fmt"
	"runtime"
	"strings"
)

const maxBacktraceDepth = 32

// Backtrace is a captured call stack. Capture is cheap; symbolization
// happens only when a diagnostic is printed.
type Backtrace struct {
	pcs []uintptr
}

// CaptureBacktrace records the caller's stack, skipping skip frames above
// the caller of CaptureBacktrace.
func CaptureBacktrace(skip int) *Backtrace {
	pcs := make([]uintptr, maxBacktraceDepth)
	n := runtime.Callers(skip+2, pcs)
	return &Backtrace{pcs: pcs[:n]}
}

// Frames symbolizes the captured program counters.
func (b *Backtrace) Frames() []runtime.Frame {
	if b == nil || len(b.pcs) == 0 {
		return nil
	}
	frames := runtime.CallersFrames(b.pcs)
	var out []runtime.Frame
	for {
		f, more := frames.Next()
		out = append(out, f)
		if !more {
			break
		}
	}
	return out
}

// Top returns "function file:line" for the innermost frame.
func (b *Backtrace) Top() string {
	frames := b.Frames()
	if len(frames) == 0 {
		return "<unknown>"
	}
	return formatFrame(frames[0])
}

func (b *Backtrace) String() string {
	frames := b.Frames()
	lines := make([]string, len(frames))
	for i, f := range frames {
		lines[i] = formatFrame(f)
	}
	return strings.Join(lines, "\n")
}

func formatFrame(f runtime.Frame) string {
	return fmt.Sprintf("%s %s:%d", f.Function, f.File, f.Line)
}
