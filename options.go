package gpuval

import "github.com/gogpu/gpuval/tracker"

// Option configures an RHI during creation.
// Use functional options to customize RHI behavior.
//
// Example:
//
//	// Default configuration over a no-op backend
//	rhi, err := gpuval.NewRHI()
//
//	// Custom backend and watch-list
//	cfg := tracker.DefaultConfig()
//	cfg.AutoLogResources = []string{"SceneDepth", "GBuffer*"}
//	rhi, err := gpuval.NewRHI(gpuval.WithConfig(cfg), gpuval.WithBackend(halBackend))
type Option func(*rhiOptions)

// rhiOptions holds optional configuration for RHI creation.
type rhiOptions struct {
	config    tracker.Config
	backend   Backend
	onFailure func(tracker.Failure)
	onBreak   func(tracker.Failure)
	workers   int
}

// defaultOptions returns the default RHI options.
func defaultOptions() rhiOptions {
	return rhiOptions{
		config:  tracker.DefaultConfig(),
		backend: nil, // Will be set to NopBackend if nil
		workers: 0,   // Will use GOMAXPROCS if 0
	}
}

// WithConfig sets the validation configuration.
//
// Example:
//
//	f, _ := os.Open("gpuval.toml")
//	cfg, err := tracker.LoadConfig(f)
//	rhi, err := gpuval.NewRHI(gpuval.WithConfig(cfg))
func WithConfig(cfg tracker.Config) Option {
	return func(o *rhiOptions) {
		o.config = cfg
	}
}

// WithBackend sets the graphics backend every validated call forwards to.
// Use this for dependency injection of a real or recording backend.
func WithBackend(b Backend) Option {
	return func(o *rhiOptions) {
		o.backend = b
	}
}

// WithFailureHandler installs a callback for the first report of every
// unique validation failure.
func WithFailureHandler(fn func(tracker.Failure)) Option {
	return func(o *rhiOptions) {
		o.onFailure = fn
	}
}

// WithBreakHandler installs the hook invoked on a failure when
// Config.DebugBreak is enabled. A typical hook calls runtime.Breakpoint.
func WithBreakHandler(fn func(tracker.Failure)) Option {
	return func(o *rhiOptions) {
		o.onBreak = fn
	}
}

// WithWorkers sets the number of goroutines RecordParallel uses.
// Zero or negative selects GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *rhiOptions) {
		o.workers = n
	}
}

// WithBypass replays validation operations inline as they are recorded.
// Cross-context ordering is then the recording order, so use it only for
// single-context debugging.
func WithBypass(on bool) Option {
	return func(o *rhiOptions) {
		o.config.Bypass = on
	}
}

// WithAutoLogResources enables logging for resources whose debug name
// matches one of names. Entries may be glob patterns.
//
// Example:
//
//	rhi, err := gpuval.NewRHI(gpuval.WithAutoLogResources(tracker.ParseAutoLogList("SceneDepth, GBuffer*")...))
func WithAutoLogResources(names ...string) Option {
	return func(o *rhiOptions) {
		o.config.AutoLogResources = append(o.config.AutoLogResources, names...)
	}
}

// WithDebugBreak enables or disables the break hook on new failures.
func WithDebugBreak(on bool) Option {
	return func(o *rhiOptions) {
		o.config.DebugBreak = on
	}
}

// WithBufferSourceCopyValidation enables or disables the CopySrc usage check
// on buffers copied to staging memory.
func WithBufferSourceCopyValidation(on bool) Option {
	return func(o *rhiOptions) {
		o.config.ValidateBufferSourceCopy = on
	}
}
