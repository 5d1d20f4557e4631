package main

import (
	"testing"

	"github.com/gogpu/gpuval"
	"github.com/gogpu/gpuval/tracker"
)

func testConfig() tracker.Config {
	cfg := tracker.DefaultConfig()
	cfg.DebugBreak = false
	return cfg
}

// TestScenarios replays every built-in scenario and checks its failure count.
func TestScenarios(t *testing.T) {
	for _, s := range scenarios {
		t.Run(s.name, func(t *testing.T) {
			rhi, err := gpuval.NewRHI(gpuval.WithConfig(testConfig()))
			if err != nil {
				t.Fatalf("NewRHI() error = %v", err)
			}
			defer rhi.Close()

			if err := s.run(rhi); err != nil {
				t.Fatalf("%s: run error = %v", s.desc, err)
			}
			got := rhi.Failures()
			if len(got) != s.want {
				for _, f := range got {
					t.Logf("  failure: %v", f)
				}
				t.Errorf("%s: len(Failures()) = %d, want %d", s.desc, len(got), s.want)
			}
		})
	}
}

// TestScenarios_Watched replays the scenarios with logging and backtraces
// enabled for the resources they name.
func TestScenarios_Watched(t *testing.T) {
	for _, s := range scenarios {
		if !check(s, testConfig(), []string{"R", "Foo", "T*", "U"}) {
			t.Errorf("check(%s) = false, want true", s.name)
		}
	}
}

func TestScenarioNames(t *testing.T) {
	seen := make(map[string]bool)
	for _, s := range scenarios {
		if seen[s.name] {
			t.Errorf("duplicate scenario %q", s.name)
		}
		seen[s.name] = true
	}
	if len(seen) != 10 {
		t.Errorf("len(scenarios) = %d, want 10", len(seen))
	}
}
