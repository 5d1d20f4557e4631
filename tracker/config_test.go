package tracker

import (
	"strings"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	doc := `
debug_break = false
bypass = true
auto_log_resources = ["SceneDepth", "Shadow*"]
breadcrumb_log = true
`
	cfg, err := LoadConfig(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.DebugBreak || !cfg.Bypass || !cfg.BreadcrumbLog {
		t.Errorf("LoadConfig() = %+v, flags not applied", cfg)
	}
	if !cfg.ValidateBufferSourceCopy || !cfg.CaptureBacktraces {
		t.Error("LoadConfig() dropped defaults for unset keys")
	}
	if len(cfg.AutoLogResources) != 2 {
		t.Errorf("AutoLogResources = %v, want 2 entries", cfg.AutoLogResources)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", `no_such_option = 1`},
		{"bad syntax", `bypass = `},
		{"bad glob", `auto_log_resources = ["Shadow[" ]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(strings.NewReader(tt.doc)); err == nil {
				t.Error("LoadConfig() error = nil, want error")
			}
		})
	}
}

func TestParseAutoLogList(t *testing.T) {
	got := ParseAutoLogList(" SceneDepth, GBufferA ,,Velocity ")
	want := []string{"SceneDepth", "GBufferA", "Velocity"}
	if len(got) != len(want) {
		t.Fatalf("ParseAutoLogList() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ParseAutoLogList()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestWatchList_Match(t *testing.T) {
	w, err := compileWatchList([]string{"SceneDepth", "Shadow*", "GBuffer[AB]"})
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		want bool
	}{
		{"SceneDepth", true},
		{"SCENEDEPTH", true},
		{"SceneDepthZ", false},
		{"ShadowAtlas", true},
		{"shadowmap", true},
		{"GBufferA", true},
		{"GBufferC", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := w.Match(tt.name); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}

	var empty *watchList
	if empty.Match("SceneDepth") {
		t.Error("nil watch-list matched")
	}
}
