package version

import (
	"runtime/debug"
	"testing"
	"time"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	fixed := func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	noInfo := func() (*debug.BuildInfo, bool) { return nil, false }
	withVCS := func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			GoVersion: "go1.26.0",
			Main:      debug.Module{Version: "(devel)"},
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef0123"},
				{Key: "vcs.time", Value: "2026-01-01T00:00:00Z"},
			},
		}, true
	}

	tests := []struct {
		name string
		in   Info
		info func() (*debug.BuildInfo, bool)
		want Info
	}{
		{
			name: "ldflags win",
			in:   Info{Version: "v1.2.3", Commit: "abc", BuildTime: "then"},
			info: withVCS,
			want: Info{Version: "v1.2.3", Commit: "abc", BuildTime: "then", GoVersion: "go1.26.0"},
		},
		{
			name: "vcs fills gaps",
			info: withVCS,
			want: Info{Version: "2026-01-01T00:00:00Z", Commit: "0123456789abcdef0123", BuildTime: "2026-01-01T00:00:00Z", GoVersion: "go1.26.0"},
		},
		{
			name: "clock fallback",
			info: noInfo,
			want: Info{Version: "20260102T030405Z"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := resolve(tt.in, tt.info, fixed); got != tt.want {
				t.Fatalf("resolve() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestShortCommit(t *testing.T) {
	t.Parallel()

	if got := shortCommit("0123456789abcdef"); got != "0123456789ab" {
		t.Fatalf("unexpected short commit %q", got)
	}
	if got := shortCommit("abc"); got != "abc" {
		t.Fatalf("unexpected short commit %q", got)
	}
}
