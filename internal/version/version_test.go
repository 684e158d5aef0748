package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestColoredKeepsText(t *testing.T) {
	saved := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = saved }()

	orig := Version
	defer func() { Version = orig }()
	for _, v := range []string{"0.1.0-dev", "1.2.3", "2.0.0-rc.1", "nightly"} {
		Version = v
		if got := Colored(); got != v {
			t.Errorf("Colored(%q) = %q", v, got)
		}
	}
}

func TestCacheTag(t *testing.T) {
	origV, origC := Version, GitCommit
	defer func() { Version, GitCommit = origV, origC }()
	Version, GitCommit = "1.0.0", ""
	if got := CacheTag(); got != "1.0.0" {
		t.Fatalf("CacheTag = %q", got)
	}
	GitCommit = "abc123"
	if got := CacheTag(); got != "1.0.0+abc123" {
		t.Fatalf("CacheTag = %q", got)
	}
}
