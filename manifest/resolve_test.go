package manifest

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectRoot(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr error
	}{
		{path: "foo/bar/res/values/strings.xml", want: "foo/bar"},
		{path: "/packages/apps/Settings/res/values-de/strings.xml", want: "packages/apps/Settings"},
		{path: "  packages/apps/Settings/res/values-de/strings.xml\n", want: "packages/apps/Settings"},
		{path: "device/resolution/res/values-fr/strings.xml", want: "device/resolution"},
		{path: "frameworks/base/core/res/res/values-de/strings.xml", want: "frameworks/base/core/res"},
		{path: "packages/apps/Settings/values/strings.xml", wantErr: ErrNoResDir},
		{path: "a/res/b/res/c/res/values/strings.xml", wantErr: ErrTooManyResDirs},
		{path: "/res/values/strings.xml", wantErr: ErrUnmappable},
		{path: "packages/apps/Foo/res", want: "packages/apps/Foo"},
	}
	for _, tc := range tests {
		got, err := ProjectRoot(tc.path)
		if tc.wantErr != nil {
			assert.ErrorIs(t, err, tc.wantErr, tc.path)
			continue
		}
		require.NoError(t, err, tc.path)
		assert.Equal(t, tc.want, got, tc.path)
	}
}

func newTestResolver(projects ...Project) (*Resolver, *[]string) {
	r := NewResolver(&Manifest{Projects: projects}, "s12.1")
	var warnings []string
	r.OnWarning = func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}
	return r, &warnings
}

func TestResolve_ExactMatch(t *testing.T) {
	r, _ := newTestResolver(Project{Path: "foo/bar", Name: "AICP/foo_bar"})

	got := r.Resolve([]string{"foo/bar/res/values/strings.xml"})
	assert.Equal(t, []Resolved{{Root: "foo/bar", RemoteName: "AICP/foo_bar", Branch: "s12.1"}}, got)
}

func TestResolve_LongestPrefix(t *testing.T) {
	r, _ := newTestResolver(
		Project{Path: "foo", Name: "outer"},
		Project{Path: "foo/bar", Name: "inner", Revision: "s12.1-caf"},
	)

	got := r.Resolve([]string{"foo/bar/res/values/strings.xml"})
	require.Len(t, got, 1)
	assert.Equal(t, Resolved{Root: "foo/bar", RemoteName: "inner", Branch: "s12.1-caf"}, got[0])
}

func TestResolve_MissingResWarns(t *testing.T) {
	r, warnings := newTestResolver(Project{Path: "foo", Name: "foo"})

	got := r.Resolve([]string{"foo/values/strings.xml", "", "   "})
	assert.Empty(t, got)
	require.Len(t, *warnings, 1)
	assert.Contains(t, (*warnings)[0], "foo/values/strings.xml")
}

func TestResolve_Dedupe(t *testing.T) {
	r, warnings := newTestResolver(
		Project{Path: "packages/apps/Settings", Name: "settings"},
		Project{Path: "packages/apps/Launcher3", Name: "launcher"},
	)

	got := r.Resolve([]string{
		"packages/apps/Settings/res/values-de/strings.xml",
		"packages/apps/Launcher3/res/values-de/strings.xml",
		"packages/apps/Settings/res/values-fr/arrays.xml",
		"packages/apps/Settings/res/values-de/strings.xml",
	})
	assert.Equal(t, []Resolved{
		{Root: "packages/apps/Settings", RemoteName: "settings", Branch: "s12.1"},
		{Root: "packages/apps/Launcher3", RemoteName: "launcher", Branch: "s12.1"},
	}, got)
	assert.Empty(t, *warnings)

	// The set lives as long as the resolver.
	assert.True(t, r.Seen("packages/apps/Settings"))
	assert.Empty(t, r.Resolve([]string{"packages/apps/Settings/res/values-it/strings.xml"}))
}

func TestResolve_AncestorMatchRecorded(t *testing.T) {
	r, _ := newTestResolver(Project{Path: "vendor/aicp", Name: "vendor"})

	got := r.Resolve([]string{
		"vendor/aicp/overlay/common/packages/apps/Settings/res/values-de/strings.xml",
		"vendor/aicp/overlay/common/frameworks/base/core/res/res/values-de/strings.xml",
		"vendor/aicp/res/values-de/strings.xml",
	})
	assert.Equal(t, []Resolved{{Root: "vendor/aicp", RemoteName: "vendor", Branch: "s12.1"}}, got)
	assert.True(t, r.Seen("vendor/aicp/overlay/common/packages/apps/Settings"))
	assert.True(t, r.Seen("vendor/aicp"))
}

func TestResolve_UnknownProjectDropped(t *testing.T) {
	r, warnings := newTestResolver(Project{Path: "foo", Name: "foo"})

	assert.Empty(t, r.Resolve([]string{"bar/res/values/strings.xml"}))
	assert.Empty(t, *warnings)
}
