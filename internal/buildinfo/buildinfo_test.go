package buildinfo

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func fakeBuildInfo(t *testing.T, info *debug.BuildInfo) {
	t.Helper()
	orig := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) { return info, info != nil }
	t.Cleanup(func() { readBuildInfo = orig })
}

func TestStringWithoutBuildInfo(t *testing.T) {
	fakeBuildInfo(t, nil)

	assert.Equal(t, "dev", Version())
	assert.Empty(t, Revision())
	assert.Equal(t, "dev", String())
}

func TestString(t *testing.T) {
	fakeBuildInfo(t, &debug.BuildInfo{
		Main: debug.Module{Version: "v1.2.3"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.modified", Value: "true"},
			{Key: "-tags", Value: "netgo"},
		},
	})

	assert.Equal(t, "v1.2.3", Version())
	assert.Equal(t, "0123456789ab+dirty", Revision())
	assert.Equal(t, "v1.2.3 (rev: 0123456789ab+dirty, tags: netgo)", String())
}

func TestDevelVersion(t *testing.T) {
	fakeBuildInfo(t, &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})

	assert.Equal(t, "dev", Version())
}
