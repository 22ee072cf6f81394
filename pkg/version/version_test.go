package version_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/macropower/rulecat/pkg/version"
)

func TestGetInfo(t *testing.T) {
	t.Parallel()

	info := version.GetInfo()

	assert.Equal(t, version.GetVersion(), info.Version)
	assert.NotEmpty(t, info.Revision)
	assert.Equal(t, version.GoOS+"/"+version.GoArch, info.Platform)
}

func TestUserAgent(t *testing.T) {
	t.Parallel()

	ua := version.UserAgent()

	assert.True(t, strings.HasPrefix(ua, "rulecat/"), ua)
	assert.Contains(t, ua, version.GoOS)
}
