package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaders(t *testing.T) {
	assert.Equal(t, "call-analyzer/"+Version, UserAgent())
	assert.Equal(t, UserAgent(), ServerHeader())
	assert.True(t, strings.Count(Version, ".") == 2, "version should be semver")
}
