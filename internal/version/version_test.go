package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFull(t *testing.T) {
	defer func(v, c, d, b string) { Version, Commit, Date, BuiltBy = v, c, d, b }(Version, Commit, Date, BuiltBy)

	Version, Commit, Date, BuiltBy = "1.2.0", "abc123", "2025-01-31", ""
	assert.Equal(t, "meetingbot 1.2.0, commit abc123, built at 2025-01-31", Full())

	BuiltBy = "ci"
	assert.Equal(t, "meetingbot 1.2.0, commit abc123, built at 2025-01-31 by ci", Full())
}
