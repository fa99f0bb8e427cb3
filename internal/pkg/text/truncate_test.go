package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("  abc ", 3))
	assert.Equal(t, "ab...", Truncate("abcdef", 2))
	assert.Equal(t, "止损...", Truncate("止损触发", 2))
	assert.Equal(t, "abcdef", Truncate("abcdef", 0))
}
