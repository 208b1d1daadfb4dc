package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExceeds(t *testing.T) {
	require.False(t, Exceeds(strings.Repeat("a", 64), 64))
	require.True(t, Exceeds(strings.Repeat("a", 65), 64))
	require.False(t, Exceeds(strings.Repeat("ب", 64), 64))
	require.False(t, Exceeds(strings.Repeat("a", 1000), 0))
}
