package capabilities

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDropListHasExactlyTwentyOneEntries(t *testing.T) {
	require.Len(t, Drop, 21)
}

func TestDropListHasNoDuplicates(t *testing.T) {
	seen := make(map[int]bool, len(Drop))
	for _, c := range Drop {
		require.False(t, seen[int(c)], "duplicate capability %v", c)
		seen[int(c)] = true
	}
}

func TestClearedCountOnZeroValue(t *testing.T) {
	var c Cleared
	require.EqualValues(t, 0, c.Count())
}
