package wordlist

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultWordShape(t *testing.T) {
	w, ok := Default.Word(4)
	require.True(t, ok)
	require.Regexp(t, regexp.MustCompile(`^[a-z]{4}$`), w)
}

func TestDefaultWordZeroLength(t *testing.T) {
	_, ok := Default.Word(0)
	require.False(t, ok)
}

func TestSequenceCycles(t *testing.T) {
	s := &Sequence{Words: []string{"abcd", "wxyz"}}
	w1, _ := s.Word(4)
	w2, _ := s.Word(4)
	w3, _ := s.Word(4)
	require.Equal(t, "abcd", w1)
	require.Equal(t, "wxyz", w2)
	require.Equal(t, "abcd", w3)
}
