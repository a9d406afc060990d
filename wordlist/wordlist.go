// Package wordlist provides the random word source used to generate
// container hostnames and mount staging directory suffixes. Random
// word generation is an external collaborator per spec.md §1 ("Random
// hostname generation (treated as an opaque string source)"); this
// package only defines the opaque interface and a small built-in
// implementation, so tests can inject a deterministic Source instead
// (spec.md §9 design note: "the rewrite should depend on an injectable
// trait fn next_word(len) -> Option<&str>").
package wordlist

import (
	"crypto/rand"
	"math/big"
)

// Source returns a lowercase ASCII word of exactly n letters, or ok ==
// false if it cannot produce one (e.g. n out of range for a dictionary
// implementation).
type Source interface {
	Word(n int) (word string, ok bool)
}

const alphabet = "abcdefghijklmnopqrstuvwxyz"

// random is the default Source. It does not depend on an actual
// dictionary (none is available in the corpus for this purpose); it
// draws n letters uniformly from the lowercase alphabet using
// crypto/rand, which is sufficient to satisfy spec.md invariant 5
// (shape ^[a-z]{4}-[a-z]{4}$, distinct with overwhelming probability)
// without pretending to produce pronounceable dictionary words.
type random struct{}

// Default is the Source used when the caller does not inject one.
var Default Source = random{}

func (random) Word(n int) (string, bool) {
	if n <= 0 {
		return "", false
	}
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", false
		}
		buf[i] = alphabet[idx.Int64()]
	}
	return string(buf), true
}

// Fixed is a deterministic Source for tests: it always returns the
// configured word, ignoring n, so callers can assert exact hostnames
// without depending on randomness.
type Fixed string

func (f Fixed) Word(int) (string, bool) { return string(f), true }

// Sequence cycles through a fixed list, useful for tests that need two
// distinct deterministic words (e.g. a "<word1>-<word2>" hostname).
type Sequence struct {
	Words []string
	next  int
}

func (s *Sequence) Word(int) (string, bool) {
	if len(s.Words) == 0 {
		return "", false
	}
	w := s.Words[s.next%len(s.Words)]
	s.next++
	return w, true
}
