package config

import (
	"fmt"

	"golang.org/x/sys/unix"

	bowlerrors "github.com/nakamura-shuta/bowl/errors"
	"github.com/nakamura-shuta/bowl/wordlist"
)

// GenerateHostname produces a "<word4>-<word4>" hostname (spec.md
// invariant 5) from src. Grounded on host.rs's generate_host.
func GenerateHostname(src wordlist.Source) (string, error) {
	a, ok := src.Word(4)
	if !ok {
		return "", bowlerrors.New(bowlerrors.WordGenError, 0)
	}
	b, ok := src.Word(4)
	if !ok {
		return "", bowlerrors.New(bowlerrors.WordGenError, 0)
	}
	return fmt.Sprintf("%s-%s", a, b), nil
}

// SetHostname applies hostname inside the child's UTS namespace.
// Grounded on host.rs's set_container_hostname.
func SetHostname(hostname string) error {
	if err := unix.Sethostname([]byte(hostname)); err != nil {
		return bowlerrors.New(bowlerrors.HostnameError, 0)
	}
	return nil
}
