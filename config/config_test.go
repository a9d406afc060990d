package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	bowlerrors "github.com/nakamura-shuta/bowl/errors"
	"github.com/nakamura-shuta/bowl/wordlist"
)

func TestNewSplitsArgvAndKeepsArgv0(t *testing.T) {
	dir := t.TempDir()
	opts, pair, err := New("a b  c", 0, dir, nil, &wordlist.Sequence{Words: []string{"abcd", "wxyz"}})
	require.NoError(t, err)
	defer pair.Close()

	require.Equal(t, []string{"a", "b", "c"}, opts.Args)
	require.Equal(t, "a", opts.Path)
}

func TestNewTrimsWhitespace(t *testing.T) {
	dir := t.TempDir()
	opts, pair, err := New("  bash  ", 0, dir, nil, wordlist.Default)
	require.NoError(t, err)
	defer pair.Close()
	require.Equal(t, []string{"bash"}, opts.Args)
}

func TestNewRejectsMissingMountRoot(t *testing.T) {
	_, _, err := New("bash", 0, "/does/not/exist", nil, wordlist.Default)
	require.Error(t, err)
	var ec *bowlerrors.Errcode
	require.ErrorAs(t, err, &ec)
	require.Equal(t, bowlerrors.InvalidArgument, ec.K)
	require.Equal(t, "mount_directory", ec.Field)
}

func TestNewRejectsNonDirectoryMountRoot(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "notadir")
	require.NoError(t, err)
	defer f.Close()

	_, _, err = New("bash", 0, f.Name(), nil, wordlist.Default)
	require.Error(t, err)
}

func TestNewHostnameShape(t *testing.T) {
	dir := t.TempDir()
	opts, pair, err := New("bash", 0, dir, nil, &wordlist.Sequence{Words: []string{"abcd", "wxyz"}})
	require.NoError(t, err)
	defer pair.Close()
	require.Equal(t, "abcd-wxyz", opts.Hostname)
}

func TestNewStripsLeadingSlashFromAddPathTarget(t *testing.T) {
	dir := t.TempDir()
	src := t.TempDir()
	opts, pair, err := New("bash", 0, dir, []BindMount{{HostSource: src, ContainerTarget: "/etc/resolv.conf"}}, wordlist.Default)
	require.NoError(t, err)
	defer pair.Close()
	require.Equal(t, "etc/resolv.conf", opts.AddPaths[0].ContainerTarget)
}
