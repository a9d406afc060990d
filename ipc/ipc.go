// Package ipc implements the blocking single-byte boolean channel used
// to synchronize the bowl parent and child across the deferred
// user-namespace handshake. It is a thin wrapper over a SOCK_SEQPACKET
// Unix socket pair, following the same socketpair/send/recv shape as
// the teacher's process_linux.go messageSockPair, but with record
// boundaries instead of a pipe.
package ipc

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	bowlerrors "github.com/nakamura-shuta/bowl/errors"
)

// Pair is a SOCK_SEQPACKET socket pair with close-on-exec set on both
// ends. ParentFD is kept by the parent; ChildFD crosses exec via
// os/exec.Cmd.ExtraFiles and is duped onto a known descriptor number
// inside the child.
type Pair struct {
	ParentFD int
	ChildFD  int
}

// CreatePair allocates a fresh SocketPair. Fails with SocketError(0) if
// the underlying syscall fails.
func CreatePair() (Pair, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_SEQPACKET|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return Pair{}, errors.Wrap(bowlerrors.New(bowlerrors.SocketError, 0), "socketpair")
	}
	return Pair{ParentFD: fds[0], ChildFD: fds[1]}, nil
}

// Close closes both ends of the pair and returns the first close error.
// It is not idempotent: a second Close of the same pair returns the
// kernel's error for the already-closed fds (container.Container's
// clean reports that error as its own result).
func (p Pair) Close() error {
	var firstErr error
	if err := unix.Close(p.ParentFD); err != nil {
		firstErr = err
	}
	if err := unix.Close(p.ChildFD); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// SendBool transmits a single byte, 0x01 for true or 0x00 for false.
// Fails with SocketError(1).
func SendBool(fd int, v bool) error {
	b := byte(0x00)
	if v {
		b = 0x01
	}
	n, err := unix.Write(fd, []byte{b})
	if err != nil || n != 1 {
		return errors.Wrap(bowlerrors.New(bowlerrors.SocketError, 1), "send_bool")
	}
	return nil
}

// RecvBool blocks until exactly one byte is received and returns true
// iff that byte is 0x01. Fails with SocketError(2).
func RecvBool(fd int) (bool, error) {
	buf := make([]byte, 1)
	n, err := unix.Read(fd, buf)
	if err != nil || n != 1 {
		return false, errors.Wrap(bowlerrors.New(bowlerrors.SocketError, 2), "recv_bool")
	}
	return buf[0] == 0x01, nil
}

// SendBoolFile and RecvBoolFile are *os.File conveniences for a caller
// holding its end of the pair as an os.File. The init child does not
// use them: it calls SendBool/RecvBool on the raw descriptor number its
// end lands on after exec (see os/exec.Cmd.ExtraFiles).
func SendBoolFile(f *os.File, v bool) error { return SendBool(int(f.Fd()), v) }
func RecvBoolFile(f *os.File) (bool, error) { return RecvBool(int(f.Fd())) }
