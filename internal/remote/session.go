package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/log"
	"golang.org/x/crypto/ssh"
)

// session is an SSH [Session].
type session struct {
	// client is the underlying SSH connection.
	client *ssh.Client

	// addr is the address of the server, for logging.
	addr string

	// timeout bounds each command run.  Zero means no limit.
	timeout time.Duration
}

// type check
var _ Session = (*session)(nil)

// Run implements the [Session] interface for *session.
func (s *session) Run(ctx context.Context, cmd string) (res *Result, err error) {
	defer func() { err = errors.Annotate(err, "running command on %s: %w", s.addr) }()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	sess, err := s.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("%w: opening channel: %w", ErrConnect, err)
	}
	defer func() { err = errors.WithDeferred(err, closeChannel(sess)) }()

	stdout := &bytes.Buffer{}
	sess.Stdout = stdout

	log.Debug("remote: %s: running %q", s.addr, cmd)

	done := make(chan error, 1)
	go func() { done <- sess.Run(cmd) }()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrConnect, ctx.Err())
	case err = <-done:
		// Go on.
	}

	status := 0
	if err != nil {
		exitErr := &ssh.ExitError{}
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: %w", ErrConnect, err)
		}

		status = exitErr.ExitStatus()
	}

	log.Debug("remote: %s: exit status %d, %d bytes of output", s.addr, status, stdout.Len())

	return &Result{
		Stdout: stdout.Bytes(),
		Status: status,
	}, nil
}

// closeChannel closes sess ignoring the error reported for channels already
// closed by the server.
func closeChannel(sess *ssh.Session) (err error) {
	err = sess.Close()
	if errors.Is(err, io.EOF) {
		return nil
	}

	return err
}

// Close implements the [Session] interface for *session.
func (s *session) Close() (err error) {
	log.Debug("remote: closing session to %s", s.addr)

	err = s.client.Close()
	if err != nil {
		return fmt.Errorf("closing session to %s: %w", s.addr, err)
	}

	return nil
}
