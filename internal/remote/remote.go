// Package remote provides authenticated command execution on remote DHCP
// servers over SSH.
package remote

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/log"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const (
	// ErrAuth is returned when the identity can't be decoded or is rejected by
	// the server.
	ErrAuth errors.Error = "authentication failed"

	// ErrConnect is returned on transport failures, including timeouts.
	ErrConnect errors.Error = "connection failed"
)

// Identity is the credential used to open sessions.  It's decoded anew on each
// open, so a single Identity may be shared by all sessions of an invocation.
type Identity struct {
	// KeyFile is the path to the private key file.
	KeyFile string

	// Passphrase decrypts the private key.  It's only used when the key is
	// encrypted and may be empty.
	Passphrase []byte
}

// Result is the outcome of a single remote command.
type Result struct {
	// Stdout is the captured standard output of the command.
	Stdout []byte

	// Status is the exit status of the command.
	Status int
}

// Session is a single-use authenticated command channel to a server.
type Session interface {
	// Run executes cmd through the remote shell.  A non-zero exit status is
	// reported in res and isn't an error; err is only returned on transport
	// failures.
	Run(ctx context.Context, cmd string) (res *Result, err error)

	// Close releases the underlying connection.
	io.Closer
}

// Dialer opens sessions.
type Dialer interface {
	// Open establishes a session to addr as user authenticated with id.
	Open(ctx context.Context, addr, user string, id *Identity) (s Session, err error)
}

// DefaultPort is the default port of the SSH service.
const DefaultPort uint16 = 22

// Config is the configuration structure for Default.
type Config struct {
	// DialContext specifies the dial function for creating TCP connections.
	// If nil, a [net.Dialer] is used.
	DialContext func(ctx context.Context, network, addr string) (conn net.Conn, err error)

	// HostKeyCallback verifies server host keys.  If nil, any host key is
	// accepted.
	HostKeyCallback ssh.HostKeyCallback

	// Timeout bounds connecting and the SSH handshake.  Zero means no limit.
	Timeout time.Duration

	// CommandTimeout bounds each command run.  Zero means no limit.
	CommandTimeout time.Duration

	// Port is the port used for server addresses without one.
	Port uint16
}

// Default is the SSH session opener.
type Default struct {
	// dialContext connects to the servers.
	dialContext func(ctx context.Context, network, addr string) (conn net.Conn, err error)

	// hostKeyCallback verifies server host keys.
	hostKeyCallback ssh.HostKeyCallback

	// portStr is the port used for server addresses without one.
	portStr string

	// timeout bounds connecting and the SSH handshake.
	timeout time.Duration

	// commandTimeout bounds each command run.
	commandTimeout time.Duration
}

// New returns a new SSH session opener.  conf must not be nil.
func New(conf *Config) (d *Default) {
	d = &Default{
		dialContext:     conf.DialContext,
		hostKeyCallback: conf.HostKeyCallback,
		portStr:         strconv.Itoa(int(conf.Port)),
		timeout:         conf.Timeout,
		commandTimeout:  conf.CommandTimeout,
	}

	if d.dialContext == nil {
		d.dialContext = (&net.Dialer{}).DialContext
	}

	if conf.Port == 0 {
		d.portStr = strconv.Itoa(int(DefaultPort))
	}

	if d.hostKeyCallback == nil {
		log.Info("remote: warning: host keys are not verified, set a known hosts file")

		//#nosec G106 -- Explicitly requested by leaving the known hosts unset.
		d.hostKeyCallback = ssh.InsecureIgnoreHostKey()
	}

	return d
}

// KnownHosts returns a host key callback checking keys against the OpenSSH
// known hosts files.
func KnownHosts(files ...string) (cb ssh.HostKeyCallback, err error) {
	cb, err = knownhosts.New(files...)
	if err != nil {
		return nil, fmt.Errorf("loading known hosts: %w", err)
	}

	return cb, nil
}

// type check
var _ Dialer = (*Default)(nil)

// Open implements the [Dialer] interface for *Default.
func (d *Default) Open(ctx context.Context, addr, user string, id *Identity) (s Session, err error) {
	signer, err := loadSigner(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuth, err)
	}

	hostAddr := addr
	if _, _, err = net.SplitHostPort(addr); err != nil {
		hostAddr = net.JoinHostPort(addr, d.portStr)
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	log.Debug("remote: connecting to %s as %s", hostAddr, user)

	conn, err := d.dialContext(ctx, "tcp", hostAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	client, err := d.handshake(ctx, conn, hostAddr, &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: d.hostKeyCallback,
	})
	if err != nil {
		return nil, errors.WithDeferred(err, conn.Close())
	}

	return &session{
		client:  client,
		addr:    hostAddr,
		timeout: d.commandTimeout,
	}, nil
}

// handshake performs the SSH handshake over conn within the deadline of ctx.
func (d *Default) handshake(
	ctx context.Context,
	conn net.Conn,
	hostAddr string,
	conf *ssh.ClientConfig,
) (client *ssh.Client, err error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, hostAddr, conf)
	if err != nil {
		if isAuthError(err) {
			return nil, fmt.Errorf("%w: %w", ErrAuth, err)
		}

		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	_ = conn.SetDeadline(time.Time{})

	return ssh.NewClient(c, chans, reqs), nil
}

// isAuthError returns true if err is returned by the SSH handshake because the
// server rejected all offered credentials.  The ssh package doesn't export a
// distinct error type for that.
func isAuthError(err error) (ok bool) {
	return strings.Contains(err.Error(), "unable to authenticate")
}

// loadSigner decodes the private key of id.  The passphrase is only used when
// the key turns out to be encrypted.
func loadSigner(id *Identity) (signer ssh.Signer, err error) {
	if id == nil || id.KeyFile == "" {
		return nil, errors.Error("no private key file")
	}

	pemBytes, err := os.ReadFile(id.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}

	signer, err = ssh.ParsePrivateKey(pemBytes)
	if err == nil {
		return signer, nil
	}

	missingErr := &ssh.PassphraseMissingError{}
	if !errors.As(err, &missingErr) {
		return nil, fmt.Errorf("decoding private key %s: %w", id.KeyFile, err)
	}

	if len(id.Passphrase) == 0 {
		return nil, fmt.Errorf("private key %s is encrypted and no passphrase given", id.KeyFile)
	}

	signer, err = ssh.ParsePrivateKeyWithPassphrase(pemBytes, id.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("decrypting private key %s: %w", id.KeyFile, err)
	}

	return signer, nil
}

// NeedsPassphrase returns true if the private key in keyFile is encrypted.  It
// returns false if the key can't be read or decoded, since no passphrase would
// help then.
func NeedsPassphrase(keyFile string) (ok bool) {
	pemBytes, err := os.ReadFile(keyFile)
	if err != nil {
		return false
	}

	_, err = ssh.ParsePrivateKey(pemBytes)
	missingErr := &ssh.PassphraseMissingError{}

	return errors.As(err, &missingErr)
}
