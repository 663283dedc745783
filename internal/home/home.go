// Package home is the command-line interface of the supervisor.
package home

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/log"
	"github.com/ramanveerji/dhcpsuperv/internal/dhcpsvc"
	"github.com/ramanveerji/dhcpsuperv/internal/hostsfile"
	"github.com/ramanveerji/dhcpsuperv/internal/remote"
	"golang.org/x/crypto/ssh"
	"golang.org/x/term"
)

// errServersFailed is returned by the list and check commands when some
// servers couldn't be read.  The errors themselves are already reported.
const errServersFailed errors.Error = "some servers failed"

// Main is the entry point of the program.
func Main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, func() (p []byte, err error) {
		return promptPassphrase(os.Stdin, os.Stderr)
	})
	cancel()

	os.Exit(code)
}

// app is the state of a single invocation.
type app struct {
	env *environment

	stdout io.Writer
	stderr io.Writer

	// passphrase returns the passphrase of the private key when the
	// environment has none.
	passphrase func() (p []byte, err error)

	// dialer, if not nil, replaces the SSH dialer.
	dialer remote.Dialer

	// logCloser closes the log file, if any.
	logCloser io.Closer

	confPath   string
	keyFile    string
	knownHosts string
	verbose    bool
	local      bool
}

// run executes the command line args and returns the exit status.
func run(
	ctx context.Context,
	args []string,
	stdout io.Writer,
	stderr io.Writer,
	passphrase func() (p []byte, err error),
) (code int) {
	e, err := readEnvironment()
	if err != nil {
		fmt.Fprintf(stderr, "error: parsing environment: %s\n", err)

		return 1
	}

	a := &app{
		env:        e,
		stdout:     stdout,
		stderr:     stderr,
		passphrase: passphrase,
	}

	return a.execute(ctx, args)
}

// execute runs the root command with args and returns the exit status.
func (a *app) execute(ctx context.Context, args []string) (code int) {
	cmd := a.rootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	err := cmd.ExecuteContext(ctx)
	if a.logCloser != nil {
		err = errors.WithDeferred(err, a.logCloser.Close())
	}

	if err == nil {
		return 0
	}

	if !errors.Is(err, errServersFailed) {
		fmt.Fprintf(a.stderr, "error: %s\n", err)
	}

	return 1
}

// service returns the reservation service built from the configuration file.
func (a *app) service() (svc *dhcpsvc.Service, err error) {
	conf, err := readConfig(a.confPath)
	if err != nil {
		return nil, err
	}

	a.logCloser = configureLogger(&conf.Log, a.verbose)
	conf.warnShadowed()

	opener, err := a.opener(conf)
	if err != nil {
		return nil, err
	}

	return dhcpsvc.New(&dhcpsvc.ServiceConfig{
		Topology: conf.Servers,
		Opener:   opener,
	}), nil
}

// opener returns the store opener for conf.
func (a *app) opener(conf *configuration) (o dhcpsvc.Opener, err error) {
	reloadCmd := conf.ReloadCommand
	if a.local {
		if conf.Sudo {
			reloadCmd = "sudo " + reloadCmd
		}

		log.Debug("home: using local hosts file %s", conf.HostsFile)

		return hostsfile.NewFileOpener(conf.HostsFile, reloadCmd), nil
	}

	id, err := a.identity()
	if err != nil {
		return nil, err
	}

	d := a.dialer
	if d == nil {
		d, err = a.sshDialer(conf)
		if err != nil {
			return nil, err
		}
	}

	return hostsfile.NewOpener(&hostsfile.OpenerConfig{
		Dialer:        d,
		Identity:      id,
		User:          conf.User,
		Path:          conf.HostsFile,
		ReloadCommand: reloadCmd,
		Sudo:          conf.Sudo,
	}), nil
}

// sshDialer returns the SSH dialer configured by conf.
func (a *app) sshDialer(conf *configuration) (d *remote.Default, err error) {
	knownHosts := a.knownHosts
	if knownHosts == "" {
		knownHosts = conf.SSH.KnownHosts
	}

	var cb ssh.HostKeyCallback
	if knownHosts != "" {
		cb, err = remote.KnownHosts(expandHome(knownHosts))
		if err != nil {
			return nil, err
		}
	}

	return remote.New(&remote.Config{
		HostKeyCallback: cb,
		Timeout:         conf.SSH.Timeout.Duration,
		CommandTimeout:  conf.SSH.CommandTimeout.Duration,
		Port:            conf.SSH.Port,
	}), nil
}

// identity returns the credentials of the sessions.  The passphrase is asked
// once, and only if the key is encrypted and the environment has none.
func (a *app) identity() (id *remote.Identity, err error) {
	id = &remote.Identity{
		KeyFile: expandHome(a.keyFile),
	}

	if a.env.Passphrase != "" {
		id.Passphrase = []byte(a.env.Passphrase)
	} else if a.passphrase != nil && remote.NeedsPassphrase(id.KeyFile) {
		id.Passphrase, err = a.passphrase()
		if err != nil {
			return nil, err
		}
	}

	return id, nil
}

// promptPassphrase asks for the passphrase of the private key on the
// terminal.  It returns nil if in isn't a terminal or the answer is empty.
func promptPassphrase(in *os.File, out io.Writer) (p []byte, err error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return nil, nil
	}

	fmt.Fprint(out, "Passphrase for SSH key (enter if none): ")
	p, err = term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}

	if len(p) == 0 {
		return nil, nil
	}

	return p, nil
}
