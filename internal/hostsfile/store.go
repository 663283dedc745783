package hostsfile

import (
	"context"
	"fmt"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/log"
	"github.com/alessio/shellescape"
	"github.com/ramanveerji/dhcpsuperv/internal/dhcpsvc"
	"github.com/ramanveerji/dhcpsuperv/internal/remote"
)

// Steps of a mutation reported in [CommandError].
const (
	StepRead   = "read"
	StepEdit   = "edit"
	StepReload = "reload"
)

// ipPattern is the sed pattern of the IP field up to the end of a line.  It
// matches the same fields as [ParseLine], with an optional carriage return.
const ipPattern = `[^[:space:],]\+\r\?$`

// CommandError is returned when a store command exits with a non-zero status.
type CommandError struct {
	// Step is the step of the operation that failed, one of StepRead,
	// StepEdit, and StepReload.
	Step string

	// Command is the failed command.
	Command string

	// Output is the standard output of the command.
	Output string

	// Status is the exit status of the command.
	Status int
}

// type check
var _ error = (*CommandError)(nil)

// Error implements the error interface for *CommandError.
func (err *CommandError) Error() (msg string) {
	return fmt.Sprintf("%s: %q exited with status %d", err.Step, err.Command, err.Status)
}

// Unwrap returns [dhcpsvc.ErrRemoteCommandFailed], so that command failures of
// all stores are matched by [errors.Is].
func (err *CommandError) Unwrap() (unwrapped error) {
	return dhcpsvc.ErrRemoteCommandFailed
}

// StoreConfig is the configuration structure for Store.
type StoreConfig struct {
	// Session runs the commands.  It's closed with the store.
	Session remote.Session

	// Server is the address of the server, for logging.
	Server string

	// Path is the path to the hosts file on the server.
	Path string

	// ReloadCommand reloads the DHCP daemon.
	ReloadCommand string

	// Sudo defines if the mutating commands and the reload are run with sudo.
	Sudo bool
}

// Store is a [dhcpsvc.Store] over the hosts file of a remote server, which is
// read and edited with shell commands.  Each edit is followed by the reload
// command, and nothing is rolled back if the reload fails.
type Store struct {
	sess      remote.Session
	server    string
	path      string
	reloadCmd string
	sudo      bool
}

// NewStore returns a new remote store.  conf must not be nil.
func NewStore(conf *StoreConfig) (s *Store) {
	return &Store{
		sess:      conf.Session,
		server:    conf.Server,
		path:      shellescape.Quote(conf.Path),
		reloadCmd: conf.ReloadCommand,
		sudo:      conf.Sudo,
	}
}

// type check
var _ dhcpsvc.Store = (*Store)(nil)

// Reservations implements the [dhcpsvc.Store] interface for *Store.  A missing
// hosts file has no reservations.
func (s *Store) Reservations(ctx context.Context) (rs []*dhcpsvc.Reservation, err error) {
	out, err := s.run(ctx, StepRead, "grep '^"+Prefix+"' "+s.path+" || true")
	if err != nil {
		return nil, err
	}

	return Parse(out), nil
}

// Upsert implements the [dhcpsvc.Store] interface for *Store.
func (s *Store) Upsert(ctx context.Context, r *dhcpsvc.Reservation) (replaced bool, err error) {
	replaced, err = dhcpsvc.MACExists(ctx, s, r.MAC)
	if err != nil {
		return false, err
	}

	line := FormatLine(r)

	var cmd string
	if replaced {
		expr := fmt.Sprintf("s|^%s%s,%s|%s|I", Prefix, r.MAC, ipPattern, line)
		cmd = s.privileged("sed -i " + shellescape.Quote(expr) + " " + s.path)
	} else {
		cmd = s.appendCmd(line)
	}

	_, err = s.run(ctx, StepEdit, cmd)
	if err != nil {
		return replaced, err
	}

	return replaced, s.reload(ctx)
}

// Remove implements the [dhcpsvc.Store] interface for *Store.
func (s *Store) Remove(ctx context.Context, mac string) (err error) {
	expr := fmt.Sprintf("/^%s%s,%s/Id", Prefix, strings.ToLower(mac), ipPattern)

	_, err = s.run(ctx, StepEdit, s.privileged("sed -i "+shellescape.Quote(expr)+" "+s.path))
	if err != nil {
		return err
	}

	return s.reload(ctx)
}

// Close implements the [dhcpsvc.Store] interface for *Store.
func (s *Store) Close() (err error) {
	return s.sess.Close()
}

// appendCmd returns the command appending line to the file.  A newline is
// written first if the file doesn't end with one, so that line isn't glued to
// the last line.
func (s *Store) appendCmd(line string) (cmd string) {
	return fmt.Sprintf(
		`{ [ ! -s %[1]s ] || [ -z "$(tail -c 1 %[1]s)" ] || echo; echo %[2]s; } | %[3]s > /dev/null`,
		s.path,
		shellescape.Quote(line),
		s.privileged("tee -a "+s.path),
	)
}

// reload runs the reload command.
func (s *Store) reload(ctx context.Context) (err error) {
	_, err = s.run(ctx, StepReload, s.privileged(s.reloadCmd))
	if err != nil {
		log.Error("hostsfile: %s: hosts file changed but daemon not reloaded", s.server)
	}

	return err
}

// privileged returns cmd prefixed with sudo if needed.
func (s *Store) privileged(cmd string) (priv string) {
	if s.sudo {
		return "sudo " + cmd
	}

	return cmd
}

// run runs cmd and returns its output.  step is used for the error.
func (s *Store) run(ctx context.Context, step, cmd string) (out []byte, err error) {
	res, err := s.sess.Run(ctx, cmd)
	if err != nil {
		return nil, err
	}

	if res.Status != 0 {
		return nil, &CommandError{
			Step:    step,
			Command: cmd,
			Output:  string(res.Stdout),
			Status:  res.Status,
		}
	}

	if step != StepRead && len(res.Stdout) > 0 {
		log.Debug("hostsfile: %s: %s", s.server, res.Stdout)
	}

	return res.Stdout, nil
}

// OpenerConfig is the configuration structure for Opener.
type OpenerConfig struct {
	// Dialer opens the sessions.  It must not be nil.
	Dialer remote.Dialer

	// Identity authenticates the sessions.  It's shared by all of them.
	Identity *remote.Identity

	// User is the name of the user on the servers.
	User string

	// Path is the path to the hosts file on the servers.
	Path string

	// ReloadCommand reloads the DHCP daemon.
	ReloadCommand string

	// Sudo defines if the mutating commands and the reload are run with sudo.
	Sudo bool
}

// Opener opens remote stores, one session per store.
type Opener struct {
	dialer    remote.Dialer
	identity  *remote.Identity
	user      string
	path      string
	reloadCmd string
	sudo      bool
}

// NewOpener returns a new remote store opener.  conf must not be nil.
func NewOpener(conf *OpenerConfig) (o *Opener) {
	return &Opener{
		dialer:    conf.Dialer,
		identity:  conf.Identity,
		user:      conf.User,
		path:      conf.Path,
		reloadCmd: conf.ReloadCommand,
		sudo:      conf.Sudo,
	}
}

// type check
var _ dhcpsvc.Opener = (*Opener)(nil)

// Open implements the [dhcpsvc.Opener] interface for *Opener.
func (o *Opener) Open(ctx context.Context, server string) (s dhcpsvc.Store, err error) {
	sess, err := o.dialer.Open(ctx, server, o.user, o.identity)
	if err != nil {
		return nil, errors.Annotate(err, "opening store: %w")
	}

	return NewStore(&StoreConfig{
		Session:       sess,
		Server:        server,
		Path:          o.path,
		ReloadCommand: o.reloadCmd,
		Sudo:          o.sudo,
	}), nil
}
