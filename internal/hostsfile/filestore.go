package hostsfile

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/log"
	"github.com/google/renameio"
	"github.com/ramanveerji/dhcpsuperv/internal/dhcpsvc"
)

// defaultPerm is the permission of a newly created hosts file.
const defaultPerm fs.FileMode = 0o644

// FileStore is a [dhcpsvc.Store] over a hosts file on the local machine.  It's
// used when the supervisor runs on the DHCP server itself.  The file is
// replaced atomically on each edit.
type FileStore struct {
	path      string
	reloadCmd string
}

// NewFileStore returns a new local store for the hosts file at path.  An empty
// reloadCmd disables reloading.
func NewFileStore(path, reloadCmd string) (s *FileStore) {
	return &FileStore{
		path:      path,
		reloadCmd: reloadCmd,
	}
}

// type check
var _ dhcpsvc.Store = (*FileStore)(nil)

// Reservations implements the [dhcpsvc.Store] interface for *FileStore.
func (s *FileStore) Reservations(_ context.Context) (rs []*dhcpsvc.Reservation, err error) {
	data, _, err := s.read()
	if err != nil {
		return nil, err
	}

	return Parse(data), nil
}

// Upsert implements the [dhcpsvc.Store] interface for *FileStore.
func (s *FileStore) Upsert(ctx context.Context, r *dhcpsvc.Reservation) (replaced bool, err error) {
	data, perm, err := s.read()
	if err != nil {
		return false, err
	}

	lines := splitLines(data)
	newLine := FormatLine(r)
	for i, line := range lines {
		if isLineFor(line, r.MAC) {
			lines[i] = newLine
			replaced = true
		}
	}

	if !replaced {
		lines = append(lines, newLine)
	}

	err = s.write(lines, perm)
	if err != nil {
		return replaced, err
	}

	return replaced, s.reload(ctx)
}

// Remove implements the [dhcpsvc.Store] interface for *FileStore.
func (s *FileStore) Remove(ctx context.Context, mac string) (err error) {
	data, perm, err := s.read()
	if err != nil {
		return err
	}

	lines := splitLines(data)
	kept := lines[:0]
	for _, line := range lines {
		if !isLineFor(line, mac) {
			kept = append(kept, line)
		}
	}

	err = s.write(kept, perm)
	if err != nil {
		return err
	}

	return s.reload(ctx)
}

// Close implements the [dhcpsvc.Store] interface for *FileStore.
func (s *FileStore) Close() (err error) {
	return nil
}

// read returns the contents and the permissions of the hosts file.  A missing
// file is empty.
func (s *FileStore) read() (data []byte, perm fs.FileMode, err error) {
	fi, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, defaultPerm, nil
	} else if err != nil {
		return nil, 0, errors.Annotate(err, "reading hosts file: %w")
	}

	data, err = os.ReadFile(s.path)
	if err != nil {
		return nil, 0, errors.Annotate(err, "reading hosts file: %w")
	}

	return data, fi.Mode().Perm(), nil
}

// write replaces the hosts file with lines.
func (s *FileStore) write(lines []string, perm fs.FileMode) (err error) {
	var buf bytes.Buffer
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	err = renameio.WriteFile(s.path, buf.Bytes(), perm)
	if err != nil {
		return fmt.Errorf("%w: writing hosts file: %w", dhcpsvc.ErrRemoteCommandFailed, err)
	}

	return nil
}

// reload runs the reload command with the shell.
func (s *FileStore) reload(ctx context.Context) (err error) {
	if s.reloadCmd == "" {
		return nil
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", s.reloadCmd)
	out, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}

	status := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		status = exitErr.ExitCode()
	}

	log.Error("hostsfile: local: hosts file changed but daemon not reloaded")

	return &CommandError{
		Step:    StepReload,
		Command: s.reloadCmd,
		Output:  string(out),
		Status:  status,
	}
}

// splitLines splits data into lines without line terminators.  The empty
// trailing line is dropped.
func splitLines(data []byte) (lines []string) {
	if len(data) == 0 {
		return nil
	}

	lines = strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, "\r")
	}

	return lines
}

// FileOpener opens a [FileStore] for any server.
type FileOpener struct {
	path      string
	reloadCmd string
}

// NewFileOpener returns a new local store opener.
func NewFileOpener(path, reloadCmd string) (o *FileOpener) {
	return &FileOpener{
		path:      path,
		reloadCmd: reloadCmd,
	}
}

// type check
var _ dhcpsvc.Opener = (*FileOpener)(nil)

// Open implements the [dhcpsvc.Opener] interface for *FileOpener.  server is
// ignored.
func (o *FileOpener) Open(_ context.Context, _ string) (s dhcpsvc.Store, err error) {
	return NewFileStore(o.path, o.reloadCmd), nil
}
