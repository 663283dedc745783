package home

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/log"
	"github.com/AdguardTeam/golibs/timeutil"
	"github.com/google/renameio"
	"github.com/ramanveerji/dhcpsuperv/internal/dhcpsvc"
	"github.com/ramanveerji/dhcpsuperv/internal/remote"
	"gopkg.in/yaml.v3"
)

// Default SSH timeouts.
const (
	defaultTimeout        = 10 * time.Second
	defaultCommandTimeout = 30 * time.Second
)

// configuration is the structure of the configuration file.
type configuration struct {
	// Config is the configuration of the managed servers.  Its keys are at
	// the top level of the file.
	dhcpsvc.Config `yaml:",inline"`

	SSH sshConfig `yaml:"ssh"`
	Log logConfig `yaml:"log"`
}

// sshConfig is the configuration of the SSH sessions.
type sshConfig struct {
	// KnownHosts is the path to the OpenSSH known hosts file used to verify
	// the servers.  If empty, host keys aren't verified.
	KnownHosts string `yaml:"known_hosts"`

	// Timeout bounds connecting to a server.
	Timeout timeutil.Duration `yaml:"timeout"`

	// CommandTimeout bounds each command run on a server.
	CommandTimeout timeutil.Duration `yaml:"command_timeout"`

	// Port is the SSH port of servers given without one.
	Port uint16 `yaml:"port"`
}

// logConfig is the configuration of logging.
type logConfig struct {
	// File is the path to the log file.  If empty, logs are written to
	// stderr.
	File string `yaml:"file"`

	// MaxSize is the maximum size of the log file in megabytes before it's
	// rotated.
	MaxSize int `yaml:"max_size"`

	// MaxBackups is the maximum number of old log files to keep.
	MaxBackups int `yaml:"max_backups"`

	// MaxAge is the maximum number of days to keep old log files.
	MaxAge int `yaml:"max_age"`

	// Compress defines if the rotated log files are gzipped.
	Compress bool `yaml:"compress"`

	// Verbose enables debug logging.
	Verbose bool `yaml:"verbose"`
}

// newConfiguration returns the configuration with default values.
func newConfiguration() (conf *configuration) {
	return &configuration{
		Config: *dhcpsvc.DefaultConfig(),
		SSH: sshConfig{
			Timeout:        timeutil.Duration{Duration: defaultTimeout},
			CommandTimeout: timeutil.Duration{Duration: defaultCommandTimeout},
			Port:           remote.DefaultPort,
		},
		Log: logConfig{
			MaxSize:    100,
			MaxBackups: 0,
			MaxAge:     3,
		},
	}
}

// readConfig reads and validates the configuration file at path.
func readConfig(path string) (conf *configuration, err error) {
	defer func() { err = errors.Annotate(err, "reading config %q: %w", path) }()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	conf = newConfiguration()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	err = dec.Decode(conf)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	err = conf.validate()
	if err != nil {
		return nil, err
	}

	return conf, nil
}

// warnShadowed logs the servers whose networks are partially or completely
// served by the servers declared before them.
func (conf *configuration) warnShadowed() {
	for _, srv := range conf.Servers.Shadowed() {
		log.Info(
			"home: warning: network %s of server %s overlaps an earlier network",
			srv.Network,
			srv.Addr,
		)
	}
}

// validate returns an error if conf is invalid.
func (conf *configuration) validate() (err error) {
	err = conf.Config.Validate()
	if err != nil {
		return err
	}

	switch {
	case conf.SSH.Timeout.Duration < 0:
		return fmt.Errorf("ssh.timeout: must not be negative, got %s", conf.SSH.Timeout)
	case conf.SSH.CommandTimeout.Duration < 0:
		return fmt.Errorf(
			"ssh.command_timeout: must not be negative, got %s",
			conf.SSH.CommandTimeout,
		)
	case conf.Log.MaxSize < 0, conf.Log.MaxBackups < 0, conf.Log.MaxAge < 0:
		return fmt.Errorf("log: rotation limits must not be negative")
	default:
		return nil
	}
}

// initialConfig is the configuration written by the init command.
const initialConfig = `# Static DHCP reservation supervisor configuration.
user: sae203
dhcp_hosts_cfg: /etc/dnsmasq.d/hosts.conf
reload_command: systemctl restart dnsmasq
sudo: true

# Server addresses mapped to the networks they administer.  When networks
# overlap, the server declared first wins.
dhcp-servers: {}

ssh:
  known_hosts: ""
  timeout: 10s
  command_timeout: 30s
  port: 22

log:
  file: ""
  verbose: false
`

// errConfigExists is returned by writeInitialConfig when the file exists.
const errConfigExists errors.Error = "configuration file already exists"

// writeInitialConfig writes a minimal configuration file at path.
func writeInitialConfig(path string) (err error) {
	_, err = os.Stat(path)
	if err == nil {
		return fmt.Errorf("%s: %w", path, errConfigExists)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", path, err)
	}

	err = renameio.WriteFile(path, []byte(initialConfig), 0o600)
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}
