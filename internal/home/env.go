package home

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v9"
)

// environment is the configuration read from the environment.
type environment struct {
	// ConfigPath is the path to the configuration file.
	ConfigPath string `env:"DHCPSUPERV_CONFIG" envDefault:"superviseur.yaml"`

	// KeyFile is the path to the private key authenticating the SSH sessions.
	KeyFile string `env:"DHCPSUPERV_KEY_FILE" envDefault:"~/.ssh/dhcp_superv_key"`

	// Passphrase decrypts KeyFile.  If set, there is no prompt.
	Passphrase string `env:"DHCPSUPERV_PASSPHRASE,unset"`

	// KnownHosts is the path to the OpenSSH known hosts file.  It overrides
	// the configuration file.
	KnownHosts string `env:"DHCPSUPERV_KNOWN_HOSTS"`
}

// readEnvironment parses the environment.
func readEnvironment() (e *environment, err error) {
	e = &environment{}
	err = env.Parse(e)
	if err != nil {
		return nil, err
	}

	return e, nil
}

// expandHome replaces the leading "~" of path with the home directory of the
// current user.
func expandHome(path string) (expanded string) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[1:])
}
