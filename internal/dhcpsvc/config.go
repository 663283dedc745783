package dhcpsvc

import (
	"fmt"

	"github.com/ramanveerji/dhcpsuperv/internal/topology"
)

const (
	// DefaultHostsFile is the default path to the reservations file on the
	// servers.
	DefaultHostsFile = "/etc/dnsmasq.d/hosts.conf"

	// DefaultReloadCommand is the default command making the DHCP daemon apply
	// the changed reservations.
	DefaultReloadCommand = "systemctl restart dnsmasq"
)

// Config is the configuration of the managed DHCP servers.
type Config struct {
	// Servers maps the addresses of the DHCP servers to the networks they
	// administer, in the order of declaration.
	Servers *topology.Topology `yaml:"dhcp-servers"`

	// User is the name of the user on the servers.
	User string `yaml:"user"`

	// HostsFile is the path to the dnsmasq file containing the reservations on
	// each server.
	HostsFile string `yaml:"dhcp_hosts_cfg"`

	// ReloadCommand is the shell command reloading the DHCP daemon after
	// a change.
	ReloadCommand string `yaml:"reload_command"`

	// Sudo defines if the mutating commands and the reload are run with sudo.
	Sudo bool `yaml:"sudo"`
}

// DefaultConfig returns the configuration with default values, which is
// supposed to be overwritten by the configuration file.
func DefaultConfig() (c *Config) {
	return &Config{
		HostsFile:     DefaultHostsFile,
		ReloadCommand: DefaultReloadCommand,
		Sudo:          true,
	}
}

// Validate returns an error if c is invalid.
func (c *Config) Validate() (err error) {
	switch {
	case c == nil:
		return fmt.Errorf("no dhcp configuration")
	case c.User == "":
		return fmt.Errorf("user: must not be empty")
	case c.HostsFile == "":
		return fmt.Errorf("dhcp_hosts_cfg: must not be empty")
	case c.ReloadCommand == "":
		return fmt.Errorf("reload_command: must not be empty")
	default:
		return nil
	}
}
