package home

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AdguardTeam/golibs/testutil"
	"github.com/ramanveerji/dhcpsuperv/internal/dhcpsvc"
	"github.com/ramanveerji/dhcpsuperv/internal/remote"
	"github.com/ramanveerji/dhcpsuperv/internal/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	testutil.DiscardLogOutput(m)
}

// writeConfig writes data into a temporary configuration file and returns its
// path.
func writeConfig(t *testing.T, data string) (path string) {
	t.Helper()

	path = filepath.Join(t.TempDir(), "superviseur.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	return path
}

func TestReadConfig(t *testing.T) {
	path := writeConfig(t, `
user: admin
dhcp_hosts_cfg: /etc/dnsmasq.d/static.conf
dhcp-servers:
  10.20.1.1: 10.20.1.0/24
  10.20.2.1: 10.20.2.0/24
  10.20.0.1: 10.20.0.0/16
ssh:
  known_hosts: /etc/ssh/ssh_known_hosts
  timeout: 3s
`)

	conf, err := readConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "admin", conf.User)
	assert.Equal(t, "/etc/dnsmasq.d/static.conf", conf.HostsFile)
	assert.Equal(t, dhcpsvc.DefaultReloadCommand, conf.ReloadCommand)
	assert.True(t, conf.Sudo)

	assert.Equal(t, []topology.Server{
		{Addr: "10.20.1.1", Network: "10.20.1.0/24"},
		{Addr: "10.20.2.1", Network: "10.20.2.0/24"},
		{Addr: "10.20.0.1", Network: "10.20.0.0/16"},
	}, conf.Servers.Servers())

	assert.Equal(t, "/etc/ssh/ssh_known_hosts", conf.SSH.KnownHosts)
	assert.Equal(t, 3*time.Second, conf.SSH.Timeout.Duration)
	assert.Equal(t, defaultCommandTimeout, conf.SSH.CommandTimeout.Duration)
	assert.Equal(t, remote.DefaultPort, conf.SSH.Port)
	assert.Empty(t, conf.Log.File)
}

func TestReadConfig_errors(t *testing.T) {
	testCases := []struct {
		data       string
		name       string
		wantErrMsg string
	}{{
		data:       "user: admin\nunknown: 1\n",
		name:       "unknown_field",
		wantErrMsg: "field unknown not found",
	}, {
		data:       "dhcp-servers: {}\n",
		name:       "no_user",
		wantErrMsg: "user: must not be empty",
	}, {
		data:       "user: admin\nssh:\n  timeout: -1s\n",
		name:       "negative_timeout",
		wantErrMsg: "ssh.timeout: must not be negative",
	}, {
		data:       "user: admin\nlog:\n  max_age: -1\n",
		name:       "negative_rotation",
		wantErrMsg: "log: rotation limits must not be negative",
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.data)

			_, err := readConfig(path)
			assert.ErrorContains(t, err, tc.wantErrMsg)
		})
	}

	t.Run("bad_servers", func(t *testing.T) {
		path := writeConfig(t, "user: admin\ndhcp-servers: [10.20.1.1]\n")

		_, err := readConfig(path)
		assert.Error(t, err)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := readConfig(filepath.Join(t.TempDir(), "nonexistent.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestWriteInitialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "superviseur.yaml")

	err := writeInitialConfig(path)
	require.NoError(t, err)

	conf, err := readConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "sae203", conf.User)
	assert.Equal(t, dhcpsvc.DefaultHostsFile, conf.HostsFile)
	assert.Zero(t, conf.Servers.Len())

	err = writeInitialConfig(path)
	assert.ErrorIs(t, err, errConfigExists)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".ssh/dhcp_superv_key"), expandHome("~/.ssh/dhcp_superv_key"))
	assert.Equal(t, "/etc/key", expandHome("/etc/key"))
	assert.Equal(t, "~user/key", expandHome("~user/key"))
}
