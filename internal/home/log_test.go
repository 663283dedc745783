package home

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/AdguardTeam/golibs/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureLogger(t *testing.T) {
	t.Cleanup(func() {
		log.SetOutput(io.Discard)
		log.SetLevel(log.INFO)
	})

	assert.Nil(t, configureLogger(&logConfig{}, true))
	assert.Equal(t, log.DEBUG, log.GetLevel())

	path := filepath.Join(t.TempDir(), "dhcpsuperv.log")
	c := configureLogger(&logConfig{File: path, MaxSize: 1}, false)
	require.NotNil(t, c)

	assert.Equal(t, log.INFO, log.GetLevel())

	log.Info("home: test message")
	log.Debug("home: hidden message")
	require.NoError(t, c.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Contains(t, string(data), "home: test message")
	assert.NotContains(t, string(data), "hidden message")
}
