package home

import (
	"io"
	"path/filepath"

	"github.com/AdguardTeam/golibs/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// configureLogger sets up the global logger.  verbose overrides the
// configuration.  The returned closer, if not nil, must be closed when the
// program exits.
func configureLogger(conf *logConfig, verbose bool) (c io.Closer) {
	if verbose || conf.Verbose {
		log.SetLevel(log.DEBUG)
	} else {
		log.SetLevel(log.INFO)
	}

	if conf.File == "" {
		return nil
	}

	l := &lumberjack.Logger{
		Filename:   filepath.Clean(conf.File),
		MaxSize:    conf.MaxSize,
		MaxBackups: conf.MaxBackups,
		MaxAge:     conf.MaxAge,
		Compress:   conf.Compress,
		LocalTime:  true,
	}
	log.SetOutput(l)

	return l
}
