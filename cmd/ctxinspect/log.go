package main

import (
	"os"

	"github.com/btcsuite/btclog"
	"github.com/vulpemventures/go-elements-ct/block"
	"github.com/vulpemventures/go-elements-ct/sigcache"
)

var (
	// backendLog is the logging backend used to create all subsystem
	// loggers. Output goes to stderr so that stdout only carries the
	// decoded summary.
	backendLog = btclog.NewBackend(os.Stderr)

	log      = backendLog.Logger("CTXI")
	blockLog = backendLog.Logger("BLCK")
	cacheLog = backendLog.Logger("SCCH")
)

func init() {
	block.UseLogger(blockLog)
	sigcache.UseLogger(cacheLog)
}

// subsystemLoggers maps each subsystem identifier to its associated logger.
var subsystemLoggers = map[string]btclog.Logger{
	"CTXI": log,
	"BLCK": blockLog,
	"SCCH": cacheLog,
}

// setLogLevels sets the log level for all subsystem loggers. Invalid levels
// are ignored and reported as false.
func setLogLevels(logLevel string) bool {
	level, ok := btclog.LevelFromString(logLevel)
	if !ok {
		return false
	}
	for _, logger := range subsystemLoggers {
		logger.SetLevel(level)
	}
	return true
}
