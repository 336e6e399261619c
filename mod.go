// Package relay defines the globals shared by the relay authority packages.
//
// The logger level can be changed with the LLVL environment variable, one of
// "trace", "debug", "info", "warn", "error" or "disabled".
package relay

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// EnvLogLevel is the name of the environment variable to change the logging
// level.
const EnvLogLevel = "LLVL"

const defaultLevel = zerolog.InfoLevel

var logout = zerolog.ConsoleWriter{
	Out:        os.Stdout,
	TimeFormat: time.RFC3339,
}

// Logger is a globally available logger instance.
var Logger = zerolog.New(logout).
	With().Timestamp().Logger().
	With().Caller().Logger().
	Level(levelFromEnv())

// PromCollectors exposes the Prometheus collectors created by the packages.
// The node is in charge of registering them to the registry it serves.
var PromCollectors []prometheus.Collector

func levelFromEnv() zerolog.Level {
	lvl, err := zerolog.ParseLevel(os.Getenv(EnvLogLevel))
	if err != nil || os.Getenv(EnvLogLevel) == "" {
		return defaultLevel
	}

	return lvl
}
