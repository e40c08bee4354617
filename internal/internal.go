// Package internal holds process-wide configuration sourced from command
// flags with environment fallbacks.
package internal

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Validated configuration values, populated by ValidateEnv.
var (
	Host     string
	Port     uint16
	Password string
	LogLevel string
)

// Flag binds a string-valued command flag to an environment variable. The
// environment provides the default; the flag overrides it.
type Flag struct {
	Name      string
	Shorthand string
	Env       string
	Default   string
	Usage     string

	value string
}

// Value returns the flag's resolved value. Meaningful after the command
// line has been parsed.
func (f *Flag) Value() string {
	return f.value
}

// Flag definitions.
var (
	HostFlag = Flag{
		Name:      "host",
		Shorthand: "H",
		Env:       "OBS_WS_HOST",
		Default:   "localhost",
		Usage:     "remote-control server host",
	}
	PortFlag = Flag{
		Name:      "port",
		Shorthand: "p",
		Env:       "OBS_WS_PORT",
		Default:   "4455",
		Usage:     "remote-control server port",
	}
	PasswordFlag = Flag{
		Name:      "password",
		Shorthand: "s",
		Env:       "OBS_WS_PASSWORD",
		Default:   "",
		Usage:     "remote-control server password",
	}
	LogLevelFlag = Flag{
		Name:    "log-level",
		Env:     "LOG_LEVEL",
		Default: "error",
		Usage:   "log level (trace|debug|info|warn|error)",
	}
)

// RegisterCommandFlags registers the given flags on a command, resolving
// each default from the environment first.
func RegisterCommandFlags(cmd *cobra.Command, flags []*Flag) error {
	for _, f := range flags {
		def := f.Default
		if env, ok := os.LookupEnv(f.Env); ok && f.Env != "" {
			def = env
		}
		cmd.PersistentFlags().StringVarP(&f.value, f.Name, f.Shorthand, def, f.Usage)
	}
	return nil
}

// ValidateEnv parses and validates the resolved flag values into the
// package-level configuration.
func ValidateEnv() error {
	Host = HostFlag.Value()
	if Host == "" {
		return errors.New("host must not be empty")
	}
	port, err := strconv.ParseUint(PortFlag.Value(), 10, 16)
	if err != nil {
		return errors.Wrap(err, "parse port failed")
	}
	Port = uint16(port)
	Password = PasswordFlag.Value()
	LogLevel = LogLevelFlag.Value()
	return nil
}
