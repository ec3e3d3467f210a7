// Package internal holds process-wide configuration for the quiz apps.
//
// Configuration values are plain package globals. Each one is backed by a
// Flag which can be set on the command line or through a QUIZ_-prefixed
// environment variable (flags win when both are given).
package internal

import (
	"strings"

	"quiz/internal/pkg/validate"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Configuration globals, populated by RegisterCommandFlags and the
// environment once ValidateEnv has run.
var (
	Env      string
	LogLevel string
	Port     uint

	BankPath      string
	QuizLength    uint
	MaxSessions   uint
	ReadTimeoutMS uint
	ScorePercent  bool
	StrictProto   bool

	ClientHost string
)

// Flag binds a command-line flag to one of the package globals.
type Flag struct {
	Name    string
	Usage   string
	Default interface{}
	Target  interface{}
}

// Flag definitions.
var (
	EnvFlag = Flag{
		Name:    "env",
		Usage:   "deployment environment name",
		Default: "development",
		Target:  &Env,
	}
	LogLevelFlag = Flag{
		Name:    "log-level",
		Usage:   "log level (trace|debug|info|warn|error)",
		Default: "info",
		Target:  &LogLevel,
	}
	PortFlag = Flag{
		Name:    "port",
		Usage:   "TCP port the quiz server listens on",
		Default: uint(7777),
		Target:  &Port,
	}

	BankPathFlag = Flag{
		Name:    "bank",
		Usage:   "path to the question bank CSV file",
		Default: "questions.csv",
		Target:  &BankPath,
	}
	QuizLengthFlag = Flag{
		Name:    "quiz-length",
		Usage:   "number of questions sampled per session",
		Default: uint(10),
		Target:  &QuizLength,
	}
	MaxSessionsFlag = Flag{
		Name:    "max-sessions",
		Usage:   "maximum number of concurrently active sessions",
		Default: uint(20),
		Target:  &MaxSessions,
	}
	ReadTimeoutMSFlag = Flag{
		Name:    "read-timeout-ms",
		Usage:   "idle read timeout per connection in milliseconds (0 disables)",
		Default: uint(300000),
		Target:  &ReadTimeoutMS,
	}
	ScorePercentFlag = Flag{
		Name:    "score-percent",
		Usage:   "report the final score as a percentage instead of a count",
		Default: false,
		Target:  &ScorePercent,
	}
	StrictProtoFlag = Flag{
		Name:    "strict-protocol",
		Usage:   "close connections on protocol violations instead of keeping them open",
		Default: false,
		Target:  &StrictProto,
	}

	ClientHostFlag = Flag{
		Name:    "host",
		Usage:   "quiz server host to connect to",
		Default: "localhost",
		Target:  &ClientHost,
	}
)

type boundFlag struct {
	flag *Flag
	fs   *pflag.FlagSet
}

var registered []boundFlag

// RegisterCommandFlags registers the given flags on the command and binds
// them for environment overrides.
func RegisterCommandFlags(cmd *cobra.Command, flags []*Flag) error {
	fs := cmd.PersistentFlags()
	for _, f := range flags {
		switch target := f.Target.(type) {
		case *string:
			fs.StringVar(target, f.Name, f.Default.(string), f.Usage)
		case *uint:
			fs.UintVar(target, f.Name, f.Default.(uint), f.Usage)
		case *bool:
			fs.BoolVar(target, f.Name, f.Default.(bool), f.Usage)
		default:
			return errors.Errorf("unsupported target type for flag --%s", f.Name)
		}
		if err := viper.BindPFlag(f.Name, fs.Lookup(f.Name)); err != nil {
			return errors.Wrapf(err, "bind flag %s failed", f.Name)
		}
		registered = append(registered, boundFlag{flag: f, fs: fs})
	}
	return nil
}

type envConfig struct {
	Env         string `validate:"required"`
	LogLevel    string `validate:"required,oneof=trace debug info warn error"`
	Port        uint   `validate:"lte=65535"`
	QuizLength  uint   `validate:"required"`
	MaxSessions uint   `validate:"required"`
}

// ValidateEnv overlays QUIZ_-prefixed environment variables onto any flag
// not set explicitly, then validates the resulting configuration.
func ValidateEnv() error {
	viper.SetEnvPrefix("QUIZ")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	for _, b := range registered {
		pf := b.fs.Lookup(b.flag.Name)
		if pf == nil || pf.Changed || !viper.IsSet(b.flag.Name) {
			continue
		}
		if err := pf.Value.Set(viper.GetString(b.flag.Name)); err != nil {
			return errors.Wrapf(err, "apply env override for %s failed", b.flag.Name)
		}
	}
	err := validate.Validate().Struct(envConfig{
		Env:         Env,
		LogLevel:    LogLevel,
		Port:        Port,
		QuizLength:  QuizLength,
		MaxSessions: MaxSessions,
	})
	return errors.Wrap(err, "validate environment failed")
}
