package main

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// envPrefix prefixes the environment variables that provide flag defaults.
const envPrefix = "MESHSIM_"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "meshsim",
	Short: "meshsim simulates Bluetooth links between moving devices.",
	Long: `meshsim simulates Bluetooth links between moving devices. It ` +
		`can run a field of probing clients and inspect the link events ` +
		`they recorded.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		err := godotenv.Load()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}

		return applyEnvDefaults(cmd.Flags())
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info",
		"Log level (debug, info, warn, error).")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

// envName returns the environment variable that backs a flag.
func envName(flag string) string {
	return envPrefix +
		strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// applyEnvDefaults sets the flags that are not given on the command line from
// the environment.
func applyEnvDefaults(flags *pflag.FlagSet) error {
	var err error

	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed {
			return
		}

		value, ok := os.LookupEnv(envName(f.Name))
		if !ok {
			return
		}

		err = flags.Set(f.Name, value)
	})

	return err
}

func newLogger(level string) (*zap.Logger, error) {
	atomicLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}

	config := zap.NewProductionConfig()
	if atomicLevel.Level() == zapcore.DebugLevel {
		config = zap.NewDevelopmentConfig()
	}

	config.Level = atomicLevel

	return config.Build()
}
