package clicommon

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/pprof"

	"github.com/fatih/color"
	"github.com/klothoplatform/vpcstack/pkg/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type CommonConfig struct {
	verbose   LevelledFlag
	jsonLog   bool
	color     string
	profileTo string

	// Tracker records whether the command logged any warnings or errors.
	Tracker logging.LevelTracker
}

func setupProfiling(commonCfg *CommonConfig) func() {
	if commonCfg.profileTo != "" {
		err := os.MkdirAll(filepath.Dir(commonCfg.profileTo), 0755)
		if err != nil {
			panic(fmt.Errorf("failed to create profile directory: %w", err))
		}
		profileF, err := os.OpenFile(commonCfg.profileTo, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
		if err != nil {
			panic(fmt.Errorf("failed to open profile file: %w", err))
		}
		err = pprof.StartCPUProfile(profileF)
		if err != nil {
			panic(fmt.Errorf("failed to start profile: %w", err))
		}
		return func() {
			pprof.StopCPUProfile()
			profileF.Close()
		}
	}
	return func() {}
}

// LogOpts returns the logging options selected by the common flags. With `-vv` the default per-logger
// levels are dropped and every logger runs at debug.
func (c *CommonConfig) LogOpts() logging.LogOpts {
	opts := logging.LogOpts{
		Verbose: c.verbose > 0,
		Color:   c.color,
		Tracker: &c.Tracker,
	}
	if c.verbose < 2 {
		opts.DefaultLevels = map[string]zapcore.Level{
			"dot":                    zap.WarnLevel,
			"synth.cdk.stdout":       zap.WarnLevel,
			"topology.network":       zap.InfoLevel,
			"topology.securitygroup": zap.InfoLevel,
		}
	}
	if c.jsonLog {
		opts.Encoding = "json"
	}
	return opts
}

// applyOutputColor makes `--color` govern command output as well as logs. With "auto" the
// terminal detection of fatih/color stands.
func (c *CommonConfig) applyOutputColor() {
	switch c.color {
	case "always", "on":
		color.NoColor = false
	case "never", "off":
		color.NoColor = true
	}
}

func SetupRoot(root *cobra.Command, commonCfg *CommonConfig) {
	flags := root.PersistentFlags()
	flags.VarP(&commonCfg.verbose, "verbose", "v", "Enable verbose logging (repeat for more)")
	flags.Lookup("verbose").NoOptDefVal = "true"
	flags.BoolVar(&commonCfg.jsonLog, "json-log", false, "Enable JSON logging")
	flags.StringVar(&commonCfg.color, "color", "auto", "Colorize output: auto, always or never")
	flags.StringVar(&commonCfg.profileTo, "profiling", "", "Profile to file")

	profileClose := func() {}

	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		zap.ReplaceGlobals(commonCfg.LogOpts().NewLogger())
		commonCfg.applyOutputColor()
		profileClose = setupProfiling(commonCfg)
	}

	root.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		zap.L().Sync() //nolint:errcheck

		profileClose()
	}
}
