package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"deadline-planner/internal/logging"
)

var (
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger = zerolog.Nop()
)

// NewRootCmd creates the root cobra command for the planctl CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "planctl",
		Short: "planctl — deadline planner tooling",
		Long:  "planctl runs the deadline scheduler on plan files and against the bot's database.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.NewWithWriter(flagLogLevel, flagLogFormat, cmd.ErrOrStderr())
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newSimulateCmd(),
		newReplanCmd(),
	)

	return root
}
