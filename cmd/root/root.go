package root

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agromind/plantchat/pkg/logging"
)

const AppName = "plantchat"

type rootFlags struct {
	enableOtel  bool
	debugMode   bool
	logFilePath string
	logFile     io.Closer

	converseURL string
	diagnoseURL string
	timeout     int
}

func NewRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   AppName,
		Short: "plantchat - crop advice and leaf disease diagnosis from your terminal",
		Long:  "plantchat is a chat client for the agricultural assistant: ask farming questions, or attach a leaf photo to have it diagnosed",
		Example: `  plantchat
  plantchat ask "How often should I water wheat?"
  plantchat diagnose --plant Corn ./leaf.jpg`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Initialize logging before anything else so logs don't break TUI
			logFile, err := logging.Setup(flags.debugMode, flags.logFilePath)
			if err != nil {
				logging.Fallback(cmd.ErrOrStderr(), flags.debugMode)
				slog.Warn("Failed to open debug log file", "error", err)
			}
			flags.logFile = logFile

			if flags.enableOtel {
				if err := initOTelSDK(cmd.Context()); err != nil {
					slog.Warn("Failed to initialize OpenTelemetry SDK", "error", err)
				} else {
					slog.Debug("OpenTelemetry SDK initialized successfully")
				}
			}

			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if flags.logFile != nil {
				if err := flags.logFile.Close(); err != nil {
					slog.Error("Failed to close log file", "error", err)
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.debugMode, "debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flags.enableOtel, "otel", "o", false, "Enable OpenTelemetry tracing")
	cmd.PersistentFlags().StringVar(&flags.logFilePath, "log-file", "", "Path to debug log file (default: ~/.plantchat/plantchat.debug.log; only used with --debug)")
	cmd.PersistentFlags().StringVar(&flags.converseURL, "converse-url", "", "Conversation service URL (overrides config and "+envHint("converse")+")")
	cmd.PersistentFlags().StringVar(&flags.diagnoseURL, "diagnose-url", "", "Disease detection service URL (overrides config and "+envHint("diagnose")+")")
	cmd.PersistentFlags().IntVar(&flags.timeout, "timeout", 0, "Per-request timeout in seconds (overrides config)")

	cmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands:"})
	cmd.AddGroup(&cobra.Group{ID: "advanced", Title: "Advanced Commands:"})

	cmd.AddCommand(newChatCmd(&flags))
	cmd.AddCommand(newAskCmd(&flags))
	cmd.AddCommand(newDiagnoseCmd(&flags))
	cmd.AddCommand(newDoctorCmd(&flags))
	cmd.AddCommand(newConfigCmd(&flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func Execute(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args ...string) error {
	rootCmd := NewRootCmd()
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetContext(ctx)

	// When no subcommand is given, default to "chat".
	rootCmd.SetArgs(defaultToChat(rootCmd, args))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return processErr(ctx, err, stderr, rootCmd)
	}
	return nil
}

// defaultToChat prepends "chat" to the argument list when no subcommand is
// specified so that bare "plantchat" (or "plantchat --debug", etc.) opens
// the chat. Help flags (--help / -h) are left alone.
func defaultToChat(rootCmd *cobra.Command, args []string) []string {
	for _, arg := range args {
		switch {
		case arg == "--":
			return append([]string{"chat"}, args...)
		case arg == "--help" || arg == "-h":
			return args
		case strings.HasPrefix(arg, "-"):
			continue
		case isSubcommand(rootCmd, arg):
			return args
		default:
			return append([]string{"chat"}, args...)
		}
	}

	return append([]string{"chat"}, args...)
}

// isSubcommand reports whether name matches a registered subcommand or alias.
func isSubcommand(cmd *cobra.Command, name string) bool {
	switch name {
	case "help", "completion", "__complete", "__completeNoDesc":
		return true
	}
	for _, sub := range cmd.Commands() {
		if sub.Name() == name || sub.HasAlias(name) {
			return true
		}
	}
	return false
}

func processErr(ctx context.Context, err error, stderr io.Writer, rootCmd *cobra.Command) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if _, ok := errors.AsType[RuntimeError](err); ok {
		// Runtime errors have already been printed by the command itself
		return err
	}

	fmt.Fprintln(stderr, err)
	if strings.HasPrefix(err.Error(), "unknown command ") || strings.HasPrefix(err.Error(), "accepts ") {
		fmt.Fprintln(stderr)
		_ = rootCmd.Usage()
	}
	return err
}

// RuntimeError wraps runtime errors to distinguish them from usage errors
type RuntimeError struct {
	Err error
}

func (e RuntimeError) Error() string {
	return e.Err.Error()
}

func (e RuntimeError) Unwrap() error {
	return e.Err
}
