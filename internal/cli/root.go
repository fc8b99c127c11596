// Package cli implements the chatroom command line.
package cli

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/thousandtech/chatroom/internal/client"
	"github.com/thousandtech/chatroom/internal/config"
	"github.com/thousandtech/chatroom/internal/logging"
	"github.com/thousandtech/chatroom/internal/timeline"
)

// Global flags.
var (
	configFile string
	serverURL  string
	userName   string
	logLevel   string
	jsonOutput bool
)

// appConfig is loaded once per invocation by the root command's pre-run hook.
var appConfig *config.Config

func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	var tuiOpts tuiOptions
	cmd := &cobra.Command{
		Use:           "chatroom",
		Short:         "Terminal client for the chat-room service",
		Long:          "chatroom opens a terminal chat UI when run without a subcommand.\nSubcommands print history, manage rooms and sign in.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, tuiOpts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default: $XDG_CONFIG_HOME/chatroom/config.yaml)")
	flags.StringVar(&serverURL, "server", "", "chat server base URL")
	flags.StringVarP(&userName, "user", "u", "", "user name (default: signed-in user)")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error")
	flags.BoolVar(&jsonOutput, "json", false, "print JSON instead of text")

	cmd.Flags().StringVarP(&tuiOpts.room, "room", "r", "", "room to open (default: last visited)")
	cmd.Flags().StringVar(&tuiOpts.theme, "theme", "", "theme: default|high-contrast")

	cmd.AddCommand(
		newHistoryCmd(),
		newRoomsCmd(),
		newLoginCmd(),
		newRegisterCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
	)
	return cmd
}

func initConfig(cmd *cobra.Command) error {
	loader := config.NewLoader()
	if configFile != "" {
		loader.SetConfigFile(configFile)
	}
	if serverURL != "" {
		loader.Set("server.url", serverURL)
	}
	if userName != "" {
		loader.Set("user.name", userName)
	}
	if logLevel != "" {
		loader.Set("logging.level", logLevel)
	}

	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	appConfig = cfg

	logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       cmd.ErrOrStderr(),
		EnableCaller: cfg.Logging.EnableCaller,
	})
	if used := loader.ConfigFileUsed(); used != "" {
		logging.Logger.Debug().Str("file", used).Msg("loaded config")
	}
	return nil
}

// currentUser resolves the acting user: --user or user.name, then the
// signed-in user from the login context.
func currentUser(cfg *config.Config) string {
	if name := strings.TrimSpace(cfg.User.Name); name != "" {
		return name
	}
	ctx, err := config.NewContextStore(cfg.ContextPath()).Load()
	if err != nil {
		logging.Logger.Warn().Err(err).Msg("failed to read login context")
		return ""
	}
	return ctx.Username
}

func newAPI(cfg *config.Config) *client.Client {
	return client.New(cfg.Server.URL, cfg.Server.Timeout)
}

func newNormalizer(cfg *config.Config) timeline.Normalizer {
	return timeline.NewNormalizer(cfg.Zone())
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, 2*appConfig.Server.Timeout+5*time.Second)
}

func isTerminal(f *os.File) bool {
	return f != nil && hasTTYFd(f.Fd())
}
