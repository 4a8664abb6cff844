package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lazypower/charmlink/internal/client"
	"github.com/lazypower/charmlink/internal/config"
	"github.com/lazypower/charmlink/internal/logger"
)

var (
	flagConfig string
	flagServer string
	flagUser   string
	flagTZ     string
	flagDebug  bool

	// cfg is loaded before any command runs.
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:           "charmlink",
	Short:         "Habit streaks for NFC charms",
	Long:          "charmlink tracks daily habits attached to NFC charms: streaks, totals and a contribution graph.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
		return logger.Init(logger.Config{
			Level: cfg.Log.Level,
			File:  cfg.Log.File,
			Debug: flagDebug,
		})
	},
}

// Execute runs the root command. Errors are printed as "Error: ..." and
// returned so main can exit non-zero.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (default ~/.charmlink/config.yaml)")
	pf.StringVar(&flagServer, "server", "", "Server URL (default from CHARMLINK_URL or the configured listen address)")
	pf.StringVar(&flagUser, "user", "", "User id sent to the server (default $CHARMLINK_USER)")
	pf.StringVar(&flagTZ, "tz", "", "IANA timezone that defines \"today\" (default $CHARMLINK_TZ)")
	pf.BoolVar(&flagDebug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(charmCmd)
	rootCmd.AddCommand(habitCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(pingCmd)
}

// apiClient builds a client for the habit and charm commands.
func apiClient() (*client.Client, error) {
	user := flagUser
	if user == "" {
		user = os.Getenv("CHARMLINK_USER")
	}
	if user == "" {
		return nil, fmt.Errorf("no user: pass --user or set CHARMLINK_USER")
	}

	tz := flagTZ
	if tz == "" {
		tz = os.Getenv("CHARMLINK_TZ")
	}

	return client.New(serverURL(), user, tz).WithUserHeader(cfg.Auth.UserHeader), nil
}

// serverURL is --server, else empty so the client reads CHARMLINK_URL, else
// the configured listen address.
func serverURL() string {
	if flagServer != "" {
		return flagServer
	}
	if os.Getenv("CHARMLINK_URL") == "" {
		return "http://" + cfg.ListenAddr()
	}
	return ""
}
