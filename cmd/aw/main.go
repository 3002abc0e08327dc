// aw is the command-line interface for AgentWallet.
//
// Credentials come from --api-key, AGENTWALLET_API_KEY, or api_key in
// ~/.agentwallet/config.yaml, in that order.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/agentwallet/agentwallet-go/pkg/client"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile      string
	outputFormat string
	verbose      bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "aw",
	Short: "AgentWallet CLI",
	Long: `aw is the command-line interface for AgentWallet.

It manages agents and wallets and drives Agent Commerce Protocol (ACP) jobs
through negotiate, fund, deliver and evaluate.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.agentwallet")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("agentwallet")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		viper.AutomaticEnv()
		if err := viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && cfgFile != "" {
				return fmt.Errorf("read config: %w", err)
			}
		}
		switch outputFormat {
		case "text", "json", "yaml":
			return nil
		default:
			return fmt.Errorf("unknown output format %q (want text, json or yaml)", outputFormat)
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default ~/.agentwallet/config.yaml)")
	pf.String("api-key", "", "API key (env AGENTWALLET_API_KEY)")
	pf.String("base-url", client.DefaultBaseURL, "API base URL (env AGENTWALLET_BASE_URL)")
	pf.Duration("timeout", client.DefaultTimeout, "per-request timeout")
	pf.StringVarP(&outputFormat, "output", "o", "text", "output format: text, json or yaml")
	pf.BoolVarP(&verbose, "verbose", "v", false, "log each request to stderr")

	_ = viper.BindPFlag("api_key", pf.Lookup("api-key"))
	_ = viper.BindPFlag("base_url", pf.Lookup("base-url"))
	_ = viper.BindPFlag("timeout", pf.Lookup("timeout"))

	rootCmd.AddCommand(versionCmd, loginCmd, agentsCmd, walletsCmd, jobsCmd, offeringsCmd, webhooksCmd, auditCmd)
}

// newClient builds a Client from flags, environment and config file.
func newClient() (*client.Client, error) {
	opts := []client.Option{
		client.WithBaseURL(viper.GetString("base_url")),
		client.WithTimeout(viper.GetDuration("timeout")),
		client.WithUserAgent("aw/" + version),
	}
	if verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		opts = append(opts, client.WithLogger(logger))
	}
	if tok := viper.GetString("session_token"); tok != "" {
		opts = append(opts, client.WithBearerToken(tok))
	}

	c, err := client.New(viper.GetString("api_key"), opts...)
	if errors.Is(err, client.ErrNoCredentials) {
		return nil, errors.New("no API key: pass --api-key, set AGENTWALLET_API_KEY, or add api_key to ~/.agentwallet/config.yaml")
	}
	return c, err
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the CLI and SDK versions",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "aw %s (agentwallet-go %s)\n", version, client.Version)
	},
}

// ── login ────────────────────────────────────────────────────────────────────

var loginEmail string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in as an operator and print a session token",
	Long: `login exchanges an operator email and password for a session token.
The password is read from AGENTWALLET_PASSWORD. Export the token as
AGENTWALLET_SESSION_TOKEN to use it for later commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password := os.Getenv("AGENTWALLET_PASSWORD")
		if password == "" {
			return errors.New("set AGENTWALLET_PASSWORD")
		}
		_, sess, err := client.Login(commandContext(cmd), loginEmail, password,
			client.WithBaseURL(viper.GetString("base_url")),
			client.WithTimeout(viper.GetDuration("timeout")),
		)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		return render(cmd.OutOrStdout(), sess, func(t *table) {
			t.row("ORG", sess.OrgID)
			t.row("TOKEN", sess.AccessToken)
		})
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "operator email")
	_ = loginCmd.MarkFlagRequired("email")
}
