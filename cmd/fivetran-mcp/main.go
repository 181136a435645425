package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rushi-auxo/fivetran-mcp/internal/config"
	"github.com/rushi-auxo/fivetran-mcp/internal/confluence"
	"github.com/rushi-auxo/fivetran-mcp/internal/fivetran"
	"github.com/rushi-auxo/fivetran-mcp/internal/github"
	"github.com/rushi-auxo/fivetran-mcp/internal/jira"
	"github.com/rushi-auxo/fivetran-mcp/internal/mcpserver"
	"github.com/rushi-auxo/fivetran-mcp/internal/relay"
	"github.com/rushi-auxo/fivetran-mcp/internal/upstream"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries what every subcommand shares once the root has run.
type app struct {
	v      *viper.Viper
	server config.Server
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}

	root := &cobra.Command{
		Use:          "fivetran-mcp",
		Short:        "MCP tool servers for Confluence, GitHub and Jira, plus a Fivetran HTTP relay",
		Version:      config.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringSlice("env-file", nil, "dotenv files to load (default .env)")
	pf.String("log-level", "info", "log level: debug, info, warn or error")
	pf.Duration("http-timeout", 0, "timeout for each upstream request (0 disables)")

	root.AddCommand(
		newConfluenceCmd(a),
		newJiraCmd(a),
		newRelayCmd(a),
	)
	return root
}

// setup loads .env files, binds the flags of the running command to their
// viper keys and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	files, _ := cmd.Flags().GetStringSlice("env-file")
	if err := config.LoadDotenv(files...); err != nil {
		return err
	}

	// Bound per run: several subcommands feed the same key.
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key, ok := f.Annotations[viperKey]; ok && len(key) > 0 {
			_ = a.v.BindPFlag(key[0], f)
		}
	})
	_ = a.v.BindPFlag("log_level", cmd.Flags().Lookup("log-level"))
	_ = a.v.BindPFlag("http_timeout", cmd.Flags().Lookup("http-timeout"))

	srv, err := config.LoadServer(a.v)
	if err != nil {
		return err
	}
	if cmd.Name() == "relay" && a.v.GetString("relay_mode") == config.RelayInfo {
		srv.LogLevel = "debug"
	}
	a.server = srv
	a.logger = newLogger(srv.LogLevel)
	slog.SetDefault(a.logger)
	return nil
}

const viperKey = "viper_key"

// bindTo records the viper key a flag feeds; setup performs the binding.
func bindTo(fs *pflag.FlagSet, flag, key string) {
	_ = fs.SetAnnotation(flag, viperKey, []string{key})
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func (a *app) upstreamOpts() []upstream.Option {
	return []upstream.Option{upstream.WithTimeout(a.server.HTTPTimeout)}
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func addServeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("transport", "stdio", "MCP transport: stdio or http")
	f.String("addr", config.DefaultAddr, "listen address for the http transport")
	bindTo(f, "transport", "mcp_transport")
	bindTo(f, "addr", "mcp_addr")
}

func newConfluenceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "confluence",
		Short: "Serve Confluence and GitHub tools over MCP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfluence(a.v)
			if err != nil {
				return err
			}
			if cfg.SpaceKey == "" {
				a.logger.Warn("CONFLUENCE_SPACE_KEY is not set; create_page will fail")
			}
			if cfg.GitHubToken == "" {
				a.logger.Warn("GITHUB_TOKEN is not set; GitHub requests are unauthenticated")
			}

			conf := confluence.New(cfg, a.logger, a.upstreamOpts())
			gh := github.New(cfg.GitHubBaseURL, cfg.GitHubToken, a.logger, a.upstreamOpts()...)
			s := mcpserver.NewConfluence(mcpserver.ConfluenceDeps{Confluence: conf, GitHub: gh, Logger: a.logger})

			ctx, cancel := signalContext(cmd)
			defer cancel()
			a.logger.Info("starting confluence server", "version", config.Version, "tools", strings.Join(s.Tools(), ","))
			return s.Serve(ctx, a.server)
		},
	}
	addServeFlags(cmd)
	f := cmd.Flags()
	f.String("summary-model", "", "Anthropic model for page summaries (empty truncates)")
	bindTo(f, "summary-model", "confluence_summary_model")
	return cmd
}

func newJiraCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jira",
		Short: "Serve Jira tools over MCP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadJira(a.v)
			if err != nil {
				return err
			}
			if cfg.TokenFromConfluence {
				a.logger.Warn("JIRA_API_TOKEN is not set; using CONFLUENCE_TOKEN for Jira")
			}

			client := jira.New(cfg, a.logger, a.upstreamOpts()...)
			s := mcpserver.NewJira(mcpserver.JiraDeps{Jira: client, TransitionMode: cfg.TransitionMode, Logger: a.logger})

			ctx, cancel := signalContext(cmd)
			defer cancel()
			a.logger.Info("starting jira server",
				"version", config.Version,
				"description_format", cfg.DescriptionFormat,
				"transition_mode", cfg.TransitionMode,
			)
			return s.Serve(ctx, a.server)
		},
	}
	addServeFlags(cmd)
	f := cmd.Flags()
	f.String("description-format", config.FormatADF, "description and comment body: adf or plain")
	f.String("transition-mode", config.TransitionByName, "transition_issue takes a status name or a transition id: name or id")
	bindTo(f, "description-format", "jira_description_format")
	bindTo(f, "transition-mode", "jira_transition_mode")
	return cmd
}

func newRelayCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Serve the Fivetran HTTP relay",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFivetran(a.v)
			if err != nil {
				return err
			}

			client := fivetran.New(cfg, a.logger, a.upstreamOpts()...)
			srv := relay.New(client, cfg, a.logger)

			ctx, cancel := signalContext(cmd)
			defer cancel()
			if err := srv.Run(ctx); err != nil {
				return fmt.Errorf("relay: %w", err)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.String("mode", config.RelayFull, "full serves /mcp, /sse and /get_info; info serves /get_info only")
	f.String("addr", config.DefaultAddr, "listen address")
	bindTo(f, "mode", "relay_mode")
	bindTo(f, "addr", "relay_addr")
	return cmd
}
