package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/toptier-net/staff-verify/internal/auth"
	"github.com/toptier-net/staff-verify/internal/config"
	"github.com/toptier-net/staff-verify/internal/database"
	"github.com/toptier-net/staff-verify/internal/discord"
	"github.com/toptier-net/staff-verify/internal/geoip"
	"github.com/toptier-net/staff-verify/internal/logging"
	"github.com/toptier-net/staff-verify/internal/roster"
	"github.com/toptier-net/staff-verify/internal/server"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "staffverify-api",
		Short: "Staff verification backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("base-url", defaults.GetString("http.base_url"), "Public base URL for redirects")
	cmd.PersistentFlags().String("environment", defaults.GetString("app.environment"), "Runtime environment (development, production)")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("discord-client-id", defaults.GetString("discord.client_id"), "Discord OAuth client ID")
	cmd.PersistentFlags().String("discord-redirect-uri", defaults.GetString("discord.redirect_uri"), "Discord OAuth redirect URI")
	cmd.PersistentFlags().Int("upstream-timeout-seconds", defaults.GetInt("upstream.timeout_seconds"), "Timeout for Discord and geoip calls")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "Session signing secret (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "http.base_url", "base-url")
	bindFlag(cmd, "app.environment", "environment")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "discord.client_id", "discord-client-id")
	bindFlag(cmd, "discord.redirect_uri", "discord-redirect-uri")
	bindFlag(cmd, "upstream.timeout_seconds", "upstream-timeout-seconds")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "session.signing_secret", "signing-secret")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	rosterService, err := roster.NewService(roster.ServiceConfig{
		Database: db,
		Clock:    time.Now,
	})
	if err != nil {
		return err
	}

	sessionIssuer, err := auth.NewIssuer(auth.IssuerConfig{
		SigningSecret: []byte(appConfig.SessionSigningKey),
	})
	if err != nil {
		return err
	}

	upstreamClient := &http.Client{Timeout: appConfig.UpstreamTimeout}

	discordClient, err := discord.NewClient(discord.ClientConfig{
		ClientID:     appConfig.DiscordClientID,
		ClientSecret: appConfig.DiscordClientSecret,
		RedirectURI:  appConfig.DiscordRedirectURI,
		HTTPClient:   upstreamClient,
	})
	if err != nil {
		return err
	}

	notifier := discord.NewNotifier(discord.NotifierConfig{
		LoginWebhookURL:    appConfig.LoginWebhookURL,
		AnnounceWebhookURL: appConfig.AnnounceWebhookURL,
		HTTPClient:         upstreamClient,
		Logger:             logger,
	})

	geoResolver := geoip.NewResolver(geoip.ResolverConfig{
		HTTPClient: upstreamClient,
		Logger:     logger,
	})

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Identity:   discordClient,
		Sessions:   sessionIssuer,
		Roster:     rosterService,
		Notifier:   notifier,
		GeoIP:      geoResolver,
		BaseURL:    appConfig.BaseURL,
		Production: appConfig.Production(),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
