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
	"github.com/turkalkol/turkalkol-backend/internal/config"
	"github.com/turkalkol/turkalkol-backend/internal/gallery"
	"github.com/turkalkol/turkalkol-backend/internal/leaderboard"
	"github.com/turkalkol/turkalkol-backend/internal/likes"
	"github.com/turkalkol/turkalkol-backend/internal/logging"
	"github.com/turkalkol/turkalkol-backend/internal/metrics"
	"github.com/turkalkol/turkalkol-backend/internal/server"
	"github.com/turkalkol/turkalkol-backend/internal/storage"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "turkalkol-api",
		Short: "turkalkol.com gallery and games backend",
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
	cmd.PersistentFlags().String("public-dir", defaults.GetString("public.dir"), "Static site root; data files default beneath it")
	cmd.PersistentFlags().String("admin-username", defaults.GetString("admin.username"), "Admin panel username")
	cmd.PersistentFlags().String("admin-password", "", "Admin panel password (overrides env)")
	cmd.PersistentFlags().Int64("upload-max-bytes", defaults.GetInt64("upload.max_bytes"), "Maximum request body size")
	cmd.PersistentFlags().String("watermark-text", defaults.GetString("watermark.text"), "Watermark text")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "public.dir", "public-dir")
	bindFlag(cmd, "admin.username", "admin-username")
	bindFlag(cmd, "admin.password", "admin-password")
	bindFlag(cmd, "upload.max_bytes", "upload-max-bytes")
	bindFlag(cmd, "watermark.text", "watermark-text")
	bindFlag(cmd, "log.level", "log-level")
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

	leaderboardStore, err := storage.NewFileStore(appConfig.LeaderboardFile, logger)
	if err != nil {
		return err
	}
	likesStore, err := storage.NewFileStore(appConfig.LikesFile, logger)
	if err != nil {
		return err
	}

	leaderboardService, err := leaderboard.NewService(leaderboard.ServiceConfig{
		Store:  leaderboardStore,
		Clock:  time.Now,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	likesService, err := likes.NewService(likes.ServiceConfig{
		Store:  likesStore,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	galleryService, err := gallery.NewService(gallery.ServiceConfig{
		OriginalDir:    appConfig.OriginalDir,
		WatermarkedDir: appConfig.WatermarkedDir,
		Watermarker: gallery.NewWatermarker(
			appConfig.WatermarkText,
			appConfig.WatermarkFontSize,
			appConfig.WatermarkFontPaths,
		),
		Likes:  likesService,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Leaderboard:    leaderboardService,
		Likes:          likesService,
		Gallery:        galleryService,
		Metrics:        metrics.New(),
		AdminUsername:  appConfig.AdminUsername,
		AdminPassword:  appConfig.AdminPassword,
		PublicDir:      appConfig.PublicDir,
		OriginalDir:    appConfig.OriginalDir,
		WatermarkedDir: appConfig.WatermarkedDir,
		MaxBodyBytes:   appConfig.UploadMaxBytes,
		Logger:         logger,
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
