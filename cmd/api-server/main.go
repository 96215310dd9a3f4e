// Package main API Server 入口
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Danin2/Manajemen-Tugas/internal/apiserver/auth"
	"github.com/Danin2/Manajemen-Tugas/internal/apiserver/server"
	"github.com/Danin2/Manajemen-Tugas/internal/config"
	"github.com/Danin2/Manajemen-Tugas/internal/shared/infra"
	"github.com/Danin2/Manajemen-Tugas/pkg/logging"
	"github.com/Danin2/Manajemen-Tugas/web"
)

func main() {
	configDir := flag.String("config", "", "配置文件目录（覆盖 CONFIG_DIR）")
	flag.Parse()
	if *configDir != "" {
		config.SetConfigDir(*configDir)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(logging.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Output:    "stdout",
		Component: "api-server",
	})
	logger.Info("Starting API Server", "env", string(cfg.Env), "config_file", cfg.ConfigFilePath)
	logger.Info("Config loaded", "summary", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infrastructure, err := infra.New(ctx, cfg, logger.Named("infra"))
	if err != nil {
		return fmt.Errorf("init infrastructure: %w", err)
	}
	defer infrastructure.Close()

	pages, err := pageHandler(logger)
	if err != nil {
		return err
	}

	h := server.NewHandler(server.Deps{
		Store:    infrastructure.Storage,
		Attempts: infrastructure.Cache,
		Avatars:  infrastructure.Avatars,
		Codec:    auth.NewCodec(cfg.Auth.JWTSecret),
		Auth: auth.Options{
			SecureCookie:     cfg.CookieSecure(),
			MaxLoginAttempts: cfg.Auth.MaxLoginAttempts,
			LockoutWindow:    cfg.Auth.LockoutWindow,
		},
		GateMode: cfg.Auth.GateMode,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      h.Router(pages),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("API Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// 优雅关闭
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown error")
	}
	logger.Info("Server stopped")
	return nil
}

// pageHandler 生产模式使用嵌入的静态导出，开发模式代理到 Next.js dev server
func pageHandler(logger *logging.Logger) (http.Handler, error) {
	if !web.IsEmbedded() {
		addr := os.Getenv("WEB_DEV_ADDR")
		if addr == "" {
			addr = defaultWebDevAddr
		}
		logger.Info("[dev] Proxying pages", "target", addr)
		return newDevHandler(addr)
	}

	staticFS, err := web.StaticFS()
	if err != nil {
		return nil, fmt.Errorf("load embedded pages: %w", err)
	}
	return newSPAHandler(staticFS)
}
