package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"greenhome/internal/core/auth"
	"greenhome/internal/core/config"
	"greenhome/internal/core/logger"
	"greenhome/internal/core/server"
	"greenhome/internal/repo"
	"greenhome/internal/transport/http/router"
)

func main() {
	cfgPath := pflag.StringP("config", "c", "", "config file (default $CONFIG_PATH or "+config.DefaultPath+")")
	pflag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	log, cleanup := newLogger(cfg)
	defer cleanup()
	restore := logger.RedirectStdLog(log, zapcore.InfoLevel)
	defer restore()

	// 存储（失败直接 Fatal）
	ctx := context.Background()
	stores, err := repo.Open(ctx, cfg.DB, cfg.App.Name, log)
	if err != nil {
		log.Fatal("store open", zap.String("driver", cfg.DB.Driver), zap.Error(err))
	}
	log.Info("store connected", zap.String("driver", stores.Driver()))

	verifier, err := auth.New(cfg.Auth)
	if err != nil {
		log.Fatal("auth provider", zap.Error(err))
	}
	if cfg.Auth.Provider == "local" && cfg.IsProduction() {
		log.Warn("local token provider enabled in production")
	}

	r := router.NewAPIEngine(router.Deps{Log: log, Config: cfg, Stores: stores, Verifier: verifier})

	// HTTP Server
	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	// 启动日志
	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("greenhome api starting",
		zap.String("addr", addr),
		zap.String("env", cfg.App.Env),
		zap.String("health", baseURL+"/health"),
		zap.String("api", baseURL+"/api"),
	)

	// 异步启动
	go func() {
		if err := server.StartHTTP(srv, log); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("greenhome api start FAILED", zap.Error(err))
		}
	}()

	// 优雅关闭：先停 HTTP，再断存储
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	if err := stores.Close(sctx); err != nil {
		log.Warn("store close", zap.Error(err))
	}
	log.Info("greenhome api stopped gracefully")
}

func newLogger(cfg *config.Config) (*zap.Logger, func()) {
	rot := cfg.Log.Rotate
	return logger.NewWithOptions(logger.Options{
		Level:       cfg.Log.Level,
		JSON:        cfg.Log.JSON,
		AddCaller:   true,
		Development: !cfg.Log.JSON && !cfg.IsProduction(),
		Rotate: logger.FileRotate{
			Enable:     rot.Enable,
			Filename:   rot.Filename,
			MaxSizeMB:  rot.MaxSizeMB,
			MaxBackups: rot.MaxBackups,
			MaxAgeDays: rot.MaxAgeDays,
			Compress:   rot.Compress,
		},
	})
}
