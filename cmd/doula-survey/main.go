package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	cli "github.com/spf13/pflag"

	log "log/slog"

	"doula/internal/app"
	"doula/internal/config"
	"doula/internal/survey"
	"doula/internal/web"
)

func main() {
	configFile := cli.StringP("config", "c", "", "YAML config file")
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	addr := cli.StringP("addr", "a", ":8501", "Listen address")
	db := cli.String("db", "", "Questionnaire database (overrides config)")
	cli.Parse()

	app.SetupLogging(os.Stdout, *logLevel)

	cfg, err := config.Load(*configFile, *envFile)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	if *db != "" {
		cfg.SurveyDB = *db
	}

	store, err := survey.Open(cfg.SurveyDB)
	if err != nil {
		log.Error("Failed to open questionnaire store", "db", cfg.SurveyDB, "err", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gin.SetMode(gin.ReleaseMode)
	srv := web.New(web.Options{
		Addr:     *addr,
		LogoPath: cfg.Media.Logo,
	}, store, nil, nil)

	if err := srv.Run(ctx); err != nil {
		log.Error("Web server failed", "err", err)
		store.Close()
		os.Exit(1)
	}
}
