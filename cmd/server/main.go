package main

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/stockyourlot/internal/app"
	"github.com/stockyourlot/internal/config"
	"github.com/stockyourlot/internal/logger"
	"github.com/stockyourlot/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiGreen = "\033[32m"
	ansiCyan  = "\033[36m"
)

var weakSecretMarkers = []string{"change-me", "change-in-production", "your-secret-key"}

func main() {
	mode := flag.String("mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.Parse()

	printStartupBanner(*mode)

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	defer logger.Sync()

	if err := run(cfg, *mode); err != nil {
		logger.S().Fatalw("server_exit", "mode", *mode, "error", err)
	}
}

func run(cfg *config.Config, mode string) error {
	release := cfg.Server.Mode == "release"
	if weakSecret(cfg.JWT.SecretKey) {
		if release {
			return errors.New("jwt secret is weak or still the default value")
		}
		logger.Warnw("jwt_secret_weak", "hint", "configure a random secret of at least 32 characters")
	}

	if err := models.Setup(cfg.Database, cfg.Server.Mode == "debug"); err != nil {
		return err
	}
	if release {
		gin.SetMode(gin.ReleaseMode)
	}

	return app.Run(app.Options{
		Config: cfg,
		Logger: logger.S(),
		Mode:   mode,
	})
}

func printStartupBanner(mode string) {
	const title = "StockYourLot Incentive Settlement"
	line := strings.Repeat("─", len(title)+8)
	fmt.Println(ansiCyan + "┌" + line + "┐" + ansiReset)
	fmt.Println(ansiCyan + "│    " + ansiBold + title + ansiReset + ansiCyan + "    │" + ansiReset)
	fmt.Println(ansiCyan + "└" + line + "┘" + ansiReset)
	fmt.Println(ansiGreen + "mode: " + mode + ansiReset)
}

func weakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	lower := strings.ToLower(secret)
	for _, marker := range weakSecretMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
