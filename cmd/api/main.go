package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todoList/internal/app"
	"todoList/internal/config"
	"todoList/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "путь к config.yml (по умолчанию ./config.yml, если есть)")
	envFile := pflag.String("env-file", ".env", "файл с переменными окружения TODO_*")
	printConfig := pflag.Bool("print-config", false, "вывести итоговую конфигурацию и выйти")
	pflag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "не удалось прочитать %s: %v\n", *envFile, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "конфигурация: %v\n", err)
		os.Exit(1)
	}

	if *printConfig {
		out, err := cfg.YAML()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Print(out)
		return
	}

	os.Exit(run(cfg))
}

func run(cfg *config.Config) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout+5*time.Second)
		defer cancel()
		if err := application.Shutdown(shutdownCtx); err != nil {
			logger.Error("Ошибка при завершении работы", err)
		}
	}()

	if err := application.Init(ctx); err != nil {
		logger.Error("Не удалось запустить приложение", err)
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := application.Run(ctx); err != nil {
		logger.Error("Приложение остановлено с ошибкой", err)
		return 1
	}

	reason := "завершение"
	if cause := context.Cause(ctx); cause != nil {
		reason = cause.Error()
	}
	logger.Info("Приложение остановлено", zap.String("reason", reason))
	return 0
}
