package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"newspaper-miniapp/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		slog.Error("application run failed", "error", err)
		stop()
		os.Exit(1)
	}
}

// run собирает клиент и обрабатывает ввод до выхода пользователя или отмены ctx
func run(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("miniapp", flag.ContinueOnError)
	configFile := flags.String("config", "", "путь к файлу конфигурации (по умолчанию miniapp.yml)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	a, err := app.New(app.Options{ConfigFile: *configFile})
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.Logger().Error("Ошибка при закрытии ресурсов", "error", err)
		}
	}()
	slog.SetDefault(a.Logger())

	if err := a.Run(ctx); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	slog.Info("Клиент завершил работу")
	return nil
}
