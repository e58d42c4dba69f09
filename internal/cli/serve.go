package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"taskboss/internal/api"
	"taskboss/internal/bot"
	"taskboss/internal/service"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the reminder scheduler and the optional Telegram console",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	scheduler := service.NewSchedulerService(a.cfg.Location)
	reminderScheduler := service.NewReminderScheduler(scheduler, a.reminders, a.settings, a.users, a.clock)
	a.settings.OnSave(reminderScheduler.Reschedule)
	if err := reminderScheduler.RescheduleAll(ctx); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()
	if next := reminderScheduler.NextRun(a.owner.ID); !next.IsZero() {
		log.Printf("[info] next reminder for owner at %s", next.Format(time.RFC3339))
	}

	if a.cfg.TelegramToken != "" {
		telegramBot, err := bot.New(a.cfg.TelegramToken, a.users, a.tasks, a.reminders, a.owner.ID, a.cfg.OwnerTelegramID, a.cfg.Location)
		if err != nil {
			return err
		}
		go func() {
			if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("bot stopped with error: %v", err)
			}
		}()
	}

	if os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	server := api.NewServer(api.Deps{
		Tasks:     a.tasks,
		Settings:  a.settings,
		Reminders: a.reminders,
		Reports:   a.reports,
		Users:     a.users,
		OwnerID:   a.owner.ID,
		Location:  a.cfg.Location,
		Clock:     a.clock,
	}, a.cfg.CORSOrigins)

	httpServer := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[info] http api listening on %s", a.cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	log.Println("Shutdown complete.")
	return nil
}
