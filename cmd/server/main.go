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

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hnlite/internal/config"
	"hnlite/internal/db"
	"hnlite/internal/router"
	"hnlite/internal/services"
	"hnlite/internal/utils"
)

func main() {
	cmd := &cli.Command{
		Name:  "hnlite",
		Usage: "comment and voting API server",
		Commands: []*cli.Command{
			serveCommand(),
			reconcileCommand(),
		},
		Action: runServe,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the HTTP API (default)",
		Action: runServe,
	}
}

func reconcileCommand() *cli.Command {
	return &cli.Command{
		Name:  "reconcile",
		Usage: "Compare cached points/comment counters against their rows",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "fix",
				Usage: "rewrite drifting counters instead of only reporting them",
			},
		},
		Action: runReconcile,
	}
}

// bootstrap loads config and opens the logger and database shared by every command.
func bootstrap() (config.Config, *zap.Logger, *gorm.DB, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, nil, nil, err
	}
	log, err := utils.NewLogger(cfg)
	if err != nil {
		return config.Config{}, nil, nil, nil, err
	}
	conn, err := db.Open(cfg, log)
	if err != nil {
		log.Error("database open failed", zap.Error(err))
		_ = log.Sync()
		return config.Config{}, nil, nil, nil, err
	}

	cleanup := func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
		_ = log.Sync()
	}
	return cfg, log, conn, cleanup, nil
}

func runServe(ctx context.Context, _ *cli.Command) error {
	cfg, log, conn, cleanup, err := bootstrap()
	if err != nil {
		return err
	}
	defer cleanup()

	gin.SetMode(cfg.GinMode)

	if cfg.ReconcileSchedule != "" {
		sched, err := services.NewReconciler(conn, log).Schedule(cfg.ReconcileSchedule)
		if err != nil {
			return err
		}
		defer sched.Stop()
		log.Info("counter reconciliation scheduled", zap.String("schedule", cfg.ReconcileSchedule))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(cfg, conn, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("hnlite server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runReconcile(ctx context.Context, cmd *cli.Command) error {
	_, log, conn, cleanup, err := bootstrap()
	if err != nil {
		return err
	}
	defer cleanup()

	r := services.NewReconciler(conn, log)
	var drifts []services.Drift
	if cmd.Bool("fix") {
		drifts, err = r.Fix(ctx)
	} else {
		drifts, err = r.Check(ctx)
	}
	if err != nil {
		return err
	}

	for _, d := range drifts {
		fmt.Printf("%s.%s id=%d cached=%d actual=%d\n", d.Table, d.Column, d.ID, d.Cached, d.Actual)
	}
	switch {
	case len(drifts) == 0:
		fmt.Println("all counters consistent")
	case cmd.Bool("fix"):
		fmt.Printf("repaired %d counters\n", len(drifts))
	default:
		return cli.Exit(fmt.Sprintf("%d counters drifted, rerun with --fix", len(drifts)), 2)
	}
	return nil
}
