package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mfcarvalho/examina/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the worker pool",
	Long: `Start the worker pool and process queued jobs.

Jobs staged with "examina process --async" are picked up on startup, and
the configuration file is watched for changes. The pool runs until
interrupted (Ctrl+C or SIGTERM).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, err := buildServices()
		if err != nil {
			return err
		}
		defer svc.Store.Close()

		if err := svc.Store.Ping(ctx); err != nil {
			return fmt.Errorf("database not reachable: %w", err)
		}

		svc.Config.Watch()

		// Re-queue jobs left behind by a previous run.
		all, err := svc.Store.Jobs(ctx)
		if err != nil {
			return err
		}
		queued := 0
		for _, job := range all {
			if job.Status != store.StatusQueued {
				continue
			}
			staged := svc.Home.UploadPath(job.ID, job.Filename)
			if _, err := svc.Pool.Enqueue(job.ID, staged); err != nil {
				svc.Logger.Warn("requeueing job failed", "job_id", job.ID, "error", err)
				continue
			}
			queued++
		}
		if queued > 0 {
			fmt.Printf("requeued %d pending job(s)\n", queued)
		}

		svc.Logger.Info("worker pool starting")
		svc.Pool.Start(ctx)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
