package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and cancel jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildServices()
		if err != nil {
			return err
		}
		defer svc.Store.Close()

		all, err := svc.JobManager.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(all) == 0 {
			fmt.Println("no jobs")
			return nil
		}

		fmt.Printf("%-36s  %-16s  %8s  %-19s  %s\n", "ID", "STATUS", "PROGRESS", "CREATED", "NAME")
		for _, j := range all {
			fmt.Printf("%-36s  %-16s  %7d%%  %-19s  %s\n",
				j.ID, j.Status, j.Progress, j.CreatedAt.Format("2006-01-02 15:04:05"), j.Name)
		}
		return nil
	},
}

var jobsGetCmd = &cobra.Command{
	Use:   "get <job-id>",
	Short: "Show one job with its stage log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, err := buildServices()
		if err != nil {
			return err
		}
		defer svc.Store.Close()

		job, err := svc.JobManager.Get(ctx, args[0])
		if err != nil {
			return err
		}
		questions, err := svc.Store.QuestionsByJob(ctx, job.ID)
		if err != nil {
			return err
		}
		images, err := svc.Store.ImagesByJob(ctx, job.ID)
		if err != nil {
			return err
		}

		fmt.Printf("ID:        %s\n", job.ID)
		fmt.Printf("Name:      %s\n", job.Name)
		fmt.Printf("File:      %s\n", job.Filename)
		fmt.Printf("Status:    %s\n", job.Status)
		fmt.Printf("Progress:  %d%%\n", job.Progress)
		fmt.Printf("Questions: %d\n", len(questions))
		fmt.Printf("Images:    %d\n", len(images))
		fmt.Printf("Created:   %s\n", job.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Updated:   %s\n", job.UpdatedAt.Format("2006-01-02 15:04:05"))
		if job.StageLog != "" {
			fmt.Println("Stage log:")
			for _, line := range strings.Split(job.StageLog, "\n") {
				fmt.Printf("  %s\n", line)
			}
		}
		return nil
	},
}

var jobsCancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a job",
	Long: `Cancel a job: revoke its task if one is active in this process and
persist the cancelled status. The status is written even when no active
task is found.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildServices()
		if err != nil {
			return err
		}
		defer svc.Store.Close()

		revoked, err := svc.JobManager.Cancel(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if revoked {
			fmt.Printf("job %s cancelled, task revoked\n", args[0])
		} else {
			fmt.Printf("job %s cancelled (no active task in this process)\n", args[0])
		}
		return nil
	},
}

func init() {
	jobsCmd.AddCommand(jobsListCmd, jobsGetCmd, jobsCancelCmd)
	rootCmd.AddCommand(jobsCmd)
}
