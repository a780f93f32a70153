package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var (
	processName  string
	processAsync bool
)

var processCmd = &cobra.Command{
	Use:   "process <pdf>",
	Short: "Analyze one exam PDF",
	Long: `Stage an exam PDF, create a job for it and run the analysis pipeline.

By default the pipeline runs synchronously and the command exits when the
job reaches a terminal state. With --async the job is left queued for a
running "examina serve" worker pool to pick up.

Examples:
  examina process prova.pdf
  examina process prova.pdf --name "Vestibular 2024"
  examina process prova.pdf --async`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		srcPath := args[0]

		svc, err := buildServices()
		if err != nil {
			return err
		}
		defer svc.Store.Close()

		info, err := os.Stat(srcPath)
		if err != nil {
			return fmt.Errorf("reading %s: %w", srcPath, err)
		}
		if max := svc.Config.Get().MaxUploadBytes(); info.Size() > max {
			return fmt.Errorf("%s is %d bytes, above the %d byte upload limit", srcPath, info.Size(), max)
		}

		name := processName
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
		}

		job, err := svc.Store.CreateJob(ctx, name, filepath.Base(srcPath))
		if err != nil {
			return err
		}

		staged := svc.Home.UploadPath(job.ID, filepath.Base(srcPath))
		if err := copyFile(srcPath, staged); err != nil {
			return fmt.Errorf("staging upload: %w", err)
		}

		if processAsync {
			fmt.Printf("job %s queued\n", job.ID)
			return nil
		}

		if err := svc.Runner.Run(ctx, job.ID, staged); err != nil {
			return fmt.Errorf("job %s failed: %w", job.ID, err)
		}

		done, err := svc.Store.Job(ctx, job.ID)
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
		fmt.Printf("job %s %s: %d questions, %d images\n", done.ID, done.Status, len(questions), len(images))
		return nil
	},
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func init() {
	processCmd.Flags().StringVar(&processName, "name", "", "display name for the job (default: file name)")
	processCmd.Flags().BoolVar(&processAsync, "async", false, "leave the job queued for a running worker pool")

	rootCmd.AddCommand(processCmd)
}
