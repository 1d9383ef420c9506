package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/tableread/tableread/internal/api"
)

var uploadCmd = &cobra.Command{
	Use:     "upload SCREENPLAY",
	Short:   "Upload a screenplay to the generation backend",
	Example: paragraph("tableread upload hamlet.pdf"),
	Args:    cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("unable to open screenplay: %w", err)
		}
		defer f.Close() //nolint:errcheck

		client := api.NewClient(backendURL)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		task, err := client.UploadScreenplay(ctx, filepath.Base(args[0]), f)
		if err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}

		fmt.Printf("Upload accepted, parse task %s (%s).\n", task.ID, task.Status)
		fmt.Println("Run tableread to cast voices once the project appears.")
		return nil
	},
}

var reviewCmd = &cobra.Command{
	Use:     "review PROJECT",
	Short:   "List lines that still lack cached audio",
	Example: paragraph("tableread review hamlet"),
	Args:    cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		client := api.NewClient(backendURL)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		report, err := client.CacheMisses(ctx, args[0])
		if err != nil {
			return fmt.Errorf("review failed: %w", err)
		}

		if report.Total == 0 {
			fmt.Println("All lines have cached audio.")
			return nil
		}

		for _, clip := range report.CacheMisses {
			fmt.Printf("%-20s %-12s %s\n", clip.Speaker, clip.Provider, clip.Text)
		}
		if report.Capped {
			fmt.Printf("…and %d more.\n", report.Total-len(report.CacheMisses))
		}
		fmt.Printf("%d lines missing audio (cache: %s).\n", report.Total, report.CacheFolder)
		return nil
	},
}
