package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"autodub/internal/jobs/history"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List archived dubbing jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			hist, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history store: %w", err)
			}
			defer hist.Close()

			archived, err := hist.List(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list jobs: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(archived) == 0 {
				fmt.Fprintln(out, "No archived jobs yet")
				return nil
			}

			rows := make([][]string, 0, len(archived))
			for _, job := range archived {
				output := ""
				if job.OutputFile != "" {
					output = filepath.Base(job.OutputFile)
				}
				rows = append(rows, []string{
					job.ID,
					string(job.Status),
					job.Lang,
					job.Gender,
					strconv.Itoa(job.Progress),
					job.UpdatedAt.Local().Format(time.DateTime),
					output,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Status", "Lang", "Voice", "Progress", "Updated", "Output"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of jobs to show")
	return cmd
}
