package commands

import (
	"github.com/spf13/cobra"

	"github.com/kilnbuild/kiln/internal/app"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [jobs...]",
		Short: "Run pipeline jobs and their dependencies",
		Long: "Run the named jobs from kiln.yaml, including everything they depend on.\n" +
			"Without arguments every job in the pipeline runs.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			jobs, _ := cmd.Flags().GetInt("jobs")
			return c.app.Run(cmd.Context(), app.RunOptions{
				Targets:     args,
				Parallelism: jobs,
				Force:       force,
			})
		},
	}
	cmd.Flags().BoolP("force", "f", false, "Run every step even when the cache has a hit")
	cmd.Flags().IntP("jobs", "j", 0, "Maximum number of jobs to run in parallel (0 = number of CPUs)")
	return cmd
}

func (c *CLI) newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove the local cache store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Clean(cmd.Context())
		},
	}
}
