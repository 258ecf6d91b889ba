package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/gradepush/gradepush/lib/run"
)

func (c *rootCommand) getRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a grade-entry job against one class diary",
		Long: `Run a grade-entry job: authenticate, open the class diary, and fill the
attitude and skill-grade combos for every student in the selected period.`,
		Example: `  gradepush run --base-url https://sgn.example.gov.br -u teacher -p secret \
      --class 369528 --period TR2 --default-grade B --intelligent`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := getConsolidatedConfig(cmd.Flags())
			if err != nil {
				return ExitCode{Err: err, Code: 2}
			}
			if err := requireUpstream(opts); err != nil {
				return ExitCode{Err: err, Code: 2}
			}
			if !opts.ClassCode.Valid || opts.ClassCode.String == "" {
				return ExitCode{Err: errors.New("a class code is required (--class or GRADEPUSH_CLASS_CODE)"), Code: 2}
			}

			orc, err := run.New(opts, c.logger)
			if err != nil {
				return err
			}
			defer orc.Close()

			summary, err := orc.Run(c.ctx, orc.JobFromDefaults())
			if err != nil {
				return err
			}
			if !c.quiet {
				printSummary(stdout, summary)
			}
			if !summary.Success {
				return ExitCode{Err: errors.New(summary.Message), Code: 99}
			}
			return nil
		},
	}
	runCmd.Flags().SortFlags = false
	runCmd.Flags().AddFlagSet(optionFlagSet())
	return runCmd
}
