package cmd

import (
	"github.com/AustralianCyberSecurityCentre/azul-dedup.git/pipeline"
	"github.com/AustralianCyberSecurityCentre/azul-dedup.git/report"
	st "github.com/AustralianCyberSecurityCentre/azul-dedup.git/settings"
	"github.com/spf13/cobra"
)

// engineOptions reads throughput settings shared by both commands.
func engineOptions() pipeline.Options {
	return pipeline.Options{
		Workers:   st.Workers.Count,
		BatchSize: st.Workers.BatchSize,
		SizeHint:  st.Index.SizeHint,
		WarnBytes: uint64(st.Index.WarnBytes),
	}
}

func newSplitCmd(g *globalFlags) *cobra.Command {
	var workers int
	splitCmd := &cobra.Command{
		Use:   "split <input-file> [output-file [dup-file]]",
		Short: "Copy SMF records with duplicates removed",
		Long: `Search for duplicates in input-file, and report duplicate record counts
by record type.

  input-file   File containing SMF records. Binary data, RECFM=V[B][S]
               including RDW. '-' reads stdin.
  output-file  Copy data to output-file with duplicates removed.
  dup-file     Write duplicate records to dup-file to allow further
               investigation. Can only be specified with output-file.

Outputs are removed if the split fails part way through.`,
		Example: `azul-dedup split smf.bin smf.dedup.bin smf.dups.bin
azul-dedup split --json smf.bin`,
		Args: cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			opts := engineOptions()
			if cmd.Flags().Changed("workers") {
				opts.Workers = workers
			}
			s := pipeline.Splitter{
				Input:        args[0],
				Options:      opts,
				DuplicateLog: st.ChLogDuplicates,
			}
			if len(args) > 1 {
				s.Output = args[1]
			}
			if len(args) > 2 {
				s.DuplicateOutput = args[2]
			}
			// keep the summary out of records written to stdout
			out := cmd.OutOrStdout()
			if s.Output == "-" || s.DuplicateOutput == "-" {
				out = cmd.ErrOrStderr()
			}
			if !g.json {
				if err := report.WriteWarning(out); err != nil {
					return err
				}
			}
			res, err := s.Run(cmd.Context())
			if err != nil {
				return err
			}
			if g.json {
				return report.WriteSplitJSON(out, res)
			}
			return report.WriteSplit(out, res)
		},
	}
	splitCmd.Flags().IntVar(&workers, "workers", 0, "goroutines computing fingerprints, zero uses all cpus")
	return splitCmd
}
