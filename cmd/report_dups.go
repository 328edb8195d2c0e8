package cmd

import (
	"errors"
	"time"

	"github.com/AustralianCyberSecurityCentre/azul-dedup.git/fingerprint"
	"github.com/AustralianCyberSecurityCentre/azul-dedup.git/pipeline"
	"github.com/AustralianCyberSecurityCentre/azul-dedup.git/report"
	st "github.com/AustralianCyberSecurityCentre/azul-dedup.git/settings"
	"github.com/AustralianCyberSecurityCentre/azul-dedup.git/window"
	"github.com/spf13/cobra"
)

type reportDupsFlags struct {
	strength    string
	threshold   float64
	granularity time.Duration
	workers     int
	partial     bool
}

// detector combines settings with any flags given on the command line.
func (f *reportDupsFlags) detector(cmd *cobra.Command, inputs []string) (*pipeline.Detector, error) {
	strengthName := st.Index.Strength
	if cmd.Flags().Changed("strength") {
		strengthName = f.strength
	}
	strength, err := fingerprint.ParseStrength(strengthName)
	if err != nil {
		return nil, &pipeline.UsageError{Msg: err.Error()}
	}
	d := &pipeline.Detector{
		Inputs:      inputs,
		Strength:    strength,
		Policy:      window.Policy{Threshold: st.Window.Threshold},
		Granularity: st.Window.Granularity,
		Options:     engineOptions(),
		Partial:     f.partial,
	}
	if cmd.Flags().Changed("threshold") {
		if f.threshold <= 0 {
			return nil, &pipeline.UsageError{Msg: "threshold must be greater than zero"}
		}
		d.Policy.Threshold = f.threshold
	}
	if cmd.Flags().Changed("granularity") {
		if f.granularity <= 0 {
			return nil, &pipeline.UsageError{Msg: "granularity must be greater than zero"}
		}
		d.Granularity = f.granularity
	}
	if cmd.Flags().Changed("workers") {
		d.Options.Workers = f.workers
	}
	return d, nil
}

func newReportDupsCmd(g *globalFlags) *cobra.Command {
	f := &reportDupsFlags{}
	reportDupsCmd := &cobra.Command{
		Use:   "report-dups <input-file> [input-file2 ...]",
		Short: "Report minutes where SMF data appears to be duplicated",
		Long: `Search for duplicated data in one or more input files. Duplicates are found
across all of the files, in the order given.

Records and duplicate records are grouped and counted by system and minute.
If the number of duplicate records in a minute is greater than or equal
to the number of unique records in that minute, data for that minute is
likely to have been duplicated and the counts for that minute are reported.

Specific record types might also be included multiple times in the data.
Data for each minute is checked by record type, and record types with at least
as many duplicate as unique records are reported. Minutes appearing in the
first part of the report are excluded to avoid reporting every record type
for those minutes.

Dup% is duplicates as a percentage of unique records, so exceeds 100 for
heavily duplicated data.

Fast fingerprints use a 64 bit hash and a quarter of the memory of strong
fingerprints. A hash collision can only make a unique record look duplicated.`,
		Example: `azul-dedup report-dups smf.day1.bin smf.day2.bin
azul-dedup report-dups --strength strong --threshold 0.5 --granularity 5m smf.bin`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			d, err := f.detector(cmd, args)
			if err != nil {
				return err
			}
			res, runErr := d.Run(cmd.Context())
			if runErr != nil && (res == nil || res.Reports == nil) {
				return runErr
			}
			if runErr != nil {
				st.Logger.Warn().Int("inputs_read", res.Inputs).Msg("report only covers records read before the interruption")
			}
			if g.json {
				err = report.WriteDetectJSON(cmd.OutOrStdout(), res)
			} else {
				err = report.WriteDetect(cmd.OutOrStdout(), res)
			}
			return errors.Join(runErr, err)
		},
	}
	flags := reportDupsCmd.Flags()
	flags.StringVar(&f.strength, "strength", "", "fingerprint strength, 'fast' or 'strong' (default from settings, fast)")
	flags.Float64Var(&f.threshold, "threshold", 0, "duplicate to unique ratio at which windows are reported (default from settings, 1.0)")
	flags.DurationVar(&f.granularity, "granularity", 0, "window width (default from settings, 1m)")
	flags.IntVar(&f.workers, "workers", 0, "goroutines computing fingerprints, zero uses all cpus")
	flags.BoolVar(&f.partial, "partial", false, "report what was read so far when interrupted")
	return reportDupsCmd
}
