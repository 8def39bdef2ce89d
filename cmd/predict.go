package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"croprec/locale"
	"croprec/ml"
)

func newPredictCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	specs := ml.FeatureSpecs()
	values := make([]float64, len(specs))

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Run one recommendation from flag values",
		Example: "  croprec predict --n 90 --p 42 --k 43 --temperature 20.8 --humidity 82 --ph 6.5 --rainfall 203\n" +
			"  croprec predict --rainfall 80 --json",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := ml.RecordFromVector(values)
			if err != nil {
				return err
			}
			if err := ml.CheckBounds(record); err != nil {
				return err
			}

			env, err := opts.bootstrap()
			if err != nil {
				return err
			}
			defer env.logger.Sync()
			svc, err := env.service()
			if err != nil {
				return err
			}

			prediction, err := svc.Recommend(cmd.Context(), record)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(prediction)
			}

			fmt.Fprintln(out, env.messages.Sprintf(locale.Recommended, prediction.Display))
			if !prediction.HasProbabilities() {
				fmt.Fprintln(out, env.messages.Sprintf(locale.NoProbabilities))
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "#\t%s\t%s\n",
				strings.ToUpper(env.messages.Sprintf(locale.CropAxis)),
				strings.ToUpper(env.messages.Sprintf(locale.ProbabilityAxis)))
			for i, ranked := range prediction.Probabilities {
				fmt.Fprintf(tw, "%d\t%s\t%.2f\n", i+1, ranked.Label, ranked.Percent)
			}
			return tw.Flush()
		},
	}

	for i, spec := range specs {
		usage := spec.Label
		if spec.Unit != "" {
			usage += " (" + spec.Unit + ")"
		}
		usage += fmt.Sprintf(", %g to %g", spec.Min, spec.Max)
		cmd.Flags().Float64Var(&values[i], strings.ToLower(spec.Name), spec.Default, usage)
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}
