package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

func newInspectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Load the artifacts and describe the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.bootstrap()
			if err != nil {
				return err
			}
			defer env.logger.Sync()

			out, err := yaml.Marshal(env.artifacts.Describe())
			if err != nil {
				return fmt.Errorf("encode model info: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
