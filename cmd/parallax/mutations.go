package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rafabd1/Parallax/internal/mutation"
)

var mutationsCatalogue string

var mutationsCmd = &cobra.Command{
	Use:   "mutations",
	Short: "List the mutation catalogue",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		specs := mutation.DefaultSpecs()
		if mutationsCatalogue != "" {
			muts, err := mutation.LoadFile(mutationsCatalogue)
			if err != nil {
				return err
			}
			specs = make([]mutation.Spec, 0, len(muts))
			for _, m := range muts {
				specs = append(specs, m.(*mutation.Strategy).Spec())
			}
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tKIND\tGROUP\tDESCRIPTION")
		for _, s := range specs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Name, s.Kind, s.Group, s.Description)
		}
		return w.Flush()
	},
}

func init() {
	mutationsCmd.Flags().StringVar(&mutationsCatalogue, "catalogue", "", "YAML mutation catalogue (default: built-in catalogue)")
	rootCmd.AddCommand(mutationsCmd)
}
