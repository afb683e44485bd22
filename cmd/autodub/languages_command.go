package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"autodub/internal/language"
)

func newLanguagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "languages",
		Short:       "List supported dubbing languages",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			targets := language.All()
			rows := make([][]string, 0, len(targets))
			for _, target := range targets {
				rows = append(rows, []string{target.Code, target.Name, target.NativeName})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Code", "Language", "Native Name"},
				rows,
				nil,
			))
			return nil
		},
	}
}
