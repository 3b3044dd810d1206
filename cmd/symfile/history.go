package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/goretk/symfile/internal/journal"
)

func newHistoryCommand(o *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled symbol attachments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := o.openJournal()
			if err != nil {
				return err
			}
			defer j.Close()

			records, err := j.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if records == nil {
				records = []journal.Record{}
			}
			return o.render(cmd.OutOrStdout(), records, func(w io.Writer) error {
				return writeHistoryText(w, records)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show only the most recent entries")
	return cmd
}
