package main

import (
	"io"

	"github.com/spf13/cobra"
)

func newResolveCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <path>",
		Short: "Show how a symbol file path is classified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := absPath(args[0])
			if err != nil {
				return err
			}
			v := newResolveView(o.readOnlySession().Resolver().Resolve(p))
			return o.render(cmd.OutOrStdout(), v, func(w io.Writer) error {
				return writeResolveText(w, v)
			})
		},
	}
}
