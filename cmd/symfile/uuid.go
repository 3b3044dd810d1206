package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newUUIDCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "uuid <file>...",
		Short: "Print the unique build identifiers of binaries and symbol files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			extractor := o.readOnlySession().Extractor()

			var views []uuidView
			failed := 0
			for _, arg := range args {
				p, err := absPath(arg)
				if err != nil {
					return err
				}
				ids, err := extractor.Identifiers(p)
				if err != nil {
					failed++
					views = append(views, uuidView{Path: p, Error: err.Error()})
					continue
				}
				for _, id := range ids {
					if o.cfg.Arch != "" && id.Arch != o.cfg.Arch {
						continue
					}
					views = append(views, uuidView{
						Path: p,
						Arch: id.Arch,
						Kind: id.Identifier.Kind().String(),
						UUID: id.Identifier.String(),
					})
				}
			}

			if err := o.render(cmd.OutOrStdout(), views, func(w io.Writer) error {
				return writeUUIDText(w, views)
			}); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files could not be read", failed, len(args))
			}
			return nil
		},
	}
}
