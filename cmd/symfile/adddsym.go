package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/goretk/symfile"
)

func newAddDsymCommand(o *rootOptions) *cobra.Command {
	var (
		target     string
		expectUUID string
		lookups    []string
	)

	cmd := &cobra.Command{
		Use:     "add-dsym [path]",
		Aliases: []string{"add"},
		Short:   "Attach a symbol file or dSYM bundle to a binary",
		Long: `Attach a symbol file or dSYM bundle to a binary after verifying that both
carry the same UUID. The path may be a flat symbol file, a .dSYM bundle or
the DWARF file inside a bundle. Without a path the bundle next to the
binary and the configured search paths are tried.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, closeSession, err := o.newSession(cmd.Context())
			if err != nil {
				return err
			}
			defer closeSession()

			img, err := s.OpenImage(target, o.cfg.Arch)
			if err != nil {
				return err
			}
			if expectUUID != "" {
				want, err := symfile.ParseIdentifier(expectUUID)
				if err != nil {
					return err
				}
				if !img.Identifier.Equal(want) {
					return fmt.Errorf("binary '%s' has UUID %s, expected %s", img.Path, img.Identifier, want)
				}
			}

			var resp *symfile.Response
			if len(args) == 0 {
				resp, err = s.LocateSymbolFile(img)
			} else {
				resp, err = s.AddSymbolFile(symfile.Request{Image: img, CandidatePath: args[0]})
			}
			if err != nil {
				return err
			}

			v := newAttachView(resp, lookups)
			return o.render(cmd.OutOrStdout(), v, func(w io.Writer) error {
				return writeAttachText(w, v)
			})
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "binary the symbols belong to")
	cmd.Flags().StringVar(&expectUUID, "uuid", "", "refuse to attach unless the binary has this UUID")
	cmd.Flags().StringSliceVarP(&lookups, "symbol", "s", nil, "look up symbols in the attached file")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}
