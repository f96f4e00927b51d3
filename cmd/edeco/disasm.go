package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"edeco/internal/disasm"
	"edeco/internal/flow"
)

func newDisasmCmd(a *app) *cobra.Command {
	var (
		in     inputFlags
		entry  string
		leaves bool
		stores bool
	)
	cmd := &cobra.Command{
		Use:   "disasm <elf|listing>",
		Short: "Print decoded instructions with their flow facts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.apply(&in); err != nil {
				return err
			}
			p, err := a.load(args[0])
			if err != nil {
				return err
			}
			var annots []disasm.Annotator
			if stores {
				annots = append(annots, disasm.StoreAnnotator())
			}
			insts := p.insts
			if leaves && entry == "" {
				return fmt.Errorf("--leaves needs --entry")
			}
			if entry != "" {
				addr, err := p.entry(entry)
				if err != nil {
					return err
				}
				fn, err := p.function(addr)
				if err != nil {
					return err
				}
				insts = fn.insts
				if leaves {
					g, err := flow.Build(fn.insts, addr, flow.Options{Logger: &a.log})
					if err != nil {
						return err
					}
					annots = append(annots, disasm.LeafAnnotator(g, fn.insts))
				}
			}
			_, err = fmt.Fprint(a.stdout, disasm.Format(insts, disasm.PlaceholderLookup(p.names), annots...))
			return err
		},
	}
	in.bind(cmd)
	cmd.Flags().StringVar(&entry, "entry", "", "only the function at this entry")
	cmd.Flags().BoolVar(&leaves, "leaves", false, "mark where each flat-graph leaf begins")
	cmd.Flags().BoolVar(&stores, "stores", false, "mark instructions that write memory")
	return cmd
}
