package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"edeco/internal/config"
	"edeco/internal/output"
)

func newBoundsCmd(a *app) *cobra.Command {
	var (
		in      inputFlags
		entries []string
		all     bool
		jsonOut string
	)
	cmd := &cobra.Command{
		Use:   "bounds <elf|listing>",
		Short: "Print the instruction range of each function",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.apply(&in); err != nil {
				return err
			}
			p, err := a.load(args[0])
			if err != nil {
				return err
			}
			addrs, err := p.entries(entries, all)
			if err != nil {
				return err
			}

			var results []output.Bounds
			for _, entry := range addrs {
				fn, err := p.function(entry)
				if err != nil {
					name := p.namer().Name(entry)
					if a.cfg.Strict() {
						return fmt.Errorf("%s: %w", name, err)
					}
					a.log.Warn().Str("func", name).Str("kind", string(config.KindOf(err))).Err(err).Msg("no bounds")
					results = append(results, output.Bounds{Name: name, Entry: entry, Error: err.Error()})
					continue
				}
				b := output.NewBounds(fn.name, fn.bounds, p.insts)
				results = append(results, b)
				fmt.Fprintf(a.stdout, "%s 0x%x-0x%x %d\n", b.Name, b.FirstAddr, b.LastAddr, fn.bounds.Len())
			}
			if jsonOut != "" {
				return output.WriteBoundsJSON(jsonOut, results)
			}
			return nil
		},
	}
	in.bind(cmd)
	cmd.Flags().StringSliceVar(&entries, "entry", nil, "function entry: address or symbol (repeatable)")
	cmd.Flags().BoolVar(&all, "all", false, "every harvested entry")
	cmd.Flags().StringVar(&jsonOut, "json", "", "write the ranges as JSON to this file")
	return cmd
}

func newEntriesCmd(a *app) *cobra.Command {
	var in inputFlags
	cmd := &cobra.Command{
		Use:   "entries <elf|listing>",
		Short: "Print candidate function entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.apply(&in); err != nil {
				return err
			}
			p, err := a.load(args[0])
			if err != nil {
				return err
			}
			addrs, err := p.entries(nil, true)
			if err != nil {
				return err
			}
			for _, addr := range addrs {
				fmt.Fprintf(a.stdout, "0x%x %s\n", addr, p.namer().Name(addr))
			}
			return nil
		},
	}
	in.bind(cmd)
	return cmd
}
