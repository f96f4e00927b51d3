package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zboralski/lattice"
	lrender "github.com/zboralski/lattice/render"

	"edeco/internal/callgraph"
	"edeco/internal/closure"
	"edeco/internal/config"
	"edeco/internal/flow"
	"edeco/internal/metrics"
	"edeco/internal/render"
)

func newGraphCmd(a *app) *cobra.Command {
	var (
		in    inputFlags
		entry string
		tree  bool
		insts bool
		calls bool
		all   bool
		out   string
	)
	cmd := &cobra.Command{
		Use:   "graph <elf|listing>",
		Short: "Render a function's flow graph or closure tree as DOT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.apply(&in); err != nil {
				return err
			}
			p, err := a.load(args[0])
			if err != nil {
				return err
			}

			var dot string
			switch {
			case calls:
				dot = a.callGraph(p)
			case all:
				dot = a.allGraphs(p)
			default:
				if entry == "" {
					return fmt.Errorf("--entry is required")
				}
				addr, err := p.entry(entry)
				if err != nil {
					return err
				}
				dot, err = a.funcGraph(p, addr, tree, insts)
				if err != nil {
					return err
				}
			}

			if out == "" {
				_, err = fmt.Fprint(a.stdout, dot)
				return err
			}
			return os.WriteFile(out, []byte(dot), 0644)
		},
	}
	in.bind(cmd)
	cmd.Flags().StringVar(&entry, "entry", "", "function entry: address or symbol")
	cmd.Flags().BoolVar(&tree, "tree", false, "render the closure tree instead of the flat graph")
	cmd.Flags().BoolVar(&insts, "insts", false, "label flat-graph blocks with their instructions")
	cmd.Flags().BoolVar(&calls, "calls", false, "render the call graph of every harvested entry")
	cmd.Flags().BoolVar(&all, "all", false, "render the flat graph of every harvested entry")
	cmd.Flags().StringVar(&out, "out", "", "write DOT to this file instead of stdout")
	return cmd
}

func (a *app) funcGraph(p *program, entry uint64, tree, insts bool) (string, error) {
	if tree {
		s, err := a.structureOne(p, entry, metrics.NewRecorder(), "")
		if err != nil {
			return "", err
		}
		return render.TreeDOT(s.tree.Graph, closure.None, s.fn.name, render.NASA), nil
	}

	fn, err := p.function(entry)
	if err != nil {
		return "", err
	}
	g, err := flow.Build(fn.insts, entry, flow.Options{Logger: &a.log})
	if err != nil {
		return "", err
	}
	lcfg := callgraph.FlatCFG(fn.name, g, fn.insts, p.namer())
	if insts {
		return render.CFGDOT(lcfg, fn.insts, render.NASA), nil
	}
	return lrender.DOTCFG(&lattice.CFGGraph{Funcs: []*lattice.FuncCFG{lcfg}}, fn.name), nil
}

// funcs collects every harvested function whose bounds can be found.
func (a *app) funcs(p *program) []callgraph.FuncInfo {
	var funcs []callgraph.FuncInfo
	addrs, _ := p.entries(nil, true)
	for _, addr := range addrs {
		fn, err := p.function(addr)
		if err != nil {
			a.log.Debug().Uint64("entry", addr).Err(err).Msg("skipped in graph")
			continue
		}
		funcs = append(funcs, callgraph.FuncInfo{Name: fn.name, Entry: addr, Insts: fn.insts})
	}
	return funcs
}

// callGraph renders the static calls between every function whose bounds
// can be found.
func (a *app) callGraph(p *program) string {
	return lrender.DOT(callgraph.BuildCallGraph(a.funcs(p), p.namer()), "callgraph")
}

// allGraphs renders the flat graph of every function that builds.
func (a *app) allGraphs(p *program) string {
	cg, failed := callgraph.BuildCFG(a.funcs(p), p.namer(), flow.Options{Logger: &a.log})
	for name, err := range failed {
		a.log.Warn().Str("func", name).Str("kind", string(config.KindOf(err))).Err(err).Msg("no flow graph")
	}
	return lrender.DOTCFG(cg, "cfg")
}
