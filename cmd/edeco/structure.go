package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"edeco/internal/closure"
	"edeco/internal/config"
	"edeco/internal/flow"
	"edeco/internal/metrics"
	"edeco/internal/output"
	"edeco/internal/render"
	"edeco/internal/structure"
)

func newStructureCmd(a *app) *cobra.Command {
	var (
		in         inputFlags
		entries    []string
		all        bool
		jsonOut    string
		dotDir     string
		metricsOut string
	)
	cmd := &cobra.Command{
		Use:   "structure <elf|listing>",
		Short: "Structure functions and print their closure outline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.apply(&in); err != nil {
				return err
			}
			if dotDir == "" {
				dotDir = a.cfg.DotDir
			}
			if metricsOut == "" {
				metricsOut = a.cfg.MetricsOut
			}
			return a.runStructure(args[0], entries, all, jsonOut, dotDir, metricsOut)
		},
	}
	in.bind(cmd)
	cmd.Flags().StringSliceVar(&entries, "entry", nil, "function entry: address or symbol (repeatable)")
	cmd.Flags().BoolVar(&all, "all", false, "structure every harvested entry")
	cmd.Flags().StringVar(&jsonOut, "json", "", "write the trees as JSON to this file")
	cmd.Flags().StringVar(&dotDir, "dot-dir", "", "write a DOT snapshot per structuring step into this directory")
	cmd.Flags().StringVar(&metricsOut, "metrics-out", "", "write Prometheus metrics to this textfile")
	return cmd
}

// structured is one function that made it through the whole pipeline.
type structured struct {
	fn   *function
	tree *structure.Tree
}

func (a *app) runStructure(path string, values []string, all bool, jsonOut, dotDir, metricsOut string) error {
	p, err := a.load(path)
	if err != nil {
		return err
	}
	addrs, err := p.entries(values, all)
	if err != nil {
		return err
	}

	rec := metrics.NewRecorder()
	var (
		diags config.Diags
		done  []structured
	)
	for _, entry := range addrs {
		s, err := a.structureOne(p, entry, rec, dotDir)
		if err != nil {
			kind := config.KindOf(err)
			rec.Failed(string(kind))
			a.log.Warn().Str("func", p.namer().Name(entry)).Str("kind", string(kind)).Err(err).Msg("structuring failed")
			if a.cfg.Strict() {
				return fmt.Errorf("%s: %w", p.namer().Name(entry), err)
			}
			diags.Add(entry, kind, err.Error())
			continue
		}
		rec.Done(s.tree.Ghosts, s.tree.Steps)
		done = append(done, s)

		fmt.Fprintf(a.stdout, "%s @ 0x%x [%d,%d]\n", s.fn.name, s.fn.entry, s.fn.bounds.First, s.fn.bounds.Last)
		fmt.Fprint(a.stdout, render.Outline(s.tree.Graph, s.tree.Root, s.fn.insts))
	}

	for _, d := range diags.Items() {
		fmt.Fprintln(a.stderr, d.String())
	}
	if jsonOut != "" {
		var funcs []*output.Func
		for _, s := range done {
			funcs = append(funcs, output.NewFunc(s.fn.name, s.fn.entry, s.fn.bounds, s.tree, s.fn.insts))
		}
		if err := output.WriteTreeJSON(jsonOut, funcs); err != nil {
			return err
		}
	}
	if metricsOut != "" {
		if err := rec.WriteTextfile(metricsOut); err != nil {
			return err
		}
	}
	a.log.Info().Int("structured", len(done)).Int("failed", diags.Len()).Msg("done")
	return nil
}

// structureOne runs boundary finding, graph building and structuring for
// the function at entry.
func (a *app) structureOne(p *program, entry uint64, rec *metrics.Recorder, dotDir string) (structured, error) {
	fn, err := p.function(entry)
	if err != nil {
		return structured{}, err
	}
	log := a.log.With().Str("func", fn.name).Logger()

	g, err := flow.Build(fn.insts, entry, flow.Options{Logger: &log})
	if err != nil {
		return structured{}, err
	}

	observers := closure.Observers{rec}
	if dotDir != "" {
		dots, err := render.NewDOTObserver(dotDir, fmt.Sprintf("%08x_", fn.entry), &log)
		if err != nil {
			return structured{}, err
		}
		observers = append(observers, dots)
	}

	tree, err := structure.Structurize(g, structure.Options{
		MaxSteps: a.cfg.EffectiveMaxSteps(),
		Name:     fn.name,
		Logger:   &a.log,
		Observer: observers,
	})
	if err != nil {
		return structured{}, err
	}
	return structured{fn: fn, tree: tree}, nil
}
