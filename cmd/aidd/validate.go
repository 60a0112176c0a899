package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jacoblum22/AID-D-sub000/internal/persist"
	"github.com/jacoblum22/AID-D-sub000/internal/world"
	"github.com/jacoblum22/AID-D-sub000/internal/zonegraph"
)

func newValidateCmd() *cobra.Command {
	var fix bool

	cmd := &cobra.Command{
		Use:   "validate [name]",
		Short: "Check world invariants for a save (or the starter scenario)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var w *world.GameState
			if len(args) == 1 {
				loaded, _, err := persist.LoadWorld(cfg.SavePath(args[0]))
				if err != nil {
					return err
				}
				w = loaded
			} else {
				w = demoWorld()
			}

			violations := w.Validate()
			for _, v := range violations {
				fmt.Printf("invariant: %v\n", v)
			}

			report := zonegraph.EnsureBidirectionalLinks(w, !fix)
			for _, p := range report.Proposed {
				fmt.Printf("topology: missing reverse exit %s -> %s\n", p.Exit.To, p.FromZone)
			}
			inconsistencies := zonegraph.ValidateBidirectionalConsistency(w)
			for _, inc := range inconsistencies {
				fmt.Printf("topology: %s <-> %s disagree on %s (%s vs %s)\n",
					inc.ZoneA, inc.ZoneB, inc.Field, inc.A, inc.B)
			}
			if fix {
				if report.Created > 0 {
					fmt.Printf("created %d reverse exits\n", report.Created)
				}
				if len(inconsistencies) > 0 {
					n, err := zonegraph.FixBidirectionalInconsistencies(w, zonegraph.PreferLowerCost)
					if err != nil {
						return err
					}
					fmt.Printf("equalized %d exits\n", n)
				}
			}

			if len(violations) == 0 && len(report.Proposed) == 0 && len(inconsistencies) == 0 {
				fmt.Println("world is consistent")
				return nil
			}
			if fix {
				return nil
			}
			return fmt.Errorf("%d invariant violations, %d topology findings",
				len(violations), len(report.Proposed)+len(inconsistencies))
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "add missing reverse exits")
	return cmd
}
