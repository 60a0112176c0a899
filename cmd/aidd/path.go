package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jacoblum22/AID-D-sub000/internal/persist"
	"github.com/jacoblum22/AID-D-sub000/internal/world"
	"github.com/jacoblum22/AID-D-sub000/internal/zonegraph"
)

func newPathCmd() *cobra.Command {
	var (
		loadName     string
		actorID      string
		allowBlocked bool
	)

	cmd := &cobra.Command{
		Use:   "path <from> <to>",
		Short: "Find the lowest-cost route between two zones",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var w *world.GameState
			if loadName != "" {
				loaded, _, err := persist.LoadWorld(cfg.SavePath(loadName))
				if err != nil {
					return err
				}
				w = loaded
			} else {
				w = demoWorld()
			}

			var actor *world.Entity
			if actorID != "" {
				a, ok := w.Entity(actorID)
				if !ok {
					return fmt.Errorf("unknown actor %q", actorID)
				}
				actor = a
			}

			path := zonegraph.FindLowestCostPath(w, args[0], args[1], actor,
				zonegraph.DefaultTerrainModifiers, allowBlocked, 0)
			if path == nil {
				shortest := zonegraph.FindShortestPath(w, args[0], args[1], true, 0)
				if shortest == nil {
					return fmt.Errorf("no route from %s to %s", args[0], args[1])
				}
				fmt.Printf("no open route; blocked route exists: %s\n", strings.Join(shortest, " -> "))
				return nil
			}
			fmt.Printf("%s (cost %.1f)\n", strings.Join(path.Zones, " -> "), path.Cost)
			return nil
		},
	}
	cmd.Flags().StringVar(&loadName, "load", "", "save name to route within")
	cmd.Flags().StringVar(&actorID, "actor", "", "apply this actor's terrain modifiers")
	cmd.Flags().BoolVar(&allowBlocked, "allow-blocked", false, "route through blocked exits")
	return cmd
}
