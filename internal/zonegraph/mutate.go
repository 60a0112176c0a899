package zonegraph

import (
	"fmt"

	"github.com/jacoblum22/AID-D-sub000/internal/events"
	"github.com/jacoblum22/AID-D-sub000/internal/logging"
	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

// MutateOpts controls event emission for topology changes.
type MutateOpts struct {
	Cause  string
	Reason string
	Silent bool // suppress the topology event for this call
}

func publishTopology(w *world.GameState, topic events.Topic, from, to string, opts MutateOpts) {
	if opts.Silent {
		return
	}
	p := events.Payload{"from_zone": from, "to_zone": to}
	if opts.Cause != "" {
		p["cause"] = opts.Cause
	}
	if opts.Reason != "" {
		p["reason"] = opts.Reason
	}
	w.Bus().Publish(topic, p)
}

func findExit(w *world.GameState, from, to string) (*world.Zone, *world.Exit, error) {
	z, ok := w.Zone(from)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", world.ErrZoneNotFound, from)
	}
	x, ok := z.ExitTo(to)
	if !ok {
		return nil, nil, fmt.Errorf("no exit from %s to %s", from, to)
	}
	return z, x, nil
}

// BlockExit marks the exit blocked, touches the zone Meta, and publishes
// zone_graph.exit_blocked.
func BlockExit(w *world.GameState, from, to string, opts MutateOpts) error {
	z, x, err := findExit(w, from, to)
	if err != nil {
		return err
	}
	if x.Blocked {
		return nil
	}
	x.Blocked = true
	w.TouchMeta(z.ID, z.Meta)
	logging.Zones("exit blocked %s -> %s", from, to)
	publishTopology(w, events.TopicExitBlocked, from, to, opts)
	return nil
}

// UnblockExit clears the blocked flag and publishes zone_graph.exit_unblocked.
func UnblockExit(w *world.GameState, from, to string, opts MutateOpts) error {
	z, x, err := findExit(w, from, to)
	if err != nil {
		return err
	}
	if !x.Blocked {
		return nil
	}
	x.Blocked = false
	w.TouchMeta(z.ID, z.Meta)
	logging.Zones("exit unblocked %s -> %s", from, to)
	publishTopology(w, events.TopicExitUnblocked, from, to, opts)
	return nil
}

// ToggleExit flips the blocked flag, publishing the event matching the new
// state.
func ToggleExit(w *world.GameState, from, to string, opts MutateOpts) error {
	_, x, err := findExit(w, from, to)
	if err != nil {
		return err
	}
	if x.Blocked {
		return UnblockExit(w, from, to, opts)
	}
	return BlockExit(w, from, to, opts)
}

// CreateExit adds a new exit from one zone to another. Fails when either
// zone is missing or the edge already exists.
func CreateExit(w *world.GameState, from string, exit world.Exit, opts MutateOpts) error {
	z, ok := w.Zone(from)
	if !ok {
		return fmt.Errorf("%w: %s", world.ErrZoneNotFound, from)
	}
	if _, ok := w.Zone(exit.To); !ok {
		return fmt.Errorf("%w: %s", world.ErrZoneNotFound, exit.To)
	}
	if _, ok := z.ExitTo(exit.To); ok {
		return fmt.Errorf("exit from %s to %s already exists", from, exit.To)
	}
	if exit.Meta == nil {
		exit.Meta = world.NewMeta(world.VisibilityPublic)
	}
	z.Exits = append(z.Exits, exit)
	w.TouchMeta(z.ID, z.Meta)
	logging.Zones("exit created %s -> %s", from, exit.To)
	publishTopology(w, events.TopicExitCreated, from, exit.To, opts)
	return nil
}

// DestroyExit removes the exit and publishes zone_graph.exit_destroyed.
func DestroyExit(w *world.GameState, from, to string, opts MutateOpts) error {
	z, ok := w.Zone(from)
	if !ok {
		return fmt.Errorf("%w: %s", world.ErrZoneNotFound, from)
	}
	idx := -1
	for i := range z.Exits {
		if z.Exits[i].To == to {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("no exit from %s to %s", from, to)
	}
	z.Exits = append(z.Exits[:idx], z.Exits[idx+1:]...)
	w.TouchMeta(z.ID, z.Meta)
	logging.Zones("exit destroyed %s -> %s", from, to)
	publishTopology(w, events.TopicExitDestroyed, from, to, opts)
	return nil
}

// SetExitConditions replaces the conditions map on an exit and publishes
// zone_graph.exit_conditions_changed. Unrecognized condition keys are
// rejected.
func SetExitConditions(w *world.GameState, from, to string, conditions map[string]interface{}, opts MutateOpts) error {
	for k := range conditions {
		switch k {
		case world.CondKeyRequired, world.CondLevelRequired, world.CondTagRequired, world.CondStatCheck:
		default:
			return fmt.Errorf("unrecognized exit condition %q", k)
		}
	}
	z, x, err := findExit(w, from, to)
	if err != nil {
		return err
	}
	x.Conditions = conditions
	w.TouchMeta(z.ID, z.Meta)
	logging.Zones("exit conditions changed %s -> %s (%d keys)", from, to, len(conditions))
	publishTopology(w, events.TopicExitConditionsChanged, from, to, opts)
	return nil
}
