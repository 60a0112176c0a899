package zonegraph

import (
	"sort"

	"github.com/jacoblum22/AID-D-sub000/internal/events"
	"github.com/jacoblum22/AID-D-sub000/internal/logging"
	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

// Discovery status values returned by DiscoveryMap.
const (
	StatusDiscovered   = "discovered"
	StatusUndiscovered = "undiscovered"
	StatusHidden       = "hidden"
)

// RevealAdjacentZones marks every non-gm_only zone reachable through the
// current zone's exits as discovered by the actor, returning the newly
// revealed zone ids. Already discovered targets are skipped.
func RevealAdjacentZones(w *world.GameState, actorID, zoneID string) []string {
	z, ok := w.Zone(zoneID)
	if !ok {
		return nil
	}
	var revealed []string
	for _, x := range z.Exits {
		target, ok := w.Zone(x.To)
		if !ok {
			continue
		}
		if target.Meta != nil && target.Meta.GMOnly {
			continue
		}
		if target.DiscoveredBy[actorID] {
			continue
		}
		if target.DiscoveredBy == nil {
			target.DiscoveredBy = make(map[string]bool)
		}
		target.DiscoveredBy[actorID] = true
		w.TouchMeta(target.ID, target.Meta)
		revealed = append(revealed, target.ID)
	}
	sort.Strings(revealed)
	if len(revealed) > 0 {
		logging.Zones("actor %s discovered %d zones from %s", actorID, len(revealed), zoneID)
		w.Bus().Publish(events.TopicZoneEntitiesDiscovered, events.Payload{
			"actor_id": actorID,
			"zone_id":  zoneID,
			"revealed": revealed,
		})
	}
	return revealed
}

// DiscoveryMap reports each zone's status for one actor: discovered,
// undiscovered, or hidden (gm_only and not known to the actor).
func DiscoveryMap(w *world.GameState, actorID string) map[string]string {
	out := make(map[string]string, len(w.Zones))
	for id, z := range w.Zones {
		switch {
		case z.DiscoveredBy[actorID]:
			out[id] = StatusDiscovered
		case z.Meta != nil && z.Meta.GMOnly && !z.Meta.Knows(actorID):
			out[id] = StatusHidden
		default:
			out[id] = StatusUndiscovered
		}
	}
	return out
}
