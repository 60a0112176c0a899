// Package effect implements the effect engine: typed state mutations
// (atoms) applied through a dispatch registry with transactional snapshot
// and rollback, timed scheduling, condition gating, and a reactive rule
// pass.
package effect

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jacoblum22/AID-D-sub000/internal/cond"
	"github.com/jacoblum22/AID-D-sub000/internal/dice"
	"github.com/jacoblum22/AID-D-sub000/internal/logging"
	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

// TransactionMode selects failure behavior for a batch.
type TransactionMode string

const (
	ModeStrict     TransactionMode = "strict"
	ModePartial    TransactionMode = "partial"
	ModeBestEffort TransactionMode = "best_effort"
)

// ParseMode validates a mode string, defaulting empty to strict.
func ParseMode(s string) (TransactionMode, error) {
	switch TransactionMode(s) {
	case ModeStrict, ModePartial, ModeBestEffort:
		return TransactionMode(s), nil
	case "":
		return ModeStrict, nil
	}
	return "", fmt.Errorf("unknown transaction mode %q", s)
}

// Handler applies one effect and returns its log entry. Handlers mutate
// via copy-replace on entities and must fill Before/After snapshots.
type Handler func(w *world.GameState, eff world.Effect, actor string, r *dice.Roller) (world.LogEntry, error)

// Validator pre-checks one effect before the batch starts mutating.
type Validator func(w *world.GameState, eff world.Effect) error

// Engine is the dispatch registry plus the reactive rule set.
type Engine struct {
	handlers   map[string]Handler
	validators map[string]Validator
	rules      []Rule
}

// NewEngine builds an engine with the built-in handlers and baseline
// reaction rules registered.
func NewEngine() *Engine {
	e := &Engine{
		handlers:   make(map[string]Handler),
		validators: make(map[string]Validator),
		rules:      baselineRules(),
	}
	e.registerBuiltins()
	return e
}

// RegisterHandler adds or replaces a handler (and optional validator) for
// an effect type. New types may be registered at runtime.
func (e *Engine) RegisterHandler(effectType string, h Handler, v Validator) {
	e.handlers[effectType] = h
	if v != nil {
		e.validators[effectType] = v
	}
}

// Result is the outcome of one Apply batch.
type Result struct {
	OK      bool                   `json:"ok"`
	Applied int                    `json:"applied"`
	Skipped int                    `json:"skipped"`
	Failed  int                    `json:"failed"`
	Logs    []world.LogEntry       `json:"logs"`
	Summary string                 `json:"summary"`
	Hint    map[string]interface{} `json:"narration_hint"`
	Err     error                  `json:"-"`
}

// snapshot captures the state an aborted strict batch restores.
type snapshot struct {
	entities       map[string]*world.Entity
	zones          map[string]*world.Zone
	clocks         map[string]*world.Clock
	sceneTags      map[string]string
	pendingEffects []world.PendingEffect
	tookZones      bool
	tookClocks     bool
	tookTags       bool
	tookPending    bool
}

// Apply runs one effect batch. Timed pending effects due this round are
// drained first. Mode governs validation failures and apply failures:
// strict aborts and rolls back, partial drops the failing atom, best
// effort swallows everything.
func (e *Engine) Apply(w *world.GameState, effects []world.Effect, actor string, transactional bool, mode TransactionMode, seed int64) Result {
	roller := dice.NewRoller(seed)
	round := 1
	if w.Scene != nil {
		round = w.Scene.Round
	}

	var logs []world.LogEntry

	// Drain timed effects that have come due, FIFO, regardless of queue
	// position. Each runs as its own nested single-effect transaction.
	logs = append(logs, e.drainPending(w, round)...)

	// Pre-validation.
	valid := effects[:0:0]
	for _, eff := range effects {
		v, ok := e.validators[eff.Type]
		if !ok {
			valid = append(valid, eff)
			continue
		}
		if err := v(w, eff); err != nil {
			if mode == ModeStrict {
				e.finalize(w, logs, actor, round)
				return Result{
					OK: false, Failed: 1, Logs: logs,
					Summary: fmt.Sprintf("validation failed: %v", err),
					Hint:    failHint(err),
					Err:     err,
				}
			}
			logging.EngineWarn("dropping invalid effect %s: %v", eff.String(), err)
			logs = append(logs, skipLog(eff, actor, round, seed, world.LogSkipped, err.Error()))
			continue
		}
		valid = append(valid, eff)
	}

	var snap *snapshot
	if transactional {
		snap = takeSnapshot(w, valid)
	}

	applied, skipped, failed := 0, 0, 0
	var primary []world.LogEntry
	timedIndex := 0
	for _, eff := range valid {
		// Condition gate.
		if eff.Condition != "" {
			met, err := e.conditionMet(w, eff)
			if err != nil {
				logging.EngineWarn("condition %q errored, treating as false: %v", eff.Condition, err)
			}
			if !met {
				skipped++
				primary = append(primary, skipLog(eff, actor, round, seed, world.LogConditionNotMet, ""))
				continue
			}
		}

		// Timed scheduling.
		if eff.AfterRounds > 0 {
			pe := world.PendingEffect{
				ID:           fmt.Sprintf("timed_%d_%d", seed, timedIndex),
				Effect:       stripTiming(eff),
				TriggerRound: round + eff.AfterRounds,
				ScheduledAt:  round,
				Actor:        actor,
				Seed:         seed,
			}
			timedIndex++
			if w.Scene != nil {
				w.Scene.PendingEffects = append(w.Scene.PendingEffects, pe)
			}
			entry := skipLog(eff, actor, round, seed, world.LogScheduled, "")
			entry.OK = true
			entry.Summary = fmt.Sprintf("scheduled %s for round %d", eff.String(), pe.TriggerRound)
			primary = append(primary, entry)
			applied++
			continue
		}

		entry, err := e.dispatch(w, eff, actor, roller)
		entry.Round = round
		entry.Seed = seed
		primary = append(primary, entry)
		if err != nil {
			failed++
			switch mode {
			case ModeStrict:
				if snap != nil {
					snap.restore(w)
				}
				logs = append(logs, primary...)
				e.finalize(w, logs, actor, round)
				return Result{
					OK: false, Failed: failed, Logs: logs,
					Summary: fmt.Sprintf("rolled back: %v", err),
					Hint:    failHint(err),
					Err:     err,
				}
			case ModePartial, ModeBestEffort:
				logging.EngineWarn("effect %s failed, continuing (%s): %v", eff.String(), mode, err)
				continue
			}
		}
		if entry.OK {
			applied++
		} else {
			skipped++
		}
	}

	// Reactive pass over successful primary entries, depth-capped.
	reactionLogs := e.react(w, primary, actor, roller, round, seed)
	applied += countApplied(reactionLogs)

	logs = append(logs, primary...)
	logs = append(logs, reactionLogs...)
	e.finalize(w, logs, actor, round)

	return Result{
		OK:      true,
		Applied: applied,
		Skipped: skipped,
		Failed:  failed,
		Logs:    logs,
		Summary: diffSummary(logs, actor, round),
		Hint:    aggregateHint(logs),
	}
}

// drainPending applies every pending effect whose trigger round has come,
// removing them from the queue.
func (e *Engine) drainPending(w *world.GameState, round int) []world.LogEntry {
	if w.Scene == nil || len(w.Scene.PendingEffects) == 0 {
		return nil
	}
	var due []world.PendingEffect
	var remaining []world.PendingEffect
	for _, pe := range w.Scene.PendingEffects {
		if pe.TriggerRound <= round {
			due = append(due, pe)
		} else {
			remaining = append(remaining, pe)
		}
	}
	if len(due) == 0 {
		return nil
	}
	w.Scene.PendingEffects = remaining

	var logs []world.LogEntry
	for _, pe := range due {
		logging.Engine("firing timed effect %s (scheduled round %d)", pe.ID, pe.ScheduledAt)

		// The world may have drifted since scheduling; re-validate, then
		// run as a nested single-effect transaction.
		if v, ok := e.validators[pe.Effect.Type]; ok {
			if err := v(w, pe.Effect); err != nil {
				logging.EngineWarn("timed effect %s no longer valid: %v", pe.ID, err)
				logs = append(logs, skipLog(pe.Effect, pe.Actor, round, pe.Seed, world.LogFailed, err.Error()))
				continue
			}
		}

		roller := dice.NewRoller(pe.Seed)
		snap := takeSnapshot(w, []world.Effect{pe.Effect})
		entry, err := e.dispatch(w, pe.Effect, pe.Actor, roller)
		entry.Round = round
		entry.Seed = pe.Seed
		if err != nil {
			snap.restore(w)
			logging.EngineWarn("timed effect %s failed, rolled back: %v", pe.ID, err)
		}
		logs = append(logs, entry)
	}
	return logs
}

// dispatch routes one effect to its handler. Unknown types are skipped
// gracefully with ok=true so forward-compatible content never breaks a
// transaction.
func (e *Engine) dispatch(w *world.GameState, eff world.Effect, actor string, r *dice.Roller) (world.LogEntry, error) {
	h, ok := e.handlers[eff.Type]
	if !ok {
		logging.Engine("skipping unknown effect type %q", eff.Type)
		entry := skipLog(eff, actor, 0, r.Seed(), world.LogSkipped, "")
		entry.OK = true
		entry.Summary = fmt.Sprintf("unknown effect type %q skipped", eff.Type)
		return entry, nil
	}
	entry, err := h(w, eff, actor, r)
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	entry.Actor = actor
	entry.EffectType = eff.Type
	if entry.Target == "" {
		entry.Target = eff.Target
	}
	if err != nil {
		entry.OK = false
		entry.Status = world.LogFailed
		entry.Error = err.Error()
		if entry.Summary == "" {
			entry.Summary = fmt.Sprintf("%s failed: %v", eff.String(), err)
		}
	}
	return entry, err
}

// conditionMet evaluates the effect's condition in the restricted context.
// Errors and unsafe constructs are treated as false.
func (e *Engine) conditionMet(w *world.GameState, eff world.Effect) (bool, error) {
	ctx := cond.Context{
		"effect": map[string]interface{}{
			"type":   eff.Type,
			"target": eff.Target,
			"cause":  eff.Cause,
		},
	}
	if w.Scene != nil {
		ctx["scene"] = map[string]interface{}{
			"round":      float64(w.Scene.Round),
			"turn_index": float64(w.Scene.TurnIndex),
		}
	}
	if target, ok := w.Entity(eff.Target); ok {
		ctx["target"] = entityCondView(target)
	}
	return cond.Eval(eff.Condition, ctx)
}

func entityCondView(e *world.Entity) map[string]interface{} {
	view := map[string]interface{}{
		"guard": float64(e.Guard),
		"tags":  map[string]interface{}{},
		"marks": map[string]interface{}{},
	}
	if e.HP != nil {
		view["hp"] = map[string]interface{}{"current": float64(e.HP.Current), "max": float64(e.HP.Max)}
	}
	if len(e.Tags) > 0 {
		tags := make(map[string]interface{}, len(e.Tags))
		for k, v := range e.Tags {
			tags[k] = v
		}
		view["tags"] = tags
	}
	if len(e.Marks) > 0 {
		marks := make(map[string]interface{}, len(e.Marks))
		for k, m := range e.Marks {
			marks[k] = map[string]interface{}{"value": float64(m.Value), "tag": m.Tag}
		}
		view["marks"] = marks
	}
	return view
}

// takeSnapshot deep-copies everything the batch may touch.
func takeSnapshot(w *world.GameState, effects []world.Effect) *snapshot {
	snap := &snapshot{entities: make(map[string]*world.Entity)}
	for _, eff := range effects {
		for _, id := range []string{eff.Target, eff.Source} {
			if id == "" {
				continue
			}
			if ent, ok := w.Entity(id); ok {
				if _, taken := snap.entities[id]; !taken {
					snap.entities[id] = ent.Clone()
				}
			}
		}
		switch eff.Type {
		case world.EffectPosition:
			// A move touches far more than the mover: destination
			// occupants gain visibility and known_by entries, and
			// discovery spreads across the zone map.
			for _, id := range w.EntitiesInZone(eff.To) {
				if ent, ok := w.Entity(id); ok {
					if _, taken := snap.entities[id]; !taken {
						snap.entities[id] = ent.Clone()
					}
				}
			}
			if !snap.tookZones {
				snap.zones = make(map[string]*world.Zone, len(w.Zones))
				for id, z := range w.Zones {
					snap.zones[id] = z.Clone()
				}
				snap.tookZones = true
			}
		case world.EffectClock:
			if !snap.tookClocks {
				snap.clocks = make(map[string]*world.Clock, len(w.Clocks))
				for id, c := range w.Clocks {
					snap.clocks[id] = c.Clone()
				}
				snap.tookClocks = true
			}
		case world.EffectTag:
			if !snap.tookTags && w.Scene != nil {
				snap.sceneTags = make(map[string]string, len(w.Scene.Tags))
				for k, v := range w.Scene.Tags {
					snap.sceneTags[k] = v
				}
				snap.tookTags = true
			}
		}
		if eff.AfterRounds > 0 && !snap.tookPending && w.Scene != nil {
			snap.pendingEffects = append([]world.PendingEffect(nil), w.Scene.PendingEffects...)
			snap.tookPending = true
		}
	}
	return snap
}

func (s *snapshot) restore(w *world.GameState) {
	for _, ent := range s.entities {
		w.ReplaceEntity(ent.Clone())
	}
	if s.tookZones {
		w.Zones = make(map[string]*world.Zone, len(s.zones))
		for id, z := range s.zones {
			w.Zones[id] = z.Clone()
		}
	}
	if s.tookClocks {
		w.Clocks = make(map[string]*world.Clock, len(s.clocks))
		for id, c := range s.clocks {
			w.Clocks[id] = c.Clone()
		}
	}
	if s.tookTags && w.Scene != nil {
		w.Scene.Tags = make(map[string]string, len(s.sceneTags))
		for k, v := range s.sceneTags {
			w.Scene.Tags[k] = v
		}
	}
	if s.tookPending && w.Scene != nil {
		w.Scene.PendingEffects = append([]world.PendingEffect(nil), s.pendingEffects...)
	}
	logging.Engine("transaction rolled back (%d entities restored)", len(s.entities))
}

// stripTiming clears after_rounds so the scheduled copy fires immediately
// when drained.
func stripTiming(eff world.Effect) world.Effect {
	eff.AfterRounds = 0
	return eff
}

func skipLog(eff world.Effect, actor string, round int, seed int64, status, errMsg string) world.LogEntry {
	summary := eff.String() + " " + status
	if errMsg != "" {
		summary = fmt.Sprintf("%s %s: %s", eff.String(), status, errMsg)
	}
	return world.LogEntry{
		Round:      round,
		Actor:      actor,
		Seed:       seed,
		EffectType: eff.Type,
		Target:     eff.Target,
		OK:         false,
		Status:     status,
		Error:      errMsg,
		Summary:    summary,
		Timestamp:  time.Now().UTC(),
	}
}

func countApplied(logs []world.LogEntry) int {
	n := 0
	for _, l := range logs {
		if l.OK && l.Status == world.LogApplied {
			n++
		}
	}
	return n
}

// finalize appends logs to the scene audit log and recomputes the diff
// summary. Logs are append-only.
func (e *Engine) finalize(w *world.GameState, logs []world.LogEntry, actor string, round int) {
	if w.Scene == nil || len(logs) == 0 {
		return
	}
	w.Scene.EffectLog = append(w.Scene.EffectLog, logs...)
	w.Scene.LastDiffSummary = diffSummary(logs, actor, round)
}

// diffSummary renders the human diff line, e.g.
// "[Round 3] [pc.arin] pc.arin.hp: 18 -> 13, npc.guard.marks: +fear".
func diffSummary(logs []world.LogEntry, actor string, round int) string {
	var parts []string
	for _, l := range logs {
		if !l.OK || l.Status != world.LogApplied || l.Summary == "" {
			continue
		}
		parts = append(parts, l.Summary)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("[Round %d] [%s] no changes", round, actor)
	}
	return fmt.Sprintf("[Round %d] [%s] %s", round, actor, strings.Join(parts, ", "))
}

// aggregateHint builds a narration hint summarizing the batch.
func aggregateHint(logs []world.LogEntry) map[string]interface{} {
	byType := map[string]int{}
	impact := 0
	for _, l := range logs {
		if l.OK && l.Status == world.LogApplied {
			byType[l.EffectType]++
			impact += l.ImpactLevel
		}
	}
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)

	tone := "neutral"
	switch {
	case impact >= 8:
		tone = "dramatic"
	case impact >= 3:
		tone = "tense"
	}
	return map[string]interface{}{
		"summary":       fmt.Sprintf("%d effects applied", countApplied(logs)),
		"effect_types":  types,
		"impact_total":  impact,
		"tone_tags":     []string{tone},
		"sentences_max": 3,
	}
}

func failHint(err error) map[string]interface{} {
	return map[string]interface{}{
		"summary":       fmt.Sprintf("nothing happens: %v", err),
		"tone_tags":     []string{"setback"},
		"sentences_max": 2,
	}
}
