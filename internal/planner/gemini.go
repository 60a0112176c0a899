package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/jacoblum22/AID-D-sub000/internal/logging"
	"github.com/jacoblum22/AID-D-sub000/internal/tools"
	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

// geminiTimeout bounds the only blocking edge in a turn.
const geminiTimeout = 30 * time.Second

// GeminiPlanner asks a Gemini model for an action plan in JSON. Any
// failure, or any plan that does not survive validation, falls back to the
// keyword planner so a turn always produces something.
type GeminiPlanner struct {
	client   *genai.Client
	model    string
	catalog  *tools.Catalog
	fallback *KeywordPlanner
}

// NewGeminiPlanner dials the Gemini API.
func NewGeminiPlanner(ctx context.Context, apiKey, model string, catalog *tools.Catalog) (*GeminiPlanner, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini planner: API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if catalog == nil {
		catalog = tools.DefaultCatalog()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("gemini planner: %w", err)
	}
	return &GeminiPlanner{
		client:   client,
		model:    model,
		catalog:  catalog,
		fallback: NewKeywordPlanner(catalog),
	}, nil
}

// plannedAction is the JSON shape the model is asked to produce.
type plannedAction struct {
	Tool string                 `json:"tool"`
	Args map[string]interface{} `json:"args"`
}

type plannedResponse struct {
	Actions   []plannedAction `json:"actions"`
	Rationale string          `json:"rationale"`
}

// Plan asks the model, validates its output against the catalog, and
// falls back to keywords on any trouble.
func (p *GeminiPlanner) Plan(w *world.GameState, utt tools.Utterance) (tools.Plan, error) {
	ctx, cancel := context.WithTimeout(context.Background(), geminiTimeout)
	defer cancel()

	prompt := p.buildPrompt(w, utt)
	resp, err := p.client.Models.GenerateContent(ctx, p.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			Temperature:      genai.Ptr(float32(0.2)),
		})
	if err != nil {
		logging.ToolsWarn("gemini plan failed, using keyword fallback: %v", err)
		return p.fallback.Plan(w, utt)
	}

	var parsed plannedResponse
	if err := json.Unmarshal([]byte(resp.Text()), &parsed); err != nil {
		logging.ToolsWarn("gemini plan unparseable, using keyword fallback: %v", err)
		return p.fallback.Plan(w, utt)
	}
	if len(parsed.Actions) == 0 {
		return p.fallback.Plan(w, utt)
	}

	plan := tools.Plan{
		IsCompound: len(parsed.Actions) > 1,
		Rationale:  parsed.Rationale,
	}
	for _, a := range parsed.Actions {
		if _, ok := p.catalog.Get(a.Tool); !ok {
			logging.ToolsWarn("gemini planned unknown tool %q, using keyword fallback", a.Tool)
			return p.fallback.Plan(w, utt)
		}
		if a.Args == nil {
			a.Args = map[string]interface{}{}
		}
		if _, has := a.Args["actor"]; !has {
			a.Args["actor"] = w.EffectiveActor(utt.ActorID)
		}
		plan.Steps = append(plan.Steps, tools.Action{Tool: a.Tool, Args: a.Args})
	}
	return plan, nil
}

// buildPrompt describes the catalog's applicable candidates and the scene
// so the model plans against real affordances, not its imagination.
func (p *GeminiPlanner) buildPrompt(w *world.GameState, utt tools.Utterance) string {
	var b strings.Builder
	b.WriteString("You are the action planner for a tabletop RPG engine.\n")
	b.WriteString("Translate the player's utterance into a JSON object of the form\n")
	b.WriteString(`{"actions":[{"tool":"...","args":{...}}],"rationale":"..."}` + "\n\n")
	b.WriteString("Available tools and suggested args:\n")
	for _, cand := range p.catalog.Candidates(w, utt) {
		hint, _ := json.Marshal(cand.ArgsHint)
		fmt.Fprintf(&b, "- %s: %s (args hint: %s)\n", cand.ID, cand.Description, hint)
	}

	actorID := w.EffectiveActor(utt.ActorID)
	if actor, ok := w.Entity(actorID); ok {
		fmt.Fprintf(&b, "\nActor: %s in zone %s.\n", actorID, actor.CurrentZone)
		if zone, ok := w.Zone(actor.CurrentZone); ok {
			fmt.Fprintf(&b, "Exits: %s.\n", strings.Join(zone.AdjacentZones(), ", "))
		}
	}
	fmt.Fprintf(&b, "\nUtterance: %q\n", utt.Text)
	b.WriteString("If the intent is ambiguous, plan a single ask_clarifying action.\n")
	return b.String()
}
