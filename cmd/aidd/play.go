package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jacoblum22/AID-D-sub000/internal/logging"
	"github.com/jacoblum22/AID-D-sub000/internal/persist"
	"github.com/jacoblum22/AID-D-sub000/internal/pipeline"
	"github.com/jacoblum22/AID-D-sub000/internal/tools"
)

func newPlayCmd() *cobra.Command {
	var loadName string

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Run the interactive demo loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, cleanup, err := buildRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if loadName != "" {
				w, man, err := persist.LoadWorld(cfg.SavePath(loadName))
				if err != nil {
					return err
				}
				rt.World = w
				fmt.Printf("Loaded save %s (round %d).\n", man.ID, man.Round)
			} else {
				rt.World = demoWorld()
			}

			return playLoop(rt)
		},
	}
	cmd.Flags().StringVar(&loadName, "load", "", "save name to resume from")
	return cmd
}

// playLoop reads utterances until quit. ":save <name>" checkpoints
// mid-session; everything else goes through the pipeline.
func playLoop(rt *pipeline.Runtime) error {
	if rt.World.Scene != nil && rt.World.Scene.Objective != "" {
		fmt.Printf("Objective: %s\n", rt.World.Scene.Objective)
	}
	fmt.Println(`Type what you do. "quit" ends the session, ":save <name>" checkpoints.`)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "quit" || line == "exit":
			return nil
		case strings.HasPrefix(line, ":save "):
			name := strings.TrimSpace(strings.TrimPrefix(line, ":save "))
			if err := checkpoint(rt, name); err != nil {
				fmt.Printf("save failed: %v\n", err)
			} else {
				fmt.Printf("saved as %q\n", name)
			}
			continue
		}

		result := rt.RunTurn(tools.Utterance{Text: line, ActorID: rt.World.CurrentActor})
		printTurn(result)
	}
}

// checkpoint saves the world and archives the scene's effect log.
func checkpoint(rt *pipeline.Runtime, name string) error {
	dir := cfg.SavePath(name)
	if _, err := persist.SaveWorld(dir, rt.World); err != nil {
		return err
	}
	archive, err := persist.OpenAudit(filepath.Join(dir, "audit.db"))
	if err != nil {
		logging.PersistWarn("audit archive unavailable: %v", err)
		return nil
	}
	defer archive.Close()
	if rt.World.Scene != nil {
		return archive.Append(rt.World.Scene.EffectLog)
	}
	return nil
}

func printTurn(result pipeline.TurnResult) {
	for _, step := range result.Steps {
		if summary, ok := step.NarrationHint["summary"].(string); ok && summary != "" {
			fmt.Println(summary)
		}
		if consequence, ok := step.NarrationHint["consequence"].(string); ok && consequence != "" {
			fmt.Println(consequence)
		}
		if question, ok := step.Facts["question"].(string); ok && question != "" {
			fmt.Println(question)
			printOptions(step.Facts["options"])
		}
		if !step.OK {
			if reason, ok := step.Facts["reason"].(string); ok {
				fmt.Printf("(%s)\n", reason)
			}
		}
	}
	if result.Narration != "" {
		fmt.Println(result.Narration)
	}
}

func printOptions(v interface{}) {
	options, ok := v.([]map[string]interface{})
	if !ok {
		return
	}
	for _, o := range options {
		fmt.Printf("  [%v] %v\n", o["id"], o["label"])
	}
}
