package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/tatianab/questforge/internal/app"
	"github.com/tatianab/questforge/internal/config"
	"github.com/tatianab/questforge/internal/models"
)

func main() {
	maxTurns := flag.Int("turns", 10, "maximum number of player turns")
	scenario := flag.String("scenario", "fantasy", "scenario kind")
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	kind := models.ScenarioKind(*scenario)
	if !kind.Valid() {
		log.Fatalf("Unknown scenario %q", *scenario)
	}

	// The game master is the real orchestrator.
	a, err := app.Build(ctx, cfg, log.Default())
	if err != nil {
		log.Fatalf("Failed to build game: %v", err)
	}
	defer a.Close()

	// The player is a separate model, or the first choice when offline.
	var player *genai.GenerativeModel
	if cfg.GeminiAPIKey != "" {
		playerClient, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
		if err != nil {
			log.Fatalf("Failed to create player client: %v", err)
		}
		defer playerClient.Close()
		player = playerClient.GenerativeModel(cfg.Model)
	}

	fmt.Println("--- Starting session ---")
	st, err := a.Engine.StartSession(ctx, "Simulated Player", kind, "")
	if err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}
	printState(st)

	for turn := 1; turn <= *maxTurns && st.Status == models.StatusActive; turn++ {
		fmt.Printf("--- Turn %d ---\n", turn)

		action := getPlayerAction(ctx, player, st)
		fmt.Printf("Player Action: %s\n", action)

		st, err = a.Engine.ProcessAction(ctx, st.ID, action)
		if err != nil {
			fmt.Printf("Error processing turn: %v\n", err)
			break
		}
		printState(st)
	}

	switch st.Status {
	case models.StatusDefeated:
		fmt.Println("Game Ended: Player was defeated!")
	case models.StatusCompleted:
		fmt.Println("Game Ended: Adventure complete!")
	}
	fmt.Printf("Final score: %d, milestones: %v\n", st.Score, st.Milestones)
}

func printState(st *models.PublicState) {
	fmt.Printf("GM: %s\n", st.Narrative)
	for i, c := range st.Choices {
		fmt.Printf("  %d. %s\n", i+1, c)
	}
	fmt.Printf("Stats: Health=%d, Turn=%d, Score=%d, Location=%s, Inventory=%v\n\n",
		st.Vitality, st.TurnIndex, st.Score, st.Scene.LocationName, st.Possessions)
}

func getPlayerAction(ctx context.Context, model *genai.GenerativeModel, st *models.PublicState) string {
	fallback := "look around"
	if len(st.Choices) > 0 {
		fallback = st.Choices[0]
	}
	if model == nil {
		return fallback
	}

	prompt := fmt.Sprintf(`You are playing a text-based adventure game.
Story so far: %s
Current Location: %s
Health: %d/100
Inventory: %v
Suggested choices: %s

What is your next action? Pick a suggestion or be creative within the story. Return ONLY the action string, no extra commentary.`,
		st.Narrative,
		st.Scene.LocationName,
		st.Vitality,
		st.Possessions,
		strings.Join(st.Choices, "; "),
	)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return fallback
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return fallback
	}
	action := strings.TrimSpace(fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]))
	if action == "" {
		return fallback
	}
	return action
}
