package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultModel = "gemini-2.5-flash"

// Gemini generates turns with a Gemini model configured for JSON output.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGemini(ctx context.Context, apiKey, modelName, systemPrompt string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if modelName == "" {
		modelName = DefaultModel
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.9)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = turnSchema
	if systemPrompt != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt))
	}

	return &Gemini{
		client: client,
		model:  model,
	}, nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

func (g *Gemini) Generate(ctx context.Context, prompt string, _ Mode) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no content returned from Gemini")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String(), nil
}

var (
	stringList = &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}}

	turnSchema = &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"narrative":      {Type: genai.TypeString},
			"choices":        stringList,
			"vitality_delta": {Type: genai.TypeInteger},
			"gained":         stringList,
			"lost":           stringList,
			"terminal":       {Type: genai.TypeBoolean},
			"scene_metadata": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"scene_type":        {Type: genai.TypeString},
					"mood":              {Type: genai.TypeString},
					"location_name":     {Type: genai.TypeString},
					"location_category": {Type: genai.TypeString},
					"npc_name":          {Type: genai.TypeString, Nullable: true},
					"npc_type":          {Type: genai.TypeString, Nullable: true},
					"item_found":        {Type: genai.TypeString, Nullable: true},
					"weather":           {Type: genai.TypeString},
				},
			},
			"location_update": {
				Type:     genai.TypeObject,
				Nullable: true,
				Properties: map[string]*genai.Schema{
					"label":               {Type: genai.TypeString},
					"category":            {Type: genai.TypeString},
					"connects_to_current": {Type: genai.TypeBoolean},
				},
			},
		},
		Required: []string{"narrative", "choices", "vitality_delta", "terminal"},
	}
)
