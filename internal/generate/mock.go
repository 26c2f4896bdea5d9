package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
)

// Mock is a deterministic offline Generator used for local play and demos.
// The response is derived from a hash of the prompt, so the same prompt
// always yields the same turn.
type Mock struct{}

func NewMock() *Mock {
	return &Mock{}
}

var _ Generator = (*Mock)(nil)

type mockPlace struct {
	label    string
	category string
	weather  string
}

var mockPlaces = []mockPlace{
	{"Mossy Clearing", "forest", "clear"},
	{"Echoing Cavern", "cave", "foggy"},
	{"Old Market", "town", "clear"},
	{"Broken Watchtower", "ruins", "windy"},
	{"Quiet Shore", "shore", "rainy"},
	{"Lantern Hall", "house", "night"},
}

var mockItems = []string{"lantern", "rope", "silver key", "bread", "compass"}

var mockMoods = []string{"mysterious", "calm", "tense", "exciting", "cheerful"}

func (m *Mock) Generate(ctx context.Context, prompt string, mode Mode) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	h := fnv.New32a()
	h.Write([]byte(prompt))
	seed := int(h.Sum32() & 0x7fffffff)

	place := mockPlaces[seed%len(mockPlaces)]
	payload := map[string]any{
		"narrative": fmt.Sprintf("You make your way to the %s. Something here feels important, and the path ahead splits in new directions.", place.label),
		"choices":   []string{"Search the area", "Move on carefully", "Call out"},
		"terminal":  false,
		"scene_metadata": map[string]any{
			"scene_type":        "exploration",
			"mood":              mockMoods[seed%len(mockMoods)],
			"location_name":     place.label,
			"location_category": place.category,
			"weather":           place.weather,
		},
		"location_update": map[string]any{
			"label":               place.label,
			"category":            place.category,
			"connects_to_current": true,
		},
	}

	switch {
	case mode == ModeOpening:
		payload["vitality_delta"] = 0
		payload["gained"] = []string{mockItems[seed%len(mockItems)]}
	case seed%4 == 0:
		payload["vitality_delta"] = -10
		payload["narrative"] = fmt.Sprintf("A loose stone gives way near the %s and you take a nasty tumble.", place.label)
	case seed%5 == 0:
		payload["vitality_delta"] = 5
		payload["gained"] = []string{mockItems[seed%len(mockItems)]}
	default:
		payload["vitality_delta"] = 0
	}

	out, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
