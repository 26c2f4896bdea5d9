// Package contract turns raw generative output into a bounded turn delta.
//
// Model output is treated as untrusted input. Each field is checked on its
// own and falls back to a neutral default; only a missing narrative or a
// structurally wrong payload discards the response as a whole.
package contract

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/tatianab/questforge/internal/models"
)

const (
	MaxChoices       = 4
	MaxItems         = 5
	MaxVitalityDelta = 20
	MaxItemLabel     = 60
	MaxChoiceLabel   = 120
	MaxNarrative     = 3000
	MaxSceneText     = 40
)

// Kind tags how a Delta was produced.
type Kind int

const (
	Validated Kind = iota
	Fallback
)

func (k Kind) String() string {
	if k == Fallback {
		return "fallback"
	}
	return "validated"
}

// LocationUpdate is a proposed move to a (possibly new) location.
type LocationUpdate struct {
	Label    string
	Category string
	Connects bool
}

// Delta is the validated set of changes extracted from one response.
type Delta struct {
	Kind          Kind
	Narrative     string
	Choices       []string
	VitalityDelta int
	Gained        []string
	Lost          []string
	Terminal      bool
	Scene         models.SceneMetadata
	Location      *LocationUpdate
}

var defaultChoices = []string{
	"Look around carefully",
	"Press onward",
	"Rest for a moment",
}

// FallbackDelta is the pre-authored safe continuation.
func FallbackDelta() Delta {
	return Delta{
		Kind: Fallback,
		Narrative: "The air shimmers and the world seems to hold its breath. " +
			"When everything settles, you find yourself at a quiet crossroads " +
			"with three paths stretching out before you.",
		Choices: []string{
			"Take the left path",
			"Take the right path",
			"Wait and listen",
		},
		Scene: models.SceneMetadata{
			SceneType:        DefaultSceneType,
			Mood:             "mysterious",
			LocationName:     "The Crossroads",
			LocationCategory: "field",
			Weather:          "foggy",
		},
		Location: &LocationUpdate{
			Label:    "The Crossroads",
			Category: "field",
			Connects: true,
		},
	}
}

// ValidateTurn sanitizes raw generative output. It never panics and always
// returns either a Validated or a Fallback delta.
func ValidateTurn(raw string) (d Delta) {
	defer func() {
		if recover() != nil {
			d = FallbackDelta()
		}
	}()

	text := StripFences(raw)
	if !gjson.Valid(text) {
		return FallbackDelta()
	}
	root := gjson.Parse(text)
	if !root.IsObject() {
		return FallbackDelta()
	}

	narrative := root.Get("narrative")
	if narrative.Type != gjson.String || strings.TrimSpace(narrative.Str) == "" {
		return FallbackDelta()
	}

	choices, ok := labels(root.Get("choices"), MaxChoices, MaxChoiceLabel)
	if !ok {
		return FallbackDelta()
	}
	if len(choices) == 0 {
		choices = append([]string(nil), defaultChoices...)
	}
	gained, ok := labels(root.Get("gained"), MaxItems, MaxItemLabel)
	if !ok {
		return FallbackDelta()
	}
	lost, ok := labels(root.Get("lost"), MaxItems, MaxItemLabel)
	if !ok {
		return FallbackDelta()
	}
	delta, ok := vitalityDelta(root.Get("vitality_delta"))
	if !ok {
		return FallbackDelta()
	}

	return Delta{
		Kind:          Validated,
		Narrative:     models.Truncate(narrative.Str, MaxNarrative),
		Choices:       choices,
		VitalityDelta: delta,
		Gained:        gained,
		Lost:          lost,
		Terminal:      root.Get("terminal").Bool(),
		Scene:         scene(root.Get("scene_metadata")),
		Location:      location(root.Get("location_update")),
	}
}

// StripFences removes a surrounding markdown code fence, which models add
// even when asked for bare JSON.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// labels reads a list of short text labels. A missing or null field is an
// empty list; any other non-array type is a contract violation.
func labels(r gjson.Result, maxCount, maxLen int) ([]string, bool) {
	if !r.Exists() || r.Type == gjson.Null {
		return nil, true
	}
	if !r.IsArray() {
		return nil, false
	}
	var out []string
	for _, item := range r.Array() {
		if len(out) == maxCount {
			break
		}
		var v string
		switch item.Type {
		case gjson.String:
			v = item.Str
		case gjson.Number:
			v = item.Raw
		default:
			continue
		}
		if v = models.Truncate(v, maxLen); v != "" {
			out = append(out, v)
		}
	}
	return out, true
}

func vitalityDelta(r gjson.Result) (int, bool) {
	var v float64
	switch r.Type {
	case gjson.Null:
		return 0, true
	case gjson.Number:
		v = r.Num
	case gjson.String:
		n, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil || math.IsNaN(n) {
			return 0, false
		}
		v = n
	default:
		return 0, false
	}
	// Clamp before the integer conversion so huge values cannot overflow.
	return int(math.Max(-MaxVitalityDelta, math.Min(MaxVitalityDelta, v))), true
}

func scene(r gjson.Result) models.SceneMetadata {
	if !r.IsObject() {
		return models.SceneMetadata{
			SceneType:        DefaultSceneType,
			Mood:             DefaultMood,
			LocationCategory: DefaultCategory,
			Weather:          DefaultWeather,
		}
	}
	return models.SceneMetadata{
		SceneType:        oneOf(r.Get("scene_type").String(), SceneTypes, DefaultSceneType),
		Mood:             oneOf(r.Get("mood").String(), Moods, DefaultMood),
		LocationName:     text(r.Get("location_name"), MaxSceneText),
		LocationCategory: Category(r.Get("location_category").String()),
		NPCName:          text(r.Get("npc_name"), MaxSceneText),
		NPCType:          oneOf(r.Get("npc_type").String(), NPCTypes, ""),
		ItemFound:        text(r.Get("item_found"), MaxItemLabel),
		Weather:          oneOf(r.Get("weather").String(), Weather, DefaultWeather),
	}
}

func location(r gjson.Result) *LocationUpdate {
	if !r.IsObject() {
		return nil
	}
	label := text(r.Get("label"), models.MaxNodeLabel)
	if label == "" {
		return nil
	}
	connects := true
	if c := r.Get("connects_to_current"); c.Exists() && c.Type != gjson.Null {
		connects = c.Bool()
	}
	return &LocationUpdate{
		Label:    label,
		Category: Category(r.Get("category").String()),
		Connects: connects,
	}
}

// text reads an optional free-text scalar; non-strings are ignored.
func text(r gjson.Result, n int) string {
	if r.Type != gjson.String {
		return ""
	}
	return models.Truncate(r.Str, n)
}
