package contract

import (
	"slices"
	"strings"
)

// Closed vocabularies for the categorical scene fields. The first entry of
// each list is not special; defaults are declared separately.
var (
	SceneTypes = []string{"exploration", "combat", "discovery", "puzzle", "dialogue", "escape"}
	Moods      = []string{"tense", "cheerful", "scary", "mysterious", "victorious", "calm", "exciting", "neutral"}
	Categories = []string{
		"forest", "cave", "town", "castle", "dungeon", "ship", "station", "lab",
		"house", "ruins", "field", "mountain", "shore", "portal", "location",
	}
	NPCTypes = []string{"friend", "villain", "creature", "merchant", "guide"}
	Weather  = []string{"clear", "foggy", "rainy", "stormy", "snowy", "windy", "night"}
)

const (
	DefaultSceneType = "exploration"
	DefaultMood      = "neutral"
	DefaultCategory  = "location"
	DefaultWeather   = "clear"
)

// normalize maps "Bike Trail" and "bike_trail" to "bike-trail".
func normalize(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	return strings.NewReplacer(" ", "-", "_", "-").Replace(v)
}

// oneOf returns v when it belongs to allowed, otherwise def.
func oneOf(v string, allowed []string, def string) string {
	n := normalize(v)
	if slices.Contains(allowed, n) {
		return n
	}
	return def
}

// Category reports the canonical location category for v.
func Category(v string) string {
	return oneOf(v, Categories, DefaultCategory)
}
