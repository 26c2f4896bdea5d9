package engine

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"

	"github.com/tatianab/questforge/internal/config"
	"github.com/tatianab/questforge/internal/models"
)

//go:embed prompts/system.txt
var systemPrompt string

//go:embed prompts/opening.txt
var openingPrompt string

//go:embed prompts/turn.txt
var turnPrompt string

var (
	openingTmpl = template.Must(template.New("opening").Parse(openingPrompt))
	turnTmpl    = template.Must(template.New("turn").Funcs(template.FuncMap{"join": strings.Join}).Parse(turnPrompt))
)

// SystemPrompt is the standing instruction given to the generative backend.
func SystemPrompt() string {
	return systemPrompt
}

type openingData struct {
	Scenario models.ScenarioKind
	Title    string
	Theme    string
	Owner    string
	Location string
	Language string
}

type turnData struct {
	Scenario    models.ScenarioKind
	Title       string
	Theme       string
	Owner       string
	Turn        int
	MaxTurns    int
	Vitality    int
	Possessions []string
	Location    string
	History     string
	Action      string
	NearEnd     bool
	Language    string
}

func renderOpening(s *models.Session, sc config.Scenario) (string, error) {
	var buf bytes.Buffer
	err := openingTmpl.Execute(&buf, openingData{
		Scenario: s.Scenario,
		Title:    sc.Title,
		Theme:    sc.Theme,
		Owner:    s.OwnerName,
		Location: sc.StartLocation,
		Language: s.Language,
	})
	return buf.String(), err
}

func renderTurn(s *models.Session, sc config.Scenario, maxTurns int, action string) (string, error) {
	location := ""
	if n := s.CurrentNode(); n != nil {
		location = n.Label
	}
	var buf bytes.Buffer
	err := turnTmpl.Execute(&buf, turnData{
		Scenario:    s.Scenario,
		Title:       sc.Title,
		Theme:       sc.Theme,
		Owner:       s.OwnerName,
		Turn:        s.TurnIndex + 1,
		MaxTurns:    maxTurns,
		Vitality:    s.Vitality,
		Possessions: s.Possessions,
		Location:    location,
		History:     Compress(s.Log),
		Action:      action,
		NearEnd:     s.TurnIndex+1 >= maxTurns-2,
		Language:    s.Language,
	})
	return buf.String(), err
}
