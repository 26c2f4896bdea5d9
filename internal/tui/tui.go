package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tatianab/questforge/internal/config"
	"github.com/tatianab/questforge/internal/models"
)

// Game is the session API the terminal client plays against.
type Game interface {
	StartSession(ctx context.Context, owner string, kind models.ScenarioKind, language string) (*models.PublicState, error)
	ProcessAction(ctx context.Context, id, action string) (*models.PublicState, error)
}

type sessionState int

const (
	stateInputName sessionState = iota
	stateInputScenario
	stateLoading
	statePlaying
	stateOver
	stateError
)

type model struct {
	state     sessionState
	game      Game
	rules     *config.Rules
	session   *models.PublicState
	owner     string
	textInput textinput.Model
	viewport  viewport.Model
	err       error
	gameLog   string
	width     int
	height    int
}

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	gameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87AFD7"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	stateStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)

	dangerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")).
			Bold(true)
)

func NewModel(game Game, rules *config.Rules) model {
	if rules == nil {
		rules = config.DefaultRules()
	}
	ti := textinput.New()
	ti.Placeholder = "Your name..."
	ti.Focus()
	ti.CharLimit = 50
	ti.Width = 40

	return model{
		state:     stateInputName,
		game:      game,
		rules:     rules,
		textInput: ti,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

type sessionStartedMsg struct {
	state *models.PublicState
}

type turnProcessedMsg struct {
	state *models.PublicState
	err   error
}

type errMsg struct {
	err error
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			input := strings.TrimSpace(m.textInput.Value())
			m.textInput.Reset()

			switch input {
			case "/quit":
				return m, tea.Quit
			case "/restart":
				return m.restart(), nil
			}

			switch m.state {
			case stateInputName:
				if input == "" {
					return m, nil
				}
				m.owner = input
				m.state = stateInputScenario
				m.textInput.Placeholder = "Pick a number..."
				return m, nil

			case stateInputScenario:
				kind, ok := pickScenario(input)
				if !ok {
					return m, nil
				}
				m.state = stateLoading
				return m, m.startSession(kind)

			case statePlaying:
				action := resolveAction(input, m.session.Choices)
				if action == "" {
					return m, nil
				}
				styledAction := userStyle.Width(m.logWidth()).Render("> " + action)
				m.gameLog += "\n\n" + styledAction + "\n\n"
				m.viewport.SetContent(m.gameLog)
				m.viewport.GotoBottom()
				return m, m.processTurn(action)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = m.logWidth()
		m.viewport.Height = msg.Height - 6
		if m.state == statePlaying || m.state == stateOver {
			m.viewport.SetContent(m.gameLog)
		}

	case sessionStartedMsg:
		m.session = msg.state
		m.state = statePlaying
		sc, _ := m.rules.Scenario(m.session.Scenario)
		header := gameStyle.Bold(true).Render(sc.Title)
		m.gameLog = header + "\n\n" + m.renderTurn()
		if m.viewport.Width == 0 {
			m.viewport = viewport.New(m.logWidth(), m.height-6)
		}
		m.viewport.SetContent(m.gameLog)
		m.textInput.Placeholder = "What do you do?"
		return m, nil

	case turnProcessedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = stateError
			return m, nil
		}
		m.session = msg.state
		m.gameLog += m.renderTurn()
		if m.session.Status != models.StatusActive {
			m.state = stateOver
			m.gameLog += "\n\n" + m.renderEnding()
			m.textInput.Placeholder = "/restart or /quit"
		}
		m.viewport.SetContent(m.gameLog)
		m.viewport.GotoBottom()
		return m, nil

	case errMsg:
		m.err = msg.err
		m.state = stateError
		return m, nil
	}

	if m.state != stateLoading && m.state != stateError {
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m model) restart() model {
	m.state = stateInputName
	m.gameLog = ""
	m.session = nil
	m.owner = ""
	m.textInput.Placeholder = "Your name..."
	return m
}

func (m model) logWidth() int {
	return int(float64(m.width) * 0.75)
}

func (m model) View() string {
	var s string

	switch m.state {
	case stateInputName:
		s = fmt.Sprintf(
			"Welcome to QuestForge!\n\n%s\n\n%s",
			"What is your hero called?",
			m.textInput.View(),
		)

	case stateInputScenario:
		var b strings.Builder
		fmt.Fprintf(&b, "Choose an adventure, %s:\n\n", m.owner)
		for i, kind := range models.Scenarios {
			sc, _ := m.rules.Scenario(kind)
			fmt.Fprintf(&b, "  %d. %s (%s)\n", i+1, sc.Title, kind)
		}
		s = b.String() + "\n" + m.textInput.View()

	case stateLoading:
		s = "\n  Forging your adventure... please wait.\n"

	case statePlaying, stateOver:
		mainView := lipgloss.JoinHorizontal(lipgloss.Top,
			m.viewport.View(),
			m.renderState(),
		)
		help := helpStyle.Render("Commands: /restart, /quit, a choice number, or type what you want to do.")
		s = lipgloss.JoinVertical(lipgloss.Left,
			mainView,
			"\n"+m.textInput.View(),
			"\n"+help,
		)

	case stateError:
		s = fmt.Sprintf("\n  Error: %v\n\nPress Esc to quit.", m.err)
	}

	return "\n" + s + "\n"
}

func (m model) renderTurn() string {
	out := gameStyle.Width(m.logWidth()).Render(m.session.Narrative)
	if len(m.session.Choices) > 0 {
		out += "\n\n"
		for i, c := range m.session.Choices {
			out += choiceStyle.Render(fmt.Sprintf("  %d. %s", i+1, c)) + "\n"
		}
	}
	return out
}

func (m model) renderEnding() string {
	if m.session.Status == models.StatusDefeated {
		return dangerStyle.Render("Your adventure ends here.") + fmt.Sprintf(" Final score: %d", m.session.Score)
	}
	return titleStyle.Render("The End.") + fmt.Sprintf(" Final score: %d", m.session.Score)
}

func (m model) renderState() string {
	if m.session == nil {
		return ""
	}
	st := m.session

	location := titleStyle.Render("LOCATION") + "\n"
	for _, n := range st.Nodes {
		if n.ID == st.CurrentNodeID {
			location += n.Label + "\n"
		}
	}
	location += fmt.Sprintf("%d places discovered\n\n", len(st.Nodes))

	statsTitle := titleStyle.Render("STATS") + "\n"
	health := fmt.Sprintf("Health: %d/100", st.Vitality)
	if st.Vitality <= 30 {
		health = dangerStyle.Render(health)
	}
	stats := fmt.Sprintf("%s\nTurn: %d/%d\nScore: %d\n\n", health, st.TurnIndex, m.rules.MaxTurns, st.Score)

	invTitle := titleStyle.Render("INVENTORY") + "\n"
	inventory := ""
	if len(st.Possessions) == 0 {
		inventory = "(empty)\n"
	}
	for _, item := range st.Possessions {
		inventory += "- " + item + "\n"
	}

	milestones := ""
	if len(st.Milestones) > 0 {
		milestones = "\n" + titleStyle.Render("MILESTONES") + "\n"
		for _, ms := range st.Milestones {
			milestones += "* " + strings.ReplaceAll(string(ms), "_", " ") + "\n"
		}
	}

	content := location + statsTitle + stats + invTitle + inventory + milestones
	stateWidth := int(float64(m.width) * 0.23)
	return stateStyle.Width(stateWidth).Height(m.viewport.Height).Render(content)
}

// pickScenario accepts a 1-based menu number or a scenario name.
func pickScenario(input string) (models.ScenarioKind, bool) {
	if n, err := strconv.Atoi(input); err == nil {
		if n >= 1 && n <= len(models.Scenarios) {
			return models.Scenarios[n-1], true
		}
		return "", false
	}
	kind := models.ScenarioKind(strings.ToLower(input))
	return kind, kind.Valid()
}

// resolveAction turns a choice number into the choice text; anything else is
// taken as a free-form action.
func resolveAction(input string, choices []string) string {
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(choices) {
		return choices[n-1]
	}
	return input
}

func (m model) startSession(kind models.ScenarioKind) tea.Cmd {
	return func() tea.Msg {
		st, err := m.game.StartSession(context.Background(), m.owner, kind, "")
		if err != nil {
			return errMsg{err}
		}
		return sessionStartedMsg{st}
	}
}

func (m model) processTurn(action string) tea.Cmd {
	id := m.session.ID
	return func() tea.Msg {
		st, err := m.game.ProcessAction(context.Background(), id, action)
		return turnProcessedMsg{st, err}
	}
}

func Run(game Game, rules *config.Rules) error {
	p := tea.NewProgram(NewModel(game, rules), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
