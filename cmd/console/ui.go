package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/jwebster45206/persona-engine/pkg/chat"
	"github.com/jwebster45206/persona-engine/pkg/reply"
	"github.com/muesli/reflow/wordwrap"
)

const PlaceHolderText = "Type your message here..."

// clipboardWriteAll is swapped out in tests.
var clipboardWriteAll = clipboard.WriteAll

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	client       *http.Client
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	err          error
	loading      bool
	status       string

	conversationID uuid.UUID
	mode           string
	personaName    string
	turns          []chat.Turn
	pending        string
	showInner      bool

	// Mode selection state
	showModeModal bool
	modes         []string
	selectedMode  int

	// Quit confirmation state
	showQuitModal bool

	// Progress bar state
	progressTick int
}

type turnResponseMsg struct {
	input    string
	response *chat.TurnResponse
	err      error
}

type historyMsg struct {
	history *chat.HistoryResponse
	err     error
}

type progressTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	personaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	innerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client, modes []string) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 2000
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	return ConsoleUI{
		config:        cfg,
		client:        client,
		textarea:      ta,
		chatViewport:  chatVp,
		metaViewport:  viewport.New(20, 20),
		modes:         modes,
		showModeModal: len(modes) > 1,
		mode:          firstOr(modes, "default"),
		showInner:     true,
	}
}

func firstOr(s []string, def string) string {
	if len(s) == 0 {
		return def
	}
	return s[0]
}

func (m ConsoleUI) Init() tea.Cmd {
	return textarea.Blink
}

// layout sizes the panels for the current window.
func (m *ConsoleUI) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	chatWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - chatWidth - 6
	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatWidth - 4)
	m.ready = true
	m.refresh()
}

func (m *ConsoleUI) refresh() {
	m.writeChatContent()
	m.metaViewport.SetContent(m.writeMetadata())
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}
	if m.showModeModal {
		return m.updateModeModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}

			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			m.textarea.Reset()

			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}

			m.loading = true
			m.err = nil
			m.status = ""
			m.pending = input
			m.progressTick = 0
			m.writeChatContent()

			return m, tea.Batch(m.sendTurn(input), progressTick())
		}

	case turnResponseMsg:
		m.loading = false
		m.pending = ""
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.conversationID = msg.response.ConversationID
			m.turns = append(m.turns, chat.Turn{
				MessageID: msg.response.MessageID,
				UserInput: msg.input,
				Response:  msg.response.Reply,
				CreatedAt: time.Now(),
			})
		}
		m.refresh()
		return m, nil

	case historyMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.turns = msg.history.Turns
			if c := msg.history.Conversation; c != nil {
				m.mode = c.Mode
				m.personaName = c.PersonaName
			}
			m.status = fmt.Sprintf("Reloaded %d turns", len(m.turns))
		}
		m.refresh()
		return m, nil

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeChatContent()
			return m, progressTick()
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

// writeChatContent renders all turns for the current viewport width.
func (m *ConsoleUI) writeChatContent() {
	width := max(m.chatViewport.Width-6, 20)

	var content strings.Builder
	content.WriteString(titleStyle.Render("PERSONA ENGINE") + "\n\n")
	content.WriteString("Talk to the persona below. Type /help for commands.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")

	speaker := m.speaker()
	for _, turn := range m.turns {
		content.WriteString(formatUserInput(turn.UserInput, width) + "\n\n")
		content.WriteString(formatReply(speaker, turn.Response, width, m.showInner) + "\n\n")
	}

	if m.pending != "" {
		content.WriteString(formatUserInput(m.pending, width) + "\n\n")
	}
	if m.loading {
		content.WriteString(m.renderProgressBar() + "\n")
	}
	if m.err != nil {
		content.WriteString(errorStyle.Render("Error: "+m.err.Error()) + "\n\n")
	}
	if m.status != "" {
		content.WriteString(statusStyle.Render(m.status) + "\n\n")
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

func (m ConsoleUI) speaker() string {
	if m.personaName != "" {
		return m.personaName
	}
	return displayMode(m.mode)
}

func displayMode(mode string) string {
	words := strings.Fields(strings.ReplaceAll(mode, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	if len(words) == 0 {
		return "Persona"
	}
	return strings.Join(words, " ")
}

func formatUserInput(input string, width int) string {
	return userStyle.Render("You: ") + wordwrap.String(input, max(width-5, 10))
}

// formatReply renders the spoken response, optionally preceded by the
// persona's inner life.
func formatReply(speaker string, r reply.Reply, width int, showInner bool) string {
	var b strings.Builder
	if showInner {
		inner := innerLines(r)
		for _, line := range inner {
			b.WriteString(innerStyle.Render(wordwrap.String(line, width)) + "\n")
		}
		if len(inner) > 0 {
			b.WriteString("\n")
		}
	}
	prefix := speaker + ": "
	b.WriteString(speakerStyle.Render(prefix))
	b.WriteString(personaStyle.Render(wordwrap.String(r.Response, max(width-len(prefix), 10))))
	if r.HasQuest() {
		b.WriteString("\n" + statusStyle.Render(fmt.Sprintf("Quest: %s (%s, %s)", r.QuestTitle, r.QuestTone, r.QuestDifficulty)))
	}
	return b.String()
}

func innerLines(r reply.Reply) []string {
	var lines []string
	for _, s := range r.Sensations {
		lines = append(lines, "~ "+s)
	}
	for _, t := range r.Thoughts {
		lines = append(lines, "… "+t)
	}
	if r.Memories != "" {
		lines = append(lines, "memory: "+r.Memories)
	}
	if r.SelfReflection != "" {
		lines = append(lines, "reflection: "+r.SelfReflection)
	}
	return lines
}

func (m ConsoleUI) writeMetadata() string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("CONVERSATION") + "\n\n")

	content.WriteString("ID:\n")
	if m.conversationID == uuid.Nil {
		content.WriteString("(new)\n\n")
	} else {
		content.WriteString(m.conversationID.String()[:8] + "...\n\n")
	}

	content.WriteString("Mode:\n" + m.mode + "\n\n")
	content.WriteString(fmt.Sprintf("Turns:\n%d total\n\n", len(m.turns)))

	if n := len(m.turns); n > 0 {
		if last := m.turns[n-1].Response; last.HasQuest() {
			content.WriteString("Quest:\n" + last.QuestTitle + "\n" + last.QuestSetting + "\n\n")
		}
	}

	content.WriteString("Commands:\n")
	content.WriteString("• Ctrl+C: Quit\n")
	content.WriteString("• Enter: Send\n")
	content.WriteString("• /help: Help\n")
	content.WriteString("• /inner: Toggle thoughts\n")
	content.WriteString("• /copy: Copy last reply\n")
	content.WriteString("• /history: Reload\n")
	content.WriteString("• /new: New conversation\n")

	return content.String()
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	cmd := strings.ToLower(strings.TrimSpace(input))
	m.err = nil
	m.status = ""

	switch cmd {
	case "/help":
		m.status = "Commands: /inner toggles sensations and thoughts, /copy copies the last reply, " +
			"/history reloads from the server, /new starts over with a fresh conversation."

	case "/inner":
		m.showInner = !m.showInner

	case "/copy":
		if len(m.turns) == 0 {
			m.status = "Nothing to copy yet"
			break
		}
		if err := clipboardWriteAll(m.turns[len(m.turns)-1].Response.Response); err != nil {
			m.err = fmt.Errorf("failed to copy reply: %w", err)
		} else {
			m.status = "Copied last reply to clipboard"
		}

	case "/history":
		if m.conversationID == uuid.Nil {
			m.status = "No conversation yet"
			break
		}
		return m, m.loadHistory()

	case "/new":
		m.conversationID = uuid.Nil
		m.turns = nil
		m.personaName = ""
		if len(m.modes) > 1 {
			m.showModeModal = true
		}

	default:
		m.status = "Unknown command " + cmd
	}

	m.refresh()
	return m, nil
}

func (m ConsoleUI) sendTurn(input string) tea.Cmd {
	req := chat.TurnRequest{
		ConversationID: m.conversationID,
		Message:        input,
		Mode:           m.mode,
		Owner:          m.config.Owner,
	}
	return func() tea.Msg {
		resp, err := sendTurn(m.client, m.config.APIBaseURL, req)
		return turnResponseMsg{input: input, response: resp, err: err}
	}
}

func (m ConsoleUI) loadHistory() tea.Cmd {
	id := m.conversationID
	return func() tea.Msg {
		h, err := getHistory(m.client, m.config.APIBaseURL, id)
		return historyMsg{history: h, err: err}
	}
}

func (m ConsoleUI) updateModeModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
		case tea.KeyUp:
			if m.selectedMode > 0 {
				m.selectedMode--
			}
		case tea.KeyDown:
			if m.selectedMode < len(m.modes)-1 {
				m.selectedMode++
			}
		case tea.KeyEnter:
			m.mode = m.modes[m.selectedMode]
			m.showModeModal = false
			m.textarea.Focus()
			m.layout()
			return m, textarea.Blink
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				if m.showModeModal {
					return m, nil
				}
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to leave this conversation?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderModeModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Select a Mode"))
	content.WriteString("\n\n")

	for i, mode := range m.modes {
		if i == m.selectedMode {
			content.WriteString(modalSelectedItemStyle.Render(fmt.Sprintf("▶ %s", displayMode(mode))))
		} else {
			content.WriteString(modalItemStyle.Render(fmt.Sprintf("  %s", displayMode(mode))))
		}
		content.WriteString("\n")
	}

	content.WriteString("\n")
	content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if m.showModeModal {
		return m.renderModeModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(chatWidth-4, 1))),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// renderProgressBar draws the animated waiting bar.
func (m ConsoleUI) renderProgressBar() string {
	usable := min(max(m.chatViewport.Width-6, 10), 80)

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := range usable {
		switch {
		case i < filled:
			bar.WriteString("█")
		case i == filled && frame%4 < 2:
			bar.WriteString("▓")
		default:
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

func progressTick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
