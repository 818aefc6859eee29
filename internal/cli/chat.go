package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/raphaelgruber/convoflow-go/internal/service"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var chatCmd = &cobra.Command{
	Use:   "chat <user-id>",
	Short: "Interactive chat session",
	Long: `Start an interactive chat session. Each message is tagged first, then a
reply is generated from the recent dialogue history. The header tracks the
conversation's stage, score and trust level as they move.

Example:
  convoflow chat alice`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

// chatTheme holds the color scheme for the chat display.
type chatTheme struct {
	User      lipgloss.Color
	Assistant lipgloss.Color
	Status    lipgloss.Color
	Error     lipgloss.Color
	Hint      lipgloss.Color
}

var defaultChatTheme = chatTheme{
	User:      lipgloss.Color("#5FAFD7"), // light blue
	Assistant: lipgloss.Color("#00D787"), // green
	Status:    lipgloss.Color("#AF87FF"), // purple
	Error:     lipgloss.Color("#FF005F"), // red
	Hint:      lipgloss.Color("#6C6C6C"), // dim gray
}

func (t chatTheme) userStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.User).Bold(true)
}

func (t chatTheme) assistantStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Assistant)
}

func (t chatTheme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t chatTheme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t chatTheme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// chatLine is one rendered line of the transcript.
type chatLine struct {
	role string // "user", "assistant", "status", "error"
	text string
}

// chatTurnMsg carries the outcome of one tag-then-reply round trip.
type chatTurnMsg struct {
	tag   *service.TagResult
	reply *service.RespondResult
	err   error
}

// chatModel is the bubbletea model for the chat session.
type chatModel struct {
	tagger    *service.Tagger
	responder *service.Responder
	userID    string

	input   textinput.Model
	lines   []chatLine
	theme   chatTheme
	waiting bool

	stage string
	score int
	trust int
}

func newChatModel(tagger *service.Tagger, responder *service.Responder, userID string) chatModel {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Focus()

	return chatModel{
		tagger:    tagger,
		responder: responder,
		userID:    userID,
		input:     ti,
		theme:     defaultChatTheme,
	}
}

func (m chatModel) Init() tea.Cmd {
	return nil
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.waiting {
				return m, nil
			}
			m.input.SetValue("")
			m.lines = append(m.lines, chatLine{role: "user", text: text})
			m.waiting = true
			return m, m.sendTurn(text)
		}

	case chatTurnMsg:
		m.waiting = false
		if msg.err != nil {
			m.lines = append(m.lines, chatLine{role: "error", text: msg.err.Error()})
			return m, nil
		}

		m.score = msg.tag.Score
		m.stage = string(msg.tag.Stage)
		m.trust = msg.tag.TrustLevel

		if len(msg.tag.Signals) > 0 {
			m.lines = append(m.lines, chatLine{
				role: "status",
				text: "signals: " + strings.Join(msg.tag.Signals, ", "),
			})
		}
		if msg.tag.OverBudget {
			m.lines = append(m.lines, chatLine{role: "error", text: "conversation is over budget"})
		}
		m.lines = append(m.lines, chatLine{role: "assistant", text: msg.reply.Response})
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m chatModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m chatModel) renderContent() string {
	var b strings.Builder

	header := fmt.Sprintf("chat with %s", m.userID)
	if m.stage != "" {
		header += fmt.Sprintf("  |  stage %s, score %d, trust %d", m.stage, m.score, m.trust)
	}
	b.WriteString(m.theme.statusStyle().Render(header))
	b.WriteString("\n\n")

	for _, line := range m.lines {
		switch line.role {
		case "user":
			b.WriteString(m.theme.userStyle().Render("you> ") + line.text)
		case "assistant":
			b.WriteString(m.theme.assistantStyle().Render(line.text))
		case "status":
			b.WriteString(m.theme.hintStyle().Render(line.text))
		case "error":
			b.WriteString(m.theme.errorStyle().Render("! " + line.text))
		}
		b.WriteString("\n")
	}

	if m.waiting {
		b.WriteString(m.theme.hintStyle().Render("thinking..."))
		b.WriteString("\n")
	}

	b.WriteString("\n" + m.input.View() + "\n")
	b.WriteString(m.theme.hintStyle().Render("Press Esc or Ctrl+C to quit"))
	b.WriteString("\n")

	return b.String()
}

// sendTurn tags the message and generates a reply.
// Runs as a command to keep Update() non-blocking.
func (m chatModel) sendTurn(text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		tag, err := m.tagger.TagMessage(ctx, m.userID, text)
		if err != nil {
			return chatTurnMsg{err: err}
		}
		reply, err := m.responder.GenerateResponse(ctx, m.userID, text, "", "")
		if err != nil {
			return chatTurnMsg{err: err}
		}
		return chatTurnMsg{tag: tag, reply: reply}
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("chat requires an interactive terminal")
	}

	ctx := context.Background()
	tagger, responder, err := getServices(ctx, true)
	if err != nil {
		return err
	}

	p := tea.NewProgram(newChatModel(tagger, responder, args[0]))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat UI error: %w", err)
	}
	return nil
}
