package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/character-monitor/internal/config"
	"github.com/jwebster45206/character-monitor/internal/settings"
	"github.com/jwebster45206/character-monitor/pkg/chat"
)

// ConsoleUI is the BubbleTea model that runs the viewer.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config   *config.Config
	settings settings.Settings
	messages []chat.Message
	incoming <-chan chat.Message

	chatViewport viewport.Model
	sideViewport viewport.Model
	ready        bool
	width        int
	height       int
	status       string
}

type chatMessageMsg struct {
	message chat.Message
	ok      bool
}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	sidePanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	whisperStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

func NewConsoleUI(cfg *config.Config, worldSettings settings.Settings, history []chat.Message, incoming <-chan chat.Message) ConsoleUI {
	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	sideVp := viewport.New(20, 20)

	return ConsoleUI{
		config:       cfg,
		settings:     worldSettings,
		messages:     history,
		incoming:     incoming,
		chatViewport: chatVp,
		sideViewport: sideVp,
	}
}

func decodeMessage(payload string) (chat.Message, error) {
	var msg chat.Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return chat.Message{}, err
	}
	return msg, nil
}

// waitForMessage blocks on the live subscription for the next message.
func waitForMessage(incoming <-chan chat.Message) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-incoming
		return chatMessageMsg{message: msg, ok: ok}
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return waitForMessage(m.incoming)
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		vpCmd tea.Cmd
		svCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		return m, vpCmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		chatWidth := int(float64(m.width)*0.75) - 4
		sideWidth := m.width - chatWidth - 6

		m.chatViewport.Width = chatWidth - 2
		m.chatViewport.Height = m.height - 4
		m.sideViewport.Width = sideWidth - 2
		m.sideViewport.Height = m.height - 4

		m.ready = true
		m.writeChatContent()
		m.sideViewport.SetContent(m.writeSidebar())

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "y":
			m.status = m.copyLastMessage()
			m.writeChatContent()
		case "up", "down", "pgup", "pgdown":
			m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		}

	case chatMessageMsg:
		if !msg.ok {
			m.status = "Live feed disconnected"
			m.writeChatContent()
			return m, nil
		}
		m.messages = append(m.messages, msg.message)
		m.status = ""
		if m.ready {
			m.writeChatContent()
			m.sideViewport.SetContent(m.writeSidebar())
		}
		return m, waitForMessage(m.incoming)
	}

	return m, tea.Batch(vpCmd, svCmd)
}

func (m ConsoleUI) View() string {
	if !m.ready {
		return "Connecting..."
	}
	chatPane := chatPanelStyle.Render(m.chatViewport.View())
	sidePane := sidePanelStyle.Render(m.sideViewport.View())
	return lipgloss.JoinHorizontal(lipgloss.Top, chatPane, sidePane)
}

// writeChatContent reformats every message for the current viewport width.
func (m *ConsoleUI) writeChatContent() {
	chatWidth := m.chatViewport.Width - 6
	if chatWidth < 20 {
		chatWidth = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("CHARACTER MONITOR") + "\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", chatWidth)) + "\n\n")

	if len(m.messages) == 0 {
		content.WriteString("Waiting for notifications...\n")
	}
	for _, msg := range m.messages {
		content.WriteString(m.renderMessage(msg, chatWidth) + "\n")
	}
	if m.status != "" {
		content.WriteString("\n" + statusStyle.Render(m.status) + "\n")
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

func (m *ConsoleUI) renderMessage(msg chat.Message, width int) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(m.settings.Color(msg.Flag)))
	line := timestampStyle.Render(msg.CreatedAt.Local().Format("15:04")) + " " +
		style.Render(wordwrap.String(msg.Content, width-6))
	if len(msg.Whisper) > 0 {
		line += " " + whisperStyle.Render("(whisper)")
	}
	return line
}

func (m *ConsoleUI) writeSidebar() string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("WORLD") + "\n\n")
	content.WriteString(m.config.WorldID + "\n\n")

	content.WriteString("User:\n")
	content.WriteString(m.config.UserID + "\n\n")

	content.WriteString("Messages:\n")
	content.WriteString(fmt.Sprintf("%d total\n\n", len(m.messages)))

	disabled := make([]string, 0)
	for _, category := range chat.Categories {
		if !m.settings.Enabled(category) {
			disabled = append(disabled, string(category))
		}
	}
	if len(disabled) > 0 {
		content.WriteString("Disabled monitors:\n")
		for _, name := range disabled {
			content.WriteString("• " + name + "\n")
		}
		content.WriteString("\n")
	}
	if m.settings.Suspended() {
		content.WriteString(statusStyle.Render("Monitoring suspended") + "\n\n")
	}

	content.WriteString("Commands:\n")
	content.WriteString("• q: Quit\n")
	content.WriteString("• y: Copy last message\n")
	content.WriteString("• ↑/↓: Scroll\n")

	return content.String()
}

// copyLastMessage puts the newest visible message on the system clipboard.
func (m *ConsoleUI) copyLastMessage() string {
	if len(m.messages) == 0 {
		return "Nothing to copy"
	}
	last := m.messages[len(m.messages)-1]
	if err := clipboard.WriteAll(last.Content); err != nil {
		return fmt.Sprintf("Copy failed: %v", err)
	}
	return "Copied to clipboard"
}
