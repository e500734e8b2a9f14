package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// PeerStatus is a live state change for one probe participant.
type PeerStatus struct {
	Peer  string
	Role  string
	State string
	RTT   time.Duration
	Err   string
}

// ProbeUI shows probe progress while it runs.
type ProbeUI struct {
	program *tea.Program
	model   *probeModel
	wg      sync.WaitGroup
}

type probeModel struct {
	title    string
	order    []string
	peers    map[string]PeerStatus
	spinner  spinner.Model
	updates  chan PeerStatus
	quitting bool
}

type probeDoneMsg struct{}

// NewProbeUI creates a live view titled with the relay URL.
func NewProbeUI(url string) *ProbeUI {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &ProbeUI{
		model: &probeModel{
			title:   url,
			peers:   make(map[string]PeerStatus),
			spinner: s,
			updates: make(chan PeerStatus, 64),
		},
	}
}

// Start starts the UI in a goroutine
func (ui *ProbeUI) Start() {
	// Default is inline mode without alt screen so the table printed
	// afterwards stays next to the log.
	ui.program = tea.NewProgram(ui.model)
	ui.wg.Add(1)
	go func() {
		defer ui.wg.Done()
		if _, err := ui.program.Run(); err != nil {
			fmt.Printf("UI error: %v\n", err)
		}
	}()
}

// Update records a state change. It never blocks the probe.
func (ui *ProbeUI) Update(status PeerStatus) {
	select {
	case ui.model.updates <- status:
	default:
	}
}

// Stop stops the UI
func (ui *ProbeUI) Stop() {
	if ui.program != nil {
		ui.program.Send(probeDoneMsg{})
	}
	ui.wg.Wait()
}

func (m *probeModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForUpdates())
}

func (m *probeModel) listenForUpdates() tea.Cmd {
	return func() tea.Msg {
		return <-m.updates
	}
}

func (m *probeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case probeDoneMsg:
		m.quitting = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case PeerStatus:
		if _, seen := m.peers[msg.Peer]; !seen {
			m.order = append(m.order, msg.Peer)
		}
		m.peers[msg.Peer] = msg
		return m, m.listenForUpdates()
	}

	return m, nil
}

func (m *probeModel) icon(state string) string {
	switch state {
	case "done", "connected":
		return IconSuccess
	case "failed":
		return IconError
	default:
		return m.spinner.View()
	}
}

func (m *probeModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("\n%s Probing %s\n\n", IconServer, m.title))

	for _, id := range m.order {
		p := m.peers[id]
		role := IconPeer
		if p.Role == "host" {
			role = IconHost
		}
		b.WriteString(fmt.Sprintf("  %s %s %-9s %s", m.icon(p.State), role, p.Peer, p.State))
		if p.RTT > 0 {
			b.WriteString(MutedStyle.Render(" rtt " + FormatRTT(p.RTT)))
		}
		if p.Err != "" {
			b.WriteString(" " + ErrorStyle.Render(p.Err))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n" + MutedStyle.Render("Press q to hide"))
	return b.String()
}
