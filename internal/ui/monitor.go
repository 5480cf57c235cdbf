package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

const maxPayloadWidth = 72

// MonitorUI is the live host view: room membership and the most recent
// payloads relayed to this host.
type MonitorUI struct {
	program *tea.Program
	model   *monitorModel
	updates chan monitorUpdate
	done    chan struct{}
	wg      sync.WaitGroup
}

type monitorUpdate struct {
	stats   bool
	hosts   int
	guests  int
	payload string
	state   string
}

type payloadLine struct {
	at   time.Time
	body string
}

type monitorModel struct {
	room     RoomInfo
	state    string
	hosts    int
	guests   int
	received int
	recent   []payloadLine
	keep     int
	spinner  spinner.Model
	updates  chan monitorUpdate
	quitting bool
}

// NewMonitorUI creates a monitor that shows up to keep recent payloads.
func NewMonitorUI(room RoomInfo, keep int) *MonitorUI {
	if keep <= 0 {
		keep = 10
	}
	updates := make(chan monitorUpdate, 100)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &MonitorUI{
		model: &monitorModel{
			room:    room,
			state:   "Waiting for guests...",
			keep:    keep,
			spinner: s,
			updates: updates,
		},
		updates: updates,
		done:    make(chan struct{}),
	}
}

// Start runs the UI in a goroutine.
func (ui *MonitorUI) Start() {
	ui.program = tea.NewProgram(ui.model)
	ui.wg.Add(1)
	go func() {
		defer ui.wg.Done()
		defer close(ui.done)
		if _, err := ui.program.Run(); err != nil {
			fmt.Printf("UI error: %v\n", err)
		}
	}()
}

// Done is closed once the UI has exited, including when the user quits.
func (ui *MonitorUI) Done() <-chan struct{} {
	return ui.done
}

func (ui *MonitorUI) UpdateStats(hosts, guests int) {
	ui.push(monitorUpdate{stats: true, hosts: hosts, guests: guests})
}

func (ui *MonitorUI) AddPayload(payload []byte) {
	ui.push(monitorUpdate{payload: string(payload)})
}

func (ui *MonitorUI) SetState(state string) {
	ui.push(monitorUpdate{state: state})
}

// push drops the update if the UI has fallen behind.
func (ui *MonitorUI) push(u monitorUpdate) {
	select {
	case ui.updates <- u:
	default:
	}
}

// Stop quits the UI and waits for it to restore the terminal.
func (ui *MonitorUI) Stop() {
	if ui.program != nil {
		ui.program.Quit()
	}
	ui.wg.Wait()
}

func (m *monitorModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForUpdates())
}

func (m *monitorModel) listenForUpdates() tea.Cmd {
	return func() tea.Msg {
		return <-m.updates
	}
}

func (m *monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case monitorUpdate:
		m.apply(msg)
		return m, m.listenForUpdates()
	}

	return m, nil
}

func (m *monitorModel) apply(u monitorUpdate) {
	switch {
	case u.stats:
		m.hosts, m.guests = u.hosts, u.guests
	case u.state != "":
		m.state = u.state
	default:
		m.received++
		m.recent = append(m.recent, payloadLine{at: time.Now(), body: u.payload})
		if len(m.recent) > m.keep {
			m.recent = m.recent[len(m.recent)-m.keep:]
		}
	}
}

func (m *monitorModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString("\n" + m.room.View() + "\n\n")
	b.WriteString(fmt.Sprintf("%s %s\n\n", m.spinner.View(), m.state))
	b.WriteString(StatsView(m.hosts, m.guests) + "\n\n")

	b.WriteString(fmt.Sprintf("%s Payloads received: %s\n", IconPayload, BoldStyle.Render(fmt.Sprint(m.received))))
	if len(m.recent) == 0 {
		b.WriteString(MutedStyle.Render("  none yet") + "\n")
	}
	for _, p := range m.recent {
		b.WriteString(fmt.Sprintf("  %s %s\n",
			MutedStyle.Render(p.at.Format("15:04:05")),
			PayloadStyle.Render(truncate(p.body, maxPayloadWidth)),
		))
	}

	b.WriteString("\n" + MutedStyle.Render("Press q to leave the room"))
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
