package ui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	prettytable "github.com/jedib0t/go-pretty/v6/table"
)

// RoomInfo identifies the room a CLI session has joined.
type RoomInfo struct {
	BarID   string
	Session string
	Key     string
	Role    string
}

func (r RoomInfo) View() string {
	icon := IconGuest
	if r.Role == "host" {
		icon = IconHost
	}
	content := fmt.Sprintf("%s Joined as %s\n\n%s Bar:      %s\n   Session:  %s\n   Room key: %s",
		icon, BoldStyle.Render(r.Role),
		IconRoom, BoldStyle.Foreground(Primary).Render(r.BarID),
		BoldStyle.Foreground(Primary).Render(r.Session),
		MutedStyle.Render(r.Key),
	)
	return RoomBoxStyle.Render(content)
}

// StatsView renders a room's membership as a two-row table.
func StatsView(hosts, guests int) string {
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("Role", "Connected").
		Rows(
			[]string{"Hosts", strconv.Itoa(hosts)},
			[]string{"Guests", strconv.Itoa(guests)},
		).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

// SubmitSummary describes one guest submission.
type SubmitSummary struct {
	Status  string
	Room    string
	Bytes   int
	Elapsed string
}

func SubmitSummaryView(title string, s SubmitSummary) string {
	t := prettytable.NewWriter()
	t.SetTitle(title)
	t.AppendHeader(prettytable.Row{"Metric", "Value"})
	t.AppendRows([]prettytable.Row{
		{"Status", s.Status},
		{"Room", s.Room},
		{"Payload", fmt.Sprintf("%d bytes", s.Bytes)},
		{"Round trip", s.Elapsed},
	})
	t.SetStyle(prettytable.StyleRounded)
	return t.Render()
}

func RenderSubmitSummary(title string, s SubmitSummary) {
	fmt.Println(SubmitSummaryView(title, s))
}
