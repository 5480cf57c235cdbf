package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func newTestModel(keep int) *monitorModel {
	return NewMonitorUI(RoomInfo{BarID: "b1", Session: "s1", Key: "b1::s1", Role: "host"}, keep).model
}

func TestMonitorModel_AppliesUpdates(t *testing.T) {
	m := newTestModel(2)

	updates := []monitorUpdate{
		{stats: true, hosts: 1, guests: 3},
		{state: "Listening"},
		{payload: `{"n":1}`},
		{payload: `{"n":2}`},
		{payload: `{"n":3}`},
	}
	for _, u := range updates {
		if _, cmd := m.Update(u); cmd == nil {
			t.Fatal("update did not re-arm the listener")
		}
	}

	if m.hosts != 1 || m.guests != 3 {
		t.Errorf("counts = %d/%d, want 1/3", m.hosts, m.guests)
	}
	if m.state != "Listening" {
		t.Errorf("state = %q", m.state)
	}
	if m.received != 3 {
		t.Errorf("received = %d, want 3", m.received)
	}
	if len(m.recent) != 2 || m.recent[0].body != `{"n":2}` || m.recent[1].body != `{"n":3}` {
		t.Errorf("recent = %+v, want the last two payloads", m.recent)
	}

	view := m.View()
	for _, want := range []string{"b1", "s1", `{"n":3}`, "Listening"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if strings.Contains(view, `{"n":1}`) {
		t.Error("view still shows an evicted payload")
	}
}

func TestMonitorModel_Quit(t *testing.T) {
	m := newTestModel(0)
	if m.keep != 10 {
		t.Errorf("keep = %d, want default 10", m.keep)
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
	if m.View() != "" {
		t.Error("view not cleared after quitting")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("abcdefghij", 5); got != "abcd…" {
		t.Errorf("truncate long = %q", got)
	}
}

func TestTableViews(t *testing.T) {
	stats := StatsView(2, 5)
	for _, want := range []string{"Hosts", "Guests", "2", "5"} {
		if !strings.Contains(stats, want) {
			t.Errorf("StatsView missing %q", want)
		}
	}

	summary := SubmitSummaryView("Submit", SubmitSummary{Status: "delivered", Room: "b1::s1", Bytes: 7, Elapsed: "3ms"})
	for _, want := range []string{"Submit", "delivered", "b1::s1", "7 bytes", "3ms"} {
		if !strings.Contains(summary, want) {
			t.Errorf("SubmitSummaryView missing %q", want)
		}
	}
}
