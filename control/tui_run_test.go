package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sv4u/saveimages/save"
)

func TestWantTUI_Disabled(t *testing.T) {
	if WantTUI(true) {
		t.Error("WantTUI(true) should be false")
	}
	t.Setenv("SAVEIMAGES_NO_TUI", "1")
	if WantTUI(false) {
		t.Error("WantTUI() should be false when SAVEIMAGES_NO_TUI is set")
	}
}

func TestRunModel_Progress(t *testing.T) {
	ch := make(chan runMsg, 4)
	m := newRunModel("run.log", 3, ch, nil)

	if _, cmd := m.Update(runMsg{Result: &save.Result{Module: "SaveDNA", Location: "/out/a.png", Saved: true}}); cmd == nil {
		t.Error("result should keep waiting for messages")
	}
	m.Update(runMsg{Result: &save.Result{Module: "SaveDNA", Location: "/out/b.png", Skipped: true}})

	view := m.View()
	for _, want := range []string{"Saved: 1  Kept: 1  Images: 3", "SaveDNA: saved /out/a.png", "run.log"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}

	summary := &save.Summary{Results: []save.Result{{Saved: true}, {Saved: true}, {Skipped: true}}}
	_, cmd := m.Update(runMsg{Summary: summary, Err: errors.New("disk full")})
	if cmd == nil {
		t.Fatal("summary should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("summary should return tea.Quit")
	}
	if !m.done || m.saved != 2 || m.kept != 1 {
		t.Errorf("model = done %v, saved %d, kept %d", m.done, m.saved, m.kept)
	}
	if !strings.Contains(m.View(), "disk full") {
		t.Error("View() should show the run error")
	}
}

func TestRunModel_ConfirmOverwrite(t *testing.T) {
	m := newRunModel("run.log", 1, make(chan runMsg), nil)
	req := &confirmRequest{path: "/out/a.png", reply: make(chan bool, 1)}
	m.Update(runMsg{Confirm: req})

	if !strings.Contains(m.View(), "Overwrite a.png? [y/N]") {
		t.Errorf("View() should prompt:\n%s", m.View())
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	if ok := <-req.reply; !ok {
		t.Error("y should confirm the overwrite")
	}
	if m.confirm != nil {
		t.Error("prompt should be cleared after an answer")
	}
}

func TestRunModel_CancelDeclinesPrompt(t *testing.T) {
	cancelled := false
	m := newRunModel("run.log", 1, make(chan runMsg), func() { cancelled = true })
	req := &confirmRequest{path: "/out/a.png", reply: make(chan bool, 1)}
	m.Update(runMsg{Confirm: req})

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if ok := <-req.reply; ok {
		t.Error("cancelling should decline the pending overwrite")
	}
	if !cancelled {
		t.Error("ctrl+c should cancel the run")
	}
	if !strings.Contains(m.View(), "Cancelling") {
		t.Errorf("View() = %s", m.View())
	}
}

func TestTUIConfirmer(t *testing.T) {
	ch := make(chan runMsg)
	go func() {
		msg := <-ch
		msg.Confirm.reply <- true
	}()
	ok, err := tuiConfirmer{ch: ch}.ConfirmOverwrite(context.Background(), "/out/a.png")
	if err != nil || !ok {
		t.Errorf("ConfirmOverwrite() = %v, %v", ok, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (tuiConfirmer{ch: make(chan runMsg)}).ConfirmOverwrite(ctx, "/out/a.png"); !errors.Is(err, context.Canceled) {
		t.Errorf("ConfirmOverwrite(cancelled) error = %v", err)
	}
}

func TestDrainRun(t *testing.T) {
	ch := make(chan runMsg, 3)
	req := &confirmRequest{path: "/out/a.png", reply: make(chan bool, 1)}
	want := &save.Summary{RunID: "run-1"}
	ch <- runMsg{Confirm: req}
	ch <- runMsg{Summary: want, Err: context.Canceled}
	close(ch)

	got, err := drainRun(ch)
	if got != want || !errors.Is(err, context.Canceled) {
		t.Errorf("drainRun() = %+v, %v", got, err)
	}
	if ok := <-req.reply; ok {
		t.Error("drainRun should decline pending prompts")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("  short  ", 10); got != "short" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("/a/very/long/path/name.png", 12); got != ".../name.png" {
		t.Errorf("truncate() = %q", got)
	}
}
