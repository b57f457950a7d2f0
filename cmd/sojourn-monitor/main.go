// Command sojourn-monitor renders a live terminal dashboard of a sojourn
// broker's queue depths, drop counts and CoDel controller state, grounded
// on the teacher's termui-based vconfig TUI (grid + widgets.Paragraph,
// termui.Init/PollEvents/Render), polling broker.Snapshot() instead of
// editing config.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cyw0ng95/sojourn/pkg/broker"
	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
)

func main() {
	interval := flag.Duration("interval", 500*time.Millisecond, "poll interval")
	flag.Parse()

	log := broker.NewNopLogger()
	cfg := broker.DefaultConfig()
	b, err := broker.New(cfg, nil, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid broker configuration: %v\n", err)
		os.Exit(1)
	}
	defer b.Shutdown(context.Background())

	if err := ui.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize termui: %v\n", err)
		os.Exit(1)
	}
	defer ui.Close()

	grid := ui.NewGrid()
	termWidth, termHeight := ui.TerminalDimensions()
	grid.SetRect(0, 0, termWidth, termHeight)

	title := widgets.NewParagraph()
	title.Text = "sojourn-monitor"
	title.TextStyle.Fg = ui.ColorGreen
	title.Border = false

	askPanel := widgets.NewParagraph()
	askPanel.Title = "ask"
	askrPanel := widgets.NewParagraph()
	askrPanel.Title = "ask_r"

	instructions := widgets.NewParagraph()
	instructions.Text = "Press q to quit"
	instructions.Border = false

	grid.Set(
		ui.NewRow(1.0/8, title),
		ui.NewRow(3.0/8, askPanel),
		ui.NewRow(3.0/8, askrPanel),
		ui.NewRow(1.0/8, instructions),
	)

	render := func() {
		snap, err := b.Snapshot()
		if err != nil {
			return
		}
		askPanel.Text = renderSide(snap.Ask)
		askrPanel.Text = renderSide(snap.AskR)
		ui.Render(grid)
	}

	render()
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()
	for {
		select {
		case e := <-uiEvents:
			switch e.ID {
			case "q", "<C-c>":
				return
			}
		case <-ticker.C:
			render()
		}
	}
}

func renderSide(s broker.SideSnapshot) string {
	out := fmt.Sprintf("len: %d\n", s.Len)
	for reason, count := range s.Drops {
		out += fmt.Sprintf("%s drops: %d\n", reason.String(), count)
	}
	if s.CoDel != nil {
		out += fmt.Sprintf("\ncodel dropping: %t\ncodel count: %d\ncodel drop_next_ms: %d\n",
			s.CoDel.Dropping, s.CoDel.Count, s.CoDel.DropNextMs)
	}
	return out
}
