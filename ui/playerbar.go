package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/tableread/tableread/player"
)

// playerBarModel renders the persistent playback bar. It reads the
// player's snapshots on demand and never mutates playback itself;
// key handling in the root model invokes the player commands.
type playerBarModel struct {
	svc      *player.Service
	progress progress.Model
	width    int
}

func newPlayerBarModel(svc *player.Service) playerBarModel {
	p := progress.New(progress.WithDefaultGradient())
	p.ShowPercentage = false
	return playerBarModel{svc: svc, progress: p}
}

func (m *playerBarModel) setWidth(w int) {
	m.width = w
	barWidth := w - 24
	if barWidth < 10 {
		barWidth = 10
	}
	m.progress.Width = barWidth
}

// stateLabel maps player states to the bar's status word.
func stateLabel(s player.State) string {
	switch s {
	case player.StateLoading:
		return "loading"
	case player.StatePlaying:
		return "playing"
	case player.StatePaused:
		return "paused"
	case player.StateError:
		return "error"
	default:
		return "ready"
	}
}

func formatClock(d time.Duration) string {
	d = d.Round(time.Second)
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", m, s)
}

func (m playerBarModel) view() string {
	snap := m.svc.Snapshot()
	meta := m.svc.MetadataSnapshot()

	title := meta.PrimaryText
	if title == "" {
		title = "nothing loaded"
	}
	detail := meta.SecondaryText

	var status string
	if snap.State == player.StateError {
		status = playerErrorStyle.Render(stateLabel(snap.State))
	} else {
		status = playerStateStyle.Render(stateLabel(snap.State))
	}

	header := playerTitleStyle.Render(truncate.StringWithTail(title, uint(maxInt(m.width/2, 12)), ellipsis))
	if detail != "" {
		header += " " + playerDetailStyle.Render(truncate.StringWithTail(detail, uint(maxInt(m.width/4, 8)), ellipsis))
	}
	header += " " + status

	var body string
	switch snap.State {
	case player.StateError:
		body = errorTextStyle.Render(snap.Err)
	default:
		var frac float64
		if snap.Duration > 0 {
			frac = float64(snap.Position) / float64(snap.Duration)
		}
		if frac > 1 {
			frac = 1
		}
		clock := fmt.Sprintf("%s / %s", formatClock(snap.Position), formatClock(snap.Duration))
		body = m.progress.ViewAs(frac) + " " + subtleStyle.Render(clock)
	}

	help := subtleStyle.Render("space play/pause · ←/→ seek · c copy url · x clear")

	return lipgloss.JoinVertical(lipgloss.Left, header, body, help)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
