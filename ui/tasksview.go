package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/tableread/tableread/internal/api"
)

// tasksModel shows the backend's generation tasks.
type tasksModel struct {
	infos    []api.TaskInfo
	fraction map[string]float64
	cursor   int
	spinner  spinner.Model
	loaded   bool
	width    int
	height   int
}

func newTasksModel() tasksModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return tasksModel{
		spinner:  s,
		fraction: make(map[string]float64),
	}
}

func (m *tasksModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

func (m *tasksModel) setTasks(infos []api.TaskInfo) {
	m.infos = infos
	m.loaded = true
	if m.cursor >= len(infos) {
		m.cursor = maxInt(len(infos)-1, 0)
	}
}

func (m *tasksModel) setProgress(taskID string, fraction float64) {
	m.fraction[taskID] = fraction
}

// active reports whether any task still needs spinner animation.
func (m tasksModel) active() bool {
	for _, info := range m.infos {
		if !info.Status.Terminal() {
			return true
		}
	}
	return false
}

// selected returns the task under the cursor.
func (m tasksModel) selected() *api.TaskInfo {
	if m.cursor < 0 || m.cursor >= len(m.infos) {
		return nil
	}
	return &m.infos[m.cursor]
}

func (m tasksModel) update(msg tea.Msg) (tasksModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.infos)-1 {
				m.cursor++
			}
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.active() {
			return m, cmd
		}
	}
	return m, nil
}

func (m tasksModel) statusCell(info api.TaskInfo) string {
	switch info.Status {
	case api.TaskCompleted:
		return okStyle.Render("done")
	case api.TaskFailed:
		return errorTextStyle.Render("failed")
	case api.TaskProcessing:
		if f, ok := m.fraction[info.ID]; ok {
			return m.spinner.View() + fmt.Sprintf("%3.0f%%", f*100)
		}
		return m.spinner.View() + "working"
	default:
		return subtleStyle.Render("queued")
	}
}

func (m tasksModel) view() string {
	if !m.loaded {
		return subtleStyle.Render("Loading tasks…")
	}
	if len(m.infos) == 0 {
		return subtleStyle.Render("No generation tasks yet. Audition a voice with g.")
	}

	var b strings.Builder
	b.WriteString(paneTitleStyle.Render("Tasks"))
	b.WriteString("\n\n")

	for i, info := range m.infos {
		age := ""
		if t, err := time.Parse(time.RFC3339, info.CreatedAt); err == nil {
			age = humanize.Time(t)
		}
		line := fmt.Sprintf("%s  %s  %s",
			runewidth.FillRight(runewidth.Truncate(info.ID, 12, ellipsis), 12),
			runewidth.FillRight(m.statusCell(info), 12),
			subtleStyle.Render(age),
		)
		if info.Status == api.TaskFailed && info.Error != "" {
			line += "  " + errorTextStyle.Render(runewidth.Truncate(info.Error, maxInt(m.width-30, 10), ellipsis))
		}
		if i == m.cursor {
			line = "> " + line
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(subtleStyle.Render("enter play · r refresh · D cleanup finished"))
	return b.String()
}
