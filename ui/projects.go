package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/tableread/tableread/internal/api"
)

// projectItem adapts an api.Project to the bubbles list.
type projectItem struct {
	project api.Project
}

func (i projectItem) Title() string { return i.project.Name }

func (i projectItem) Description() string {
	var desc string
	switch {
	case i.project.HasScreenplay && i.project.HasVoiceConfig:
		desc = "screenplay + casting"
	case i.project.HasScreenplay:
		desc = "screenplay only"
	case i.project.HasVoiceConfig:
		desc = "casting only"
	default:
		desc = "empty"
	}
	if t, err := time.Parse(time.RFC3339, i.project.LastModified); err == nil {
		desc = fmt.Sprintf("%s · %s", desc, humanize.Time(t))
	}
	return desc
}

func (i projectItem) FilterValue() string { return i.project.Name }

// projectsModel is the project picker pane.
type projectsModel struct {
	list   list.Model
	loaded bool
}

func newProjectsModel() projectsModel {
	delegate := list.NewDefaultDelegate()
	l := list.New(nil, delegate, 0, 0)
	l.Title = "Projects"
	l.SetShowHelp(false)
	l.SetStatusBarItemName("project", "projects")
	return projectsModel{list: l}
}

func (m *projectsModel) setSize(w, h int) {
	m.list.SetSize(w, h)
}

func (m *projectsModel) setProjects(projects []api.Project) {
	items := make([]list.Item, len(projects))
	for i, p := range projects {
		items[i] = projectItem{project: p}
	}
	m.list.SetItems(items)
	m.loaded = true
}

// selected returns the highlighted project, or nil when the list is
// empty or filtered to nothing.
func (m projectsModel) selected() *api.Project {
	item, ok := m.list.SelectedItem().(projectItem)
	if !ok {
		return nil
	}
	return &item.project
}

// selectByName moves the cursor to the named project, for startup
// preselection.
func (m *projectsModel) selectByName(name string) bool {
	for i, item := range m.list.Items() {
		if pi, ok := item.(projectItem); ok && pi.project.Name == name {
			m.list.Select(i)
			return true
		}
	}
	return false
}

func (m projectsModel) update(msg tea.Msg) (projectsModel, tea.Cmd) {
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m projectsModel) view() string {
	if !m.loaded {
		return subtleStyle.Render("Contacting backend…")
	}
	return m.list.View()
}
