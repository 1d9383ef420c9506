// Package ui provides the terminal interface: project browsing, voice
// casting, generation tasks, and the persistent playback bar.
package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/tableread/tableread/internal/api"
	"github.com/tableread/tableread/internal/casting"
	"github.com/tableread/tableread/internal/tasks"
	"github.com/tableread/tableread/player"
	"github.com/tableread/tableread/player/media"
)

const (
	statusMessageTimeout = 3 * time.Second
	requestTimeout       = 30 * time.Second
	ellipsis             = "…"
)

// pane identifies the visible view.
type pane int

const (
	paneProjects pane = iota
	paneCasting
	paneTasks
)

func (p pane) String() string {
	switch p {
	case paneProjects:
		return "projects"
	case paneCasting:
		return "casting"
	case paneTasks:
		return "tasks"
	default:
		return "unknown"
	}
}

// NewProgram returns a new Tea program.
func NewProgram(cfg Config) *tea.Program {
	log.Debug("starting tableread", "backend", cfg.BackendURL, "autoplay", cfg.Autoplay)

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(newModel(cfg), opts...)
}

type model struct {
	cfg    Config
	client *api.Client
	svc    *player.Service

	pane     pane
	fatalErr error

	// Sub-models
	projects  projectsModel
	casting   castingModel
	tasksview tasksModel
	playerBar playerBarModel

	// Bridges from background goroutines into the Tea loop.
	events      chan tea.Msg
	playerCh    chan struct{}
	unsubscribe func()

	// Exported casting file currently being watched, if any.
	exportPath string
	stopWatch  chan struct{}

	status      string
	statusError bool

	width  int
	height int
}

func newModel(cfg Config) *model {
	svc := player.Default()
	if svc == nil {
		svc = player.InitDefault(media.NewHTTPResource(), player.DefaultConfig())
	}

	m := &model{
		cfg:       cfg,
		client:    api.NewClient(cfg.BackendURL),
		svc:       svc,
		pane:      paneProjects,
		projects:  newProjectsModel(),
		casting:   newCastingModel(),
		tasksview: newTasksModel(),
		playerBar: newPlayerBarModel(svc),
		events:    make(chan tea.Msg, 16),
		playerCh:  make(chan struct{}, 1),
	}

	m.unsubscribe = svc.Subscribe(func() {
		select {
		case m.playerCh <- struct{}{}:
		default:
		}
	})
	return m
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(
		loadProjectsCmd(m.client),
		loadProvidersCmd(m.client),
		loadTasksCmd(m.client),
		listenEvents(m.events),
		m.listenPlayer(),
		m.tasksview.spinner.Tick,
	)
}

// listenPlayer waits for the next player notification.
func (m *model) listenPlayer() tea.Cmd {
	ch := m.playerCh
	return func() tea.Msg {
		<-ch
		return playerUpdatedMsg{}
	}
}

func (m *model) setStatus(text string, isError bool) tea.Cmd {
	m.status = text
	m.statusError = isError
	return statusTimeoutCmd()
}

func (m *model) shutdown() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	if m.stopWatch != nil {
		close(m.stopWatch)
		m.stopWatch = nil
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.fatalErr != nil {
		if _, ok := msg.(tea.KeyMsg); ok {
			m.shutdown()
			return m, tea.Quit
		}
	}

	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		paneHeight := maxInt(msg.Height-6, 5)
		m.projects.setSize(msg.Width, paneHeight)
		m.casting.setSize(msg.Width, paneHeight)
		m.tasksview.setSize(msg.Width, paneHeight)
		m.playerBar.setWidth(msg.Width)

	case projectsLoadedMsg:
		m.projects.setProjects(msg.projects)
		if m.cfg.Project != "" && m.projects.selectByName(m.cfg.Project) {
			cmds = append(cmds, loadCastingCmd(m.client, m.cfg.Project))
		}

	case providersLoadedMsg:
		m.casting.setProviders(msg.providers)

	case voicesRequestedMsg:
		cmds = append(cmds, loadVoicesCmd(m.client, msg.provider))

	case voicesLoadedMsg:
		m.casting.setVoices(msg.provider, msg.voices)

	case castingLoadedMsg:
		m.casting.setDocument(msg.project, msg.doc)
		m.pane = paneCasting

	case castingSavedMsg:
		m.casting.dirty = false
		cmds = append(cmds, m.setStatus(fmt.Sprintf("casting saved for %s", msg.project), false))

	case castingFileChangedMsg:
		// Came through the event bridge; re-arm it.
		cmds = append(cmds, m.reloadExportedCasting(msg.path), listenEvents(m.events))

	case editorFinishedMsg:
		if msg.err != nil {
			cmds = append(cmds, m.setStatus(fmt.Sprintf("editor: %v", msg.err), true))
		} else {
			cmds = append(cmds, m.reloadExportedCasting(msg.path))
		}

	case tasksLoadedMsg:
		m.tasksview.setTasks(msg.infos)
		if m.tasksview.active() {
			cmds = append(cmds, m.tasksview.spinner.Tick)
		}

	case generationQueuedMsg:
		cmds = append(cmds,
			m.setStatus(fmt.Sprintf("generation queued: %s", msg.task.ID), false),
			watchTaskCmd(m.client, msg.meta, m.events),
			loadTasksCmd(m.client),
		)

	case taskProgressMsg:
		m.tasksview.setProgress(msg.taskID, msg.fraction)
		cmds = append(cmds, listenEvents(m.events))

	case taskCompletedMsg:
		cmds = append(cmds, m.playCompletion(msg.completion), loadTasksCmd(m.client))

	case taskFailedMsg:
		cmds = append(cmds,
			m.setStatus(fmt.Sprintf("task %s failed: %s", msg.meta.TaskID, msg.reason), true),
			loadTasksCmd(m.client),
		)

	case playerUpdatedMsg:
		cmds = append(cmds, m.listenPlayer())

	case urlCopiedMsg:
		cmds = append(cmds, m.setStatus("audio URL copied", false))

	case statusMessageTimeoutMsg:
		m.status = ""
		m.statusError = false

	case errMsg:
		log.Debug("ui error", "err", msg.err)
		cmds = append(cmds, m.setStatus(msg.err.Error(), true))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.tasksview, cmd = m.tasksview.update(msg)
		cmds = append(cmds, cmd)
	}

	// Forward pane-local input.
	if key, ok := msg.(tea.KeyMsg); ok {
		var cmd tea.Cmd
		switch m.pane {
		case paneProjects:
			m.projects, cmd = m.projects.update(key)
		case paneCasting:
			m.casting, cmd = m.casting.update(key)
		case paneTasks:
			m.tasksview, cmd = m.tasksview.update(key)
		}
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// handleKey processes global shortcuts. It reports whether the key was
// consumed.
func (m *model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	// Casting's voice picker captures all text input.
	if m.pane == paneCasting && m.casting.state == castingPickingVoice {
		switch msg.String() {
		case "ctrl+c":
			m.shutdown()
			return tea.Quit, true
		}
		return nil, false
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.shutdown()
		return tea.Quit, true

	case "ctrl+z":
		return tea.Suspend, true

	case "tab":
		m.pane = (m.pane + 1) % 3
		return nil, true

	case "r":
		return tea.Batch(
			loadProjectsCmd(m.client),
			loadTasksCmd(m.client),
		), true

	case " ":
		m.svc.Toggle()
		return nil, true

	case "left":
		m.seekBy(-5 * time.Second)
		return nil, true

	case "right":
		m.seekBy(5 * time.Second)
		return nil, true

	case "x":
		m.svc.Clear()
		return nil, true

	case "c":
		if snap := m.svc.Snapshot(); snap.Src != "" {
			return copyURLCmd(snap.Src), true
		}
		return m.setStatus("nothing loaded", true), true

	case "enter":
		return m.handleEnter()

	case "s":
		if m.pane == paneCasting && m.casting.doc != nil {
			return saveCastingCmd(m.client, m.casting.project, m.casting.doc), true
		}

	case "e":
		if m.pane == paneCasting && m.casting.doc != nil {
			return m.exportAndEdit(), true
		}

	case "g":
		if m.pane == paneCasting {
			return m.audition(), true
		}

	case "p":
		if m.pane == paneCasting {
			return m.playPreview(), true
		}

	case "D":
		if m.pane == paneTasks {
			client := m.client
			return func() tea.Msg {
				ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
				defer cancel()
				if err := client.Cleanup(ctx); err != nil {
					return errMsg{err}
				}
				return loadTasksCmd(client)()
			}, true
		}
	}

	return nil, false
}

// handleEnter activates the selection in the current pane.
func (m *model) handleEnter() (tea.Cmd, bool) {
	switch m.pane {
	case paneProjects:
		if p := m.projects.selected(); p != nil {
			return loadCastingCmd(m.client, p.Name), true
		}
	case paneTasks:
		info := m.tasksview.selected()
		if info == nil {
			return nil, true
		}
		if info.Status != api.TaskCompleted || len(info.AudioURLs) == 0 {
			return m.setStatus("task has no playable audio", true), true
		}
		m.loadAndPlayAsync(info.AudioURLs[0], player.Metadata{
			PrimaryText:      info.ID,
			SecondaryText:    info.Message,
			DownloadFilename: filepath.Base(info.AudioURLs[0]),
		})
		return nil, true
	}
	return nil, false
}

// seekBy nudges the playback position relative to the current
// snapshot.
func (m *model) seekBy(delta time.Duration) {
	snap := m.svc.Snapshot()
	m.svc.Seek((snap.Position + delta).Seconds())
}

// loadAndPlayAsync runs the blocking composite command off the Tea
// loop; the player bar picks up the result through its subscription.
func (m *model) loadAndPlayAsync(url string, meta player.Metadata) {
	svc := m.svc
	if m.cfg.Autoplay {
		go svc.LoadAndPlay(url, &meta)
	} else {
		go svc.LoadWithMetadata(url, meta)
	}
}

// playCompletion feeds a finished generation into the player.
func (m *model) playCompletion(c tasks.Completion) tea.Cmd {
	m.loadAndPlayAsync(c.AudioURL, player.Metadata{
		PrimaryText:      c.PrimaryText,
		SecondaryText:    c.SecondaryText,
		DownloadFilename: c.DownloadFilename,
	})
	return m.setStatus(fmt.Sprintf("audio ready: %s", c.PrimaryText), false)
}

// audition generates a sample line for the speaker under the casting
// cursor.
func (m *model) audition() tea.Cmd {
	name, voice, ok := m.casting.selectedSpeaker()
	if !ok || voice.Provider == "" {
		return m.setStatus("no voice assigned", true)
	}

	text := fmt.Sprintf("My name is %s, and this is how I will sound in your audiobook.", name)
	if name == casting.DefaultSpeaker {
		text = "This is the narrator voice, used for scene directions and all uncast lines."
	}

	req := api.GenerationRequest{
		Provider: voice.Provider,
		Config:   voice.Config,
		Text:     text,
		VoiceID:  voice.VoiceID,
		Variants: 1,
	}
	meta := tasks.Meta{
		PrimaryText:      name,
		SecondaryText:    voice.Provider,
		DownloadFilename: fmt.Sprintf("%s_audition.mp3", name),
	}
	return generateLineCmd(m.client, req, meta)
}

// playPreview plays the library preview for the speaker under the
// casting cursor.
func (m *model) playPreview() tea.Cmd {
	url, speaker, provider, ok := m.casting.previewURL()
	if !ok {
		return m.setStatus("no preview available; audition with g", true)
	}
	m.loadAndPlayAsync(url, player.Metadata{
		PrimaryText:      speaker,
		SecondaryText:    provider + " preview",
		DownloadFilename: filepath.Base(url),
	})
	return nil
}

// exportAndEdit writes the casting document to disk, starts watching
// it, and opens the editor.
func (m *model) exportAndEdit() tea.Cmd {
	raw, err := m.casting.doc.Render()
	if err != nil {
		return m.setStatus(err.Error(), true)
	}

	dir := m.cfg.CastingExportDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_voice_config.yaml", m.casting.project))
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return m.setStatus(err.Error(), true)
	}

	if m.stopWatch != nil {
		close(m.stopWatch)
	}
	m.stopWatch = make(chan struct{})
	if err := watchCastingFile(path, m.events, m.stopWatch); err != nil {
		log.Debug("casting watch failed", "err", err)
	}
	m.exportPath = path

	return openEditorCmd(path)
}

// reloadExportedCasting re-reads the exported file and applies it,
// reporting what changed.
func (m *model) reloadExportedCasting(path string) tea.Cmd {
	raw, err := os.ReadFile(path)
	if err != nil {
		return m.setStatus(err.Error(), true)
	}
	doc, err := casting.Parse(raw)
	if err != nil {
		return m.setStatus(fmt.Sprintf("casting file invalid: %v", err), true)
	}

	diff := casting.Compare(m.casting.doc, doc)
	m.casting.doc = doc
	m.casting.dirty = true
	m.casting.revalidate()

	if diff.Empty() {
		return m.setStatus("casting reloaded (no changes)", false)
	}
	return m.setStatus(fmt.Sprintf("casting reloaded: %d added, %d removed, %d changed",
		len(diff.Added), len(diff.Removed), len(diff.Changed)), false)
}

func (m *model) View() string {
	if m.fatalErr != nil {
		return errorView(m.fatalErr)
	}

	var body string
	switch m.pane {
	case paneProjects:
		body = m.projects.view()
	case paneCasting:
		body = m.casting.view()
	case paneTasks:
		body = m.tasksview.view()
	}

	bar := m.playerBar.view()

	status := m.statusLine()

	return lipgloss.JoinVertical(lipgloss.Left, body, bar, status)
}

func (m *model) statusLine() string {
	left := fmt.Sprintf(" %s ", m.pane)
	text := m.status
	if text == "" {
		text = "tab switch pane · q quit"
	}
	if m.statusError {
		text = errorTextStyle.Render(text)
	}
	return statusBarStyle.Width(maxInt(m.width, 0)).Render(left + "· " + text)
}

func errorView(err error) string {
	return fmt.Sprintf("\n  %s\n\n  %v\n\n  %s\n",
		errorTitleStyle.Render("ERROR"),
		err,
		subtleStyle.Render("press any key to exit"),
	)
}
