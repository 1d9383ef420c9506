package ui

import (
	"context"
	"os"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/editor"
	"github.com/fsnotify/fsnotify"

	"github.com/tableread/tableread/internal/api"
	"github.com/tableread/tableread/internal/casting"
	"github.com/tableread/tableread/internal/tasks"
)

// Messages for Bubble Tea communication between the backend, the
// player, and the UI.

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

// projectsLoadedMsg carries the project list from the backend.
type projectsLoadedMsg struct {
	projects []api.Project
}

// providersLoadedMsg carries the provider schemas from the backend.
type providersLoadedMsg struct {
	providers []api.ProviderInfo
}

// voicesLoadedMsg carries a provider's voice library entries.
type voicesLoadedMsg struct {
	provider string
	voices   []api.VoiceEntry
}

// castingLoadedMsg carries a project's parsed casting document.
type castingLoadedMsg struct {
	project string
	doc     *casting.Document
	raw     []byte
}

// castingSavedMsg confirms a casting document upload.
type castingSavedMsg struct {
	project string
}

// castingFileChangedMsg reports that the exported casting file was
// modified on disk.
type castingFileChangedMsg struct {
	path string
}

// editorFinishedMsg reports the external editor exiting.
type editorFinishedMsg struct {
	path string
	err  error
}

// tasksLoadedMsg carries the backend's task list.
type tasksLoadedMsg struct {
	infos []api.TaskInfo
}

// generationQueuedMsg reports a newly created generation task.
type generationQueuedMsg struct {
	task *api.Task
	meta tasks.Meta
}

// taskProgressMsg reports mid-flight progress of a watched task.
type taskProgressMsg struct {
	taskID   string
	fraction float64
}

// taskCompletedMsg reports a watched task finishing with audio.
type taskCompletedMsg struct {
	completion tasks.Completion
}

// taskFailedMsg reports a watched task failing.
type taskFailedMsg struct {
	meta   tasks.Meta
	reason string
}

// playerUpdatedMsg signals that a player snapshot changed and the
// player bar should re-read it.
type playerUpdatedMsg struct{}

// statusMessageTimeoutMsg expires a transient status-bar message.
type statusMessageTimeoutMsg struct{}

// urlCopiedMsg confirms a clipboard copy.
type urlCopiedMsg struct {
	url string
}

// COMMANDS

func loadProjectsCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		projects, err := client.Projects(ctx)
		if err != nil {
			return errMsg{err}
		}
		return projectsLoadedMsg{projects: projects}
	}
}

func loadProvidersCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		providers, err := client.Providers(ctx)
		if err != nil {
			return errMsg{err}
		}
		return providersLoadedMsg{providers: providers}
	}
}

func loadVoicesCmd(client *api.Client, provider string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		voices, err := client.Voices(ctx, provider)
		if err != nil {
			return errMsg{err}
		}
		return voicesLoadedMsg{provider: provider, voices: voices}
	}
}

func loadCastingCmd(client *api.Client, project string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		raw, err := client.Casting(ctx, project)
		if err != nil {
			return errMsg{err}
		}
		doc, err := casting.Parse(raw)
		if err != nil {
			return errMsg{err}
		}
		return castingLoadedMsg{project: project, doc: doc, raw: raw}
	}
}

func saveCastingCmd(client *api.Client, project string, doc *casting.Document) tea.Cmd {
	return func() tea.Msg {
		raw, err := doc.Render()
		if err != nil {
			return errMsg{err}
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := client.SaveCasting(ctx, project, raw); err != nil {
			return errMsg{err}
		}
		return castingSavedMsg{project: project}
	}
}

func loadTasksCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		infos, err := client.Tasks(ctx)
		if err != nil {
			return errMsg{err}
		}
		return tasksLoadedMsg{infos: infos}
	}
}

func generateLineCmd(client *api.Client, req api.GenerationRequest, meta tasks.Meta) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		task, err := client.Generate(ctx, req)
		if err != nil {
			return errMsg{err}
		}
		meta.TaskID = task.ID
		return generationQueuedMsg{task: task, meta: meta}
	}
}

// watchTaskCmd polls a task to its terminal state. Progress updates
// flow through events; the command itself returns the terminal
// message.
func watchTaskCmd(client *api.Client, meta tasks.Meta, events chan<- tea.Msg) tea.Cmd {
	return func() tea.Msg {
		var terminal tea.Msg
		poller := tasks.NewPoller(client, tasks.Config{}, tasks.Events{
			Completed: func(c tasks.Completion) {
				terminal = taskCompletedMsg{completion: c}
			},
			Failed: func(meta tasks.Meta, reason string) {
				terminal = taskFailedMsg{meta: meta, reason: reason}
			},
			Progress: func(taskID string, fraction float64) {
				select {
				case events <- taskProgressMsg{taskID: taskID, fraction: fraction}:
				default:
				}
			},
		})
		if err := poller.Watch(context.Background(), meta); err != nil && terminal == nil {
			return taskFailedMsg{meta: meta, reason: err.Error()}
		}
		if terminal == nil {
			return nil
		}
		return terminal
	}
}

// listenEvents re-arms the bridge from background goroutines into the
// Bubble Tea loop.
func listenEvents(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

// copyURLCmd puts the current download URL on the system clipboard.
func copyURLCmd(url string) tea.Cmd {
	return func() tea.Msg {
		if err := clipboard.WriteAll(url); err != nil {
			return errMsg{err}
		}
		return urlCopiedMsg{url: url}
	}
}

// openEditorCmd hands the exported casting file to $EDITOR.
func openEditorCmd(path string) tea.Cmd {
	cmd, err := editor.Cmd("tableread", path)
	if err != nil {
		return func() tea.Msg { return errMsg{err} }
	}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return editorFinishedMsg{path: path, err: err}
	})
}

// watchCastingFile pushes change notifications for the exported
// casting file into the event bridge until stop is closed.
func watchCastingFile(path string, events chan<- tea.Msg, stop <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					select {
					case events <- castingFileChangedMsg{path: ev.Name}:
					default:
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Debug("casting watch error", "err", err)
			case <-stop:
				return
			}
		}
	}()
	return nil
}

func statusTimeoutCmd() tea.Cmd {
	return tea.Tick(statusMessageTimeout, func(time.Time) tea.Msg {
		return statusMessageTimeoutMsg{}
	})
}
