package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
	"github.com/sahilm/fuzzy"

	"github.com/tableread/tableread/internal/api"
	"github.com/tableread/tableread/internal/casting"
)

// castingState tracks the pane's input mode.
type castingState int

const (
	castingBrowsing castingState = iota
	castingPickingVoice
)

// castingModel shows and edits the selected project's voice casting.
type castingModel struct {
	state   castingState
	project string

	doc    *casting.Document
	issues []casting.Issue
	dirty  bool

	providers []api.ProviderInfo
	voices    map[string][]api.VoiceEntry

	cursor int

	// Voice picker state.
	query   string
	matches []int
	pick    int

	width  int
	height int
}

func newCastingModel() castingModel {
	return castingModel{voices: make(map[string][]api.VoiceEntry)}
}

func (m *castingModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

func (m *castingModel) setDocument(project string, doc *casting.Document) {
	m.project = project
	m.doc = doc
	m.cursor = 0
	m.dirty = false
	m.revalidate()
}

func (m *castingModel) setProviders(providers []api.ProviderInfo) {
	m.providers = providers
	m.revalidate()
}

func (m *castingModel) setVoices(provider string, voices []api.VoiceEntry) {
	m.voices[provider] = voices
	if m.state == castingPickingVoice {
		m.refilter()
	}
}

func (m *castingModel) revalidate() {
	if m.doc == nil {
		m.issues = nil
		return
	}
	m.issues = m.doc.Validate(m.providers)
}

// selectedSpeaker returns the speaker under the cursor and its voice.
func (m castingModel) selectedSpeaker() (string, casting.Voice, bool) {
	if m.doc == nil {
		return "", casting.Voice{}, false
	}
	names := m.doc.Names()
	if m.cursor < 0 || m.cursor >= len(names) {
		return "", casting.Voice{}, false
	}
	name := names[m.cursor]
	return name, m.doc.Speakers[name], true
}

// speakerIssues returns the validation findings for one speaker.
func (m castingModel) speakerIssues(name string) []casting.Issue {
	var out []casting.Issue
	for _, issue := range m.issues {
		if issue.Speaker == name {
			out = append(out, issue)
		}
	}
	return out
}

// candidateVoices returns the library entries for the selected
// speaker's provider.
func (m castingModel) candidateVoices() []api.VoiceEntry {
	_, voice, ok := m.selectedSpeaker()
	if !ok || voice.Provider == "" {
		return nil
	}
	return m.voices[voice.Provider]
}

// refilter recomputes fuzzy matches over the candidate voices.
func (m *castingModel) refilter() {
	voices := m.candidateVoices()
	if m.query == "" {
		m.matches = make([]int, len(voices))
		for i := range voices {
			m.matches[i] = i
		}
	} else {
		haystack := make([]string, len(voices))
		for i, v := range voices {
			haystack[i] = voiceFilterValue(v)
		}
		results := fuzzy.Find(m.query, haystack)
		m.matches = make([]int, len(results))
		for i, r := range results {
			m.matches[i] = r.Index
		}
	}
	if m.pick >= len(m.matches) {
		m.pick = 0
	}
}

// voiceFilterValue builds the searchable text for a voice entry.
func voiceFilterValue(v api.VoiceEntry) string {
	parts := []string{v.ID}
	if v.Description != nil {
		parts = append(parts, v.Description.ProviderName, v.Description.CustomDescription, v.Description.PerceivedAge)
	}
	if v.Properties != nil {
		parts = append(parts, v.Properties.Gender, v.Properties.Accent)
	}
	if v.Tags != nil {
		parts = append(parts, strings.Join(v.Tags.CharacterTypes, " "))
	}
	return strings.Join(parts, " ")
}

// assignVoice applies the picked library voice to the speaker under
// the cursor.
func (m *castingModel) assignVoice(v api.VoiceEntry) {
	name, voice, ok := m.selectedSpeaker()
	if !ok {
		return
	}
	voice.Provider = v.Provider
	voice.VoiceID = v.ID
	m.doc.Speakers[name] = voice
	m.dirty = true
	m.revalidate()
}

// previewURL returns the library preview for the speaker under the
// cursor, if its assigned voice has one.
func (m castingModel) previewURL() (url, speaker, provider string, ok bool) {
	name, voice, found := m.selectedSpeaker()
	if !found || voice.VoiceID == "" {
		return "", "", "", false
	}
	for _, v := range m.voices[voice.Provider] {
		if v.ID == voice.VoiceID && v.PreviewURL != "" {
			return v.PreviewURL, name, voice.Provider, true
		}
	}
	return "", "", "", false
}

func (m castingModel) update(msg tea.Msg) (castingModel, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.state == castingPickingVoice {
		switch key.String() {
		case "esc":
			m.state = castingBrowsing
			m.query = ""
		case "enter":
			voices := m.candidateVoices()
			if len(m.matches) > 0 && m.matches[m.pick] < len(voices) {
				m.assignVoice(voices[m.matches[m.pick]])
			}
			m.state = castingBrowsing
			m.query = ""
		case "up":
			if m.pick > 0 {
				m.pick--
			}
		case "down":
			if m.pick < len(m.matches)-1 {
				m.pick++
			}
		case "backspace":
			if len(m.query) > 0 {
				m.query = m.query[:len(m.query)-1]
				m.refilter()
			}
		default:
			if key.Type == tea.KeyRunes {
				m.query += string(key.Runes)
				m.refilter()
			}
		}
		return m, nil
	}

	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.doc != nil && m.cursor < len(m.doc.Names())-1 {
			m.cursor++
		}
	case "v":
		if _, voice, ok := m.selectedSpeaker(); ok && voice.Provider != "" {
			m.state = castingPickingVoice
			m.pick = 0
			m.refilter()
			if _, loaded := m.voices[voice.Provider]; !loaded {
				return m, requestVoicesCmd(voice.Provider)
			}
		}
	}
	return m, nil
}

// requestVoicesCmd asks the root model to fetch a provider's voices;
// routed there because the pane has no client.
func requestVoicesCmd(provider string) tea.Cmd {
	return func() tea.Msg {
		return voicesRequestedMsg{provider: provider}
	}
}

// voicesRequestedMsg asks the root model to load a voice library.
type voicesRequestedMsg struct {
	provider string
}

func (m castingModel) view() string {
	if m.doc == nil {
		return subtleStyle.Render("Select a project to load its casting.")
	}

	if m.state == castingPickingVoice {
		return m.pickerView()
	}

	var b strings.Builder
	title := fmt.Sprintf("Casting · %s", m.project)
	if m.dirty {
		title += " (unsaved)"
	}
	b.WriteString(paneTitleStyle.Render(title))
	b.WriteString("\n\n")

	names := m.doc.Names()
	for i, name := range names {
		voice := m.doc.Speakers[name]
		line := fmt.Sprintf("%s  %s", runewidth.FillRight(runewidth.Truncate(name, 20, ellipsis), 20), describeVoice(voice))
		if issues := m.speakerIssues(name); len(issues) > 0 {
			line += "  " + issueStyle.Render("! "+issues[0].Problem)
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
	if len(m.issues) == 0 {
		b.WriteString(okStyle.Render("casting is valid"))
	} else {
		b.WriteString(issueStyle.Render(fmt.Sprintf("%d issue(s)", len(m.issues))))
	}
	b.WriteString("\n")
	b.WriteString(subtleStyle.Render("v pick voice · g audition · s save · e edit in $EDITOR"))
	return wordwrap.String(b.String(), maxInt(m.width, 20))
}

func describeVoice(v casting.Voice) string {
	if v.Provider == "" {
		return subtleStyle.Render("unassigned")
	}
	if v.VoiceID != "" {
		return fmt.Sprintf("%s / %s", v.Provider, v.VoiceID)
	}
	return v.Provider
}

func (m castingModel) pickerView() string {
	var b strings.Builder
	name, _, _ := m.selectedSpeaker()
	b.WriteString(paneTitleStyle.Render(fmt.Sprintf("Pick voice · %s", name)))
	b.WriteString("\n\n")
	b.WriteString("filter: " + m.query + "\n\n")

	voices := m.candidateVoices()
	if len(voices) == 0 {
		b.WriteString(subtleStyle.Render("loading voice library…"))
		return b.String()
	}

	shown := 0
	for i, idx := range m.matches {
		if shown >= maxInt(m.height-8, 5) {
			break
		}
		v := voices[idx]
		line := v.ID
		if v.Description != nil && v.Description.ProviderName != "" {
			line += "  " + subtleStyle.Render(v.Description.ProviderName)
		}
		if i == m.pick {
			line = "> " + line
		} else {
			line = "  " + line
		}
		b.WriteString(runewidth.Truncate(line, maxInt(m.width-2, 20), ellipsis))
		b.WriteString("\n")
		shown++
	}
	b.WriteString("\n")
	b.WriteString(subtleStyle.Render("enter assign · esc cancel"))
	return b.String()
}
