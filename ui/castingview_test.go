package ui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tableread/tableread/internal/api"
	"github.com/tableread/tableread/internal/casting"
)

func testDocument(t *testing.T) *casting.Document {
	t.Helper()
	doc, err := casting.Parse([]byte(`default:
  provider: openai
  sts_id: onyx
HAMLET:
  provider: elevenlabs
OPHELIA: {}
`))
	if err != nil {
		t.Fatalf("parse casting: %v", err)
	}
	return doc
}

func testVoices() []api.VoiceEntry {
	return []api.VoiceEntry{
		{ID: "rachel", Provider: "elevenlabs", Description: &api.VoiceDescription{ProviderName: "Rachel"}},
		{ID: "adam", Provider: "elevenlabs", Description: &api.VoiceDescription{ProviderName: "Adam"}},
		{ID: "bella", Provider: "elevenlabs", Description: &api.VoiceDescription{ProviderName: "Bella"}},
	}
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestPickVoiceAssignsAndMarksDirty(t *testing.T) {
	m := newCastingModel()
	m.setDocument("hamlet", testDocument(t))
	m.setVoices("elevenlabs", testVoices())

	// Cursor order is default, then speakers alphabetically; move to
	// HAMLET, which has a provider but no voice yet.
	m, _ = m.update(keyMsg("down"))
	m, _ = m.update(keyMsg("v"))
	if m.state != castingPickingVoice {
		t.Fatalf("state = %v, want picker", m.state)
	}

	// Narrow to a single match and assign it.
	for _, r := range "bella" {
		m, _ = m.update(keyMsg(string(r)))
	}
	if len(m.matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(m.matches))
	}
	m, _ = m.update(keyMsg("enter"))

	if m.state != castingBrowsing {
		t.Errorf("state = %v, want browsing", m.state)
	}
	got := m.doc.Speakers["HAMLET"]
	if got.VoiceID != "bella" || got.Provider != "elevenlabs" {
		t.Errorf("assigned voice = %+v, want bella/elevenlabs", got)
	}
	if !m.dirty {
		t.Error("document should be dirty after assignment")
	}
}

func TestPickerEscLeavesDocumentUntouched(t *testing.T) {
	m := newCastingModel()
	m.setDocument("hamlet", testDocument(t))
	m.setVoices("elevenlabs", testVoices())

	m, _ = m.update(keyMsg("down"))
	m, _ = m.update(keyMsg("v"))
	m, _ = m.update(keyMsg("r"))
	m, _ = m.update(keyMsg("esc"))

	if m.state != castingBrowsing {
		t.Errorf("state = %v, want browsing", m.state)
	}
	if m.dirty {
		t.Error("esc must not dirty the document")
	}
	if got := m.doc.Speakers["HAMLET"].VoiceID; got != "" {
		t.Errorf("voice id = %q, want empty", got)
	}
}

func TestPickerRequestsUnloadedLibrary(t *testing.T) {
	m := newCastingModel()
	m.setDocument("hamlet", testDocument(t))

	m, _ = m.update(keyMsg("down"))
	m, cmd := m.update(keyMsg("v"))
	if cmd == nil {
		t.Fatal("expected a voice load request")
	}
	msg, ok := cmd().(voicesRequestedMsg)
	if !ok {
		t.Fatalf("cmd returned %T, want voicesRequestedMsg", cmd())
	}
	if msg.provider != "elevenlabs" {
		t.Errorf("provider = %q, want elevenlabs", msg.provider)
	}
}

func TestVoicePickerSkipsSpeakerWithoutProvider(t *testing.T) {
	m := newCastingModel()
	m.setDocument("hamlet", testDocument(t))

	// OPHELIA has no provider assigned; v must be a no-op there.
	m, _ = m.update(keyMsg("down"))
	m, _ = m.update(keyMsg("down"))
	m, _ = m.update(keyMsg("v"))
	if m.state != castingBrowsing {
		t.Errorf("state = %v, want browsing", m.state)
	}
}

func TestFormatClock(t *testing.T) {
	for _, tc := range []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{9 * time.Second, "0:09"},
		{61 * time.Second, "1:01"},
		{10*time.Minute + 30*time.Second, "10:30"},
	} {
		if got := formatClock(tc.d); got != tc.want {
			t.Errorf("formatClock(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}
