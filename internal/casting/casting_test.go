package casting

import (
	"reflect"
	"strings"
	"testing"

	"github.com/tableread/tableread/internal/api"
)

const sampleDoc = `default:
  provider: openai
  voice: onyx
JULIET:
  provider: elevenlabs
  sts_id: el_juliet
ROMEO:
  provider: elevenlabs
  sts_id: el_romeo
  stability: 0.4
`

// TestParse verifies the flat speaker map decodes with inline
// provider fields.
func TestParse(t *testing.T) {
	doc, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(doc.Speakers) != 3 {
		t.Fatalf("got %d speakers, want 3", len(doc.Speakers))
	}

	def := doc.Speakers[DefaultSpeaker]
	if def.Provider != "openai" || def.Config["voice"] != "onyx" {
		t.Errorf("default = %+v", def)
	}

	romeo := doc.Speakers["ROMEO"]
	if romeo.Provider != "elevenlabs" || romeo.VoiceID != "el_romeo" {
		t.Errorf("romeo = %+v", romeo)
	}
	if _, ok := romeo.Config["stability"]; !ok {
		t.Errorf("romeo config lost inline field: %+v", romeo.Config)
	}
}

// TestParseRejectsMalformedYAML verifies a parse failure surfaces an
// error.
func TestParseRejectsMalformedYAML(t *testing.T) {
	if _, err := Parse([]byte("default: [unclosed")); err == nil {
		t.Error("no error on malformed document")
	}
}

// TestRenderOrder verifies the default speaker renders first and
// characters follow alphabetically.
func TestRenderOrder(t *testing.T) {
	doc := &Document{Speakers: map[string]Voice{
		"ROMEO":        {Provider: "elevenlabs", VoiceID: "el_romeo"},
		DefaultSpeaker: {Provider: "openai", Config: map[string]interface{}{"voice": "onyx"}},
		"JULIET":       {Provider: "elevenlabs", VoiceID: "el_juliet"},
	}}

	out, err := doc.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	text := string(out)
	defaultAt := strings.Index(text, "default:")
	julietAt := strings.Index(text, "JULIET:")
	romeoAt := strings.Index(text, "ROMEO:")
	if defaultAt < 0 || julietAt < 0 || romeoAt < 0 {
		t.Fatalf("missing speakers in output:\n%s", text)
	}
	if !(defaultAt < julietAt && julietAt < romeoAt) {
		t.Errorf("wrong speaker order:\n%s", text)
	}
}

// TestRenderStable verifies two renders of the same document are
// byte-identical.
func TestRenderStable(t *testing.T) {
	doc, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	first, err := doc.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	second, err := doc.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if string(first) != string(second) {
		t.Errorf("renders differ:\n%s\n---\n%s", first, second)
	}
}

// TestRenderParseRoundTrip verifies a rendered document parses back to
// the same assignments.
func TestRenderParseRoundTrip(t *testing.T) {
	original, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	out, err := original.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	reparsed, err := Parse(out)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}

	for name, want := range original.Speakers {
		got, ok := reparsed.Speakers[name]
		if !ok {
			t.Errorf("speaker %q lost in round trip", name)
			continue
		}
		if got.Provider != want.Provider || got.VoiceID != want.VoiceID {
			t.Errorf("speaker %q = %+v, want %+v", name, got, want)
		}
	}
}

func testProviders() []api.ProviderInfo {
	return []api.ProviderInfo{
		{Identifier: "openai", Name: "OpenAI"},
		{Identifier: "elevenlabs", Name: "ElevenLabs"},
	}
}

// TestValidate exercises the structural checks.
func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		doc  *Document
		want []Issue
	}{
		{
			name: "clean document",
			doc: &Document{Speakers: map[string]Voice{
				DefaultSpeaker: {Provider: "openai", Config: map[string]interface{}{"voice": "onyx"}},
				"ROMEO":        {Provider: "elevenlabs", VoiceID: "el_romeo"},
			}},
			want: nil,
		},
		{
			name: "unknown provider",
			doc: &Document{Speakers: map[string]Voice{
				DefaultSpeaker: {Provider: "acme", VoiceID: "v1"},
			}},
			want: []Issue{{Speaker: DefaultSpeaker, Problem: `unknown provider "acme"`}},
		},
		{
			name: "missing provider",
			doc: &Document{Speakers: map[string]Voice{
				DefaultSpeaker: {Provider: "openai", VoiceID: "v1"},
				"ROMEO":        {},
			}},
			want: []Issue{{Speaker: "ROMEO", Problem: "no provider assigned"}},
		},
		{
			name: "no voice configured",
			doc: &Document{Speakers: map[string]Voice{
				DefaultSpeaker: {Provider: "openai"},
			}},
			want: []Issue{{Speaker: DefaultSpeaker, Problem: "no voice configured"}},
		},
		{
			name: "missing default speaker",
			doc: &Document{Speakers: map[string]Voice{
				"ROMEO": {Provider: "elevenlabs", VoiceID: "el_romeo"},
			}},
			want: []Issue{{Speaker: DefaultSpeaker, Problem: "missing default speaker"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.doc.Validate(testProviders())
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("issues = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestCompare verifies added, removed, and reassigned speakers are
// reported.
func TestCompare(t *testing.T) {
	old := &Document{Speakers: map[string]Voice{
		DefaultSpeaker: {Provider: "openai", VoiceID: "v1"},
		"ROMEO":        {Provider: "elevenlabs", VoiceID: "el_romeo"},
		"MERCUTIO":     {Provider: "elevenlabs", VoiceID: "el_mercutio"},
	}}
	updated := &Document{Speakers: map[string]Voice{
		DefaultSpeaker: {Provider: "openai", VoiceID: "v1"},
		"ROMEO":        {Provider: "openai", VoiceID: "oa_romeo"},
		"JULIET":       {Provider: "elevenlabs", VoiceID: "el_juliet"},
	}}

	diff := Compare(old, updated)
	if !reflect.DeepEqual(diff.Added, []string{"JULIET"}) {
		t.Errorf("added = %v", diff.Added)
	}
	if !reflect.DeepEqual(diff.Removed, []string{"MERCUTIO"}) {
		t.Errorf("removed = %v", diff.Removed)
	}
	if !reflect.DeepEqual(diff.Changed, []string{"ROMEO"}) {
		t.Errorf("changed = %v", diff.Changed)
	}
	if diff.Empty() {
		t.Error("diff reported empty")
	}

	if !Compare(old, old).Empty() {
		t.Error("self-diff not empty")
	}
}
