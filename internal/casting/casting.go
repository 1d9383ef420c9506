// Package casting models the voice casting document: the YAML file
// mapping each screenplay character to a TTS provider and voice.
package casting

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tableread/tableread/internal/api"
)

// DefaultSpeaker is the reserved entry used for all non-dialogue lines
// and for characters without their own assignment.
const DefaultSpeaker = "default"

// Voice is one character's assignment. Provider-specific fields
// (voice ids, models, speeds) live in Config; the document keeps them
// opaque and lets the backend validate their meaning.
type Voice struct {
	Provider string                 `yaml:"provider"`
	VoiceID  string                 `yaml:"sts_id,omitempty"`
	Config   map[string]interface{} `yaml:",inline"`
}

// Document is a parsed casting file: a flat map of speaker name to
// voice assignment, with the default speaker alongside the characters.
type Document struct {
	Speakers map[string]Voice
}

// Parse reads a casting document from YAML.
func Parse(data []byte) (*Document, error) {
	speakers := make(map[string]Voice)
	if err := yaml.Unmarshal(data, &speakers); err != nil {
		return nil, fmt.Errorf("parse casting: %w", err)
	}
	return &Document{Speakers: speakers}, nil
}

// Render writes the document as YAML with a stable entry order: the
// default speaker first, then characters alphabetically. Stable order
// keeps diffs and file watches meaningful across round trips.
func (d *Document) Render() ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}

	for _, name := range d.order() {
		voice := d.Speakers[name]
		value := &yaml.Node{}
		if err := value.Encode(voice); err != nil {
			return nil, fmt.Errorf("render casting: %w", err)
		}
		sortInline(value)
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: name}
		root.Content = append(root.Content, key, value)
	}

	var buf strings.Builder
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("render casting: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("render casting: %w", err)
	}
	return []byte(buf.String()), nil
}

// Names returns the speakers in render order: the default speaker
// first, then characters alphabetically.
func (d *Document) Names() []string {
	return d.order()
}

// order returns the speakers in render order.
func (d *Document) order() []string {
	names := make([]string, 0, len(d.Speakers))
	for name := range d.Speakers {
		if name == DefaultSpeaker {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	if _, ok := d.Speakers[DefaultSpeaker]; ok {
		names = append([]string{DefaultSpeaker}, names...)
	}
	return names
}

// sortInline reorders a speaker's mapping so provider and sts_id lead
// and the inlined config fields follow alphabetically. Map iteration
// order would otherwise make Render unstable.
func sortInline(node *yaml.Node) {
	if node.Kind != yaml.MappingNode {
		return
	}

	type pair struct{ key, value *yaml.Node }
	pairs := make([]pair, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		pairs = append(pairs, pair{node.Content[i], node.Content[i+1]})
	}

	rank := func(key string) int {
		switch key {
		case "provider":
			return 0
		case "sts_id":
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		ri, rj := rank(pairs[i].key.Value), rank(pairs[j].key.Value)
		if ri != rj {
			return ri < rj
		}
		return pairs[i].key.Value < pairs[j].key.Value
	})

	node.Content = node.Content[:0]
	for _, p := range pairs {
		node.Content = append(node.Content, p.key, p.value)
	}
}

// Issue is one validation finding.
type Issue struct {
	Speaker string
	Problem string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Speaker, i.Problem)
}

// Validate checks the document against the backend's provider list.
// It reports structural problems only; provider-specific field
// validation belongs to the backend.
func (d *Document) Validate(providers []api.ProviderInfo) []Issue {
	known := make(map[string]bool, len(providers))
	for _, p := range providers {
		known[p.Identifier] = true
	}

	var issues []Issue
	for _, name := range d.order() {
		voice := d.Speakers[name]
		if voice.Provider == "" {
			issues = append(issues, Issue{Speaker: name, Problem: "no provider assigned"})
			continue
		}
		if len(known) > 0 && !known[voice.Provider] {
			issues = append(issues, Issue{Speaker: name, Problem: fmt.Sprintf("unknown provider %q", voice.Provider)})
		}
		if voice.VoiceID == "" && len(voice.Config) == 0 {
			issues = append(issues, Issue{Speaker: name, Problem: "no voice configured"})
		}
	}
	if _, ok := d.Speakers[DefaultSpeaker]; !ok {
		issues = append(issues, Issue{Speaker: DefaultSpeaker, Problem: "missing default speaker"})
	}
	return issues
}

// Diff summarizes the changes from old to new for display: speaker
// names added, removed, and reassigned.
type Diff struct {
	Added   []string
	Removed []string
	Changed []string
}

// Empty reports whether the diff carries no changes.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Compare diffs two documents by speaker.
func Compare(before, after *Document) Diff {
	var diff Diff
	for _, name := range after.order() {
		prev, ok := before.Speakers[name]
		if !ok {
			diff.Added = append(diff.Added, name)
			continue
		}
		if !equalVoice(prev, after.Speakers[name]) {
			diff.Changed = append(diff.Changed, name)
		}
	}
	for _, name := range before.order() {
		if _, ok := after.Speakers[name]; !ok {
			diff.Removed = append(diff.Removed, name)
		}
	}
	return diff
}

func equalVoice(a, b Voice) bool {
	if a.Provider != b.Provider || a.VoiceID != b.VoiceID {
		return false
	}
	if len(a.Config) != len(b.Config) {
		return false
	}
	for k, av := range a.Config {
		bv, ok := b.Config[k]
		if !ok || fmt.Sprint(av) != fmt.Sprint(bv) {
			return false
		}
	}
	return true
}
