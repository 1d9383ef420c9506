// Package api is the REST client for the audiobook generation backend.
package api

import "fmt"

// TaskStatus is the lifecycle state of a backend task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// Terminal reports whether the task has finished, successfully or not.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// Project is a discovered workspace project.
type Project struct {
	Name           string `json:"name"`
	InputPath      string `json:"input_path"`
	OutputPath     string `json:"output_path"`
	HasScreenplay  bool   `json:"has_json"`
	HasVoiceConfig bool   `json:"has_voice_config"`
	LastModified   string `json:"last_modified"`
}

// ProviderField describes one configuration field of a TTS provider.
type ProviderField struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Required    bool     `json:"required"`
	Description string   `json:"description,omitempty"`
	Options     []string `json:"options,omitempty"`
}

// ProviderInfo describes a TTS provider exposed by the backend.
type ProviderInfo struct {
	Identifier     string          `json:"identifier"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	RequiredFields []ProviderField `json:"required_fields"`
	OptionalFields []ProviderField `json:"optional_fields"`
	MaxThreads     int             `json:"max_threads"`
}

// VoiceProperties are the perceptual attributes of a library voice.
// Scalar attributes are normalized to [0, 1]; nil means unrated.
type VoiceProperties struct {
	Accent       string   `json:"accent,omitempty"`
	Gender       string   `json:"gender,omitempty"`
	Age          *float64 `json:"age,omitempty"`
	Authority    *float64 `json:"authority,omitempty"`
	Energy       *float64 `json:"energy,omitempty"`
	Pace         *float64 `json:"pace,omitempty"`
	Performative *float64 `json:"performative,omitempty"`
	Pitch        *float64 `json:"pitch,omitempty"`
	Quality      *float64 `json:"quality,omitempty"`
	Range        *float64 `json:"range,omitempty"`
}

// VoiceDescription is the free-text description of a library voice.
type VoiceDescription struct {
	ProviderName        string `json:"provider_name,omitempty"`
	ProviderDescription string `json:"provider_description,omitempty"`
	ProviderUseCases    string `json:"provider_use_cases,omitempty"`
	CustomDescription   string `json:"custom_description,omitempty"`
	PerceivedAge        string `json:"perceived_age,omitempty"`
}

// VoiceTags are the searchable labels of a library voice.
type VoiceTags struct {
	ProviderUseCases []string `json:"provider_use_cases,omitempty"`
	CustomTags       []string `json:"custom_tags,omitempty"`
	CharacterTypes   []string `json:"character_types,omitempty"`
}

// VoiceEntry is one voice in the backend's voice library.
type VoiceEntry struct {
	ID          string                 `json:"sts_id"`
	Provider    string                 `json:"provider"`
	Config      map[string]interface{} `json:"config"`
	Properties  *VoiceProperties       `json:"voice_properties,omitempty"`
	Description *VoiceDescription      `json:"description,omitempty"`
	Tags        *VoiceTags             `json:"tags,omitempty"`
	PreviewURL  string                 `json:"preview_url,omitempty"`
}

// GenerationRequest asks the backend to synthesize audio for a line.
type GenerationRequest struct {
	Provider       string                 `json:"provider"`
	Config         map[string]interface{} `json:"config"`
	Text           string                 `json:"text"`
	VoiceID        string                 `json:"sts_id,omitempty"`
	Variants       int                    `json:"variants,omitempty"`
	OutputFilename string                 `json:"output_filename,omitempty"`
}

// Task is the backend's acknowledgement of a newly created task.
type Task struct {
	ID      string     `json:"task_id"`
	Status  TaskStatus `json:"status"`
	Message string     `json:"message"`
}

// TaskInfo is the full status of a backend task.
type TaskInfo struct {
	ID          string                 `json:"task_id"`
	Status      TaskStatus             `json:"status"`
	Message     string                 `json:"message"`
	Progress    *float64               `json:"progress,omitempty"`
	Error       string                 `json:"error,omitempty"`
	AudioURLs   []string               `json:"audio_urls,omitempty"`
	CreatedAt   string                 `json:"created_at,omitempty"`
	CompletedAt string                 `json:"completed_at,omitempty"`
	Request     map[string]interface{} `json:"request,omitempty"`
}

// ProblemClip is a dialogue line flagged during review: either its
// cached audio is missing or it rendered as silence.
type ProblemClip struct {
	CacheFilename string                 `json:"cache_filename"`
	Speaker       string                 `json:"speaker"`
	VoiceID       string                 `json:"voice_id"`
	Provider      string                 `json:"provider"`
	Text          string                 `json:"text"`
	DBFSLevel     *float64               `json:"dbfs_level,omitempty"`
	SpeakerConfig map[string]interface{} `json:"speaker_config,omitempty"`
}

// CacheMisses is the review report of lines without cached audio. The
// list is capped server-side; Total carries the uncapped count.
type CacheMisses struct {
	CacheMisses []ProblemClip `json:"cache_misses"`
	Capped      bool          `json:"cache_misses_capped"`
	Total       int           `json:"total_cache_misses"`
	CacheFolder string        `json:"cache_folder"`
	ScannedAt   string        `json:"scanned_at"`
}

// Error is a failed backend call. Message carries the backend's error
// text when it sent one, otherwise the HTTP status text.
type Error struct {
	StatusCode int
	Message    string
	Detail     string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend: %s: %s (status %d)", e.Message, e.Detail, e.StatusCode)
	}
	return fmt.Sprintf("backend: %s (status %d)", e.Message, e.StatusCode)
}
