package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestProjectsUnwrapsEnvelope verifies the ok/data wrapper on the
// discovery endpoint is unwrapped into the project list.
func TestProjectsUnwrapsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/projects/discover" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok": true, "data": [
			{"name": "macbeth", "input_path": "/in/macbeth", "output_path": "/out/macbeth",
			 "has_json": true, "has_voice_config": true, "last_modified": "2026-08-01T10:00:00Z"}
		]}`))
	}))
	defer srv.Close()

	projects, err := NewClient(srv.URL).Projects(context.Background())
	if err != nil {
		t.Fatalf("Projects: %v", err)
	}
	if len(projects) != 1 {
		t.Fatalf("got %d projects, want 1", len(projects))
	}
	p := projects[0]
	if p.Name != "macbeth" || !p.HasScreenplay || !p.HasVoiceConfig {
		t.Errorf("project = %+v", p)
	}
}

// TestProjectsEnvelopeError verifies a not-ok envelope surfaces the
// backend's error text.
func TestProjectsEnvelopeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok": false, "error": "Failed to discover projects"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Projects(context.Background())
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if apiErr.Message != "Failed to discover projects" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

// TestGeneratePostsJSON verifies the generation request body and task
// decoding.
func TestGeneratePostsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/generate" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		var req GenerationRequest
		if err := decodeBody(r, &req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Provider != "elevenlabs" || req.VoiceID != "el_bob" || req.Text != "To be, or not to be" {
			t.Errorf("request = %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"task_id": "t-1", "status": "pending", "message": "queued"}`))
	}))
	defer srv.Close()

	task, err := NewClient(srv.URL).Generate(context.Background(), GenerationRequest{
		Provider: "elevenlabs",
		Config:   map[string]interface{}{"voice_id": "abc"},
		Text:     "To be, or not to be",
		VoiceID:  "el_bob",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if task.ID != "t-1" || task.Status != TaskPending {
		t.Errorf("task = %+v", task)
	}
}

// TestTaskStatusDecodesAudioURLs verifies a completed task's audio
// URLs and progress come through.
func TestTaskStatusDecodesAudioURLs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate/status/t-9" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"task_id": "t-9", "status": "completed", "message": "done",
			"progress": 1.0, "audio_urls": ["http://backend/files/a.mp3", "http://backend/files/b.mp3"]}`))
	}))
	defer srv.Close()

	info, err := NewClient(srv.URL).TaskStatus(context.Background(), "t-9")
	if err != nil {
		t.Fatalf("TaskStatus: %v", err)
	}
	if info.Status != TaskCompleted || !info.Status.Terminal() {
		t.Errorf("status = %q", info.Status)
	}
	if len(info.AudioURLs) != 2 || info.AudioURLs[0] != "http://backend/files/a.mp3" {
		t.Errorf("audio urls = %v", info.AudioURLs)
	}
	if info.Progress == nil || *info.Progress != 1.0 {
		t.Errorf("progress = %v", info.Progress)
	}
}

// TestClientErrorNotRetried verifies a 4xx maps to *Error immediately.
func TestClientErrorNotRetried(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "Task not found", "detail": "no task t-404"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).TaskStatus(context.Background(), "t-404")
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Message != "Task not found" {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if hits != 1 {
		t.Errorf("server hit %d times, want 1", hits)
	}
}

// TestServerErrorRetried verifies 5xx responses are retried and a
// later success wins.
func TestServerErrorRetried(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).Tasks(context.Background()); err != nil {
		t.Fatalf("Tasks: %v", err)
	}
	if hits != 2 {
		t.Errorf("server hit %d times, want 2", hits)
	}
}

// TestUploadScreenplayMultipart verifies the upload is a multipart
// form carrying the file under the expected field name.
func TestUploadScreenplayMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		f, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		if header.Filename != "macbeth.pdf" {
			t.Errorf("filename = %q", header.Filename)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"task_id": "t-up", "status": "pending", "message": "parsing"}`))
	}))
	defer srv.Close()

	task, err := NewClient(srv.URL).UploadScreenplay(context.Background(), "macbeth.pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("UploadScreenplay: %v", err)
	}
	if task.ID != "t-up" {
		t.Errorf("task = %+v", task)
	}
}

// TestUploadRetriedWithFullBody verifies an upload survives a 5xx and
// replays the complete multipart body on the second attempt.
func TestUploadRetriedWithFullBody(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		body, err := io.ReadAll(f)
		if err != nil {
			t.Fatalf("read file: %v", err)
		}
		if string(body) != "%PDF-1.4" {
			t.Errorf("retried body = %q, want the full file", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"task_id": "t-up2", "status": "pending"}`))
	}))
	defer srv.Close()

	task, err := NewClient(srv.URL).UploadScreenplay(context.Background(), "macbeth.pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("UploadScreenplay: %v", err)
	}
	if hits != 2 {
		t.Errorf("server hit %d times, want 2", hits)
	}
	if task.ID != "t-up2" {
		t.Errorf("task = %+v", task)
	}
}

// decodeBody decodes a JSON request body in tests.
func decodeBody(r *http.Request, out interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}
