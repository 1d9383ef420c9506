package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
)

const (
	requestTimeout = 30 * time.Second
	maxRetries     = 2
	retryBackoff   = 250 * time.Millisecond
)

// Client talks to the audiobook generation backend. Safe for
// concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a backend client for the given base URL, e.g.
// "http://localhost:8000".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// apiEnvelope is the ok/data wrapper some backend endpoints use.
type apiEnvelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// Projects lists discovered workspace projects, most recently modified
// first.
func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	var env apiEnvelope
	if err := c.get(ctx, "/api/projects/discover", &env); err != nil {
		return nil, err
	}
	if !env.OK {
		return nil, &Error{StatusCode: http.StatusOK, Message: env.Error}
	}

	var projects []Project
	if err := json.Unmarshal(env.Data, &projects); err != nil {
		return nil, fmt.Errorf("parse projects: %w", err)
	}
	return projects, nil
}

// Providers lists the available TTS providers with their field
// schemas.
func (c *Client) Providers(ctx context.Context) ([]ProviderInfo, error) {
	var infos []ProviderInfo
	if err := c.get(ctx, "/api/providers/info", &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// Provider fetches a single provider's field schema.
func (c *Client) Provider(ctx context.Context, identifier string) (*ProviderInfo, error) {
	var info ProviderInfo
	if err := c.get(ctx, "/api/providers/"+url.PathEscape(identifier), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Voices lists the voice library entries for a provider.
func (c *Client) Voices(ctx context.Context, provider string) ([]VoiceEntry, error) {
	var entries []VoiceEntry
	if err := c.get(ctx, "/api/voice-library/"+url.PathEscape(provider), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Casting fetches a project's voice casting document as raw YAML.
func (c *Client) Casting(ctx context.Context, project string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/projects/"+url.PathEscape(project)+"/casting", nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// SaveCasting replaces a project's voice casting document.
func (c *Client) SaveCasting(ctx context.Context, project string, doc []byte) error {
	resp, err := c.do(ctx, http.MethodPut, "/api/projects/"+url.PathEscape(project)+"/casting", bytes.NewReader(doc), "application/yaml")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// UploadScreenplay uploads a screenplay file for parsing and returns
// the created task.
func (c *Client) UploadScreenplay(ctx context.Context, filename string, r io.Reader) (*Task, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}

	// bytes.Reader keeps the body replayable so uploads retry like
	// every other call.
	resp, err := c.do(ctx, http.MethodPost, "/api/upload", bytes.NewReader(buf.Bytes()), mw.FormDataContentType())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var task Task
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		return nil, fmt.Errorf("parse upload response: %w", err)
	}
	return &task, nil
}

// Generate creates an audio generation task.
func (c *Client) Generate(ctx context.Context, req GenerationRequest) (*Task, error) {
	var task Task
	if err := c.post(ctx, "/api/generate", req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// TaskStatus fetches the status of a generation task.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (*TaskInfo, error) {
	var info TaskInfo
	if err := c.get(ctx, "/api/generate/status/"+url.PathEscape(taskID), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Tasks lists all generation tasks known to the backend.
func (c *Client) Tasks(ctx context.Context) ([]TaskInfo, error) {
	var infos []TaskInfo
	if err := c.get(ctx, "/api/generate/tasks", &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// Cleanup removes finished generation tasks from the backend.
func (c *Client) Cleanup(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodDelete, "/api/generate/cleanup", nil, "")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// CacheMisses fetches the review report of lines without cached audio.
func (c *Client) CacheMisses(ctx context.Context, project string) (*CacheMisses, error) {
	var misses CacheMisses
	if err := c.get(ctx, "/api/review/cache-misses/"+url.PathEscape(project), &misses); err != nil {
		return nil, err
	}
	return &misses, nil
}

// get issues a GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// post issues a POST with a JSON body and decodes the JSON response
// into out.
func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, path, bytes.NewReader(payload), "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// do issues the request with bounded retries on transport errors and
// 5xx responses. POSTs with a non-replayable body are retried only
// when the body is a *bytes.Reader, which all callers here use.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			log.Debug("retrying backend request", "method", method, "path", path, "attempt", attempt)
			select {
			case <-time.After(retryBackoff * time.Duration(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			if seeker, ok := body.(io.Seeker); ok {
				if _, err := seeker.Seek(0, io.SeekStart); err != nil {
					return nil, lastErr
				}
			} else if body != nil {
				return nil, lastErr
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("backend request: %w", err)
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = c.errorFromResponse(resp)
			resp.Body.Close()
			continue
		}
		if resp.StatusCode >= 400 {
			err := c.errorFromResponse(resp)
			resp.Body.Close()
			return nil, err
		}
		return resp, nil
	}
	return nil, lastErr
}

// errorFromResponse builds an *Error from a non-2xx response, reading
// the backend's error body when it sent one.
func (c *Client) errorFromResponse(resp *http.Response) error {
	apiErr := &Error{
		StatusCode: resp.StatusCode,
		Message:    http.StatusText(resp.StatusCode),
	}

	var body struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err == nil {
		if body.Error != "" {
			apiErr.Message = body.Error
		}
		if body.Detail != "" {
			apiErr.Detail = body.Detail
		}
	}
	return apiErr
}
