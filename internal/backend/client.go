// Package backend drives the task state machine against the remote
// conversion service instead of the built-in simulator.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"video-captioner/internal/domain"
	"video-captioner/internal/pipeline"
	"video-captioner/internal/store"
)

// envelope is the service's JSON response wrapper.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// uploadResponse is the data payload of POST /api/upload.
type uploadResponse struct {
	TaskID string `json:"task_id"`
}

// generateResponse is the data payload of POST /api/generate-subtitle.
type generateResponse struct {
	SubtitlePath string `json:"subtitle_path"`
	Content      string `json:"content"`
}

// statusResponse is the data payload of GET /api/status/{id}.
type statusResponse struct {
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
}

// Client runs one task against the remote service, applying the same
// stage milestones the simulator publishes.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	updater      pipeline.TaskUpdater
	readFile     func(name string) ([]byte, error)
	pollInterval time.Duration
}

// NewClient constructs a production client for the given base URL.
func NewClient(baseURL string, updater pipeline.TaskUpdater) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 5 * time.Minute},
		updater:      updater,
		readFile:     os.ReadFile,
		pollInterval: time.Second,
	}
}

// Run uploads the source video and walks the remote pipeline, mutating the
// task via the store at each stage milestone.
func (c *Client) Run(ctx context.Context, task domain.Task) error {
	content, err := c.readFile(task.SourcePath)
	if err != nil {
		return &pipeline.StageError{
			Stage:   domain.TaskStatusProcessing,
			Message: "cannot read source video",
			Err:     errors.Wrap(err, "read source"),
		}
	}

	c.advance(task.ID, domain.TaskStatusProcessing, 20, "Initializing processing")
	remoteID, err := c.upload(ctx, task.OriginalFilename, content)
	if err != nil {
		return &pipeline.StageError{Stage: domain.TaskStatusProcessing, Message: "upload failed", Err: err}
	}

	c.advance(task.ID, domain.TaskStatusExtracting, 40, "Extracting audio")
	if err := c.post(ctx, "/api/extract-audio", remoteID, nil); err != nil {
		return &pipeline.StageError{Stage: domain.TaskStatusExtracting, Message: "audio extraction failed", Err: err}
	}

	c.advance(task.ID, domain.TaskStatusTranscribing, 60, "Generating subtitles")
	var generated generateResponse
	if err := c.post(ctx, "/api/generate-subtitle", remoteID, &generated); err != nil {
		return &pipeline.StageError{Stage: domain.TaskStatusTranscribing, Message: "subtitle generation failed", Err: err}
	}

	if err := c.waitForCompletion(ctx, remoteID); err != nil {
		return &pipeline.StageError{Stage: domain.TaskStatusTranscribing, Message: "remote task did not complete", Err: err}
	}

	subtitleContent, err := c.download(ctx, remoteID)
	if err != nil {
		// The generate response already carried the artifact text.
		subtitleContent = generated.Content
	}
	if subtitleContent == "" {
		return &pipeline.StageError{
			Stage:   domain.TaskStatusTranscribing,
			Message: "service returned an empty subtitle artifact",
		}
	}

	c.updater.Update(task.ID, store.Patch{
		Status:          store.Ptr(domain.TaskStatusCompleted),
		Progress:        store.Ptr(100),
		Message:         store.Ptr("Processing complete"),
		SubtitleContent: store.Ptr(subtitleContent),
		SubtitlePath:    store.Ptr(generated.SubtitlePath),
	})
	return nil
}

// advance publishes one stage milestone for the task.
func (c *Client) advance(taskID string, status domain.TaskStatus, progress int, message string) {
	c.updater.Update(taskID, store.Patch{
		Status:   store.Ptr(status),
		Progress: store.Ptr(progress),
		Message:  store.Ptr(message),
	})
}

// upload sends the video as multipart form data and returns the remote id.
func (c *Client) upload(ctx context.Context, filename string, content []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", errors.Wrap(err, "create form file")
	}
	if _, err := part.Write(content); err != nil {
		return "", errors.Wrap(err, "write form file")
	}
	if err := writer.Close(); err != nil {
		return "", errors.Wrap(err, "close multipart writer")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", &body)
	if err != nil {
		return "", errors.Wrap(err, "build upload request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var uploaded uploadResponse
	if err := c.do(req, &uploaded); err != nil {
		return "", err
	}
	if uploaded.TaskID == "" {
		return "", errors.New("upload response missing task_id")
	}
	return uploaded.TaskID, nil
}

// post sends a task-id JSON request to one of the stage endpoints.
func (c *Client) post(ctx context.Context, path, remoteID string, out interface{}) error {
	payload, err := json.Marshal(map[string]string{"task_id": remoteID})
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrapf(err, "build %s request", path)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

// status fetches the remote task state.
func (c *Client) status(ctx context.Context, remoteID string) (statusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/status/"+remoteID, nil)
	if err != nil {
		return statusResponse{}, errors.Wrap(err, "build status request")
	}

	var state statusResponse
	if err := c.do(req, &state); err != nil {
		return statusResponse{}, err
	}
	return state, nil
}

// waitForCompletion polls the status endpoint until the remote task
// reaches a terminal state.
func (c *Client) waitForCompletion(ctx context.Context, remoteID string) error {
	for {
		state, err := c.status(ctx, remoteID)
		if err != nil {
			return err
		}

		switch state.Status {
		case string(domain.TaskStatusCompleted):
			return nil
		case string(domain.TaskStatusFailed):
			if state.Message != "" {
				return errors.New(state.Message)
			}
			return errors.New("remote task failed")
		}

		timer := time.NewTimer(c.pollInterval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// download fetches the finished subtitle artifact text.
func (c *Client) download(ctx context.Context, remoteID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/download/"+remoteID, nil)
	if err != nil {
		return "", errors.Wrap(err, "build download request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "download subtitle")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("download returned HTTP %d", resp.StatusCode)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "read download body")
	}
	return string(content), nil
}

// do executes a request and decodes the service envelope into out.
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "call %s", req.URL.Path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response body")
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return errors.Wrapf(err, "decode response from %s", req.URL.Path)
	}
	if env.Code != 0 {
		return errors.Errorf("service error %d: %s", env.Code, env.Message)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return errors.Wrap(err, "decode response data")
		}
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("unexpected HTTP status %d", resp.StatusCode)
	}
	return nil
}

// NewClientForTests constructs a client with injectable transport, file
// reads, and poll cadence.
func NewClientForTests(
	baseURL string,
	updater pipeline.TaskUpdater,
	httpClient *http.Client,
	readFile func(name string) ([]byte, error),
	pollInterval time.Duration,
) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   httpClient,
		updater:      updater,
		readFile:     readFile,
		pollInterval: pollInterval,
	}
}
