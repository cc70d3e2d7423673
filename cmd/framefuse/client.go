package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"framefuse/internal/api"
)

// client talks to the daemon's HTTP API.
type client struct {
	baseURL string
	http    *http.Client
}

func newClient(address string) *client {
	address = strings.TrimSpace(address)
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}
	return &client{
		baseURL: strings.TrimRight(address, "/"),
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *client) Health(ctx context.Context) (api.HealthResponse, error) {
	var resp api.HealthResponse
	err := c.getJSON(ctx, "/api/health", &resp)
	return resp, err
}

func (c *client) ListJobs(ctx context.Context) ([]api.Job, error) {
	var resp api.JobListResponse
	if err := c.getJSON(ctx, "/api/jobs", &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

func (c *client) GetJob(ctx context.Context, id string) (api.Job, error) {
	var resp api.JobResponse
	err := c.getJSON(ctx, "/api/jobs/"+id, &resp)
	return resp.Job, err
}

// Upload submits PNG frame files as one multipart request.
func (c *client) Upload(ctx context.Context, paths []string) (api.Job, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	for _, path := range paths {
		part, err := form.CreateFormFile("frames", filepath.Base(path))
		if err != nil {
			return api.Job{}, fmt.Errorf("build upload: %w", err)
		}
		file, err := os.Open(path)
		if err != nil {
			return api.Job{}, fmt.Errorf("open frame: %w", err)
		}
		_, err = io.Copy(part, file)
		_ = file.Close()
		if err != nil {
			return api.Job{}, fmt.Errorf("read frame %s: %w", path, err)
		}
	}
	if err := form.Close(); err != nil {
		return api.Job{}, fmt.Errorf("finish upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/jobs", &buf)
	if err != nil {
		return api.Job{}, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var resp api.UploadResponse
	if err := c.do(req, http.StatusCreated, &resp); err != nil {
		return api.Job{}, err
	}
	return resp.Job, nil
}

// Start kicks off encoding for an uploaded job.
func (c *client) Start(ctx context.Context, id string, start api.StartRequest) (api.Job, error) {
	body, err := json.Marshal(start)
	if err != nil {
		return api.Job{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/jobs/"+id+"/process", bytes.NewReader(body))
	if err != nil {
		return api.Job{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp api.JobResponse
	if err := c.do(req, http.StatusAccepted, &resp); err != nil {
		return api.Job{}, err
	}
	return resp.Job, nil
}

// Download fetches a completed job's artifact into dir and returns the
// written path. An empty dir writes to the working directory.
func (c *client) Download(ctx context.Context, id, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/jobs/"+id+"/artifact", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", apiError(resp)
	}

	name := fileNameFromDisposition(resp.Header.Get("Content-Disposition"))
	if name == "" {
		name = id + ".bin"
	}
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, name)
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create output: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", fmt.Errorf("write output: %w", err)
	}
	return path, out.Close()
}

func (c *client) getJSON(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, http.StatusOK, target)
}

func (c *client) do(req *http.Request, wantStatus int, target any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		return apiError(resp)
	}
	if target == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload api.ErrorResponse
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return fmt.Errorf("daemon: %s", payload.Error)
	}
	return fmt.Errorf("daemon returned %s", resp.Status)
}

func fileNameFromDisposition(value string) string {
	const marker = "filename="
	idx := strings.Index(value, marker)
	if idx < 0 {
		return ""
	}
	name := strings.Trim(value[idx+len(marker):], `"`)
	return filepath.Base(name)
}
