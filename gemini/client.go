// Package gemini talks to the Gemini API's long-running video generation endpoints.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"moodboard-server/core"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

// KeySource supplies the API key for each request.
type KeySource interface {
	Key() string
}

// Client implements core.VideoService.
type Client struct {
	cfg  Config
	keys KeySource
	http *http.Client
}

func NewClient(cfg Config, keys KeySource, httpClient *http.Client) *Client {
	cfg = cfg.withDefaults()
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, keys: keys, http: httpClient}
}

type (
	imagePayload struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType"`
	}

	videoInstance struct {
		Prompt string        `json:"prompt,omitempty"`
		Image  *imagePayload `json:"image,omitempty"`
	}

	videoParameters struct {
		AspectRatio    string `json:"aspectRatio,omitempty"`
		Resolution     string `json:"resolution,omitempty"`
		NumberOfVideos int    `json:"sampleCount,omitempty"`
	}

	predictRequest struct {
		Instances  []videoInstance `json:"instances"`
		Parameters videoParameters `json:"parameters"`
	}

	operation struct {
		Name     string    `json:"name"`
		Done     bool      `json:"done"`
		Error    *apiError `json:"error"`
		Response *struct {
			GenerateVideoResponse struct {
				GeneratedSamples []struct {
					Video struct {
						URI string `json:"uri"`
					} `json:"video"`
				} `json:"generatedSamples"`
			} `json:"generateVideoResponse"`
		} `json:"response"`
	}

	apiError struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	}
)

func (e *apiError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("%s (%d %s)", e.Message, e.Code, e.Status)
	}
	return e.Message
}

// Submit starts a video generation and returns the operation name.
func (c *Client) Submit(ctx context.Context, req core.VideoRequest) (string, error) {
	instance := videoInstance{Prompt: req.Prompt}
	if req.Image != nil && len(req.Image.Data) > 0 {
		instance.Image = &imagePayload{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(req.Image.Data),
			MimeType:           req.Image.MimeType,
		}
	}
	body, err := json.Marshal(predictRequest{
		Instances: []videoInstance{instance},
		Parameters: videoParameters{
			AspectRatio:    req.AspectRatio,
			Resolution:     c.cfg.Resolution,
			NumberOfVideos: 1,
		},
	})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:predictLongRunning", c.cfg.BaseURL, c.cfg.VideoModel)
	var op operation
	if err := c.do(ctx, http.MethodPost, endpoint, body, &op); err != nil {
		return "", fmt.Errorf("submit video generation: %w", err)
	}
	if op.Name == "" {
		return "", core.Generation("Video generation did not return an operation.")
	}

	logrus.WithFields(logrus.Fields{
		"model":     c.cfg.VideoModel,
		"operation": op.Name,
	}).Debug("Video generation operation created")
	return op.Name, nil
}

// Check fetches the operation's current status. An operation that finished with an
// error is reported as a generation failure.
func (c *Client) Check(ctx context.Context, handle string) (core.OperationStatus, error) {
	endpoint := fmt.Sprintf("%s/v1beta/%s", c.cfg.BaseURL, strings.TrimPrefix(handle, "/"))
	var op operation
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &op); err != nil {
		return core.OperationStatus{}, fmt.Errorf("check video operation: %w", err)
	}
	if !op.Done {
		return core.OperationStatus{}, nil
	}
	if op.Error != nil {
		return core.OperationStatus{}, &core.Error{Kind: core.KindGeneration, Message: op.Error.Message, Err: op.Error}
	}

	status := core.OperationStatus{Done: true}
	if op.Response != nil {
		samples := op.Response.GenerateVideoResponse.GeneratedSamples
		if len(samples) > 0 {
			status.ResultRef = samples[0].Video.URI
		}
	}
	return status, nil
}

// Fetch downloads the generated video. The result URI needs the API key appended.
func (c *Client) Fetch(ctx context.Context, ref string) ([]byte, string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, "", fmt.Errorf("invalid video uri: %w", err)
	}
	q := u.Query()
	q.Set("key", c.keys.Key())
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to fetch video: %s", http.StatusText(resp.StatusCode))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("x-goog-api-key", c.keys.Key())
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope struct {
			Error *apiError `json:"error"`
		}
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error != nil && envelope.Error.Message != "" {
			return envelope.Error
		}
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return json.Unmarshal(raw, out)
}
