// internal/api/client.go
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
	"strings"
	"time"

	"github.com/cluckworks/wavedirector/pkg/core"
)

// Client talks to the remote progress server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new API client. A non-positive timeout means 30s.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Healthcheck checks if the progress server is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthcheck", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

type balanceBody struct {
	Balance int `json:"balance"`
}

type coinsBody struct {
	Amount int `json:"amount"`
}

func (c *Client) balanceURL(profileID string) string {
	return c.baseURL + "/api/v1/profiles/" + url.PathEscape(profileID) + "/balance"
}

// Balance fetches the stored balance of a profile.
func (c *Client) Balance(ctx context.Context, profileID string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.balanceURL(profileID), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	return c.doBalance(req)
}

// AddCoins adds amount to a profile's balance and returns the new balance.
func (c *Client) AddCoins(ctx context.Context, profileID string, amount int) (int, error) {
	body, err := json.Marshal(coinsBody{Amount: amount})
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.balanceURL(profileID), bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doBalance(req)
}

func (c *Client) doBalance(req *http.Request) (int, error) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("balance request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("balance request returned status %d", resp.StatusCode)
	}

	var out balanceBody
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("failed to decode balance: %w", err)
	}
	return out.Balance, nil
}

// UploadCache publishes a generated campaign so other installs can replay
// the same waves.
func (c *Client) UploadCache(ctx context.Context, file *core.CampaignWaveCacheFile) error {
	if file == nil {
		return fmt.Errorf("no cache to upload")
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	errCh := make(chan error, 1)
	go func() {
		defer pw.Close()
		defer writer.Close()

		_ = writer.WriteField("secret", c.apiKey)
		_ = writer.WriteField("cacheId", file.CacheID)
		_ = writer.WriteField("cacheVersion", file.CacheVersion)
		_ = writer.WriteField("waveCount", fmt.Sprintf("%d", file.WaveCount))

		part, err := writer.CreateFormFile("file", "campaign_waves_"+file.CacheID+".json")
		if err != nil {
			errCh <- fmt.Errorf("failed to create form file: %w", err)
			return
		}
		if err := json.NewEncoder(part).Encode(file); err != nil {
			errCh <- fmt.Errorf("failed to encode cache: %w", err)
			return
		}
		errCh <- nil
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/caches", pr)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if writeErr := <-errCh; writeErr != nil {
		return writeErr
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upload returned status %d", resp.StatusCode)
	}
	return nil
}
