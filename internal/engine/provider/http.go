// Package provider implements the external video-generation engines. Each
// provider is an independent adapter following the same deferred-generation
// shape: submit a JSON request, poll the result endpoint until the clip is
// ready, download it into the scene's output directory.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// moderationHints are the body substrings that mark a 4xx (or a failed
// generation) as a content-policy rejection rather than a plain API error.
var moderationHints = []string{
	"moderation",
	"content policy",
	"content_policy",
	"safety",
	"flagged",
	"nsfw",
	"prohibited",
}

func looksLikeModeration(body string) bool {
	lower := strings.ToLower(body)
	for _, hint := range moderationHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// postJSON sends an authorized JSON POST and returns status plus body bytes.
func postJSON(ctx context.Context, client *http.Client, url, apiKey string, payload any) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", url, strings.NewReader(string(data)))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// getJSON sends an authorized GET and returns status plus body bytes.
func getJSON(ctx context.Context, client *http.Client, url, apiKey string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// downloadTo streams a produced clip URL into outputDir and returns the
// local file path.
func downloadTo(ctx context.Context, videoURL, outputDir, filename string) (string, error) {
	client := &http.Client{}

	req, err := http.NewRequestWithContext(ctx, "GET", videoURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("clip download returned status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	path := filepath.Join(outputDir, filename)
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create clip file: %w", err)
	}
	defer out.Close()

	n, err := io.Copy(out, resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to write clip data: %w", err)
	}
	if n == 0 {
		return "", fmt.Errorf("downloaded clip is empty (0 bytes)")
	}
	return path, nil
}
