package models

import (
	"context"
	"fmt"
	"io"
	log "log/slog"
	"net/http"
	"os"
	"path/filepath"
)

const WhisperBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.bin"

// Ensure returns path if it exists, otherwise downloads url into it. An empty
// url turns a missing file into an error.
func Ensure(ctx context.Context, client *http.Client, path, url string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if url == "" {
		return "", fmt.Errorf("model not found at %s", path)
	}
	if client == nil {
		client = http.DefaultClient
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create models dir: %w", err)
	}

	log.Info("Downloading model", "url", url, "path", path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download model: HTTP %d", resp.StatusCode)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create model file: %w", err)
	}

	written, err := io.Copy(f, resp.Body)
	f.Close()
	if err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("write model: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("rename model: %w", err)
	}

	log.Info("Model downloaded", "path", path, "mb", written/1024/1024)
	return path, nil
}
