// Package notify delivers a finished build archive to a Telegram chat.
// Missing credentials are a soft skip, never a failure: an unconfigured
// notifier must not break an otherwise successful build.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rsuntk/kbuild/src/common/errors"
	"github.com/rsuntk/kbuild/src/common/logs"
	"github.com/rsuntk/kbuild/src/kbuild/internal/config"
	"github.com/rsuntk/kbuild/src/kbuild/internal/packager"
)

var log = logs.NewDefault()

// DefaultAPIBase is the Telegram bot API endpoint prefix
const DefaultAPIBase = "https://api.telegram.org"

// Notifier uploads archives via the Telegram bot sendDocument method
type Notifier struct {
	httpClient *http.Client
	apiBase    string
	creds      config.TelegramConfig
}

// New creates a Notifier with the given credentials
func New(creds config.TelegramConfig) *Notifier {
	return &Notifier{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		apiBase:    DefaultAPIBase,
		creds:      creds,
	}
}

// NewWithEndpoint creates a Notifier against a custom API base URL.
// Used by tests to point at a local server.
func NewWithEndpoint(creds config.TelegramConfig, apiBase string) *Notifier {
	n := New(creds)
	n.apiBase = apiBase
	return n
}

// Caption formats the message attached to the uploaded archive
func Caption(device, checksum string, elapsed time.Duration) string {
	return fmt.Sprintf("*%s* build finished\nsha256: `%s`\nElapsed: %d minute(s)",
		device, checksum, int(elapsed.Minutes()))
}

// Send uploads the archive with its caption. Returns (false, nil) when
// credentials are unset, (true, nil) on success.
func (n *Notifier) Send(ctx context.Context, device string, result *packager.Result) (bool, error) {
	if !n.creds.Configured() {
		log.Debug("Notification credentials unset, skipping upload")
		return false, nil
	}

	file, err := os.Open(result.ArchivePath)
	if err != nil {
		return false, errors.ErrNotifyUpload.WithCause(err)
	}
	defer file.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("document", filepath.Base(result.ArchivePath))
	if err != nil {
		return false, errors.ErrNotifyUpload.WithCause(err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return false, errors.ErrNotifyUpload.WithCause(err)
	}

	fields := map[string]string{
		"chat_id":                  n.creds.ChatID,
		"caption":                  Caption(device, result.Checksum, result.Elapsed),
		"parse_mode":               "Markdown",
		"disable_web_page_preview": "true",
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return false, errors.ErrNotifyUpload.WithCause(err)
		}
	}
	if err := mw.Close(); err != nil {
		return false, errors.ErrNotifyUpload.WithCause(err)
	}

	url := fmt.Sprintf("%s/bot%s/sendDocument", n.apiBase, n.creds.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return false, errors.ErrNotifyUpload.WithCause(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return false, errors.ErrNotifyUpload.WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return false, errors.ErrNotifyUpload.WithCause(
			fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, respBody))
	}

	log.Info("Archive uploaded to chat", "archive", filepath.Base(result.ArchivePath))
	return true, nil
}
