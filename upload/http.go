package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/vellumchat/vellum-go/config"
	"github.com/vellumchat/vellum-go/domain"
	"github.com/vellumchat/vellum-go/pkg/log"
)

// AuthFunc supplies the current user id and auth token for the upload
// request headers.
type AuthFunc func() (userID, token string)

// ProgressFunc receives coarse upload progress in [0,1].
type ProgressFunc func(fraction float64)

// HTTPUploader implements Uploader against the service's multipart
// endpoint.
type HTTPUploader struct {
	baseURL  string
	client   *http.Client
	auth     AuthFunc
	progress ProgressFunc
}

func NewHTTPUploader(cfg config.UploadConfig, auth AuthFunc, progress ProgressFunc) *HTTPUploader {
	return &HTTPUploader{
		baseURL:  cfg.BaseURL,
		client:   &http.Client{Timeout: cfg.Timeout},
		auth:     auth,
		progress: progress,
	}
}

type uploadResponse struct {
	Success bool                   `json:"success"`
	URL     string                 `json:"url"`
	File    *domain.FileAttachment `json:"file"`
}

func (u *HTTPUploader) Upload(ctx context.Context, data []byte, contentType, filename string, endpoint Endpoint) (*domain.FileAttachment, error) {
	logger := log.Ctx(ctx)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreatePart(partHeader(filename, contentType))
	if err != nil {
		return nil, fmt.Errorf("upload: build form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("upload: build form: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("upload: build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/%s", u.baseURL, endpoint), &body)
	if err != nil {
		return nil, fmt.Errorf("upload: build request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if u.auth != nil {
		userID, token := u.auth()
		req.Header.Set("X-User-ID", userID)
		req.Header.Set("X-Auth-Token", token)
	}

	u.report(0.1)
	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()
	u.report(1.0)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upload: unexpected status %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("upload: read response: %w", err)
	}

	var out uploadResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("upload: parse response: %w", err)
	}
	if !out.Success {
		return nil, fmt.Errorf("upload: server rejected %s upload", endpoint)
	}

	// The avatar endpoint answers with a bare url, the file endpoint with
	// a full attachment descriptor.
	if endpoint == EndpointAvatar {
		logger.Debug().Str("url", out.URL).Msg("avatar uploaded")
		return &domain.FileAttachment{URL: out.URL, Name: "avatar", Type: "image/png"}, nil
	}
	if out.File == nil {
		return nil, fmt.Errorf("upload: response missing file descriptor")
	}
	logger.Debug().Str("url", out.File.URL).Msg("file uploaded")
	return out.File, nil
}

func (u *HTTPUploader) report(fraction float64) {
	if u.progress != nil {
		u.progress(fraction)
	}
}

func partHeader(filename, contentType string) textproto.MIMEHeader {
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	return h
}
