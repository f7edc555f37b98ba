package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

var ErrUploadRejected = errors.New("recording store rejected upload")

// ProgressFunc receives the running byte count while an upload streams out.
// total is -1 when the size is unknown.
type ProgressFunc func(uploaded, total int64)

// RecordingStore persists a consultation recording and hands back a reference
// URL. The contract is deliberately small: POST bytes, observe progress,
// receive a URL or an error. There is no chunking or resume.
type RecordingStore interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, progress ProgressFunc) (string, error)
}

type HTTPStore struct {
	baseURL string
	client  *http.Client
}

func NewHTTPStore(baseURL string) *HTTPStore {
	return &HTTPStore{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

type saveResponse struct {
	URL string `json:"url"`
}

func (s *HTTPStore) Save(ctx context.Context, name string, r io.Reader, size int64, progress ProgressFunc) (string, error) {
	endpoint := fmt.Sprintf("%s/recordings/%s", s.baseURL, url.PathEscape(name))

	body := io.Reader(r)
	if progress != nil {
		body = &progressReader{r: r, total: size, progress: progress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if size >= 0 {
		req.ContentLength = size
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload recording: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%w: status %d", ErrUploadRejected, resp.StatusCode)
	}

	var out saveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("%w: empty url in response", ErrUploadRejected)
	}

	return out.URL, nil
}

type progressReader struct {
	r        io.Reader
	read     int64
	total    int64
	progress ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.progress(p.read, p.total)
	}
	return n, err
}
