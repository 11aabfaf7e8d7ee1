package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

type HTTPConfig struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// HTTPBlobStore talks to the external storage API:
//
//	POST   {base}/files        multipart "file" + "key"  -> {"url": "..."}
//	DELETE {base}/files/{key}
type HTTPBlobStore struct {
	cfg HTTPConfig
}

func NewHTTPBlobStore(cfg HTTPConfig) *HTTPBlobStore {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &HTTPBlobStore{cfg: cfg}
}

func (s *HTTPBlobStore) Upload(ctx context.Context, meta Object, content io.Reader) (*Object, error) {
	data, err := readValidated(&meta, content)
	if err != nil {
		return nil, err
	}
	meta.Key = objectKey(meta.OwnerID, uuid.NewString(), meta.FileName)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("key", meta.Key); err != nil {
		return nil, fmt.Errorf("writing key field: %w", err)
	}
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(meta.FileName)))
	hdr.Set("Content-Type", meta.ContentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return nil, fmt.Errorf("creating file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("writing file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/files", &body)
	if err != nil {
		return nil, fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	s.authorize(req)

	raw, err := s.do(req)
	if err != nil {
		return nil, err
	}
	fileURL := gjson.GetBytes(raw, "url").String()
	if fileURL == "" {
		return nil, fmt.Errorf("%w: upload response has no url", ErrUpstream)
	}

	meta.URL = fileURL
	meta.CreatedAt = time.Now().UTC()
	return &meta, nil
}

func (s *HTTPBlobStore) Delete(ctx context.Context, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.cfg.BaseURL+"/files/"+url.PathEscape(key), nil)
	if err != nil {
		return fmt.Errorf("building delete request: %w", err)
	}
	s.authorize(req)
	_, err = s.do(req)
	return err
}

func (s *HTTPBlobStore) authorize(req *http.Request) {
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}
}

func (s *HTTPBlobStore) do(req *http.Request) ([]byte, error) {
	resp, err := s.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUpstream, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrBlobNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return raw, nil
}
