// Package blobstore stores uploaded documents. Production uses an external
// object storage API over HTTP; development and tests use an in-memory store
// that serves its own download URLs.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

var (
	ErrBlobNotFound       = errors.New("blob not found")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("content type is not allowed")
	ErrMissingFileName    = errors.New("file name is required")
	ErrUpstream           = errors.New("storage service unavailable")
)

// MaxFileSize is the largest accepted upload (10 MB).
const MaxFileSize = 10 * 1024 * 1024

var AllowedContentTypes = map[string]bool{
	"application/pdf": true,
}

var pdfMagic = []byte("%PDF-")

// Object describes a stored blob. URL is where clients can fetch it.
type Object struct {
	Key         string    `json:"key"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Hash        string    `json:"hash"`
	URL         string    `json:"url"`
	OwnerID     string    `json:"owner_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type BlobStore interface {
	Upload(ctx context.Context, meta Object, content io.Reader) (*Object, error)
	Delete(ctx context.Context, key string) error
}

// readValidated reads content up to the size limit and checks it is a PDF.
// It fills in Size and Hash on meta.
func readValidated(meta *Object, content io.Reader) ([]byte, error) {
	if strings.TrimSpace(meta.FileName) == "" {
		return nil, ErrMissingFileName
	}
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(meta.ContentType, ";", 2)[0]))
	if ct == "" && strings.EqualFold(path.Ext(meta.FileName), ".pdf") {
		ct = "application/pdf"
	}
	if !AllowedContentTypes[ct] {
		return nil, ErrInvalidContentType
	}
	meta.ContentType = ct

	data, err := io.ReadAll(io.LimitReader(content, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxFileSize {
		return nil, ErrFileTooLarge
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, ErrInvalidContentType
	}

	meta.Size = int64(len(data))
	meta.Hash = fmt.Sprintf("%x", sha256.Sum256(data))
	return data, nil
}

// objectKey places uploads under the owner so keys never collide across users.
func objectKey(ownerID, id, fileName string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, path.Base(fileName))
	if ownerID == "" {
		ownerID = "shared"
	}
	return fmt.Sprintf("lab-reports/%s/%s-%s", ownerID, id, name)
}
