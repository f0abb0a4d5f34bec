package signing

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"esign-backend/internal/shared/storage/object"
)

const (
	artifactSignature = "signature"
	artifactFinal     = "final document"

	pngDataURLPrefix = "data:image/png;base64,"
)

// Artifact is a stored object: its key (persisted) and public URL.
type Artifact struct {
	Key string
	URL string
}

// Artifacts writes signature images and final PDFs to the object store.
type Artifacts struct {
	Store object.ObjectStore
	now   func() time.Time
}

// NewArtifacts constructs an Artifacts writer.
func NewArtifacts(store object.ObjectStore) *Artifacts {
	return &Artifacts{Store: store, now: time.Now}
}

// DecodeSignature strips the PNG data URL prefix, if any, and decodes the
// base64 payload. Undecodable or empty input yields ErrEmptySignature.
func DecodeSignature(dataURL string) ([]byte, error) {
	payload := strings.TrimSpace(dataURL)
	if len(payload) >= len(pngDataURLPrefix) && strings.EqualFold(payload[:len(pngDataURLPrefix)], pngDataURLPrefix) {
		payload = payload[len(pngDataURLPrefix):]
	}
	if payload == "" {
		return nil, ErrEmptySignature
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmptySignature, err)
	}
	if len(data) == 0 {
		return nil, ErrEmptySignature
	}
	return data, nil
}

// StoreSignature decodes and writes a signature image under
// signatures/<recipientID>/<unix-millis>-<random>.png. Existing keys are never replaced.
func (a *Artifacts) StoreSignature(ctx context.Context, recipientID, dataURL string) (Artifact, error) {
	data, err := DecodeSignature(dataURL)
	if err != nil {
		return Artifact{}, err
	}
	key := SignatureKey(recipientID, a.now(), uuid.NewString()[:8])
	if _, err := a.Store.Put(ctx, key, bytes.NewReader(data), object.PutOptions{ContentType: "image/png"}); err != nil {
		return Artifact{}, &StorageError{Artifact: artifactSignature, Key: key, Err: err}
	}
	return Artifact{Key: key, URL: a.Store.URL(key)}, nil
}

// StoreFinal writes the signed PDF under signed-documents/<documentID>/<recipientID>.pdf,
// replacing any copy left by an earlier failed attempt.
func (a *Artifacts) StoreFinal(ctx context.Context, documentID, recipientID string, pdf []byte) (Artifact, error) {
	key := FinalKey(documentID, recipientID)
	_, err := a.Store.Put(ctx, key, bytes.NewReader(pdf), object.PutOptions{
		ContentType: "application/pdf",
		Overwrite:   true,
	})
	if err != nil {
		return Artifact{}, &StorageError{Artifact: artifactFinal, Key: key, Err: err}
	}
	return Artifact{Key: key, URL: a.Store.URL(key)}, nil
}

// EnsureFinal makes sure key still holds pdf, rewriting it when a concurrent
// submission replaced it. It reports whether a rewrite happened.
func (a *Artifacts) EnsureFinal(ctx context.Context, key string, pdf []byte) (bool, error) {
	rc, err := a.Store.Open(ctx, key)
	if err == nil {
		stored, readErr := io.ReadAll(io.LimitReader(rc, int64(len(pdf))+1))
		rc.Close()
		if readErr == nil && bytes.Equal(stored, pdf) {
			return false, nil
		}
	}
	if _, err := a.Store.Put(ctx, key, bytes.NewReader(pdf), object.PutOptions{
		ContentType: "application/pdf",
		Overwrite:   true,
	}); err != nil {
		return false, &StorageError{Artifact: artifactFinal, Key: key, Err: err}
	}
	return true, nil
}

// SignatureKey is the object key of one signature image. The random suffix
// keeps submissions landing in the same millisecond apart.
func SignatureKey(recipientID string, at time.Time, suffix string) string {
	return fmt.Sprintf("signatures/%s/%d-%s.png", recipientID, at.UnixMilli(), suffix)
}

// FinalKey is the object key of a recipient's signed PDF.
func FinalKey(documentID, recipientID string) string {
	return fmt.Sprintf("signed-documents/%s/%s.pdf", documentID, recipientID)
}
