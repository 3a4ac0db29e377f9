// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/rag-filesearch/pkg/types"
)

// uploadMetadata is the JSON part of an uploadToFileSearchStore request.
type uploadMetadata struct {
	DisplayName string `json:"displayName,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// UploadToStore uploads the file at path into the store and returns the
// long-running operation that indexes it. The file's base name is sent as
// the media filename and must already be ASCII-safe; displayName travels in
// the JSON metadata and may contain any Unicode.
func (c *Client) UploadToStore(ctx context.Context, ref types.StoreRef, path, displayName string) (types.Operation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Operation{}, fmt.Errorf("%w: reading upload %s: %w", types.ErrStagingFailed, path, err)
	}

	mimeType := detectMimeType(path)
	body, contentType, err := encodeMultipartRelated(uploadMetadata{
		DisplayName: displayName,
		MimeType:    mimeType,
	}, filepath.Base(path), mimeType, data)
	if err != nil {
		return types.Operation{}, err
	}

	q := url.Values{"uploadType": {"multipart"}}
	endpoint := c.endpoint("/upload", ref.Name+":uploadToFileSearchStore", q)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return types.Operation{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Goog-Upload-Protocol", "multipart")

	var op types.Operation
	if err := c.send(ctx, req, &op); err != nil {
		return types.Operation{}, fmt.Errorf("uploading %s to %s: %w", filepath.Base(path), ref.Name, err)
	}
	return op, nil
}

// encodeMultipartRelated builds a two-part multipart/related body: JSON
// metadata followed by the media bytes.
func encodeMultipartRelated(meta uploadMetadata, filename, mimeType string, media []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	metaPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"application/json; charset=UTF-8"},
	})
	if err != nil {
		return nil, "", fmt.Errorf("creating metadata part: %w", err)
	}
	if err := json.NewEncoder(metaPart).Encode(meta); err != nil {
		return nil, "", fmt.Errorf("encoding metadata: %w", err)
	}

	mediaPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":        {mimeType},
		"Content-Disposition": {mime.FormatMediaType("attachment", map[string]string{"filename": filename})},
	})
	if err != nil {
		return nil, "", fmt.Errorf("creating media part: %w", err)
	}
	if _, err := mediaPart.Write(media); err != nil {
		return nil, "", fmt.Errorf("writing media part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}

	return buf.Bytes(), "multipart/related; boundary=" + mw.Boundary(), nil
}

// textTypes covers extensions that mime.TypeByExtension does not know on
// minimal systems.
var textTypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".txt":      "text/plain",
	".csv":      "text/csv",
	".json":     "application/json",
	".pdf":      "application/pdf",
	".html":     "text/html",
}

func detectMimeType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := textTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if mediaType, _, err := mime.ParseMediaType(t); err == nil {
			return mediaType
		}
		return t
	}
	return "application/octet-stream"
}
