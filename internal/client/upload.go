package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/JonMunkholm/dataflow/internal/core"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// UploadResult is the backend's answer to an accepted upload.
type UploadResult struct {
	Message string `json:"message"`
	Rows    int    `json:"rows,omitempty"`
}

// Upload sends a file as multipart/form-data under the field "file".
// Callers validate the candidate before calling; the backend parses it.
func (c *Client) Upload(ctx context.Context, candidate core.UploadCandidate, r io.Reader) (UploadResult, error) {
	const op = "upload"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(candidate.Filename)))
	contentType := candidate.MIMEType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return UploadResult{}, fmt.Errorf("create multipart: %w", err)
	}
	body := &countingReader{r: r, total: candidate.SizeBytes}
	if _, err := io.Copy(part, body); err != nil {
		return UploadResult{}, fmt.Errorf("read upload file: %w", err)
	}
	if body.short() {
		slog.Warn("upload body shorter than declared size",
			"file", candidate.Filename,
			"read_bytes", body.n,
			"declared_bytes", body.total,
		)
	}
	if err := mw.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("close multipart: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, uploadPath, &buf)
	if err != nil {
		return UploadResult{}, &core.NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do(req, op, true)
	if err != nil {
		return UploadResult{}, err
	}
	defer resp.Body.Close()

	var result UploadResult
	// The body is informational; an empty or non-JSON body still means success.
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &result)
	}
	if result.Message == "" {
		result.Message = "File uploaded successfully"
	}
	return result, nil
}
