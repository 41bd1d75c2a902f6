package web

import (
	"bytes"
	"errors"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/message"

	"github.com/JonMunkholm/dataflow/internal/core"
)

// parseViewState reads the browse state from the query: q, sort, dir.
// A missing direction means ascending.
func parseViewState(r *http.Request) core.ViewState {
	q := r.URL.Query()
	return core.ViewState{
		SearchTerm:    q.Get("q"),
		SortField:     core.FieldKey(strings.TrimSpace(q.Get("sort"))),
		SortAscending: !strings.EqualFold(q.Get("dir"), "desc"),
	}
}

// viewQuery encodes state back into query parameters.
func viewQuery(state core.ViewState) url.Values {
	v := url.Values{}
	if state.SearchTerm != "" {
		v.Set("q", state.SearchTerm)
	}
	if state.SortField != "" {
		v.Set("sort", string(state.SortField))
	}
	if state.SortAscending {
		v.Set("dir", "asc")
	} else {
		v.Set("dir", "desc")
	}
	return v
}

// indexParam parses a non-negative index.
func indexParam(s string) (int, bool) {
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// uploadOverhead is allowed on top of the file size for multipart framing.
const uploadOverhead = 1 << 20

// readUpload extracts the "file" part. The part header is checked against
// the policy before its bytes are read, so a wrong type is reported as such
// even when the body is also over the size limit. The caller closes the
// returned reader.
func readUpload(w http.ResponseWriter, r *http.Request, policy core.UploadPolicy) (core.UploadCandidate, io.ReadCloser, error) {
	r.Body = http.MaxBytesReader(w, r.Body, policy.MaxSizeBytes+uploadOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		return core.UploadCandidate{}, nil, core.ErrNoFile
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return core.UploadCandidate{}, nil, core.ErrNoFile
		}
		if err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				return core.UploadCandidate{}, nil, &core.ValidationError{
					Reason: core.TooLarge,
					Size:   r.ContentLength,
					Limit:  policy.MaxSizeBytes,
				}
			}
			return core.UploadCandidate{}, nil, err
		}
		if part.FormName() != "file" || part.FileName() == "" {
			part.Close()
			continue
		}

		candidate := core.UploadCandidate{
			Filename: part.FileName(),
			MIMEType: part.Header.Get("Content-Type"),
		}
		// Size is still unknown here, so only the type can fail.
		if err := core.ValidateUpload(candidate, policy); err != nil {
			part.Close()
			return core.UploadCandidate{}, nil, err
		}

		data, size, err := readPart(part, policy.MaxSizeBytes)
		part.Close()
		candidate.SizeBytes = size
		if err != nil {
			var tooBig *http.MaxBytesError
			if !errors.As(err, &tooBig) {
				return core.UploadCandidate{}, nil, err
			}
			candidate.SizeBytes = max(size, r.ContentLength, policy.MaxSizeBytes+1)
		}
		if err := core.ValidateUpload(candidate, policy); err != nil {
			return core.UploadCandidate{}, nil, err
		}
		return candidate, io.NopCloser(bytes.NewReader(data)), nil
	}
}

// readPart buffers at most limit+1 bytes of the part and returns its full
// length. A longer part is drained so the reported size is exact.
func readPart(part *multipart.Part, limit int64) ([]byte, int64, error) {
	data, err := io.ReadAll(io.LimitReader(part, limit+1))
	size := int64(len(data))
	if err != nil || size <= limit {
		return data, size, err
	}
	n, err := io.Copy(io.Discard, part)
	return data, size + n, err
}

// formatNumber renders n with the locale's digit grouping. Whole numbers
// print without decimals.
func formatNumber(p *message.Printer, n float64) string {
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return p.Sprintf("%d", int64(n))
	}
	return p.Sprintf("%.2f", n)
}
