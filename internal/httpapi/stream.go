package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"

	"github.com/yunseo-dev/tubedl/internal/ledger"
	"github.com/yunseo-dev/tubedl/internal/metrics"
)

// streamMaxRetries is the number of retried copy attempts after a
// transient I/O failure (3 attempts total).
const streamMaxRetries = 2

// errClientGone marks a copy failure caused by the client closing its
// connection; it is abandoned silently, never retried.
var errClientGone = errors.New("client closed connection")

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/api/stream/")
	name, err := url.PathUnescape(raw)
	if err != nil {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	path, ok := s.resolve(name)
	if !ok {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	size := info.Size()

	w.Header().Set("Content-Type", contentTypeFor(path))
	w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+encodeRFC5987(name))
	w.Header().Set("Accept-Ranges", "bytes")

	start, end := int64(0), size-1
	status := http.StatusOK
	if rangeHeader := r.Header.Get("Range"); rangeHeader != "" {
		if rangeStart, rangeEnd, ok := parseRange(rangeHeader, size); ok {
			if rangeStart >= size {
				w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
				writeError(w, http.StatusRequestedRangeNotSatisfiable, "Range not satisfiable")
				return
			}
			start, end = rangeStart, rangeEnd
			status = http.StatusPartialContent
			w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
		}
	}

	w.Header().Set("Content-Length", strconv.FormatInt(end-start+1, 10))
	w.WriteHeader(status)

	s.copyRange(r.Context(), w, path, start, end)
}

// resolve maps a percent-decoded filename onto the storage directory.
// Only plain names directly inside the directory are allowed; the
// ledger's backing file is never served.
func (s *Server) resolve(name string) (string, bool) {
	if name == "" || name == "." || name == ".." || name == ledger.FileName {
		return "", false
	}
	if strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return "", false
	}
	return filepath.Join(s.dir, name), true
}

// parseRange parses a "bytes=start-end" header against the file size.
// The end is optional and clamped to the last byte. Anything malformed
// (missing start, suffix ranges, multiple ranges, end before start)
// reports !ok and the caller serves the full file.
func parseRange(header string, size int64) (start, end int64, ok bool) {
	spec, found := strings.CutPrefix(header, "bytes=")
	if !found || strings.Contains(spec, ",") {
		return 0, 0, false
	}
	startStr, endStr, found := strings.Cut(spec, "-")
	if !found {
		return 0, 0, false
	}

	start, err := strconv.ParseInt(strings.TrimSpace(startStr), 10, 64)
	if err != nil || start < 0 {
		return 0, 0, false
	}

	end = size - 1
	if endStr = strings.TrimSpace(endStr); endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < start {
			return 0, 0, false
		}
		if end > size-1 {
			end = size - 1
		}
	}
	return start, end, true
}

// contentTypeFor resolves a content type from the file extension,
// sniffing the content for unknown extensions before falling back to a
// generic binary type.
func contentTypeFor(path string) string {
	if ctype := mime.TypeByExtension(filepath.Ext(path)); ctype != "" {
		return ctype
	}
	if mt, err := mimetype.DetectFile(path); err == nil {
		return mt.String()
	}
	return "application/octet-stream"
}

// encodeRFC5987 percent-encodes a filename for the Content-Disposition
// filename* parameter. Everything outside the unreserved set is
// escaped, including quotes and parentheses that would break the
// header's syntax.
func encodeRFC5987(name string) string {
	var b strings.Builder
	for _, c := range []byte(name) {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

// copyRange streams bytes [start,end] of path into w. Headers are
// already sent, so failures cannot become an HTTP status: a transient
// I/O error is retried from the current offset while the client is
// still connected, and the connection is aborted once retries run out.
func (s *Server) copyRange(ctx context.Context, w http.ResponseWriter, path string, start, end int64) {
	total := end - start + 1
	var written int64
	attempts := 0

	operation := func() error {
		attempts++
		if attempts > 1 {
			metrics.IncStreamRetry()
			log.Warn().Str("path", path).Int64("offset", start+written).Int("attempt", attempts).
				Msg("retrying interrupted stream copy")
		}

		f, err := os.Open(path)
		if err != nil {
			return s.classify(ctx, err)
		}
		defer f.Close()

		if _, err := f.Seek(start+written, io.SeekStart); err != nil {
			return s.classify(ctx, err)
		}

		n, err := io.CopyN(w, f, total-written)
		written += n
		if err != nil {
			// CopyN reports io.EOF when the file shrank underneath
			// us (e.g. a racing sweep deletion); that is an I/O
			// failure like any other here.
			return s.classify(ctx, err)
		}
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(s.newBackOff(), ctx))
	if err == nil {
		return
	}
	if errors.Is(err, errClientGone) || ctx.Err() != nil {
		log.Debug().Str("path", path).Int64("written", written).Msg("client closed connection mid-stream")
		return
	}

	log.Error().Err(err).Str("path", path).Int64("written", written).Msg("stream copy failed, aborting connection")
	panic(http.ErrAbortHandler)
}

// classify turns a copy error into a permanent one when the client
// itself closed the connection, so no retry is attempted.
func (s *Server) classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return backoff.Permanent(errClientGone)
	}
	return err
}
