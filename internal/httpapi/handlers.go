package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/yunseo-dev/tubedl/internal/download"
	"github.com/yunseo-dev/tubedl/internal/metrics"
)

type downloadRequest struct {
	URL    string `json:"url"`
	Format string `json:"format"`
}

type downloadResponse struct {
	Message     string `json:"message"`
	FileName    string `json:"fileName"`
	DownloadURL string `json:"downloadUrl"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing URL or format")
		return
	}
	if req.URL == "" || req.Format == "" {
		writeError(w, http.StatusBadRequest, "Missing URL or format")
		return
	}

	log.Info().Str("url", req.URL).Str("format", req.Format).Msg("starting download")

	// A started extraction always runs to completion: the request
	// context is deliberately not passed down, so a client disconnect
	// cannot kill the subprocess.
	fileName, err := s.downloader.Run(context.Background(), req.URL, req.Format)
	if err != nil {
		var invalid *download.InvalidFormatError
		if errors.As(err, &invalid) {
			metrics.IncDownload("invalid_format")
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error:   "Invalid format",
				Details: err.Error(),
			})
			return
		}
		metrics.IncDownload("failed")
		log.Error().Err(err).Str("url", req.URL).Msg("download failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Internal server error",
			Details: err.Error(),
		})
		return
	}

	if _, err := os.Stat(filepath.Join(s.dir, fileName)); err != nil {
		metrics.IncDownload("failed")
		log.Error().Err(err).Str("file", fileName).Msg("extracted file missing on disk")
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Internal server error",
			Details: fmt.Sprintf("file not found: %s", fileName),
		})
		return
	}

	metrics.IncDownload("success")
	log.Info().Str("file", fileName).Msg("download completed")
	writeJSON(w, http.StatusOK, downloadResponse{
		Message:     "Download successful",
		FileName:    fileName,
		DownloadURL: s.downloadURL(r, fileName),
	})
}

// downloadURL builds an absolute streaming URL from the request's own
// scheme and host.
func (s *Server) downloadURL(r *http.Request, fileName string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return fmt.Sprintf("%s://%s/api/stream/%s", scheme, r.Host, url.PathEscape(fileName))
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
