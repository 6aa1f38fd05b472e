package api

import (
	"net/http"

	"github.com/sydlexius/artistlink/internal/logging"
)

func (r *Router) handleGetLogging(w http.ResponseWriter, req *http.Request) {
	if r.logManager == nil {
		writeError(w, req, http.StatusServiceUnavailable, "logging manager not available")
		return
	}
	writeJSON(w, http.StatusOK, r.logManager.Config())
}

// handleUpdateLogging applies a partial logging config at runtime. The log
// file path is fixed by the config file and cannot be changed over HTTP.
func (r *Router) handleUpdateLogging(w http.ResponseWriter, req *http.Request) {
	if r.logManager == nil {
		writeError(w, req, http.StatusServiceUnavailable, "logging manager not available")
		return
	}

	var body struct {
		Level          string `json:"level"`
		Format         string `json:"format"`
		FileMaxSizeMB  int    `json:"file_max_size_mb"`
		FileMaxFiles   int    `json:"file_max_files"`
		FileMaxAgeDays int    `json:"file_max_age_days"`
	}
	if !decodeBody(w, req, &body) {
		return
	}
	if body.Level != "" && !logging.ValidLevel(body.Level) {
		writeError(w, req, http.StatusBadRequest, "invalid level; must be debug, info, warn, or error")
		return
	}
	if body.Format != "" && !logging.ValidFormat(body.Format) {
		writeError(w, req, http.StatusBadRequest, "invalid format; must be text or json")
		return
	}
	if body.FileMaxSizeMB < 0 || body.FileMaxFiles < 0 || body.FileMaxAgeDays < 0 {
		writeError(w, req, http.StatusBadRequest, "file limits must not be negative")
		return
	}

	// Only overwrite fields that are provided.
	cfg := r.logManager.Config()
	if body.Level != "" {
		cfg.Level = body.Level
	}
	if body.Format != "" {
		cfg.Format = body.Format
	}
	if body.FileMaxSizeMB > 0 {
		cfg.FileMaxSizeMB = body.FileMaxSizeMB
	}
	if body.FileMaxFiles > 0 {
		cfg.FileMaxFiles = body.FileMaxFiles
	}
	if body.FileMaxAgeDays > 0 {
		cfg.FileMaxAgeDays = body.FileMaxAgeDays
	}

	r.logManager.Reconfigure(cfg)
	r.logger.Info("logging reconfigured", "config", cfg.String())
	writeJSON(w, http.StatusOK, cfg)
}
