package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/askindex/internal/models"
	"github.com/hyperjump/askindex/internal/storage"
	"github.com/hyperjump/askindex/pkg/utils"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	log := utils.LoggerFromContext(r.Context(), s.logger)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondJSON(w, http.StatusRequestEntityTooLarge, models.ErrorResponse{
				Error:   "request_too_large",
				Message: err.Error(),
			})
			return
		}
		s.respondJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "bad_request", Message: err.Error()})
		return
	}

	query, err := models.ParseSearchQuery(body)
	if err != nil {
		s.respondSearchError(w, r, err)
		return
	}
	log.Debug("search request",
		zap.String("industry", query.Industry),
		zap.Int("top_k", query.TopK))

	results, err := s.state.Pipeline.Handle(r.Context(), query)
	if err != nil {
		s.respondSearchError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, results)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	Status        string          `json:"status"`
	CachedTenants []string        `json:"cached_tenants"`
	Index         indexStatus     `json:"index"`
	Embedding     embeddingStatus `json:"embedding"`
}

type indexStatus struct {
	Driver         string `json:"driver"`
	DataSource     string `json:"data_source,omitempty"`
	VectorColumn   string `json:"vector_column"`
	DiskUsageBytes *int64 `json:"disk_usage_bytes,omitempty"`
}

type embeddingStatus struct {
	Provider   string `json:"provider"`
	Dimensions int    `json:"dimensions"`
	CacheSize  int    `json:"cache_size"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Status:        "ok",
		CachedTenants: s.state.Cache.Keys(),
		Index: indexStatus{
			Driver:       s.config.Index.Driver,
			DataSource:   s.config.Index.DataSource,
			VectorColumn: s.config.Index.VectorColumn,
		},
		Embedding: embeddingStatus{
			Provider:   s.config.Embedding.Provider,
			Dimensions: s.state.Embedder.Dimensions(),
			CacheSize:  s.config.Embedding.CacheSize,
		},
	}
	if n, err := storage.DataSourceBytes(s.config.Index.DataSource); err == nil {
		resp.Index.DiskUsageBytes = &n
	} else {
		utils.LoggerFromContext(r.Context(), s.logger).Warn("status: disk usage failed", zap.Error(err))
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
