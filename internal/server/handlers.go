package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"orderintake/internal"
	"orderintake/internal/catalog"
	"orderintake/internal/pipeline"
)

// 10 MB is plenty for an order email with attachments.
const maxUploadBytes = 10 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"catalogVersion": snap.Version,
		"products":       len(snap.Products),
	})
}

// handleParseEmail accepts either a multipart upload under "file" or the
// raw email as the request body.
func (s *Server) handleParseEmail(w http.ResponseWriter, r *http.Request) {
	raw, err := readEmailPayload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := s.intake.ParseEmail(raw)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrEmptyEmail), errors.Is(err, pipeline.ErrBinaryInput):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			s.logger.Error("parse email failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to parse email")
		}
		return
	}

	s.logger.Info("email parsed",
		zap.String("order_id", order.ID),
		zap.Int("items", len(order.Items)),
		zap.String("status", string(order.Status)))
	writeJSON(w, http.StatusOK, order)
}

type validateOrderRequest struct {
	Items []internal.CandidateItem `json:"items"`
}

func (s *Server) handleValidateOrder(w http.ResponseWriter, r *http.Request) {
	var req validateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items is required")
		return
	}

	order := s.intake.ValidateItems(req.Items)
	writeJSON(w, http.StatusOK, order)
}

type mergeOrdersRequest struct {
	Orders []internal.Order `json:"orders"`
}

func (s *Server) handleMergeOrders(w http.ResponseWriter, r *http.Request) {
	var req mergeOrdersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	merged, err := s.intake.MergeOrders(req.Orders)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrNoOrders):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, pipeline.ErrUnknownSKU):
			writeError(w, http.StatusConflict, err.Error())
		default:
			s.logger.Error("merge orders failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to merge orders")
		}
		return
	}

	s.logger.Info("orders merged",
		zap.Int("inputs", len(req.Orders)),
		zap.String("order_id", merged.ID))
	writeJSON(w, http.StatusOK, merged)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"version":  snap.Version,
		"loadedAt": snap.LoadedAt,
		"products": snap.Products,
	})
}

func (s *Server) handleCatalogReload(w http.ResponseWriter, r *http.Request) {
	products, err := catalog.LoadCSV(s.cfg.CatalogCSVPath)
	if err != nil {
		s.logger.Error("catalog reload failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to reload catalog")
		return
	}
	if err := s.store.Replace(products); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	snap := s.store.Snapshot()
	s.logger.Info("catalog reloaded",
		zap.Int("products", len(snap.Products)),
		zap.Int64("version", snap.Version))
	writeJSON(w, http.StatusOK, map[string]any{
		"version":  snap.Version,
		"products": len(snap.Products),
	})
}

func readEmailPayload(r *http.Request) ([]byte, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, errors.New("invalid multipart form")
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, errors.New("file field is required")
		}
		defer file.Close()
		return io.ReadAll(io.LimitReader(file, maxUploadBytes))
	}
	return io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
