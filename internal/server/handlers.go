package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"wrapRelay/internal/storage"
	"wrapRelay/internal/webhook"
)

// maxWebhookBody bounds one delivery. A block's worth of logs fits well
// under this.
const maxWebhookBody = 10 << 20

// webhookResponse is the acknowledgement contract: the provider only needs
// to know the delivery was received, so the status is always 200 and
// per-entry results stay in the outcome stream.
type webhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		s.logger.Warn("failed to read webhook body", zap.Error(err))
		writeJSON(w, http.StatusOK, webhookResponse{Success: false, Message: "Internal processing error."})
		return
	}

	envelope, err := webhook.ParseEnvelope(body)
	if err != nil {
		s.logger.Warn("rejecting malformed delivery", zap.Error(err))
		writeJSON(w, http.StatusOK, webhookResponse{Success: false, Message: "Malformed payload."})
		return
	}

	s.processor.ProcessEnvelope(r.Context(), envelope)
	writeJSON(w, http.StatusOK, webhookResponse{Success: true, Message: "Transfer events processed."})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	filter, err := parseTransferFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	page, err := s.history.TransactionHistory(r.Context(), filter)
	if err != nil {
		s.logger.Error("history query failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	contractAddress := r.URL.Query().Get("contractAddress")
	if contractAddress == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "contractAddress is required"})
		return
	}

	meta, err := s.history.TokenMetadata(r.Context(), contractAddress)
	switch {
	case errors.Is(err, storage.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid contract address"})
		return
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no transfers recorded for contract"})
		return
	case err != nil:
		s.logger.Error("metadata query failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func parseTransferFilter(r *http.Request) (storage.TransferFilter, error) {
	query := r.URL.Query()
	filter := storage.TransferFilter{Page: 1, Limit: 10}

	if raw := query.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return filter, errors.New("page must be a positive integer")
		}
		filter.Page = page
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 100 {
			return filter, errors.New("limit must be between 1 and 100")
		}
		filter.Limit = limit
	}

	if symbol := query.Get("symbol"); symbol != "" {
		filter.Symbol = &symbol
	}
	if sender := query.Get("sender"); sender != "" {
		filter.Sender = &sender
	}
	if receiver := query.Get("receiver"); receiver != "" {
		filter.Receiver = &receiver
	}

	if raw := query.Get("startTime"); raw != "" {
		start, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, errors.New("startTime must be an RFC 3339 timestamp")
		}
		filter.StartTime = &start
	}
	if raw := query.Get("endTime"); raw != "" {
		end, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, errors.New("endTime must be an RFC 3339 timestamp")
		}
		filter.EndTime = &end
	}

	return filter, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
