package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/koru-app/koru/internal/auth"
	"github.com/koru-app/koru/internal/storage"
)

const (
	defaultTransactionLimit = 100
	maxTransactionLimit     = 500
)

// Exporter uploads CSV exports and returns presigned download URLs
type Exporter interface {
	UploadExport(ctx context.Context, userID string, body io.Reader) (*storage.ExportResult, error)
}

// ListConnections returns the caller's bank connections
func (api *Api) ListConnections(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	conns, err := api.db.ListConnections(r.Context(), userID)
	if err != nil {
		log.Printf("Error listing connections: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, conns)
}

// ListAccounts returns the caller's accounts across all connections
func (api *Api) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	accounts, err := api.db.ListAccounts(r.Context(), userID)
	if err != nil {
		log.Printf("Error listing accounts: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// ListTransactions returns the caller's transactions ordered by booking
// time descending, with offset/limit paging.
func (api *Api) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", defaultTransactionLimit)
	if limit > maxTransactionLimit {
		limit = maxTransactionLimit
	}

	txs, err := api.db.ListTransactions(r.Context(), userID, offset, limit)
	if err != nil {
		log.Printf("Error listing transactions: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

// EnrichTransactions enqueues an enrichment task for one of the caller's
// accounts. The enrichment itself runs out of band.
func (api *Api) EnrichTransactions(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	accountID := chi.URLParam(r, "accountID")

	owned, err := api.db.AccountBelongsToUser(r.Context(), accountID, userID)
	if err != nil {
		log.Printf("Error checking account ownership: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !owned {
		writeError(w, http.StatusNotFound, "Account not found")
		return
	}

	if err := api.tasks.PublishEnrichment(r.Context(), accountID); err != nil {
		log.Printf("Error publishing enrichment task: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"message": "Enrichment task started"})
}

// ExportTransactions writes the caller's transactions to CSV, uploads the
// file to object storage and returns a presigned download URL.
func (api *Api) ExportTransactions(w http.ResponseWriter, r *http.Request) {
	if api.exports == nil {
		writeError(w, http.StatusServiceUnavailable, "Export storage not configured")
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())

	txs, err := api.db.ListTransactions(r.Context(), userID, 0, maxTransactionLimit)
	if err != nil {
		log.Printf("Error listing transactions for export: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	cw.Write([]string{"id", "account_id", "amount", "currency", "native_amount", "processing_status", "opposing_name", "booking_time", "value_time"})
	for _, tx := range txs {
		opposing := ""
		if tx.OpposingName != nil {
			opposing = *tx.OpposingName
		}
		cw.Write([]string{
			tx.ID,
			tx.AccountID,
			strconv.FormatFloat(tx.Amount, 'f', 2, 64),
			tx.Currency,
			strconv.FormatFloat(tx.NativeAmount, 'f', 2, 64),
			string(tx.ProcessingStatus),
			opposing,
			tx.BookingTime.Format("2006-01-02T15:04:05Z07:00"),
			tx.ValueTime.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		log.Printf("Error writing export CSV: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	result, err := api.exports.UploadExport(r.Context(), userID, &buf)
	if err != nil {
		log.Printf("Error uploading export: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
