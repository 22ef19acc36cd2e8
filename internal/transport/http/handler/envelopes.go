package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tamales-preorder/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// UserEnvelope wraps getUser; User is null when nobody has that email.
type UserEnvelope struct {
	User *domain.User `json:"user"`
}

// SuccessEnvelope wraps every write.
type SuccessEnvelope struct {
	Success bool         `json:"success"`
	User    *domain.User `json:"user,omitempty"`
	OrderID int64        `json:"orderId,omitempty"`
}

type OrdersEnvelope struct {
	Orders []domain.Order `json:"orders"`
}

type InventoryEnvelope struct {
	Inventory domain.Inventory `json:"inventory"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// writeServiceError maps domain sentinels to status codes. Anything else is
// an operational failure and surfaces as 500 with its message.
func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "err", err)
	}
	msg := err.Error()
	var de *domain.Error
	if errors.As(err, &de) {
		msg = de.Msg
	}
	writeError(w, status, msg)
}
