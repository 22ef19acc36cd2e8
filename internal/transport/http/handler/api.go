package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/tamales-preorder/internal/application/notification"
	"github.com/tamales-preorder/internal/application/order"
	"github.com/tamales-preorder/internal/application/user"
	"github.com/tamales-preorder/internal/domain"
	"github.com/tamales-preorder/internal/transport/http/middleware"
)

const maxBodyBytes = 1 << 20

type operation func(w http.ResponseWriter, r *http.Request, body []byte)

type limiter interface {
	Allow(r *http.Request) bool
}

// APIHandler serves the single /api endpoint. Each request names its
// operation through the action query parameter or the action field of a
// JSON body; the query parameter wins when both are present.
type APIHandler struct {
	users      user.Service
	orders     order.Service
	notify     notification.Service
	emailLimit limiter
	ops        map[string]map[string]operation
}

// NewAPIHandler builds the dispatcher. emailLimit may be nil to disable
// throttling of the email actions.
func NewAPIHandler(users user.Service, orders order.Service, notify notification.Service, emailLimit limiter) *APIHandler {
	h := &APIHandler{users: users, orders: orders, notify: notify, emailLimit: emailLimit}
	h.ops = map[string]map[string]operation{
		http.MethodGet: {
			"getUser":      h.getUser,
			"getOrders":    h.getOrders,
			"getInventory": h.getInventory,
		},
		http.MethodPost: {
			"createUser":            h.createUser,
			"updateVerification":    h.updateVerification,
			"verifyUser":            h.verifyUser,
			"createOrder":           h.createOrder,
			"sendVerificationEmail": h.limited(h.sendVerificationEmail),
			"sendOrderEmails":       h.limited(h.sendOrderEmails),
		},
		http.MethodPut: {
			"updateVerification": h.updateVerification,
		},
		http.MethodDelete: {
			"deleteOrder": h.deleteOrder,
		},
	}
	return h
}

func (h *APIHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	op, found := h.ops[r.Method][actionOf(r, body)]
	if !found {
		writeError(w, http.StatusBadRequest, "Invalid action or method")
		return
	}
	op(w, r, body)
}

// Action serves one named operation on its own route, whatever the method.
func (h *APIHandler) Action(action string) http.HandlerFunc {
	var op operation
	for _, byAction := range h.ops {
		if candidate, ok := byAction[action]; ok {
			op = candidate
			break
		}
	}
	if op == nil {
		panic("handler: unknown action " + action)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := readBody(w, r)
		if !ok {
			return
		}
		op(w, r, body)
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if r.Method == http.MethodGet || r.Body == nil {
		return nil, true
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	return body, true
}

func actionOf(r *http.Request, body []byte) string {
	if action := r.URL.Query().Get("action"); action != "" {
		return action
	}
	if len(body) == 0 {
		return ""
	}
	var peek struct {
		Action string `json:"action"`
	}
	_ = json.Unmarshal(body, &peek)
	return peek.Action
}

// decode fills v from body. An empty body leaves v zeroed so the service
// reports the missing fields.
func decode(w http.ResponseWriter, body []byte, v interface{}) bool {
	if len(body) == 0 {
		return true
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

func (h *APIHandler) limited(op operation) operation {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		if h.emailLimit != nil && !h.emailLimit.Allow(r) {
			middleware.TooManyRequests(w)
			return
		}
		op(w, r, body)
	}
}

func (h *APIHandler) getUser(w http.ResponseWriter, r *http.Request, _ []byte) {
	u, err := h.users.Get(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UserEnvelope{User: u})
}

func (h *APIHandler) getOrders(w http.ResponseWriter, r *http.Request, _ []byte) {
	orders, err := h.orders.ListByEmail(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, OrdersEnvelope{Orders: orders})
}

func (h *APIHandler) getInventory(w http.ResponseWriter, r *http.Request, _ []byte) {
	writeJSON(w, http.StatusOK, InventoryEnvelope{Inventory: h.orders.Inventory(r.Context())})
}

func (h *APIHandler) createUser(w http.ResponseWriter, r *http.Request, body []byte) {
	var req domain.CreateUserRequest
	if !decode(w, body, &req) {
		return
	}
	if err := h.users.CreateOrUpdate(r.Context(), req); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessEnvelope{Success: true})
}

func (h *APIHandler) updateVerification(w http.ResponseWriter, r *http.Request, body []byte) {
	var req domain.UpdateVerificationRequest
	if !decode(w, body, &req) {
		return
	}
	if err := h.users.UpdateVerification(r.Context(), req); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessEnvelope{Success: true})
}

func (h *APIHandler) verifyUser(w http.ResponseWriter, r *http.Request, body []byte) {
	var req domain.VerifyUserRequest
	if !decode(w, body, &req) {
		return
	}
	u, err := h.users.Verify(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessEnvelope{Success: true, User: u})
}

func (h *APIHandler) createOrder(w http.ResponseWriter, r *http.Request, body []byte) {
	var req domain.CreateOrderRequest
	if !decode(w, body, &req) {
		return
	}
	id, err := h.orders.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessEnvelope{Success: true, OrderID: id})
}

func (h *APIHandler) deleteOrder(w http.ResponseWriter, r *http.Request, body []byte) {
	var req domain.DeleteOrderRequest
	if !decode(w, body, &req) {
		return
	}
	if err := h.orders.Delete(r.Context(), req); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessEnvelope{Success: true})
}

func (h *APIHandler) sendVerificationEmail(w http.ResponseWriter, r *http.Request, body []byte) {
	var req domain.VerificationEmailRequest
	if !decode(w, body, &req) {
		return
	}
	if err := h.notify.SendVerification(r.Context(), req); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessEnvelope{Success: true})
}

func (h *APIHandler) sendOrderEmails(w http.ResponseWriter, r *http.Request, body []byte) {
	var req domain.SendOrderEmailsRequest
	if !decode(w, body, &req) {
		return
	}
	if err := h.notify.SendOrderEmails(r.Context(), req); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessEnvelope{Success: true})
}
