package account

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

type Handler struct {
	accountService Service
	logger         *zap.Logger
	respondJSON    func(w http.ResponseWriter, status int, payload interface{})
	respondError   func(w http.ResponseWriter, status int, message string, errors ...[]string)
}

func NewHandler(
	accountService Service,
	logger *zap.Logger,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string),
) *Handler {
	return &Handler{
		accountService: accountService,
		logger:         logger,
		respondJSON:    respondJSON,
		respondError:   respondError,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("POST /api/accounts", http.HandlerFunc(h.HandleCreateAccount))
	mux.Handle("GET /api/accounts/{accountID}", http.HandlerFunc(h.HandleGetAccount))
}

func (h *Handler) HandleCreateAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.accountService.CreateAccount(r.Context())
	if err != nil {
		h.logger.Error("could not create account", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Could not create account")
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status":  "success",
		"message": "Account created successfully.",
		"account": account,
	})
}

func (h *Handler) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("accountID"), 10, 64)
	if err != nil || id <= 0 {
		h.respondError(w, http.StatusNotFound, "Account not found")
		return
	}

	account, err := h.accountService.GetAccount(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			h.respondError(w, http.StatusNotFound, "Account not found")
			return
		}
		h.logger.Error("could not fetch account", zap.Int64("account_id", id), zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Could not fetch account")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"account": account,
	})
}
