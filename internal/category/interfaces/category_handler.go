package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/sebuszqo/TimeTracker/internal/category/application"
	categoryErrors "github.com/sebuszqo/TimeTracker/internal/category/errors"
)

type CategoryServiceInterface interface {
	Create(ctx context.Context, in application.CreateInput) (*application.Category, error)
	Fetch(ctx context.Context, id int64) (*application.Category, error)
	Save(ctx context.Context, c *application.Category) error
	Children(ctx context.Context, c *application.Category) ([]*application.Category, error)
	Descendants(ctx context.Context, c *application.Category) ([]*application.Category, error)
	Ancestors(ctx context.Context, c *application.Category) ([]*application.Category, error)
	FindForAccount(ctx context.Context, accountID int64) ([]*application.Category, error)
	Delete(ctx context.Context, c *application.Category, removeChildren bool) error
}

type CategoryHandler struct {
	service      CategoryServiceInterface
	logger       *zap.Logger
	respondJSON  func(w http.ResponseWriter, status int, payload interface{})
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string)
}

func NewCategoryHandler(
	service CategoryServiceInterface,
	logger *zap.Logger,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string),
) *CategoryHandler {
	if service == nil || logger == nil || respondJSON == nil || respondError == nil {
		panic("Service, logger and response functions must not be nil")
	}
	return &CategoryHandler{
		service:      service,
		logger:       logger,
		respondJSON:  respondJSON,
		respondError: respondError,
	}
}

type createCategoryRequest struct {
	Name      string `json:"name"`
	ParentID  *int64 `json:"parent_id"`
	AccountID *int64 `json:"account_id"`
}

// optionalID tells an absent field apart from an explicit null.
type optionalID struct {
	Set   bool
	Value *int64
}

func (o *optionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

type updateCategoryRequest struct {
	Name      *string    `json:"name"`
	ParentID  optionalID `json:"parent_id"`
	AccountID *int64     `json:"account_id"`
}

// fail maps a service error to its HTTP status.
func (h *CategoryHandler) fail(w http.ResponseWriter, err error) {
	var validationErrors *categoryErrors.ValidationErrors
	if errors.As(err, &validationErrors) {
		messages := make([]string, 0, len(validationErrors.Errors))
		for _, e := range validationErrors.Errors {
			messages = append(messages, e.Error())
		}
		h.respondError(w, http.StatusBadRequest, "Invalid category", messages)
		return
	}
	if categoryErrors.IsValidationError(err) {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var e *categoryErrors.Error
	if !errors.As(err, &e) {
		h.logger.Error("unexpected category error", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	switch e.Code {
	case categoryErrors.CodeNotFound:
		h.respondError(w, http.StatusNotFound, e.Msg)
	case categoryErrors.CodeInvalidType:
		h.respondError(w, http.StatusBadRequest, e.Msg)
	case categoryErrors.CodeInsufficientParentOrAccount:
		h.respondError(w, http.StatusUnprocessableEntity, e.Msg)
	case categoryErrors.CodeInconsistentParentAndAccount:
		h.respondError(w, http.StatusConflict, e.Msg)
	case categoryErrors.CodeBadConnection:
		h.logger.Error("category storage unavailable", zap.Error(err))
		h.respondError(w, http.StatusServiceUnavailable, "Category storage unavailable")
	default:
		h.respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *CategoryHandler) HandleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	category, err := h.service.Create(r.Context(), application.CreateInput{
		Name:      req.Name,
		ParentID:  req.ParentID,
		AccountID: req.AccountID,
	})
	if err != nil {
		h.fail(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status":   "success",
		"message":  "Category created successfully.",
		"category": category,
	})
}

func (h *CategoryHandler) HandleGetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.service.Fetch(r.Context(), pathID(r, "categoryID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"category": category,
	})
}

// relatives serves one of the tree lookups of a category.
func (h *CategoryHandler) relatives(
	lookup func(ctx context.Context, c *application.Category) ([]*application.Category, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category, err := h.service.Fetch(r.Context(), pathID(r, "categoryID"))
		if err != nil {
			h.fail(w, err)
			return
		}
		categories, err := lookup(r.Context(), category)
		if err != nil {
			h.fail(w, err)
			return
		}
		h.respondJSON(w, http.StatusOK, map[string]interface{}{
			"status":     "success",
			"categories": categories,
		})
	}
}

func (h *CategoryHandler) HandleGetChildren(w http.ResponseWriter, r *http.Request) {
	h.relatives(h.service.Children)(w, r)
}

func (h *CategoryHandler) HandleGetDescendants(w http.ResponseWriter, r *http.Request) {
	h.relatives(h.service.Descendants)(w, r)
}

func (h *CategoryHandler) HandleGetAncestors(w http.ResponseWriter, r *http.Request) {
	h.relatives(h.service.Ancestors)(w, r)
}

func (h *CategoryHandler) HandleListAccountCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.FindForAccount(r.Context(), pathID(r, "accountID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "success",
		"categories": categories,
	})
}

func (h *CategoryHandler) HandleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req updateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	ctx := r.Context()
	category, err := h.service.Fetch(ctx, pathID(r, "categoryID"))
	if err != nil {
		h.fail(w, err)
		return
	}

	if req.Name != nil {
		category.SetName(*req.Name)
	}
	if req.ParentID.Set {
		if req.ParentID.Value == nil {
			category.ClearParent()
		} else {
			parent, err := h.service.Fetch(ctx, *req.ParentID.Value)
			if err != nil {
				h.fail(w, err)
				return
			}
			if err := category.SetParent(parent); err != nil {
				h.fail(w, err)
				return
			}
		}
	}
	if req.AccountID != nil {
		category.SetAccount(*req.AccountID)
	}

	if err := h.service.Save(ctx, category); err != nil {
		h.fail(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"message":  "Category updated successfully.",
		"category": category,
	})
}

func (h *CategoryHandler) HandleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	removeChildren := false
	if raw := r.URL.Query().Get("remove_children"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "Invalid remove_children value")
			return
		}
		removeChildren = parsed
	}

	ctx := r.Context()
	category, err := h.service.Fetch(ctx, pathID(r, "categoryID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.service.Delete(ctx, category, removeChildren); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CategoryHandler) RegisterRoutes(mux *http.ServeMux) {
	byID := func(handler http.HandlerFunc) http.Handler {
		return h.ValidateIDPathParamsMiddleware(handler, "categoryID")
	}
	mux.Handle("POST /api/categories", http.HandlerFunc(h.HandleCreateCategory))
	mux.Handle("GET /api/categories/{categoryID}", byID(h.HandleGetCategory))
	mux.Handle("PATCH /api/categories/{categoryID}", byID(h.HandleUpdateCategory))
	mux.Handle("DELETE /api/categories/{categoryID}", byID(h.HandleDeleteCategory))
	mux.Handle("GET /api/categories/{categoryID}/children", byID(h.HandleGetChildren))
	mux.Handle("GET /api/categories/{categoryID}/descendants", byID(h.HandleGetDescendants))
	mux.Handle("GET /api/categories/{categoryID}/ancestors", byID(h.HandleGetAncestors))
	mux.Handle("GET /api/accounts/{accountID}/categories",
		h.ValidateIDPathParamsMiddleware(http.HandlerFunc(h.HandleListAccountCategories), "accountID"))
}
