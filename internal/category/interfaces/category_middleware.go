package interfaces

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

type pathIDKey string

func capitalizeFirstLetter(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(string(s[0])) + s[1:]
}

// ValidateIDPathParamsMiddleware parses the named path values as positive integer ids and
// stores them in the request context for pathID.
func (h *CategoryHandler) ValidateIDPathParamsMiddleware(next http.Handler, params ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, param := range params {
			paramValue := r.PathValue(param)
			if paramValue == "" {
				h.respondError(w, http.StatusBadRequest, capitalizeFirstLetter(fmt.Sprintf("%s is required", param)))
				return
			}

			id, err := strconv.ParseInt(paramValue, 10, 64)
			if err != nil || id <= 0 {
				h.logger.Debug("invalid path id", zap.String("param", param), zap.String("value", paramValue))
				switch param {
				case "categoryID":
					h.respondError(w, http.StatusNotFound, "Category not found")
				case "accountID":
					h.respondError(w, http.StatusNotFound, "Account not found")
				default:
					h.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s format", param))
				}
				return
			}
			r = r.WithContext(context.WithValue(r.Context(), pathIDKey(param), id))
		}
		next.ServeHTTP(w, r)
	})
}

// pathID returns an id stored by ValidateIDPathParamsMiddleware, or 0 when absent.
func pathID(r *http.Request, param string) int64 {
	id, _ := r.Context().Value(pathIDKey(param)).(int64)
	return id
}
