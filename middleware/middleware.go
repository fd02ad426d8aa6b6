// Package middleware validates JSON request bodies against a compiled
// schema before the handler runs. Invalid bodies never reach application
// code; the middleware answers 422 with the full issue list.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	granite "github.com/graniteware/granite"
	"github.com/graniteware/granite/codec"
)

// ctxKeyValidated is the typed context key for the coerced body.
type ctxKeyValidated struct{}

// ContextWithValidated attaches a coerced body to the context.
func ContextWithValidated(ctx context.Context, body any) context.Context {
	return context.WithValue(ctx, ctxKeyValidated{}, body)
}

// ValidatedFromContext retrieves the coerced body placed by Validate.
func ValidatedFromContext(ctx context.Context) (any, bool) {
	v := ctx.Value(ctxKeyValidated{})
	if v == nil {
		return nil, false
	}
	return v, true
}

// ErrorPayload shapes an issue list for a JSON error response. Each
// response carries a fresh request id so a client report can be matched
// to server logs.
func ErrorPayload(issues granite.Issues) map[string]any {
	errs := make([]map[string]any, len(issues))
	for i, it := range issues {
		e := map[string]any{
			"path":    it.Path,
			"code":    it.Code,
			"message": it.Message,
		}
		if it.Key != nil {
			e["key"] = it.Key
		}
		if it.Value != nil {
			e["value"] = it.Value
		}
		errs[i] = e
	}
	return map[string]any{
		"errors":     errs,
		"request_id": uuid.NewString(),
	}
}

// Validate returns middleware that decodes the request body as JSON,
// validates it against s, and passes the coerced result to the handler
// via the request context. Malformed JSON answers 400; validation
// failures answer 422; an execution fault answers 500 without leaking
// the cause.
func Validate(s *granite.Schema) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := codec.DecodeJSON(r.Body)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{
					"errors":     []map[string]any{{"message": "malformed JSON body"}},
					"request_id": uuid.NewString(),
				})
				return
			}
			out, err := s.Validate(raw)
			if err != nil {
				if issues, ok := granite.AsIssues(err); ok {
					writeJSON(w, http.StatusUnprocessableEntity, ErrorPayload(issues))
					return
				}
				writeJSON(w, http.StatusInternalServerError, map[string]any{
					"errors":     []map[string]any{{"message": "internal validation fault"}},
					"request_id": uuid.NewString(),
				})
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithValidated(r.Context(), out)))
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = codec.EncodeJSON(w, body)
}
