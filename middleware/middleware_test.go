package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	granite "github.com/graniteware/granite"
	"github.com/graniteware/granite/codec"
	"github.com/graniteware/granite/middleware"
	"github.com/stretchr/testify/require"
)

var signupSchema = granite.MustCompile(map[string]any{
	"+Type": "Object",
	"Name":  map[string]any{"+Type": "String", "+MaxLength": 32},
	"Age":   map[string]any{"+Type": "Integer", "+MinValue": 0},
})

func newHandler(t *testing.T) http.Handler {
	t.Helper()
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := middleware.ValidatedFromContext(r.Context())
		require.True(t, ok)
		w.WriteHeader(http.StatusOK)
		require.NoError(t, codec.EncodeJSON(w, body))
	})
	return middleware.Validate(signupSchema)(inner)
}

func TestValidate_PassesCoercedBody(t *testing.T) {
	h := newHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(`{"Name":"  alice  ","Age":"30"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := codec.UnmarshalJSON(rec.Body.Bytes())
	require.NoError(t, err)
	m := body.(map[string]any)
	require.Equal(t, "alice", m["Name"])
	require.Equal(t, json.Number("30"), m["Age"])
}

func TestValidate_AnswersAllIssuesAtOnce(t *testing.T) {
	h := newHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(`{"Name":null,"Age":-1}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body, err := codec.UnmarshalJSON(rec.Body.Bytes())
	require.NoError(t, err)
	m := body.(map[string]any)
	require.Len(t, m["errors"], 2)
	require.NotEmpty(t, m["request_id"])

	first := m["errors"].([]any)[0].(map[string]any)
	require.Equal(t, "Age", first["path"])
}

func TestValidate_RejectsMalformedJSON(t *testing.T) {
	h := newHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
