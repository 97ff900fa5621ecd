package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextWithLoggerIsIdempotent(t *testing.T) {
	ctx, rlog := ContextWithLogger(context.Background())
	require.NotNil(t, rlog)
	again, sameLog := ContextWithLogger(ctx)
	assert.Equal(t, ctx, again)
	assert.Equal(t, rlog, sameLog)
	assert.Equal(t, rlog, FromContext(ctx))
}

func TestRequestIDFromContext(t *testing.T) {
	// a bare context has no request id
	assert.Empty(t, RequestIDFromContext(context.Background()))

	ctx, _ := ContextWithLogger(context.Background())
	id := RequestIDFromContext(ctx)
	assert.NotEmpty(t, id)

	other, _ := ContextWithLogger(context.Background())
	assert.NotEqual(t, id, RequestIDFromContext(other))
}

func TestAddRequestIDEchoesHeader(t *testing.T) {
	router := mux.NewRouter()
	AddRequestID(router)

	var seen string
	router.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-Id"))
}
