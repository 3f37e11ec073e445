package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHandleHealth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	w := serve(t, NewHealthHandler(fakePinger{}, logger).HandleHealth, request{method: http.MethodGet, target: "/healthz"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","database":"up"}`, w.Body.String())

	w = serve(t, NewHealthHandler(fakePinger{err: errors.New("closed")}, logger).HandleHealth, request{method: http.MethodGet, target: "/healthz"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
