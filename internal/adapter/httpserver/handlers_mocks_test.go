package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/tunzy-shop/tunzy-session/internal/app"
	"github.com/tunzy-shop/tunzy-session/internal/platform/config"
)

// --- Mock implementations ---

type mockAppService struct {
	pairFn         func(ctx context.Context, phoneNumber string) (*app.PairResult, error)
	qrFn           func(ctx context.Context) (*app.QRResult, error)
	sessionCountFn func() (int, error)
}

func (m *mockAppService) Pair(ctx context.Context, phoneNumber string) (*app.PairResult, error) {
	if m.pairFn != nil {
		return m.pairFn(ctx, phoneNumber)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) QR(ctx context.Context) (*app.QRResult, error) {
	if m.qrFn != nil {
		return m.qrFn(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) SessionCount() (int, error) {
	if m.sessionCountFn != nil {
		return m.sessionCountFn()
	}
	return 0, nil
}

// --- Test helpers ---

var testNow = time.Date(2025, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

func newTestServer(t *testing.T, app appService, checks ...HealthCheck) *Server {
	t.Helper()

	srv, err := NewServer(&config.Config{Port: "3000"}, app, clockwork.NewFakeClockAt(testNow), prometheus.NewRegistry(), checks)
	require.NoError(t, err)
	return srv
}

// serve runs a request through the full middleware stack.
func serve(srv *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

// callHandler wraps a handler with error middleware, matching production behavior
func callHandler(handler echo.HandlerFunc, c echo.Context) error {
	return ErrorHandlingMiddleware()(handler)(c)
}
