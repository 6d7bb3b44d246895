package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tunzy-shop/tunzy-session/internal/adapter/filestore"
	"github.com/tunzy-shop/tunzy-session/internal/adapter/metrics"
	"github.com/tunzy-shop/tunzy-session/internal/app"
	"github.com/tunzy-shop/tunzy-session/internal/domain"
	"github.com/tunzy-shop/tunzy-session/internal/domain/domaintest"
	"github.com/tunzy-shop/tunzy-session/internal/platform/config"
	apperrors "github.com/tunzy-shop/tunzy-session/internal/platform/errors"
)

func decodeError(t *testing.T, body []byte) apperrors.ErrorResponse {
	t.Helper()
	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

// --- POST /api/pair ---

func TestHandlePair_Success(t *testing.T) {
	var gotPhone string
	svc := &mockAppService{
		pairFn: func(_ context.Context, phone string) (*app.PairResult, error) {
			gotPhone = phone
			return &app.PairResult{PairingCode: "ABCD-1234", SessionID: "tunzymd2_0123"}, nil
		},
	}
	srv := newTestServer(t, svc)

	rec := serve(srv, http.MethodPost, "/api/pair", `{"phoneNumber":"+255 712 345 678"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"pairingCode":"ABCD-1234","sessionId":"tunzymd2_0123"}`, rec.Body.String())
	assert.Equal(t, "+255 712 345 678", gotPhone)
}

func TestHandlePair_Errors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{"phone required", domain.ErrPhoneNumberRequired, http.StatusBadRequest, msgPhoneRequired},
		{"invalid phone", fmt.Errorf("%w: 7 digits", domain.ErrInvalidPhoneNumber), http.StatusBadRequest, msgInvalidPhone},
		{"at capacity", domain.ErrAtCapacity, http.StatusServiceUnavailable, msgAtCapacity},
		{"provisioning", fmt.Errorf("%w: disk full", domain.ErrProvisioning), http.StatusInternalServerError, msgPairFailed},
		{"protocol", fmt.Errorf("%w: %w", domain.ErrProtocol, domain.ErrLoggedOut), http.StatusInternalServerError, msgPairFailed},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, msgPairFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAppService{
				pairFn: func(context.Context, string) (*app.PairResult, error) { return nil, tt.err },
			}
			srv := newTestServer(t, svc)

			rec := serve(srv, http.MethodPost, "/api/pair", `{"phoneNumber":"1"}`)

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeError(t, rec.Body.Bytes())
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantMessage, resp.Message)
		})
	}
}

func TestHandlePair_MalformedBody(t *testing.T) {
	called := false
	svc := &mockAppService{
		pairFn: func(context.Context, string) (*app.PairResult, error) {
			called = true
			return nil, nil
		},
	}
	srv := newTestServer(t, svc)

	rec := serve(srv, http.MethodPost, "/api/pair", `{"phoneNumber":12345`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgBadBody, decodeError(t, rec.Body.Bytes()).Message)
	assert.False(t, called)
}

// --- POST /api/qr ---

func TestHandleQR_Success(t *testing.T) {
	svc := &mockAppService{
		qrFn: func(context.Context) (*app.QRResult, error) {
			return &app.QRResult{QR: "2@abc,def,ghi", SessionID: "tunzymd2_0123"}, nil
		},
	}
	srv := newTestServer(t, svc)

	rec := serve(srv, http.MethodPost, "/api/qr", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"qr":"2@abc,def,ghi","sessionId":"tunzymd2_0123"}`, rec.Body.String())
}

func TestHandleQR_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"provisioning", fmt.Errorf("%w: mkdir", domain.ErrProvisioning), http.StatusInternalServerError, msgQRFailed},
		{"protocol", fmt.Errorf("%w: %w", domain.ErrProtocol, context.DeadlineExceeded), http.StatusInternalServerError, msgQRFailed},
		{"at capacity", domain.ErrAtCapacity, http.StatusServiceUnavailable, msgAtCapacity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAppService{
				qrFn: func(context.Context) (*app.QRResult, error) { return nil, tt.err },
			}
			srv := newTestServer(t, svc)

			rec := serve(srv, http.MethodPost, "/api/qr", "")

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantMsg, decodeError(t, rec.Body.Bytes()).Message)
		})
	}
}

func TestLinkError_Types(t *testing.T) {
	assert.Equal(t, apperrors.TypeValidation, linkError(domain.ErrInvalidPhoneNumber, msgPairFailed).Type)
	assert.Equal(t, apperrors.TypeUnavailable, linkError(domain.ErrAtCapacity, msgPairFailed).Type)
	assert.Equal(t, apperrors.TypeExternal, linkError(domain.ErrProtocol, msgPairFailed).Type)
	assert.Equal(t, apperrors.TypeInternal, linkError(domain.ErrProvisioning, msgPairFailed).Type)
}

// --- Against the real application layer ---

func newRealServer(t *testing.T, factory *domaintest.StubFactory) (*Server, *filestore.Store) {
	t.Helper()

	clock := clockwork.NewFakeClock()
	store := filestore.NewStore(filepath.Join(t.TempDir(), "sessions"), clock)
	require.NoError(t, store.EnsureRoot())

	reg := prometheus.NewRegistry()
	m := metrics.NewSessionMetrics(reg)
	svc := app.NewService(store, factory, app.NewRegistry(10, time.Minute, clock, m), m, clock, app.Options{
		SessionIDPrefix: "tunzymd2_",
		BrandName:       "TUNZY-MD2",
		RequestTimeout:  time.Minute,
		PruneUnlinked:   true,
	})

	srv, err := NewServer(&config.Config{Port: "3000"}, svc, clock, reg, nil)
	require.NoError(t, err)
	return srv, store
}

func TestPairEndpoint_RejectsBeforeCreatingSession(t *testing.T) {
	factory := &domaintest.StubFactory{}
	srv, store := newRealServer(t, factory)

	for _, body := range []string{`{}`, `{"phoneNumber":""}`, `{"phoneNumber":"123-456"}`, `{"phoneNumber":"+1234567890123456"}`} {
		rec := serve(srv, http.MethodPost, "/api/pair", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	n, err := store.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, factory.Sessions())
}

func TestPairEndpoint_EndToEnd(t *testing.T) {
	client := domaintest.NewStubClient()
	client.PairingCode = "QWER-TYUI"
	srv, store := newRealServer(t, domaintest.Single(client))

	rec := serve(srv, http.MethodPost, "/api/pair", `{"phoneNumber":"+44 7700 900123"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp pairResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "QWER-TYUI", resp.PairingCode)
	assert.Regexp(t, `^tunzymd2_[0-9a-f]{32}$`, resp.SessionID)
	assert.Equal(t, []string{"447700900123"}, client.PairCalls())

	health := serve(srv, http.MethodGet, "/health", "")
	assert.Contains(t, health.Body.String(), `"sessions":1`)

	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestHealthEndpoint_CountsSessionDirectories(t *testing.T) {
	srv, store := newRealServer(t, &domaintest.StubFactory{})
	for i := range 3 {
		require.NoError(t, os.Mkdir(filepath.Join(store.Root(), fmt.Sprintf("tunzymd2_%d", i)), 0o700))
	}
	require.NoError(t, os.WriteFile(filepath.Join(store.Root(), "stray.txt"), nil, 0o600))

	rec := serve(srv, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Sessions)
}
