package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tunzy-shop/tunzy-session/internal/domain"
	apperrors "github.com/tunzy-shop/tunzy-session/internal/platform/errors"
)

const (
	msgBadBody       = "Invalid request body"
	msgPhoneRequired = "Phone number required"
	msgInvalidPhone  = "Invalid phone number: use 10 to 15 digits including the country code"
	msgAtCapacity    = "Server busy, please try again shortly"
	msgPairFailed    = "Server error"
	msgQRFailed      = "QR generation failed"
)

type pairRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

type pairResponse struct {
	Success     bool   `json:"success"`
	PairingCode string `json:"pairingCode"`
	SessionID   string `json:"sessionId"`
}

type qrResponse struct {
	Success   bool   `json:"success"`
	QR        string `json:"qr"`
	SessionID string `json:"sessionId"`
}

func (s *Server) registerAPIRoutes() {
	s.echo.POST("/api/pair", s.handlePair)
	s.echo.POST("/api/qr", s.handleQR)
}

func (s *Server) handlePair(c echo.Context) error {
	var req pairRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError(msgBadBody).WithField("bind_error", err.Error())
	}

	res, err := s.app.Pair(c.Request().Context(), req.PhoneNumber)
	if err != nil {
		return linkError(err, msgPairFailed)
	}

	if err := c.JSON(http.StatusOK, pairResponse{Success: true, PairingCode: res.PairingCode, SessionID: res.SessionID}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleQR(c echo.Context) error {
	res, err := s.app.QR(c.Request().Context())
	if err != nil {
		return linkError(err, msgQRFailed)
	}

	if err := c.JSON(http.StatusOK, qrResponse{Success: true, QR: res.QR, SessionID: res.SessionID}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

// linkError maps a failed pairing or QR attempt onto the response the web client
// shows. fallback is the generic message for server-side failures.
func linkError(err error, fallback string) *apperrors.Error {
	switch {
	case errors.Is(err, domain.ErrPhoneNumberRequired):
		return apperrors.ValidationError(msgPhoneRequired)
	case errors.Is(err, domain.ErrInvalidPhoneNumber):
		return apperrors.ValidationError(msgInvalidPhone)
	case errors.Is(err, domain.ErrAtCapacity):
		return apperrors.UnavailableError(msgAtCapacity, err)
	case errors.Is(err, domain.ErrProtocol):
		return apperrors.ExternalError(fallback, err)
	default:
		return apperrors.InternalError(fallback, err)
	}
}
