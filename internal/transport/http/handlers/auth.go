package http_handlers

import (
	"errors"
	"net/http"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/logger"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/transport/http/dto"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/transport/http/response"
)

type AuthHandler struct {
	svc *auth.Service
}

func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Register(r.Context(), req.Input())
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	middleware.OTPIssuedTotal.WithLabelValues(string(auth.PurposeVerifyEmail)).Inc()

	logger.WithCtx(r.Context()).Info().
		Str("user_id", res.User.ID).
		Msg("user_registered")

	response.OK(w, dto.MessageResponse{Message: res.Message})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Login(r.Context(), req.Input())
	if err != nil {
		middleware.LoginAttemptsTotal.WithLabelValues(errCode(err)).Inc()
		response.WriteError(w, r, err)
		return
	}
	middleware.LoginAttemptsTotal.WithLabelValues("success").Inc()

	logger.WithCtx(r.Context()).Info().
		Str("user_id", res.User.ID).
		Msg("user_logged_in")

	response.OK(w, dto.NewLoginResponse(res))
}

func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyOTPRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.VerifyOTP(r.Context(), req.Input())
	purpose := string(auth.PurposeVerifyEmail)
	if err != nil {
		middleware.OTPVerificationsTotal.WithLabelValues(purpose, errCode(err)).Inc()
		response.WriteError(w, r, err)
		return
	}
	middleware.OTPVerificationsTotal.WithLabelValues(purpose, "success").Inc()

	response.OK(w, dto.NewVerifyOTPResponse(res))
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotPasswordRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.ForgotPassword(r.Context(), req.Input())
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	middleware.OTPIssuedTotal.WithLabelValues(string(auth.PurposePasswordReset)).Inc()

	response.OK(w, dto.MessageResponse{Message: res.Message})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.ResetPassword(r.Context(), req.Input())
	purpose := string(auth.PurposePasswordReset)
	if err != nil {
		middleware.OTPVerificationsTotal.WithLabelValues(purpose, errCode(err)).Inc()
		response.WriteError(w, r, err)
		return
	}
	middleware.OTPVerificationsTotal.WithLabelValues(purpose, "success").Inc()

	response.OK(w, dto.MessageResponse{Message: res.Message})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ChangePasswordRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.ChangePassword(r.Context(), middleware.IdentityFromContext(r.Context()), req.Input())
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.MessageResponse{Message: res.Message})
}

func (h *AuthHandler) ChangeProfile(w http.ResponseWriter, r *http.Request) {
	var req dto.ChangeProfileRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.ChangeProfile(r.Context(), middleware.IdentityFromContext(r.Context()), req.Input())
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.ProfileResponse{
		Message: res.Message,
		User:    dto.NewUserView(res.User),
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.GetUser(r.Context(), middleware.IdentityFromContext(r.Context()))
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.MeResponse{User: dto.NewUserView(u)})
}

// errCode is the metrics label for a failed call.
func errCode(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "internal_error"
}
