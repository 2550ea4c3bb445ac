package dto

import (
	"time"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
)

// UserView is the public shape of a user. The hash and pending code never leave the service.
type UserView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Location  *string   `json:"location"`
	Phone     *string   `json:"phone_number"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewUserView(u domain.User) UserView {
	return UserView{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Location:  u.Location,
		Phone:     u.Phone,
		Verified:  u.Verified,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type MessageResponse struct {
	Message string `json:"message"`
}

type LoginResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"` // "Bearer"
	ExpiresIn   int64    `json:"expires_in"` // seconds, 0 = no expiry
	User        UserView `json:"user"`
}

type VerifyOTPResponse struct {
	Message     string   `json:"message"`
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	ExpiresIn   int64    `json:"expires_in"`
	User        UserView `json:"user"`
}

type ProfileResponse struct {
	Message string   `json:"message"`
	User    UserView `json:"user"`
}

type MeResponse struct {
	User UserView `json:"user"`
}

func NewLoginResponse(res auth.SessionResult) LoginResponse {
	return LoginResponse{
		AccessToken: res.Token.AccessToken,
		TokenType:   res.Token.TokenType,
		ExpiresIn:   res.Token.ExpiresIn,
		User:        NewUserView(res.User),
	}
}

func NewVerifyOTPResponse(res auth.SessionResult) VerifyOTPResponse {
	return VerifyOTPResponse{
		Message:     res.Message,
		AccessToken: res.Token.AccessToken,
		TokenType:   res.Token.TokenType,
		ExpiresIn:   res.Token.ExpiresIn,
		User:        NewUserView(res.User),
	}
}
