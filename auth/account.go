package auth

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/jmcleod/focusflow/apiclient"
	"github.com/jmcleod/focusflow/apperr"
)

// LoginResult is the profile returned by a successful login. Tokens are
// stored in the session and not exposed here.
type LoginResult struct {
	UserID            string   `json:"userId"`
	FullName          string   `json:"fullName"`
	UserName          string   `json:"userName"`
	Email             string   `json:"email"`
	ProfilePictureURL string   `json:"profilePictureUrl"`
	Roles             []string `json:"roles"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	LoginResult
}

// PasswordResetConfirmation completes a password reset.
type PasswordResetConfirmation struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// DeletionConfirmation confirms an account deletion request.
type DeletionConfirmation struct {
	Token           string   `json:"token"`
	DeletionReasons []string `json:"deletionReasons,omitempty"`
	MissingFeatures []string `json:"missingFeatures,omitempty"`
	FeedbackText    string   `json:"feedbackText,omitempty"`
}

// NormalizeEmail returns the canonical form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(email)))
}

// Login exchanges credentials for tokens and stores them in the session.
// Rejected credentials are reported with kind authentication.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.New(apperr.KindValidation, "Email and password are required", nil)
	}

	resp, err := apiclient.Post[loginResponse](ctx, s.client, EndpointLogin, loginRequest{Email: email, Password: password})
	if err != nil {
		ae := apperr.Normalize(err)
		if ae.Kind == apperr.KindUnauthorized {
			msg := ae.Message
			if strings.HasPrefix(msg, "HTTP ") {
				msg = ""
			}
			return nil, ae.WithKind(apperr.KindAuthentication, msg)
		}
		return nil, ae
	}

	if resp.Data.AccessToken == "" || resp.Data.RefreshToken == "" {
		return nil, apperr.New(apperr.KindUnknown, "Login response did not include tokens", nil)
	}
	if err := s.session.SetTokens(resp.Data.AccessToken, resp.Data.RefreshToken); err != nil {
		return nil, apperr.New(apperr.KindUnknown, "Could not store session", err)
	}
	s.logger.Info("logged in", slog.String("user_id", resp.Data.UserID))

	result := resp.Data.LoginResult
	return &result, nil
}

// RequestPasswordReset asks the server to email a reset link.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return apperr.New(apperr.KindValidation, "Email is required", nil)
	}
	_, err := apiclient.Post[any](ctx, s.client, EndpointPasswordReset, map[string]string{"email": email})
	return err
}

// ConfirmPasswordReset sets a new password using the emailed token.
func (s *Service) ConfirmPasswordReset(ctx context.Context, c PasswordResetConfirmation) error {
	c.Email = NormalizeEmail(c.Email)
	if c.Email == "" || c.Token == "" || c.NewPassword == "" {
		return apperr.New(apperr.KindValidation, "Email, token and new password are required", nil)
	}
	_, err := apiclient.Post[any](ctx, s.client, EndpointPasswordResetConfirm, c)
	return err
}

// ConfirmEmail confirms a newly registered address.
func (s *Service) ConfirmEmail(ctx context.Context, userID, token string) error {
	return s.confirmLink(ctx, EndpointConfirmEmail, userID, token)
}

// ConfirmEmailChange confirms a changed address.
func (s *Service) ConfirmEmailChange(ctx context.Context, userID, token string) error {
	return s.confirmLink(ctx, EndpointConfirmEmailChange, userID, token)
}

func (s *Service) confirmLink(ctx context.Context, endpoint, userID, token string) error {
	if userID == "" || token == "" {
		return apperr.New(apperr.KindValidation, "User id and token are required", nil)
	}
	_, err := apiclient.Get[any](ctx, s.client, endpoint,
		apiclient.WithQuery(url.Values{"userId": {userID}, "token": {token}}))
	return err
}

// ConfirmDeletion confirms deletion of the signed-in account and ends the
// session on success.
func (s *Service) ConfirmDeletion(ctx context.Context, c DeletionConfirmation) error {
	if c.Token == "" {
		return apperr.New(apperr.KindValidation, "Deletion token is required", nil)
	}
	if _, err := Call[any](ctx, s, http.MethodPost, EndpointConfirmDeletion, c); err != nil {
		return err
	}
	return s.session.Teardown()
}
