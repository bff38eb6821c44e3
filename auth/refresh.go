package auth

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/jmcleod/focusflow/apiclient"
	"github.com/jmcleod/focusflow/apperr"
)

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Refresh obtains a new access token. Concurrent callers share a single
// in-flight refresh. A rejected refresh token clears the session.
func (s *Service) Refresh(ctx context.Context) (string, error) {
	ch := s.refreshes.DoChan(refreshKey, func() (any, error) {
		// Detached so that one caller giving up does not fail the others.
		return s.refresh(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return "", apperr.FromTransportError(ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return "", r.Err
		}
		return r.Val.(string), nil
	}
}

func (s *Service) refresh(ctx context.Context) (string, error) {
	refreshToken, ok := s.session.GetRefreshToken()
	if !ok {
		s.clearSession()
		return "", apperr.New(apperr.KindUnauthorized, "Session expired", nil)
	}

	resp, err := apiclient.Post[refreshResponse](ctx, s.client, EndpointRefresh, refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		ae := apperr.Normalize(err)
		if ae.Kind == apperr.KindUnauthorized || ae.Kind == apperr.KindForbidden {
			s.logger.Info("refresh token rejected, clearing session")
			s.clearSession()
		}
		return "", ae
	}
	if resp.Data.AccessToken == "" {
		return "", apperr.New(apperr.KindUnknown, "Refresh response did not include an access token", nil)
	}

	next := resp.Data.RefreshToken
	if next == "" {
		next = refreshToken
	}
	if err := s.session.SetTokens(resp.Data.AccessToken, next); err != nil {
		return "", apperr.New(apperr.KindUnknown, "Could not store session", err)
	}
	s.logger.Debug("access token refreshed")
	return resp.Data.AccessToken, nil
}

func (s *Service) clearSession() {
	if err := s.session.ClearAllTokens(); err != nil {
		s.logger.Error("clearing session failed", slog.String("error", err.Error()))
	}
}

// Call issues an authorized request. When the access token is missing it is
// refreshed first; when the server answers 401 the token is refreshed once
// and the request retried once. If the refresh token is rejected the session
// is cleared and the original unauthorized error is returned.
func Call[T any](ctx context.Context, s *Service, method, endpoint string, body any, opts ...apiclient.RequestOption) (*apiclient.Response[T], error) {
	token, ok := s.session.GetAccessToken()
	if !ok {
		var err error
		if token, err = s.Refresh(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := apiclient.Do[T](ctx, s.client, method, endpoint, body, withBearer(opts, token)...)
	if err == nil || endpoint == EndpointRefresh || !errors.Is(err, apperr.ErrUnauthorized) {
		return resp, err
	}

	// Another caller may already have replaced the token we sent.
	next, ok := s.session.GetAccessToken()
	if !ok || next == token {
		var rerr error
		next, rerr = s.Refresh(ctx)
		if rerr != nil {
			if errors.Is(rerr, apperr.ErrUnauthorized) || errors.Is(rerr, apperr.ErrForbidden) {
				return nil, err
			}
			return nil, rerr
		}
	}
	return apiclient.Do[T](ctx, s.client, method, endpoint, body, withBearer(opts, next)...)
}

// withBearer appends the bearer option without touching the caller's array.
func withBearer(opts []apiclient.RequestOption, token string) []apiclient.RequestOption {
	return append(slices.Clone(opts), apiclient.WithBearer(token))
}
