// Package auth drives the account endpoints and keeps the session's tokens
// current. It is the only package that moves tokens between the API client
// and the session manager.
package auth

import (
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/jmcleod/focusflow/apiclient"
	"github.com/jmcleod/focusflow/session"
)

const (
	EndpointLogin                = "/api/Auth/login"
	EndpointRefresh              = "/api/Auth/refresh"
	EndpointPasswordReset        = "/api/Auth/password/reset"
	EndpointPasswordResetConfirm = "/api/Auth/password/reset/confirm"
	EndpointConfirmEmail         = "/api/Auth/confirm-email"
	EndpointConfirmEmailChange   = "/api/Users/confirm-email-change"
	EndpointConfirmDeletion      = "/api/Users/me/confirm-deletion"
)

const refreshKey = "refresh"

// Service authenticates against the API and maintains the session.
type Service struct {
	client  *apiclient.Client
	session *session.Manager
	logger  *slog.Logger

	refreshes singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Service.
func New(client *apiclient.Client, mgr *session.Manager, opts ...Option) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("auth service requires an api client")
	}
	if mgr == nil {
		return nil, fmt.Errorf("auth service requires a session manager")
	}
	s := &Service{
		client:  client,
		session: mgr,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Session returns the session manager.
func (s *Service) Session() *session.Manager { return s.session }

// Client returns the API client.
func (s *Service) Client() *apiclient.Client { return s.client }

// Logout ends the local session.
func (s *Service) Logout() error {
	return s.session.Teardown()
}
