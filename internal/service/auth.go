package service

import (
	"context"

	"github.com/d60-Lab/feedsync/internal/api"
	"github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/internal/session"
)

type Auth struct {
	api     *api.Client
	session *session.Manager
}

func NewAuth(d Deps) *Auth {
	return &Auth{api: d.API, session: d.Session}
}

// Register requires every field and a matching confirmation; both are
// checked locally before the request.
func (a *Auth) Register(ctx context.Context, req model.JoinRequest) (model.JoinResult, error) {
	if err := a.api.Validate(req); err != nil {
		return model.JoinResult{}, err
	}
	return a.api.Join(ctx, req)
}

// Login exchanges credentials for a JWT and stores the session.
func (a *Auth) Login(ctx context.Context, userName, password string) (session.Identity, error) {
	tok, err := a.api.Login(ctx, model.LoginRequest{UserName: userName, Password: password})
	if err != nil {
		return session.Identity{}, err
	}
	return a.session.Login(ctx, tok, userName)
}

func (a *Auth) Logout(ctx context.Context) error {
	return a.session.Logout(ctx)
}
