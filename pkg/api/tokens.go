package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/labstock/pkg/auth"
	"github.com/platinummonkey/labstock/pkg/httputil"
	"github.com/platinummonkey/labstock/pkg/observability"
	"github.com/platinummonkey/labstock/pkg/storage"
)

// SignInRequest is the body of PUT /users/{name}/token
type SignInRequest struct {
	Password string `json:"password"`
}

// SignInResponse carries the issued access token
type SignInResponse struct {
	Token string `json:"token"`
}

func (s *Server) signIn(rq *Request) (Result, error) {
	res, err := s.issueToken(rq)
	if s.metrics != nil && err == nil {
		result := "ok"
		if res.Tag != "" {
			result = string(res.Tag)
		}
		s.metrics.SignInsTotal.WithLabelValues(result).Inc()
	}
	return res, err
}

func (s *Server) issueToken(rq *Request) (Result, error) {
	name := pathName(rq)
	var body SignInRequest
	if err := httputil.ParseJSON(rq.Request, &body); err != nil {
		return fail(httputil.TagBadFormat, nil), nil
	}
	if auth.ValidateName(name) != nil || auth.ValidateCredential(body.Password) != nil {
		return fail(httputil.TagBadFormat, nil), nil
	}

	ctx := rq.Context()
	u, err := s.users.GetUserByName(ctx, rq.Tx, name)
	if err != nil {
		return storeFailure(err, nil)
	}
	if u.Disabled {
		return fail(httputil.TagForbidden, nil), nil
	}
	if u.GroupID != nil {
		g, err := s.groups.GetGroupByID(ctx, rq.Tx, *u.GroupID)
		if err != nil {
			return Result{}, err
		}
		if g.Disabled {
			return fail(httputil.TagForbidden, nil), nil
		}
	}
	if err := s.hasher.Compare(u.PasswordHash, body.Password); err != nil {
		if errors.Is(err, auth.ErrCredentialMismatch) {
			observability.FromContext(ctx).WithField("user", u.Name).Info("sign-in rejected")
			return fail(httputil.TagForbidden, nil), nil
		}
		return Result{}, err
	}

	if !u.AllowMulti {
		if _, err := s.tokens.DeleteUserTokens(ctx, rq.Tx, u.ID); err != nil {
			return Result{}, err
		}
	}

	token, hash, prefix, err := s.tokenGen.GenerateToken()
	if err != nil {
		return Result{}, err
	}
	t := &storage.Token{UserID: u.ID, Hash: hash, Prefix: prefix}
	if err := s.tokens.CreateToken(ctx, rq.Tx, t); err != nil {
		return Result{}, err
	}
	session := &auth.Session{TokenID: t.ID, UserID: u.ID, UserName: u.Name}
	if err := s.tokens.TouchSession(ctx, rq.Tx, session, t.LastUsedAt, httputil.ClientIP(rq.Request)); err != nil {
		return Result{}, err
	}

	res := ok(SignInResponse{Token: token})
	res.cookie = s.sessionCookie(token)
	return res, nil
}

// signOut revokes the presented token. Only its owner may do so.
func (s *Server) signOut(rq *Request) (Result, error) {
	if rq.Session == nil {
		return fail(httputil.TagNoSession, nil), nil
	}
	u, err := s.users.GetUserByName(rq.Context(), rq.Tx, pathName(rq))
	if err != nil {
		return storeFailure(err, nil)
	}
	if u.ID != rq.Session.UserID {
		return fail(httputil.TagForbidden, nil), nil
	}

	hash := s.tokenGen.HashToken(auth.TokenFromRequest(rq.Request, s.cfg.Auth.CookieName))
	if _, err := s.tokens.DeleteToken(rq.Context(), rq.Tx, u.ID, hash); err != nil {
		return Result{}, err
	}

	res := ok(true)
	res.cookie = s.sessionCookie("")
	return res, nil
}

// sessionCookie returns the access token cookie. An empty token expires it.
func (s *Server) sessionCookie(token string) *http.Cookie {
	if s.cfg.Auth.CookieName == "" {
		return nil
	}
	c := &http.Cookie{
		Name:     s.cfg.Auth.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Auth.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	switch {
	case token == "":
		c.MaxAge = -1
	case s.cfg.Auth.SessionIdleTimeout > 0:
		c.MaxAge = int(s.cfg.Auth.SessionIdleTimeout.Seconds())
	}
	return c
}
