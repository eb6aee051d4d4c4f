package api

import (
	"errors"
	"strings"

	"github.com/platinummonkey/labstock/pkg/audit"
	"github.com/platinummonkey/labstock/pkg/auth"
	"github.com/platinummonkey/labstock/pkg/httputil"
	"github.com/platinummonkey/labstock/pkg/storage"
)

const usersTable = "users"

// CreateUserRequest is the body of POST /users/{name}
type CreateUserRequest struct {
	Password   string `json:"password"`
	Group      string `json:"group"`
	AllowMulti bool   `json:"allowMulti"`
}

// PatchUserRequest is the body of PATCH /users/{name}. Absent fields are
// left unchanged.
type PatchUserRequest struct {
	Password   *string `json:"password"`
	Group      *string `json:"group"`
	AllowMulti *bool   `json:"allowMulti"`
	Disabled   *bool   `json:"disabled"`
}

func (s *Server) countUsers(rq *Request) (Result, error) {
	f, err := parseUserFilter(rq.Request)
	if err != nil {
		return fail(httputil.TagBadFormat, nil), nil
	}
	n, err := s.users.CountUsers(rq.Context(), rq.Tx, f)
	if err != nil {
		return Result{}, err
	}
	return ok(n), nil
}

func (s *Server) listUsers(rq *Request) (Result, error) {
	if tag := s.decide(rq, s.perms.UserManage); tag != "" {
		return fail(tag, nil), nil
	}
	f, err := parseUserFilter(rq.Request)
	if err != nil {
		return fail(httputil.TagBadFormat, nil), nil
	}
	users, err := s.users.ListUsers(rq.Context(), rq.Tx, f)
	if err != nil {
		return Result{}, err
	}

	names := s.groupNames(rq)
	views := make([]UserView, 0, len(users))
	for _, u := range users {
		v, err := names.user(u)
		if err != nil {
			return Result{}, err
		}
		views = append(views, v)
	}
	return ok(views), nil
}

func (s *Server) getUser(rq *Request) (Result, error) {
	if tag := s.decide(rq, s.perms.UserManage); tag != "" {
		return fail(tag, nil), nil
	}
	u, err := s.users.GetUserByName(rq.Context(), rq.Tx, pathName(rq))
	if err != nil {
		return storeFailure(err, nil)
	}
	v, err := s.groupNames(rq).user(u)
	if err != nil {
		return Result{}, err
	}
	return ok(v), nil
}

func (s *Server) createUser(rq *Request) (Result, error) {
	if tag := s.decide(rq, s.perms.UserAdd); tag != "" {
		return fail(tag, nil), nil
	}

	name := pathName(rq)
	var body CreateUserRequest
	if err := httputil.ParseJSON(rq.Request, &body); err != nil {
		return fail(httputil.TagBadFormat, nil), nil
	}
	if err := auth.ValidateName(name); err != nil {
		return fail(httputil.TagBadFormat, nil), nil
	}
	hash, err := s.hasher.Hash(body.Password)
	if errors.Is(err, auth.ErrBadCredential) {
		return fail(httputil.TagBadFormat, nil), nil
	}
	if err != nil {
		return Result{}, err
	}

	g, err := s.groupRef(rq, body.Group)
	if err != nil {
		return storeFailure(err, nil)
	}

	u := &storage.User{
		Name:         name,
		PasswordHash: hash,
		GroupID:      groupID(g),
		AllowMulti:   body.AllowMulti,
	}
	if err := s.users.CreateUser(rq.Context(), rq.Tx, u); err != nil {
		return storeFailure(err, nil)
	}

	rec := audit.Change(audit.LevelInfo, rq.actorID(), usersTable, u.ID, "name", nil, u.Name).WithNote("created")
	if err := s.tracker.Track(rq.Context(), rq.Tx, rec); err != nil {
		return Result{}, err
	}

	v, err := s.groupNames(rq).user(u)
	if err != nil {
		return Result{}, err
	}
	return created(v), nil
}

// deleteUser disables the principal and revokes its tokens. Principals
// cannot delete themselves.
func (s *Server) deleteUser(rq *Request) (Result, error) {
	name := pathName(rq)
	if rq.Session != nil && strings.EqualFold(rq.Session.UserName, name) {
		return fail(httputil.TagForbidden, nil), nil
	}
	if tag := s.decide(rq, s.perms.UserDelete); tag != "" {
		return fail(tag, nil), nil
	}

	u, err := s.users.GetUserByName(rq.Context(), rq.Tx, name)
	if err != nil {
		return storeFailure(err, nil)
	}
	if err := s.disableUser(rq, u, "deleted"); err != nil {
		return Result{}, err
	}
	return ok(true), nil
}

func (s *Server) disableUser(rq *Request, u *storage.User, note string) error {
	if _, err := s.tokens.DeleteUserTokens(rq.Context(), rq.Tx, u.ID); err != nil {
		return err
	}
	if u.Disabled {
		return nil
	}
	u.Disabled = true
	if err := s.users.UpdateUser(rq.Context(), rq.Tx, u); err != nil {
		return err
	}
	rec := audit.Change(audit.LevelWarning, rq.actorID(), usersTable, u.ID, "disabled", false, true).WithNote(note)
	return s.tracker.Track(rq.Context(), rq.Tx, rec)
}

func (s *Server) patchUser(rq *Request) (Result, error) {
	if rq.Session == nil {
		return fail(httputil.TagNoSession, nil), nil
	}
	var body PatchUserRequest
	if err := httputil.ParseJSON(rq.Request, &body); err != nil {
		return fail(httputil.TagBadFormat, nil), nil
	}

	u, err := s.users.GetUserByName(rq.Context(), rq.Tx, pathName(rq))
	if err != nil {
		return storeFailure(err, nil)
	}
	self := rq.isSelf(u.ID)
	actor := rq.actorID()
	names := s.groupNames(rq)

	passwordCap := s.perms.UserPassword
	if self {
		passwordCap = ""
	}

	steps := []fieldStep{
		{
			name:       "password",
			present:    body.Password != nil,
			capability: passwordCap,
			apply: func() (*audit.Record, httputil.ErrorTag, error) {
				hash, err := s.hasher.Hash(*body.Password)
				if errors.Is(err, auth.ErrBadCredential) {
					return nil, httputil.TagBadFormat, nil
				}
				if err != nil {
					return nil, "", err
				}
				u.PasswordHash = hash
				return audit.CredentialChange(actor, usersTable, u.ID, "password"), "", nil
			},
		},
		{
			name:       "group",
			present:    body.Group != nil,
			selfGuard:  self,
			capability: s.perms.UserGroup,
			apply: func() (*audit.Record, httputil.ErrorTag, error) {
				g, err := s.groupRef(rq, *body.Group)
				if err != nil {
					tag, err := refFailure(err)
					return nil, tag, err
				}
				to := groupID(g)
				if sameID(u.GroupID, to) {
					return nil, "", nil
				}
				from, err := names.lookup(u.GroupID)
				if err != nil {
					return nil, "", err
				}
				u.GroupID = to
				return audit.Change(audit.LevelNotice, actor, usersTable, u.ID, "group", from, groupName(g)), "", nil
			},
		},
		{
			name:       "allowMulti",
			present:    body.AllowMulti != nil,
			capability: s.perms.UserAllowMulti,
			apply: func() (*audit.Record, httputil.ErrorTag, error) {
				if u.AllowMulti == *body.AllowMulti {
					return nil, "", nil
				}
				from := u.AllowMulti
				u.AllowMulti = *body.AllowMulti
				return audit.Change(audit.LevelInfo, actor, usersTable, u.ID, "allowMulti", from, u.AllowMulti), "", nil
			},
		},
		{
			name:       "disabled",
			present:    body.Disabled != nil,
			selfGuard:  self,
			capability: s.perms.UserDisable,
			apply: func() (*audit.Record, httputil.ErrorTag, error) {
				if u.Disabled == *body.Disabled {
					return nil, "", nil
				}
				if *body.Disabled {
					if _, err := s.tokens.DeleteUserTokens(rq.Context(), rq.Tx, u.ID); err != nil {
						return nil, "", err
					}
				}
				from := u.Disabled
				u.Disabled = *body.Disabled
				return audit.Change(audit.LevelWarning, actor, usersTable, u.ID, "disabled", from, u.Disabled), "", nil
			},
		},
	}

	applied, tag, err := s.editFields(rq, steps)
	if err != nil {
		return Result{}, err
	}
	if len(applied) > 0 {
		if err := s.users.UpdateUser(rq.Context(), rq.Tx, u); err != nil {
			return Result{}, err
		}
	}
	return patched(applied, tag), nil
}
