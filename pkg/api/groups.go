package api

import (
	"strings"

	"github.com/platinummonkey/labstock/pkg/audit"
	"github.com/platinummonkey/labstock/pkg/auth"
	"github.com/platinummonkey/labstock/pkg/httputil"
	"github.com/platinummonkey/labstock/pkg/storage"
)

const groupsTable = "user_groups"

// CreateGroupRequest is the body of POST /groups/{name}
type CreateGroupRequest struct {
	Note       string `json:"note"`
	Permission string `json:"permission"`
}

// PatchGroupRequest is the body of PATCH /groups/{name}
type PatchGroupRequest struct {
	Note       *string `json:"note"`
	Permission *string `json:"permission"`
	Disabled   *bool   `json:"disabled"`
}

func normalizePermission(p string) string {
	return auth.ParseCapabilities(p).String()
}

func (s *Server) countGroups(rq *Request) (Result, error) {
	f, err := parseGroupFilter(rq.Request)
	if err != nil {
		return fail(httputil.TagBadFormat, nil), nil
	}
	n, err := s.groups.CountGroups(rq.Context(), rq.Tx, f)
	if err != nil {
		return Result{}, err
	}
	return ok(n), nil
}

func (s *Server) listGroups(rq *Request) (Result, error) {
	if tag := s.decide(rq, s.perms.GroupManage); tag != "" {
		return fail(tag, nil), nil
	}
	f, err := parseGroupFilter(rq.Request)
	if err != nil {
		return fail(httputil.TagBadFormat, nil), nil
	}
	groups, err := s.groups.ListGroups(rq.Context(), rq.Tx, f)
	if err != nil {
		return Result{}, err
	}
	views := make([]GroupView, 0, len(groups))
	for _, g := range groups {
		views = append(views, groupView(g))
	}
	return ok(views), nil
}

func (s *Server) getGroup(rq *Request) (Result, error) {
	g, err := s.groups.GetGroupByName(rq.Context(), rq.Tx, pathName(rq))
	if err != nil {
		return storeFailure(err, nil)
	}
	return ok(groupView(g)), nil
}

func (s *Server) createGroup(rq *Request) (Result, error) {
	if tag := s.decide(rq, s.perms.GroupAdd); tag != "" {
		return fail(tag, nil), nil
	}

	name := pathName(rq)
	var body CreateGroupRequest
	if err := httputil.ParseJSON(rq.Request, &body); err != nil {
		return fail(httputil.TagBadFormat, nil), nil
	}
	if err := auth.ValidateName(name); err != nil {
		return fail(httputil.TagBadFormat, nil), nil
	}

	g := &storage.Group{
		Name:       name,
		Note:       body.Note,
		Permission: normalizePermission(body.Permission),
	}
	if err := s.groups.CreateGroup(rq.Context(), rq.Tx, g); err != nil {
		return storeFailure(err, nil)
	}

	rec := audit.Change(audit.LevelInfo, rq.actorID(), groupsTable, g.ID, "permission", nil, g.Permission).WithNote("created")
	if err := s.tracker.Track(rq.Context(), rq.Tx, rec); err != nil {
		return Result{}, err
	}
	return created(groupView(g)), nil
}

// deleteGroup disables the group. Members cannot delete their own group.
func (s *Server) deleteGroup(rq *Request) (Result, error) {
	name := pathName(rq)
	if rq.Session != nil && rq.Session.GroupID != nil && strings.EqualFold(rq.Session.GroupName, name) {
		return fail(httputil.TagForbidden, nil), nil
	}
	if tag := s.decide(rq, s.perms.GroupDelete); tag != "" {
		return fail(tag, nil), nil
	}

	g, err := s.groups.GetGroupByName(rq.Context(), rq.Tx, name)
	if err != nil {
		return storeFailure(err, nil)
	}
	if g.Disabled {
		return ok(true), nil
	}
	g.Disabled = true
	if err := s.groups.UpdateGroup(rq.Context(), rq.Tx, g); err != nil {
		return Result{}, err
	}
	rec := audit.Change(audit.LevelWarning, rq.actorID(), groupsTable, g.ID, "disabled", false, true).WithNote("deleted")
	if err := s.tracker.Track(rq.Context(), rq.Tx, rec); err != nil {
		return Result{}, err
	}
	return ok(true), nil
}

func (s *Server) patchGroup(rq *Request) (Result, error) {
	if rq.Session == nil {
		return fail(httputil.TagNoSession, nil), nil
	}
	var body PatchGroupRequest
	if err := httputil.ParseJSON(rq.Request, &body); err != nil {
		return fail(httputil.TagBadFormat, nil), nil
	}

	g, err := s.groups.GetGroupByName(rq.Context(), rq.Tx, pathName(rq))
	if err != nil {
		return storeFailure(err, nil)
	}
	actor := rq.actorID()

	steps := []fieldStep{
		{
			name:       "note",
			present:    body.Note != nil,
			capability: s.perms.GroupNote,
			apply: func() (*audit.Record, httputil.ErrorTag, error) {
				if g.Note == *body.Note {
					return nil, "", nil
				}
				from := g.Note
				g.Note = *body.Note
				return audit.Change(audit.LevelInfo, actor, groupsTable, g.ID, "note", from, g.Note), "", nil
			},
		},
		{
			name:       "permission",
			present:    body.Permission != nil,
			capability: s.perms.GroupPermission,
			apply: func() (*audit.Record, httputil.ErrorTag, error) {
				to := normalizePermission(*body.Permission)
				if g.Permission == to {
					return nil, "", nil
				}
				from := g.Permission
				g.Permission = to
				return audit.Change(audit.LevelNotice, actor, groupsTable, g.ID, "permission", from, to), "", nil
			},
		},
		{
			name:       "disabled",
			present:    body.Disabled != nil,
			selfGuard:  rq.Session.InGroup(g.ID),
			capability: s.perms.GroupDisable,
			apply: func() (*audit.Record, httputil.ErrorTag, error) {
				if g.Disabled == *body.Disabled {
					return nil, "", nil
				}
				from := g.Disabled
				g.Disabled = *body.Disabled
				return audit.Change(audit.LevelWarning, actor, groupsTable, g.ID, "disabled", from, g.Disabled), "", nil
			},
		},
	}

	applied, tag, err := s.editFields(rq, steps)
	if err != nil {
		return Result{}, err
	}
	if len(applied) > 0 {
		if err := s.groups.UpdateGroup(rq.Context(), rq.Tx, g); err != nil {
			return Result{}, err
		}
	}
	return patched(applied, tag), nil
}
