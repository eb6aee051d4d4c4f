package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/labstock/pkg/audit"
)

func TestCreateUser(t *testing.T) {
	env := newTestServer(t)
	env.mustGroup("staff", "item.manage")

	_, res := env.do(http.MethodPost, "/users/alice", env.admin, CreateUserRequest{
		Password: userCredential,
		Group:    "staff",
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Error)

	var view UserView
	res.decode(t, &view)
	assert.Equal(t, "alice", view.Name)
	assert.Equal(t, "staff", view.Group)
	assert.False(t, view.Disabled)
	assert.NotContains(t, string(res.Data), "password")

	require.NoError(t, env.hasher.Compare(env.user("alice").PasswordHash, userCredential))
}

func TestCreateUser_ConflictIgnoresCase(t *testing.T) {
	env := newTestServer(t)

	_, res := env.do(http.MethodPost, "/users/Alice", env.admin, CreateUserRequest{Password: userCredential})
	require.Equal(t, http.StatusCreated, res.Code)

	_, res = env.do(http.MethodPost, "/users/aLICE", env.admin, CreateUserRequest{Password: userCredential})
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Equal(t, "conflict", res.Error)
}

func TestCreateUser_Failures(t *testing.T) {
	env := newTestServer(t)
	staff := env.mustGroup("staff", "item.manage")
	env.mustUser("clerk", userCredential, staff)
	clerk := env.signIn("clerk", userCredential)

	tests := []struct {
		name  string
		path  string
		token string
		body  CreateUserRequest
		code  int
		tag   string
	}{
		{"no session", "/users/bob", "", CreateUserRequest{Password: otherCredential}, http.StatusUnauthorized, "no_session"},
		{"missing capability", "/users/bob", clerk, CreateUserRequest{Password: otherCredential}, http.StatusForbidden, "forbidden"},
		{"lowercase credential", "/users/bob", env.admin, CreateUserRequest{Password: "a1b2"}, http.StatusBadRequest, "bad_format"},
		{"leading dot", "/users/.bob", env.admin, CreateUserRequest{Password: otherCredential}, http.StatusBadRequest, "bad_format"},
		{"unknown group", "/users/bob", env.admin, CreateUserRequest{Password: otherCredential, Group: "ghosts"}, http.StatusNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, res := env.do(http.MethodPost, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.code, res.Code)
			assert.Equal(t, tt.tag, res.Error)
		})
	}
}

func TestGetUser(t *testing.T) {
	env := newTestServer(t)

	_, res := env.do(http.MethodGet, "/users/ADMIN", env.admin, nil)
	require.Equal(t, http.StatusOK, res.Code)

	var view UserView
	res.decode(t, &view)
	assert.Equal(t, "admin", view.Name)
	assert.Equal(t, "admin", view.Group)
	assert.NotNil(t, view.LastAccessAt)

	_, res = env.do(http.MethodGet, "/users/nobody", env.admin, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)

	_, res = env.do(http.MethodGet, "/users/admin", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestListUsers_CountAgreesWithList(t *testing.T) {
	env := newTestServer(t)
	staff := env.mustGroup("staff", "")
	for _, name := range []string{"amy", "bea", "cat", "dan"} {
		env.mustUser(name, userCredential, staff)
	}
	env.mustUser("amos", userCredential, nil)

	queries := []string{
		"",
		"?name=a",
		"?group=staff",
		"?group=unknown",
		"?disabled=false",
		"?name=am&group=staff",
	}
	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			_, list := env.do(http.MethodGet, "/users/.list"+q, env.admin, nil)
			require.Equal(t, http.StatusOK, list.Code)
			var users []UserView
			list.decode(t, &users)

			_, count := env.do(http.MethodGet, "/users/.count"+q, "", nil)
			require.Equal(t, http.StatusOK, count.Code)
			var n int
			count.decode(t, &n)

			assert.Equal(t, len(users), n)
		})
	}
}

func TestListUsers_Window(t *testing.T) {
	env := newTestServer(t)
	for _, name := range []string{"u1", "u2", "u3", "u4"} {
		env.mustUser(name, userCredential, nil)
	}

	_, res := env.do(http.MethodGet, "/users/.list?name=u&skip=1&take=2", env.admin, nil)
	require.Equal(t, http.StatusOK, res.Code)

	var users []UserView
	res.decode(t, &users)
	require.Len(t, users, 2)
	assert.Equal(t, "u2", users[0].Name)
	assert.Equal(t, "u3", users[1].Name)

	_, res = env.do(http.MethodGet, "/users/.list?skip=x", env.admin, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestPatchUser_PartialFailureKeepsEarlierFields(t *testing.T) {
	env := newTestServer(t)
	desk := env.mustGroup("desk", "user.password")
	env.mustUser("clerk", userCredential, desk)
	bob := env.mustUser("bob", otherCredential, nil)
	clerk := env.signIn("clerk", userCredential)

	newCredential := "0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF"
	_, res := env.do(http.MethodPatch, "/users/bob", clerk, map[string]interface{}{
		"password": newCredential,
		"group":    "nonexistent",
	})
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Equal(t, "forbidden", res.Error)

	var applied map[string]bool
	res.decode(t, &applied)
	assert.Equal(t, map[string]bool{"password": true}, applied)

	after := env.user("bob")
	assert.NoError(t, env.hasher.Compare(after.PasswordHash, newCredential))
	assert.Equal(t, bob.GroupID, after.GroupID)
}

func TestPatchUser_OrderStopsAtFirstFailure(t *testing.T) {
	env := newTestServer(t)
	env.mustGroup("staff", "")
	env.mustUser("bob", otherCredential, nil)

	_, res := env.do(http.MethodPatch, "/users/bob", env.admin, map[string]interface{}{
		"group":      "ghosts",
		"allowMulti": true,
	})
	assert.Equal(t, http.StatusNotFound, res.Code)

	var applied map[string]bool
	res.decode(t, &applied)
	assert.Empty(t, applied)
	assert.False(t, env.user("bob").AllowMulti)

	_, res = env.do(http.MethodPatch, "/users/bob", env.admin, map[string]interface{}{
		"group":      "staff",
		"allowMulti": true,
		"disabled":   true,
	})
	require.Equal(t, http.StatusOK, res.Code, res.Error)
	res.decode(t, &applied)
	assert.Equal(t, map[string]bool{"group": true, "allowMulti": true, "disabled": true}, applied)

	after := env.user("bob")
	assert.True(t, after.AllowMulti)
	assert.True(t, after.Disabled)
	assert.NotNil(t, after.GroupID)
}

func TestPatchUser_SelfGuards(t *testing.T) {
	env := newTestServer(t)
	env.mustGroup("staff", "")

	for _, body := range []map[string]interface{}{
		{"group": "staff"},
		{"disabled": true},
	} {
		_, res := env.do(http.MethodPatch, "/users/admin", env.admin, body)
		assert.Equal(t, http.StatusForbidden, res.Code, "%v", body)
	}

	admin := env.user("admin")
	assert.False(t, admin.Disabled)

	_, res := env.do(http.MethodPatch, "/users/admin", env.admin, map[string]interface{}{"allowMulti": true})
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestPatchUser_OwnPasswordNeedsNoCapability(t *testing.T) {
	env := newTestServer(t)
	env.mustUser("loner", userCredential, nil)
	loner := env.signIn("loner", userCredential)

	_, res := env.do(http.MethodPatch, "/users/loner", loner, map[string]interface{}{"password": otherCredential})
	require.Equal(t, http.StatusOK, res.Code, res.Error)
	assert.NoError(t, env.hasher.Compare(env.user("loner").PasswordHash, otherCredential))

	_, res = env.do(http.MethodPatch, "/users/loner", loner, map[string]interface{}{"password": "short"})
	assert.Equal(t, http.StatusBadRequest, res.Code)

	_, res = env.do(http.MethodPatch, "/users/admin", loner, map[string]interface{}{"password": otherCredential})
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestPatchUser_NoSession(t *testing.T) {
	env := newTestServer(t)

	_, res := env.do(http.MethodPatch, "/users/admin", "", map[string]interface{}{"allowMulti": true})
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "no_session", res.Error)
}

func TestDeleteUser(t *testing.T) {
	env := newTestServer(t)
	env.mustUser("bob", otherCredential, nil)
	bob := env.signIn("bob", otherCredential)

	_, res := env.do(http.MethodDelete, "/users/admin", env.admin, nil)
	assert.Equal(t, http.StatusForbidden, res.Code, "self delete")

	_, res = env.do(http.MethodDelete, "/users/bob", env.admin, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.True(t, env.user("bob").Disabled)

	// The disabled principal's token no longer resolves.
	_, res = env.do(http.MethodPatch, "/users/bob", bob, map[string]interface{}{"password": userCredential})
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	// Still taken.
	_, res = env.do(http.MethodPost, "/users/BOB", env.admin, CreateUserRequest{Password: userCredential})
	assert.Equal(t, http.StatusConflict, res.Code)
}

func TestUserChangesAreAudited(t *testing.T) {
	env := newTestServer(t)
	env.mustGroup("staff", "")
	env.mustUser("bob", otherCredential, nil)

	_, res := env.do(http.MethodPatch, "/users/bob", env.admin, map[string]interface{}{
		"password": userCredential,
		"group":    "staff",
	})
	require.Equal(t, http.StatusOK, res.Code)

	bob := env.user("bob")
	records, err := env.server.auditLog.Search(context.Background(), env.db, audit.SearchFilter{Table: usersTable, RowID: &bob.ID})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "password", records[0].Field)
	assert.Nil(t, records[0].OldValue)
	require.NotNil(t, records[0].NewValue)
	assert.Equal(t, audit.ChangedMarker, *records[0].NewValue)

	assert.Equal(t, "group", records[1].Field)
	require.NotNil(t, records[1].NewValue)
	assert.Equal(t, "staff", *records[1].NewValue)
	require.NotNil(t, records[1].ActorID)
	assert.Equal(t, env.user("admin").ID, *records[1].ActorID)
}
