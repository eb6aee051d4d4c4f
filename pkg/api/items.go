package api

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/platinummonkey/labstock/pkg/audit"
	"github.com/platinummonkey/labstock/pkg/httputil"
	"github.com/platinummonkey/labstock/pkg/storage"
)

const itemsTable = "items"

// CreateItemRequest is the body of POST /items
type CreateItemRequest struct {
	Name      string          `json:"name"`
	CASNumber string          `json:"casNumber"`
	Formula   string          `json:"formula"`
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      string          `json:"unit"`
	Location  string          `json:"location"`
	Hazard    string          `json:"hazardClass"`
	Group     string          `json:"group"`
	Note      string          `json:"note"`
}

// PatchItemRequest is the body of PATCH /items/{id}
type PatchItemRequest struct {
	Quantity *decimal.Decimal `json:"quantity"`
	Location *string          `json:"location"`
	Group    *string          `json:"group"`
	Note     *string          `json:"note"`
	Disabled *bool            `json:"disabled"`
}

func (s *Server) countItems(rq *Request) (Result, error) {
	f, err := parseItemFilter(rq.Request)
	if err != nil {
		return fail(httputil.TagBadFormat, nil), nil
	}
	n, err := s.items.CountItems(rq.Context(), rq.Tx, f)
	if err != nil {
		return Result{}, err
	}
	return ok(n), nil
}

func (s *Server) listItems(rq *Request) (Result, error) {
	if tag := s.decide(rq, s.perms.ItemManage); tag != "" {
		return fail(tag, nil), nil
	}
	f, err := parseItemFilter(rq.Request)
	if err != nil {
		return fail(httputil.TagBadFormat, nil), nil
	}
	items, err := s.items.ListItems(rq.Context(), rq.Tx, f)
	if err != nil {
		return Result{}, err
	}

	names := s.groupNames(rq)
	views := make([]ItemView, 0, len(items))
	for _, it := range items {
		v, err := names.item(it)
		if err != nil {
			return Result{}, err
		}
		views = append(views, v)
	}
	return ok(views), nil
}

func (s *Server) lookupItem(rq *Request) (*storage.Item, error) {
	id, err := httputil.ParsePathInt64(rq.Request, "id")
	if err != nil {
		return nil, storage.ErrNotFound
	}
	return s.items.GetItem(rq.Context(), rq.Tx, id)
}

func (s *Server) getItem(rq *Request) (Result, error) {
	it, err := s.lookupItem(rq)
	if err != nil {
		return storeFailure(err, nil)
	}
	v, err := s.groupNames(rq).item(it)
	if err != nil {
		return Result{}, err
	}
	return ok(v), nil
}

func (s *Server) createItem(rq *Request) (Result, error) {
	if tag := s.decide(rq, s.perms.ItemAdd); tag != "" {
		return fail(tag, nil), nil
	}

	var body CreateItemRequest
	if err := httputil.ParseJSON(rq.Request, &body); err != nil {
		return fail(httputil.TagBadFormat, nil), nil
	}
	body.Name = strings.TrimSpace(body.Name)
	body.Unit = strings.TrimSpace(body.Unit)
	if body.Name == "" || body.Unit == "" || body.Quantity.IsNegative() {
		return fail(httputil.TagBadFormat, nil), nil
	}
	if body.CASNumber != "" && storage.ValidateCASNumber(body.CASNumber) != nil {
		return fail(httputil.TagBadFormat, nil), nil
	}
	hazard, err := storage.ParseHazardClass(body.Hazard)
	if err != nil {
		return fail(httputil.TagBadFormat, nil), nil
	}

	g, err := s.groupRef(rq, body.Group)
	if err != nil {
		return storeFailure(err, nil)
	}

	it := &storage.Item{
		Name:      body.Name,
		CASNumber: body.CASNumber,
		Formula:   body.Formula,
		Quantity:  body.Quantity,
		Unit:      body.Unit,
		Location:  body.Location,
		Hazard:    hazard,
		GroupID:   groupID(g),
		Note:      body.Note,
	}
	if err := s.items.CreateItem(rq.Context(), rq.Tx, it); err != nil {
		return storeFailure(err, nil)
	}

	rec := audit.Change(audit.LevelInfo, rq.actorID(), itemsTable, it.ID, "quantity", nil, it.Quantity).WithNote("created")
	if err := s.tracker.Track(rq.Context(), rq.Tx, rec); err != nil {
		return Result{}, err
	}

	v, err := s.groupNames(rq).item(it)
	if err != nil {
		return Result{}, err
	}
	return created(v), nil
}

func (s *Server) deleteItem(rq *Request) (Result, error) {
	if tag := s.decide(rq, s.perms.ItemDelete); tag != "" {
		return fail(tag, nil), nil
	}
	it, err := s.lookupItem(rq)
	if err != nil {
		return storeFailure(err, nil)
	}
	if it.Disabled {
		return ok(true), nil
	}
	it.Disabled = true
	if err := s.items.UpdateItem(rq.Context(), rq.Tx, it); err != nil {
		return Result{}, err
	}
	rec := audit.Change(audit.LevelWarning, rq.actorID(), itemsTable, it.ID, "disabled", false, true).WithNote("deleted")
	if err := s.tracker.Track(rq.Context(), rq.Tx, rec); err != nil {
		return Result{}, err
	}
	return ok(true), nil
}

func (s *Server) patchItem(rq *Request) (Result, error) {
	if rq.Session == nil {
		return fail(httputil.TagNoSession, nil), nil
	}
	var body PatchItemRequest
	if err := httputil.ParseJSON(rq.Request, &body); err != nil {
		return fail(httputil.TagBadFormat, nil), nil
	}

	it, err := s.lookupItem(rq)
	if err != nil {
		return storeFailure(err, nil)
	}
	actor := rq.actorID()
	names := s.groupNames(rq)

	steps := []fieldStep{
		{
			name:       "quantity",
			present:    body.Quantity != nil,
			capability: s.perms.ItemEdit,
			apply: func() (*audit.Record, httputil.ErrorTag, error) {
				if body.Quantity.IsNegative() {
					return nil, httputil.TagBadFormat, nil
				}
				if it.Quantity.Equal(*body.Quantity) {
					return nil, "", nil
				}
				from := it.Quantity
				it.Quantity = *body.Quantity
				return audit.Change(audit.LevelInfo, actor, itemsTable, it.ID, "quantity", from, it.Quantity), "", nil
			},
		},
		{
			name:       "location",
			present:    body.Location != nil,
			capability: s.perms.ItemEdit,
			apply: func() (*audit.Record, httputil.ErrorTag, error) {
				if it.Location == *body.Location {
					return nil, "", nil
				}
				from := it.Location
				it.Location = *body.Location
				return audit.Change(audit.LevelInfo, actor, itemsTable, it.ID, "location", from, it.Location), "", nil
			},
		},
		{
			name:       "group",
			present:    body.Group != nil,
			capability: s.perms.ItemEdit,
			apply: func() (*audit.Record, httputil.ErrorTag, error) {
				g, err := s.groupRef(rq, *body.Group)
				if err != nil {
					tag, err := refFailure(err)
					return nil, tag, err
				}
				to := groupID(g)
				if sameID(it.GroupID, to) {
					return nil, "", nil
				}
				from, err := names.lookup(it.GroupID)
				if err != nil {
					return nil, "", err
				}
				it.GroupID = to
				return audit.Change(audit.LevelInfo, actor, itemsTable, it.ID, "group", from, groupName(g)), "", nil
			},
		},
		{
			name:       "note",
			present:    body.Note != nil,
			capability: s.perms.ItemEdit,
			apply: func() (*audit.Record, httputil.ErrorTag, error) {
				if it.Note == *body.Note {
					return nil, "", nil
				}
				from := it.Note
				it.Note = *body.Note
				return audit.Change(audit.LevelInfo, actor, itemsTable, it.ID, "note", from, it.Note), "", nil
			},
		},
		{
			name:       "disabled",
			present:    body.Disabled != nil,
			capability: s.perms.ItemDisable,
			apply: func() (*audit.Record, httputil.ErrorTag, error) {
				if it.Disabled == *body.Disabled {
					return nil, "", nil
				}
				from := it.Disabled
				it.Disabled = *body.Disabled
				return audit.Change(audit.LevelWarning, actor, itemsTable, it.ID, "disabled", from, it.Disabled), "", nil
			},
		},
	}

	applied, tag, err := s.editFields(rq, steps)
	if err != nil {
		return Result{}, err
	}
	if len(applied) > 0 {
		if err := s.items.UpdateItem(rq.Context(), rq.Tx, it); err != nil {
			return Result{}, err
		}
	}
	return patched(applied, tag), nil
}
