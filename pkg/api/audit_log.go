package api

import (
	"net/http"

	"github.com/platinummonkey/labstock/pkg/audit"
	"github.com/platinummonkey/labstock/pkg/httputil"
)

func parseAuditFilter(r *http.Request) (audit.SearchFilter, error) {
	p, err := parsePage(r)
	if err != nil {
		return audit.SearchFilter{}, err
	}
	row, err := httputil.ParseQueryInt64Ptr(r, "row")
	if err != nil {
		return audit.SearchFilter{}, err
	}
	actor, err := httputil.ParseQueryInt64Ptr(r, "actor")
	if err != nil {
		return audit.SearchFilter{}, err
	}
	return audit.SearchFilter{
		Table:   httputil.ParseQueryString(r, "table", ""),
		RowID:   row,
		ActorID: actor,
		Field:   httputil.ParseQueryString(r, "field", ""),
		Level:   audit.Level(httputil.ParseQueryString(r, "level", "")),
		Skip:    p.Skip,
		Take:    p.Take,
	}, nil
}

func (s *Server) countAudit(rq *Request) (Result, error) {
	if tag := s.decide(rq, s.perms.AuditRead); tag != "" {
		return fail(tag, nil), nil
	}
	f, err := parseAuditFilter(rq.Request)
	if err != nil {
		return fail(httputil.TagBadFormat, nil), nil
	}
	n, err := s.auditLog.Count(rq.Context(), rq.Tx, f)
	if err != nil {
		return Result{}, err
	}
	return ok(n), nil
}

func (s *Server) listAudit(rq *Request) (Result, error) {
	if tag := s.decide(rq, s.perms.AuditRead); tag != "" {
		return fail(tag, nil), nil
	}
	f, err := parseAuditFilter(rq.Request)
	if err != nil {
		return fail(httputil.TagBadFormat, nil), nil
	}
	records, err := s.auditLog.Search(rq.Context(), rq.Tx, f)
	if err != nil {
		return Result{}, err
	}
	views := make([]AuditView, 0, len(records))
	for _, r := range records {
		views = append(views, auditView(r))
	}
	return ok(views), nil
}
