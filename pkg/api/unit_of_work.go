package api

import (
	"context"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/labstock/pkg/auth"
	"github.com/platinummonkey/labstock/pkg/contextkeys"
	"github.com/platinummonkey/labstock/pkg/dbx"
	"github.com/platinummonkey/labstock/pkg/httputil"
	"github.com/platinummonkey/labstock/pkg/observability"
	"github.com/platinummonkey/labstock/pkg/storage"
)

// Request is what a handler sees: the HTTP request, the request
// transaction and the resolved session, if any.
type Request struct {
	*http.Request
	Tx      dbx.DBTX
	Session *auth.Session
}

// actorID returns the acting principal's id for audit records
func (rq *Request) actorID() *int64 {
	if rq.Session == nil {
		return nil
	}
	id := rq.Session.UserID
	return &id
}

// isSelf reports whether the session belongs to the principal userID
func (rq *Request) isSelf(userID int64) bool {
	return rq.Session != nil && rq.Session.UserID == userID
}

// Result is a handler outcome. A non-empty Tag is a domain failure; the
// request transaction is committed all the same.
type Result struct {
	Status int
	Tag    httputil.ErrorTag
	Data   interface{}
	cookie *http.Cookie
}

func ok(data interface{}) Result {
	return Result{Status: http.StatusOK, Data: data}
}

func created(data interface{}) Result {
	return Result{Status: http.StatusCreated, Data: data}
}

func fail(tag httputil.ErrorTag, data interface{}) Result {
	return Result{Tag: tag, Data: data}
}

// handlerFunc returns an error only for database failures, which roll the
// request back.
type handlerFunc func(rq *Request) (Result, error)

// handle runs h inside one transaction shared by session resolution,
// permission checks, reads, writes and audit records.
func (s *Server) handle(h handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := s.tracer.Start(r.Context(), "unit_of_work", trace.WithAttributes(
			attribute.String("http.route", observability.RouteTemplate(r)),
		))
		defer span.End()

		var res Result
		err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			token := auth.TokenFromRequest(r, s.cfg.Auth.CookieName)
			session, err := s.resolver.Resolve(ctx, tx, token, httputil.ClientIP(r))
			if err != nil {
				return err
			}
			if session != nil {
				ctx = contextkeys.WithPrincipal(ctx, session.UserName)
				span.SetAttributes(attribute.String("labstock.user", session.UserName))
			}

			res, err = h(&Request{Request: r.WithContext(ctx), Tx: tx, Session: session})
			return err
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "rolled back")
			observability.FromContext(ctx).WithError(err).Error("request rolled back")
			res = fail(httputil.TagInternal, nil)
		}
		if res.Tag != "" {
			span.SetAttributes(attribute.String("labstock.failure", string(res.Tag)))
		}
		s.write(w, res)
	})
}

func (s *Server) write(w http.ResponseWriter, res Result) {
	if res.cookie != nil {
		http.SetCookie(w, res.cookie)
	}

	status := res.Status
	if res.Tag != "" || status == 0 {
		status = res.Tag.Status()
	}
	if err := httputil.WriteEnvelope(w, httputil.Envelope{
		Code:    status,
		Error:   res.Tag,
		Message: s.message(res.Tag),
		Data:    res.Data,
	}); err != nil {
		s.logger.WithError(err).Warn("failed to write response")
	}
}

func (s *Server) message(tag httputil.ErrorTag) string {
	m := s.cfg.Messages
	switch tag {
	case "":
		return ""
	case httputil.TagNotFound:
		return m.NotFound
	case httputil.TagConflict:
		return m.Conflict
	case httputil.TagForbidden:
		return m.Forbidden
	case httputil.TagNoSession:
		return m.NoSession
	case httputil.TagBadFormat:
		return m.BadFormat
	case httputil.TagTooManyRequests:
		return m.TooManyRequests
	default:
		return m.Internal
	}
}

// decide evaluates capability for the session and returns the failure tag,
// or "" when granted.
func (s *Server) decide(rq *Request, capability auth.Capability) httputil.ErrorTag {
	decision := auth.Evaluate(rq.Session, capability)
	if s.metrics != nil && capability != "" {
		s.metrics.DecisionsTotal.WithLabelValues(string(capability), decision.String()).Inc()
	}
	switch decision {
	case auth.Granted:
		return ""
	case auth.NoSession:
		return httputil.TagNoSession
	default:
		return httputil.TagForbidden
	}
}

// storeFailure maps storage sentinels to domain failures. Any other error
// is a database failure and is passed through.
func storeFailure(err error, data interface{}) (Result, error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return fail(httputil.TagNotFound, data), nil
	case errors.Is(err, storage.ErrConflict):
		return fail(httputil.TagConflict, data), nil
	default:
		return Result{}, err
	}
}
