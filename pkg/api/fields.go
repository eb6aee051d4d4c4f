package api

import (
	"github.com/platinummonkey/labstock/pkg/audit"
	"github.com/platinummonkey/labstock/pkg/auth"
	"github.com/platinummonkey/labstock/pkg/httputil"
)

// fieldStep is one optional field of a partial update.
type fieldStep struct {
	name    string
	present bool
	// selfGuard rejects the field with Forbidden before any capability
	// check, whatever the caller holds.
	selfGuard  bool
	capability auth.Capability
	// apply mutates the in-memory entity. It returns the audit record to
	// write, nil when nothing changed, or a failure tag.
	apply func() (*audit.Record, httputil.ErrorTag, error)
}

// editFields runs the present steps in order and stops at the first
// failure. It returns the fields applied so far, the failure tag if any,
// and database errors.
func (s *Server) editFields(rq *Request, steps []fieldStep) (map[string]bool, httputil.ErrorTag, error) {
	applied := make(map[string]bool, len(steps))
	for _, step := range steps {
		if !step.present {
			continue
		}
		if step.selfGuard {
			return applied, httputil.TagForbidden, nil
		}
		if tag := s.decide(rq, step.capability); tag != "" {
			return applied, tag, nil
		}

		rec, tag, err := step.apply()
		if err != nil {
			return applied, "", err
		}
		if tag != "" {
			return applied, tag, nil
		}
		if rec != nil {
			if err := s.tracker.Track(rq.Context(), rq.Tx, rec); err != nil {
				return applied, "", err
			}
		}
		applied[step.name] = true
	}
	return applied, "", nil
}

// patched builds the response of a partial update.
func patched(applied map[string]bool, tag httputil.ErrorTag) Result {
	if tag != "" {
		return fail(tag, applied)
	}
	return ok(applied)
}
