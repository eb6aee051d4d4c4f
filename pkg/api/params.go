package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/labstock/pkg/httputil"
	"github.com/platinummonkey/labstock/pkg/storage"
)

// page holds the skip and take query parameters
type page struct {
	Skip int
	Take int
}

func parsePage(r *http.Request) (page, error) {
	skip, err := httputil.ParseQueryInt(r, "skip", 0)
	if err != nil {
		return page{}, err
	}
	take, err := httputil.ParseQueryInt(r, "take", 0)
	if err != nil {
		return page{}, err
	}
	return page{Skip: skip, Take: take}, nil
}

func parseUserFilter(r *http.Request) (storage.UserFilter, error) {
	p, err := parsePage(r)
	if err != nil {
		return storage.UserFilter{}, err
	}
	disabled, err := httputil.ParseQueryBoolPtr(r, "disabled")
	if err != nil {
		return storage.UserFilter{}, err
	}
	return storage.UserFilter{
		Name:      httputil.ParseQueryString(r, "name", ""),
		GroupName: httputil.ParseQueryString(r, "group", ""),
		Disabled:  disabled,
		Skip:      p.Skip,
		Take:      p.Take,
	}, nil
}

func parseGroupFilter(r *http.Request) (storage.GroupFilter, error) {
	p, err := parsePage(r)
	if err != nil {
		return storage.GroupFilter{}, err
	}
	disabled, err := httputil.ParseQueryBoolPtr(r, "disabled")
	if err != nil {
		return storage.GroupFilter{}, err
	}
	return storage.GroupFilter{
		Name:     httputil.ParseQueryString(r, "name", ""),
		Disabled: disabled,
		Skip:     p.Skip,
		Take:     p.Take,
	}, nil
}

func parseItemFilter(r *http.Request) (storage.ItemFilter, error) {
	p, err := parsePage(r)
	if err != nil {
		return storage.ItemFilter{}, err
	}
	disabled, err := httputil.ParseQueryBoolPtr(r, "disabled")
	if err != nil {
		return storage.ItemFilter{}, err
	}
	var hazard storage.HazardClass
	if raw := httputil.ParseQueryString(r, "hazard", ""); raw != "" {
		if hazard, err = storage.ParseHazardClass(raw); err != nil {
			return storage.ItemFilter{}, err
		}
	}
	return storage.ItemFilter{
		Name:      httputil.ParseQueryString(r, "name", ""),
		GroupName: httputil.ParseQueryString(r, "group", ""),
		Hazard:    hazard,
		Disabled:  disabled,
		Skip:      p.Skip,
		Take:      p.Take,
	}, nil
}

// pathName returns the {name} path variable
func pathName(rq *Request) string {
	return mux.Vars(rq.Request)["name"]
}

// refFailure converts a failed reference lookup into a failure tag
func refFailure(err error) (httputil.ErrorTag, error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return httputil.TagNotFound, nil
	case errors.Is(err, storage.ErrConflict):
		return httputil.TagConflict, nil
	default:
		return "", err
	}
}
