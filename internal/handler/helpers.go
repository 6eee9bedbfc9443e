package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/BaGreal2/yamdb-server/internal/apperror"
	"github.com/BaGreal2/yamdb-server/internal/httputil"
	"github.com/BaGreal2/yamdb-server/internal/middleware"
	"github.com/BaGreal2/yamdb-server/internal/model"
	"github.com/BaGreal2/yamdb-server/internal/permission"
)

var (
	respond    = httputil.WriteJSON
	writeError = httputil.WriteError
	decode     = httputil.DecodeJSON
)

func httpLog(r *http.Request) *logrus.Entry {
	return httputil.LogEntry(r.Context())
}

// itemAction maps the method of an item route to its action.
func itemAction(method string) permission.Action {
	switch method {
	case http.MethodPut:
		return permission.Update
	case http.MethodPatch:
		return permission.PartialUpdate
	case http.MethodDelete:
		return permission.Destroy
	default:
		return permission.Retrieve
	}
}

// authorize runs the request-level check for resource and returns the actor.
func authorize(r *http.Request, resource permission.Resource, action permission.Action) (*permission.Actor, error) {
	actor := middleware.ActorFrom(r.Context())
	if err := permission.For(resource).HasPermission(actor, action); err != nil {
		return nil, err
	}
	return actor, nil
}

// authorizeObject runs the object-level check against the owner of the
// loaded target.
func authorizeObject(actor *permission.Actor, resource permission.Resource, action permission.Action, ownerID int64) error {
	return permission.For(resource).HasObjectPermission(actor, action, ownerID)
}

// pathID reads a numeric path variable. Non-numeric ids cannot name a row,
// so they are reported as not found.
func pathID(r *http.Request, name, resource string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NotFound(resource)
	}
	return id, nil
}

func listParams(r *http.Request) (model.ListParams, error) {
	q := r.URL.Query()
	p := model.ListParams{Search: q.Get("search")}

	var fields []apperror.FieldError
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fields = append(fields, apperror.FieldError{Field: "limit", Code: apperror.CodeInvalid, Message: "must be a positive integer"})
		}
		p.Limit = n
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fields = append(fields, apperror.FieldError{Field: "offset", Code: apperror.CodeInvalid, Message: "must be a non-negative integer"})
		}
		p.Offset = n
	}
	if len(fields) > 0 {
		return p, apperror.Validation(fields...)
	}
	return p, nil
}

// requireFields reports REQUIRED for every named field that is absent. Used
// by PUT, which replaces the whole object.
func requireFields(present map[string]bool) error {
	var fields []apperror.FieldError
	for name, ok := range present {
		if !ok {
			fields = append(fields, apperror.FieldError{Field: name, Code: apperror.CodeRequired, Message: "this field is required"})
		}
	}
	if len(fields) > 0 {
		return apperror.Validation(fields...)
	}
	return nil
}

func mapPage[T, R any](p model.Page[T], conv func(*T) R) model.Page[R] {
	out := model.Page[R]{Count: p.Count, Results: make([]R, 0, len(p.Results))}
	for i := range p.Results {
		out.Results = append(out.Results, conv(&p.Results[i]))
	}
	return out
}
