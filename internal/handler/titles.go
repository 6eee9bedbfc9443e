package handler

import (
	"net/http"
	"strconv"

	"github.com/BaGreal2/yamdb-server/internal/apperror"
	"github.com/BaGreal2/yamdb-server/internal/model"
	"github.com/BaGreal2/yamdb-server/internal/permission"
	"github.com/BaGreal2/yamdb-server/internal/store"
	"github.com/BaGreal2/yamdb-server/internal/validation"
)

func titleFilter(r *http.Request) (model.TitleFilter, error) {
	q := r.URL.Query()
	f := model.TitleFilter{
		Name:     q.Get("name"),
		Category: q.Get("category"),
		Genre:    q.Get("genre"),
	}
	if raw := q.Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return f, apperror.Validation(apperror.FieldError{Field: "year", Code: apperror.CodeInvalid, Message: "enter a whole number"})
		}
		f.Year = &year
	}
	return f, nil
}

// ListTitles supports the name, year, category and genre filters on top of
// pagination.
func ListTitles(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := authorize(r, permission.Titles, permission.List); err != nil {
			writeError(w, r, err)
			return
		}
		p, err := listParams(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		f, err := titleFilter(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		page, err := st.ListTitles(r.Context(), f, p)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respond(w, http.StatusOK, mapPage(page, model.NewTitleResponse))
	}
}

func CreateTitle(st *store.Store, v *validation.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := authorize(r, permission.Titles, permission.Create); err != nil {
			writeError(w, r, err)
			return
		}
		var in model.TitleInput
		if err := decode(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		if err := v.Title(r.Context(), in, false); err != nil {
			writeError(w, r, err)
			return
		}

		view, err := st.CreateTitle(r.Context(), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		httpLog(r).WithField("title_id", view.ID).Info("title created")
		respond(w, http.StatusCreated, model.NewTitleResponse(view))
	}
}

func TitleItem(st *store.Store, v *validation.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		action := itemAction(r.Method)
		if _, err := authorize(r, permission.Titles, action); err != nil {
			writeError(w, r, err)
			return
		}
		id, err := pathID(r, "title_id", "title")
		if err != nil {
			writeError(w, r, err)
			return
		}
		view, err := st.GetTitle(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}

		switch action {
		case permission.Retrieve:
			respond(w, http.StatusOK, model.NewTitleResponse(view))
		case permission.Destroy:
			if err := st.DeleteTitle(r.Context(), id); err != nil {
				writeError(w, r, err)
				return
			}
			httpLog(r).WithField("title_id", id).Info("title deleted")
			w.WriteHeader(http.StatusNoContent)
		default:
			var in model.TitleInput
			if err := decode(r, &in); err != nil {
				writeError(w, r, err)
				return
			}
			if err := v.Title(r.Context(), in, action == permission.PartialUpdate); err != nil {
				writeError(w, r, err)
				return
			}
			updated, err := st.UpdateTitle(r.Context(), id, in)
			if err != nil {
				writeError(w, r, err)
				return
			}
			respond(w, http.StatusOK, model.NewTitleResponse(updated))
		}
	}
}
