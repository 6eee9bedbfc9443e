package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/BaGreal2/yamdb-server/internal/model"
	"github.com/BaGreal2/yamdb-server/internal/permission"
	"github.com/BaGreal2/yamdb-server/internal/store"
	"github.com/BaGreal2/yamdb-server/internal/validation"
)

// taxonomy binds the category or genre operations of the store so both
// resources share one set of handlers.
type taxonomy struct {
	resource permission.Resource
	list     func(context.Context, model.ListParams) (model.Page[model.Category], error)
	get      func(context.Context, string) (*model.Category, error)
	create   func(context.Context, *model.Category) (*model.Category, error)
	update   func(context.Context, *model.Category) error
	delete   func(context.Context, string) error
}

func categoriesTaxonomy(st *store.Store) taxonomy {
	return taxonomy{
		resource: permission.Categories,
		list:     st.ListCategories,
		get:      st.GetCategory,
		create:   st.CreateCategory,
		update:   st.UpdateCategory,
		delete:   st.DeleteCategory,
	}
}

func genresTaxonomy(st *store.Store) taxonomy {
	return taxonomy{
		resource: permission.Genres,
		list:     st.ListGenres,
		get:      st.GetGenre,
		create:   st.CreateGenre,
		update:   st.UpdateGenre,
		delete:   st.DeleteGenre,
	}
}

func ListTaxonomy(t taxonomy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := authorize(r, t.resource, permission.List); err != nil {
			writeError(w, r, err)
			return
		}
		p, err := listParams(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		page, err := t.list(r.Context(), p)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respond(w, http.StatusOK, page)
	}
}

func CreateTaxonomy(t taxonomy, v *validation.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := authorize(r, t.resource, permission.Create); err != nil {
			writeError(w, r, err)
			return
		}
		var in model.CategoryInput
		if err := decode(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		if err := v.Category(in, false); err != nil {
			writeError(w, r, err)
			return
		}

		var c model.Category
		in.Apply(&c)
		created, err := t.create(r.Context(), &c)
		if err != nil {
			writeError(w, r, err)
			return
		}
		httpLog(r).WithField("slug", created.Slug).Infof("%s created", t.resource)
		respond(w, http.StatusCreated, created)
	}
}

// TaxonomyItem serves GET, PUT, PATCH and DELETE on a single slug.
func TaxonomyItem(t taxonomy, v *validation.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		action := itemAction(r.Method)
		if _, err := authorize(r, t.resource, action); err != nil {
			writeError(w, r, err)
			return
		}

		c, err := t.get(r.Context(), mux.Vars(r)["slug"])
		if err != nil {
			writeError(w, r, err)
			return
		}

		switch action {
		case permission.Retrieve:
			respond(w, http.StatusOK, c)
		case permission.Destroy:
			if err := t.delete(r.Context(), c.Slug); err != nil {
				writeError(w, r, err)
				return
			}
			httpLog(r).WithField("slug", c.Slug).Infof("%s deleted", t.resource)
			w.WriteHeader(http.StatusNoContent)
		default:
			var in model.CategoryInput
			if err := decode(r, &in); err != nil {
				writeError(w, r, err)
				return
			}
			if err := v.Category(in, action == permission.PartialUpdate); err != nil {
				writeError(w, r, err)
				return
			}
			in.Apply(c)
			if err := t.update(r.Context(), c); err != nil {
				writeError(w, r, err)
				return
			}
			respond(w, http.StatusOK, c)
		}
	}
}
