package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/BaGreal2/yamdb-server/internal/model"
	"github.com/BaGreal2/yamdb-server/internal/permission"
	"github.com/BaGreal2/yamdb-server/internal/store"
	"github.com/BaGreal2/yamdb-server/internal/validation"
)

func ListUsers(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := authorize(r, permission.Users, permission.List); err != nil {
			writeError(w, r, err)
			return
		}
		p, err := listParams(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		page, err := st.ListUsers(r.Context(), p)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respond(w, http.StatusOK, mapPage(page, model.NewUserResponse))
	}
}

// CreateUser lets an admin add a user directly. The user still signs in
// through signup and a confirmation code.
func CreateUser(st *store.Store, v *validation.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := authorize(r, permission.Users, permission.Create); err != nil {
			writeError(w, r, err)
			return
		}
		var in model.UserInput
		if err := decode(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		if err := v.User(r.Context(), in, nil); err != nil {
			writeError(w, r, err)
			return
		}

		u := model.User{Role: model.RoleUser}
		in.Apply(&u)
		created, err := st.CreateUser(r.Context(), &u)
		if err != nil {
			writeError(w, r, err)
			return
		}
		httpLog(r).WithField("username", created.Username).Info("user created by admin")
		respond(w, http.StatusCreated, model.NewUserResponse(created))
	}
}

func UserItem(st *store.Store, v *validation.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		action := itemAction(r.Method)
		if _, err := authorize(r, permission.Users, action); err != nil {
			writeError(w, r, err)
			return
		}
		u, err := st.GetUserByUsername(r.Context(), mux.Vars(r)["username"])
		if err != nil {
			writeError(w, r, err)
			return
		}

		switch action {
		case permission.Retrieve:
			respond(w, http.StatusOK, model.NewUserResponse(u))
		case permission.Destroy:
			if err := st.DeleteUser(r.Context(), u.Username); err != nil {
				writeError(w, r, err)
				return
			}
			httpLog(r).WithField("username", u.Username).Info("user deleted")
			w.WriteHeader(http.StatusNoContent)
		default:
			var in model.UserInput
			if err := decode(r, &in); err != nil {
				writeError(w, r, err)
				return
			}
			if action == permission.Update {
				if err := requireFields(map[string]bool{"username": in.Username != nil, "email": in.Email != nil}); err != nil {
					writeError(w, r, err)
					return
				}
			}
			updateUser(w, r, st, v, u, in)
		}
	}
}

// MeHandler serves the caller's own profile. Only GET and PATCH are
// allowed, and the role cannot be changed through it.
func MeHandler(st *store.Store, v *validation.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodPatch {
			methodNotAllowed(w, r)
			return
		}
		action := itemAction(r.Method)
		actor, err := authorize(r, permission.Self, action)
		if err != nil {
			writeError(w, r, err)
			return
		}
		u, err := st.GetUserByID(r.Context(), actor.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := authorizeObject(actor, permission.Self, action, u.ID); err != nil {
			writeError(w, r, err)
			return
		}

		if action == permission.Retrieve {
			respond(w, http.StatusOK, model.NewUserResponse(u))
			return
		}

		var in model.SelfUpdateInput
		if err := decode(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		updateUser(w, r, st, v, u, in.UserInput())
	}
}

func updateUser(w http.ResponseWriter, r *http.Request, st *store.Store, v *validation.Validator, u *model.User, in model.UserInput) {
	if err := v.User(r.Context(), in, u); err != nil {
		writeError(w, r, err)
		return
	}
	in.Apply(u)
	if err := st.UpdateUser(r.Context(), u); err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, model.NewUserResponse(u))
}
