package handler

import (
	"net/http"

	"github.com/BaGreal2/yamdb-server/internal/auth"
	"github.com/BaGreal2/yamdb-server/internal/model"
)

// SignupHandler registers a user and mails a confirmation code. It answers
// 200 with the submitted username and email, also when the registration
// already existed.
func SignupHandler(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req model.SignupRequest
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		user, err := svc.Signup(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}

		respond(w, http.StatusOK, model.SignupRequest{Username: user.Username, Email: user.Email})
	}
}

func TokenHandler(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req model.TokenRequest
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		token, err := svc.Exchange(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}

		respond(w, http.StatusOK, model.TokenResponse{Token: token})
	}
}
