package handler

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/BaGreal2/yamdb-server/internal/apperror"
	"github.com/BaGreal2/yamdb-server/internal/auth"
	"github.com/BaGreal2/yamdb-server/internal/metrics"
	"github.com/BaGreal2/yamdb-server/internal/middleware"
	"github.com/BaGreal2/yamdb-server/internal/store"
	"github.com/BaGreal2/yamdb-server/internal/validation"
)

type Deps struct {
	Store     *store.Store
	Validator *validation.Validator
	Auth      *auth.Service
	Logger    *logrus.Logger
	// CORSOrigins empty reflects any origin.
	CORSOrigins []string
	// AuthLimiter throttles signup and token requests. Nil disables it.
	AuthLimiter *middleware.RateLimiter
}

// NewRouter builds the /api/v1 API together with /healthz and /metrics.
func NewRouter(d Deps) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, apperror.NotFound("resource"))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	r.Use(middleware.Metrics)

	r.HandleFunc("/healthz", Health(d.Store)).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Authenticate(d.Auth.Tokens(), d.Store))

	limited := func(h http.HandlerFunc) http.Handler {
		if d.AuthLimiter == nil {
			return h
		}
		return d.AuthLimiter.Handler(h)
	}
	api.Handle("/auth/signup", limited(SignupHandler(d.Auth))).Methods(http.MethodPost)
	api.Handle("/auth/token", limited(TokenHandler(d.Auth))).Methods(http.MethodPost)

	for _, t := range []taxonomy{categoriesTaxonomy(d.Store), genresTaxonomy(d.Store)} {
		api.HandleFunc("/"+string(t.resource), ListTaxonomy(t)).Methods(http.MethodGet)
		api.HandleFunc("/"+string(t.resource), CreateTaxonomy(t, d.Validator)).Methods(http.MethodPost)
		api.HandleFunc("/"+string(t.resource)+"/{slug}", TaxonomyItem(t, d.Validator)).
			Methods(http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete)
	}

	api.HandleFunc("/titles", ListTitles(d.Store)).Methods(http.MethodGet)
	api.HandleFunc("/titles", CreateTitle(d.Store, d.Validator)).Methods(http.MethodPost)
	api.HandleFunc("/titles/{title_id}", TitleItem(d.Store, d.Validator)).
		Methods(http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete)

	api.HandleFunc("/titles/{title_id}/reviews", ListReviews(d.Store)).Methods(http.MethodGet)
	api.HandleFunc("/titles/{title_id}/reviews", CreateReview(d.Store, d.Validator)).Methods(http.MethodPost)
	api.HandleFunc("/titles/{title_id}/reviews/{review_id}", ReviewItem(d.Store, d.Validator)).
		Methods(http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete)

	comments := "/titles/{title_id}/reviews/{review_id}/comments"
	api.HandleFunc(comments, ListComments(d.Store)).Methods(http.MethodGet)
	api.HandleFunc(comments, CreateComment(d.Store, d.Validator)).Methods(http.MethodPost)
	api.HandleFunc(comments+"/{comment_id}", CommentItem(d.Store, d.Validator)).
		Methods(http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete)

	api.HandleFunc("/users", ListUsers(d.Store)).Methods(http.MethodGet)
	api.HandleFunc("/users", CreateUser(d.Store, d.Validator)).Methods(http.MethodPost)
	api.HandleFunc("/users/me", MeHandler(d.Store, d.Validator))
	api.HandleFunc("/users/{username}", UserItem(d.Store, d.Validator)).
		Methods(http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete)

	var h http.Handler = r
	h = middleware.CORS(d.CORSOrigins)(h)
	h = middleware.Recover(h)
	h = middleware.Logging(d.Logger)(h)
	return stripTrailingSlash(h)
}

// stripTrailingSlash makes "/titles/" and "/titles" the same route.
func stripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(r.URL.Path) > 1 && strings.HasSuffix(r.URL.Path, "/") {
			r.URL.Path = strings.TrimRight(r.URL.Path, "/")
			if r.URL.Path == "" {
				r.URL.Path = "/"
			}
		}
		next.ServeHTTP(w, r)
	})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusMethodNotAllowed, map[string]string{
		"detail": "method \"" + r.Method + "\" not allowed",
	})
}

func Health(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := st.DB().PingContext(r.Context()); err != nil {
			httpLog(r).WithError(err).Error("health check failed")
			respond(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		respond(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
