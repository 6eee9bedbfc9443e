package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/BaGreal2/yamdb-server/internal/auth"
	"github.com/BaGreal2/yamdb-server/internal/db"
	"github.com/BaGreal2/yamdb-server/internal/middleware"
	"github.com/BaGreal2/yamdb-server/internal/model"
	"github.com/BaGreal2/yamdb-server/internal/store"
	"github.com/BaGreal2/yamdb-server/internal/validation"
)

type capturedMail struct {
	codes map[string]string
}

func (c *capturedMail) SendConfirmationCode(_ context.Context, email, _, code string) error {
	c.codes[email] = code
	return nil
}

type testAPI struct {
	t      *testing.T
	server *httptest.Server
	store  *store.Store
	tokens *auth.Tokens
	mail   *capturedMail
	// bearer tokens by username
	auth map[string]string
	ids  map[string]int64
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	database, err := db.Open("sqlite3", filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	st := store.New(database)
	v := validation.New(st)
	tokens := auth.NewTokens("test-secret", time.Hour)
	mail := &capturedMail{codes: map[string]string{}}
	svc := auth.NewService(st, mail, tokens, v, auth.Options{HashCost: bcrypt.MinCost}, logger)

	api := &testAPI{
		t:      t,
		store:  st,
		tokens: tokens,
		mail:   mail,
		auth:   map[string]string{},
		ids:    map[string]int64{},
	}
	api.server = httptest.NewServer(NewRouter(Deps{
		Store:       st,
		Validator:   v,
		Auth:        svc,
		Logger:      logger,
		AuthLimiter: middleware.NewRateLimiter(1000, 1000),
	}))
	t.Cleanup(api.server.Close)

	api.addUser("admin", model.RoleAdmin)
	api.addUser("moder", model.RoleModerator)
	api.addUser("alice", model.RoleUser)
	api.addUser("bob", model.RoleUser)
	return api
}

func (a *testAPI) addUser(username string, role model.Role) {
	a.t.Helper()
	u, err := a.store.CreateUser(context.Background(), &model.User{Username: username, Email: username + "@x.com", Role: role})
	require.NoError(a.t, err)
	token, err := a.tokens.Issue(u)
	require.NoError(a.t, err)
	a.auth[username] = token
	a.ids[username] = u.ID
}

// do sends body as JSON. as is a username from a.auth, or "" for anonymous.
func (a *testAPI) do(method, path, as string, body any) (int, map[string]any) {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.server.URL+"/api/v1"+path, reader)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	if as != "" {
		req.Header.Set("Authorization", "Bearer "+a.auth[as])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	var out map[string]any
	if len(raw) > 0 {
		require.NoError(a.t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (a *testAPI) seedCatalog() int64 {
	a.t.Helper()
	code, _ := a.do(http.MethodPost, "/categories/", "admin", map[string]string{"name": "Movie", "slug": "movie"})
	require.Equal(a.t, http.StatusCreated, code)
	for _, g := range []string{"drama", "comedy"} {
		code, _ := a.do(http.MethodPost, "/genres/", "admin", map[string]string{"name": g, "slug": g})
		require.Equal(a.t, http.StatusCreated, code)
	}
	code, body := a.do(http.MethodPost, "/titles/", "admin", map[string]any{
		"name": "The Apartment", "year": 1960, "genre": []string{"drama", "comedy"}, "category": "movie",
	})
	require.Equal(a.t, http.StatusCreated, code, body)
	return int64(body["id"].(float64))
}

func titlePath(id int64) string { return "/titles/" + strconv.FormatInt(id, 10) }

func TestTitleRoundTrip(t *testing.T) {
	api := newTestAPI(t)
	id := api.seedCatalog()

	code, body := api.do(http.MethodGet, titlePath(id), "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "The Apartment", body["name"])
	assert.Nil(t, body["rating"])
	assert.Equal(t, map[string]any{"name": "Movie", "slug": "movie"}, body["category"])
	assert.Equal(t, []any{
		map[string]any{"name": "comedy", "slug": "comedy"},
		map[string]any{"name": "drama", "slug": "drama"},
	}, body["genre"])

	code, _ = api.do(http.MethodPost, titlePath(id)+"/reviews/", "alice", map[string]any{"text": "great", "score": 10})
	require.Equal(t, http.StatusCreated, code)
	code, _ = api.do(http.MethodPost, titlePath(id)+"/reviews/", "bob", map[string]any{"text": "fine", "score": 7})
	require.Equal(t, http.StatusCreated, code)

	_, body = api.do(http.MethodGet, titlePath(id), "", nil)
	assert.InDelta(t, 8.5, body["rating"], 0.001)
}

func TestTitleYearInFuture(t *testing.T) {
	api := newTestAPI(t)
	api.seedCatalog()

	code, body := api.do(http.MethodPost, "/titles/", "admin", map[string]any{
		"name": "Later", "year": time.Now().Year() + 1,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body, "year")
}

func TestTitleUnknownGenreAndCategory(t *testing.T) {
	api := newTestAPI(t)
	api.seedCatalog()

	code, body := api.do(http.MethodPost, "/titles/", "admin", map[string]any{
		"name": "X", "year": 2000, "genre": []string{"horror"}, "category": "book",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body, "genre")
	assert.Contains(t, body, "category")
}

func TestTitleFiltersAndPagination(t *testing.T) {
	api := newTestAPI(t)
	api.seedCatalog()
	code, _ := api.do(http.MethodPost, "/titles/", "admin", map[string]any{"name": "Solaris", "year": 1972, "genre": []string{"drama"}})
	require.Equal(t, http.StatusCreated, code)

	_, body := api.do(http.MethodGet, "/titles/?genre=comedy", "", nil)
	assert.Equal(t, float64(1), body["count"])

	_, body = api.do(http.MethodGet, "/titles/?year=1972", "", nil)
	assert.Equal(t, float64(1), body["count"])

	_, body = api.do(http.MethodGet, "/titles/?limit=1&offset=1", "", nil)
	assert.Equal(t, float64(2), body["count"])
	results := body["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "The Apartment", results[0].(map[string]any)["name"])

	code, _ = api.do(http.MethodGet, "/titles/?year=soon", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAnonymousWritesAreUnauthorized(t *testing.T) {
	api := newTestAPI(t)
	id := api.seedCatalog()

	for _, path := range []string{"/categories/", "/genres/", "/titles/", titlePath(id) + "/reviews/"} {
		code, _ := api.do(http.MethodPost, path, "", map[string]any{"name": "x"})
		assert.Equal(t, http.StatusUnauthorized, code, path)
	}
	code, _ := api.do(http.MethodGet, "/categories/", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestNonAdminWritesAreForbidden(t *testing.T) {
	api := newTestAPI(t)
	api.seedCatalog()

	code, body := api.do(http.MethodPost, "/categories/", "alice", map[string]string{"name": "Book", "slug": "book"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "request", body["level"])

	code, _ = api.do(http.MethodGet, "/users/", "moder", nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestDuplicateReview(t *testing.T) {
	api := newTestAPI(t)
	id := api.seedCatalog()

	code, _ := api.do(http.MethodPost, titlePath(id)+"/reviews/", "alice", map[string]any{"text": "great", "score": 9})
	require.Equal(t, http.StatusCreated, code)
	code, body := api.do(http.MethodPost, titlePath(id)+"/reviews/", "alice", map[string]any{"text": "again", "score": 1})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body, "non_field_errors")
}

func TestReviewOwnership(t *testing.T) {
	api := newTestAPI(t)
	id := api.seedCatalog()

	code, body := api.do(http.MethodPost, titlePath(id)+"/reviews/", "alice", map[string]any{"text": "great", "score": 9})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "alice", body["author"])
	assert.Equal(t, "The Apartment", body["title"])
	reviewPath := titlePath(id) + "/reviews/" + strconv.Itoa(int(body["id"].(float64)))

	code, body = api.do(http.MethodPatch, reviewPath, "bob", map[string]any{"text": "mine now"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "object", body["level"])

	code, body = api.do(http.MethodPatch, reviewPath, "moder", map[string]any{"score": 3})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(3), body["score"])
	assert.Equal(t, "great", body["text"])

	code, body = api.do(http.MethodPut, reviewPath, "alice", map[string]any{"text": "only text"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body, "score")

	code, body = api.do(http.MethodPost, reviewPath+"/comments/", "bob", map[string]any{"text": "agreed"})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "great", body["review"])
	commentPath := reviewPath + "/comments/" + strconv.Itoa(int(body["id"].(float64)))

	code, _ = api.do(http.MethodDelete, commentPath, "alice", nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = api.do(http.MethodDelete, commentPath, "admin", nil)
	assert.Equal(t, http.StatusNoContent, code)

	code, _ = api.do(http.MethodDelete, reviewPath, "alice", nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = api.do(http.MethodGet, reviewPath, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestReviewUnderWrongTitle(t *testing.T) {
	api := newTestAPI(t)
	id := api.seedCatalog()
	code, other := api.do(http.MethodPost, "/titles/", "admin", map[string]any{"name": "Solaris", "year": 1972})
	require.Equal(t, http.StatusCreated, code)

	_, body := api.do(http.MethodPost, titlePath(id)+"/reviews/", "alice", map[string]any{"text": "great", "score": 9})
	reviewID := strconv.Itoa(int(body["id"].(float64)))
	code, _ = api.do(http.MethodGet, titlePath(int64(other["id"].(float64)))+"/reviews/"+reviewID, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSignupAndTokenExchange(t *testing.T) {
	api := newTestAPI(t)

	code, body := api.do(http.MethodPost, "/auth/signup/", "", map[string]string{"username": "carol", "email": "c@x.com"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"username": "carol", "email": "c@x.com"}, body)

	code, body = api.do(http.MethodPost, "/auth/token/", "", map[string]string{"username": "carol", "confirmation_code": "nope"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body, "confirmation_code")

	code, body = api.do(http.MethodPost, "/auth/token/", "", map[string]string{
		"username": "carol", "confirmation_code": api.mail.codes["c@x.com"],
	})
	require.Equal(t, http.StatusOK, code)
	token := body["token"].(string)
	api.auth["carol"] = token

	code, body = api.do(http.MethodGet, "/users/me/", "carol", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "user", body["role"])

	code, _ = api.do(http.MethodPost, "/auth/token/", "", map[string]string{"username": "ghost", "confirmation_code": "1"})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSignupRejectsReservedAndTaken(t *testing.T) {
	api := newTestAPI(t)

	code, body := api.do(http.MethodPost, "/auth/signup/", "", map[string]string{"username": "me", "email": "me@x.com"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body, "username")

	code, body = api.do(http.MethodPost, "/auth/signup/", "", map[string]string{"username": "alice", "email": "other@x.com"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body, "username")

	code, body = api.do(http.MethodPost, "/auth/signup/", "", map[string]string{"username": "me", "email": "alice@x.com"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body, "username")
	assert.Contains(t, body, "email")

	code, _ = api.do(http.MethodPost, "/auth/signup/", "", map[string]string{"username": "alice", "email": "alice@x.com"})
	assert.Equal(t, http.StatusOK, code)
}

func TestSelfUpdateIgnoresRole(t *testing.T) {
	api := newTestAPI(t)

	code, body := api.do(http.MethodPatch, "/users/me/", "alice", map[string]string{"role": "admin", "bio": "hi"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "user", body["role"])
	assert.Equal(t, "hi", body["bio"])

	code, _ = api.do(http.MethodDelete, "/users/me/", "alice", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, code)

	code, _ = api.do(http.MethodGet, "/users/me/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestAdminManagesUsers(t *testing.T) {
	api := newTestAPI(t)

	code, body := api.do(http.MethodPost, "/users/", "admin", map[string]string{"username": "dave", "email": "d@x.com", "role": "moderator"})
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "moderator", body["role"])

	code, body = api.do(http.MethodPost, "/users/", "admin", map[string]string{"username": "me", "email": "m@x.com"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body, "username")

	code, body = api.do(http.MethodPatch, "/users/dave/", "admin", map[string]string{"role": "admin"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "admin", body["role"])

	_, body = api.do(http.MethodGet, "/users/?search=dav", "admin", nil)
	assert.Equal(t, float64(1), body["count"])

	code, _ = api.do(http.MethodDelete, "/users/dave/", "admin", nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = api.do(http.MethodGet, "/users/dave/", "admin", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCategoryLifecycle(t *testing.T) {
	api := newTestAPI(t)
	id := api.seedCatalog()

	code, body := api.do(http.MethodPost, "/categories/", "admin", map[string]string{"name": "Again", "slug": "movie"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body, "slug")

	code, body = api.do(http.MethodPatch, "/categories/movie/", "admin", map[string]string{"name": "Film"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Film", body["name"])

	code, _ = api.do(http.MethodDelete, "/categories/movie/", "admin", nil)
	assert.Equal(t, http.StatusNoContent, code)

	_, body = api.do(http.MethodGet, titlePath(id), "", nil)
	assert.Nil(t, body["category"])
}

func TestInvalidTokenRejected(t *testing.T) {
	api := newTestAPI(t)
	api.auth["forged"] = "not-a-token"
	code, _ := api.do(http.MethodGet, "/categories/", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)
	resp, err := http.Get(api.server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
