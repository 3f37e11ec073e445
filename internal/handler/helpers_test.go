package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/idle-clicker/internal/auth"
	"github.com/sakif/idle-clicker/internal/catalog"
	"github.com/sakif/idle-clicker/internal/leaderboard"
	"github.com/sakif/idle-clicker/internal/model"
	sqliteRepo "github.com/sakif/idle-clicker/internal/repository/sqlite"
	"github.com/sakif/idle-clicker/internal/service"
)

// fakeGitHub stands in for auth.GitHubProvider.
type fakeGitHub struct {
	user *auth.GitHubUser
	err  error
}

func (f *fakeGitHub) AuthURL(state string) string {
	return "https://github.example/authorize?state=" + state
}

func (f *fakeGitHub) Exchange(_ context.Context, code string) (*auth.GitHubUser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

// testAPI holds every handler wired to one in-memory database.
type testAPI struct {
	db        *sqliteRepo.DB
	tokens    *auth.TokenService
	github    *fakeGitHub
	authH     *AuthHandler
	users     *UserHandler
	game      *GameHandler
	inventory *InventoryHandler
	authSvc   *service.AuthService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", time.Hour)
	require.NoError(t, err)
	passwords := auth.NewPasswordServiceWithCost(bcrypt.MinCost)
	locks := service.NewUserLocks()
	source := catalog.StaticSource{
		{ID: 1, Name: "Cursor", Price: 100, ClickValue: 5},
		{ID: 2, Name: "Grandma", Price: 10, MaxQuantity: 1, ClickValue: 1},
	}
	gh := &fakeGitHub{user: &auth.GitHubUser{ID: 99, Login: "octocat"}}

	authSvc := service.NewAuthService(db, tokens, passwords, logger)
	progression := service.NewProgressionService(db, db, leaderboard.NewMemoryTracker(), locks, logger)
	shop := service.NewShopService(db, db, db, source, locks, logger)

	return &testAPI{
		db:        db,
		tokens:    tokens,
		github:    gh,
		authH:     NewAuthHandler(authSvc, gh, logger),
		users:     NewUserHandler(service.NewUserService(db, passwords, logger), logger),
		game:      NewGameHandler(progression, logger),
		inventory: NewInventoryHandler(shop, logger),
		authSvc:   authSvc,
	}
}

// register creates an account and returns the identity a token would carry.
func (a *testAPI) register(t *testing.T, username string) auth.Identity {
	t.Helper()
	res, err := a.authSvc.Register(context.Background(), username, "pass1234")
	require.NoError(t, err)
	return auth.Identity{UserID: res.User.ID, Role: res.User.Role}
}

func (a *testAPI) setClicks(t *testing.T, userID string, clicks int64) {
	t.Helper()
	_, err := a.db.MutateProgression(context.Background(), userID, func(p *model.Progression) error {
		p.ClickCount = clicks
		return nil
	})
	require.NoError(t, err)
}

// request describes one call straight into a handler method.
type request struct {
	method string
	target string
	body   any
	as     *auth.Identity
	params map[string]string
}

func serve(t *testing.T, h http.HandlerFunc, req request) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	switch b := req.body.(type) {
	case nil:
	case string:
		body = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	r := httptest.NewRequest(req.method, req.target, body)
	ctx := r.Context()
	if req.as != nil {
		ctx = auth.WithIdentity(ctx, *req.as)
	}
	if len(req.params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range req.params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}

	w := httptest.NewRecorder()
	h(w, r.WithContext(ctx))
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func callbackRequest(cookieState, queryState, extra string) *http.Request {
	target := "/auth/github/callback?state=" + queryState
	if extra != "" {
		target += "&" + extra
	}
	r := httptest.NewRequest(http.MethodGet, target, nil)
	if cookieState != "" {
		r.AddCookie(&http.Cookie{Name: auth.StateCookieName, Value: cookieState})
	}
	return r
}

func serveRaw(h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h(w, r)
	return w
}
