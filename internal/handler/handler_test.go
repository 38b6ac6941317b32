package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/kangminhyuk1111/hoops/internal/config"
	"github.com/kangminhyuk1111/hoops/internal/logger"
	"github.com/kangminhyuk1111/hoops/internal/middleware"
	"github.com/kangminhyuk1111/hoops/internal/model"
	"github.com/kangminhyuk1111/hoops/internal/repository"
	"github.com/kangminhyuk1111/hoops/internal/repository/memory"
	"github.com/kangminhyuk1111/hoops/internal/service"
	"github.com/kangminhyuk1111/hoops/internal/utils"
)

const testSecret = "handler-test-secret"

// ----- fakes -----

type fakeUsers struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]model.User
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byID: map[uint64]model.User{}} }

func (f *fakeUsers) Create(_ context.Context, email, nickname, password string, cost int) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email || u.Nickname == nickname {
			return 0, repository.ErrDuplicate
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	f.nextID++
	f.byID[f.nextID] = model.User{ID: f.nextID, Email: email, Nickname: nickname, PasswordHash: hash}
	return f.nextID, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, id uint64, nickname string, image *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Nickname == nickname && u.ID != id {
			return repository.ErrDuplicate
		}
	}
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Nickname = nickname
	u.ProfileImage = image
	f.byID[id] = u
	return nil
}

type fakeTokens struct {
	mu      sync.Mutex
	live    map[string]uint64
	revoked map[string]bool
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{live: map[string]uint64{}, revoked: map[string]bool{}}
}

func (f *fakeTokens) StoreRefresh(_ context.Context, userID uint64, hash string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.live[hash] = userID
	return nil
}

func (f *fakeTokens) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, ok := f.live[hash]
	if !ok || f.revoked[hash] {
		return 0, repository.ErrNotFound
	}
	return uid, nil
}

func (f *fakeTokens) RevokeByHash(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[hash] = true
	return nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for h, uid := range f.live {
		if uid == userID {
			f.revoked[h] = true
		}
	}
	return nil
}

type fakeNotifications struct {
	mu    sync.Mutex
	items []model.Notification
}

func (f *fakeNotifications) ListByUser(_ context.Context, userID uint64, limit, offset int) ([]model.Notification, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var mine []model.Notification
	for i := len(f.items) - 1; i >= 0; i-- {
		if f.items[i].UserID == userID {
			mine = append(mine, f.items[i])
		}
	}
	total := len(mine)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return mine[offset:end], total, nil
}

func (f *fakeNotifications) CountUnread(_ context.Context, userID uint64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, it := range f.items {
		if it.UserID == userID && !it.IsRead {
			n++
		}
	}
	return n, nil
}

func (f *fakeNotifications) MarkRead(_ context.Context, userID uint64, ids []uint64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for i := range f.items {
		for _, id := range ids {
			if f.items[i].ID == id && f.items[i].UserID == userID && !f.items[i].IsRead {
				f.items[i].IsRead = true
				n++
			}
		}
	}
	return n, nil
}

// ----- server -----

type testServer struct {
	t      *testing.T
	e      *echo.Echo
	store  *memory.Store
	users  *fakeUsers
	tokens *fakeTokens
	notes  *fakeNotifications
	court  model.Location
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.New()
	policy := config.DefaultMatchPolicy()
	policy.Location = time.UTC
	d := service.Deps{Store: store, Policy: policy, Log: logger.Discard()}

	cfg := config.Config{JWTSecret: testSecret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: bcrypt.MinCost}
	s := &testServer{
		t:      t,
		e:      echo.New(),
		store:  store,
		users:  newFakeUsers(),
		tokens: newFakeTokens(),
		notes:  &fakeNotifications{},
	}
	s.e.HTTPErrorHandler = ErrorHandler

	matches := NewMatchHandler(service.NewMatchService(d), service.NewQueryService(d), time.UTC)
	parts := NewParticipationHandler(service.NewParticipationService(d))
	locs := NewLocationHandler(service.NewLocationService(store, logger.Discard()))
	auth := NewAuthHandler(cfg, s.users, s.tokens)
	users := NewUserHandler(s.users)
	notes := NewNotificationHandler(s.notes)

	jwt := middleware.JWTAuth(testSecret)
	api := s.e.Group("/api")
	api.POST("/auth/signup", auth.Signup)
	api.POST("/auth/login", auth.Login)
	api.POST("/auth/refresh", auth.Refresh)
	api.POST("/auth/logout", auth.Logout)
	api.GET("/matches", matches.List)
	api.GET("/matches/hosted", matches.Hosted, jwt)
	api.GET("/matches/:id", matches.Get)
	api.POST("/matches", matches.Create, jwt)
	api.PUT("/matches/:id", matches.Update, jwt)
	api.DELETE("/matches/:id", matches.Cancel, jwt)
	api.POST("/matches/:id/reactivate", matches.Reactivate, jwt)
	api.POST("/matches/:id/participations", parts.Request, jwt)
	api.GET("/matches/:id/participations", parts.ListByMatch)
	api.PUT("/matches/:id/participations/:pid/approve", parts.Approve, jwt)
	api.PUT("/matches/:id/participations/:pid/reject", parts.Reject, jwt)
	api.DELETE("/matches/:id/participations/:pid", parts.Cancel, jwt)
	api.GET("/participations/me", parts.Mine, jwt)
	api.GET("/locations", locs.Search)
	api.GET("/locations/:id", locs.Get)
	api.POST("/locations", locs.Create, jwt)
	api.GET("/users/me", users.Me, jwt)
	api.PUT("/users/me", users.UpdateMe, jwt)
	api.GET("/users/:id", users.Get)
	api.GET("/notifications", notes.List, jwt)
	api.GET("/notifications/unread-count", notes.UnreadCount, jwt)
	api.PUT("/notifications/:id/read", notes.MarkRead, jwt)

	s.court = model.Location{Name: "Banpo Court", Slug: "banpo-court", Address: "Seoul", Latitude: 37.51, Longitude: 126.99}
	if err := store.CreateLocation(context.Background(), &s.court); err != nil {
		t.Fatal(err)
	}
	return s
}

// player registers a user in the match store and returns a bearer header.
func (s *testServer) player(nick string) (model.User, string) {
	s.t.Helper()
	u := s.store.AddUser(model.User{Nickname: nick})
	at, err := utils.NewAccessToken(testSecret, u.ID, nick, 15)
	if err != nil {
		s.t.Fatal(err)
	}
	return u, "Bearer " + at.Token
}

// rawBody is sent verbatim instead of being JSON-encoded.
type rawBody string

func (s *testServer) do(method, path, auth string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if raw, ok := body.(rawBody); ok {
			b, err = []byte(raw), nil
		}
		if err != nil {
			s.t.Fatal(err)
		}
		req = httptest.NewRequest(method, path, strings.NewReader(string(b)))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func expect(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	if code == "" {
		return
	}
	if got := decode[errorBody](t, rec).ErrorCode; got != code {
		t.Fatalf("errorCode = %q, want %q", got, code)
	}
}

// matchBody schedules a 90 minute game two days from now at 10:00 UTC.
func (s *testServer) matchBody(max int) echo.Map {
	day := time.Now().UTC().AddDate(0, 0, 2).Format(dateLayout)
	return echo.Map{
		"locationId":      s.court.ID,
		"title":           "Saturday run",
		"matchDate":       day,
		"startTime":       "10:00",
		"endTime":         "11:30",
		"maxParticipants": max,
	}
}

// ----- tests -----

func TestMatchFlow(t *testing.T) {
	s := newTestServer(t)
	_, host := s.player("host")
	_, guest := s.player("guest")

	rec := s.do(http.MethodPost, "/api/matches", host, s.matchBody(4))
	expect(t, rec, http.StatusCreated, "")
	m := decode[matchResponse](t, rec)
	if m.ID == 0 || m.Status != model.MatchPending || m.StartTime != "10:00" || m.EndTime != "11:30" {
		t.Fatalf("created = %+v", m)
	}
	if m.HostNickname != "host" || m.Location.Name != "Banpo Court" || m.RemainingSlots != 4 {
		t.Fatalf("created = %+v", m)
	}
	base := fmt.Sprintf("/api/matches/%d", m.ID)

	rec = s.do(http.MethodPost, base+"/participations", guest, nil)
	expect(t, rec, http.StatusCreated, "")
	p := decode[participationResponse](t, rec)
	if p.Status != model.ParticipationPending || p.UserNickname != "guest" {
		t.Fatalf("participation = %+v", p)
	}

	rec = s.do(http.MethodPost, base+"/participations", guest, nil)
	expect(t, rec, http.StatusConflict, "ALREADY_PARTICIPATING")

	approve := fmt.Sprintf("%s/participations/%d/approve", base, p.ID)
	expect(t, s.do(http.MethodPut, approve, guest, nil), http.StatusForbidden, "NOT_MATCH_HOST")
	rec = s.do(http.MethodPut, approve, host, nil)
	expect(t, rec, http.StatusOK, "")
	if got := decode[participationResponse](t, rec).Status; got != model.ParticipationConfirmed {
		t.Fatalf("approved status = %s", got)
	}

	rec = s.do(http.MethodGet, "/api/matches?latitude=37.5&longitude=127.0&distance=5", "", nil)
	expect(t, rec, http.StatusOK, "")
	page := decode[pageResponse[matchResponse]](t, rec)
	if page.TotalCount != 1 || len(page.Items) != 1 {
		t.Fatalf("page = %+v", page)
	}
	if it := page.Items[0]; it.CurrentParticipants != 1 || it.RemainingSlots != 3 || it.DistanceKm == nil {
		t.Fatalf("item = %+v", it)
	}

	rec = s.do(http.MethodGet, base, "", nil)
	expect(t, rec, http.StatusOK, "")
	if got := decode[matchResponse](t, rec); got.DistanceKm != nil {
		t.Fatalf("detail carries distance: %+v", got)
	}

	rec = s.do(http.MethodGet, base+"/participations", "", nil)
	expect(t, rec, http.StatusOK, "")
	if ps := decode[[]participationResponse](t, rec); len(ps) != 1 {
		t.Fatalf("participations = %+v", ps)
	}

	rec = s.do(http.MethodGet, "/api/participations/me", guest, nil)
	expect(t, rec, http.StatusOK, "")
	if ps := decode[[]participationResponse](t, rec); len(ps) != 1 || ps[0].MatchID != m.ID {
		t.Fatalf("mine = %+v", ps)
	}

	expect(t, s.do(http.MethodDelete, base, host, nil), http.StatusBadRequest, "CANCEL_REASON_REQUIRED")
	rec = s.do(http.MethodDelete, base, host, echo.Map{"reason": "rain"})
	expect(t, rec, http.StatusOK, "")
	if got := decode[matchResponse](t, rec); got.Status != model.MatchCancelled || got.CancelReason == nil || *got.CancelReason != "rain" {
		t.Fatalf("cancelled = %+v", got)
	}

	rec = s.do(http.MethodPost, base+"/reactivate", host, nil)
	expect(t, rec, http.StatusOK, "")
	if got := decode[matchResponse](t, rec); got.Status != model.MatchPending || got.CurrentParticipants != 1 {
		t.Fatalf("reactivated = %+v", got)
	}

	rec = s.do(http.MethodGet, "/api/matches/hosted", host, nil)
	expect(t, rec, http.StatusOK, "")
	if ms := decode[[]matchResponse](t, rec); len(ms) != 1 {
		t.Fatalf("hosted = %+v", ms)
	}
}

func TestMatchUpdateAndParticipantCancel(t *testing.T) {
	s := newTestServer(t)
	_, host := s.player("host")
	_, guest := s.player("guest")

	m := decode[matchResponse](t, s.do(http.MethodPost, "/api/matches", host, s.matchBody(10)))
	base := fmt.Sprintf("/api/matches/%d", m.ID)

	rec := s.do(http.MethodPut, base, host, echo.Map{"title": "Sunday run", "maxParticipants": 12})
	expect(t, rec, http.StatusOK, "")
	if got := decode[matchResponse](t, rec); got.Title != "Sunday run" || got.MaxParticipants != 12 {
		t.Fatalf("updated = %+v", got)
	}
	expect(t, s.do(http.MethodPut, base, guest, echo.Map{"title": "mine"}), http.StatusForbidden, "NOT_MATCH_HOST")

	p := decode[participationResponse](t, s.do(http.MethodPost, base+"/participations", guest, nil))
	reject := fmt.Sprintf("%s/participations/%d/reject", base, p.ID)
	expect(t, s.do(http.MethodPut, reject, host, nil), http.StatusBadRequest, "REJECT_REASON_REQUIRED")

	cancel := fmt.Sprintf("%s/participations/%d", base, p.ID)
	rec = s.do(http.MethodDelete, cancel, guest, nil)
	expect(t, rec, http.StatusOK, "")
	if got := decode[participationResponse](t, rec).Status; got != model.ParticipationCancelled {
		t.Fatalf("cancelled status = %s", got)
	}
}

func TestMatchErrors(t *testing.T) {
	s := newTestServer(t)
	_, host := s.player("host")

	cases := []struct {
		name, method, path, auth string
		body                     any
		status                   int
		code                     string
	}{
		{"no token", http.MethodPost, "/api/matches", "", s.matchBody(10), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"bad token", http.MethodPost, "/api/matches", "Bearer nope", s.matchBody(10), http.StatusUnauthorized, "INVALID_TOKEN"},
		{"too few players", http.MethodPost, "/api/matches", host, s.matchBody(3), http.StatusBadRequest, "INVALID_MAX_PARTICIPANTS"},
		{"missing match", http.MethodGet, "/api/matches/999", "", nil, http.StatusNotFound, "MATCH_NOT_FOUND"},
		{"bad id", http.MethodGet, "/api/matches/abc", "", nil, http.StatusNotFound, "MATCH_NOT_FOUND"},
		{"no coordinates", http.MethodGet, "/api/matches", "", nil, http.StatusBadRequest, "INVALID_COORDINATES"},
		{"bad sort", http.MethodGet, "/api/matches?latitude=37.5&longitude=127&sort=NAME", "", nil, http.StatusBadRequest, "INVALID_SORT_TYPE"},
		{"bad status", http.MethodGet, "/api/matches?latitude=37.5&longitude=127&status=DONE", "", nil, http.StatusBadRequest, "INVALID_STATUS_FILTER"},
		{"bad distance", http.MethodGet, "/api/matches?latitude=37.5&longitude=127&distance=far", "", nil, http.StatusBadRequest, "INVALID_SEARCH_DISTANCE"},
		{"bad page", http.MethodGet, "/api/matches?latitude=37.5&longitude=127&page=x", "", nil, http.StatusBadRequest, "INVALID_PAGING"},
		{"unknown route", http.MethodGet, "/api/nowhere", "", nil, http.StatusNotFound, "NOT_FOUND"},
		{"wrong method", http.MethodPatch, "/api/matches", "", nil, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expect(t, s.do(tc.method, tc.path, tc.auth, tc.body), tc.status, tc.code)
		})
	}
}

func TestMalformedBodies(t *testing.T) {
	s := newTestServer(t)
	_, host := s.player("host")
	_, guest := s.player("guest")

	rec := s.do(http.MethodPost, "/api/matches", host, s.matchBody(6))
	expect(t, rec, http.StatusCreated, "")
	base := fmt.Sprintf("/api/matches/%d", decode[matchResponse](t, rec).ID)
	rec = s.do(http.MethodPost, base+"/participations", guest, nil)
	expect(t, rec, http.StatusCreated, "")
	p := decode[participationResponse](t, rec)

	expect(t, s.do(http.MethodDelete, base, host, rawBody(`{"reason":`)), http.StatusBadRequest, "INVALID_COMMAND")
	expect(t, s.do(http.MethodDelete, base, host, nil), http.StatusBadRequest, "CANCEL_REASON_REQUIRED")
	reject := fmt.Sprintf("%s/participations/%d/reject", base, p.ID)
	expect(t, s.do(http.MethodPut, reject, host, rawBody(`not json`)), http.StatusBadRequest, "INVALID_COMMAND")
	expect(t, s.do(http.MethodPost, "/api/auth/logout", "", rawBody(`{`)), http.StatusBadRequest, "INVALID_LOGOUT")

	// a rejected malformed request left everything untouched
	rec = s.do(http.MethodPut, reject, host, echo.Map{"reason": "full"})
	expect(t, rec, http.StatusOK, "")
	rec = s.do(http.MethodDelete, base, host, echo.Map{"reason": "rain"})
	expect(t, rec, http.StatusOK, "")
}

func TestLocations(t *testing.T) {
	s := newTestServer(t)
	_, caller := s.player("scout")

	body := echo.Map{"name": "Yeouido Park Court", "address": "Yeongdeungpo-gu", "latitude": 37.526, "longitude": 126.924}
	expect(t, s.do(http.MethodPost, "/api/locations", "", body), http.StatusUnauthorized, "UNAUTHORIZED")
	rec := s.do(http.MethodPost, "/api/locations", caller, body)
	expect(t, rec, http.StatusCreated, "")
	l := decode[locationResponse](t, rec)

	body["name"] = "yeouido park  court!"
	expect(t, s.do(http.MethodPost, "/api/locations", caller, body), http.StatusConflict, "DUPLICATE_LOCATION_NAME")
	expect(t, s.do(http.MethodPost, "/api/locations", caller, echo.Map{"name": "x"}), http.StatusBadRequest, "INVALID_LOCATION")

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/locations/%d", l.ID), "", nil)
	expect(t, rec, http.StatusOK, "")
	if got := decode[locationResponse](t, rec); got.Name != "Yeouido Park Court" {
		t.Fatalf("location = %+v", got)
	}
	expect(t, s.do(http.MethodGet, "/api/locations/424242", "", nil), http.StatusNotFound, "LOCATION_NOT_FOUND")

	rec = s.do(http.MethodGet, "/api/locations?name=yeouido", "", nil)
	expect(t, rec, http.StatusOK, "")
	if ls := decode[[]locationResponse](t, rec); len(ls) != 1 || ls[0].ID != l.ID {
		t.Fatalf("search = %+v", ls)
	}
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	signup := echo.Map{"email": "Kim@Example.com", "password": "hunter2hunter2", "nickname": "kim"}
	rec := s.do(http.MethodPost, "/api/auth/signup", "", signup)
	expect(t, rec, http.StatusCreated, "")
	first := decode[authResp](t, rec)
	if first.User.Email != "kim@example.com" || first.User.Nickname != "kim" || first.Access.Token == "" || first.Refresh.Token == "" {
		t.Fatalf("signup = %+v", first)
	}
	p, err := utils.ParseAccessToken(testSecret, first.Access.Token)
	if err != nil || p.UserID != first.User.ID || p.Nickname != "kim" {
		t.Fatalf("access token principal = %+v, %v", p, err)
	}

	expect(t, s.do(http.MethodPost, "/api/auth/signup", "", signup), http.StatusConflict, "DUPLICATE_ACCOUNT")
	expect(t, s.do(http.MethodPost, "/api/auth/signup", "", echo.Map{"email": "a@b.c", "password": "longenough", "nickname": "x"}),
		http.StatusBadRequest, "INVALID_NICKNAME")
	expect(t, s.do(http.MethodPost, "/api/auth/signup", "", echo.Map{"email": "a@b.c", "password": "short", "nickname": "xy"}),
		http.StatusBadRequest, "INVALID_SIGNUP")

	expect(t, s.do(http.MethodPost, "/api/auth/login", "", echo.Map{"email": "kim@example.com", "password": "wrong-password"}),
		http.StatusUnauthorized, "INVALID_CREDENTIALS")
	expect(t, s.do(http.MethodPost, "/api/auth/login", "", echo.Map{"email": "nobody@example.com", "password": "whatever1"}),
		http.StatusUnauthorized, "INVALID_CREDENTIALS")
	rec = s.do(http.MethodPost, "/api/auth/login", "", echo.Map{"email": " KIM@example.com ", "password": "hunter2hunter2"})
	expect(t, rec, http.StatusOK, "")
	login := decode[authResp](t, rec)

	rec = s.do(http.MethodPost, "/api/auth/refresh", "", echo.Map{"refreshToken": login.Refresh.Token})
	expect(t, rec, http.StatusOK, "")
	rotated := decode[authResp](t, rec)
	if rotated.Refresh.Token == login.Refresh.Token {
		t.Fatal("refresh token was not rotated")
	}
	expect(t, s.do(http.MethodPost, "/api/auth/refresh", "", echo.Map{"refreshToken": login.Refresh.Token}),
		http.StatusUnauthorized, "INVALID_REFRESH_TOKEN")

	expect(t, s.do(http.MethodPost, "/api/auth/logout", "", echo.Map{"refreshToken": rotated.Refresh.Token}), http.StatusNoContent, "")
	expect(t, s.do(http.MethodPost, "/api/auth/refresh", "", echo.Map{"refreshToken": rotated.Refresh.Token}),
		http.StatusUnauthorized, "INVALID_REFRESH_TOKEN")

	expect(t, s.do(http.MethodPost, "/api/auth/logout", "Bearer "+first.Access.Token, nil), http.StatusNoContent, "")
	expect(t, s.do(http.MethodPost, "/api/auth/refresh", "", echo.Map{"refreshToken": first.Refresh.Token}),
		http.StatusUnauthorized, "INVALID_REFRESH_TOKEN")
	expect(t, s.do(http.MethodPost, "/api/auth/logout", "", nil), http.StatusBadRequest, "INVALID_LOGOUT")
}

func TestProfile(t *testing.T) {
	s := newTestServer(t)
	a := decode[authResp](t, s.do(http.MethodPost, "/api/auth/signup", "", echo.Map{"email": "a@x.io", "password": "password1", "nickname": "alpha"}))
	b := decode[authResp](t, s.do(http.MethodPost, "/api/auth/signup", "", echo.Map{"email": "b@x.io", "password": "password1", "nickname": "bravo"}))
	bearer := "Bearer " + a.Access.Token

	rec := s.do(http.MethodGet, "/api/users/me", bearer, nil)
	expect(t, rec, http.StatusOK, "")
	if got := decode[profileResponse](t, rec); got.Nickname != "alpha" || got.Email != "a@x.io" {
		t.Fatalf("me = %+v", got)
	}

	expect(t, s.do(http.MethodPut, "/api/users/me", bearer, echo.Map{"nickname": b.User.Nickname}), http.StatusConflict, "DUPLICATE_NICKNAME")
	expect(t, s.do(http.MethodPut, "/api/users/me", bearer, echo.Map{"nickname": strings.Repeat("z", 21)}), http.StatusBadRequest, "INVALID_NICKNAME")
	rec = s.do(http.MethodPut, "/api/users/me", bearer, echo.Map{"nickname": " 알파 "})
	expect(t, rec, http.StatusOK, "")
	if got := decode[profileResponse](t, rec); got.Nickname != "알파" {
		t.Fatalf("updated = %+v", got)
	}

	img := "https://cdn.example.com/a.png"
	rec = s.do(http.MethodPut, "/api/users/me", bearer, echo.Map{"nickname": "알파", "profileImage": img})
	expect(t, rec, http.StatusOK, "")
	if got := decode[profileResponse](t, rec); got.ProfileImage == nil || *got.ProfileImage != img || got.Rating != 0 || got.TotalMatches != 0 {
		t.Fatalf("with image = %+v", got)
	}
	// omitted keeps the image
	rec = s.do(http.MethodPut, "/api/users/me", bearer, echo.Map{"nickname": "alpha"})
	if got := decode[profileResponse](t, rec); got.ProfileImage == nil || *got.ProfileImage != img {
		t.Fatalf("image dropped: %+v", got)
	}
	expect(t, s.do(http.MethodPut, "/api/users/me", bearer, echo.Map{"nickname": "alpha", "profileImage": "ftp://x/a.png"}), http.StatusBadRequest, "INVALID_PROFILE_IMAGE")
	expect(t, s.do(http.MethodPut, "/api/users/me", bearer, echo.Map{"nickname": "alpha", "profileImage": "https://x.io/" + strings.Repeat("a", 500)}), http.StatusBadRequest, "INVALID_PROFILE_IMAGE")
	rec = s.do(http.MethodPut, "/api/users/me", bearer, echo.Map{"nickname": "alpha", "profileImage": ""})
	if got := decode[profileResponse](t, rec); got.ProfileImage != nil {
		t.Fatalf("image not cleared: %+v", got)
	}
}

func TestPublicProfile(t *testing.T) {
	s := newTestServer(t)
	a := decode[authResp](t, s.do(http.MethodPost, "/api/auth/signup", "", echo.Map{"email": "a@x.io", "password": "password1", "nickname": "alpha"}))

	rec := s.do(http.MethodGet, fmt.Sprintf("/api/users/%d", a.User.ID), "", nil)
	expect(t, rec, http.StatusOK, "")
	if strings.Contains(rec.Body.String(), "a@x.io") {
		t.Fatalf("public profile leaks email: %s", rec.Body.String())
	}
	if got := decode[profileResponse](t, rec); got.Nickname != "alpha" || got.TotalMatches != 0 {
		t.Fatalf("profile = %+v", got)
	}
	expect(t, s.do(http.MethodGet, "/api/users/999", "", nil), http.StatusNotFound, "USER_NOT_FOUND")
	expect(t, s.do(http.MethodGet, "/api/users/abc", "", nil), http.StatusNotFound, "USER_NOT_FOUND")
}

func TestNotifications(t *testing.T) {
	s := newTestServer(t)
	me, bearer := s.player("me")
	other, _ := s.player("other")
	mid := uint64(3)
	s.notes.items = []model.Notification{
		{ID: 1, UserID: me.ID, Type: model.NotifyParticipationCreated, Title: "t", Message: "m", RelatedMatchID: &mid},
		{ID: 2, UserID: other.ID, Type: model.NotifyMatchCancelled, Title: "t", Message: "m"},
		{ID: 3, UserID: me.ID, Type: model.NotifyParticipationApproved, Title: "t", Message: "m"},
	}

	rec := s.do(http.MethodGet, "/api/notifications?size=1", bearer, nil)
	expect(t, rec, http.StatusOK, "")
	page := decode[pageResponse[notificationResponse]](t, rec)
	if page.TotalCount != 2 || len(page.Items) != 1 || !page.HasMore || page.Items[0].ID != 3 {
		t.Fatalf("page = %+v", page)
	}

	rec = s.do(http.MethodGet, "/api/notifications/unread-count", bearer, nil)
	expect(t, rec, http.StatusOK, "")
	if got := decode[map[string]int](t, rec)["count"]; got != 2 {
		t.Fatalf("unread = %d", got)
	}

	expect(t, s.do(http.MethodPut, "/api/notifications/1/read", bearer, nil), http.StatusNoContent, "")
	expect(t, s.do(http.MethodPut, "/api/notifications/2/read", bearer, nil), http.StatusNotFound, "NOTIFICATION_NOT_FOUND")
	expect(t, s.do(http.MethodGet, "/api/notifications?size=0", bearer, nil), http.StatusBadRequest, "INVALID_PAGING")

	rec = s.do(http.MethodGet, "/api/notifications/unread-count", bearer, nil)
	if got := decode[map[string]int](t, rec)["count"]; got != 1 {
		t.Fatalf("unread after mark = %d", got)
	}
}
