package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/trentd187/golf-scorekeeper/internal/auth"
	"github.com/trentd187/golf-scorekeeper/internal/config"
	"github.com/trentd187/golf-scorekeeper/internal/live"
	"github.com/trentd187/golf-scorekeeper/internal/models"
	"github.com/trentd187/golf-scorekeeper/internal/server"
	"github.com/trentd187/golf-scorekeeper/internal/testutil"
)

// today is the fixed "now" every test app runs at.
var today = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

type testAPI struct {
	t    *testing.T
	app  *fiber.App
	db   *gorm.DB
	auth *auth.Service
	hub  *live.Hub
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	db := testutil.NewDB(t)
	cfg := &config.Config{
		AllowedOrigin: "http://localhost:5173",
		JWTSecret:     "test-secret",
		TokenTTL:      time.Hour,
		Env:           "test",
	}
	svc := auth.NewService(db, cfg.JWTSecret, cfg.TokenTTL)
	hub := live.NewHub()

	app := server.New(server.Deps{
		Config: cfg,
		DB:     db,
		Auth:   svc,
		Hub:    hub,
		Now:    func() time.Time { return today },
	})
	return &testAPI{t: t, app: app, db: db, auth: svc, hub: hub}
}

// do sends a request through the app and returns the status and raw body.
func (a *testAPI) do(method, path, token string, body any) (int, []byte) {
	a.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return resp.StatusCode, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

type player struct {
	token  string
	userID string
}

// signUp registers a player through the API.
func (a *testAPI) signUp(email, name string) player {
	a.t.Helper()

	status, raw := a.do(http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email":    email,
		"password": "secret123",
		"name":     name,
	})
	require.Equal(a.t, http.StatusOK, status, string(raw))

	body := decode[map[string]any](a.t, raw)
	user := body["user"].(map[string]any)
	session := body["session"].(map[string]any)
	return player{token: session["access_token"].(string), userID: user["id"].(string)}
}

// admin registers a player and promotes them straight in the database.
func (a *testAPI) admin(email string) player {
	a.t.Helper()
	p := a.signUp(email, "Admin")
	require.NoError(a.t, a.db.Model(&models.User{}).
		Where("user_id = ?", p.userID).
		Update("user_role", models.UserRoleAdmin).Error)
	return p
}

// create POSTs body to path as p and returns the created row's id field.
func (a *testAPI) create(p player, path string, body map[string]any, idField string) string {
	a.t.Helper()
	status, raw := a.do(http.MethodPost, path, p.token, body)
	require.Equal(a.t, http.StatusCreated, status, string(raw))
	return decode[map[string]any](a.t, raw)[idField].(string)
}

func (a *testAPI) course(admin player, name string, par int) string {
	return a.create(admin, "/api/courses", map[string]any{
		"name": name, "location": "Springfield", "par": par,
	}, "course_id")
}

func (a *testAPI) tournament(admin player, name, start, end string) string {
	return a.create(admin, "/api/tournaments", map[string]any{
		"name": name, "start_date": start, "end_date": end,
	}, "tournament_id")
}

func errorText(t *testing.T, raw []byte) string {
	t.Helper()
	return decode[map[string]any](t, raw)["error"].(string)
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	status, raw := api.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(raw))
}

func TestSignUp_ReturnsProfileAndSession(t *testing.T) {
	api := newTestAPI(t)

	status, raw := api.do(http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email":    "ann@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, status, string(raw))

	body := decode[map[string]any](t, raw)
	user := body["user"].(map[string]any)
	session := body["session"].(map[string]any)
	assert.NotEmpty(t, user["id"])
	assert.Equal(t, "user", user["role"])
	assert.Equal(t, "ann", user["name"])
	assert.NotEmpty(t, session["access_token"])
	assert.Equal(t, "bearer", session["token_type"])

	// Same email again is rejected and nothing new is stored.
	status, _ = api.do(http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email":    "ANN@example.com",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	var count int64
	require.NoError(t, api.db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSignUp_MissingFields(t *testing.T) {
	api := newTestAPI(t)

	status, raw := api.do(http.MethodPost, "/api/auth/signup", "", map[string]any{"email": "ann@example.com"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Email and password are required", errorText(t, raw))
}

func TestSignIn_CreatesMissingProfile(t *testing.T) {
	api := newTestAPI(t)

	// An account with no profile row, as an operator might create by hand.
	_, err := api.auth.SignUp(context.Background(), "bob@example.com", "secret123")
	require.NoError(t, err)

	status, raw := api.do(http.MethodPost, "/api/auth/signin", "", map[string]any{
		"email":    "bob@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, status, string(raw))

	user := decode[map[string]any](t, raw)["user"].(map[string]any)
	assert.Equal(t, "bob", user["name"])
	assert.Equal(t, "user", user["role"])

	var count int64
	require.NoError(t, api.db.Model(&models.User{}).Where("email = ?", "bob@example.com").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSignIn_WrongPassword(t *testing.T) {
	api := newTestAPI(t)
	api.signUp("ann@example.com", "Ann")

	status, raw := api.do(http.MethodPost, "/api/auth/signin", "", map[string]any{
		"email":    "ann@example.com",
		"password": "not-it",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid login credentials", errorText(t, raw))
}

func TestAuth_RejectsMissingAndBadTokens(t *testing.T) {
	api := newTestAPI(t)

	status, raw := api.do(http.MethodGet, "/api/scores", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Missing or invalid authorization header", errorText(t, raw))

	status, raw = api.do(http.MethodGet, "/api/scores", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid or expired token", errorText(t, raw))
}

func TestRouting_UnknownAPIPath(t *testing.T) {
	api := newTestAPI(t)

	status, raw := api.do(http.MethodGet, "/api/does-not-exist", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"error":"Not found"}`, string(raw))
}

func TestRouting_FunctionPrefixIsNormalized(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin("admin@example.com")
	api.course(admin, "Pebble Creek", 72)

	status, raw := api.do(http.MethodGet, "/.netlify/functions/api/courses/", "", nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Len(t, decode[[]map[string]any](t, raw), 1)
}

func TestCourses_AdminOnlyWrites(t *testing.T) {
	api := newTestAPI(t)
	ann := api.signUp("ann@example.com", "Ann")

	status, raw := api.do(http.MethodPost, "/api/courses", ann.token, map[string]any{
		"name": "Pebble Creek", "location": "Springfield", "par": 72,
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Admin access required", errorText(t, raw))

	admin := api.admin("admin@example.com")
	status, raw = api.do(http.MethodPost, "/api/courses", admin.token, map[string]any{
		"name": "Pebble Creek", "location": "Springfield", "par": 200,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "par must be between 1 and 90", errorText(t, raw))
}

func TestCourses_DeleteWithScoresIsForbidden(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin("admin@example.com")
	ann := api.signUp("ann@example.com", "Ann")
	courseID := api.course(admin, "Pebble Creek", 72)

	api.create(ann, "/api/scores", map[string]any{
		"course_id": courseID, "score_value": 88, "date_played": "2024-06-01",
	}, "score_id")

	status, _ := api.do(http.MethodDelete, "/api/courses/"+courseID, admin.token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = api.do(http.MethodGet, "/api/courses/"+courseID, "", nil)
	assert.Equal(t, http.StatusOK, status, "course must still exist")
}

func TestScores_MissingDatePlayed(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin("admin@example.com")
	ann := api.signUp("ann@example.com", "Ann")
	courseID := api.course(admin, "Pebble Creek", 72)

	status, raw := api.do(http.MethodPost, "/api/scores", ann.token, map[string]any{
		"course_id": courseID, "score_value": 88,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Missing required field: date_played", errorText(t, raw))
}

func TestScores_CreateAndList(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin("admin@example.com")
	ann := api.signUp("ann@example.com", "Ann")
	courseID := api.course(admin, "Pebble Creek", 72)

	api.create(ann, "/api/scores", map[string]any{
		"course_id": courseID, "score_value": 88, "date_played": "2024-06-01", "notes": "  windy ",
	}, "score_id")
	api.create(ann, "/api/scores", map[string]any{
		"course_id": courseID, "score_value": 84, "date_played": "2024-06-08",
	}, "score_id")

	status, raw := api.do(http.MethodGet, "/api/scores", ann.token, nil)
	require.Equal(t, http.StatusOK, status, string(raw))

	scores := decode[[]map[string]any](t, raw)
	require.Len(t, scores, 2)
	assert.Equal(t, "2024-06-08", scores[0]["date_played"], "newest first")
	assert.Equal(t, "Pebble Creek", scores[0]["course_name"])
	assert.Equal(t, "windy", scores[1]["notes"])
	assert.Equal(t, ann.userID, scores[1]["user_id"])

	// Other players don't see them.
	bob := api.signUp("bob@example.com", "Bob")
	status, raw = api.do(http.MethodGet, "/api/scores", bob.token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[[]map[string]any](t, raw))
}

func TestScores_OnlyOwnerOrAdminCanModify(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin("admin@example.com")
	ann := api.signUp("ann@example.com", "Ann")
	bob := api.signUp("bob@example.com", "Bob")
	courseID := api.course(admin, "Pebble Creek", 72)

	scoreID := api.create(ann, "/api/scores", map[string]any{
		"course_id": courseID, "score_value": 88, "date_played": "2024-06-01",
	}, "score_id")

	status, _ := api.do(http.MethodPut, "/api/scores/"+scoreID, bob.token, map[string]any{"score_value": 70})
	assert.Equal(t, http.StatusForbidden, status)

	status, raw := api.do(http.MethodPut, "/api/scores/"+scoreID, ann.token, map[string]any{"score_value": 86})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.EqualValues(t, 86, decode[map[string]any](t, raw)["score_value"])

	status, _ = api.do(http.MethodDelete, "/api/scores/"+scoreID, bob.token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = api.do(http.MethodDelete, "/api/scores/"+scoreID, admin.token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = api.do(http.MethodDelete, "/api/scores/"+scoreID, admin.token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestUsers_DeleteRules(t *testing.T) {
	api := newTestAPI(t)
	ann := api.signUp("ann@example.com", "Ann")
	bob := api.signUp("bob@example.com", "Bob")

	status, _ := api.do(http.MethodDelete, "/api/users/"+bob.userID, ann.token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, raw := api.do(http.MethodDelete, "/api/users/"+ann.userID, ann.token, nil)
	require.Equal(t, http.StatusOK, status, string(raw))

	// The sign-in account went with the profile, so the old token is dead.
	status, _ = api.do(http.MethodGet, "/api/profile", ann.token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = api.do(http.MethodPost, "/api/auth/signin", "", map[string]any{
		"email": "ann@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestUsers_AdminCanChangeRole(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin("admin@example.com")
	ann := api.signUp("ann@example.com", "Ann")

	status, raw := api.do(http.MethodPut, "/api/users/"+ann.userID, admin.token, map[string]any{"user_role": "owner"})
	assert.Equal(t, http.StatusBadRequest, status, string(raw))

	status, raw = api.do(http.MethodPut, "/api/users/"+ann.userID, admin.token, map[string]any{"user_role": "admin"})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, "admin", decode[map[string]any](t, raw)["user_role"])

	status, _ = api.do(http.MethodGet, "/api/users", ann.token, nil)
	assert.Equal(t, http.StatusOK, status, "new role applies on the next request")
}

func TestProfile_PartialUpdateMerges(t *testing.T) {
	api := newTestAPI(t)
	ann := api.signUp("ann@example.com", "Ann Smith")

	status, raw := api.do(http.MethodPut, "/api/profile", ann.token, map[string]any{"handicap": 12.4})
	require.Equal(t, http.StatusOK, status, string(raw))

	updated := decode[map[string]any](t, raw)
	assert.Equal(t, "Ann Smith", updated["name"])
	assert.Equal(t, "ann@example.com", updated["email"])
	assert.InDelta(t, 12.4, updated["handicap"], 0.0001)
	assert.Equal(t, "user", updated["user_role"])

	status, raw = api.do(http.MethodGet, "/api/profile", ann.token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.InDelta(t, 12.4, decode[map[string]any](t, raw)["handicap"], 0.0001)

	status, _ = api.do(http.MethodPut, "/api/profile", ann.token, map[string]any{"handicap": 99})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestTournaments_StatusFollowsClock(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin("admin@example.com")

	api.tournament(admin, "Spring Open", "2024-04-01", "2024-04-03")
	liveID := api.tournament(admin, "Summer Cup", "2024-06-10", "2024-06-15")
	api.tournament(admin, "Autumn Classic", "2024-09-01", "2024-09-02")

	status, raw := api.do(http.MethodGet, "/api/tournaments", admin.token, nil)
	require.Equal(t, http.StatusOK, status, string(raw))

	byName := map[string]string{}
	for _, tr := range decode[[]map[string]any](t, raw) {
		byName[tr["name"].(string)] = tr["status"].(string)
	}
	assert.Equal(t, map[string]string{
		"Spring Open":    "Closed",
		"Summer Cup":     "Live",
		"Autumn Classic": "Pending",
	}, byName)

	status, raw = api.do(http.MethodGet, "/api/tournaments/"+liveID, admin.token, nil)
	require.Equal(t, http.StatusOK, status)
	one := decode[map[string]any](t, raw)
	assert.Equal(t, "2024-06-10", one["start_date"])
	assert.Equal(t, "2024-06-15", one["end_date"])
	assert.EqualValues(t, 0, one["participant_count"])
}

func TestTournaments_Validation(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin("admin@example.com")

	status, raw := api.do(http.MethodPost, "/api/tournaments", admin.token, map[string]any{
		"name": "Backwards", "start_date": "2024-06-10", "end_date": "2024-06-01",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "end_date must be on or after start_date", errorText(t, raw))

	status, raw = api.do(http.MethodPost, "/api/tournaments", admin.token, map[string]any{
		"name": "No end", "start_date": "2024-06-10",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Missing required field: end_date", errorText(t, raw))
}

func TestTournamentParticipants(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin("admin@example.com")
	ann := api.signUp("ann@example.com", "Ann")
	tournamentID := api.tournament(admin, "Summer Cup", "2024-06-10", "2024-06-20")

	body := map[string]any{"tournament_id": tournamentID, "user_id": ann.userID}
	rowID := api.create(admin, "/api/tournament-participants", body, "id")

	status, raw := api.do(http.MethodPost, "/api/tournament-participants", admin.token, body)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "User is already a participant in this tournament", errorText(t, raw))

	status, raw = api.do(http.MethodGet, "/api/tournament-participants/"+tournamentID, admin.token, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	rows := decode[[]map[string]any](t, raw)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ann", rows[0]["users"].(map[string]any)["name"])

	// Players can't manage participants.
	status, _ = api.do(http.MethodGet, "/api/tournament-participants/"+tournamentID, ann.token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	// A tournament with participants can't be deleted.
	status, _ = api.do(http.MethodDelete, "/api/tournaments/"+tournamentID, admin.token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = api.do(http.MethodDelete, "/api/tournament-participants/"+rowID, admin.token, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = api.do(http.MethodDelete, "/api/tournaments/"+tournamentID, admin.token, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestTournamentCourses(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin("admin@example.com")
	tournamentID := api.tournament(admin, "Summer Cup", "2024-06-10", "2024-06-20")
	northID := api.course(admin, "North Links", 71)
	southID := api.course(admin, "South Links", 72)

	status, raw := api.do(http.MethodPost, "/api/tournament-courses", admin.token, map[string]any{
		"tournament_id": tournamentID, "course_id": northID, "play_date": "2024-06-25",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "play_date must fall within the tournament dates", errorText(t, raw))

	api.create(admin, "/api/tournament-courses", map[string]any{
		"tournament_id": tournamentID, "course_id": southID, "play_date": "2024-06-12",
	}, "id")
	api.create(admin, "/api/tournament-courses", map[string]any{
		"tournament_id": tournamentID, "course_id": northID, "play_date": "2024-06-11",
	}, "id")

	status, raw = api.do(http.MethodGet, "/api/tournament-courses/"+tournamentID, admin.token, nil)
	require.Equal(t, http.StatusOK, status, string(raw))

	rows := decode[[]map[string]any](t, raw)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-06-11", rows[0]["play_date"])
	assert.Equal(t, "North Links", rows[0]["courses"].(map[string]any)["name"])
	assert.Equal(t, "Springfield", rows[0]["courses"].(map[string]any)["location"])
	assert.Equal(t, "South Links", rows[1]["courses"].(map[string]any)["name"])

	// A booked course can't be deleted.
	status, _ = api.do(http.MethodDelete, "/api/courses/"+northID, admin.token, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestTournamentScores_RequireParticipation(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin("admin@example.com")
	ann := api.signUp("ann@example.com", "Ann")
	courseID := api.course(admin, "Pebble Creek", 72)
	tournamentID := api.tournament(admin, "Summer Cup", "2024-06-10", "2024-06-20")

	score := map[string]any{
		"course_id": courseID, "score_value": 80, "date_played": "2024-06-12", "tournament_id": tournamentID,
	}
	status, _ := api.do(http.MethodPost, "/api/scores", ann.token, score)
	assert.Equal(t, http.StatusForbidden, status)

	api.create(admin, "/api/tournament-participants", map[string]any{
		"tournament_id": tournamentID, "user_id": ann.userID,
	}, "id")

	outside := map[string]any{
		"course_id": courseID, "score_value": 80, "date_played": "2024-07-01", "tournament_id": tournamentID,
	}
	status, _ = api.do(http.MethodPost, "/api/scores", ann.token, outside)
	assert.Equal(t, http.StatusBadRequest, status)

	api.create(ann, "/api/scores", score, "score_id")

	status, raw := api.do(http.MethodGet, "/api/tournament-scores/"+tournamentID, ann.token, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	rows := decode[[]map[string]any](t, raw)
	require.Len(t, rows, 1)
	assert.Equal(t, tournamentID, rows[0]["tournament_id"])
}

func TestLeaderboards(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin("admin@example.com")
	ann := api.signUp("ann@example.com", "Ann")
	bob := api.signUp("bob@example.com", "Bob")
	cat := api.signUp("cat@example.com", "Cat")
	courseID := api.course(admin, "Pebble Creek", 72)
	tournamentID := api.tournament(admin, "Summer Cup", "2024-06-10", "2024-06-20")

	for _, p := range []player{ann, bob, cat} {
		api.create(admin, "/api/tournament-participants", map[string]any{
			"tournament_id": tournamentID, "user_id": p.userID,
		}, "id")
	}
	api.create(ann, "/api/scores", map[string]any{
		"course_id": courseID, "score_value": 70, "date_played": "2024-06-12", "tournament_id": tournamentID,
	}, "score_id")
	api.create(bob, "/api/scores", map[string]any{
		"course_id": courseID, "score_value": 75, "date_played": "2024-06-12", "tournament_id": tournamentID,
	}, "score_id")
	// A casual round counts overall but not in the tournament.
	api.create(bob, "/api/scores", map[string]any{
		"course_id": courseID, "score_value": 65, "date_played": "2024-05-01",
	}, "score_id")

	status, raw := api.do(http.MethodGet, "/api/leaderboards?tournament_id="+tournamentID, ann.token, nil)
	require.Equal(t, http.StatusOK, status, string(raw))

	board := decode[map[string]any](t, raw)
	assert.Equal(t, "Live", board["tournament"].(map[string]any)["status"])
	entries := board["entries"].([]any)
	require.Len(t, entries, 3)

	first, second, third := entries[0].(map[string]any), entries[1].(map[string]any), entries[2].(map[string]any)
	assert.Equal(t, "Ann", first["name"])
	assert.EqualValues(t, 1, first["position"])
	assert.EqualValues(t, -2, first["to_par"])
	assert.Equal(t, "Bob", second["name"])
	assert.EqualValues(t, 2, second["position"])
	assert.Equal(t, "Cat", third["name"])
	assert.NotContains(t, third, "position")

	status, raw = api.do(http.MethodGet, "/api/leaderboards", ann.token, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	overall := decode[map[string]any](t, raw)["entries"].([]any)
	require.Len(t, overall, 2)
	top := overall[0].(map[string]any)
	assert.Equal(t, "Bob", top["name"])
	assert.EqualValues(t, 70, top["average_score"])
	assert.EqualValues(t, 65, top["best_score"])
}

func TestLiveFeed_RequiresUpgrade(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin("admin@example.com")
	tournamentID := api.tournament(admin, "Summer Cup", "2024-06-10", "2024-06-20")

	status, _ := api.do(http.MethodGet, "/api/ws/tournaments/"+tournamentID, admin.token, nil)
	assert.Equal(t, http.StatusUpgradeRequired, status)
}

func TestLiveFeed_TournamentScoresAreBroadcast(t *testing.T) {
	api := newTestAPI(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go api.hub.Run(ctx)

	admin := api.admin("admin@example.com")
	courseID := api.course(admin, "Pebble Creek", 72)
	tournamentID := api.tournament(admin, "Summer Cup", "2024-06-10", "2024-06-20")

	client := live.NewClient(tournamentID)
	api.hub.Register(client)

	// Casual rounds aren't broadcast.
	api.create(admin, "/api/scores", map[string]any{
		"course_id": courseID, "score_value": 81, "date_played": "2024-06-01",
	}, "score_id")
	scoreID := api.create(admin, "/api/scores", map[string]any{
		"course_id": courseID, "score_value": 79, "date_played": "2024-06-12", "tournament_id": tournamentID,
	}, "score_id")

	select {
	case data := <-client.Send:
		event := decode[map[string]any](t, data)
		assert.Equal(t, "score_created", event["type"])
		assert.Equal(t, scoreID, event["score"].(map[string]any)["score_id"])
	case <-time.After(2 * time.Second):
		t.Fatal("no live update received")
	}
}

func TestLiveFeed_UpperCaseTournamentIDReceivesUpdates(t *testing.T) {
	api := newTestAPI(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go api.hub.Run(ctx)

	admin := api.admin("admin@example.com")
	courseID := api.course(admin, "Pebble Creek", 72)
	tournamentID := api.tournament(admin, "Summer Cup", "2024-06-10", "2024-06-20")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = api.app.Listener(ln) }()
	t.Cleanup(func() { _ = api.app.Shutdown() })

	url := fmt.Sprintf("ws://%s/api/ws/tournaments/%s?token=%s", ln.Addr(), strings.ToUpper(tournamentID), admin.token)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return api.hub.ClientCount(tournamentID) == 1 },
		2*time.Second, 10*time.Millisecond)

	scoreID := api.create(admin, "/api/scores", map[string]any{
		"course_id": courseID, "score_value": 79, "date_played": "2024-06-12", "tournament_id": tournamentID,
	}, "score_id")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	event := decode[map[string]any](t, data)
	assert.Equal(t, "score_created", event["type"])
	assert.Equal(t, scoreID, event["score"].(map[string]any)["score_id"])
}

func TestScores_UpdateKeepsTournamentDates(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin("admin@example.com")
	courseID := api.course(admin, "Pebble Creek", 72)
	tournamentID := api.tournament(admin, "Summer Cup", "2024-06-10", "2024-06-20")

	scoreID := api.create(admin, "/api/scores", map[string]any{
		"course_id": courseID, "score_value": 79, "date_played": "2024-06-12", "tournament_id": tournamentID,
	}, "score_id")

	status, raw := api.do(http.MethodPut, "/api/scores/"+scoreID, admin.token, map[string]any{"date_played": "2030-01-01"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "date_played must fall within the tournament dates", errorText(t, raw))

	status, raw = api.do(http.MethodPut, "/api/scores/"+scoreID, admin.token, map[string]any{"date_played": "2024-06-20"})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, "2024-06-20", decode[map[string]any](t, raw)["date_played"])

	// Casual rounds can move to any date.
	casualID := api.create(admin, "/api/scores", map[string]any{
		"course_id": courseID, "score_value": 81, "date_played": "2024-06-01",
	}, "score_id")
	status, raw = api.do(http.MethodPut, "/api/scores/"+casualID, admin.token, map[string]any{"date_played": "2024-01-01"})
	assert.Equal(t, http.StatusOK, status, string(raw))
}

func TestTournaments_UpdateValidation(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin("admin@example.com")
	tournamentID := api.tournament(admin, "Summer Cup", "2024-06-10", "2024-06-20")

	status, raw := api.do(http.MethodPut, "/api/tournaments/"+tournamentID, admin.token, map[string]any{"end_date": "2024-06-01"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "end_date must be on or after start_date", errorText(t, raw))

	status, raw = api.do(http.MethodPut, "/api/tournaments/"+tournamentID, admin.token, map[string]any{"end_date": "2024-06-12"})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, "2024-06-12", decode[map[string]any](t, raw)["end_date"])
}

func TestTournaments_UpdateCannotStrandBookingsOrScores(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin("admin@example.com")
	courseID := api.course(admin, "Pebble Creek", 72)

	t.Run("bookings", func(t *testing.T) {
		tournamentID := api.tournament(admin, "Summer Cup", "2024-06-10", "2024-06-20")
		api.create(admin, "/api/tournament-courses", map[string]any{
			"tournament_id": tournamentID, "course_id": courseID, "play_date": "2024-06-18",
		}, "id")

		status, raw := api.do(http.MethodPut, "/api/tournaments/"+tournamentID, admin.token, map[string]any{"end_date": "2024-06-11"})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "Tournament has courses booked outside the new dates", errorText(t, raw))

		// Shrinking around the booking is fine.
		status, raw = api.do(http.MethodPut, "/api/tournaments/"+tournamentID, admin.token, map[string]any{"start_date": "2024-06-18"})
		assert.Equal(t, http.StatusOK, status, string(raw))
	})

	t.Run("scores", func(t *testing.T) {
		tournamentID := api.tournament(admin, "Autumn Cup", "2024-06-10", "2024-06-20")
		api.create(admin, "/api/scores", map[string]any{
			"course_id": courseID, "score_value": 79, "date_played": "2024-06-12", "tournament_id": tournamentID,
		}, "score_id")

		status, raw := api.do(http.MethodPut, "/api/tournaments/"+tournamentID, admin.token, map[string]any{"start_date": "2024-06-13"})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "Tournament has scores recorded outside the new dates", errorText(t, raw))
	})
}

func TestTournamentCourses_Update(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin("admin@example.com")
	tournamentID := api.tournament(admin, "Summer Cup", "2024-06-10", "2024-06-20")
	courseID := api.course(admin, "North Links", 71)

	rowID := api.create(admin, "/api/tournament-courses", map[string]any{
		"tournament_id": tournamentID, "course_id": courseID, "play_date": "2024-06-11",
	}, "id")

	status, raw := api.do(http.MethodPut, "/api/tournament-courses/"+rowID, admin.token, map[string]any{"play_date": "2024-06-25"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "play_date must fall within the tournament dates", errorText(t, raw))

	status, raw = api.do(http.MethodPut, "/api/tournament-courses/"+rowID, admin.token, map[string]any{"play_date": "2024-06-14"})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, "2024-06-14", decode[map[string]any](t, raw)["play_date"])

	status, raw = api.do(http.MethodPut, "/api/tournament-courses/"+uuid.NewString(), admin.token, map[string]any{"play_date": "2024-06-14"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Tournament course not found", errorText(t, raw))
}

func TestTournaments_DeleteBlockedByCoursesOrScores(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin("admin@example.com")
	courseID := api.course(admin, "Pebble Creek", 72)

	t.Run("booked course", func(t *testing.T) {
		tournamentID := api.tournament(admin, "Summer Cup", "2024-06-10", "2024-06-20")
		rowID := api.create(admin, "/api/tournament-courses", map[string]any{
			"tournament_id": tournamentID, "course_id": courseID, "play_date": "2024-06-12",
		}, "id")

		status, _ := api.do(http.MethodDelete, "/api/tournaments/"+tournamentID, admin.token, nil)
		assert.Equal(t, http.StatusForbidden, status)

		status, _ = api.do(http.MethodDelete, "/api/tournament-courses/"+rowID, admin.token, nil)
		require.Equal(t, http.StatusOK, status)
		status, _ = api.do(http.MethodDelete, "/api/tournaments/"+tournamentID, admin.token, nil)
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("recorded score", func(t *testing.T) {
		tournamentID := api.tournament(admin, "Autumn Cup", "2024-06-10", "2024-06-20")
		// Admins can record tournament scores without being participants.
		scoreID := api.create(admin, "/api/scores", map[string]any{
			"course_id": courseID, "score_value": 79, "date_played": "2024-06-12", "tournament_id": tournamentID,
		}, "score_id")

		status, _ := api.do(http.MethodDelete, "/api/tournaments/"+tournamentID, admin.token, nil)
		assert.Equal(t, http.StatusForbidden, status)

		status, _ = api.do(http.MethodDelete, "/api/scores/"+scoreID, admin.token, nil)
		require.Equal(t, http.StatusOK, status)
		status, _ = api.do(http.MethodDelete, "/api/tournaments/"+tournamentID, admin.token, nil)
		assert.Equal(t, http.StatusOK, status)
	})
}

func TestCourses_PartialUpdate(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin("admin@example.com")
	courseID := api.course(admin, "Pebble Creek", 72)

	status, raw := api.do(http.MethodPut, "/api/courses/"+courseID, admin.token, map[string]any{"name": "Pebble Beach"})
	require.Equal(t, http.StatusOK, status, string(raw))
	course := decode[map[string]any](t, raw)
	assert.Equal(t, "Pebble Beach", course["name"])
	assert.EqualValues(t, 72, course["par"])
	assert.Equal(t, "Springfield", course["location"])

	status, raw = api.do(http.MethodPut, "/api/courses/"+uuid.NewString(), admin.token, map[string]any{"name": "Nowhere"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Course not found", errorText(t, raw))
}

func TestUsers_GetUnknownIsNotFound(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin("admin@example.com")

	status, raw := api.do(http.MethodGet, "/api/users/"+uuid.NewString(), admin.token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "User not found", errorText(t, raw))
}

func TestProfile_EmailChangeMovesSignIn(t *testing.T) {
	api := newTestAPI(t)
	ann := api.signUp("ann@example.com", "Ann")
	api.signUp("bob@example.com", "Bob")

	status, raw := api.do(http.MethodPut, "/api/profile", ann.token, map[string]any{"email": "Annie@Example.com"})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, "annie@example.com", decode[map[string]any](t, raw)["email"])

	signIn := func(email string) int {
		status, _ := api.do(http.MethodPost, "/api/auth/signin", "", map[string]any{"email": email, "password": "secret123"})
		return status
	}
	assert.Equal(t, http.StatusOK, signIn("annie@example.com"))
	assert.Equal(t, http.StatusUnauthorized, signIn("ann@example.com"))

	status, raw = api.do(http.MethodPut, "/api/profile", ann.token, map[string]any{"email": "bob@example.com", "name": "Bobbed"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "User already registered", errorText(t, raw))

	// The failed change rolled back in full.
	status, raw = api.do(http.MethodGet, "/api/profile", ann.token, nil)
	require.Equal(t, http.StatusOK, status)
	profile := decode[map[string]any](t, raw)
	assert.Equal(t, "Ann", profile["name"])
	assert.Equal(t, "annie@example.com", profile["email"])
}

func TestUsers_AdminEmailChangeMovesSignIn(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin("admin@example.com")
	ann := api.signUp("ann@example.com", "Ann")

	status, raw := api.do(http.MethodPut, "/api/users/"+ann.userID, admin.token, map[string]any{"email": "admin@example.com"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "User already registered", errorText(t, raw))

	status, raw = api.do(http.MethodPut, "/api/users/"+ann.userID, admin.token, map[string]any{"email": "ann.smith@example.com"})
	require.Equal(t, http.StatusOK, status, string(raw))

	status, _ = api.do(http.MethodPost, "/api/auth/signin", "", map[string]any{"email": "ann.smith@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusOK, status)
}
