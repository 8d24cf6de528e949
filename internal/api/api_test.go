package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sigma/internal/account"
	"sigma/internal/api"
	"sigma/internal/audit"
	"sigma/internal/auth"
	"sigma/internal/mailer"
	"sigma/internal/model"
	"sigma/internal/repository/repositorytest"
	"sigma/internal/session"
	"sigma/internal/token"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret = "0123456789abcdef0123456789abcdef"
	password   = "Str0ng password"
)

type fixture struct {
	app   *fiber.App
	repo  *repositorytest.Fake
	codec *token.Codec

	lodge  model.Lodge
	admin  model.SuperAdmin
	wm     model.Webmaster
	member model.LodgeMember
	role   model.Role
	assoc  model.Association
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	f := &fixture{
		repo:  repositorytest.New(),
		codec: token.NewCodec(testSecret, time.Hour),
	}

	resolver := auth.NewResolver(f.repo, f.codec, logger)
	auditor := audit.NewAuditor(logger, f.repo)
	authn := account.NewAuthenticator(logger, f.repo, f.codec, &auditor, mailer.NewLogMailer(logger), time.Hour)
	accounts := account.NewManager(logger, f.repo, &auditor)
	sessions := session.NewManager(f.repo, logger)

	handler := api.NewHandler(logger, f.repo, resolver, &authn, &accounts, sessions, "test")
	f.app = fiber.New()
	api.RegisterRoutes(f.app, &handler, resolver, f.repo)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	f.lodge = model.Lodge{ID: uuid.New(), Name: "Acacia Lodge", Code: "ACA-001", Active: true}
	f.repo.Lodges[f.lodge.ID] = f.lodge

	f.admin = model.SuperAdmin{ID: uuid.New(), Username: "root", Email: "root@example.com", PasswordHash: string(hash), Active: true}
	f.repo.SuperAdmins[f.admin.ID] = f.admin

	f.wm = model.Webmaster{ID: uuid.New(), LodgeID: f.lodge.ID, Username: "wm", Email: "wm@example.com", PasswordHash: string(hash), Active: true}
	f.repo.Webmasters[f.wm.ID] = f.wm

	f.member = model.LodgeMember{ID: uuid.New(), LodgeID: f.lodge.ID, Name: "John Doe", Email: "john@example.com", PasswordHash: string(hash), Active: true}
	f.repo.LodgeMembers[f.member.ID] = f.member

	f.role = model.Role{ID: uuid.New(), Name: "Secretary"}
	f.repo.Roles[f.role.ID] = f.role
	f.repo.RolePerms[f.role.ID] = []model.Permission{
		{ID: uuid.New(), Action: "read:lodge_members"},
		{ID: uuid.New(), Action: "read:sessions"},
		{ID: uuid.New(), Action: "manage:sessions"},
	}

	f.assoc = model.Association{ID: uuid.New(), LodgeMemberID: f.member.ID, LodgeID: f.lodge.ID, RoleID: f.role.ID}
	f.repo.Associations[f.assoc.ID] = f.assoc

	return f
}

func (f *fixture) request(t *testing.T, method, path, bearer string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func (f *fixture) memberToken(t *testing.T) string {
	t.Helper()
	signed, err := f.codec.Issue(map[string]any{
		"profile":         "lodge_member",
		"lodge_member_id": f.member.ID.String(),
		"association_id":  f.assoc.ID.String(),
	}, 0)
	require.NoError(t, err)
	return signed
}

func (f *fixture) adminToken(t *testing.T) string {
	t.Helper()
	signed, err := f.codec.Issue(map[string]any{
		"profile":       "super_admin",
		"superadmin_id": f.admin.ID.String(),
	}, 0)
	require.NoError(t, err)
	return signed
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginAndMe(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, http.MethodPost, "/api/v1/auth/login", "", fiber.Map{
		"email":    f.member.Email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var login struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	decodeBody(t, resp, &login)
	assert.Equal(t, "bearer", login.TokenType)
	require.NotEmpty(t, login.AccessToken)

	resp = f.request(t, http.MethodGet, "/api/v1/auth/me", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var me struct {
		Profile string `json:"profile"`
		Role    string `json:"role"`
	}
	decodeBody(t, resp, &me)
	assert.Equal(t, "lodge_member", me.Profile)
	assert.Equal(t, "Secretary", me.Role)
}

func TestLogin_BadCredentials(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, http.MethodPost, "/api/v1/auth/login", "", fiber.Map{
		"email":    f.member.Email,
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestListMembers_MemberScope(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, http.MethodGet, "/api/v1/members", f.memberToken(t), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Members []model.LodgeMember `json:"members"`
	}
	decodeBody(t, resp, &body)
	require.Len(t, body.Members, 1)
	assert.Equal(t, f.member.ID, body.Members[0].ID)
}

func TestListMembers_MissingPermission(t *testing.T) {
	f := newFixture(t)
	f.repo.RolePerms[f.role.ID] = []model.Permission{{ID: uuid.New(), Action: "read:sessions"}}

	resp := f.request(t, http.MethodGet, "/api/v1/members", f.memberToken(t), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestListMembers_SuperAdminNeedsLodgeCode(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, http.MethodGet, "/api/v1/members", f.adminToken(t), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/members", nil)
	req.Header.Set("Authorization", "Bearer "+f.adminToken(t))
	req.Header.Set("x-lodge-code", f.lodge.Code)
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateLodge_SuperAdminOnly(t *testing.T) {
	f := newFixture(t)

	body := fiber.Map{
		"name":               "Harmony Lodge",
		"code":               "HAR-001",
		"webmaster_username": "wm_harmony",
		"webmaster_email":    "wm@harmony.example.com",
		"webmaster_password": "Str0ngPass1",
	}

	resp := f.request(t, http.MethodPost, "/api/v1/lodges", f.memberToken(t), body)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.request(t, http.MethodPost, "/api/v1/lodges", f.adminToken(t), body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created account.CreateLodgeResult
	decodeBody(t, resp, &created)
	assert.Equal(t, "HAR-001", created.Lodge.Code)
	assert.Equal(t, created.Lodge.ID, created.Webmaster.LodgeID)
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	f := newFixture(t)
	bearer := f.memberToken(t)

	resp := f.request(t, http.MethodPost, "/api/v1/sessions", bearer, fiber.Map{
		"lodge_id":  f.lodge.ID,
		"starts_at": time.Now().Add(time.Hour).Format(time.RFC3339),
		"type":      "ordinary",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created model.Session
	decodeBody(t, resp, &created)
	assert.Equal(t, model.SessionScheduled, created.Status)

	resp = f.request(t, http.MethodPatch, "/api/v1/sessions/"+created.ID.String()+"/status", bearer, fiber.Map{
		"status": "in_progress",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Reverting to scheduled is illegal.
	resp = f.request(t, http.MethodPatch, "/api/v1/sessions/"+created.ID.String()+"/status", bearer, fiber.Map{
		"status": "scheduled",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.request(t, http.MethodPatch, "/api/v1/sessions/"+created.ID.String()+"/status", bearer, fiber.Map{
		"status": "held",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCheckinOverHTTP(t *testing.T) {
	f := newFixture(t)
	bearer := f.memberToken(t)

	resp := f.request(t, http.MethodPost, "/api/v1/sessions", bearer, fiber.Map{
		"lodge_id":  f.lodge.ID,
		"starts_at": time.Now().Add(time.Hour).Format(time.RFC3339),
		"type":      "ordinary",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created model.Session
	decodeBody(t, resp, &created)

	resp = f.request(t, http.MethodPost, "/api/v1/sessions/"+created.ID.String()+"/checkin", bearer, fiber.Map{
		"lodge_id": f.lodge.ID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var attendance model.Attendance
	decodeBody(t, resp, &attendance)
	assert.Equal(t, model.AttendancePresent, attendance.Status)
	assert.Equal(t, f.member.ID, attendance.Participant.ID)
}

func TestRoutesRejectMissingToken(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/api/v1/members", "/api/v1/sessions", "/api/v1/auth/me"} {
		resp := f.request(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}
