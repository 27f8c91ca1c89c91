package server_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/42-Bangkok/gateway/internal/database"
	"github.com/42-Bangkok/gateway/internal/model"
	"github.com/42-Bangkok/gateway/internal/server"
	"github.com/42-Bangkok/gateway/internal/server/session"
	"github.com/appleboy/gofight/v2"
	"github.com/labstack/echo/v4"
	argon2 "github.com/mdouchement/simple-argon2"
	"github.com/stretchr/testify/assert"
)

const serviceToken = "service-token-42"

var (
	serviceHashOnce sync.Once
	serviceHash     string
)

// The rewrite rules only apply on RequestURI which is only set on a real server request.
func TestRequestHome(t *testing.T) {
	engine, _ := setup(t)
	ts := httptest.NewServer(engine)
	defer ts.Close()

	send := func(method, path, body string) (int, string) {
		req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
		assert.NoError(t, err)
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

		res, err := http.DefaultClient.Do(req)
		if !assert.NoError(t, err) {
			return 0, ""
		}
		defer res.Body.Close()

		payload, err := io.ReadAll(res.Body)
		assert.NoError(t, err)
		return res.StatusCode, string(payload)
	}

	code, body := send(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"version":"test"}`, body)

	code, body = send(http.MethodGet, "/version/", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"version":"test"}`, body)

	// Routes with a trailing slash must not be rewritten.
	code, body = send(http.MethodPost, "/api/account/auths/refresh/", `{"refresh_token":"trololo"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.JSONEq(t, `{"error":{"tag":"invalid-refresh-token","message":"Invalid refresh token."}}`, body)

	code, _ = send(http.MethodPost, "/api/account/auths/refresh", `{"refresh_token":"trololo"}`)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body = send(http.MethodGet, "/api/account/users/me/", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.JSONEq(t, `{"error":{"tag":"invalid-auth","message":"Invalid login credentials."}}`, body)

	code, _ = send(http.MethodPost, "/api/account/auths/login/", `{"uid":"george","provider":"42"}`)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = send(http.MethodGet, "/api/tasks/webhooks/", "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRequestVersion(t *testing.T) {
	engine, _ := setup(t)

	gofight.New().GET("/version").Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
		assert.JSONEq(t, `{"version":"test"}`, r.Body.String())
	})

	gofight.New().GET("/version/").Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
		assert.JSONEq(t, `{"version":"test"}`, r.Body.String())
	})
}

func TestRequestServiceAuth(t *testing.T) {
	engine, _ := setup(t)

	for _, path := range []string{"/api/data/intra/profiles/", "/api/tasks/webhooks/"} {
		gofight.New().GET(path).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusUnauthorized, r.Code)
			assert.JSONEq(t, `{"error":{"tag":"invalid-auth","message":"Invalid login credentials."}}`, r.Body.String())
		})

		gofight.New().GET(path).SetHeader(gofight.H{"Authorization": "Bearer not-the-token"}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusUnauthorized, r.Code)
		})

		gofight.New().GET(path).SetHeader(serviceHeader()).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusOK, r.Code)
			assert.JSONEq(t, `[]`, r.Body.String())
		})
	}
}

func TestRequestNotFound(t *testing.T) {
	engine, _ := setup(t)

	gofight.New().GET("/nowhere").Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusNotFound, r.Code)
		assert.JSONEq(t, `{"error":{"message":"Not Found"}}`, r.Body.String())
	})
}

func setup(t *testing.T) (engine *echo.Echo, ctrl server.IOC) {
	db, err := database.StormOpen(filepath.Join(t.TempDir(), "gateway.db"), "")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	ctrl = server.IOC{
		Version:                    "test",
		Database:                   db,
		Providers:                  []string{model.ProviderFortyTwo},
		ServiceTokenHashes:         []string{hashedServiceToken(t)},
		AccessTokenExpirationTime:  model.AccessTokenTTL,
		RefreshTokenExpirationTime: model.RefreshTokenTTL,
		RefreshRateLimit:           1000,
	}
	engine = server.EchoEngine(ctrl)

	return engine, ctrl
}

func hashedServiceToken(t *testing.T) string {
	serviceHashOnce.Do(func() {
		var err error
		serviceHash, err = argon2.GenerateFromPasswordString(serviceToken, argon2.Default)
		if err != nil {
			t.Fatal(err)
		}
	})
	return serviceHash
}

func serviceHeader() gofight.H {
	return gofight.H{
		"Authorization": "Bearer " + serviceToken,
	}
}

func bearer(token string) gofight.H {
	return gofight.H{
		"Authorization": "Bearer " + token,
	}
}

func manager(ctrl server.IOC) session.Manager {
	return session.NewManager(
		ctrl.Database,
		ctrl.AccessTokenExpirationTime,
		ctrl.RefreshTokenExpirationTime,
		ctrl.TokenLength,
	)
}

func createUser(t *testing.T, ctrl server.IOC, uid string) *model.User {
	user := model.NewUser(model.ProviderFortyTwo, uid)
	user.Email = uid + "@student.42bangkok.com"
	if err := ctrl.Database.Save(user); err != nil {
		t.Fatal(err)
	}
	if err := ctrl.Database.Save(model.NewProfile(user.ID)); err != nil {
		t.Fatal(err)
	}
	return user
}

func createUserWithSession(t *testing.T, ctrl server.IOC, uid string) (*model.User, *model.Session) {
	user := createUser(t, ctrl, uid)

	session, err := manager(ctrl).Create(user, "Go-http-client/1.1")
	if err != nil {
		t.Fatal(err)
	}
	return user, session
}

// age moves the token timestamps of the session to the past.
func age(t *testing.T, ctrl server.IOC, s *model.Session, d time.Duration) {
	s.AccessTokenCreatedAt = s.AccessTokenCreatedAt.Add(-d)
	s.RefreshTokenCreatedAt = s.RefreshTokenCreatedAt.Add(-d)
	if err := ctrl.Database.Save(s); err != nil {
		t.Fatal(err)
	}
}
