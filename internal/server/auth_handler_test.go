package server_test

import (
	"net/http"
	"testing"

	"github.com/42-Bangkok/gateway/internal/model"
	"github.com/42-Bangkok/gateway/internal/server"
	"github.com/appleboy/gofight/v2"
	"github.com/stretchr/testify/assert"
	"github.com/valyala/fastjson"
)

func TestRequestLogin(t *testing.T) {
	engine, ctrl := setup(t)

	params := gofight.D{
		"uid":      "george",
		"provider": "42",
		"email":    "george@student.42bangkok.com",
	}

	gofight.New().POST("/api/account/auths/login/").SetJSON(params).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusUnauthorized, r.Code)
		assert.JSONEq(t, `{"error":{"tag":"invalid-auth","message":"Invalid login credentials."}}`, r.Body.String())
	})

	gofight.New().POST("/api/account/auths/login/").SetHeader(serviceHeader()).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusBadRequest, r.Code)
		assert.JSONEq(t, `{"error":{"tag":"bad-request","message":"Could not get credentials."}}`, r.Body.String())
	})

	gofight.New().POST("/api/account/auths/login/").SetHeader(serviceHeader()).SetJSON(gofight.D{"provider": "42"}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusUnprocessableEntity, r.Code)
		assert.JSONEq(t, `{"error":{"tag":"validation-error","message":"uid is required"}}`, r.Body.String())
	})

	gofight.New().POST("/api/account/auths/login/").SetHeader(serviceHeader()).SetJSON(gofight.D{"uid": "george", "provider": "github"}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusUnprocessableEntity, r.Code)
		assert.JSONEq(t, `{"error":{"tag":"validation-error","message":"provider must be one of: 42"}}`, r.Body.String())
	})

	var accessToken string
	gofight.New().POST("/api/account/auths/login/").SetHeader(serviceHeader()).SetJSON(params).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)

		v, err := fastjson.ParseBytes(r.Body.Bytes())
		assert.NoError(t, err)
		accessToken = string(v.GetStringBytes("access_token"))
		assert.Len(t, accessToken, 43)
		assert.Len(t, string(v.GetStringBytes("refresh_token")), 43)
		assert.NotEqual(t, accessToken, string(v.GetStringBytes("refresh_token")))
		assert.Equal(t, 86400, v.GetInt("expires_in"))
		assert.Equal(t, 525600, v.GetInt("refresh_token_expires_in"))
	})

	user, err := ctrl.Database.FindUserByIdentity("42", "george")
	assert.NoError(t, err)
	assert.Equal(t, "george", user.Username)
	assert.Equal(t, "george@student.42bangkok.com", user.Email)

	_, err = ctrl.Database.FindProfileByUserID(user.ID)
	assert.NoError(t, err)

	gofight.New().GET("/api/account/users/me/").SetHeader(bearer(accessToken)).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
	})

	// Second login reuses the user and opens another session.
	params["email"] = "george@42bangkok.com"
	gofight.New().POST("/api/account/auths/login/").SetHeader(serviceHeader()).SetJSON(params).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
	})

	user, err = ctrl.Database.FindUserByIdentity("42", "george")
	assert.NoError(t, err)
	assert.Equal(t, "george@42bangkok.com", user.Email)

	sessions, err := ctrl.Database.FindSessionsByUserID(user.ID)
	assert.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestRequestLogin_UsernameTaken(t *testing.T) {
	engine, ctrl := setup(t)

	taken := model.NewUser("github", "someone")
	taken.Username = "george"
	assert.NoError(t, ctrl.Database.Save(taken))

	gofight.New().POST("/api/account/auths/login/").SetHeader(serviceHeader()).SetJSON(gofight.D{"uid": "george", "provider": "42"}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
	})

	user, err := ctrl.Database.FindUserByIdentity("42", "george")
	assert.NoError(t, err)
	assert.Regexp(t, `^george-[0-9a-f]{8}$`, user.Username)
}

func TestRequestLogin_ShortUID(t *testing.T) {
	engine, _ := setup(t)

	var accessToken string
	gofight.New().POST("/api/account/auths/login/").SetHeader(serviceHeader()).SetJSON(gofight.D{"uid": "ab", "provider": "42"}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
		accessToken = fastjson.GetString(r.Body.Bytes(), "access_token")
	})

	gofight.New().GET("/api/account/users/me/").SetHeader(bearer(accessToken)).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
		assert.Equal(t, "ab-42", fastjson.GetString(r.Body.Bytes(), "username"))
	})

	// The provisioned username satisfies the profile update rules.
	gofight.New().PATCH("/api/account/users/me/").SetHeader(bearer(accessToken)).SetJSON(gofight.D{"username": "ab-42"}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
	})
}

func TestRequestLogout(t *testing.T) {
	engine, ctrl := setup(t)

	_, session := createUserWithSession(t, ctrl, "george")

	gofight.New().POST("/api/account/auths/logout/").Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusUnauthorized, r.Code)
		assert.JSONEq(t, `{"error":{"tag":"invalid-auth","message":"Invalid login credentials."}}`, r.Body.String())
	})

	gofight.New().POST("/api/account/auths/logout/").SetHeader(bearer(session.AccessToken)).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusNoContent, r.Code)
	})

	_, err := ctrl.Database.FindSession(session.ID)
	assert.True(t, ctrl.Database.IsNotFound(err))

	gofight.New().POST("/api/account/auths/logout/").SetHeader(bearer(session.AccessToken)).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusUnauthorized, r.Code)
	})

	// The refresh token died with the session.
	gofight.New().POST("/api/account/auths/refresh/").SetJSON(gofight.D{"refresh_token": session.RefreshToken}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusUnauthorized, r.Code)
		assert.JSONEq(t, `{"error":{"tag":"invalid-refresh-token","message":"Invalid refresh token."}}`, r.Body.String())
	})
}

func TestRequestRefresh(t *testing.T) {
	engine, ctrl := setup(t)

	_, session := createUserWithSession(t, ctrl, "george")

	gofight.New().POST("/api/account/auths/refresh/").SetJSON(gofight.D{}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusUnprocessableEntity, r.Code)
		assert.JSONEq(t, `{"error":{"tag":"validation-error","message":"refresh_token is required"}}`, r.Body.String())
	})

	gofight.New().POST("/api/account/auths/refresh/").SetJSON(gofight.D{"refresh_token": "trololo"}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusUnauthorized, r.Code)
		assert.JSONEq(t, `{"error":{"tag":"invalid-refresh-token","message":"Invalid refresh token."}}`, r.Body.String())
	})

	// An access token is not a refresh token.
	gofight.New().POST("/api/account/auths/refresh/").SetJSON(gofight.D{"refresh_token": session.AccessToken}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusUnauthorized, r.Code)
	})

	var accessToken string
	gofight.New().POST("/api/account/auths/refresh/").SetJSON(gofight.D{"refresh_token": session.RefreshToken}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)

		v, err := fastjson.ParseBytes(r.Body.Bytes())
		assert.NoError(t, err)
		accessToken = string(v.GetStringBytes("access_token"))
		assert.NotEqual(t, session.AccessToken, accessToken)
		assert.Equal(t, session.RefreshToken, string(v.GetStringBytes("refresh_token")))
		assert.Equal(t, 86400, v.GetInt("expires_in"))
		assert.False(t, v.Exists("refresh_token_expires_in"))
	})

	gofight.New().GET("/api/account/users/me/").SetHeader(bearer(session.AccessToken)).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusUnauthorized, r.Code)
	})

	gofight.New().GET("/api/account/users/me/").SetHeader(bearer(accessToken)).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
	})

	// Refresh again with the same refresh token.
	gofight.New().POST("/api/account/auths/refresh/").SetJSON(gofight.D{"refresh_token": session.RefreshToken}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
	})
}

func TestRequestRefresh_AccessTokenExpired(t *testing.T) {
	engine, ctrl := setup(t)

	_, session := createUserWithSession(t, ctrl, "george")
	age(t, ctrl, session, model.AccessTokenTTL+1e9)

	gofight.New().GET("/api/account/users/me/").SetHeader(bearer(session.AccessToken)).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusUnauthorized, r.Code)
		assert.JSONEq(t, `{"error":{"tag":"invalid-auth","message":"Invalid login credentials."}}`, r.Body.String())
	})

	var accessToken string
	gofight.New().POST("/api/account/auths/refresh/").SetJSON(gofight.D{"refresh_token": session.RefreshToken}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)

		v, err := fastjson.ParseBytes(r.Body.Bytes())
		assert.NoError(t, err)
		accessToken = string(v.GetStringBytes("access_token"))
	})

	gofight.New().GET("/api/account/users/me/").SetHeader(bearer(accessToken)).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
	})
}

func TestRequestRefresh_FullyExpired(t *testing.T) {
	engine, ctrl := setup(t)

	_, session := createUserWithSession(t, ctrl, "george")
	age(t, ctrl, session, model.RefreshTokenTTL+1e9)

	gofight.New().POST("/api/account/auths/refresh/").SetJSON(gofight.D{"refresh_token": session.RefreshToken}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusUnauthorized, r.Code)
		assert.JSONEq(t, `{"error":{"tag":"invalid-refresh-token","message":"Invalid refresh token."}}`, r.Body.String())
	})

	// The session is kept until pruned.
	_, err := ctrl.Database.FindSession(session.ID)
	assert.NoError(t, err)
}

func TestRequestRefresh_RateLimited(t *testing.T) {
	engine, ctrl := setup(t)
	ctrl.RefreshRateLimit = 1
	engine = server.EchoEngine(ctrl)

	var codes []int
	for i := 0; i < 3; i++ {
		gofight.New().POST("/api/account/auths/refresh/").SetJSON(gofight.D{"refresh_token": "trololo"}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			codes = append(codes, r.Code)
		})
	}

	assert.Equal(t, http.StatusUnauthorized, codes[0])
	assert.Contains(t, codes, http.StatusTooManyRequests)
}
