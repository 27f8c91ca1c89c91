package server_test

import (
	"net/http"
	"testing"

	"github.com/appleboy/gofight/v2"
	"github.com/stretchr/testify/assert"
	"github.com/valyala/fastjson"
)

func TestRequestMe(t *testing.T) {
	engine, ctrl := setup(t)

	user, session := createUserWithSession(t, ctrl, "george")

	gofight.New().GET("/api/account/users/me/").Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusUnauthorized, r.Code)
		assert.JSONEq(t, `{"error":{"tag":"invalid-auth","message":"Invalid login credentials."}}`, r.Body.String())
	})

	gofight.New().GET("/api/account/users/me/").SetHeader(gofight.H{"Authorization": "Token " + session.AccessToken}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusUnauthorized, r.Code)
	})

	gofight.New().GET("/api/account/users/me/").SetHeader(bearer(session.AccessToken)).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)

		v, err := fastjson.ParseBytes(r.Body.Bytes())
		assert.NoError(t, err)
		assert.Equal(t, user.ID, string(v.GetStringBytes("id")))
		assert.Equal(t, "george", string(v.GetStringBytes("username")))
		assert.Equal(t, "george@student.42bangkok.com", string(v.GetStringBytes("email")))
		assert.Equal(t, "u", string(v.GetStringBytes("gender")))
		assert.Equal(t, fastjson.TypeNull, v.Get("dob").Type())
		assert.Equal(t, user.ID, string(v.GetStringBytes("user", "id")))
		assert.Equal(t, "george", string(v.GetStringBytes("user", "username")))
	})
}

func TestRequestUpdateMe(t *testing.T) {
	engine, ctrl := setup(t)

	createUser(t, ctrl, "jane")
	_, session := createUserWithSession(t, ctrl, "george")
	header := bearer(session.AccessToken)

	gofight.New().PATCH("/api/account/users/me/").SetHeader(header).SetJSON(gofight.D{"gender": "x"}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusUnprocessableEntity, r.Code)
		assert.JSONEq(t, `{"error":{"tag":"validation-error","message":"gender must be one of: m f n o u"}}`, r.Body.String())
	})

	gofight.New().PATCH("/api/account/users/me/").SetHeader(header).SetJSON(gofight.D{"username": "ab"}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusUnprocessableEntity, r.Code)
		assert.JSONEq(t, `{"error":{"tag":"validation-error","message":"username must be at least 3 characters"}}`, r.Body.String())
	})

	gofight.New().PATCH("/api/account/users/me/").SetHeader(header).SetJSON(gofight.D{"username": "jane"}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusUnprocessableEntity, r.Code)
		assert.JSONEq(t, `{"error":{"tag":"validation-error","message":"username already exists"}}`, r.Body.String())
	})

	gofight.New().PATCH("/api/account/users/me/").SetHeader(header).SetJSON(gofight.D{"dob": "not a date"}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusUnprocessableEntity, r.Code)
		assert.JSONEq(t, `{"error":{"tag":"validation-error","message":"dob must be a valid date"}}`, r.Body.String())
	})

	gofight.New().PATCH("/api/account/users/me/").SetHeader(header).SetJSON(gofight.D{"time_of_birth": "25:61"}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusUnprocessableEntity, r.Code)
		assert.JSONEq(t, `{"error":{"tag":"validation-error","message":"time_of_birth must be formatted as HH:MM[:SS]"}}`, r.Body.String())
	})

	params := gofight.D{
		"username":      "georgeabitbol",
		"first_name":    "George",
		"last_name":     "Abitbol",
		"gender":        "m",
		"dob":           "1993-07-14",
		"time_of_birth": "08:30",
		"job_title":     "The classiest man in the world",
	}
	gofight.New().PATCH("/api/account/users/me/").SetHeader(header).SetJSON(params).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)

		v, err := fastjson.ParseBytes(r.Body.Bytes())
		assert.NoError(t, err)
		assert.Equal(t, "georgeabitbol", string(v.GetStringBytes("username")))
		assert.Equal(t, "George", string(v.GetStringBytes("first_name")))
		assert.Equal(t, "Abitbol", string(v.GetStringBytes("last_name")))
		assert.Equal(t, "m", string(v.GetStringBytes("gender")))
		assert.Equal(t, "1993-07-14", string(v.GetStringBytes("dob")))
		assert.Equal(t, "08:30", string(v.GetStringBytes("time_of_birth")))
		// Untouched
		assert.Equal(t, "george@student.42bangkok.com", string(v.GetStringBytes("email")))
	})

	// Any parseable date is accepted.
	gofight.New().PATCH("/api/account/users/me/").SetHeader(header).SetJSON(gofight.D{"dob": "July 14, 1993"}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)

		v, err := fastjson.ParseBytes(r.Body.Bytes())
		assert.NoError(t, err)
		assert.Equal(t, "1993-07-14", string(v.GetStringBytes("dob")))
		assert.Equal(t, "George", string(v.GetStringBytes("first_name")))
	})

	gofight.New().GET("/api/account/users/me/").SetHeader(header).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)

		v, err := fastjson.ParseBytes(r.Body.Bytes())
		assert.NoError(t, err)
		assert.Equal(t, "georgeabitbol", string(v.GetStringBytes("username")))
		assert.Equal(t, "1993-07-14", string(v.GetStringBytes("dob")))
	})
}

func TestRequestDeleteMe(t *testing.T) {
	engine, ctrl := setup(t)

	user, session := createUserWithSession(t, ctrl, "george")
	other, err := manager(ctrl).Create(user, "curl/8.0")
	assert.NoError(t, err)

	gofight.New().DELETE("/api/account/users/me/").SetHeader(bearer(session.AccessToken)).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
		assert.JSONEq(t, `{"message":"User deleted."}`, r.Body.String())
	})

	_, err = ctrl.Database.FindUser(user.ID)
	assert.True(t, ctrl.Database.IsNotFound(err))
	_, err = ctrl.Database.FindProfileByUserID(user.ID)
	assert.True(t, ctrl.Database.IsNotFound(err))

	for _, token := range []string{session.AccessToken, other.AccessToken} {
		gofight.New().GET("/api/account/users/me/").SetHeader(bearer(token)).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusUnauthorized, r.Code)
		})
	}
}
