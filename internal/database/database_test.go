package database_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/42-Bangkok/gateway/internal/database"
	"github.com/42-Bangkok/gateway/internal/model"
	"github.com/stretchr/testify/assert"
)

var drivers = map[string]func(t *testing.T) database.Client{
	database.DriverStorm: func(t *testing.T) database.Client {
		return openDB(t, database.DriverStorm, "gateway.db")
	},
	database.DriverSQLite: func(t *testing.T) database.Client {
		return openDB(t, database.DriverSQLite, "gateway.sqlite")
	},
}

func openDB(t *testing.T, driver, name string) database.Client {
	filename := filepath.Join(t.TempDir(), name)

	db, err := database.Open(database.Options{Driver: driver, Path: filename})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		db.Close()
		os.RemoveAll(filename)
	})
	return db
}

func createUser(t *testing.T, db database.Client, uid string) *model.User {
	user := model.NewUser(model.ProviderFortyTwo, uid)
	user.Email = uid + "@student.42bangkok.com"
	if err := db.Save(user); err != nil {
		t.Fatal(err)
	}
	return user
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := database.Open(database.Options{Driver: "postgres", Path: "nowhere"})
	assert.EqualError(t, err, "unsupported database driver: postgres")
}

func TestUsers(t *testing.T) {
	for name, open := range drivers {
		t.Run(name, func(t *testing.T) {
			db := open(t)

			user := createUser(t, db, "gabitbol")
			assert.NotEmpty(t, user.ID)
			assert.False(t, user.CreatedAt.IsZero())
			assert.Equal(t, user.CreatedAt, user.UpdatedAt)

			v, err := db.FindUser(user.ID)
			assert.NoError(t, err)
			assert.Equal(t, "gabitbol", v.Username)
			assert.Equal(t, "gabitbol@student.42bangkok.com", v.Email)
			assert.True(t, user.CreatedAt.Equal(v.CreatedAt))

			v, err = db.FindUserByUsername("gabitbol")
			assert.NoError(t, err)
			assert.Equal(t, user.ID, v.ID)

			v, err = db.FindUserByIdentity("42", "gabitbol")
			assert.NoError(t, err)
			assert.Equal(t, user.ID, v.ID)

			_, err = db.FindUser("unknown")
			assert.True(t, db.IsNotFound(err))

			_, err = db.FindUserByIdentity("github", "gabitbol")
			assert.True(t, db.IsNotFound(err))
		})
	}
}

func TestSave_AlreadyExists(t *testing.T) {
	for name, open := range drivers {
		t.Run(name, func(t *testing.T) {
			db := open(t)
			createUser(t, db, "gabitbol")

			user := model.NewUser(model.ProviderFortyTwo, "gabitbol")
			err := db.Save(user)
			assert.Error(t, err)
			assert.True(t, db.IsAlreadyExists(err))
			assert.False(t, db.IsNotFound(err))
			assert.Empty(t, user.ID, "failed save must not leave an ID")
			assert.True(t, user.CreatedAt.IsZero())
		})
	}
}

func TestSave_Update(t *testing.T) {
	for name, open := range drivers {
		t.Run(name, func(t *testing.T) {
			db := open(t)
			user := createUser(t, db, "gabitbol")
			created := user.CreatedAt

			time.Sleep(2 * time.Millisecond)
			user.Email = "george@nowhere.lan"
			assert.NoError(t, db.Save(user))
			assert.True(t, created.Equal(user.CreatedAt))
			assert.True(t, user.UpdatedAt.After(created))

			v, err := db.FindUser(user.ID)
			assert.NoError(t, err)
			assert.Equal(t, "george@nowhere.lan", v.Email)
		})
	}
}

func TestSessions(t *testing.T) {
	for name, open := range drivers {
		t.Run(name, func(t *testing.T) {
			db := open(t)
			user := createUser(t, db, "gabitbol")
			other := createUser(t, db, "rjohnson")

			now := time.Now().UTC()
			var sessions []*model.Session
			for i, u := range []*model.User{user, user, other} {
				session := &model.Session{
					UserID:                u.ID,
					UserAgent:             "gofight",
					AccessToken:           "access-" + string(rune('a'+i)),
					AccessTokenCreatedAt:  now,
					RefreshToken:          "refresh-" + string(rune('a'+i)),
					RefreshTokenCreatedAt: now,
				}
				assert.NoError(t, db.Save(session))
				sessions = append(sessions, session)
				time.Sleep(time.Millisecond)
			}

			v, err := db.FindSessionByAccessToken("access-a")
			assert.NoError(t, err)
			assert.Equal(t, sessions[0].ID, v.ID)
			assert.Equal(t, user.ID, v.UserID)
			assert.True(t, now.Equal(v.AccessTokenCreatedAt))

			v, err = db.FindSessionByRefreshToken("refresh-b")
			assert.NoError(t, err)
			assert.Equal(t, sessions[1].ID, v.ID)

			_, err = db.FindSessionByAccessToken("refresh-b")
			assert.True(t, db.IsNotFound(err))

			v, err = db.FindSessionByUserID(sessions[2].ID, other.ID)
			assert.NoError(t, err)
			assert.Equal(t, sessions[2].ID, v.ID)

			_, err = db.FindSessionByUserID(sessions[2].ID, user.ID)
			assert.True(t, db.IsNotFound(err))

			list, err := db.FindSessionsByUserID(user.ID)
			assert.NoError(t, err)
			assert.Len(t, list, 2)
			assert.Equal(t, sessions[0].ID, list[0].ID)
			assert.Equal(t, sessions[1].ID, list[1].ID)

			list, err = db.FindSessions()
			assert.NoError(t, err)
			assert.Len(t, list, 3)

			list, err = db.FindSessionsByUserID("nobody")
			assert.NoError(t, err)
			assert.Empty(t, list)

			duplicate := &model.Session{UserID: user.ID, AccessToken: "access-a", RefreshToken: "refresh-z"}
			err = db.Save(duplicate)
			assert.True(t, db.IsAlreadyExists(err))

			assert.NoError(t, db.Delete(sessions[0]))
			_, err = db.FindSession(sessions[0].ID)
			assert.True(t, db.IsNotFound(err))

			err = db.Delete(sessions[0])
			assert.True(t, db.IsNotFound(err))
		})
	}
}

func TestDelete_UserCascade(t *testing.T) {
	for name, open := range drivers {
		t.Run(name, func(t *testing.T) {
			db := open(t)
			user := createUser(t, db, "gabitbol")
			other := createUser(t, db, "rjohnson")

			for _, u := range []*model.User{user, other} {
				assert.NoError(t, db.Save(model.NewProfile(u.ID)))
				assert.NoError(t, db.Save(&model.Session{
					UserID:       u.ID,
					AccessToken:  "access-" + u.Username,
					RefreshToken: "refresh-" + u.Username,
				}))
			}

			assert.NoError(t, db.Delete(user))

			_, err := db.FindUser(user.ID)
			assert.True(t, db.IsNotFound(err))
			_, err = db.FindProfileByUserID(user.ID)
			assert.True(t, db.IsNotFound(err))
			list, err := db.FindSessionsByUserID(user.ID)
			assert.NoError(t, err)
			assert.Empty(t, list)

			_, err = db.FindProfileByUserID(other.ID)
			assert.NoError(t, err)
			list, err = db.FindSessionsByUserID(other.ID)
			assert.NoError(t, err)
			assert.Len(t, list, 1)
		})
	}
}

func TestProfiles(t *testing.T) {
	for name, open := range drivers {
		t.Run(name, func(t *testing.T) {
			db := open(t)
			user := createUser(t, db, "gabitbol")

			dob := time.Date(1995, time.March, 14, 0, 0, 0, 0, time.UTC)
			profile := model.NewProfile(user.ID)
			profile.FirstName = "George"
			profile.LastName = "Abitbol"
			profile.DOB = &dob
			assert.NoError(t, db.Save(profile))

			v, err := db.FindProfileByUserID(user.ID)
			assert.NoError(t, err)
			assert.Equal(t, profile.ID, v.ID)
			assert.Equal(t, "George", v.FirstName)
			assert.Equal(t, model.GenderUnknown, v.Gender)
			if assert.NotNil(t, v.DOB) {
				assert.True(t, dob.Equal(*v.DOB))
			}

			err = db.Save(model.NewProfile(user.ID))
			assert.True(t, db.IsAlreadyExists(err))
		})
	}
}

func TestCadetMeta(t *testing.T) {
	for name, open := range drivers {
		t.Run(name, func(t *testing.T) {
			db := open(t)

			meta := &model.CadetMeta{Login: "gabitbol", Note: "the classiest man"}
			assert.NoError(t, db.Save(meta))

			v, err := db.FindCadetMetaByLogin("gabitbol")
			assert.NoError(t, err)
			assert.Equal(t, meta.ID, v.ID)
			assert.Equal(t, "the classiest man", v.Note)

			_, err = db.FindCadetMetaByLogin("rjohnson")
			assert.True(t, db.IsNotFound(err))

			err = db.Save(&model.CadetMeta{Login: "gabitbol"})
			assert.True(t, db.IsAlreadyExists(err))
		})
	}
}

func TestIntra(t *testing.T) {
	for name, open := range drivers {
		t.Run(name, func(t *testing.T) {
			db := open(t)

			fixtures := []struct {
				login      string
				id         int
				bookmarked bool
				month      string
			}{
				{"rjohnson", 3, false, "july"},
				{"gabitbol", 1, true, "july"},
				{"dvalentin", 2, true, "august"},
			}

			profiles := map[string]*model.IntraProfile{}
			for _, f := range fixtures {
				profile := model.NewIntraProfile(f.id)
				profile.Login = f.login
				profile.IsBookmarked = f.bookmarked
				profile.PoolMonth = f.month
				profile.PoolYear = "2024"
				profile.CursusIDs = []int{9, 21}
				assert.NoError(t, db.Save(profile))
				profiles[f.login] = profile
			}

			v, err := db.FindIntraProfileByLogin("gabitbol")
			assert.NoError(t, err)
			assert.Equal(t, 1, v.IntraID)
			assert.Equal(t, []int{9, 21}, v.CursusIDs)

			v, err = db.FindIntraProfileByIntraID(2)
			assert.NoError(t, err)
			assert.Equal(t, "dvalentin", v.Login)

			list, err := db.FindIntraProfiles(database.IntraProfileFilter{})
			assert.NoError(t, err)
			if assert.Len(t, list, 3) {
				assert.Equal(t, "dvalentin", list[0].Login)
				assert.Equal(t, "gabitbol", list[1].Login)
				assert.Equal(t, "rjohnson", list[2].Login)
			}

			list, err = db.FindIntraProfiles(database.IntraProfileFilter{BookmarkedOnly: true, PoolMonth: "july"})
			assert.NoError(t, err)
			if assert.Len(t, list, 1) {
				assert.Equal(t, "gabitbol", list[0].Login)
			}

			list, err = db.FindIntraProfiles(database.IntraProfileFilter{PoolYear: "2023"})
			assert.NoError(t, err)
			assert.Empty(t, list)

			err = db.Save(model.NewIntraProfile(1))
			assert.True(t, db.IsAlreadyExists(err))

			// History
			gabitbol := profiles["gabitbol"]
			for i := 1; i <= 3; i++ {
				data := &model.IntraProfileData{
					ProfileID: gabitbol.ID,
					Data:      json.RawMessage(`{"level":` + string(rune('0'+i)) + `}`),
				}
				assert.NoError(t, db.Save(data))
				time.Sleep(time.Millisecond)
			}
			assert.NoError(t, db.Save(&model.IntraProfileData{
				ProfileID: profiles["rjohnson"].ID,
				Data:      json.RawMessage(`{"level":7}`),
			}))

			history, err := db.FindIntraProfileData(gabitbol.ID, 0)
			assert.NoError(t, err)
			if assert.Len(t, history, 3) {
				assert.JSONEq(t, `{"level":3}`, string(history[0].Data))
				assert.JSONEq(t, `{"level":1}`, string(history[2].Data))
			}

			history, err = db.FindIntraProfileData(gabitbol.ID, 1)
			assert.NoError(t, err)
			if assert.Len(t, history, 1) {
				assert.JSONEq(t, `{"level":3}`, string(history[0].Data))
			}

			latest, err := database.LatestIntraProfileData(db, database.IntraProfileFilter{PoolMonth: "july"})
			assert.NoError(t, err)
			if assert.Len(t, latest, 2) {
				assert.Equal(t, "gabitbol", latest[0].Profile.Login)
				assert.JSONEq(t, `{"level":3}`, string(latest[0].Data.Data))
				assert.Equal(t, "rjohnson", latest[1].Profile.Login)
				assert.JSONEq(t, `{"level":7}`, string(latest[1].Data.Data))
			}

			// Cascade
			assert.NoError(t, db.Delete(gabitbol))
			history, err = db.FindIntraProfileData(gabitbol.ID, 0)
			assert.NoError(t, err)
			assert.Empty(t, history)

			history, err = db.FindIntraProfileData(profiles["rjohnson"].ID, 0)
			assert.NoError(t, err)
			assert.Len(t, history, 1)
		})
	}
}

func TestWebhooks(t *testing.T) {
	for name, open := range drivers {
		t.Run(name, func(t *testing.T) {
			db := open(t)

			for _, name := range []string{"slack", "discord"} {
				assert.NoError(t, db.Save(&model.Webhook{Name: name, URL: "https://" + name + ".example.com/hook"}))
			}

			v, err := db.FindWebhookByName("slack")
			assert.NoError(t, err)
			assert.Equal(t, "https://slack.example.com/hook", v.URL)

			list, err := db.FindWebhooks()
			assert.NoError(t, err)
			if assert.Len(t, list, 2) {
				assert.Equal(t, "discord", list[0].Name)
				assert.Equal(t, "slack", list[1].Name)
			}

			err = db.Save(&model.Webhook{Name: "slack"})
			assert.True(t, db.IsAlreadyExists(err))

			assert.NoError(t, db.Delete(v))
			_, err = db.FindWebhookByName("slack")
			assert.True(t, db.IsNotFound(err))
		})
	}
}
