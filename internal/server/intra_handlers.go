package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/42-Bangkok/gateway/internal/apierror"
	"github.com/42-Bangkok/gateway/internal/database"
	"github.com/42-Bangkok/gateway/internal/model"
	"github.com/42-Bangkok/gateway/internal/server/serializer"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/valyala/fastjson"
)

type (
	intra struct {
		db database.Client
	}

	upsertIntraProfileParams struct {
		IntraID   int             `json:"intra_id"   validate:"required,gt=0"`
		Login     *string         `json:"login"      validate:"omitnil,max=150"`
		PoolMonth *string         `json:"pool_month" validate:"omitnil,max=20"`
		PoolYear  *string         `json:"pool_year"  validate:"omitnil,max=4"`
		CursusIDs []int           `json:"cursus_ids"`
		Data      json.RawMessage `json:"data"`
	}

	patchIntraProfileParams struct {
		IsBookmarked *bool   `json:"is_bookmarked"`
		PoolMonth    *string `json:"pool_month" validate:"omitnil,max=20"`
		PoolYear     *string `json:"pool_year"  validate:"omitnil,max=4"`
		CursusIDs    []int   `json:"cursus_ids"`
	}

	intraHistoryParams struct {
		Data json.RawMessage `json:"data"`
	}
)

// List lists the Intra profiles matching the query filters.
func (h *intra) List(c echo.Context) error {
	var filter database.IntraProfileFilter
	if v := c.QueryParam("bookmarked"); v != "" {
		bookmarked, err := strconv.ParseBool(v)
		if err != nil {
			return apierror.Validation("bookmarked must be a boolean")
		}
		filter.BookmarkedOnly = bookmarked
	}
	filter.PoolMonth = c.QueryParam("pool_month")
	filter.PoolYear = c.QueryParam("pool_year")

	profiles, err := h.db.FindIntraProfiles(filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, serializer.IntraProfiles(profiles))
}

// Upsert creates or updates the Intra profile identified by its intra_id.
// A snapshot is appended to the history when data is given.
func (h *intra) Upsert(c echo.Context) error {
	// Filter params
	var params upsertIntraProfileParams
	if err := c.Bind(&params); err != nil {
		return apierror.BadRequest("Could not get parameters.")
	}
	if err := c.Validate(&params); err != nil {
		return err
	}
	if !isAbsent(params.Data) && !isObject(params.Data) {
		return apierror.Validation("data must be a JSON object")
	}

	profile, err := h.db.FindIntraProfileByIntraID(params.IntraID)
	if err != nil {
		if !h.db.IsNotFound(err) {
			return errors.Wrap(err, "could not get intra profile")
		}
		profile = model.NewIntraProfile(params.IntraID)
	}
	created := profile.IsNew()

	if params.Login != nil {
		profile.Login = *params.Login
	}
	if params.PoolMonth != nil {
		profile.PoolMonth = *params.PoolMonth
	}
	if params.PoolYear != nil {
		profile.PoolYear = *params.PoolYear
	}
	if params.CursusIDs != nil {
		profile.CursusIDs = params.CursusIDs
	}

	if err = h.save(profile); err != nil {
		return err
	}

	if !isAbsent(params.Data) {
		data := &model.IntraProfileData{
			ProfileID: profile.ID,
			Data:      params.Data,
		}
		if err = h.db.Save(data); err != nil {
			return errors.Wrap(err, "could not persist intra profile data")
		}
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, serializer.IntraProfile(profile))
}

// Show renders the given Intra profile.
func (h *intra) Show(c echo.Context) error {
	profile, err := h.find(c.Param("login"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, serializer.IntraProfile(profile))
}

// Patch partially updates the given Intra profile.
func (h *intra) Patch(c echo.Context) error {
	// Filter params
	var params patchIntraProfileParams
	if err := c.Bind(&params); err != nil {
		return apierror.BadRequest("Could not get parameters.")
	}
	if err := c.Validate(&params); err != nil {
		return err
	}

	profile, err := h.find(c.Param("login"))
	if err != nil {
		return err
	}

	if params.IsBookmarked != nil {
		profile.IsBookmarked = *params.IsBookmarked
	}
	if params.PoolMonth != nil {
		profile.PoolMonth = *params.PoolMonth
	}
	if params.PoolYear != nil {
		profile.PoolYear = *params.PoolYear
	}
	if params.CursusIDs != nil {
		profile.CursusIDs = params.CursusIDs
	}

	if err = h.save(profile); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, serializer.IntraProfile(profile))
}

// Delete deletes the given Intra profile and its history.
func (h *intra) Delete(c echo.Context) error {
	profile, err := h.find(c.Param("login"))
	if err != nil {
		return err
	}

	if err = h.db.Delete(profile); err != nil {
		return errors.Wrap(err, "could not delete intra profile")
	}
	return c.NoContent(http.StatusNoContent)
}

// History renders the snapshots of the given Intra profile, newest first.
func (h *intra) History(c echo.Context) error {
	var limit int
	if v := c.QueryParam("limit"); v != "" {
		var err error
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 {
			return apierror.Validation("limit must be a positive integer")
		}
	}

	profile, err := h.find(c.Param("login"))
	if err != nil {
		return err
	}

	history, err := h.db.FindIntraProfileData(profile.ID, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, serializer.IntraProfileHistory(history, profile.Login))
}

// AppendHistory appends a snapshot to the history of the given Intra profile.
func (h *intra) AppendHistory(c echo.Context) error {
	// Filter params
	var params intraHistoryParams
	if err := c.Bind(&params); err != nil {
		return apierror.BadRequest("Could not get parameters.")
	}
	if !isObject(params.Data) {
		return apierror.Validation("data must be a JSON object")
	}

	profile, err := h.find(c.Param("login"))
	if err != nil {
		return err
	}

	data := &model.IntraProfileData{
		ProfileID: profile.ID,
		Data:      params.Data,
	}
	if err = h.db.Save(data); err != nil {
		return errors.Wrap(err, "could not persist intra profile data")
	}
	return c.JSON(http.StatusCreated, serializer.IntraProfileData(data, profile.Login))
}

func (h *intra) find(login string) (*model.IntraProfile, error) {
	profile, err := h.db.FindIntraProfileByLogin(login)
	if err != nil {
		if h.db.IsNotFound(err) {
			return nil, apierror.NotFound("No Intra profile exists with the provided login.")
		}
		return nil, errors.Wrap(err, "could not get intra profile")
	}
	return profile, nil
}

func (h *intra) save(profile *model.IntraProfile) error {
	if err := h.db.Save(profile); err != nil {
		if h.db.IsAlreadyExists(err) {
			return apierror.Validation("login already exists")
		}
		return errors.Wrap(err, "could not persist intra profile")
	}
	return nil
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func isObject(raw json.RawMessage) bool {
	v, err := fastjson.ParseBytes(raw)
	return err == nil && v.Type() == fastjson.TypeObject
}
