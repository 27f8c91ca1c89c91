package server

import (
	"net/http"

	"github.com/42-Bangkok/gateway/internal/apierror"
	"github.com/42-Bangkok/gateway/internal/database"
	"github.com/42-Bangkok/gateway/internal/model"
	"github.com/42-Bangkok/gateway/internal/server/serializer"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type (
	cadetmeta struct {
		db database.Client
	}

	cadetmetaParams struct {
		Note *string `json:"note" validate:"required"`
	}
)

// Latest renders the newest history snapshot of every Intra profile.
func (h *cadetmeta) Latest(c echo.Context) error {
	snapshots, err := database.LatestIntraProfileData(h.db, database.IntraProfileFilter{
		PoolMonth: c.QueryParam("pool_month"),
		PoolYear:  c.QueryParam("pool_year"),
	})
	if err != nil {
		return err
	}

	render := make([]map[string]any, len(snapshots))
	for i, snapshot := range snapshots {
		render[i] = serializer.IntraProfileData(snapshot.Data, snapshot.Profile.Login)
	}
	return c.JSON(http.StatusOK, render)
}

// Get renders the metadata of the given cadet, creating it when missing.
func (h *cadetmeta) Get(c echo.Context) error {
	meta, err := h.findOrInit(c.Param("login"))
	if err != nil {
		return err
	}

	if meta.IsNew() {
		err = h.db.Save(meta)
		if err != nil && h.db.IsAlreadyExists(err) {
			// Created concurrently.
			meta, err = h.db.FindCadetMetaByLogin(meta.Login)
		}
		if err != nil {
			return errors.Wrap(err, "could not persist cadet meta")
		}
	}
	return c.JSON(http.StatusOK, serializer.CadetMeta(meta))
}

// Patch updates the metadata of the given cadet, creating it when missing.
func (h *cadetmeta) Patch(c echo.Context) error {
	// Filter params
	var params cadetmetaParams
	if err := c.Bind(&params); err != nil {
		return apierror.BadRequest("Could not get parameters.")
	}
	if err := c.Validate(&params); err != nil {
		return err
	}

	meta, err := h.findOrInit(c.Param("login"))
	if err != nil {
		return err
	}

	meta.Note = *params.Note
	if err = h.save(meta); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, serializer.CadetMeta(meta))
}

func (h *cadetmeta) findOrInit(login string) (*model.CadetMeta, error) {
	meta, err := h.db.FindCadetMetaByLogin(login)
	if err != nil {
		if h.db.IsNotFound(err) {
			return &model.CadetMeta{Login: login}, nil
		}
		return nil, errors.Wrap(err, "could not get cadet meta")
	}
	return meta, nil
}

func (h *cadetmeta) save(meta *model.CadetMeta) error {
	err := h.db.Save(meta)
	if err != nil && meta.IsNew() && h.db.IsAlreadyExists(err) {
		// Created concurrently, apply the change on the stored record.
		note := meta.Note
		stored, ferr := h.db.FindCadetMetaByLogin(meta.Login)
		if ferr != nil {
			return errors.Wrap(ferr, "could not get cadet meta")
		}
		*meta = *stored
		meta.Note = note
		err = h.db.Save(meta)
	}
	return errors.Wrap(err, "could not persist cadet meta")
}
