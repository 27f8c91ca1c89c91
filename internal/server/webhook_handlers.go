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
	webhook struct {
		db database.Client
	}

	createWebhookParams struct {
		Name        string `json:"name"        validate:"required,max=255"`
		Description string `json:"description"`
		URL         string `json:"url"         validate:"required,weburl"`
	}

	patchWebhookParams struct {
		Name        *string `json:"name"        validate:"omitnil,min=1,max=255"`
		Description *string `json:"description"`
		URL         *string `json:"url"         validate:"omitnil,weburl"`
	}
)

// List lists all the webhooks.
func (h *webhook) List(c echo.Context) error {
	webhooks, err := h.db.FindWebhooks()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, serializer.Webhooks(webhooks))
}

// Create creates a webhook.
func (h *webhook) Create(c echo.Context) error {
	// Filter params
	var params createWebhookParams
	if err := c.Bind(&params); err != nil {
		return apierror.BadRequest("Could not get parameters.")
	}
	if err := c.Validate(&params); err != nil {
		return err
	}

	webhook := &model.Webhook{
		Name:        params.Name,
		Description: params.Description,
		URL:         params.URL,
	}
	if err := h.save(webhook); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, serializer.Webhook(webhook))
}

// Show renders the given webhook.
func (h *webhook) Show(c echo.Context) error {
	webhook, err := h.find(c.Param("name"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, serializer.Webhook(webhook))
}

// Patch partially updates the given webhook.
func (h *webhook) Patch(c echo.Context) error {
	// Filter params
	var params patchWebhookParams
	if err := c.Bind(&params); err != nil {
		return apierror.BadRequest("Could not get parameters.")
	}
	if err := c.Validate(&params); err != nil {
		return err
	}

	webhook, err := h.find(c.Param("name"))
	if err != nil {
		return err
	}

	if params.Name != nil {
		webhook.Name = *params.Name
	}
	if params.Description != nil {
		webhook.Description = *params.Description
	}
	if params.URL != nil {
		webhook.URL = *params.URL
	}

	if err = h.save(webhook); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, serializer.Webhook(webhook))
}

// Delete deletes the given webhook.
func (h *webhook) Delete(c echo.Context) error {
	webhook, err := h.find(c.Param("name"))
	if err != nil {
		return err
	}

	if err = h.db.Delete(webhook); err != nil {
		return errors.Wrap(err, "could not delete webhook")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *webhook) find(name string) (*model.Webhook, error) {
	webhook, err := h.db.FindWebhookByName(name)
	if err != nil {
		if h.db.IsNotFound(err) {
			return nil, apierror.NotFound("No webhook exists with the provided name.")
		}
		return nil, errors.Wrap(err, "could not get webhook")
	}
	return webhook, nil
}

func (h *webhook) save(webhook *model.Webhook) error {
	if err := h.db.Save(webhook); err != nil {
		if h.db.IsAlreadyExists(err) {
			return apierror.Validation("name already exists")
		}
		return errors.Wrap(err, "could not persist webhook")
	}
	return nil
}
