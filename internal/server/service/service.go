package service

import "github.com/42-Bangkok/gateway/internal/model"

// M is an arbitrary map.
type M map[string]any

// Params are the basic fields used in requests.
type Params struct {
	UserAgent string         `json:"-"`
	Session   *model.Session `json:"-"`
}
