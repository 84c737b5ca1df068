// internal/gateway/handlers_health.go
package gateway

import (
	"net/http"

	"pushgw/pkg/respond"
)

type healthResponse struct {
	Status   string         `json:"status"`
	Version  string         `json:"version"`
	Features healthFeatures `json:"features"`
}

type healthFeatures struct {
	Multitenant       bool `json:"multitenant"`
	RequireSignatures bool `json:"require_signatures"`
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, healthResponse{
		Status:  "OK",
		Version: Version,
		Features: healthFeatures{
			Multitenant:       a.cfg.Multitenant(),
			RequireSignatures: a.cfg.RequireSignatures,
		},
	})
}
