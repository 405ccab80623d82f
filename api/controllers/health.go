package controllers

import (
	"context"
	"net/http"

	"go.uber.org/multierr"

	"github.com/kailasramasamy/martly-backend/api/responses"
	"github.com/kailasramasamy/martly-backend/pkg/config"
	pkgerrors "github.com/kailasramasamy/martly-backend/pkg/errors"
	"github.com/kailasramasamy/martly-backend/pkg/logger"
)

const envHeader = "X-Martly-Env"

// Pinger is the health-check surface shared by the redis client and the
// commerce gateway.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, redisP, gatewayP Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		var err error
		if redisP != nil {
			if pingErr := redisP.Ping(r.Context()); pingErr != nil {
				err = multierr.Append(err, pkgerrors.Wrap(pkgerrors.CodeDependency, pingErr, "redis unreachable"))
			}
		}
		if gatewayP != nil {
			if pingErr := gatewayP.Ping(r.Context()); pingErr != nil {
				err = multierr.Append(err, pkgerrors.Wrap(pkgerrors.CodeDependency, pingErr, "commerce api unreachable"))
			}
		}

		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "not ready"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
