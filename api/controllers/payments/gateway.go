package payments

import (
	"context"
	"net/http"
	"net/url"

	"github.com/angelmondragon/bookverse-backend/api/middleware"
	"github.com/angelmondragon/bookverse-backend/api/responses"
	internalpayments "github.com/angelmondragon/bookverse-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/bookverse-backend/pkg/errors"
	"github.com/angelmondragon/bookverse-backend/pkg/logger"
)

// ReturnHandler reconciles one gateway redirect.
type ReturnHandler interface {
	HandleReturn(ctx context.Context, values url.Values) (*internalpayments.Outcome, error)
}

// GatewayReturn receives the browser redirect from the payment gateway. The
// request is authenticated by its signature, not by a session. A failed
// payment is still a 200 with a failure outcome; only malformed or stale
// callbacks are errors.
func GatewayReturn(handler ReturnHandler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if handler == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment reconciler unavailable"))
			return
		}

		outcome, err := handler.HandleReturn(r.Context(), r.URL.Query())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if outcome.Replayed {
			w.Header().Set(middleware.ReplayedHeader, "true")
		}
		responses.WriteSuccess(w, outcome)
	}
}
