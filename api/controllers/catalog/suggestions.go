package catalog

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/angelmondragon/bookverse-backend/api/responses"
	"github.com/angelmondragon/bookverse-backend/api/validators"
	catalogsvc "github.com/angelmondragon/bookverse-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/bookverse-backend/pkg/errors"
	"github.com/angelmondragon/bookverse-backend/pkg/logger"
)

const (
	clientIDHeader = "X-Client-Id"
	maxQueryLength = 120
)

// Suggester is the superseding product search.
type Suggester interface {
	Suggest(ctx context.Context, clientID, query string) ([]catalogsvc.Product, error)
}

type suggestionsResponse struct {
	Query    string               `json:"query"`
	Products []catalogsvc.Product `json:"products"`
}

// Suggestions answers type-ahead searches. Requests carrying the same
// X-Client-Id supersede each other; the older one gets a CONFLICT.
func Suggestions(svc Suggester, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "suggestion service unavailable"))
			return
		}

		query := validators.SanitizeString(r.URL.Query().Get("q"), maxQueryLength)
		clientID := strings.TrimSpace(r.Header.Get(clientIDHeader))

		products, err := svc.Suggest(r.Context(), clientID, query)
		if err != nil {
			if errors.Is(err, catalogsvc.ErrSuperseded) {
				err = pkgerrors.Wrap(pkgerrors.CodeConflict, err, "superseded by a newer search")
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if products == nil {
			products = []catalogsvc.Product{}
		}

		responses.WriteSuccess(w, suggestionsResponse{Query: query, Products: products})
	}
}
