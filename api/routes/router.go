package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/bookverse-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/bookverse-backend/api/controllers/cart"
	catalogcontrollers "github.com/angelmondragon/bookverse-backend/api/controllers/catalog"
	ordercontrollers "github.com/angelmondragon/bookverse-backend/api/controllers/orders"
	paymentcontrollers "github.com/angelmondragon/bookverse-backend/api/controllers/payments"
	"github.com/angelmondragon/bookverse-backend/api/middleware"
	"github.com/angelmondragon/bookverse-backend/internal/orders"
	"github.com/angelmondragon/bookverse-backend/pkg/config"
	"github.com/angelmondragon/bookverse-backend/pkg/db"
	"github.com/angelmondragon/bookverse-backend/pkg/logger"
	"github.com/angelmondragon/bookverse-backend/pkg/redis"
)

// CartService is everything the cart and checkout routes need from the cart.
type CartService interface {
	cartcontrollers.Service
	ordercontrollers.CartCheckout
}

// NewRouter wires every HTTP route. redisP and idempotency may be nil when
// redis is not configured.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP controllers.Pinger,
	idempotency redis.IdempotencyStore,
	gatherer prometheus.Gatherer,
	suggester catalogcontrollers.Suggester,
	cartService CartService,
	productCache ordercontrollers.ProductInvalidator,
	ordersSvc orders.Service,
	gatewayReturns paymentcontrollers.ReturnHandler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	idem := middleware.Idempotency(idempotency, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg,
			controllers.ReadinessCheck{Name: "database", Pinger: dbP},
			controllers.ReadinessCheck{Name: "redis", Pinger: redisP},
		))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/catalog/suggestions", catalogcontrollers.Suggestions(suggester, logg))
		r.Get("/payments/gateway/return", paymentcontrollers.GatewayReturn(gatewayReturns, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.CartFetch(cartService, logg))
				r.Post("/select-all", cartcontrollers.SelectAll(cartService, logg))
				r.Post("/lines", cartcontrollers.AddLine(cartService, logg))
				r.Delete("/lines", cartcontrollers.RemoveLines(cartService, logg))
				r.Patch("/lines/{productType}/{productId}", cartcontrollers.UpdateLine(cartService, logg))
				r.Delete("/lines/{productType}/{productId}", cartcontrollers.RemoveLine(cartService, logg))
			})

			r.With(idem).Post("/orders", ordercontrollers.Checkout(cartService, ordersSvc, logg))
			r.Get("/orders", ordercontrollers.List(ordersSvc, logg))
			r.Get("/orders/{orderId}", ordercontrollers.Detail(ordersSvc, logg))
			r.With(idem).Post("/orders/{orderId}/cancel", ordercontrollers.Cancel(ordersSvc, logg))
			r.With(idem).Patch("/orders/{orderId}/address", ordercontrollers.ChangeAddress(ordersSvc, logg))

			r.Route("/admin/orders", func(r chi.Router) {
				r.Use(middleware.RequireStaff(logg))
				r.Get("/", ordercontrollers.AdminList(ordersSvc, logg))
				r.With(idem).Post("/{orderId}/transitions", ordercontrollers.Transition(ordersSvc, productCache, logg))
				r.With(idem).Post("/{orderId}/refund/complete", ordercontrollers.CompleteRefund(ordersSvc, logg))
			})
		})
	})

	return r
}
