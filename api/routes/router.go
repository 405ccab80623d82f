package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kailasramasamy/martly-backend/api/controllers"
	"github.com/kailasramasamy/martly-backend/api/middleware"
	cartsvc "github.com/kailasramasamy/martly-backend/internal/cart"
	checkoutsvc "github.com/kailasramasamy/martly-backend/internal/checkout"
	orderssvc "github.com/kailasramasamy/martly-backend/internal/orders"
	"github.com/kailasramasamy/martly-backend/pkg/config"
	"github.com/kailasramasamy/martly-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisP controllers.Pinger,
	gatewayP controllers.Pinger,
	cartStore *cartsvc.Store,
	checkoutService checkoutsvc.Service,
	ordersOrch *orderssvc.Orchestrator,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, redisP, gatewayP))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(cartStore, logg))
			r.Post("/items", controllers.CartAddItem(cartStore, logg))
			r.Patch("/items/{itemId}", controllers.CartUpdateItem(cartStore, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(cartStore, logg))
			r.Delete("/", controllers.CartClear(cartStore, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/addresses", controllers.CheckoutSetAddresses(checkoutService, logg))
			r.Post("/address", controllers.CheckoutSelectAddress(checkoutService, logg))
			r.Post("/fulfillment", controllers.CheckoutSetFulfillment(checkoutService, logg))
			r.Post("/coupon", controllers.CheckoutApplyCoupon(checkoutService, logg))
			r.Delete("/coupon", controllers.CheckoutRemoveCoupon(checkoutService, logg))
			r.Post("/wallet", controllers.CheckoutToggleWallet(checkoutService, logg))
			r.Post("/loyalty", controllers.CheckoutToggleLoyalty(checkoutService, logg))
			r.Get("/quote", controllers.CheckoutQuote(checkoutService, logg))

			r.Route("/schedule", func(r chi.Router) {
				r.Post("/mode", controllers.ScheduleSetMode(checkoutService, logg))
				r.Post("/date", controllers.ScheduleSelectDate(checkoutService, logg))
				r.Post("/slot", controllers.ScheduleSelectSlot(checkoutService, logg))
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrderSubmit(ordersOrch, logg))
			r.Get("/status", controllers.OrderStatus(ordersOrch, logg))
			r.Get("/payment-method", controllers.OrderPreferredMethod(ordersOrch, logg))
			r.Post("/{orderId}/payment/confirm", controllers.OrderConfirmPayment(ordersOrch, logg))
			r.Post("/{orderId}/payment/cancel", controllers.OrderCancelPayment(ordersOrch, logg))
		})
	})

	return r
}
