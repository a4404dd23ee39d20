// Package routes assembles the HTTP surface: public reads, the webhook
// endpoint, and the authenticated API, each with the appropriate middleware
// stack.
package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AgriNITMZ/agriapp-backend/api/controllers"
	"github.com/AgriNITMZ/agriapp-backend/api/middleware"
	"github.com/AgriNITMZ/agriapp-backend/internal/address"
	"github.com/AgriNITMZ/agriapp-backend/internal/analytics"
	"github.com/AgriNITMZ/agriapp-backend/internal/auth"
	"github.com/AgriNITMZ/agriapp-backend/internal/cart"
	"github.com/AgriNITMZ/agriapp-backend/internal/chat"
	"github.com/AgriNITMZ/agriapp-backend/internal/content"
	"github.com/AgriNITMZ/agriapp-backend/internal/notifications"
	"github.com/AgriNITMZ/agriapp-backend/internal/orders"
	"github.com/AgriNITMZ/agriapp-backend/internal/payments"
	"github.com/AgriNITMZ/agriapp-backend/internal/products"
	"github.com/AgriNITMZ/agriapp-backend/internal/shipments"
	"github.com/AgriNITMZ/agriapp-backend/internal/users"
	"github.com/AgriNITMZ/agriapp-backend/pkg/config"
	"github.com/AgriNITMZ/agriapp-backend/pkg/enums"
	"github.com/AgriNITMZ/agriapp-backend/pkg/logger"
	"github.com/AgriNITMZ/agriapp-backend/pkg/metrics"
)

// Deps carries everything the router wires together.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Metrics  *metrics.Registry
	Gatherer prometheus.Gatherer

	Auth          auth.Service
	Users         users.Service
	Products      products.Service
	Cart          cart.Service
	Addresses     address.Service
	Orders        orders.Service
	Payments      payments.Service
	Shipments     shipments.Service
	Notifications notifications.Service
	Analytics     analytics.Service
	Content       content.Service
	Chat          chat.Service

	HealthChecks map[string]controllers.Pinger
}

// New builds the chi router.
func New(deps Deps) http.Handler {
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(middleware.RequestID(logg))
	r.Use(middleware.Logging(logg))
	r.Use(middleware.Recoverer(logg))
	r.Use(middleware.CORS(deps.Config.CORS))
	r.Use(middleware.Metrics(deps.Metrics))

	r.Get("/health/live", controllers.Liveness())
	r.Get("/health/ready", controllers.Readiness(logg, deps.HealthChecks))
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", controllers.Register(deps.Auth, logg))
			r.Post("/login", controllers.Login(deps.Auth, logg))
		})

		// public catalog and content reads
		r.Get("/products", controllers.ListProducts(deps.Products, logg))
		r.Get("/products/{productID}", controllers.GetProduct(deps.Products, logg))
		r.Get("/news", controllers.ListNews(deps.Content, logg))
		r.Get("/news/{newsID}", controllers.GetNews(deps.Content, logg))
		r.Get("/schemes", controllers.ListSchemes(deps.Content, logg))
		r.Get("/schemes/{schemeID}", controllers.GetScheme(deps.Content, logg))

		// gateway-to-server, authenticated by signature rather than JWT
		r.Post("/webhooks/razorpay", controllers.RazorpayWebhook(deps.Payments, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(deps.Config.JWT, logg))

			r.Route("/me", func(r chi.Router) {
				r.Get("/", controllers.GetProfile(deps.Users, logg))
				r.Put("/", controllers.UpdateProfile(deps.Users, logg))
				r.Post("/password", controllers.ChangePassword(deps.Users, logg))
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.ListCart(deps.Cart, logg))
				r.Post("/items", controllers.AddCartItem(deps.Cart, logg))
				r.Put("/items/{itemID}", controllers.UpdateCartItem(deps.Cart, logg))
				r.Delete("/items/{itemID}", controllers.RemoveCartItem(deps.Cart, logg))
				r.Delete("/", controllers.ClearCart(deps.Cart, logg))
			})

			r.Route("/addresses", func(r chi.Router) {
				r.Get("/", controllers.ListAddresses(deps.Addresses, logg))
				r.Post("/", controllers.CreateAddress(deps.Addresses, logg))
				r.Get("/{addressID}", controllers.GetAddress(deps.Addresses, logg))
				r.Put("/{addressID}", controllers.UpdateAddress(deps.Addresses, logg))
				r.Delete("/{addressID}", controllers.DeleteAddress(deps.Addresses, logg))
				r.Post("/{addressID}/default", controllers.SetDefaultAddress(deps.Addresses, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", controllers.CreateOrder(deps.Orders, logg))
				r.Get("/", controllers.ListOrders(deps.Orders, logg))
				r.Get("/{orderID}", controllers.GetOrder(deps.Orders, logg))
				r.Post("/{orderID}/cancel", controllers.CancelOrder(deps.Orders, logg))
				r.Post("/{orderID}/payment-link", controllers.CreatePaymentLink(deps.Payments, logg))
				r.Get("/{orderID}/shipment", controllers.TrackShipment(deps.Shipments, logg))
			})

			r.Post("/payments/verify", controllers.VerifyPayment(deps.Payments, logg))

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
				r.Post("/{notificationID}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
			})

			r.Post("/chat", controllers.AskChat(deps.Chat, logg))

			r.Get("/shipments/serviceability", controllers.CheckServiceability(deps.Shipments, logg))

			// seller surfaces
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.UserRoleSeller, enums.UserRoleAdmin))
				r.Post("/products", controllers.CreateProduct(deps.Products, logg))
				r.Post("/products/{productID}/variants", controllers.AddVariant(deps.Products, logg))
				r.Put("/variants/{variantID}", controllers.UpdateVariant(deps.Products, logg))
				r.Get("/analytics/seller", controllers.SellerAnalytics(deps.Analytics, logg))
				r.Post("/orders/{orderID}/shipment", controllers.CreateShipment(deps.Shipments, logg))
				r.Post("/orders/{orderID}/shipment/cancel", controllers.CancelShipment(deps.Shipments, logg))
				r.Get("/shipments/pickup-locations", controllers.ListPickupLocations(deps.Shipments, logg))
			})

			// admin content management
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
				r.Post("/news", controllers.CreateNews(deps.Content, logg))
				r.Put("/news/{newsID}", controllers.UpdateNews(deps.Content, logg))
				r.Delete("/news/{newsID}", controllers.DeleteNews(deps.Content, logg))
				r.Post("/schemes", controllers.CreateScheme(deps.Content, logg))
				r.Put("/schemes/{schemeID}", controllers.UpdateScheme(deps.Content, logg))
				r.Delete("/schemes/{schemeID}", controllers.DeleteScheme(deps.Content, logg))
			})
		})
	})

	return r
}
