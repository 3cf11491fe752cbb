package routes

import (
	"context"
	"net/http"

	"meridia/admin"
	"meridia/appointments"
	"meridia/auth"
	"meridia/cart"
	"meridia/chat"
	"meridia/checkout"
	"meridia/globals"
	"meridia/inventory"
	"meridia/middleware"
	"meridia/models"
	"meridia/orders"
	"meridia/payment"
	"meridia/ratelim"
	"meridia/transactions"

	"github.com/julienschmidt/httprouter"
)

// buyers on the marketplace side
var buyerRoles = []string{models.RoleFacility, models.RoleImporter, models.RoleAdmin}

// sellers on the marketplace side
var sellerRoles = []string{models.RoleSupplier, models.RoleImporter, models.RoleAdmin}

func AddAuthRoutes(router *httprouter.Router, rl *ratelim.RateLimiter) {
	router.POST("/api/auth/register", rl.Limit(auth.Register))
	router.POST("/api/auth/login", rl.Limit(auth.Login))
	router.POST("/api/auth/logout", rl.Limit(middleware.Authenticate(auth.LogoutUser)))
	router.POST("/api/auth/token/refresh", rl.Limit(auth.RefreshToken))
	router.POST("/api/auth/otp/verify", rl.Limit(auth.VerifyOTPHandler))

	router.GET("/api/me", middleware.Authenticate(auth.Me))
	router.PUT("/api/profile", middleware.Authenticate(auth.CompleteProfile))
}

func AddInventoryRoutes(router *httprouter.Router, rl *ratelim.RateLimiter) {
	seller := middleware.Chain(middleware.Authenticate, middleware.RequireRoles(sellerRoles...))

	router.GET("/api/products", middleware.OptionalAuth(inventory.GetProducts))
	router.GET("/api/products/:productid", middleware.OptionalAuth(inventory.GetProduct))
	router.POST("/api/products", rl.Limit(seller(inventory.CreateProduct)))
	router.PUT("/api/products/:productid", seller(inventory.EditProduct))
	router.DELETE("/api/products/:productid", seller(inventory.DeleteProduct))
	router.POST("/api/products/:productid/photo", seller(inventory.UploadProductPhoto))

	router.POST("/api/products/:productid/batches", seller(inventory.CreateBatch))
	router.GET("/api/products/:productid/batches", middleware.OptionalAuth(inventory.GetBatches))
	router.PUT("/api/batches/:batchid", seller(inventory.EditBatch))
	router.DELETE("/api/batches/:batchid", seller(inventory.DeleteBatch))
}

func AddCartRoutes(router *httprouter.Router, rl *ratelim.RateLimiter) {
	buyer := middleware.Chain(middleware.Authenticate, middleware.RequireRoles(buyerRoles...))

	router.POST("/api/cart", rl.Limit(buyer(cart.AddToCart)))
	router.GET("/api/cart", buyer(cart.GetCart))
	router.PATCH("/api/cart", buyer(cart.UpdateBatchQuantity))
	router.DELETE("/api/cart/:productid", buyer(cart.RemoveProduct))
}

func AddCheckoutRoutes(router *httprouter.Router, rl *ratelim.RateLimiter) {
	buyer := middleware.Chain(middleware.Authenticate, middleware.RequireRoles(buyerRoles...))

	router.POST("/api/checkout", rl.Limit(buyer(checkout.StartCheckout)))
	router.GET("/api/checkout", buyer(checkout.GetCheckout))
	router.PATCH("/api/checkout/pickup", buyer(checkout.SetPickupDate))
	router.POST("/api/checkout/step", buyer(checkout.AdvanceStep))
	router.DELETE("/api/checkout", buyer(checkout.CancelCheckout))
}

func AddPaymentRoutes(router *httprouter.Router, rl *ratelim.RateLimiter, h *payment.Handler) {
	buyer := middleware.Chain(middleware.Authenticate, middleware.RequireRoles(buyerRoles...))

	router.POST("/api/payments/initiate", rl.Limit(buyer(h.Initiate)))
	router.POST("/api/payment-sessions/:txref/returned", buyer(h.Returned))
	router.POST("/api/payment-sessions/:txref/cancel", buyer(h.Cancel))
	router.GET("/api/payment-sessions/:txref", buyer(h.Status))

	// Provider callback, authenticated by shared secret, never by JWT.
	router.POST("/api/payments-webhook", rl.Limit(h.Webhook))
}

func AddOrderRoutes(router *httprouter.Router, _ *ratelim.RateLimiter) {
	authed := middleware.Authenticate

	router.GET("/api/orders", authed(orders.ListOrders))
	router.GET("/api/orders/:orderid", authed(orders.GetOrder))
	router.PATCH("/api/orders/:orderid/status", authed(orders.UpdateStatus))
	router.GET("/api/orders/:orderid/receipt", authed(orders.Receipt))
}

func AddTransactionRoutes(router *httprouter.Router, _ *ratelim.RateLimiter) {
	adminOnly := middleware.Chain(middleware.Authenticate, middleware.RequireRoles(models.RoleAdmin))

	router.GET("/api/transactions", middleware.Authenticate(transactions.ListMine))
	router.GET("/api/transactions/:txref", middleware.Authenticate(transactions.Get))
	router.GET("/api/admin/transactions", adminOnly(transactions.ListAll))
}

func AddAdminRoutes(router *httprouter.Router, _ *ratelim.RateLimiter) {
	adminOnly := middleware.Chain(middleware.Authenticate, middleware.RequireRoles(models.RoleAdmin))

	router.GET("/api/admin/users", adminOnly(admin.ListUsers))
	router.PATCH("/api/admin/users/:userid/roles", adminOnly(admin.SetRoles))
	router.POST("/api/admin/users/:userid/verify", adminOnly(admin.VerifyUser))
}

func AddAppointmentRoutes(router *httprouter.Router, rl *ratelim.RateLimiter) {
	doctor := middleware.Chain(middleware.Authenticate, middleware.RequireRoles(models.RoleDoctor))
	patient := middleware.Chain(middleware.Authenticate, middleware.RequireRoles(models.RolePatient))
	authed := middleware.Authenticate

	router.POST("/api/slots", rl.Limit(doctor(appointments.CreateSlot)))
	router.DELETE("/api/slots/:slotid", doctor(appointments.DeleteSlot))
	router.GET("/api/doctors/:doctorid/slots", middleware.OptionalAuth(appointments.GetSlots))

	router.POST("/api/appointments", rl.Limit(patient(appointments.Book)))
	router.GET("/api/appointments", authed(appointments.List))
	router.GET("/api/appointments/:appointmentid", authed(appointments.Get))
	router.PATCH("/api/appointments/:appointmentid/status", authed(appointments.UpdateStatus))

	router.POST("/api/appointments/:appointmentid/extensions", authed(appointments.RequestExtension))
	router.GET("/api/appointments/:appointmentid/extensions", authed(appointments.ListExtensions))
	router.POST("/api/extensions/:extensionid/decide", authed(appointments.DecideExtension))
}

func AddChatRoutes(router *httprouter.Router, _ *ratelim.RateLimiter, h *chat.Handler) {
	router.GET("/ws/chat/:room", tokenFromQuery(h.Join))
	router.GET("/api/chat/:room/history", middleware.Authenticate(h.History))
	router.POST("/api/chat/:room/attachments", middleware.Authenticate(h.Attach))
}

// tokenFromQuery authenticates websocket upgrades, where browsers cannot set
// an Authorization header.
func tokenFromQuery(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "Missing token", http.StatusUnauthorized)
			return
		}
		claims, err := middleware.ValidateJWT("Bearer " + token)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), globals.UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, globals.RoleKey, claims.Role)
		next(w, r.WithContext(ctx), ps)
	}
}

// RoutesWrapper registers every feature's routes on one router.
func RoutesWrapper(router *httprouter.Router, rl *ratelim.RateLimiter, payments *payment.Handler, chats *chat.Handler) {
	AddAuthRoutes(router, rl)
	AddInventoryRoutes(router, rl)
	AddCartRoutes(router, rl)
	AddCheckoutRoutes(router, rl)
	AddPaymentRoutes(router, rl, payments)
	AddOrderRoutes(router, rl)
	AddTransactionRoutes(router, rl)
	AddAdminRoutes(router, rl)
	AddAppointmentRoutes(router, rl)
	AddChatRoutes(router, rl, chats)

	router.ServeFiles("/static/uploads/*filepath", http.Dir("static/uploads"))
}
