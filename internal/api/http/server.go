package http

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"telecare-backend/internal/security"
	"telecare-backend/internal/service"
)

// Server wires the REST surface over the service layer.
type Server struct {
	auth          service.AuthService
	appointments  service.AppointmentService
	payments      service.PaymentService
	refunds       service.RefundService
	payouts       service.PayoutService
	balances      service.BalanceService
	notifications service.NotificationService
	tokens        security.TokenManager
	webhookSecret string
}

func NewServer(
	auth service.AuthService,
	appointments service.AppointmentService,
	payments service.PaymentService,
	refunds service.RefundService,
	payouts service.PayoutService,
	balances service.BalanceService,
	notifications service.NotificationService,
	tokens security.TokenManager,
	webhookSecret string,
) *Server {
	return &Server{
		auth:          auth,
		appointments:  appointments,
		payments:      payments,
		refunds:       refunds,
		payouts:       payouts,
		balances:      balances,
		notifications: notifications,
		tokens:        tokens,
		webhookSecret: webhookSecret,
	}
}

// Router builds the full route table. Webhooks and auth endpoints are public;
// everything else requires a valid access token.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(loggingMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/signup", s.handleSignup).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh", s.handleRefresh).Methods(http.MethodPost)

	api.HandleFunc("/webhooks/stripe", s.handleStripeWebhook).Methods(http.MethodPost)

	authed := api.NewRoute().Subrouter()
	authed.Use(authMiddleware(s.tokens))

	authed.HandleFunc("/appointments", s.handleBookAppointment).Methods(http.MethodPost)
	authed.HandleFunc("/appointments", s.handleListAppointments).Methods(http.MethodGet)
	authed.HandleFunc("/appointments/{id}", s.handleGetAppointment).Methods(http.MethodGet)
	authed.HandleFunc("/appointments/{id}/sessions/{key}", s.handleUpdateSessionStatus).Methods(http.MethodPatch)
	authed.HandleFunc("/appointments/{id}/cancel", s.handleCancelAppointment).Methods(http.MethodPost)
	authed.HandleFunc("/appointments/{id}/refund", s.handleRefundAppointment).Methods(http.MethodPost)
	authed.HandleFunc("/appointments/{id}/payment", s.handleVerifyPayment).Methods(http.MethodGet)
	authed.HandleFunc("/appointments/{id}/purchase-with-balance", s.handlePurchaseWithBalance).Methods(http.MethodPost)

	authed.HandleFunc("/balance", s.handleGetBalance).Methods(http.MethodGet)
	authed.HandleFunc("/balance/transactions", s.handleListTransactions).Methods(http.MethodGet)

	authed.HandleFunc("/payouts", s.handleListPayouts).Methods(http.MethodGet)
	authed.HandleFunc("/payouts/run", s.handleRunPayouts).Methods(http.MethodPost)
	authed.HandleFunc("/payouts/{id}/paid", s.handleMarkPayoutPaid).Methods(http.MethodPost)

	authed.HandleFunc("/notifications", s.handleListNotifications).Methods(http.MethodGet)
	authed.HandleFunc("/notifications/{id}/read", s.handleMarkNotificationRead).Methods(http.MethodPost)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parsePaging reads page/page_size query parameters with sane bounds.
func parsePaging(r *http.Request) (int32, int32) {
	page := int32(1)
	pageSize := int32(20)
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = int32(v)
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && v > 0 && v <= 100 {
		pageSize = int32(v)
	}
	return page, pageSize
}
