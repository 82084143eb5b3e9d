package main

import (
	"encoding/gob"
	"fmt"
	"net/http"
	"os"
	"time"

	"invitation-platform/internal/config"
	"invitation-platform/internal/database"
	"invitation-platform/internal/handlers"
	"invitation-platform/internal/middleware"
	"invitation-platform/internal/models"
	"invitation-platform/internal/repositories"
	"invitation-platform/internal/services"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"
)

func main() {
	// Register types for session serialization
	gob.Register(&models.Cart{})
	gob.Register(models.CartItem{})
	gob.Register([]models.CartItem{})

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.Server.Env == "development" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	db, err := database.NewConnection(database.Config{
		URL:      cfg.Database.URL,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("database connection established")

	sessionStore := sessions.NewCookieStore([]byte(cfg.Session.Secret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   cfg.Server.Env == "production",
		SameSite: http.SameSiteLaxMode,
	}

	// Repositories
	userRepo := repositories.NewUserRepository(db.DB)
	orderRepo := repositories.NewOrderRepository(db.DB)
	eventRepo := repositories.NewEventRepository(db.DB)
	guestRepo := repositories.NewGuestRepository(db.DB)
	collaboratorRepo := repositories.NewCollaboratorRepository(db.DB)

	// Services
	paystackService := services.NewPaystackService(services.PaystackConfig{
		SecretKey:   cfg.Paystack.SecretKey,
		PublicKey:   cfg.Paystack.PublicKey,
		Environment: cfg.Paystack.Environment,
		CallbackURL: cfg.Paystack.CallbackURL,
		Currency:    cfg.Paystack.Currency,
	}, log)

	var notifier services.NotificationService
	if cfg.WhatsApp.AccessToken != "" {
		notifier = services.NewWhatsAppService(services.WhatsAppConfig{
			APIBaseURL:  cfg.WhatsApp.APIBaseURL,
			AccessToken: cfg.WhatsApp.AccessToken,
			SenderID:    cfg.WhatsApp.SenderID,
		}, log)
		log.Info().Msg("whatsapp messaging enabled")
	} else {
		log.Warn().Msg("whatsapp credentials not configured, notifications disabled")
	}

	storageService, err := services.NewR2Service(cfg.R2, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize R2 storage")
	}

	orderService := services.NewOrderService(orderRepo, eventRepo, userRepo, notifier, log)
	eventService := services.NewEventService(eventRepo, userRepo, storageService, notifier, log)
	guestService := services.NewGuestService(guestRepo, collaboratorRepo, eventRepo, notifier, cfg.Session.TokenSecret, log)

	// Handlers
	pricingHandler := handlers.NewPricingHandler(sessionStore)
	orderHandler := handlers.NewOrderHandler(orderService, paystackService, sessionStore)
	paymentHandler := handlers.NewPaymentHandler(orderService, paystackService, log)
	eventHandler := handlers.NewEventHandler(eventService)
	guestHandler := handlers.NewGuestHandler(guestService)
	collaboratorHandler := handlers.NewCollaboratorHandler(guestService)

	authMiddleware := middleware.NewAuthMiddleware(userRepo, guestService, sessionStore)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(middleware.CORSMiddleware(middleware.DefaultCORSConfig()))
	r.Use(authMiddleware.LoadActor)
	r.Use(middleware.LoggingMiddleware(log))

	// Public storefront
	r.Post("/api/quotes", pricingHandler.Quote)
	r.Route("/api/cart", func(r chi.Router) {
		r.Get("/", pricingHandler.GetCart)
		r.Post("/items", pricingHandler.AddToCart)
		r.Delete("/items", pricingHandler.RemoveFromCart)
		r.Delete("/", pricingHandler.ClearCart)
	})

	// Payment gateway callbacks
	r.Post("/webhooks/paystack", paymentHandler.Webhook)
	r.Get("/payment/callback", paymentHandler.Callback)

	// Guest RSVP from the personal invitation link
	r.Post("/api/guests/{guestID}/rsvp", guestHandler.UpdateRSVP)

	// Customer routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireUser)

		r.Post("/api/checkout", orderHandler.Checkout)
		r.Get("/api/orders", orderHandler.ListOrders)
		r.Get("/api/orders/{orderID}", orderHandler.GetOrder)
		r.Post("/api/orders/{orderID}/cancel", orderHandler.CancelOrder)
		r.Get("/api/statistics/orders", orderHandler.GetStatistics)

		r.Get("/api/events", eventHandler.ListMyEvents)
		r.Post("/api/events/{eventID}/guest-list/confirm", eventHandler.ConfirmGuestList)

		r.Get("/api/events/{eventID}/collaborators", collaboratorHandler.ListCollaborators)
		r.Post("/api/events/{eventID}/collaborators", collaboratorHandler.AllocateCollaborator)
		r.Delete("/api/collaborators/{collaboratorID}", collaboratorHandler.RemoveCollaborator)

		r.Post("/api/events/{eventID}/guests/send-invites", guestHandler.SendInvites)
		r.Post("/api/guests/{guestID}/attendance", guestHandler.RecordAttendance)
	})

	// Routes open to users and collaborators
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireActor)

		r.Get("/api/events/{eventID}", eventHandler.GetEvent)
		r.Get("/api/events/{eventID}/guests", guestHandler.ListGuests)
		r.Post("/api/events/{eventID}/guests", guestHandler.AddGuest)
		r.Patch("/api/guests/{guestID}", guestHandler.UpdateGuest)
		r.Delete("/api/guests/{guestID}", guestHandler.RemoveGuest)
		r.Get("/api/collaborators/me", collaboratorHandler.Me)
	})

	// Admin routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireAdmin)

		r.Get("/api/admin/events/pending", eventHandler.ListPendingApproval)
		r.Post("/api/admin/events/{eventID}/approve", eventHandler.ApproveEvent)
		r.Post("/api/admin/events/{eventID}/reject", eventHandler.RejectEvent)
		r.Post("/api/admin/events/{eventID}/guest-list/reopen", eventHandler.ReopenGuestList)
		r.Post("/api/admin/orders/{orderID}/fail", orderHandler.FailOrder)
	})

	// Sweep pending orders whose payment window has lapsed.
	go func() {
		ticker := time.NewTicker(15 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			expired, err := orderRepo.GetExpiredOrders(2 * time.Hour)
			if err != nil {
				log.Error().Err(err).Msg("expired order sweep failed")
				continue
			}
			for _, order := range expired {
				if err := orderService.Cancel(order.ID, "payment window expired"); err != nil {
					log.Debug().Err(err).Str("order_number", order.OrderNumber).Msg("expired order already settled")
				}
			}
		}
	}()

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	log.Info().Str("addr", addr).Msg("server starting")
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
