package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meridia/appointments"
	"meridia/chat"
	"meridia/config"
	"meridia/mq"
	"meridia/orders"
	"meridia/payment"
	"meridia/ratelim"
	"meridia/routes"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
)

func main() {
	cfg := config.Load()

	go mq.StartEventWorker()

	hub := chat.NewHub()
	go hub.Run()

	flushCtx, stopFlusher := context.WithCancel(context.Background())
	go chat.RunFlusher(flushCtx)

	gateway := payment.NewClient(cfg.GatewayBaseURL, cfg.GatewaySecret)
	paySvc := payment.NewService(gateway, orders.NewMaterializer())
	paySvc.Monitor.Grace = cfg.PaymentGrace
	paySvc.Monitor.Poll = cfg.PaymentPoll
	paySvc.Monitor.Ceiling = cfg.PaymentCeiling

	chatHandler := &chat.Handler{Hub: hub}
	appointments.Notify = chatHandler.NotifyRoom

	router := httprouter.New()
	rl := ratelim.NewRateLimiter(5, 10)
	routes.RoutesWrapper(router, rl, &payment.Handler{Svc: paySvc}, chatHandler)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "https://meridia.health"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := loggingMiddleware(securityHeaders(c.Handler(router)))

	server := &http.Server{
		Addr:              cfg.ServerPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("server listening on %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	paySvc.Registry.CancelAll()
	hub.Stop()
	stopFlusher()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
	log.Println("server stopped")
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
