package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/cart"
	"storefront/checkout"
	"storefront/config"
	"storefront/db"
	"storefront/inventory"
	"storefront/memstore"
	"storefront/metrics"
	"storefront/middleware"
	"storefront/mq"
	"storefront/notify"
	"storefront/orders"
	"storefront/pay"
	"storefront/products"
	"storefront/ratelim"
	"storefront/rdx"
	"storefront/routes"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/cors"
)

// securityHeaders applies a set of recommended HTTP security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		// HSTS (must be on HTTPS)
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each request method, path, remote address, and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s from %s - %v", r.Method, r.RequestURI, r.RemoteAddr, time.Since(start))
	})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	store, err := db.Open(openCtx, cfg.MongoURI, cfg.MongoDB, cfg.MongoTransactions)
	if err != nil {
		log.Fatalf("mongo: %v", err)
	}
	if err := store.EnsureIndexes(openCtx); err != nil {
		log.Fatalf("mongo indexes: %v", err)
	}
	cancel()
	log.Printf("Connected to MongoDB database %s (transactions: %v)", cfg.MongoDB, cfg.MongoTransactions)

	hub := notify.NewHub()
	go hub.Run()

	// Without Redis, locks and payment events stay inside this process.
	var (
		locker  checkout.Locker = memstore.NewLocker()
		emitter mq.Emitter      = hub
	)
	if cfg.RedisAddr != "" {
		conn, err := rdx.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer conn.Close()
		locker = rdx.NewLocker(conn, "storefront:lock:")
		emitter = mq.NewRedisEmitter(conn, mq.PaymentChannel)
		go func() {
			err := mq.Subscribe(ctx, conn, mq.PaymentChannel, func(ev mq.Event) { hub.Emit(ctx, ev) })
			if err != nil {
				log.Printf("[EventWorker] subscription ended: %v", err)
			}
		}()
	} else {
		log.Println("REDIS_ADDR not set; using in-process locks and events")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	policy, err := orders.PolicyByName(cfg.OrderTransitions)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	catalog := products.NewMongoCatalog(store)
	ledger := inventory.NewMongoLedger(store)
	cartRepo := cart.NewMongoRepository(store)
	orderRepo := orders.NewMongoRepository(store)
	paymentRepo := pay.NewMongoRepository(store)

	cartSvc := cart.NewService(cartRepo, catalog)
	checkoutSvc := checkout.NewService(cartRepo, catalog, ledger, orderRepo, store, locker, m)
	orderSvc := orders.NewService(orderRepo, catalog, ledger, store, policy)

	processor := pay.NewProcessor(paymentRepo, orderRepo, pay.RandomOutcome(cfg.PaymentSuccessRate, nil), emitter, m,
		pay.ProcessorConfig{Delay: cfg.PaymentDelay, Workers: cfg.PaymentWorkers})
	processor.Start()
	paymentSvc := pay.NewService(paymentRepo, orderRepo, processor, emitter)
	go pay.NewSweeper(paymentRepo, orderRepo, processor, cfg.StuckAfter).Run(ctx, cfg.SweepInterval)

	rateLimiter := ratelim.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go rateLimiter.Run(time.Minute, ctx.Done())

	router := httprouter.New()
	routes.RoutesWrapper(router, &routes.Deps{
		Auth:          middleware.NewAuth([]byte(cfg.JWTSecret)),
		RateLimiter:   rateLimiter,
		Metrics:       m,
		Idempotency:   db.NewIdempotencyStore(store),
		Ping:          store.Ping,
		Products:      products.NewHandlers(catalog),
		Cart:          cart.NewHandlers(cartSvc),
		Checkout:      checkout.NewHandlers(checkoutSvc),
		Orders:        orders.NewHandlers(orderSvc, orders.NewInvoicer([]byte(cfg.InvoiceSecret))),
		Payments:      pay.NewHandlers(paymentSvc),
		Hub:           hub,
		PaymentLookup: paymentSvc,
	})

	// apply middleware: CORS → security headers → logging → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.IdempotencyHeader},
		ExposedHeaders:   []string{"Idempotent-Replayed"},
		AllowCredentials: true,
	}).Handler(router)

	server := &http.Server{
		Addr:              cfg.Port,
		Handler:           loggingMiddleware(securityHeaders(corsHandler)),
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	server.RegisterOnShutdown(func() {
		log.Println("Shutting down payment hub...")
		hub.Stop()
	})

	go func() {
		log.Printf("Server listening on %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutdown signal received; shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
	// payments still waiting on their timer are picked up by the next sweep
	processor.Stop()
	if err := store.Close(shutdownCtx); err != nil {
		log.Printf("mongo disconnect: %v", err)
	}
	log.Println("Server stopped cleanly")
}
