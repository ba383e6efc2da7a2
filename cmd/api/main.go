package main

import (
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/lumenisp/panel/internal/cache"
	"github.com/lumenisp/panel/internal/handlers"
	"github.com/lumenisp/panel/internal/middleware"
	"github.com/lumenisp/panel/internal/netwatch"
	"github.com/lumenisp/panel/internal/reconcile"
	"github.com/lumenisp/panel/internal/store"
	"github.com/lumenisp/panel/internal/wa"
	"github.com/lumenisp/panel/pkg/database"
	"github.com/lumenisp/panel/pkg/logger"
	"github.com/lumenisp/panel/pkg/redis"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger
	log := logger.New()
	log.Info("Starting Lumen ISP Panel API v1.0.0...")

	// Connect to database
	db, err := database.Connect()
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()
	log.Info("Database connected successfully")

	// Run migrations
	if err := db.RunMigrations("./migrations"); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}
	log.Info("Migrations completed")

	// Redis is optional; without it the rate limiter passes everything
	redisClient, err := redis.Connect()
	if err != nil {
		log.Warn("Redis unavailable, rate limiting disabled", "error", err.Error())
		redisClient = nil
	}

	// Cache store for router snapshots and network status
	dataDir := getEnv("DATA_DIR", "data")
	cacheStore, err := cache.NewStore(dataDir)
	if err != nil {
		log.Fatal("Failed to create cache directory", "error", err)
	}

	customers := store.NewCustomerStore(db)
	servers := store.NewServerStore(db)

	routerTimeout := envDuration("ROUTER_TIMEOUT", 15*time.Second)
	reconciler := reconcile.New(nil, cacheStore, customers, servers, routerTimeout, log)

	// WhatsApp gateway; without a configured URL sends are logged and dropped
	var sender wa.Sender
	if gatewayURL := os.Getenv("WA_GATEWAY_URL"); gatewayURL != "" {
		sender = wa.NewGateway(gatewayURL, os.Getenv("WA_GATEWAY_TOKEN"), log)
	} else {
		log.Warn("WA_GATEWAY_URL not set, WhatsApp sends disabled")
		sender = &wa.Noop{Logger: log}
	}

	// Background network monitor
	monitor := netwatch.New(
		servers,
		cacheStore,
		netwatch.RouterDialer(routerTimeout),
		envDuration("MONITOR_INTERVAL", 5*time.Minute),
		envDuration("MONITOR_INITIAL_DELAY", 10*time.Second),
		log,
	)
	monitor.Start()
	defer monitor.Stop()

	// Initialize handlers
	h := handlers.New(db, log, cacheStore, reconciler, customers, servers, sender)

	// Create router
	r := mux.NewRouter()

	// ============== PUBLIC ROUTES (No Auth) ==============
	r.HandleFunc("/api/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/api/auth/login", h.Login).Methods("POST")
	r.HandleFunc("/api/auth/register", h.Register).Methods("POST")

	// ============== PROTECTED ROUTES (JWT Auth) ==============
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.AuthMiddleware)

	// Auth
	api.HandleFunc("/auth/refresh", h.RefreshToken).Methods("POST")

	// Dashboard
	api.HandleFunc("/dashboard/stats", h.GetDashboardStats).Methods("GET")

	// Users
	api.HandleFunc("/users", h.GetUsers).Methods("GET")
	api.HandleFunc("/users/{id}", h.GetUser).Methods("GET")
	api.HandleFunc("/users/{id}", h.UpdateUser).Methods("PUT")
	api.HandleFunc("/users/{id}", h.DeleteUser).Methods("DELETE")

	// Mikrotik sync and cached snapshots; sync runs are rate limited since
	// each one opens a live router session
	rl := middleware.NewRateLimiter(redisClient, envInt("SYNC_RATE_LIMIT", 30), time.Minute)
	sync := api.PathPrefix("/mikrotik").Subrouter()
	sync.Use(rl.Middleware)
	sync.HandleFunc("/sync", h.SyncMikrotik).Methods("POST")
	api.HandleFunc("/mikrotik/cache/{serverId}/{resource}", h.GetCachedResource).Methods("GET")
	api.HandleFunc("/mikrotik/sync-logs", h.GetSyncLogs).Methods("GET")
	api.HandleFunc("/mikrotik/sync-logs/stats", h.GetSyncLogStats).Methods("GET")
	api.HandleFunc("/mikrotik/sync-logs/cleanup", h.DeleteOldSyncLogs).Methods("DELETE")

	// Servers
	api.HandleFunc("/servers", h.GetServers).Methods("GET")
	api.HandleFunc("/servers", h.CreateServer).Methods("POST")
	api.HandleFunc("/servers/{id}", h.GetServer).Methods("GET")
	api.HandleFunc("/servers/{id}", h.UpdateServer).Methods("PUT")
	api.HandleFunc("/servers/{id}", h.DeleteServer).Methods("DELETE")

	// Customers
	api.HandleFunc("/customers", h.GetCustomers).Methods("GET")
	api.HandleFunc("/customers", h.CreateCustomer).Methods("POST")
	api.HandleFunc("/customers/{id}", h.GetCustomer).Methods("GET")
	api.HandleFunc("/customers/{id}", h.UpdateCustomer).Methods("PUT")

	// Network status
	api.HandleFunc("/network/status", h.GetNetworkStatus).Methods("GET")
	api.HandleFunc("/network/status/stats", h.GetNetworkStatusStats).Methods("GET")

	// Work orders
	api.HandleFunc("/workorders", h.GetWorkOrders).Methods("GET")
	api.HandleFunc("/workorders", h.CreateWorkOrder).Methods("POST")
	api.HandleFunc("/workorders/{id}/complete", h.CompleteWorkOrder).Methods("POST")
	api.HandleFunc("/workorders/{id}/cancel", h.CancelWorkOrder).Methods("POST")

	// Billing
	api.HandleFunc("/invoices", h.GetInvoices).Methods("GET")
	api.HandleFunc("/invoices", h.CreateInvoice).Methods("POST")
	api.HandleFunc("/invoices/{id}/status", h.SetInvoiceStatus).Methods("PUT")
	api.HandleFunc("/invoices/{id}/pay", h.MarkInvoicePaid).Methods("POST")
	api.HandleFunc("/invoices/{id}/history", h.GetInvoiceHistory).Methods("GET")
	api.Handle("/invoices/check-overdue",
		middleware.RequireRole("admin")(http.HandlerFunc(h.CheckOverdueInvoices))).Methods("POST")

	// Broadcast
	api.HandleFunc("/broadcast", h.Broadcast).Methods("POST")

	// Settings
	api.HandleFunc("/settings", h.GetSettings).Methods("GET")
	api.HandleFunc("/settings/get", h.GetSetting).Methods("GET")
	api.HandleFunc("/settings/update", h.UpdateSetting).Methods("PUT")

	// CORS configuration
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	port := getEnv("PORT", "8080")

	srv := &http.Server{
		Handler:      c.Handler(r),
		Addr:         ":" + port,
		WriteTimeout: 60 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	srv.Close()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func envInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
