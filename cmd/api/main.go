package main

import (
	"database/sql"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ForeFoldAi/ssrfm-materials-backend/internal/modules/auth"
	"github.com/ForeFoldAi/ssrfm-materials-backend/internal/modules/inventory"
	"github.com/ForeFoldAi/ssrfm-materials-backend/internal/modules/requisition"
	"github.com/ForeFoldAi/ssrfm-materials-backend/internal/modules/supplier"
	"github.com/ForeFoldAi/ssrfm-materials-backend/internal/modules/user"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	if err := godotenv.Load(); err != nil {
		log.Info("no .env file, using process environment")
	}

	db, err := sql.Open("postgres", os.Getenv("DATABASE_URL"))
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.WithError(err).Fatal("ping database")
	}
	log.Info("connected to database")

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)

	// ── Identity ────────────────────────────────────────────
	userRepo := user.NewPostgresRepository(db)
	userService := user.NewService(userRepo)
	user.NewHandler(userService).RegisterRoutes(router)

	authService := auth.NewService(userRepo)
	auth.NewHandler(authService).RegisterRoutes(router)

	// ── Supplier directory ──────────────────────────────────
	supplierRepo := supplier.NewPostgresRepository(db)
	supplierService := supplier.NewService(supplierRepo)
	supplier.NewHandler(supplierService).RegisterRoutes(router)

	// ── Inventory ledger ────────────────────────────────────
	itemRepo := inventory.NewPostgresRepository(db)
	inventoryService := inventory.NewService(itemRepo)
	inventory.NewHandler(inventoryService).RegisterRoutes(router)

	// ── Request lifecycle ───────────────────────────────────
	// The lifecycle engine records receipt facts; applying them to the
	// ledger is an idempotent reconciliation step through the inventory
	// service, retryable via the reconcile endpoint.
	requisitionRepo := requisition.NewPostgresRepository(db)
	requisitionService := requisition.NewService(requisitionRepo, inventoryService, log)
	requisition.NewHandler(requisitionService).RegisterRoutes(router)

	router.Handle("/metrics", promhttp.Handler())

	// ── Start server ─────────────────────────────────────────
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}
	log.WithField("port", port).Info("materials API server starting")
	log.Fatal(http.ListenAndServe(":"+port, router))
}
