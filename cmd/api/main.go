// cmd/api/main.go
// Main entry point for the application
// This file bootstraps all components and starts the server

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/daymatch/daymatch-backend/internal/attractions"
	"github.com/daymatch/daymatch-backend/internal/auth"
	"github.com/daymatch/daymatch-backend/internal/calendar"
	"github.com/daymatch/daymatch-backend/internal/common/database"
	"github.com/daymatch/daymatch-backend/internal/config"
	"github.com/daymatch/daymatch-backend/internal/dates"
	"github.com/daymatch/daymatch-backend/internal/notifications"
	"github.com/daymatch/daymatch-backend/internal/users"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	log.Println("========================================")
	log.Println("🚀 Starting DayMatch API")
	log.Println("========================================")

	// 1. Load environment variables
	log.Println("📁 Step 1: Loading .env file...")
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  Warning: No .env file found (%v), using environment variables", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// 2. Load and validate configuration
	log.Println("\n📋 Step 2: Loading configuration...")
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("❌ Configuration validation failed:", err)
	}
	log.Println("✅ Configuration loaded and valid")

	// 3. Connect to PostgreSQL
	log.Println("\n🗄️  Step 3: Connecting to PostgreSQL...")
	db, err := database.NewPostgresDBFromURL(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("❌ Failed to connect to PostgreSQL:", err)
	}
	defer db.Close()
	log.Println("✅ Connected to PostgreSQL successfully")

	// 4. Connect to Redis (optional, modules fall back to the DB without it)
	log.Println("\n📮 Step 4: Connecting to Redis...")
	redisClient, err := database.NewRedisClientFromURL(cfg.RedisURL)
	if err != nil {
		log.Printf("⚠️  Redis unavailable (%v), continuing without cache", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		log.Println("✅ Connected to Redis successfully")
	}

	// 5. Run database migrations
	log.Println("\n🔨 Step 5: Running database migrations...")
	if err := runMigrations(db); err != nil {
		log.Fatal("❌ Failed to run migrations: ", err)
	}
	log.Println("✅ Database migrations completed")

	txManager := database.NewTxManager(db)

	// 6. Users module
	log.Println("\n👤 Step 6: Initializing Users module...")
	usersRepo := users.NewRepository(db)
	usersService := users.NewService(usersRepo, txManager,
		cfg.InitialTokenGrant, cfg.ReferralBonusTokens, cfg.MonthlyReplenishAmount)
	usersHandler := users.NewHandler(usersService)
	log.Println("✅ Users module initialized")

	// 7. Notifications module
	log.Println("\n🔔 Step 7: Initializing Notifications module...")
	notificationsRepo := notifications.NewRepository(db)

	var pushService notifications.PushService
	if cfg.EnablePushNotifications {
		fcm, err := notifications.NewFCMPushService(context.Background(), cfg.FirebaseCredentialsPath)
		if err != nil {
			log.Printf("⚠️  Warning: Failed to initialize FCM push service: %v", err)
			pushService = notifications.NewMockPushService()
		} else {
			pushService = fcm
			log.Println("   ✅ FCM push service initialized")
		}
	} else {
		pushService = notifications.NewMockPushService()
		log.Println("   📝 Using mock push service (development mode)")
	}

	notificationsService := notifications.NewService(notificationsRepo, usersRepo, pushService, redisClient)
	notificationsHandler := notifications.NewHandler(notificationsService)
	log.Println("✅ Notifications module initialized")

	// 8. Attractions module
	log.Println("\n💘 Step 8: Initializing Attractions module...")
	attractionsRepo := attractions.NewRepository(db)
	attractionsService := attractions.NewService(attractionsRepo, txManager,
		usersRepo, notificationsService, cfg.AttractionTokenCost)
	attractionsHandler := attractions.NewHandler(attractionsService)
	log.Println("✅ Attractions module initialized")

	// 9. Dates module
	log.Println("\n🗓️  Step 9: Initializing Dates module...")
	datesRepo := dates.NewRepository(db)
	datesService := dates.NewService(datesRepo, txManager, attractionsService,
		&dateNotifier{notificationsService})
	datesHandler := dates.NewHandler(datesService)
	log.Println("✅ Dates module initialized")

	// 10. Calendar module
	log.Println("\n📸 Step 10: Initializing Calendar module...")
	calendarRepo := calendar.NewRepository(db)

	var videoService calendar.VideoService
	if cfg.UseS3 {
		videoService, err = calendar.NewS3VideoService(calendar.S3VideoConfig{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			log.Fatal("❌ Failed to initialize S3 video storage: ", err)
		}
		log.Println("   ✅ Using S3 for story videos")
	} else {
		videoService = &calendar.MockVideoService{BaseURL: cfg.BaseURL}
		log.Println("   📝 Using mock video storage (development mode)")
	}

	zipcodeService := calendar.NewHTTPZipcodeService(cfg.ZipcodeAPIBaseURL,
		cfg.MaxDistanceMiles, redisClient, cfg.ZipcodeCacheDuration)

	calendarService := calendar.NewService(calendarRepo, videoService, zipcodeService, usersRepo)
	calendarHandler := calendar.NewHandler(calendarService)
	log.Println("✅ Calendar module initialized")

	// 11. Routes
	log.Println("\n🛣️  Step 11: Setting up routes...")
	router := mux.NewRouter()

	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	authMiddleware := auth.NewMiddleware(cfg.JWTSecret)

	users.RegisterRoutes(router, usersHandler, authMiddleware)
	dates.RegisterRoutes(router, datesHandler, authMiddleware)
	attractions.RegisterRoutes(router, attractionsHandler, authMiddleware)
	calendar.RegisterRoutes(router, calendarHandler, authMiddleware)
	notifications.RegisterRoutes(router, notificationsHandler, authMiddleware)

	router.Use(loggingMiddleware)
	router.Use(corsMiddleware)
	log.Println("✅ Routes registered")

	// Monthly token replenishment
	go startTokenReplenish(usersService)

	// 12. Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Println("\n========================================")
		log.Printf("🚀 Server starting on http://localhost%s", srv.Addr)
		log.Printf("🌍 Environment: %s", cfg.Environment)
		log.Println("========================================")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("❌ Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("\n⚠️  Shutdown signal received...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("❌ Server forced to shutdown:", err)
	}

	log.Println("✅ Server exited gracefully")
}

// dateNotifier adapts the notifications service to the dates module's
// Notifier interface. The two packages define the proposal summary
// independently to avoid a dates -> notifications import.
type dateNotifier struct {
	svc notifications.Service
}

func (n *dateNotifier) SendDateProposalNotification(ctx context.Context, senderID, receiverID string, details dates.ProposalDetails) error {
	return n.svc.SendDateProposalNotification(ctx, senderID, receiverID, notifications.DateProposalDetails{
		DateID: details.DateID,
		Date:   details.Date,
		Time:   details.Time,
		Venue:  details.Venue,
	})
}

func (n *dateNotifier) SendDateResponseNotification(ctx context.Context, responderID, receiverID string, accepted bool, dateID int64) error {
	return n.svc.SendDateResponseNotification(ctx, responderID, receiverID, accepted, dateID)
}

func (n *dateNotifier) SendDateRescheduledNotification(ctx context.Context, updaterID, receiverID string, dateID int64) error {
	return n.svc.SendDateRescheduledNotification(ctx, updaterID, receiverID, dateID)
}

func (n *dateNotifier) SendDateCancelledNotification(ctx context.Context, cancellerID, receiverID string, dateID int64) error {
	return n.svc.SendDateCancelledNotification(ctx, cancellerID, receiverID, dateID)
}

// startTokenReplenish tops every balance back up on the first of each month.
func startTokenReplenish(svc users.Service) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	var lastRun string // "2026-08" once run for that month

	for range ticker.C {
		now := time.Now().UTC()
		month := now.Format("2006-01")
		if now.Day() != 1 || month == lastRun {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		if err := svc.ReplenishAllTokens(ctx); err != nil {
			log.Printf("[Replenish] Monthly token replenishment failed: %v", err)
		} else {
			lastRun = month
		}
		cancel()
	}
}

var startTime = time.Now()

// loggingMiddleware logs all requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		log.Printf("→ %s %s from %s", r.Method, r.RequestURI, r.RemoteAddr)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		log.Printf("← %s %s [%d] %v", r.Method, r.RequestURI, wrapped.statusCode, duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// healthCheck returns server health status
func healthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(startTime).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// runMigrations executes database migrations
func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id UUID PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			first_name VARCHAR(100) NOT NULL,
			last_name VARCHAR(100) NOT NULL,
			profile_picture_url TEXT,
			video_url TEXT,
			zipcode VARCHAR(10),
			stickers JSONB,
			tokens INTEGER NOT NULL DEFAULT 0,
			enable_notifications BOOLEAN NOT NULL DEFAULT TRUE,
			is_profile_complete BOOLEAN NOT NULL DEFAULT FALSE,
			fcm_token TEXT,
			referral_source VARCHAR(100),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE
		)`,

		`CREATE TABLE IF NOT EXISTS user_blocks (
			blocker_id UUID NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
			blocked_id UUID NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (blocker_id, blocked_id)
		)`,

		`CREATE TABLE IF NOT EXISTS calendar_day (
			calendar_id BIGSERIAL PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
			date VARCHAR(10) NOT NULL,
			user_video_url TEXT,
			video_uri TEXT,
			processing_status VARCHAR(20) NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE,
			CONSTRAINT uniq_calendar_day_per_user UNIQUE (user_id, date)
		)`,

		`CREATE TABLE IF NOT EXISTS attractions (
			attraction_id BIGSERIAL PRIMARY KEY,
			user_from UUID NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
			user_to UUID NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
			date VARCHAR(10) NOT NULL,
			romantic_rating INTEGER NOT NULL DEFAULT 0,
			sexual_rating INTEGER NOT NULL DEFAULT 0,
			friendship_rating INTEGER NOT NULL DEFAULT 0,
			result BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE,
			CONSTRAINT uniq_attraction_per_story UNIQUE (user_from, user_to, date)
		)`,

		`CREATE TABLE IF NOT EXISTS dates (
			date_id BIGSERIAL PRIMARY KEY,
			date VARCHAR(10) NOT NULL,
			time VARCHAR(20),
			user_from UUID NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
			user_to UUID NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
			user_from_approved BOOLEAN NOT NULL DEFAULT FALSE,
			user_to_approved BOOLEAN NOT NULL DEFAULT FALSE,
			location_metadata JSONB,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE
		)`,

		// One open proposal per pair per day. The service performs the same
		// check to produce a friendly error; the index closes the race
		// between two concurrent inserts.
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_open_date_per_pair
			ON dates (LEAST(user_from, user_to), GREATEST(user_from, user_to), date)
			WHERE status IN ('pending', 'approved')`,

		`CREATE TABLE IF NOT EXISTS date_feedback (
			feedback_id BIGSERIAL PRIMARY KEY,
			date_id BIGINT NOT NULL REFERENCES dates(date_id) ON DELETE CASCADE,
			user_id UUID NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
			outcome VARCHAR(20) NOT NULL,
			notes TEXT,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT uniq_feedback_per_user UNIQUE (date_id, user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS notifications (
			notification_id BIGSERIAL PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
			message TEXT NOT NULL,
			type VARCHAR(40) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'unread',
			related_entity_id VARCHAR(64),
			proposing_user_id UUID,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_dates_user_from ON dates(user_from)`,
		`CREATE INDEX IF NOT EXISTS idx_dates_user_to ON dates(user_to)`,
		`CREATE INDEX IF NOT EXISTS idx_dates_date ON dates(date)`,
		`CREATE INDEX IF NOT EXISTS idx_attractions_reciprocal ON attractions(user_to, user_from, date)`,
		`CREATE INDEX IF NOT EXISTS idx_calendar_day_date ON calendar_day(date)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_users_zipcode ON users(zipcode)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			if strings.Contains(err.Error(), "already exists") {
				continue
			}
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
