package main

import (
	"log"
	"net/http"
	"os"
	"path/filepath"

	"rutacontrol-backend/internal/config"
	"rutacontrol-backend/internal/database"
	"rutacontrol-backend/internal/handlers"
	"rutacontrol-backend/internal/middleware"
	"rutacontrol-backend/internal/services"
	"rutacontrol-backend/internal/turnos"
	"rutacontrol-backend/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
)

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 RUTACONTROL BACKEND SERVER STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	// Load .env file
	log.Println("📂 Loading environment variables...")
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables from system")
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := config.Load()

	log.Println("🔍 Checking DATABASE_URL environment variable...")
	if cfg.DatabaseURL == "" {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: DATABASE_URL environment variable is required")
		log.Println("   Please set DATABASE_URL in deployment Variables or .env file")
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal("DATABASE_URL environment variable is required")
	}
	log.Println("✅ DATABASE_URL found")

	if cfg.JWTSecret == "" {
		log.Fatal("APP_JWT_SECRET environment variable is required")
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Database connection failed")
		log.Printf("   Error: %v", err)
		log.Println("   This is usually caused by:")
		log.Println("   1. Wrong DATABASE_URL format")
		log.Println("   2. PostgreSQL service is down")
		log.Println("   3. Network connectivity issue")
		log.Println("   4. Invalid credentials")
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	defer db.Close()

	// Run migrations
	log.Println("🔄 Running database migrations...")
	if err := database.Migrate(db); err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Database migrations failed")
		log.Printf("   Error: %v", err)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}

	// Seed database
	log.Println("🌱 Seeding database with initial data...")
	if err := database.Seed(db); err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Database seeding failed")
		log.Printf("   Error: %v", err)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	log.Println("✅ Database seeded successfully")

	// Initialize Firebase Cloud Messaging
	// Supports both file path and base64-encoded credentials (for cloud deployments)
	var fcmService *services.FCMService
	fcmCredsBase64 := os.Getenv("FIREBASE_CREDENTIALS_BASE64")

	if fcmCredsBase64 != "" {
		fcmService, err = services.NewFCMServiceFromBase64(fcmCredsBase64)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from base64: %v (push notifications disabled)", err)
			fcmService = nil
		} else {
			log.Println("✅ Firebase Cloud Messaging initialized from base64 credentials")
		}
	} else {
		fcmCredentialsFile := os.Getenv("FIREBASE_CREDENTIALS_FILE")
		if fcmCredentialsFile == "" {
			fcmCredentialsFile = "./firebase-service-account.json"
		}

		fcmService, err = services.NewFCMService(fcmCredentialsFile)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from file: %v (push notifications disabled)", err)
			fcmService = nil
		} else {
			log.Println("✅ Firebase Cloud Messaging initialized from file")
		}
	}

	// Turno engine and checkpoint ledger
	engine := turnos.NewEngine(db, cfg.LateThreshold)
	ledger := turnos.NewLedger(db)

	// Initialize WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()
	log.Println("✅ WebSocket hub started")

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Session routes (no auth required)
	r.Post("/login", handlers.Login(db, cfg))
	r.Post("/cambiar-password", handlers.CambiarPassword(db))
	r.Post("/logout", handlers.Logout())

	// WebSocket endpoint (authentication handled in handler via query param)
	r.Get("/ws", websocket.HandleWebSocket(wsHub, cfg.JWTSecret))

	// Turno lifecycle
	r.Get("/turnos", handlers.GetTurnos(db))
	r.Get("/turno-activo", handlers.GetTurnoActivo(db, engine, wsHub, fcmService))
	r.Get("/viaje-activo", handlers.GetViajeActivo(engine))
	r.Post("/iniciar-viaje", handlers.IniciarViaje(db, engine, wsHub, fcmService))
	r.Post("/finalizar-turno", handlers.FinalizarTurno(engine, wsHub))
	r.Get("/limpiar-turnos", handlers.LimpiarTurnos(engine))

	// Checkpoint marking
	r.Get("/puntos", handlers.GetPuntos(db))
	r.Get("/puntos-turno", handlers.GetPuntosTurno(ledger))
	r.Get("/puntos-marcados", handlers.GetPuntosMarcados(engine, ledger))
	r.Post("/verificar-rango", handlers.VerificarRango(ledger, cfg))
	r.Post("/calcular-diferencia", handlers.CalcularDiferencia(ledger))
	r.Post("/marcarpunto", handlers.MarcarPunto(ledger, wsHub))
	r.Post("/omitir_punto", handlers.OmitirPunto(ledger))

	// Reports
	r.Get("/vista-previa/{idturno}", handlers.VistaPrevia(db, ledger))
	r.Get("/dowpdf/{idturno}", handlers.DescargarPDF(db, ledger))

	// Incident reporting and photo uploads (multipart)
	r.Post("/api/reportar_incidente", handlers.ReportarIncidente(db, cfg))
	r.Post("/api/subir_foto_perfil", handlers.SubirFotoPerfil(db, cfg))
	r.Get("/incidentes_por_turno/{idTurno}", handlers.GetIncidentesPorTurno(db))

	// Uploaded photos are served statically
	fileServer(r, "/incidenteupload", filepath.Join(cfg.UploadDir, "incidenteupload"))
	fileServer(r, "/perfilupload", filepath.Join(cfg.UploadDir, "perfilupload"))

	// Authenticated driver endpoints
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))

		r.Post("/fcm-token", handlers.RegisterFCMToken(db))
	})

	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("✅ ALL INITIALIZATION COMPLETE")
	log.Printf("🚀 Server starting on http://localhost:%s", cfg.Port)
	log.Println("🔌 Ready to accept requests!")
	log.Println("═══════════════════════════════════════════════════════════════════")

	// Start server
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Server failed to start")
		log.Printf("   Error: %v", err)
		log.Printf("   Port: %s", cfg.Port)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
}

// fileServer mounts a directory of uploaded photos under the given prefix
func fileServer(r chi.Router, prefix, dir string) {
	fs := http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))
	r.Get(prefix+"/*", func(w http.ResponseWriter, req *http.Request) {
		fs.ServeHTTP(w, req)
	})
}
