package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/nestars16/study-buddy/internal/auth"
	"github.com/nestars16/study-buddy/internal/config"
	"github.com/nestars16/study-buddy/internal/db"
	"github.com/nestars16/study-buddy/internal/documents"
	"github.com/nestars16/study-buddy/internal/live"
	"github.com/nestars16/study-buddy/internal/middleware"
	"github.com/nestars16/study-buddy/internal/pdf"
	"golang.org/x/time/rate"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	response := "Server is up!"
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, response)
}

func main() {
	_ = godotenv.Load(".env.local")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	db.Connect()
	auth.Init()
	documents.Init()

	middleware.SecureCookies = cfg.SecureCookies

	hub := live.NewHub()
	pdfClient := pdf.NewClient(cfg.PDFAPIURL, cfg.PDFAPIKey)

	// One bucket per IP, ~1 attempt/sec with a small burst, on the
	// credential endpoints only.
	limiter := middleware.NewRateLimiter(rate.Limit(1), 5)

	r := chi.NewRouter()
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Get("/", RootHandler)

	r.Mount("/users", auth.SetupRoutes(limiter))
	r.Mount("/documents", documents.SetupRoutes(hub, pdfClient, cfg.AllowedOrigins))

	fmt.Println("Server listening on port :" + cfg.Port + "...")

	http.ListenAndServe("0.0.0.0:"+cfg.Port, r)
}
