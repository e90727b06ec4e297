package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// Config holds everything main needs to wire the server. Values come from an
// optional yaml file first, then environment variables override. Secrets
// (DATABASE_URL, PDF_API_KEY) are env-only and never belong in the file.
type Config struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	SecureCookies  bool     `yaml:"secure_cookies"`
	PDFAPIURL      string   `yaml:"pdf_api_url"`

	DatabaseURL string `yaml:"-"`
	PDFAPIKey   string `yaml:"-"`
}

const defaultPDFAPIURL = "https://api.pdfendpoint.com/v1/convert"

func defaults() Config {
	return Config{
		Port:           "5050",
		AllowedOrigins: []string{"http://localhost:5173"},
		SecureCookies:  false,
		PDFAPIURL:      defaultPDFAPIURL,
	}
}

// Load reads the yaml file at path (missing file is fine) and applies env
// overrides on top of the built-in defaults.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parsing %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = splitAndTrim(origins)
	}
	if secure := os.Getenv("SECURE_COOKIES"); secure != "" {
		cfg.SecureCookies = secure == "true" || secure == "1"
	}
	if url := os.Getenv("PDF_API_URL"); url != "" {
		cfg.PDFAPIURL = url
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.PDFAPIKey = os.Getenv("PDF_API_KEY")

	return cfg, nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
