package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port     string
	MySQLDSN string
	RedisURL string

	GeocodioAPIKey string
	UserAgent      string

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	SheetID          string
	SheetName        string
	SheetCredentials string
	CSVPath          string

	AdminToken      string
	MinExpectedRows int
	SessionTTL      time.Duration
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		if def == "" {
			log.Fatalf("missing env %s", key)
		}
		return def
	}
	return v
}

func Load() Config {
	minRows, _ := strconv.Atoi(getenv("MIN_EXPECTED_ROWS", "50"))
	ttl, _ := strconv.Atoi(getenv("SESSION_TTL_MINUTES", "30"))
	return Config{
		Port:     getenv("PORT", "8080"),
		MySQLDSN: getenv("MYSQL_DSN", "pledge:pledge@tcp(localhost:3306)/pledge"),
		RedisURL: getenv("REDIS_URL", "redis://localhost:6379/0"),

		GeocodioAPIKey: getenv("GEOCODIO_API_KEY", ""),
		UserAgent:      getenv("USER_AGENT", "The80PercentPledge/1.0"),

		SMTPHost: getenv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort: getenv("SMTP_PORT", "465"),
		SMTPUser: getenv("SMTP_USER", ""),
		SMTPPass: getenv("SMTP_PASS", ""),
		SMTPFrom: getenv("SMTP_FROM", "The 80% Pledge <the.80.percent.bill@gmail.com>"),

		// When SHEET_ID is empty the store falls back to the local CSV file.
		SheetID:          os.Getenv("SHEET_ID"),
		SheetName:        getenv("SHEET_NAME", "pledges"),
		SheetCredentials: os.Getenv("SHEETS_CREDENTIALS"),
		CSVPath:          getenv("CSV_PATH", "pledges.csv"),

		// Optional: with no token the admin surface stays unreachable.
		AdminToken:      os.Getenv("ADMIN_TOKEN"),
		MinExpectedRows: minRows,
		SessionTTL:      time.Duration(ttl) * time.Minute,
	}
}
