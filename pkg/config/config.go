package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                string
	DatabaseURL         string
	JWTSecret           string
	JWTAccessExpiry     time.Duration
	GoogleClientID      string
	GoogleClientSecret  string
	GoogleProjectID     string
	GooglePubSubTopic   string
	GoogleCredentials   string // path to service-account JSON for Pub/Sub
	FirebaseCredentials string // path to service-account JSON for FCM
	SnoozeSweepInterval time.Duration
	SnoozeTimezone      string
	SnoozedLabelName    string
	RealtimeMaxPerUser  int
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:                getEnv("PORT", "8080"),
		DatabaseURL:         getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=mailboard port=5432 sslmode=disable"),
		JWTSecret:           getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTAccessExpiry:     getDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
		GoogleClientID:      getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:  getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleProjectID:     getEnv("GOOGLE_PROJECT_ID", ""),
		GooglePubSubTopic:   getEnv("GOOGLE_PUBSUB_TOPIC", ""),
		GoogleCredentials:   getEnv("GOOGLE_CREDENTIALS", ""),
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),
		SnoozeSweepInterval: getDuration("SNOOZE_SWEEP_INTERVAL", time.Minute),
		SnoozeTimezone:      getEnv("SNOOZE_TIMEZONE", "UTC"),
		SnoozedLabelName:    getEnv("SNOOZED_LABEL_NAME", "Snoozed"),
		RealtimeMaxPerUser:  getInt("REALTIME_MAX_PER_USER", 5),
	}
}

// Location resolves SnoozeTimezone, falling back to UTC when it is unknown
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.SnoozeTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}
