package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// This function will Load the ENVIORNMENT VARIABLES from .env if GO_ENV variable is not set
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil {
			return err
		}
	}

	return nil
}

type EnviornmentVariable struct {
	// All variables
	GO_ENV       string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	// Redis Configuration (empty URL keeps locking in-process)
	REDIS_URL string
	LOCK_TTL  int // seconds
	// Aggregation Configuration
	WEIGHT_POLICY_FILE      string
	AGGREGATION_EXAM_COUNT  string
	AGGREGATION_POINTS      string
	AGGREGATION_DENOMINATOR string
	// Reconciler Configuration
	CRON_ENABLED          bool
	RECONCILE_SCHEDULE    string
	RECONCILE_CONCURRENCY int
	// DigitalOcean Spaces Configuration
	DO_SPACES_ACCESS_KEY string
	DO_SPACES_SECRET_KEY string
	DO_SPACES_BUCKET     string
	DO_SPACES_REGION     string
	DO_SPACES_ENDPOINT   string
}

func Get() (*EnviornmentVariable, error) {

	// Database defaults
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}

	dbPort := os.Getenv("DB_PORT")
	if dbPort == "" {
		dbPort = "5432"
	}

	schedule := os.Getenv("RECONCILE_SCHEDULE")
	if schedule == "" {
		schedule = "0 0 3 * * *" // daily at 3 AM
	}

	envVariables := &EnviornmentVariable{
		GO_ENV:       os.Getenv("GO_ENV"),
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      dbHost,
		DB_PORT:      dbPort,
		DB_SSL_MODE:  os.Getenv("DB_SSL_MODE"),
		// Redis
		REDIS_URL: os.Getenv("REDIS_URL"),
		LOCK_TTL:  intOrDefault("LOCK_TTL", 30),
		// Aggregation
		WEIGHT_POLICY_FILE:      os.Getenv("WEIGHT_POLICY_FILE"),
		AGGREGATION_EXAM_COUNT:  os.Getenv("AGGREGATION_EXAM_COUNT"),
		AGGREGATION_POINTS:      os.Getenv("AGGREGATION_POINTS"),
		AGGREGATION_DENOMINATOR: os.Getenv("AGGREGATION_DENOMINATOR"),
		// Reconciler
		CRON_ENABLED:          os.Getenv("CRON_ENABLED") != "false", // Default to enabled
		RECONCILE_SCHEDULE:    schedule,
		RECONCILE_CONCURRENCY: intOrDefault("RECONCILE_CONCURRENCY", 4),
		// DigitalOcean
		DO_SPACES_ACCESS_KEY: os.Getenv("DO_SPACES_ACCESS_KEY"),
		DO_SPACES_SECRET_KEY: os.Getenv("DO_SPACES_SECRET_KEY"),
		DO_SPACES_BUCKET:     os.Getenv("DO_SPACES_BUCKET"),
		DO_SPACES_REGION:     os.Getenv("DO_SPACES_REGION"),
		DO_SPACES_ENDPOINT:   os.Getenv("DO_SPACES_ENDPOINT"),
	}

	return envVariables, nil
}

func intOrDefault(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
