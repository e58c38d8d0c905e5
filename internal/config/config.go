package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Pricing  PricingConfig
	Routing  RoutingConfig
	Location LocationConfig
	Offers   OffersConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// PricingConfig holds fare calculation parameters. All amounts are in
// whole currency units.
type PricingConfig struct {
	BaseFare     float64
	PerKmRate    float64
	SameZoneFare int64
	MinFare      int64
	MaxFare      int64
	FoodPerKm    float64
	ZoneRadiusKm float64
}

// RoutingConfig holds route resolution parameters. An empty OSRMURL
// disables the external resolver and every route falls back to the
// straight-line estimate.
type RoutingConfig struct {
	OSRMURL string
	Timeout time.Duration
}

// LocationConfig holds live tracking parameters.
type LocationConfig struct {
	SampleTTL    time.Duration
	MaxSampleAge time.Duration
}

// OffersConfig holds the bidding window and janitor parameters.
type OffersConfig struct {
	Window          time.Duration
	JanitorInterval time.Duration
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "dispatch"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "dispatch-service"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Pricing: PricingConfig{
			BaseFare:     getFloatEnv("PRICING_BASE_FARE", 5),
			PerKmRate:    getFloatEnv("PRICING_PER_KM_RATE", 3),
			SameZoneFare: int64(getIntEnv("PRICING_SAME_ZONE_FARE", 15)),
			MinFare:      int64(getIntEnv("PRICING_MIN_FARE", 10)),
			MaxFare:      int64(getIntEnv("PRICING_MAX_FARE", 400)),
			FoodPerKm:    getFloatEnv("PRICING_FOOD_PER_KM", 4),
			ZoneRadiusKm: getFloatEnv("PRICING_ZONE_RADIUS_KM", 2),
		},
		Routing: RoutingConfig{
			OSRMURL: getEnv("OSRM_URL", ""),
			Timeout: getDurationEnv("OSRM_TIMEOUT", 3*time.Second),
		},
		Location: LocationConfig{
			SampleTTL:    getDurationEnv("LOCATION_SAMPLE_TTL", 10*time.Minute),
			MaxSampleAge: getDurationEnv("LOCATION_MAX_SAMPLE_AGE", 2*time.Minute),
		},
		Offers: OffersConfig{
			Window:          getDurationEnv("OFFER_WINDOW", 30*time.Minute),
			JanitorInterval: getDurationEnv("OFFER_JANITOR_INTERVAL", 5*time.Minute),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
