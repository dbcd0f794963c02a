package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	NATS        NATSConfig
	Engine      EngineConfig
	Geo         GeoConfig
	Generator   GeneratorConfig
	Location    LocationConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CorsOrigins     []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	SSLMode      string
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
}

// EngineConfig holds match engine configuration
type EngineConfig struct {
	ViewerName        string
	ViewerAvatarURL   string
	MatchRadiusMeters float64
	MaxOwnPosts       int
	ReplyDelay        time.Duration
	DefaultOpener     string
	DefaultReply      string
	EventsTopic       string
}

// GeoConfig holds geospatial service configuration
type GeoConfig struct {
	ClusterCoarseMeters float64
	ClusterMediumMeters float64
	ClusterFineMeters   float64
	MediumZoom          int
	FineZoom            int
}

// GeneratorConfig holds candidate generator configuration
type GeneratorConfig struct {
	BatchSize    int
	SpreadMeters float64
	InboundLikes int
}

// LocationConfig holds the fallback viewer coordinate used when the
// location source fails
type LocationConfig struct {
	FallbackLatitude  float64
	FallbackLongitude float64
}

// Load loads configuration from environment variables
func Load() (Config, error) {
	config := Config{
		Environment: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CorsOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "crosspath"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
		},
		NATS: NATSConfig{
			URL:            getEnv("NATS_URL", "nats://localhost:4222"),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 1*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 2*time.Second),
		},
		Engine: EngineConfig{
			ViewerName:        getEnv("ENGINE_VIEWER_NAME", "You"),
			ViewerAvatarURL:   getEnv("ENGINE_VIEWER_AVATAR_URL", ""),
			MatchRadiusMeters: getEnvAsFloat("ENGINE_MATCH_RADIUS_METERS", 150),
			MaxOwnPosts:       getEnvAsInt("ENGINE_MAX_OWN_POSTS", 5),
			ReplyDelay:        getEnvAsDuration("ENGINE_REPLY_DELAY", 2500*time.Millisecond),
			DefaultOpener:     getEnv("ENGINE_DEFAULT_OPENER", "Hey! Looks like we crossed paths"),
			DefaultReply:      getEnv("ENGINE_DEFAULT_REPLY", "Sounds good!"),
			EventsTopic:       getEnv("ENGINE_EVENTS_TOPIC", "encounter"),
		},
		Geo: GeoConfig{
			ClusterCoarseMeters: getEnvAsFloat("GEO_CLUSTER_COARSE_METERS", 500),
			ClusterMediumMeters: getEnvAsFloat("GEO_CLUSTER_MEDIUM_METERS", 200),
			ClusterFineMeters:   getEnvAsFloat("GEO_CLUSTER_FINE_METERS", 80),
			MediumZoom:          getEnvAsInt("GEO_MEDIUM_ZOOM", 12),
			FineZoom:            getEnvAsInt("GEO_FINE_ZOOM", 15),
		},
		Generator: GeneratorConfig{
			BatchSize:    getEnvAsInt("GENERATOR_BATCH_SIZE", 8),
			SpreadMeters: getEnvAsFloat("GENERATOR_SPREAD_METERS", 1200),
			InboundLikes: getEnvAsInt("GENERATOR_INBOUND_LIKES", 1),
		},
		Location: LocationConfig{
			FallbackLatitude:  getEnvAsFloat("LOCATION_FALLBACK_LAT", 52.3676),
			FallbackLongitude: getEnvAsFloat("LOCATION_FALLBACK_LNG", 4.9041),
		},
	}

	return config, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return strings.Split(valueStr, ",")
}
