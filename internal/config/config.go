// Package config loads platform configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"atmcorr-platform/internal/models"
)

// Config holds all platform configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Logging    LoggingConfig
	Correction CorrectionConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
}

// CorrectionConfig holds the correction run settings
type CorrectionConfig struct {
	// Lookup tables: directory parameterized by sensor, atmospheric profile
	// and viewing geometry, holding one table file per band.
	ILUTDir   string
	Sensor    string
	BandCount int

	// AOI bounding box for catalog, atmosphere and terrain queries.
	AOI models.AOI

	// External collaborators.
	CatalogURL    string
	AtmosphereURL string
	TerrainURL    string

	// Batch behavior.
	Workers         int
	MaxRetries      int
	ApplyCorrection bool
	RasterDir       string
	ReportPath      string
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "atmcorr"),
			Password:        getEnv("DB_PASSWORD", "atmcorr"),
			Database:        getEnv("DB_NAME", "atmcorr"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Correction: CorrectionConfig{
			ILUTDir:   getEnv("ILUT_DIR", "./files/iluts/S2A_MSI/continental/view_zenith_0"),
			Sensor:    getEnv("SENSOR", "S2A_MSI"),
			BandCount: getEnvInt("BAND_COUNT", 13),
			AOI: models.AOI{
				West:  getEnvFloat("AOI_WEST", 85.5268682942167402),
				South: getEnvFloat("AOI_SOUTH", 25.6240533612814261),
				East:  getEnvFloat("AOI_EAST", 85.7263954375090407),
				North: getEnvFloat("AOI_NORTH", 25.8241594034421382),
			},
			CatalogURL:      getEnv("CATALOG_URL", "http://localhost:9001"),
			AtmosphereURL:   getEnv("ATMOSPHERE_URL", "http://localhost:9002"),
			TerrainURL:      getEnv("TERRAIN_URL", "http://localhost:9003"),
			Workers:         getEnvInt("CORRECTION_WORKERS", 4),
			MaxRetries:      getEnvInt("CORRECTION_MAX_RETRIES", 3),
			ApplyCorrection: getEnvBool("APPLY_CORRECTION", false),
			RasterDir:       getEnv("RASTER_DIR", "./corrected"),
			ReportPath:      getEnv("REPORT_PATH", "./coeff_list.txt"),
		},
	}

	return cfg, nil
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be at least 1")
	}
	if c.Correction.BandCount < 1 {
		return fmt.Errorf("BAND_COUNT must be at least 1")
	}
	if c.Correction.Workers < 1 {
		return fmt.Errorf("CORRECTION_WORKERS must be at least 1")
	}
	if c.Correction.MaxRetries < 0 {
		return fmt.Errorf("CORRECTION_MAX_RETRIES must not be negative")
	}
	if err := c.Correction.AOI.Validate(); err != nil {
		return err
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
