package utils

import (
	"errors"
	"io/fs"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Mongo     MongoConfig
	Booking   BookingConfig
	Redis     RedisConfig
	Events    EventsConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Name    string
	Port    string
	Debug   bool
	LogPath string
}

type DatabaseConfig struct {
	Driver      string
	Host        string
	Port        string
	Name        string
	User        string
	Password    string
	SSLMode     string
	MaxConns    int32
	AutoMigrate bool
}

type MongoConfig struct {
	URI      string
	Database string
}

type BookingConfig struct {
	MaxDurationHours int
	UpcomingLimit    int
	CodeAttempts     int
}

type RedisConfig struct {
	Addr            string
	Password        string
	DB              int
	CalendarTTLSecs int
}

type EventsConfig struct {
	AMQPURL  string
	Exchange string
}

type RateLimitConfig struct {
	PerMinute   int
	Burst       int
	IdleMinutes int
	// TrustProxy honours X-Real-IP; enable only behind a proxy that sets it.
	TrustProxy bool
}

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("APP_NAME", "charger-booking")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("DB_DRIVER", DriverPostgres)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("DB_AUTO_MIGRATE", true)
	viper.SetDefault("MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0")
	viper.SetDefault("MONGO_DB", "charger")
	viper.SetDefault("BOOKING_MAX_DURATION_HOURS", 24)
	viper.SetDefault("BOOKING_UPCOMING_LIMIT", 5)
	viper.SetDefault("BOOKING_CODE_ATTEMPTS", 5)
	viper.SetDefault("CALENDAR_CACHE_TTL_SECONDS", 300)
	viper.SetDefault("AMQP_EXCHANGE", "charger.bookings")
	viper.SetDefault("RATE_LIMIT_PER_MINUTE", 60)
	viper.SetDefault("RATE_LIMIT_BURST", 10)
	viper.SetDefault("RATE_LIMIT_IDLE_MINUTES", 10)
	viper.SetDefault("RATE_LIMIT_TRUST_PROXY", false)

	// .env is optional; the environment alone is enough in containers
	if err := viper.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:    viper.GetString("APP_NAME"),
			Port:    viper.GetString("PORT"),
			Debug:   viper.GetBool("DEBUG"),
			LogPath: viper.GetString("LOG_PATH"),
		},
		Database: DatabaseConfig{
			Driver:      viper.GetString("DB_DRIVER"),
			Host:        viper.GetString("DB_HOST"),
			Port:        viper.GetString("DB_PORT"),
			Name:        viper.GetString("DB_NAME"),
			User:        viper.GetString("DB_USER"),
			Password:    viper.GetString("DB_PASS"),
			SSLMode:     viper.GetString("DB_SSLMODE"),
			MaxConns:    viper.GetInt32("DB_MAX_CONNS"),
			AutoMigrate: viper.GetBool("DB_AUTO_MIGRATE"),
		},
		Mongo: MongoConfig{
			URI:      viper.GetString("MONGO_URI"),
			Database: viper.GetString("MONGO_DB"),
		},
		Booking: BookingConfig{
			MaxDurationHours: viper.GetInt("BOOKING_MAX_DURATION_HOURS"),
			UpcomingLimit:    viper.GetInt("BOOKING_UPCOMING_LIMIT"),
			CodeAttempts:     viper.GetInt("BOOKING_CODE_ATTEMPTS"),
		},
		Redis: RedisConfig{
			Addr:            viper.GetString("REDIS_ADDR"),
			Password:        viper.GetString("REDIS_PASSWORD"),
			DB:              viper.GetInt("REDIS_DB"),
			CalendarTTLSecs: viper.GetInt("CALENDAR_CACHE_TTL_SECONDS"),
		},
		Events: EventsConfig{
			AMQPURL:  viper.GetString("AMQP_URL"),
			Exchange: viper.GetString("AMQP_EXCHANGE"),
		},
		RateLimit: RateLimitConfig{
			PerMinute:   viper.GetInt("RATE_LIMIT_PER_MINUTE"),
			Burst:       viper.GetInt("RATE_LIMIT_BURST"),
			IdleMinutes: viper.GetInt("RATE_LIMIT_IDLE_MINUTES"),
			TrustProxy:  viper.GetBool("RATE_LIMIT_TRUST_PROXY"),
		},
	}

	return config, nil
}

// DefaultBookingConfig is what LoadConfig yields without overrides.
func DefaultBookingConfig() BookingConfig {
	return BookingConfig{
		MaxDurationHours: 24,
		UpcomingLimit:    5,
		CodeAttempts:     5,
	}
}
