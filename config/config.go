package config

import (
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Port          string
	PublicBaseURL string

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTKey    string
	SaltRound int

	LogLevel  string
	LogFormat string

	Storage StorageConfig
	Redis   RedisConfig

	NatsURL string

	SendGridAPIKey string
	EmailSender    string
	EmailFromName  string
	SMSApiURL      string
	SMSApiKey      string

	AdminEmail    string
	AdminPassword string
	AdminName     string

	RateLimitRPS   float64
	RateLimitBurst int

	ReminderCron      string
	ReminderStaleDays int
}

type StorageConfig struct {
	Provider      string // local, memory, s3, gcs, azure
	Bucket        string
	LocalPath     string
	URLExpiry     int // seconds, for presigned URLs
	AWSRegion     string
	AWSAccessKey  string
	AWSSecretKey  string
	AWSEndpoint   string
	AWSPathStyle  bool
	GCPProjectID  string
	GCPKeyFile    string
	AzureAccount  string
	AzureKey      string
	AzureEndpoint string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	AppConfig = &Config{
		Port:          v.GetString("PORT"),
		PublicBaseURL: strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),

		DBDriver:   strings.ToLower(v.GetString("DB_DRIVER")),
		DBHost:     v.GetString("DB_HOST"),
		DBPort:     v.GetString("DB_PORT"),
		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBName:     v.GetString("DB_NAME"),
		DBSSLMode:  v.GetString("DB_SSLMODE"),

		JWTKey:    v.GetString("JWT_SECRET_KEY"),
		SaltRound: v.GetInt("SALT_ROUND"),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),

		Storage: StorageConfig{
			Provider:      strings.ToLower(v.GetString("STORAGE_PROVIDER")),
			Bucket:        v.GetString("STORAGE_BUCKET"),
			LocalPath:     v.GetString("STORAGE_LOCAL_PATH"),
			URLExpiry:     v.GetInt("STORAGE_URL_EXPIRY"),
			AWSRegion:     v.GetString("AWS_REGION"),
			AWSAccessKey:  v.GetString("AWS_ACCESS_KEY_ID"),
			AWSSecretKey:  v.GetString("AWS_SECRET_ACCESS_KEY"),
			AWSEndpoint:   v.GetString("AWS_ENDPOINT"),
			AWSPathStyle:  v.GetBool("AWS_FORCE_PATH_STYLE"),
			GCPProjectID:  v.GetString("GCP_PROJECT_ID"),
			GCPKeyFile:    v.GetString("GCP_KEY_FILE"),
			AzureAccount:  v.GetString("AZURE_STORAGE_ACCOUNT"),
			AzureKey:      v.GetString("AZURE_STORAGE_KEY"),
			AzureEndpoint: v.GetString("AZURE_STORAGE_ENDPOINT"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},

		NatsURL: v.GetString("NATS_URL"),

		SendGridAPIKey: v.GetString("SENDGRID_API_KEY"),
		EmailSender:    v.GetString("EMAIL_SENDER"),
		EmailFromName:  v.GetString("EMAIL_FROM_NAME"),
		SMSApiURL:      v.GetString("SMS_API_URL"),
		SMSApiKey:      v.GetString("SMS_API_KEY"),

		AdminEmail:    strings.ToLower(strings.TrimSpace(v.GetString("ADMIN_EMAIL"))),
		AdminPassword: v.GetString("ADMIN_PASSWORD"),
		AdminName:     v.GetString("ADMIN_NAME"),

		RateLimitRPS:   v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst: v.GetInt("RATE_LIMIT_BURST"),

		ReminderCron:      v.GetString("REMINDER_CRON"),
		ReminderStaleDays: v.GetInt("REMINDER_STALE_DAYS"),
	}

	// Validate critical configuration
	if AppConfig.JWTKey == "defaultSecret" {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}
	if AppConfig.DBDriver == "sqlite" && AppConfig.DBName == "govdocs.db" {
		log.Println("Warning: Using default sqlite database file. Update DB_NAME in your environment.")
	}

	return AppConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "3000")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:3000")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "govdocs.db")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("JWT_SECRET_KEY", "defaultSecret")
	v.SetDefault("SALT_ROUND", 10)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("STORAGE_PROVIDER", "local")
	v.SetDefault("STORAGE_BUCKET", "govdocs")
	v.SetDefault("STORAGE_LOCAL_PATH", "./uploads")
	v.SetDefault("STORAGE_URL_EXPIRY", 900)
	v.SetDefault("AWS_REGION", "ap-south-1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("EMAIL_FROM_NAME", "Document Services Portal")
	v.SetDefault("ADMIN_NAME", "Administrator")
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("REMINDER_CRON", "0 9 * * *")
	v.SetDefault("REMINDER_STALE_DAYS", 3)
}
