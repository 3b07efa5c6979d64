package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIBaseURL     string `yaml:"api_base_url"`
	StorageBackend string `yaml:"storage_backend"`
	StoragePath    string `yaml:"storage_path"`
	MetricsAddr    string `yaml:"metrics_addr"`

	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBHost     string `yaml:"db_host"`
	DBPort     string `yaml:"db_port"`
	DBName     string `yaml:"db_name"`

	RedisURL       string `yaml:"redis_url"`
	RedisKeyPrefix string `yaml:"redis_key_prefix"`

	RabbitMQURL     string `yaml:"rabbitmq_url"`
	OrderExchange   string `yaml:"order_exchange"`
	OrderQueue      string `yaml:"order_queue"`
	DeadLetterQueue string `yaml:"dead_letter_queue"`
	MaxPriority     int    `yaml:"max_priority"`

	// development API server
	ServerPort    string        `yaml:"server_port"`
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	AdminEmail    string        `yaml:"admin_email"`
	AdminPassword string        `yaml:"admin_password"`
}

func defaults() *Config {
	return &Config{
		APIBaseURL:      "http://localhost:5555",
		StorageBackend:  "sqlite",
		StoragePath:     "storefront.db",
		DBUser:          "root",
		DBHost:          "localhost",
		DBPort:          "3306",
		DBName:          "storefront",
		RedisURL:        "redis://localhost:6379/0",
		RedisKeyPrefix:  "storefront:",
		OrderExchange:   "orders_exchange",
		OrderQueue:      "orders_queue",
		DeadLetterQueue: "dead_letter_queue",
		MaxPriority:     10, // 优先级队列最大优先级
		ServerPort:      ":5555",
		JWTSecret:       "dev-jwt",
		TokenTTL:        7 * 24 * time.Hour,
	}
}

// LoadConfig builds the configuration from defaults, the YAML file named by
// STOREFRONT_CONFIG (if any) and finally the environment.
func LoadConfig() *Config {
	cfg, err := Load(os.Getenv("STOREFRONT_CONFIG"))
	if err != nil {
		log.Printf("Ignoring config file: %v", err)
		cfg = applyEnv(defaults())
	}
	return cfg
}

func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	return applyEnv(cfg), nil
}

func applyEnv(cfg *Config) *Config {
	cfg.APIBaseURL = getEnv("STOREFRONT_API_URL", cfg.APIBaseURL)
	cfg.StorageBackend = getEnv("STOREFRONT_STORAGE", cfg.StorageBackend)
	cfg.StoragePath = getEnv("STOREFRONT_STORAGE_PATH", cfg.StoragePath)
	cfg.MetricsAddr = getEnv("STOREFRONT_METRICS_ADDR", cfg.MetricsAddr)

	cfg.DBUser = getEnv("DB_USER", cfg.DBUser)
	cfg.DBPassword = getEnvFromFile("DB_PASSWORD_FILE", "DB_PASSWORD", cfg.DBPassword)
	cfg.DBHost = getEnv("DB_HOST", cfg.DBHost)
	cfg.DBPort = getEnv("DB_PORT", cfg.DBPort)
	cfg.DBName = getEnv("DB_NAME", cfg.DBName)

	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.RedisKeyPrefix = getEnv("REDIS_KEY_PREFIX", cfg.RedisKeyPrefix)

	cfg.RabbitMQURL = getEnvFromFile("RABBITMQ_URL_FILE", "RABBITMQ_URL", cfg.RabbitMQURL)
	cfg.OrderExchange = getEnv("ORDER_EXCHANGE", cfg.OrderExchange)
	cfg.OrderQueue = getEnv("ORDER_QUEUE", cfg.OrderQueue)
	cfg.DeadLetterQueue = getEnv("DEAD_LETTER_QUEUE", cfg.DeadLetterQueue)

	cfg.ServerPort = getEnv("PORT", cfg.ServerPort)
	if !strings.Contains(cfg.ServerPort, ":") {
		cfg.ServerPort = ":" + cfg.ServerPort
	}
	cfg.JWTSecret = getEnvFromFile("JWT_SECRET_FILE", "JWT_SECRET", cfg.JWTSecret)
	cfg.TokenTTL = getDuration("TOKEN_TTL", cfg.TokenTTL)
	cfg.AdminEmail = getEnv("ADMIN_EMAIL", cfg.AdminEmail)
	cfg.AdminPassword = getEnvFromFile("ADMIN_PASSWORD_FILE", "ADMIN_PASSWORD", cfg.AdminPassword)
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFromFile(fileKey, envKey, defaultValue string) string {
	if filePath := os.Getenv(fileKey); filePath != "" {
		if content, err := os.ReadFile(filePath); err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return getEnv(envKey, defaultValue)
}

// getDuration accepts Go durations ("168h") or a bare number of seconds.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("Invalid %s %q, using %s", key, value, defaultValue)
	return defaultValue
}
