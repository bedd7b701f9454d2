package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Engine   EngineConfig
	Mirror   MirrorConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port     int
	Host     string
	UseHTTPS bool
	CertFile string
	KeyFile  string
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// EngineConfig - настройки торгового движка
type EngineConfig struct {
	// Retry логика для конфликтов сериализации при settlement.
	// Конфликт означает, что конкурирующая транзакция успела забрать
	// matched-заявку; повтор перезапускает matcher с нуля.
	MatchMaxRetries int
	MatchBackoff    time.Duration

	// Пагинация списка заявок
	DefaultPageSize int
	MaxPageSize     int
}

// MirrorConfig - настройки зеркалирования pool-покупок на основную платформу
//
// Доставка best-effort: сбой логируется, синхронных повторов нет,
// settlement никогда не блокируется.
type MirrorConfig struct {
	BaseURL      string // пустая строка = зеркалирование выключено
	DeviceSecret string // bearer token для авторизации на платформе
	Timeout      time.Duration
}

// SecurityConfig - настройки безопасности
type SecurityConfig struct {
	// bcrypt-хеш device secret, которым авторизуются вызовы API.
	// Пустое значение = auth выключен (только для разработки).
	DeviceSecretHash string
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnvAsInt("SERVER_PORT", 8080),
			Host:     getEnv("SERVER_HOST", "0.0.0.0"),
			UseHTTPS: getEnvAsBool("USE_HTTPS", false),
			CertFile: getEnv("CERT_FILE", ""),
			KeyFile:  getEnv("KEY_FILE", ""),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "stocktrade"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Engine: EngineConfig{
			MatchMaxRetries: getEnvAsInt("MATCH_MAX_RETRIES", 4),
			MatchBackoff:    getEnvAsDuration("MATCH_RETRY_BACKOFF", 50*time.Millisecond),
			DefaultPageSize: getEnvAsInt("DEFAULT_PAGE_SIZE", 20),
			MaxPageSize:     getEnvAsInt("MAX_PAGE_SIZE", 100),
		},
		Mirror: MirrorConfig{
			BaseURL:      getEnv("MIRROR_URL", ""),
			DeviceSecret: getEnv("MIRROR_DEVICE_SECRET", ""),
			Timeout:      getEnvAsDuration("MIRROR_TIMEOUT", 5*time.Second),
		},
		Security: SecurityConfig{
			DeviceSecretHash: getEnv("DEVICE_SECRET_HASH", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Валидация числовых диапазонов
	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	// Валидация портов
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	// Валидация retry параметров
	if c.Engine.MatchMaxRetries < 1 {
		return fmt.Errorf("MATCH_MAX_RETRIES must be at least 1, got %d", c.Engine.MatchMaxRetries)
	}

	if c.Engine.MatchMaxRetries > 10 {
		return fmt.Errorf("MATCH_MAX_RETRIES should not exceed 10, got %d", c.Engine.MatchMaxRetries)
	}

	// Валидация пагинации
	if c.Engine.DefaultPageSize < 1 {
		return fmt.Errorf("DEFAULT_PAGE_SIZE must be positive, got %d", c.Engine.DefaultPageSize)
	}

	if c.Engine.MaxPageSize < c.Engine.DefaultPageSize {
		return fmt.Errorf("MAX_PAGE_SIZE must be >= DEFAULT_PAGE_SIZE, got %d < %d",
			c.Engine.MaxPageSize, c.Engine.DefaultPageSize)
	}

	// Валидация таймаутов
	if c.Mirror.Timeout <= 0 {
		return fmt.Errorf("MIRROR_TIMEOUT must be positive, got %v", c.Mirror.Timeout)
	}

	// Зеркалирование без секрета бессмысленно - платформа отклонит запрос
	if c.Mirror.BaseURL != "" && c.Mirror.DeviceSecret == "" {
		return fmt.Errorf("MIRROR_DEVICE_SECRET is required when MIRROR_URL is set")
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
