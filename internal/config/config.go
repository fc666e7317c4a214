package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/slymn80/timetables/internal/domain"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Scheduler SchedulerConfig
}

// DatabaseConfig содержит конфигурацию подключения к базе данных
type DatabaseConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// ServerConfig содержит конфигурацию сервера
type ServerConfig struct {
	Port             string
	Env              string   // development, production
	ProductionDomain string   // Domain for production environment
	TrustedProxies   []string // Список доверенных прокси-серверов (для X-Forwarded-For)
}

// SchedulerConfig tunes the two generation strategies. Defaults mirror
// heuristic.DefaultParams()/cpsat.DefaultParams(); env vars let an operator
// override them per deployment without a recompile.
type SchedulerConfig struct {
	MaxConsecutiveSameSubject int
	RoomPolicy                domain.RoomPolicy
	CPSATTimeBudgetSeconds    float64
	CPSATWorkers              int
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("некорректный DB_PORT: %w", err)
	}

	env := getEnv("ENV", "development")
	isProduction := env == "production"

	trustedProxies := []string{}
	if proxiesStr := getEnv("TRUSTED_PROXIES", ""); proxiesStr != "" {
		for _, proxy := range strings.Split(proxiesStr, ",") {
			if trimmed := strings.TrimSpace(proxy); trimmed != "" {
				trustedProxies = append(trustedProxies, trimmed)
			}
		}
	}
	if len(trustedProxies) == 0 && !isProduction {
		trustedProxies = []string{"127.0.0.1", "localhost", "::1"}
	}

	maxConsecutiveSameSubject, err := strconv.Atoi(getEnv("SCHEDULER_MAX_CONSECUTIVE_SAME_SUBJECT", "2"))
	if err != nil {
		return nil, fmt.Errorf("некорректный SCHEDULER_MAX_CONSECUTIVE_SAME_SUBJECT: %w", err)
	}
	cpsatWorkers, err := strconv.Atoi(getEnv("SCHEDULER_CPSAT_WORKERS", "8"))
	if err != nil {
		return nil, fmt.Errorf("некорректный SCHEDULER_CPSAT_WORKERS: %w", err)
	}
	cpsatTimeBudget, err := strconv.ParseFloat(getEnv("SCHEDULER_CPSAT_TIME_BUDGET_SECONDS", "300"), 64)
	if err != nil {
		return nil, fmt.Errorf("некорректный SCHEDULER_CPSAT_TIME_BUDGET_SECONDS: %w", err)
	}

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			Name:     getEnv("DB_NAME", "timetables"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			SSLMode:  getEnv("DB_SSL_MODE", "require"),
		},
		Server: ServerConfig{
			Port:             getEnv("SERVER_PORT", "8080"),
			Env:              env,
			ProductionDomain: getEnv("PRODUCTION_DOMAIN", ""),
			TrustedProxies:   trustedProxies,
		},
		Scheduler: SchedulerConfig{
			MaxConsecutiveSameSubject: maxConsecutiveSameSubject,
			RoomPolicy:                domain.RoomPolicy(getEnv("SCHEDULER_ROOM_POLICY", string(domain.RoomPolicyHybrid))),
			CPSATTimeBudgetSeconds:    cpsatTimeBudget,
			CPSATWorkers:              cpsatWorkers,
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("некорректная конфигурация: %w", err)
	}

	return config, nil
}

// Validate выполняет валидацию конфигурации
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST обязателен")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME обязательно")
	}
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER обязателен")
	}

	if c.IsProduction() {
		// CRITICAL: In production, password MUST NOT be empty. Empty
		// password allows unauthenticated database access.
		if c.Database.Password == "" {
			return fmt.Errorf("CRITICAL SECURITY: DB_PASSWORD must not be empty in production. Empty password allows unauthorized database access")
		}
		if c.Server.ProductionDomain == "" {
			return fmt.Errorf("PRODUCTION_DOMAIN is required in production mode")
		}
	}

	if c.IsDevelopment() {
		// In development, only allow localhost databases or the Docker
		// service name "postgres".
		if c.Database.Host != "localhost" && c.Database.Host != "127.0.0.1" && c.Database.Host != "postgres" {
			return fmt.Errorf("SAFETY: Cannot connect to remote database %s in development mode. Use localhost or Docker service name only", c.Database.Host)
		}
	}

	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT обязателен")
	}

	switch c.Scheduler.RoomPolicy {
	case domain.RoomPolicyClassesFixed, domain.RoomPolicyTeachersFixed, domain.RoomPolicyHybrid, domain.RoomPolicyNone:
	default:
		return fmt.Errorf("SCHEDULER_ROOM_POLICY содержит неизвестное значение: %s", c.Scheduler.RoomPolicy)
	}
	if c.Scheduler.MaxConsecutiveSameSubject < 1 {
		return fmt.Errorf("SCHEDULER_MAX_CONSECUTIVE_SAME_SUBJECT должен быть больше 0")
	}
	if c.Scheduler.CPSATWorkers < 1 {
		return fmt.Errorf("SCHEDULER_CPSAT_WORKERS должен быть больше 0")
	}
	if c.Scheduler.CPSATTimeBudgetSeconds <= 0 {
		return fmt.Errorf("SCHEDULER_CPSAT_TIME_BUDGET_SECONDS должен быть больше 0")
	}

	return nil
}

// GetDSN возвращает строку подключения PostgreSQL
func (c *DatabaseConfig) GetDSN() string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Name,
		c.SSLMode,
	)

	if c.Password != "" {
		dsn = fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host,
			c.Port,
			c.User,
			c.Password,
			c.Name,
			c.SSLMode,
		)
	}

	return dsn
}

// IsProduction возвращает true, если окружение - продакшен
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// IsDevelopment возвращает true, если окружение - разработка
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// GetBaseURL возвращает базовый URL для приложения
func (c *Config) GetBaseURL() string {
	if c.IsProduction() && c.Server.ProductionDomain != "" {
		return "https://" + c.Server.ProductionDomain
	}
	return "http://localhost:" + c.Server.Port
}

// String возвращает строковое представление конфигурации с маскировкой секретов
// ВАЖНО: никогда не логирует актуальное значение пароля базы данных
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Database:{Host:%s Port:%d Name:%s User:%s Password:%s SSLMode:%s} "+
			"Server:{Port:%s Env:%s ProductionDomain:%s} "+
			"Scheduler:{MaxConsecutiveSameSubject:%d RoomPolicy:%s CPSATTimeBudgetSeconds:%v CPSATWorkers:%d}}",
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.User,
		maskSecret(c.Database.Password),
		c.Database.SSLMode,
		c.Server.Port,
		c.Server.Env,
		c.Server.ProductionDomain,
		c.Scheduler.MaxConsecutiveSameSubject,
		c.Scheduler.RoomPolicy,
		c.Scheduler.CPSATTimeBudgetSeconds,
		c.Scheduler.CPSATWorkers,
	)
}

// maskSecret маскирует секрет для безопасного логирования
func maskSecret(secret string) string {
	if secret == "" {
		return "<not set>"
	}
	if len(secret) <= 6 {
		return "***"
	}
	return secret[:3] + "..." + secret[len(secret)-3:]
}

// getEnv получает переменную окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
