// Package config загружает настройки из переменных окружения,
// подставляет значения по умолчанию и проверяет результат при старте.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config — все настройки приложения.
type Config struct {
	Logging LoggingConfig
	Profile ProfileConfig
	Search  SearchConfig
	Store   StoreConfig
}

// LoggingConfig — настройки логирования.
type LoggingConfig struct {
	// Level: debug, info, warn, error
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format: text или json
	Format string `env:"LOG_FORMAT" default:"text"`
}

// ProfileConfig — профиль домена (алиасы, вычисляемые поля, список полей).
type ProfileConfig struct {
	// Path — YAML-файл профиля; пусто — без алиасов
	Path string `env:"CELLMAPPER_PROFILE"`
}

// SearchConfig — параметры поиска в данных.
type SearchConfig struct {
	// Depth — предел вложенности при поиске массивов
	Depth int `env:"CELLMAPPER_SEARCH_DEPTH" default:"32"`
}

// StoreConfig — хранилище наборов привязок.
type StoreConfig struct {
	// Path — JSON-файл хранилища (используется, если DSN пуст)
	Path string `env:"CELLMAPPER_STORE_PATH" default:"mappings.json"`

	// DSN — строка подключения к PostgreSQL
	DSN string `env:"CELLMAPPER_STORE_DSN" envAlt:"DATABASE_URL"`

	// CacheSize — размер LRU-кэша прочитанных наборов
	CacheSize int `env:"CELLMAPPER_CACHE_SIZE" default:"256"`

	// Timeout — предел времени на одну операцию хранилища
	Timeout time.Duration `env:"CELLMAPPER_STORE_TIMEOUT" default:"10s"`
}

// UsePostgres — задан ли DSN.
func (c StoreConfig) UsePostgres() bool {
	return strings.TrimSpace(c.DSN) != ""
}

// Validate собирает все ошибки настройки в одно сообщение.
func (c *Config) Validate() error {
	var errs []string

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) должен быть одним из: debug, info, warn, error", c.Logging.Level))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) должен быть text или json", c.Logging.Format))
	}
	if c.Search.Depth <= 0 {
		errs = append(errs, "CELLMAPPER_SEARCH_DEPTH должен быть положительным")
	}
	if c.Store.CacheSize <= 0 {
		errs = append(errs, "CELLMAPPER_CACHE_SIZE должен быть положительным")
	}
	if c.Store.Timeout <= 0 {
		errs = append(errs, "CELLMAPPER_STORE_TIMEOUT должен быть положительным")
	}
	if !c.Store.UsePostgres() && strings.TrimSpace(c.Store.Path) == "" {
		errs = append(errs, "нужен CELLMAPPER_STORE_PATH или CELLMAPPER_STORE_DSN")
	}

	if len(errs) > 0 {
		return fmt.Errorf("проверка не пройдена:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// String — представление для логов; DSN скрыт.
func (c *Config) String() string {
	dsn := ""
	if c.Store.UsePostgres() {
		dsn = "[MASKED]"
	}
	return fmt.Sprintf("Config{Logging: {Level: %q, Format: %q}, Profile: %q, SearchDepth: %d, Store: {Path: %q, DSN: %q, CacheSize: %d}}",
		c.Logging.Level, c.Logging.Format, c.Profile.Path, c.Search.Depth, c.Store.Path, dsn, c.Store.CacheSize)
}
