package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// WhatsApp configuration
	WhatsApp WhatsAppConfig `json:"whatsapp"`

	// Database configuration
	Database DatabaseConfig `json:"database"`

	// Snapshot storage configuration
	Storage StorageConfig `json:"storage"`

	// Game configuration
	Game GameConfig `json:"game"`

	// Content source configuration
	Content ContentConfig `json:"content"`

	// Server configuration
	Server ServerConfig `json:"server"`
}

// WhatsAppConfig holds WhatsApp specific configuration
type WhatsAppConfig struct {
	// Enable the WhatsApp transport
	Enabled bool `json:"enabled"`

	// Path to store WhatsApp session data
	StoreDir string `json:"store_dir"`

	// Client device name
	ClientName string `json:"client_name"`
}

// DatabaseConfig holds database specific configuration
type DatabaseConfig struct {
	// Database driver (sqlite3)
	Driver string `json:"driver"`

	// Database connection string
	DSN string `json:"dsn"`
}

// StorageConfig selects where session snapshots are kept
type StorageConfig struct {
	// Backend is one of file, sqlite, redis
	Backend string `json:"backend"`

	// Directory for the file backend
	Dir string `json:"dir"`

	// Address for the redis backend (host:port)
	RedisAddr string `json:"redis_addr"`

	// Key prefix for the redis backend
	RedisPrefix string `json:"redis_prefix"`
}

// GameConfig holds the tunable economic constants
type GameConfig struct {
	// Optional YAML file overriding the built-in content tables
	TablesPath string `json:"tables_path"`

	// Random seed; 0 seeds from the clock
	Seed int64 `json:"seed"`

	// Allowed game durations in days
	Durations []int `json:"durations"`

	StartingCash   int `json:"starting_cash"`
	InventorySpace int `json:"inventory_space"`

	// Price jitter half-width, e.g. 0.4 for +/-40%
	PriceJitter float64 `json:"price_jitter"`

	// Event scheduler tuning
	EventTriggerChance float64 `json:"event_trigger_chance"`
	EventMinDuration   int     `json:"event_min_duration"`
	EventMaxDuration   int     `json:"event_max_duration"`
	InitialEventBatch  int     `json:"initial_event_batch"`
	RefillEventBatch   int     `json:"refill_event_batch"`
	RefillThreshold    int     `json:"refill_threshold"`

	StashHouseCost     int `json:"stash_house_cost"`
	StashHouseCapacity int `json:"stash_house_capacity"`
	StashHouseUpkeep   int `json:"stash_house_upkeep"`

	BankInterestRate float64 `json:"bank_interest_rate"`

	InventoryUpgradeBase       int     `json:"inventory_upgrade_base"`
	InventoryUpgradeMultiplier float64 `json:"inventory_upgrade_multiplier"`
	InventoryUpgradeAmount     int     `json:"inventory_upgrade_amount"`

	StashUpgradeBase       int     `json:"stash_upgrade_base"`
	StashUpgradeMultiplier float64 `json:"stash_upgrade_multiplier"`
	StashUpgradeAmount     int     `json:"stash_upgrade_amount"`

	LoanSharkCity    string  `json:"loan_shark_city"`
	LoanAmount       int     `json:"loan_amount"`
	LoanInterestRate float64 `json:"loan_interest_rate"`
	LoanRepayDays    int     `json:"loan_repay_days"`

	// Price factor for the alliance specialty item in its home city
	AllianceDiscount float64 `json:"alliance_discount"`

	// Maximum number of game log lines kept per session
	LogLimit int `json:"log_limit"`
}

// ContentConfig holds the generative content source configuration
type ContentConfig struct {
	// Provider is gemini or offline
	Provider string `json:"provider"`

	// Model name for the gemini provider
	Model string `json:"model"`

	// Environment variable holding the API key
	APIKeyEnv string `json:"api_key_env"`

	// Retry policy for rate-limited requests
	MaxRetries        int `json:"max_retries"`
	InitialRetryDelay int `json:"initial_retry_delay_ms"`

	// Per-call timeouts in seconds
	BatchTimeout int `json:"batch_timeout"`
	BustTimeout  int `json:"bust_timeout"`
}

// RetryDelay returns the initial retry delay as a duration
func (c ContentConfig) RetryDelay() time.Duration {
	return time.Duration(c.InitialRetryDelay) * time.Millisecond
}

// BatchTimeoutDuration returns the event batch timeout
func (c ContentConfig) BatchTimeoutDuration() time.Duration {
	return time.Duration(c.BatchTimeout) * time.Second
}

// BustTimeoutDuration returns the bust resolution timeout
func (c ContentConfig) BustTimeoutDuration() time.Duration {
	return time.Duration(c.BustTimeout) * time.Second
}

// APIKey reads the content API key from the environment
func (c ContentConfig) APIKey() string {
	return os.Getenv(c.APIKeyEnv)
}

// ServerConfig holds server specific configuration
type ServerConfig struct {
	// Server port
	Port string `json:"port"`

	// Log level (debug, info, warn, error)
	LogLevel string `json:"log_level"`
}

// DefaultGameConfig returns the default economic constants
func DefaultGameConfig() GameConfig {
	return GameConfig{
		Durations:                  []int{30, 60, 90},
		StartingCash:               2000,
		InventorySpace:             100,
		PriceJitter:                0.4,
		EventTriggerChance:         0.5,
		EventMinDuration:           2,
		EventMaxDuration:           4,
		InitialEventBatch:          20,
		RefillEventBatch:           10,
		RefillThreshold:            5,
		StashHouseCost:             50000,
		StashHouseCapacity:         250,
		StashHouseUpkeep:           100,
		BankInterestRate:           0.001,
		InventoryUpgradeBase:       5000,
		InventoryUpgradeMultiplier: 1.8,
		InventoryUpgradeAmount:     50,
		StashUpgradeBase:           25000,
		StashUpgradeMultiplier:     2.0,
		StashUpgradeAmount:         100,
		LoanSharkCity:              "Las Vegas",
		LoanAmount:                 5000,
		LoanInterestRate:           0.10,
		LoanRepayDays:              15,
		AllianceDiscount:           0.85,
		LogLimit:                   100,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		WhatsApp: WhatsAppConfig{
			Enabled:    false,
			StoreDir:   "./whatsapp-store",
			ClientName: "DOPEWARS ENGINE",
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "./dopewars.db",
		},
		Storage: StorageConfig{
			Backend:     "file",
			Dir:         "./data/saves",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "dopewars:save:",
		},
		Game: DefaultGameConfig(),
		Content: ContentConfig{
			Provider:          "gemini",
			Model:             "gemini-2.5-flash",
			APIKeyEnv:         "GEMINI_API_KEY",
			MaxRetries:        3,
			InitialRetryDelay: 1000,
			BatchTimeout:      30,
			BustTimeout:       15,
		},
		Server: ServerConfig{
			Port:     "8080",
			LogLevel: "info",
		},
	}
}

// ValidDuration reports whether days is one of the allowed game durations
func (g GameConfig) ValidDuration(days int) bool {
	for _, d := range g.Durations {
		if d == days {
			return true
		}
	}
	return false
}

// LoadEnv loads variables from a .env file if one exists
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// LoadConfig loads configuration from a file
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return config, err
	}

	// Check if file exists
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		// Create default config file
		return config, SaveConfig(config, path)
	}

	// Read config file
	file, err := os.Open(path)
	if err != nil {
		return config, err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&config); err != nil {
		return config, err
	}

	return config, nil
}

// SaveConfig saves configuration to a file
func SaveConfig(config Config, path string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// Create or truncate file
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	// Write config to file
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(config); err != nil {
		return err
	}

	return nil
}
