package config

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

var (
	// ErrNoAccounts indicates the configuration contains no mailbox accounts
	ErrNoAccounts = errors.New("no mailbox accounts configured")
	// ErrInvalidAccount indicates a mailbox account entry is incomplete
	ErrInvalidAccount = errors.New("invalid mailbox account configuration")
)

// Config holds the application configuration
type Config struct {
	DatabasePath  string          `json:"database_path"`
	APIPort       string          `json:"api_port"`
	LogLevel      string          `json:"log_level"`
	DataDir       string          `json:"data_dir"`
	EncryptionKey string          `json:"encryption_key"` // key material for password_encrypted fields
	CORSOrigins   string          `json:"cors_origins"`   // comma separated, * allows all
	Accounts      []AccountConfig `json:"accounts"`
	AI            AIConfig        `json:"ai"`
	Notify        NotifyConfig    `json:"notify"`
	Vector        VectorConfig    `json:"vector"`
}

// AccountConfig describes one IMAP mailbox. Loaded once at startup and
// never mutated afterwards.
type AccountConfig struct {
	ID                string `json:"id"` // defaults to username
	Host              string `json:"host"`
	Port              int    `json:"port"`
	Username          string `json:"username"`
	Password          string `json:"password"`
	PasswordEncrypted string `json:"password_encrypted"` // base64(AES-256-GCM)
	TLS               bool   `json:"tls"`
}

// AIConfig holds settings for the AI categorization and reply client
type AIConfig struct {
	Enabled  bool   `json:"enabled"`
	Provider string `json:"provider"` // openai, azure, claude, custom
	APIKey   string `json:"api_key"`
	Model    string `json:"model"`
	BaseURL  string `json:"base_url"`
}

// NotifyConfig holds webhook notification settings
type NotifyConfig struct {
	SlackWebhookURL     string `json:"slack_webhook_url"`
	WebhookURL          string `json:"webhook_url"`
	NotifyMeetingBooked bool   `json:"notify_meeting_booked"`
}

// VectorConfig holds settings for the vector similarity store
type VectorConfig struct {
	Enabled        bool   `json:"enabled"`
	QdrantURL      string `json:"qdrant_url"`
	Collection     string `json:"collection"`
	EmbeddingModel string `json:"embedding_model"`
}

// Default configuration values
const (
	DefaultDatabasePath   = "data/onebox.db"
	DefaultAPIPort        = "8080"
	DefaultLogLevel       = "INFO"
	DefaultDataDir        = "data"
	DefaultCORSOrigins    = "*"
	DefaultIMAPPort       = 993
	DefaultQdrantURL      = "http://127.0.0.1:6333"
	DefaultCollection     = "outreach_context"
	DefaultEmbeddingModel = "text-embedding-3-small"
)

// Load loads configuration from environment variables and config file
// Priority: Environment variables > Config file > Default values
func Load() (*Config, error) {
	cfg := &Config{
		DatabasePath: DefaultDatabasePath,
		APIPort:      DefaultAPIPort,
		LogLevel:     DefaultLogLevel,
		DataDir:      DefaultDataDir,
		CORSOrigins:  DefaultCORSOrigins,
		Vector: VectorConfig{
			QdrantURL:      DefaultQdrantURL,
			Collection:     DefaultCollection,
			EmbeddingModel: DefaultEmbeddingModel,
		},
	}

	// Try to load from config file
	if err := cfg.loadFromFile(); err != nil {
		return nil, err
	}

	// Override with environment variables
	cfg.loadFromEnv()

	cfg.applyAccountDefaults()

	return cfg, nil
}

// loadFromFile loads configuration from config.json file
func (c *Config) loadFromFile() error {
	// Look for config file in current directory and data directory
	configPaths := []string{
		"config.json",
		filepath.Join(c.DataDir, "config.json"),
	}

	if path := os.Getenv("ONEBOX_CONFIG"); path != "" {
		configPaths = []string{path}
	}

	for _, path := range configPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return nil
	}

	return nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if val := os.Getenv("ONEBOX_DATABASE_PATH"); val != "" {
		c.DatabasePath = val
	}
	if val := os.Getenv("ONEBOX_API_PORT"); val != "" {
		c.APIPort = val
	}
	if val := os.Getenv("ONEBOX_LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}
	if val := os.Getenv("ONEBOX_DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("ONEBOX_ENCRYPTION_KEY"); val != "" {
		c.EncryptionKey = val
	}
	if val := os.Getenv("ONEBOX_CORS_ORIGINS"); val != "" {
		c.CORSOrigins = val
	}
	if val := os.Getenv("ONEBOX_AI_PROVIDER"); val != "" {
		c.AI.Provider = val
		c.AI.Enabled = true
	}
	if val := os.Getenv("ONEBOX_AI_API_KEY"); val != "" {
		c.AI.APIKey = val
	}
	if val := os.Getenv("ONEBOX_AI_MODEL"); val != "" {
		c.AI.Model = val
	}
	if val := os.Getenv("ONEBOX_AI_BASE_URL"); val != "" {
		c.AI.BaseURL = val
	}
	if val := os.Getenv("ONEBOX_SLACK_WEBHOOK_URL"); val != "" {
		c.Notify.SlackWebhookURL = val
	}
	if val := os.Getenv("ONEBOX_WEBHOOK_URL"); val != "" {
		c.Notify.WebhookURL = val
	}
	if val := os.Getenv("ONEBOX_QDRANT_URL"); val != "" {
		c.Vector.QdrantURL = val
		c.Vector.Enabled = true
	}
}

// applyAccountDefaults fills in derivable account fields
func (c *Config) applyAccountDefaults() {
	for i := range c.Accounts {
		if c.Accounts[i].ID == "" {
			c.Accounts[i].ID = c.Accounts[i].Username
		}
		if c.Accounts[i].Port == 0 {
			c.Accounts[i].Port = DefaultIMAPPort
		}
	}
}

// ValidateAccounts checks that every configured account can be used
func (c *Config) ValidateAccounts() error {
	if len(c.Accounts) == 0 {
		return ErrNoAccounts
	}
	for _, acc := range c.Accounts {
		if acc.Host == "" || acc.Username == "" {
			return fmt.Errorf("%w: account %q needs host and username", ErrInvalidAccount, acc.ID)
		}
		if acc.Password == "" && acc.PasswordEncrypted == "" {
			return fmt.Errorf("%w: account %q has no password", ErrInvalidAccount, acc.ID)
		}
	}
	return nil
}

// ResolvePassword returns the plaintext password for an account,
// decrypting password_encrypted with the configured key when needed
func (c *Config) ResolvePassword(acc AccountConfig) (string, error) {
	if acc.Password != "" {
		return acc.Password, nil
	}
	return DecryptPassword(acc.PasswordEncrypted, c.GetEncryptionKey())
}

// GetEncryptionKey returns the 32-byte key for password decryption
func (c *Config) GetEncryptionKey() []byte {
	hash := sha256.Sum256([]byte(c.EncryptionKey))
	return hash[:]
}

// Addr returns the host:port dial address for an account
func (a AccountConfig) Addr() string {
	return a.Host + ":" + strconv.Itoa(a.Port)
}

// Save saves the current configuration to a file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
