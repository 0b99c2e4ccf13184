package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"luminaria-extractor/internal/core/batch"
	"luminaria-extractor/internal/core/codes"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config repräsentiert die Hauptkonfiguration der Anwendung
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Inference InferenceConfig `mapstructure:"inference"`
	Prefixes  []PrefixEntry   `mapstructure:"prefixes"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Imaging   ImagingConfig   `mapstructure:"imaging"`
	URLFetch  URLFetchConfig  `mapstructure:"urlfetch"`
	Storage   StorageConfig   `mapstructure:"storage"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Cleanup   CleanupConfig   `mapstructure:"cleanup"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`

	// prefixTable wird von Validate aus Prefixes aufgebaut
	prefixTable *codes.PrefixTable
}

// ServerConfig enthält Server-bezogene Einstellungen
type ServerConfig struct {
	Host            string   `mapstructure:"host"`
	Port            int      `mapstructure:"port"`
	DataDir         string   `mapstructure:"data_dir"`
	CORSOrigins     []string `mapstructure:"cors_origins"`
	SessionSecret   string   `mapstructure:"session_secret"`
	DefaultLanguage string   `mapstructure:"default_language"`
}

// LogConfig enthält Log-Einstellungen
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// DBConfig enthält Datenbankeinstellungen
type DBConfig struct {
	File string `mapstructure:"file"` // für SQLite
}

// InferenceConfig enthält die Einstellungen für den Roboflow-Workflow
type InferenceConfig struct {
	URL            string `mapstructure:"url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// PrefixEntry ordnet ein exaktes Label einem Präfixbuchstaben zu
type PrefixEntry struct {
	Label  string `mapstructure:"label"`
	Prefix string `mapstructure:"prefix"`
}

// BatchConfig enthält die Größen der Verarbeitungsläufe
type BatchConfig struct {
	LoteSize       int    `mapstructure:"lote_size"`
	IndividualSize int    `mapstructure:"individual_size"`
	TieBreak       string `mapstructure:"tie_break"` // "first_seen" oder "last_seen"
}

// ImagingConfig steuert die Verkleinerung vor dem Upload
type ImagingConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MaxWidth    int  `mapstructure:"max_width"`
	MaxHeight   int  `mapstructure:"max_height"`
	JPEGQuality int  `mapstructure:"jpeg_quality"`
}

// URLFetchConfig enthält die Einstellungen für den Import per URL
type URLFetchConfig struct {
	ProxyPrefix    string `mapstructure:"proxy_prefix"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	CacheMinutes   int    `mapstructure:"cache_minutes"`
}

// StorageConfig wählt das Backend für die Bilddaten
type StorageConfig struct {
	Backend string      `mapstructure:"backend"` // "filesystem" oder "minio"
	Dir     string      `mapstructure:"dir"`
	MinIO   MinIOConfig `mapstructure:"minio"`
}

// MinIOConfig enthält die Verbindungsdaten für MinIO
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// MQTTConfig enthält die Konfiguration für den MQTT-Client
type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	ClientID string `mapstructure:"client_id"`
	Topic    string `mapstructure:"topic"`
}

// CleanupConfig enthält Bereinigungseinstellungen
type CleanupConfig struct {
	RetentionDays int `mapstructure:"retention_days"`
}

// MetricsConfig steuert den Prometheus-Endpunkt
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// DefaultPrefixes entspricht den im Modell trainierten Präfixklassen.
// Der Schlüssel für "A" enthält tatsächlich ein Leerzeichen.
var DefaultPrefixes = []PrefixEntry{
	{Label: "A _LUMINARIA_SODIO_70_W", Prefix: "A"},
	{Label: "B_LUMINARIA_", Prefix: "B"},
	{Label: "C_LUMINARIA_", Prefix: "C"},
	{Label: "D_LUMINARIA_", Prefix: "D"},
}

// Load lädt die Konfiguration aus Datei, Umgebungsvariablen und Standardwerten
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			log.Warnf("Config file %s does not exist, using defaults", configPath)
		} else {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			log.Infof("Config loaded from %s", configPath)
		}
	}

	// Umgebungsvariablen überlagern die Konfiguration
	v.SetEnvPrefix("LUMINARIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Eine leere Liste in der Datei bedeutet "Standardtabelle verwenden"
	if len(cfg.Prefixes) == 0 {
		cfg.Prefixes = append([]PrefixEntry(nil), DefaultPrefixes...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := ensureDirectories(&cfg); err != nil {
		return nil, fmt.Errorf("failed to create required directories: %w", err)
	}

	return &cfg, nil
}

// setDefaults legt Standardwerte für die Konfiguration fest
func setDefaults(v *viper.Viper) {
	// Server-Standardwerte
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.data_dir", "/data")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.session_secret", "luminaria-extractor")
	v.SetDefault("server.default_language", "es")

	// Log-Standardwerte
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "/data/logs/luminaria.log")

	// DB-Standardwerte
	v.SetDefault("db.file", "/data/luminaria.db")

	// Inferenz-Standardwerte
	v.SetDefault("inference.url", "https://serverless.roboflow.com/adrian-twrhb/workflows/custom-workflow-3")
	v.SetDefault("inference.api_key", "")
	v.SetDefault("inference.timeout_seconds", 60)

	// Lauf-Standardwerte
	v.SetDefault("batch.lote_size", 3)
	v.SetDefault("batch.individual_size", 50)
	v.SetDefault("batch.tie_break", string(batch.TieBreakFirstSeen))

	// Verkleinerung
	v.SetDefault("imaging.enabled", true)
	v.SetDefault("imaging.max_width", 1280)
	v.SetDefault("imaging.max_height", 720)
	v.SetDefault("imaging.jpeg_quality", 70)

	// URL-Import
	v.SetDefault("urlfetch.proxy_prefix", "https://images.weserv.nl/?url=")
	v.SetDefault("urlfetch.timeout_seconds", 20)
	v.SetDefault("urlfetch.cache_minutes", 10)

	// Speicher
	v.SetDefault("storage.backend", "filesystem")
	v.SetDefault("storage.dir", "/data/images")
	v.SetDefault("storage.minio.endpoint", "localhost:9000")
	v.SetDefault("storage.minio.bucket", "luminarias")
	v.SetDefault("storage.minio.use_ssl", false)

	// MQTT-Standardwerte
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.client_id", "luminaria-extractor")
	v.SetDefault("mqtt.topic", "luminaria")

	// Cleanup-Standardwerte (0 = deaktiviert)
	v.SetDefault("cleanup.retention_days", 0)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Validate prüft die Konfiguration und baut die Präfixtabelle auf
func (c *Config) Validate() error {
	entries := make([]codes.PrefixEntry, 0, len(c.Prefixes))
	for _, p := range c.Prefixes {
		entries = append(entries, codes.PrefixEntry{Label: p.Label, Prefix: p.Prefix})
	}
	table, err := codes.NewPrefixTable(entries)
	if err != nil {
		return fmt.Errorf("prefixes: %w", err)
	}
	c.prefixTable = table

	if _, err := batch.ParseTieBreak(c.Batch.TieBreak); err != nil {
		return fmt.Errorf("batch.tie_break: %w", err)
	}
	if c.Batch.LoteSize != 1 && c.Batch.LoteSize != 3 {
		return fmt.Errorf("batch.lote_size must be 1 or 3, got %d", c.Batch.LoteSize)
	}
	if c.Batch.IndividualSize <= 0 {
		return fmt.Errorf("batch.individual_size must be positive, got %d", c.Batch.IndividualSize)
	}
	switch c.Storage.Backend {
	case "filesystem", "minio":
	default:
		return fmt.Errorf("storage.backend must be filesystem or minio, got %q", c.Storage.Backend)
	}
	return nil
}

// PrefixTable liefert die validierte Präfixtabelle
func (c *Config) PrefixTable() *codes.PrefixTable {
	if c.prefixTable == nil {
		if err := c.Validate(); err != nil {
			log.WithError(err).Error("Prefix table invalid, using an empty table")
			return codes.EmptyPrefixTable()
		}
	}
	return c.prefixTable
}

// TieBreak liefert die konfigurierte Gleichstandsregel
func (c *Config) TieBreak() batch.TieBreak {
	tb, err := batch.ParseTieBreak(c.Batch.TieBreak)
	if err != nil {
		return batch.TieBreakFirstSeen
	}
	return tb
}

// ensureDirectories stellt sicher, dass alle erforderlichen Verzeichnisse existieren
func ensureDirectories(cfg *Config) error {
	if cfg.Server.DataDir != "" {
		if err := os.MkdirAll(cfg.Server.DataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	if cfg.Log.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	if cfg.DB.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.DB.File), 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	if cfg.Storage.Backend == "filesystem" && cfg.Storage.Dir != "" {
		if err := os.MkdirAll(cfg.Storage.Dir, 0755); err != nil {
			return fmt.Errorf("failed to create image directory: %w", err)
		}
	}

	return nil
}
