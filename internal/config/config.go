// Package config holds the viper-backed settings shared by every command.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "dataviewer.cfg.json"

// EnvPrefix prefixes environment overrides, e.g. DATAVIEWER_SERVER_PORT.
const EnvPrefix = "DATAVIEWER"

// ServerConfig holds HTTP viewer settings.
type ServerConfig struct {
	Host    string `json:"host" mapstructure:"host"`
	Port    int    `json:"port" mapstructure:"port"`
	WebRoot string `json:"webRoot" mapstructure:"webRoot"`
}

// Addr returns host:port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `json:"level" mapstructure:"level"`
	Dir   string `json:"dir" mapstructure:"dir"`
	// ToFile sends logs to a session file under Dir instead of the console.
	ToFile bool `json:"toFile" mapstructure:"toFile"`
}

// MemoryConfig holds in-memory/JSON storage backend settings.
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// LogFileConfig holds settings for the frame log storage backend.
type LogFileConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// SQLiteConfig holds SQLite storage backend settings. An empty Path keeps the database in
// memory and relies on DumpPath snapshots.
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	BatchSize    int           `json:"batchSize" mapstructure:"batchSize"`
}

// PostgresConfig holds Postgres storage backend settings.
type PostgresConfig struct {
	Host      string `json:"host" mapstructure:"host"`
	Port      string `json:"port" mapstructure:"port"`
	Username  string `json:"username" mapstructure:"username"`
	Password  string `json:"password" mapstructure:"password"`
	Database  string `json:"database" mapstructure:"database"`
	SSLMode   string `json:"sslMode" mapstructure:"sslMode"`
	BatchSize int    `json:"batchSize" mapstructure:"batchSize"`
}

// DSN returns the libpq connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode)
}

// WebSocketConfig holds settings for streaming frames to a live viewer.
type WebSocketConfig struct {
	URL        string        `json:"url" mapstructure:"url"`
	Secret     string        `json:"secret" mapstructure:"secret"`
	AckTimeout time.Duration `json:"ackTimeout" mapstructure:"ackTimeout"`
}

// StorageConfig selects and configures the export backend.
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	LogFile   LogFileConfig   `json:"logfile" mapstructure:"logfile"`
	SQLite    SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	Postgres  PostgresConfig  `json:"postgres" mapstructure:"postgres"`
	WebSocket WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// InfluxConfig holds InfluxDB reporter settings.
type InfluxConfig struct {
	Enabled    bool   `json:"enabled" mapstructure:"enabled"`
	Protocol   string `json:"protocol" mapstructure:"protocol"`
	Host       string `json:"host" mapstructure:"host"`
	Port       string `json:"port" mapstructure:"port"`
	Token      string `json:"token" mapstructure:"token"`
	Org        string `json:"org" mapstructure:"org"`
	Bucket     string `json:"bucket" mapstructure:"bucket"`
	BackupPath string `json:"backupPath" mapstructure:"backupPath"`
}

// URL returns the server URL.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// GraylogConfig holds GELF sink settings.
type GraylogConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Address  string `json:"address" mapstructure:"address"`
	Facility string `json:"facility" mapstructure:"facility"`
}

// SerializerConfig holds canonical output settings.
type SerializerConfig struct {
	// Metadata also writes comment and layer attributes.
	Metadata bool `json:"metadata" mapstructure:"metadata"`
}

// ReaderConfig holds frame reader settings.
type ReaderConfig struct {
	// Strict returns frame decode errors to callers instead of only logging them.
	Strict bool `json:"strict" mapstructure:"strict"`
}

// SetDefaults registers every default value.
func SetDefaults() {
	viper.SetDefault("input", "")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.dir", "./logs")
	viper.SetDefault("log.toFile", false)

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 3527)
	viper.SetDefault("server.webRoot", ".")

	viper.SetDefault("reader.strict", false)
	viper.SetDefault("serializer.metadata", false)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./exports")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.logfile.path", "./export.log")
	viper.SetDefault("storage.sqlite.path", "")
	viper.SetDefault("storage.sqlite.dumpPath", "./frames.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.batchSize", 2000)
	viper.SetDefault("storage.postgres.host", "localhost")
	viper.SetDefault("storage.postgres.port", "5432")
	viper.SetDefault("storage.postgres.username", "postgres")
	viper.SetDefault("storage.postgres.password", "postgres")
	viper.SetDefault("storage.postgres.database", "dataviewer")
	viper.SetDefault("storage.postgres.sslMode", "disable")
	viper.SetDefault("storage.postgres.batchSize", 10000)
	viper.SetDefault("storage.websocket.url", "")
	viper.SetDefault("storage.websocket.secret", "")
	viper.SetDefault("storage.websocket.ackTimeout", "10s")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "dataviewer")
	viper.SetDefault("influx.bucket", "frames")
	viper.SetDefault("influx.backupPath", "./influx_backup.lp.gz")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")
	viper.SetDefault("graylog.facility", "dataviewer")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "dataviewer")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

func bindEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// Load registers defaults and environment overrides, then reads FileName from configDir
// if it exists. A missing file is not an error.
func Load(configDir string) error {
	SetDefaults()
	bindEnv()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// LoadFile is Load for an explicit config file path, which must exist.
func LoadFile(path string) error {
	SetDefaults()
	bindEnv()

	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// GetInput returns the frame log path.
func GetInput() string {
	return viper.GetString("input")
}

func GetServerConfig() ServerConfig {
	return ServerConfig{
		Host:    viper.GetString("server.host"),
		Port:    viper.GetInt("server.port"),
		WebRoot: viper.GetString("server.webRoot"),
	}
}

func GetLogConfig() LogConfig {
	return LogConfig{
		Level:  viper.GetString("log.level"),
		Dir:    viper.GetString("log.dir"),
		ToFile: viper.GetBool("log.toFile"),
	}
}

func GetReaderConfig() ReaderConfig {
	return ReaderConfig{Strict: viper.GetBool("reader.strict")}
}

func GetSerializerConfig() SerializerConfig {
	return SerializerConfig{Metadata: viper.GetBool("serializer.metadata")}
}

func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		LogFile: LogFileConfig{
			Path: viper.GetString("storage.logfile.path"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			BatchSize:    viper.GetInt("storage.sqlite.batchSize"),
		},
		Postgres: PostgresConfig{
			Host:      viper.GetString("storage.postgres.host"),
			Port:      viper.GetString("storage.postgres.port"),
			Username:  viper.GetString("storage.postgres.username"),
			Password:  viper.GetString("storage.postgres.password"),
			Database:  viper.GetString("storage.postgres.database"),
			SSLMode:   viper.GetString("storage.postgres.sslMode"),
			BatchSize: viper.GetInt("storage.postgres.batchSize"),
		},
		WebSocket: WebSocketConfig{
			URL:        viper.GetString("storage.websocket.url"),
			Secret:     viper.GetString("storage.websocket.secret"),
			AckTimeout: viper.GetDuration("storage.websocket.ackTimeout"),
		},
	}
}

func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:    viper.GetBool("influx.enabled"),
		Protocol:   viper.GetString("influx.protocol"),
		Host:       viper.GetString("influx.host"),
		Port:       viper.GetString("influx.port"),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		BackupPath: viper.GetString("influx.backupPath"),
	}
}

func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled:  viper.GetBool("graylog.enabled"),
		Address:  viper.GetString("graylog.address"),
		Facility: viper.GetString("graylog.facility"),
	}
}
