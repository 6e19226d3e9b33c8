package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "wavedirector.cfg.json"

// WaveConfig holds orchestrator timing and startup settings.
type WaveConfig struct {
	Mode              string        `json:"mode" mapstructure:"mode"`
	AutoStart         bool          `json:"autoStart" mapstructure:"autoStart"`
	StartIndex        int           `json:"startIndex" mapstructure:"startIndex"`
	InterWaveCooldown time.Duration `json:"interWaveCooldown" mapstructure:"interWaveCooldown"`
	CooldownHeal      float64       `json:"cooldownHeal" mapstructure:"cooldownHeal"`
	VictorySlow       time.Duration `json:"victorySlow" mapstructure:"victorySlow"`
	VictoryResume     time.Duration `json:"victoryResume" mapstructure:"victoryResume"`
	TickRate          time.Duration `json:"tickRate" mapstructure:"tickRate"`
}

// EconomyConfig selects where the player balance lives.
type EconomyConfig struct {
	// BalanceSource is one of "database", "memory", "api" or "none".
	BalanceSource   string `json:"balanceSource" mapstructure:"balanceSource"`
	StartingBalance int    `json:"startingBalance" mapstructure:"startingBalance"`
}

// FileConfig holds settings for the JSON file cache backend.
type FileConfig struct {
	Dir      string `json:"dir" mapstructure:"dir"`
	Compress bool   `json:"compress" mapstructure:"compress"`
}

// SQLiteConfig holds settings for the SQLite database.
type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// StorageConfig holds wave cache backend settings.
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	File   FileConfig   `json:"file" mapstructure:"file"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// StreamConfig holds the websocket event stream settings.
type StreamConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	URL     string `json:"url" mapstructure:"url"`
	Secret  string `json:"secret" mapstructure:"secret"`
}

// APIConfig holds the remote progress API settings.
type APIConfig struct {
	ServerURL string        `json:"serverUrl" mapstructure:"serverUrl"`
	APIKey    string        `json:"apiKey" mapstructure:"apiKey"`
	Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
}

// InfluxConfig holds the telemetry sink settings.
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
}

// SetDefaults registers every default value with viper.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")
	viper.SetDefault("contentPath", "./content/waves.json")
	viper.SetDefault("seed", 0)
	viper.SetDefault("profileId", "local")

	viper.SetDefault("waves.mode", "campaign")
	viper.SetDefault("waves.autoStart", true)
	viper.SetDefault("waves.startIndex", 0)
	viper.SetDefault("waves.interWaveCooldown", "5s")
	viper.SetDefault("waves.cooldownHeal", 25.0)
	viper.SetDefault("waves.victorySlow", "500ms")
	viper.SetDefault("waves.victoryResume", "500ms")
	viper.SetDefault("waves.tickRate", "16ms")

	viper.SetDefault("economy.balanceSource", "database")
	viper.SetDefault("economy.startingBalance", 0)

	viper.SetDefault("storage.type", "file")
	viper.SetDefault("storage.file.dir", "./wavecache")
	viper.SetDefault("storage.file.compress", false)
	viper.SetDefault("storage.sqlite.path", "./wavedirector.db")

	viper.SetDefault("db.type", "sqlite")
	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "wavedirector")

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")
	viper.SetDefault("api.timeout", "10s")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "wavedirector")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("stream.enabled", false)
	viper.SetDefault("stream.url", "ws://localhost:5000/api/waves")
	viper.SetDefault("stream.secret", "")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "wavedirector")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// BindFlags makes command line flags take precedence over file values.
// Flag names use the same dotted keys as the config file.
func BindFlags(flags *pflag.FlagSet) error {
	if err := viper.BindPFlags(flags); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetWaveConfig returns orchestrator settings.
func GetWaveConfig() WaveConfig {
	return WaveConfig{
		Mode:              viper.GetString("waves.mode"),
		AutoStart:         viper.GetBool("waves.autoStart"),
		StartIndex:        viper.GetInt("waves.startIndex"),
		InterWaveCooldown: viper.GetDuration("waves.interWaveCooldown"),
		CooldownHeal:      viper.GetFloat64("waves.cooldownHeal"),
		VictorySlow:       viper.GetDuration("waves.victorySlow"),
		VictoryResume:     viper.GetDuration("waves.victoryResume"),
		TickRate:          viper.GetDuration("waves.tickRate"),
	}
}

// GetEconomyConfig returns balance source settings.
func GetEconomyConfig() EconomyConfig {
	return EconomyConfig{
		BalanceSource:   viper.GetString("economy.balanceSource"),
		StartingBalance: viper.GetInt("economy.startingBalance"),
	}
}

// GetStorageConfig returns wave cache backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		File: FileConfig{
			Dir:      viper.GetString("storage.file.dir"),
			Compress: viper.GetBool("storage.file.compress"),
		},
		SQLite: SQLiteConfig{
			Path: viper.GetString("storage.sqlite.path"),
		},
	}
}

// GetOTelConfig returns OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetStreamConfig returns websocket stream settings.
func GetStreamConfig() StreamConfig {
	return StreamConfig{
		Enabled: viper.GetBool("stream.enabled"),
		URL:     viper.GetString("stream.url"),
		Secret:  viper.GetString("stream.secret"),
	}
}

// GetAPIConfig returns remote progress API settings.
func GetAPIConfig() APIConfig {
	return APIConfig{
		ServerURL: viper.GetString("api.serverUrl"),
		APIKey:    viper.GetString("api.apiKey"),
		Timeout:   viper.GetDuration("api.timeout"),
	}
}

// GetInfluxConfig returns telemetry sink settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
	}
}
