package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App    App    `mapstructure:"app"`
	AI     AI     `mapstructure:"ai"`
	Report Report `mapstructure:"report"`
	Server Server `mapstructure:"server"`
}

// App holds general application configuration
type App struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	DataDir  string `mapstructure:"data_dir"`
}

// AI holds AI/LLM configuration
type AI struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Timeout     string  `mapstructure:"timeout"`
	MaxTokens   int32   `mapstructure:"max_tokens"`
	Temperature float32 `mapstructure:"temperature"`
}

// Report holds report pipeline configuration
type Report struct {
	MaxRetries  int    `mapstructure:"max_retries"`
	CallTimeout string `mapstructure:"call_timeout"`
}

// Server holds HTTP server configuration
type Server struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORS         CORS          `mapstructure:"cors"`
}

// CORS holds CORS configuration for the HTTP server
type CORS struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

var globalConfig *Config

// Load reads configuration from .env, an optional config file, and
// environment variables, in that order of increasing precedence.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".reverie")
		viper.SetConfigType("yaml")
	}

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// The API key is commonly provided as a bare env var rather than a
	// viper key, so check the usual name directly.
	if config.AI.Gemini.APIKey == "" {
		config.AI.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the loaded configuration, loading defaults if Load was never
// called explicitly.
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
		return cfg
	}
	return globalConfig
}

// Reset clears the cached configuration. Intended for tests.
func Reset() {
	globalConfig = nil
	viper.Reset()
}

func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.data_dir", ".reverie")

	viper.SetDefault("ai.gemini.model", "gemini-flash-lite-latest")
	viper.SetDefault("ai.gemini.timeout", "60s")
	viper.SetDefault("ai.gemini.max_tokens", 2048)
	viper.SetDefault("ai.gemini.temperature", 0.7)

	viper.SetDefault("report.max_retries", 2)
	viper.SetDefault("report.call_timeout", "60s")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 120*time.Second)
	viper.SetDefault("server.cors.enabled", true)
	viper.SetDefault("server.cors.allowed_origins", []string{"*"})
}

func validateConfig(config *Config) error {
	if config.Report.MaxRetries < 0 {
		return fmt.Errorf("report.max_retries must be >= 0, got %d", config.Report.MaxRetries)
	}
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1-65535, got %d", config.Server.Port)
	}
	if _, err := time.ParseDuration(config.Report.CallTimeout); err != nil {
		return fmt.Errorf("report.call_timeout is not a valid duration: %w", err)
	}
	return nil
}

// CallTimeoutDuration returns the per-call deadline for generative calls.
func (r Report) CallTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(r.CallTimeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// Convenience accessors in the style of the rest of the codebase.
func GetApp() App              { return Get().App }
func GetGemini() GeminiConfig  { return Get().AI.Gemini }
func GetReport() Report        { return Get().Report }
func GetServer() Server        { return Get().Server }
func GetGeminiAPIKey() string  { return Get().AI.Gemini.APIKey }
func GetGeminiModel() string   { return Get().AI.Gemini.Model }
func IsDebugMode() bool        { return Get().App.Debug }
func GetDataDirectory() string { return Get().App.DataDir }
