package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Services ServicesConfig `mapstructure:"services"`
	Depth    DepthConfig    `mapstructure:"depth"`
	Compose  ComposeConfig  `mapstructure:"compose"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type UploadConfig struct {
	MaxSize      int64    `mapstructure:"max_size"`
	AllowedTypes []string `mapstructure:"allowed_types"`
}

type ServicesConfig struct {
	BlendURL    string `mapstructure:"blend_url"`
	BlendModel  string `mapstructure:"blend_model"`
	BlendPrompt string `mapstructure:"blend_prompt"`
	OllamaURL   string `mapstructure:"ollama_url"`
	VisionModel string `mapstructure:"vision_model"`
}

// DepthConfig holds the shadow-halo estimator constants.
type DepthConfig struct {
	MinScale    float64 `mapstructure:"min_scale"`
	MaxScale    float64 `mapstructure:"max_scale"`
	MinRotation float64 `mapstructure:"min_rotation"`
	MaxRotation float64 `mapstructure:"max_rotation"`
}

type ComposeConfig struct {
	SendMaxDim  int `mapstructure:"send_max_dim"`
	SendQuality int `mapstructure:"send_quality"`
}

// Load reads configuration from a YAML file.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// New loads configuration from the default path, falling back to the
// built-in defaults when no file is present.
func New() *Config {
	cfg, err := Load("config.yaml")
	if err != nil {
		return getDefaultConfig()
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("upload.max_size", 20*1024*1024)
	v.SetDefault("upload.allowed_types", []string{"image/jpeg", "image/png", "image/jpg", "image/webp"})

	v.SetDefault("services.blend_url", "http://localhost:8188")
	v.SetDefault("services.blend_model", "")
	v.SetDefault("services.blend_prompt", "Blend the vehicle naturally into the scene with matching light and shadows.")
	v.SetDefault("services.ollama_url", "http://localhost:11434")
	v.SetDefault("services.vision_model", "openbmb/minicpm-v4.5")

	v.SetDefault("depth.min_scale", 0.2)
	v.SetDefault("depth.max_scale", 1.2)
	v.SetDefault("depth.min_rotation", 20.0)
	v.SetDefault("depth.max_rotation", 75.0)

	v.SetDefault("compose.send_max_dim", 1536)
	v.SetDefault("compose.send_quality", 85)
}

func getDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         ":8080",
			Mode:         "debug",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			TTL:      24 * time.Hour,
		},
		Upload: UploadConfig{
			MaxSize:      20 * 1024 * 1024,
			AllowedTypes: []string{"image/jpeg", "image/png", "image/jpg", "image/webp"},
		},
		Services: ServicesConfig{
			BlendURL:    "http://localhost:8188",
			BlendPrompt: "Blend the vehicle naturally into the scene with matching light and shadows.",
			OllamaURL:   "http://localhost:11434",
			VisionModel: "openbmb/minicpm-v4.5",
		},
		Depth: DepthConfig{
			MinScale:    0.2,
			MaxScale:    1.2,
			MinRotation: 20,
			MaxRotation: 75,
		},
		Compose: ComposeConfig{
			SendMaxDim:  1536,
			SendQuality: 85,
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Upload.MaxSize < 1 {
		return fmt.Errorf("upload.max_size must be positive")
	}
	if len(c.Upload.AllowedTypes) == 0 {
		return fmt.Errorf("upload.allowed_types cannot be empty")
	}
	if c.Depth.MinScale >= c.Depth.MaxScale {
		return fmt.Errorf("depth.min_scale must be below depth.max_scale")
	}
	if c.Depth.MinRotation >= c.Depth.MaxRotation {
		return fmt.Errorf("depth.min_rotation must be below depth.max_rotation")
	}
	if c.Compose.SendQuality < 1 || c.Compose.SendQuality > 100 {
		return fmt.Errorf("compose.send_quality must be between 1 and 100")
	}
	return nil
}
