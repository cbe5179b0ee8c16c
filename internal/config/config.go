package config

import (
	"net"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Host              string
	Port              int
	ModelDir          string
	Runtime           string // auto, onnx, opencv or linear
	ONNXLibraryPath   string
	PreferAccelerator bool
	StaticDir         string
	LogDirectory      string
	DatabasePath      string
	MaxUploadSize     int64 // bytes
	HistoryLimit      int
}

// Load reads .env (if present), an optional config.yaml from the working
// directory and environment variables, in increasing order of precedence.
func Load() *Config {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	_ = v.ReadInConfig()

	return fromViper(v)
}

// Default returns the configuration with every key at its default value.
func Default() *Config {
	return fromViper(viper.New())
}

func fromViper(v *viper.Viper) *Config {
	v.AutomaticEnv()
	v.SetDefault("HOST", "127.0.0.1")
	v.SetDefault("PORT", 7860)
	v.SetDefault("MODEL_DIR", filepath.Join(".", "model"))
	v.SetDefault("RUNTIME", "auto")
	v.SetDefault("ONNX_LIBRARY_PATH", "")
	v.SetDefault("PREFER_ACCELERATOR", true)
	v.SetDefault("STATIC_DIR", filepath.Join(".", "static"))
	v.SetDefault("LOG_DIR", filepath.Join(".", "logs"))
	v.SetDefault("DB_PATH", filepath.Join(".", "data", "classifier.db"))
	v.SetDefault("MAX_UPLOAD_MB", 10)
	v.SetDefault("HISTORY_LIMIT", 20)

	cfg := &Config{
		Host:              v.GetString("HOST"),
		Port:              v.GetInt("PORT"),
		ModelDir:          v.GetString("MODEL_DIR"),
		Runtime:           strings.ToLower(strings.TrimSpace(v.GetString("RUNTIME"))),
		ONNXLibraryPath:   v.GetString("ONNX_LIBRARY_PATH"),
		PreferAccelerator: v.GetBool("PREFER_ACCELERATOR"),
		StaticDir:         v.GetString("STATIC_DIR"),
		LogDirectory:      v.GetString("LOG_DIR"),
		DatabasePath:      v.GetString("DB_PATH"),
		MaxUploadSize:     v.GetInt64("MAX_UPLOAD_MB") << 20,
		HistoryLimit:      v.GetInt("HISTORY_LIMIT"),
	}

	if cfg.Runtime == "" {
		cfg.Runtime = "auto"
	}
	if cfg.Port <= 0 {
		cfg.Port = 7860
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = 10 << 20
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 20
	}

	return cfg
}

// Address is the host:port the HTTP server binds to.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
