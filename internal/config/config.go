package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	JWT     JWTConfig     `mapstructure:"jwt"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// StorageConfig locates everything durable: the record store file and the
// web root whose uploads/ and recordings/ subdirectories receive media.
type StorageConfig struct {
	WebDir    string `mapstructure:"web_dir"`
	StoreFile string `mapstructure:"store_file"`
}

// JWTConfig defines JWT specific configuration.
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Environment variable handling: server.address -> SERVER_ADDRESS,
	// jwt.expiration -> JWT_EXPIRATION, etc.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	// Defaults suit a single-user desktop install: loopback only, store
	// file and web root next to the binary.
	viper.SetDefault("server.address", "127.0.0.1:8000")
	viper.SetDefault("storage.web_dir", "web")
	viper.SetDefault("storage.store_file", "db.json")
	viper.SetDefault("jwt.secret", "deceptron-local-secret")
	viper.SetDefault("jwt.expiration", "12h")

	err = viper.ReadInConfig()
	// Missing config file is fine; defaults and env vars carry the app.
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
