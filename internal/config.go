/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package internal

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables overriding the .cfg file, e.g. CHAT_HTTP_SERVER_PORT
const EnvPrefix = "CHAT"

type Config struct {
	FolderPath         string `mapstructure:"folder-path" json:"folder-path"`
	DBName             string `mapstructure:"db-name" json:"db-name"`
	HTTPServerPort     uint16 `mapstructure:"http-server-port" json:"http-server-port"`
	ReadTimeout        int64  `mapstructure:"read-timeout" json:"read-timeout"`         // Seconds
	WriteTimeout       int64  `mapstructure:"write-timeout" json:"write-timeout"`       // Seconds
	ShutdownTimeout    int64  `mapstructure:"shutdown-timeout" json:"shutdown-timeout"` // Seconds
	SecretKey          string `mapstructure:"secret-key" json:"secret-key"`
	SecureCookies      bool   `mapstructure:"secure-cookies" json:"secure-cookies"`
	EnableLogging      bool   `mapstructure:"enable-logging" json:"enable-logging"`
	DevelopmentLogging bool   `mapstructure:"development-logging" json:"development-logging"`
	DefaultPageSize    int    `mapstructure:"default-page-size" json:"default-page-size"`
	MaxPageSize        int    `mapstructure:"max-page-size" json:"max-page-size"`
	BcryptCost         int    `mapstructure:"bcrypt-cost" json:"bcrypt-cost"`
	MessagesPerMinute  int    `mapstructure:"messages-per-minute" json:"messages-per-minute"` // Per user, 0 disables the limit
	MessageBurst       int    `mapstructure:"message-burst" json:"message-burst"`
}

var defaults = map[string]any{
	"db-name":             "school.db",
	"http-server-port":    8080,
	"read-timeout":        10,
	"write-timeout":       10,
	"shutdown-timeout":    10,
	"secret-key":          "",
	"secure-cookies":      false,
	"enable-logging":      true,
	"development-logging": false,
	"default-page-size":   50,
	"max-page-size":       500,
	"bcrypt-cost":         10,
	"messages-per-minute": 30,
	"message-burst":       5,
}

// LoadConfig reads <folderPath>/.cfg (JSON), if present, then applies the CHAT_* environment variables on top.
// A <folderPath>/.env file, if present, is loaded into the environment first; variables already set win.
func LoadConfig(folderPath string) (*Config, error) {
	envFile := filepath.Join(folderPath, ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, errors.Wrapf(err, "loading %s", envFile)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetDefault("folder-path", folderPath)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cfgFile := filepath.Join(folderPath, ".cfg")
	if _, err := os.Stat(cfgFile); err == nil {
		v.SetConfigFile(cfgFile)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading %s", cfgFile)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errors.Wrap(err, "decoding the configuration")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the values no default can fix
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DBName) == "" {
		return errors.New("db-name is required")
	}
	if len(c.SecretKey) < 32 {
		return errors.New("secret-key must be at least 32 bytes long")
	}
	if c.HTTPServerPort == 0 {
		return errors.New("http-server-port is required")
	}
	if c.DefaultPageSize <= 0 || c.MaxPageSize < c.DefaultPageSize {
		return errors.Errorf("page sizes are not valid: default %d, max %d", c.DefaultPageSize, c.MaxPageSize)
	}
	return nil
}

// DBPath is the database file, inside the folder
func (c *Config) DBPath() string {
	return filepath.Join(c.FolderPath, c.DBName)
}

func (c *Config) ReadTimeoutDuration() time.Duration {
	return time.Duration(c.ReadTimeout) * time.Second
}

func (c *Config) WriteTimeoutDuration() time.Duration {
	return time.Duration(c.WriteTimeout) * time.Second
}

func (c *Config) ShutdownTimeoutDuration() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Second
}
