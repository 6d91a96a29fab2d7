package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the full application configuration. It is loaded once at
// process start and passed by reference into every component constructor;
// nothing reads configuration ambiently after that.
type Config struct {
	AppURL        string   `mapstructure:"appURL"`
	APIPort       int      `mapstructure:"apiPort"`
	CORSOrigins   []string `mapstructure:"corsOrigins"`
	SignupEnabled bool     `mapstructure:"signupEnabled"`

	Database struct {
		Type            string `mapstructure:"type"` // "postgres" or "sqlite"
		Path            string `mapstructure:"path"` // sqlite only
		Host            string `mapstructure:"host"`
		Port            string `mapstructure:"port"`
		Name            string `mapstructure:"name"`
		User            string `mapstructure:"user"`
		Password        string `mapstructure:"password"`
		SSLMode         string `mapstructure:"sslMode"`
		MaxConns        int    `mapstructure:"maxConns"`
		MaxIdle         int    `mapstructure:"maxIdle"`
		ConnMaxLifetime string `mapstructure:"connMaxLifetime"`
	} `mapstructure:"database"`

	JWT struct {
		Secret          string        `mapstructure:"secret"`
		AccessDuration  time.Duration `mapstructure:"accessDuration"`
		RefreshDuration time.Duration `mapstructure:"refreshDuration"`
		EmailDuration   time.Duration `mapstructure:"emailDuration"`
	} `mapstructure:"jwt"`

	Cache struct {
		Type     string `mapstructure:"type"` // "redis" or "memory"
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
		Prefix   string `mapstructure:"prefix"`
	} `mapstructure:"cache"`

	Broker struct {
		Host            string `mapstructure:"host"`
		Port            int    `mapstructure:"port"`
		User            string `mapstructure:"user"`
		Password        string `mapstructure:"password"`
		VHost           string `mapstructure:"vhost"`
		EmailExchange   string `mapstructure:"emailExchange"`
		EmailRoutingKey string `mapstructure:"emailRoutingKey"`
		TaskExchange    string `mapstructure:"taskExchange"`
		TaskRoutingKey  string `mapstructure:"taskRoutingKey"`
	} `mapstructure:"broker"`

	Captcha struct {
		SiteKey string `mapstructure:"siteKey"`
		Secret  string `mapstructure:"secret"`
	} `mapstructure:"captcha"`

	Export struct {
		Endpoint        string `mapstructure:"endpoint"`
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		AccessKeyID     string `mapstructure:"accessKeyID"`
		SecretAccessKey string `mapstructure:"secretAccessKey"`
	} `mapstructure:"export"`
}

// BrokerURL builds the AMQP connection URL from the broker settings.
func (c *Config) BrokerURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s",
		c.Broker.User, c.Broker.Password, c.Broker.Host, c.Broker.Port, c.Broker.VHost)
}

// LoadConfig loads the configuration from file and environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("KORU")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		log.Printf("Warning: Could not read config file: %s. Using defaults or environment variables.", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Defaults, logged when they kick in
	if cfg.APIPort == 0 {
		cfg.APIPort = 8080
		log.Println("APIPort not specified, using default 8080")
	}
	if cfg.AppURL == "" {
		cfg.AppURL = "http://localhost:3000"
		log.Println("AppURL not specified, using default http://localhost:3000")
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"http://localhost:3000", "http://localhost:8081"}
	}
	if !v.IsSet("signupEnabled") {
		cfg.SignupEnabled = true
	}

	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
		log.Println("Database type not specified, using sqlite")
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/koru.db"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	if cfg.JWT.AccessDuration == 0 {
		cfg.JWT.AccessDuration = 15 * time.Minute
	}
	if cfg.JWT.RefreshDuration == 0 {
		cfg.JWT.RefreshDuration = 7 * 24 * time.Hour
	}
	if cfg.JWT.EmailDuration == 0 {
		cfg.JWT.EmailDuration = 24 * time.Hour
	}
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt.secret is required")
	}

	if cfg.Cache.Type == "" {
		cfg.Cache.Type = "redis"
	}
	if cfg.Cache.Addr == "" {
		cfg.Cache.Addr = "localhost:6379"
	}
	if cfg.Cache.Prefix == "" {
		cfg.Cache.Prefix = "koru:"
	}

	if cfg.Broker.Host == "" {
		cfg.Broker.Host = "localhost"
	}
	if cfg.Broker.Port == 0 {
		cfg.Broker.Port = 5672
	}
	if cfg.Broker.User == "" {
		cfg.Broker.User = "guest"
	}
	if cfg.Broker.Password == "" {
		cfg.Broker.Password = "guest"
	}
	if cfg.Broker.EmailExchange == "" {
		cfg.Broker.EmailExchange = "koru.email.dx"
	}
	if cfg.Broker.EmailRoutingKey == "" {
		cfg.Broker.EmailRoutingKey = "email.send"
	}
	if cfg.Broker.TaskExchange == "" {
		cfg.Broker.TaskExchange = "koru.task.dx"
	}
	if cfg.Broker.TaskRoutingKey == "" {
		cfg.Broker.TaskRoutingKey = "task.enrich"
	}

	if cfg.Export.Region == "" {
		cfg.Export.Region = "us-east-1"
	}

	return &cfg, nil
}
