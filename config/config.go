// config/config.go
package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Configuration stores all the configurations
type Configuration struct {
	Server        ServerConfiguration
	Postgres      DatabaseConfiguration
	Redis         RedisConfiguration
	Elasticsearch ElasticsearchConfiguration
	Alert         AlertConfiguration
	Risk          RiskConfiguration
}

// ServerConfiguration stores the port and other web server settings
type ServerConfiguration struct {
	Port string
}

// DatabaseConfiguration stores data for the Postgres connection
type DatabaseConfiguration struct {
	DSN string
}

// RedisConfiguration stores data for Redis connection
type RedisConfiguration struct {
	Addr            string
	DefaultCacheTTL string
}

// ElasticsearchConfiguration stores data for Elasticsearch connection
type ElasticsearchConfiguration struct {
	URL string
}

// AlertConfiguration stores thresholds for the anomaly rules
type AlertConfiguration struct {
	BurstThreshold    int
	BurstWindow       time.Duration
	DedupWindow       time.Duration
	NewSourceLookback time.Duration
}

// RiskConfiguration stores settings for the external risk classifier
type RiskConfiguration struct {
	ClassifierURL     string
	ClassifierTimeout time.Duration
	HighRiskThreshold int
}

var config *Configuration

func InitConfig() error {
	viper.AddConfigPath("config") // path to look for the config file in
	viper.SetConfigName("config") // name of the config file (without extension)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv() // read in environment variables that match

	// Set default configurations
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("postgres.dsn", "postgres://localhost:5432/gestione_doc?sslmode=disable")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.defaultCacheTTL", "1m")
	viper.SetDefault("elasticsearch.url", "http://localhost:9200")
	viper.SetDefault("log.dir", "logging")

	// Anomaly rule thresholds
	viper.SetDefault("alert.burstThreshold", 10)
	viper.SetDefault("alert.burstWindow", "5m")
	viper.SetDefault("alert.dedupWindow", "10m")
	viper.SetDefault("alert.newSourceLookback", "2160h") // 90 days

	// Risk scoring
	viper.SetDefault("risk.classifierURL", "http://localhost:11434/api/classify")
	viper.SetDefault("risk.classifierTimeout", "5s")
	viper.SetDefault("risk.highRiskThreshold", 70)

	// Admin surface auth
	viper.SetDefault("auth.jwtSecret", "")

	// Attempt to read the config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found. Using default settings and environment variables.")
		} else {
			return err
		}
	}

	// Unmarshal the configuration into the Configuration struct
	if err := viper.Unmarshal(&config); err != nil {
		return err
	}

	return nil
}

// GetConfig returns the loaded configuration
func GetConfig() *Configuration {
	return config
}

// GetString retrieves a string value from the configuration
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt retrieves an integer value from the configuration
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool retrieves a boolean value from the configuration
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration retrieves a duration value from the configuration
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}
