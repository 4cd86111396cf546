package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	Chain      ChainConfig      `json:"chain"`
	Storage    StorageConfig    `json:"storage"`
	Search     SearchConfig     `json:"search"`
	Redis      RedisConfig      `json:"redis"`
	Mongo      MongoConfig      `json:"mongo"`
	Email      EmailConfig      `json:"email"`
	Security   SecurityConfig   `json:"security"`
	Reconciler ReconcilerConfig `json:"reconciler"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	User           string `json:"user"`
	Password       string `json:"password"`
	DBName         string `json:"db_name"`
	SSLMode        string `json:"ssl_mode"`
	MaxConnections int    `json:"max_connections"`
	MaxIdleConns   int    `json:"max_idle_conns"`
}

// ChainConfig holds the network and contract parameters. Defaults are the
// Polygon Amoy testnet deployment the platform runs against.
type ChainConfig struct {
	ChainID           int64   `json:"chain_id"`
	RPCURL            string  `json:"rpc_url"`
	ContractAddress   string  `json:"contract_address"`
	VerifierAddress   string  `json:"verifier_address"`
	FeeRecipient      string  `json:"fee_recipient"`
	PlatformFeeBP     int64   `json:"platform_fee_bp"`
	UnitPriceMatic    float64 `json:"unit_price_matic"`
	MaticToUSD        float64 `json:"matic_to_usd"`
	CreditsPerHectare float64 `json:"credits_per_hectare"`
	SignerKey         string  `json:"signer_key"` // hex private key of the verifier account
}

// StorageConfig configures the metadata object store
type StorageConfig struct {
	Bucket string `json:"bucket"`
	Region string `json:"region"`
	Prefix string `json:"prefix"`
}

// SearchConfig configures the optional Elasticsearch project index
type SearchConfig struct {
	Addresses []string `json:"addresses"`
	Index     string   `json:"index"`
}

// RedisConfig configures the chain view-call cache
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// MongoConfig configures the raw monitoring payload archive
type MongoConfig struct {
	URI        string `json:"uri"`
	Database   string `json:"database"`
	Collection string `json:"collection"`
}

// EmailConfig configures review notification mail
type EmailConfig struct {
	Region string `json:"region"`
	Sender string `json:"sender"`
}

// SecurityConfig holds auth settings
type SecurityConfig struct {
	JWTSecret string        `json:"jwt_secret"`
	TokenTTL  time.Duration `json:"token_ttl"`
}

// ReconcilerConfig drives the issuance outbox sweep
type ReconcilerConfig struct {
	Schedule   string `json:"schedule"`
	MaxRetries int    `json:"max_retries"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// .env is optional; environment wins over file contents either way
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			User:           os.Getenv("USER"),
			DBName:         "carbonchain",
			SSLMode:        "disable",
			MaxConnections: 25,
			MaxIdleConns:   5,
		},
		Chain: ChainConfig{
			ChainID:           80002,
			RPCURL:            "https://rpc-amoy.polygon.technology",
			ContractAddress:   "0xeb4cba4759bf91b0d3252564b951f1d577e744df",
			VerifierAddress:   "0x087573bec726A13d77F521318b3FD7dE3c830988",
			FeeRecipient:      "0x087573bec726A13d77F521318b3FD7dE3c830988",
			PlatformFeeBP:     250,
			UnitPriceMatic:    0.001,
			MaticToUSD:        0.5,
			CreditsPerHectare: 20,
		},
		Storage: StorageConfig{
			Bucket: "carbonchain-metadata",
			Region: "us-east-1",
			Prefix: "carbon-credits",
		},
		Search: SearchConfig{
			Index: "carbonchain-projects",
		},
		Mongo: MongoConfig{
			Database:   "carbonchain",
			Collection: "monitoring_raw",
		},
		Email: EmailConfig{
			Region: "us-east-1",
			Sender: "no-reply@carbonchain.io",
		},
		Security: SecurityConfig{
			TokenTTL: 24 * time.Hour,
		},
		Reconciler: ReconcilerConfig{
			Schedule:   "@every 1m",
			MaxRetries: 5,
		},
	}

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	overrideWithEnv(config)

	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbPort := os.Getenv("DATABASE_PORT"); dbPort != "" {
		if p, err := strconv.Atoi(dbPort); err == nil {
			config.Database.Port = p
		}
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if rpc := os.Getenv("CHAIN_RPC_URL"); rpc != "" {
		config.Chain.RPCURL = rpc
	}
	if key := os.Getenv("CHAIN_SIGNER_KEY"); key != "" {
		config.Chain.SignerKey = key
	}
	if contract := os.Getenv("CHAIN_CONTRACT_ADDRESS"); contract != "" {
		config.Chain.ContractAddress = contract
	}
	if bucket := os.Getenv("STORAGE_BUCKET"); bucket != "" {
		config.Storage.Bucket = bucket
	}
	if region := os.Getenv("STORAGE_REGION"); region != "" {
		config.Storage.Region = region
	}
	if es := os.Getenv("ELASTICSEARCH_URL"); es != "" {
		config.Search.Addresses = []string{es}
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		config.Redis.Addr = addr
	}
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		config.Mongo.URI = uri
	}
	if sender := os.Getenv("EMAIL_SENDER"); sender != "" {
		config.Email.Sender = sender
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Security.JWTSecret = secret
	}
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
