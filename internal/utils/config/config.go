package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/dwarvesf/paywatch/internal/types/environments"
	"github.com/dwarvesf/paywatch/internal/utils/vault"
)

type AppConfig struct {
	Environment environments.Environment
	ApiServer   ApiServerConfig
	Postgres    DBConnection
	BlockCypher BlockCypherConfig
	Wallet      WalletConfig
	Payment     PaymentConfig
	Kafka       KafkaConfig
	Admin       AdminConfig
	Vault       VaultConfig
}

type ApiServerConfig struct {
	Port           string `env:"PORT" env-default:"8080"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS" env-default:"*"`
	// PublicBaseURL is where the provider reaches this service; the
	// webhook callback URL is derived from it.
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`
}

type DBConnection struct {
	Host string `env:"DB_HOST" env-default:"localhost"`
	Port string `env:"DB_PORT" env-default:"5432"`
	User string `env:"DB_USER" env-default:"postgres"`
	Name string `env:"DB_NAME" env-default:"paywatch"`
	Pass string `env:"DB_PASS"`

	SSLMode string `env:"DB_SSL_MODE" env-default:"disable"`
}

type BlockCypherConfig struct {
	APIURL string `env:"BLOCKCYPHER_API_URL" env-default:"https://api.blockcypher.com/v1/btc"`
	Token  string `env:"BLOCKCYPHER_TOKEN"`
	// Network is the path segment after the coin: "test3" or "main".
	Network string `env:"BLOCKCYPHER_NETWORK" env-default:"test3"`

	HookEvent         string `env:"BLOCKCYPHER_HOOK_EVENT" env-default:"tx-confirmation"`
	HookConfirmations int    `env:"BLOCKCYPHER_HOOK_CONFIRMATIONS" env-default:"1"`

	MaxAttempts    int           `env:"BLOCKCYPHER_MAX_ATTEMPTS" env-default:"3"`
	RetryBaseDelay time.Duration `env:"BLOCKCYPHER_RETRY_BASE_DELAY" env-default:"500ms"`
	RetryMaxDelay  time.Duration `env:"BLOCKCYPHER_RETRY_MAX_DELAY" env-default:"10s"`
	AttemptTimeout time.Duration `env:"BLOCKCYPHER_ATTEMPT_TIMEOUT" env-default:"30s"`
}

type WalletConfig struct {
	// XPub is the BIP84 account-level extended public key (tpub/vpub on testnet).
	XPub string `env:"WALLET_XPUB"`
	// CursorName scopes the derivation index so several wallets can share a database.
	CursorName string `env:"WALLET_CURSOR_NAME" env-default:"default"`
}

type PaymentConfig struct {
	MaxAge           time.Duration `env:"PAYMENT_MAX_AGE" env-default:"168h"`
	EvictionSchedule string        `env:"EVICTION_SCHEDULE" env-default:"@every 1h"`
	// EvictionHeartbeatURL is pinged after every successful eviction run.
	EvictionHeartbeatURL string `env:"EVICTION_HEARTBEAT_URL"`
}

type KafkaConfig struct {
	Brokers     []string `env:"KAFKA_BROKERS" env-separator:","`
	StatusTopic string   `env:"KAFKA_STATUS_TOPIC" env-default:"payment-status-changed"`
}

type AdminConfig struct {
	JWTSecret string `env:"ADMIN_JWT_SECRET"`
}

// VaultConfig enables reading secrets from Vault instead of the environment.
type VaultConfig struct {
	Addr   string `env:"VAULT_ADDR"`
	KVPath string `env:"VAULT_KV_PATH" env-default:"secret/data/paywatch"`
	Role   string `env:"VAULT_ROLE" env-default:"paywatch"`
}

// SecretSource is satisfied by the Vault client.
type SecretSource interface {
	GetKV(key string) (string, error)
}

func New() *AppConfig {
	env := environments.Parse(os.Getenv("APP_ENV"))

	// this will not override env variables if they already exist
	_ = godotenv.Load(".env." + string(env))

	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	cfg.Environment = env

	if cfg.Vault.Addr != "" {
		vc, err := vault.New(cfg.Vault.Addr, cfg.Vault.KVPath, cfg.Vault.Role)
		if err != nil {
			panic(err)
		}
		if err := cfg.LoadSecrets(vc); err != nil {
			panic(err)
		}
	}

	return cfg
}

// Load reads the configuration from the process environment only.
func Load() (*AppConfig, error) {
	var cfg AppConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from env: %w", err)
	}
	cfg.Environment = environments.Parse(os.Getenv("APP_ENV"))

	return &cfg, nil
}

// LoadSecrets overrides secret settings with the values found in src. Keys
// missing from src keep their environment value.
func (c *AppConfig) LoadSecrets(src SecretSource) error {
	targets := map[string]*string{
		"BLOCKCYPHER_TOKEN": &c.BlockCypher.Token,
		"ADMIN_JWT_SECRET":  &c.Admin.JWTSecret,
		"WALLET_XPUB":       &c.Wallet.XPub,
		"DB_PASS":           &c.Postgres.Pass,
	}
	for key, target := range targets {
		v, err := src.GetKV(key)
		if err != nil {
			if errors.Is(err, vault.ErrSecretNotFound) {
				continue
			}
			return errors.Wrapf(err, "failed to read %s from vault", key)
		}
		*target = v
	}
	return nil
}

// CallbackURL is the absolute URL registered with the provider for webhooks.
func (c *AppConfig) CallbackURL() string {
	return fmt.Sprintf("%s/api/v1/webhooks/blockcypher", trimTrailingSlash(c.ApiServer.PublicBaseURL))
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
