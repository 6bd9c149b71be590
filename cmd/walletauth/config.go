package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// config is the binary's configuration. A YAML file is loaded first and
// command-line flags that were set explicitly override it.
type config struct {
	ListenAddr     string            `koanf:"listen_addr"`
	DatabaseURL    string            `koanf:"database_url"`
	RedisURL       string            `koanf:"redis_url"`
	MigrateOnStart bool              `koanf:"migrate_on_start"`
	Domain         string            `koanf:"domain"`
	URI            string            `koanf:"uri"`
	Chains         map[string]string `koanf:"chains"`
	RPCTimeout     time.Duration     `koanf:"rpc_timeout"`
	NonceTTL       time.Duration     `koanf:"nonce_ttl"`
	Anonymous      bool              `koanf:"anonymous"`
	EmailDomain    string            `koanf:"email_domain"`
	Issuer         string            `koanf:"issuer"`
	SessionTTL     time.Duration     `koanf:"session_ttl"`
	SessionKeyFile string            `koanf:"session_key_file"`
	CookieName     string            `koanf:"cookie_name"`
	ENSRPCURL      string            `koanf:"ens_rpc_url"`
	SweepCron      string            `koanf:"sweep_cron"`
	LogLevel       string            `koanf:"log_level"`
	Dev            bool              `koanf:"dev"`
}

// Default values for serve flags.
const (
	defaultListenAddr = ":8080"
	defaultNonceTTL   = 5 * time.Minute
	defaultSessionTTL = 7 * 24 * time.Hour
	defaultRPCTimeout = 10 * time.Second
	defaultSweepCron  = "*/10 * * * *"
	defaultLogLevel   = "info"
)

func defaultConfig() *config {
	return &config{
		ListenAddr: defaultListenAddr,
		NonceTTL:   defaultNonceTTL,
		SessionTTL: defaultSessionTTL,
		RPCTimeout: defaultRPCTimeout,
		Anonymous:  true,
		SweepCron:  defaultSweepCron,
		LogLevel:   defaultLogLevel,
	}
}

// addServeFlags registers the flags that mirror config keys. Flag names use
// dashes; they map onto the underscore keys.
func addServeFlags(fs *pflag.FlagSet) {
	d := defaultConfig()
	fs.String("listen-addr", d.ListenAddr, "HTTP listen address")
	fs.String("database-url", "", "PostgreSQL connection URL")
	fs.String("redis-url", "", "Redis URL for nonces (optional)")
	fs.Bool("migrate-on-start", false, "apply database migrations before serving")
	fs.String("domain", "", "domain sign-in messages must be bound to (e.g. app.example)")
	fs.String("uri", "", "origin sign-in messages must reference (e.g. https://app.example)")
	fs.Duration("rpc-timeout", d.RPCTimeout, "timeout for each chain RPC call")
	fs.Duration("nonce-ttl", d.NonceTTL, "nonce lifetime")
	fs.Bool("anonymous", d.Anonymous, "allow sign-in without an email")
	fs.String("email-domain", "", "domain for placeholder emails (default: host of --domain)")
	fs.String("issuer", "", "session token issuer (iss)")
	fs.Duration("session-ttl", d.SessionTTL, "session lifetime")
	fs.String("session-key-file", "", "PEM RSA private key for session tokens")
	fs.String("cookie-name", "", "session cookie name")
	fs.String("ens-rpc-url", "", "Ethereum mainnet RPC URL for ENS names (optional)")
	fs.String("sweep-cron", d.SweepCron, "cron schedule for the expired nonce sweep (empty disables)")
	fs.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
	fs.Bool("dev", false, "development mode: console logs, in-memory store, generated signing key")
}

func loadConfig(path string, fs *pflag.FlagSet) (*config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	if fs != nil {
		flags := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if f.Name == "config" {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(fs, f)
		})
		if err := k.Load(flags, nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}
	cfg := defaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// chainMap converts the chains key (chain id strings to RPC URLs).
func (c *config) chainMap() (map[uint64]string, error) {
	out := make(map[uint64]string, len(c.Chains))
	for id, url := range c.Chains {
		n, err := strconv.ParseUint(strings.TrimSpace(id), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("chains: invalid chain id %q", id)
		}
		out[n] = url
	}
	return out, nil
}

// Validate checks the settings the serve command cannot run without.
func (c *config) Validate() error {
	if c.Issuer == "" {
		return fmt.Errorf("issuer is required (e.g. https://auth.app.example)")
	}
	if !c.Dev {
		if c.DatabaseURL == "" {
			return fmt.Errorf("database_url is required unless dev is set")
		}
		if c.SessionKeyFile == "" {
			return fmt.Errorf("session_key_file is required unless dev is set")
		}
	}
	return nil
}
