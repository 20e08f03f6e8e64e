package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvSandbox = "sandbox"
	EnvLive    = "live"

	sandboxAPI = "https://api-m.sandbox.paypal.com"
	liveAPI    = "https://api-m.paypal.com"
)

type PayPal struct {
	Env      string
	BaseURL  string
	ClientID string
	Secret   string
	Timeout  time.Duration
}

type Storage struct {
	Driver     string
	SQLitePath string
	PgDSN      string
}

type Kafka struct {
	Brokers []string
	Topic   string
	Group   string
}

type Config struct {
	HTTPAddr  string
	StaticDir string
	Currency  string
	CacheCap  int
	Metrics   string
	LogLevel  string

	PayPal  PayPal
	Storage Storage
	Kafka   Kafka
}

// Public is the subset of configuration that is safe to hand to the storefront.
type Public struct {
	ClientID    string `json:"clientId"`
	Currency    string `json:"currency"`
	Environment string `json:"environment"`
}

func (c Config) Public() Public {
	return Public{
		ClientID:    c.PayPal.ClientID,
		Currency:    c.Currency,
		Environment: c.PayPal.Env,
	}
}

// Load keeps the original API and fatals on error for simplicity in main().
func Load() Config {
	cfg, err := load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	return cfg
}

func load() (Config, error) {
	_ = godotenv.Load(".env")

	env := strings.ToLower(envDefault("PAYPAL_ENV", EnvSandbox))
	if env != EnvLive {
		env = EnvSandbox
	}

	cfg := Config{
		HTTPAddr:  httpAddr(),
		StaticDir: envDefault("STATIC_DIR", "."),
		Currency:  envDefault("CURRENCY", "EUR"),
		CacheCap:  envInt("CACHE_CAP", 256),
		Metrics:   envDefault("METRICS", "inmem"),
		LogLevel:  envDefault("LOG_LEVEL", "info"),

		PayPal: PayPal{
			Env:      env,
			BaseURL:  strings.TrimRight(envDefault("PAYPAL_API_BASE", baseURL(env)), "/"),
			ClientID: strings.TrimSpace(os.Getenv("PAYPAL_CLIENT_ID")),
			Secret:   strings.TrimSpace(envDefault("PAYPAL_SECRET", os.Getenv("PAYPAL_CLIENT_SECRET"))),
			Timeout:  envDurationMS("PAYPAL_TIMEOUT", 30*time.Second),
		},

		Storage: Storage{
			Driver:     strings.ToLower(envDefault("DB_DRIVER", "sqlite")),
			SQLitePath: envDefault("DB_PATH", "order.db"),
			PgDSN:      strings.TrimSpace(os.Getenv("PG_DSN")),
		},

		Kafka: Kafka{
			Brokers: splitCSV(strings.TrimSpace(os.Getenv("KAFKA_BROKERS"))),
			Topic:   envDefault("KAFKA_TOPIC", "order-captures"),
			Group:   envDefault("KAFKA_GROUP", "order-captures-tail"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// validate only checks what the process needs to start. Missing PayPal
// credentials are reported per request by the credential provider.
func (c Config) validate() error {
	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return &missingEnvError{Keys: []string{"DB_PATH"}}
		}
	case "postgres":
		if c.Storage.PgDSN == "" {
			return &missingEnvError{Keys: []string{"PG_DSN"}}
		}
	default:
		return &invalidEnvError{Key: "DB_DRIVER", Value: c.Storage.Driver}
	}

	if c.CacheCap <= 0 {
		log.Printf("CACHE_CAP is %d, adjusting to 1", c.CacheCap)
	}
	if c.PayPal.ClientID == "" || c.PayPal.Secret == "" {
		log.Printf("PAYPAL_CLIENT_ID/PAYPAL_SECRET not set, checkout endpoints will fail")
	}
	return nil
}

type missingEnvError struct{ Keys []string }

func (e *missingEnvError) Error() string {
	return "missing required envs: " + strings.Join(e.Keys, ", ")
}

type invalidEnvError struct{ Key, Value string }

func (e *invalidEnvError) Error() string {
	return "invalid " + e.Key + "=" + strconv.Quote(e.Value)
}

func baseURL(env string) string {
	if env == EnvLive {
		return liveAPI
	}
	return sandboxAPI
}

// httpAddr prefers HTTP_ADDR and falls back to a bare PORT.
func httpAddr() string {
	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		return v
	}
	return ":" + envDefault("PORT", "5000")
}

func envDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using default %d: %v", k, v, def, err)
		return def
	}
	return n
}

// envDurationMS supports either plain integer milliseconds ("1500") or
// Go duration strings ("1.5s", "250ms", "2m").
func envDurationMS(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	if strings.IndexFunc(v, func(r rune) bool { return r < '0' || r > '9' }) != -1 {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Printf("invalid %s=%q, using default %v: %v", k, v, def, err)
			return def
		}
		return d
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using default %v: %v", k, v, def, err)
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
