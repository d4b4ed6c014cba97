package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration, read once at start-up.
type Config struct {
	Port string

	MongoURI          string
	MongoDB           string
	MongoTransactions bool

	RedisAddr     string
	RedisPassword string

	JWTSecret     string
	InvoiceSecret string

	PaymentDelay       time.Duration
	PaymentSuccessRate float64
	PaymentWorkers     int
	SweepInterval      time.Duration
	StuckAfter         time.Duration

	RateLimitRPS   float64
	RateLimitBurst int

	OrderTransitions string
	CORSOrigins      []string
}

// Load reads .env if present and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	c := &Config{
		Port:             port(os.Getenv("PORT")),
		MongoURI:         getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:          getenv("MONGO_DB", "storefront"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		InvoiceSecret:    os.Getenv("INVOICE_SECRET"),
		OrderTransitions: getenv("ORDER_TRANSITIONS", "permissive"),
		CORSOrigins:      splitList(getenv("CORS_ORIGINS", "*")),
	}

	var err error
	if c.MongoTransactions, err = boolEnv("MONGO_TRANSACTIONS", false); err != nil {
		return nil, err
	}
	if c.PaymentDelay, err = durationEnv("PAYMENT_DELAY", 2*time.Second); err != nil {
		return nil, err
	}
	if c.SweepInterval, err = durationEnv("PAYMENT_SWEEP_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if c.StuckAfter, err = durationEnv("PAYMENT_STUCK_AFTER", 5*time.Minute); err != nil {
		return nil, err
	}
	if c.PaymentSuccessRate, err = floatEnv("PAYMENT_SUCCESS_RATE", 0.95); err != nil {
		return nil, err
	}
	if c.PaymentWorkers, err = intEnv("PAYMENT_WORKERS", 4); err != nil {
		return nil, err
	}
	if c.RateLimitRPS, err = floatEnv("RATE_LIMIT_RPS", 5); err != nil {
		return nil, err
	}
	if c.RateLimitBurst, err = intEnv("RATE_LIMIT_BURST", 10); err != nil {
		return nil, err
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.InvoiceSecret == "" {
		c.InvoiceSecret = c.JWTSecret
	}
	if c.PaymentSuccessRate < 0 || c.PaymentSuccessRate > 1 {
		return fmt.Errorf("PAYMENT_SUCCESS_RATE must be within [0,1], got %v", c.PaymentSuccessRate)
	}
	if c.PaymentWorkers < 1 {
		return fmt.Errorf("PAYMENT_WORKERS must be positive, got %d", c.PaymentWorkers)
	}
	if c.StuckAfter <= c.PaymentDelay {
		return fmt.Errorf("PAYMENT_STUCK_AFTER (%v) must exceed PAYMENT_DELAY (%v)", c.StuckAfter, c.PaymentDelay)
	}
	switch c.OrderTransitions {
	case "permissive", "strict":
	default:
		return fmt.Errorf("ORDER_TRANSITIONS must be permissive or strict, got %q", c.OrderTransitions)
	}
	return nil
}

func port(p string) string {
	if p == "" {
		return ":8080"
	}
	if p[0] != ':' {
		return ":" + p
	}
	return p
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func boolEnv(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func floatEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
