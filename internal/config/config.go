package config

import (
	"errors"
	"os"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr        string
	DBDSN           string
	JWTIssuer       string
	JWTSecret       string
	InternalToken   string
	WebSocketOrigin string
	QuoteAPIURL     string
	QuoteTimeout    time.Duration
	PriceTTL        time.Duration
	SweepInterval   time.Duration
	OpeningBalance  string
}

func Load() (Config, error) {
	var c Config
	var missing []string
	c.HTTPAddr = os.Getenv("HTTP_ADDR")
	if c.HTTPAddr == "" {
		missing = append(missing, "HTTP_ADDR")
	}
	c.DBDSN = os.Getenv("DB_DSN")
	if c.DBDSN == "" {
		missing = append(missing, "DB_DSN")
	}
	c.JWTIssuer = os.Getenv("JWT_ISSUER")
	if c.JWTIssuer == "" {
		missing = append(missing, "JWT_ISSUER")
	}
	c.JWTSecret = os.Getenv("JWT_SECRET")
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	c.InternalToken = os.Getenv("INTERNAL_API_TOKEN")
	if c.InternalToken == "" {
		missing = append(missing, "INTERNAL_API_TOKEN")
	}
	c.QuoteAPIURL = strings.TrimRight(os.Getenv("QUOTE_API_URL"), "/")
	if c.QuoteAPIURL == "" {
		missing = append(missing, "QUOTE_API_URL")
	}
	c.WebSocketOrigin = os.Getenv("WS_ORIGIN")
	if c.WebSocketOrigin == "" {
		c.WebSocketOrigin = "*"
	}
	var err error
	c.QuoteTimeout, err = duration("QUOTE_TIMEOUT", 3*time.Second)
	if err != nil {
		return c, err
	}
	c.PriceTTL, err = duration("PRICE_TTL", time.Second)
	if err != nil {
		return c, err
	}
	c.SweepInterval, err = duration("SWEEP_INTERVAL", 5*time.Minute)
	if err != nil {
		return c, err
	}
	c.OpeningBalance = os.Getenv("OPENING_BALANCE")
	if c.OpeningBalance == "" {
		c.OpeningBalance = "100000"
	}
	if len(missing) > 0 {
		return c, errors.New("missing required env: " + strings.Join(missing, ","))
	}
	return c, nil
}

func duration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.New("invalid " + key)
	}
	if d <= 0 {
		return 0, errors.New(key + " must be positive")
	}
	return d, nil
}
