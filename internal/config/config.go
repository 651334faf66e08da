package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	HTTPAddr        string
	DBDSN           string
	JWTIssuer       string
	JWTSecret       string
	JWTTTL          time.Duration
	WebSocketOrigin string
	StartingBalance decimal.Decimal
	QuoteBaseURL    string
	QuoteTTL        time.Duration
	RedisAddr       string
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
	jwtTTL := os.Getenv("JWT_TTL")
	if jwtTTL == "" {
		missing = append(missing, "JWT_TTL")
	} else {
		d, err := time.ParseDuration(jwtTTL)
		if err != nil {
			return c, errors.New("invalid JWT_TTL: " + err.Error())
		}
		c.JWTTTL = d
	}
	c.WebSocketOrigin = os.Getenv("WS_ORIGIN")
	if c.WebSocketOrigin == "" {
		missing = append(missing, "WS_ORIGIN")
	}

	starting := os.Getenv("STARTING_BALANCE")
	if starting == "" {
		starting = "1000.00"
	}
	balance, err := decimal.NewFromString(starting)
	if err != nil || !balance.IsPositive() {
		return c, errors.New("invalid STARTING_BALANCE")
	}
	c.StartingBalance = balance

	c.QuoteBaseURL = os.Getenv("QUOTE_BASE_URL")
	if c.QuoteBaseURL == "" {
		c.QuoteBaseURL = "https://query1.finance.yahoo.com"
	}
	quoteTTL := os.Getenv("QUOTE_TTL")
	if quoteTTL == "" {
		c.QuoteTTL = 15 * time.Second
	} else {
		d, err := time.ParseDuration(quoteTTL)
		if err != nil {
			return c, errors.New("invalid QUOTE_TTL: " + err.Error())
		}
		c.QuoteTTL = d
	}
	c.RedisAddr = os.Getenv("REDIS_ADDR")

	if len(missing) > 0 {
		return c, errors.New("missing required env: " + strings.Join(missing, ","))
	}
	return c, nil
}
