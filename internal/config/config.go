package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"lendcore-backend/internal/domain/product"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// defaultCatalog keeps local development usable without wiring real
// product master data.
const defaultCatalog = `[{"id":1,"name":"flex-30","interest_rate":10,"max_duration":3,"fund_id":1}]`

type Config struct {
	AppPort string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	RedisAddr string
	RedisDB   int

	IdempTTLSecs int

	// business configuration, loaded once and immutable at runtime
	AutoApproveCeiling decimal.Decimal
	Products           *product.Catalog

	DarajaBaseURL        string
	DarajaConsumerKey    string
	DarajaConsumerSecret string

	LogLevel  string
	LogFormat string
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	c := &Config{
		AppPort:   getenv("APP_PORT", "8080"),
		MySQLHost: getenv("MYSQL_HOST", "mysql"),
		MySQLPort: getenv("MYSQL_PORT", "3306"),
		MySQLDB:   getenv("MYSQL_DB", "lendcore"),
		MySQLUser: getenv("MYSQL_USER", "lendcore"),
		MySQLPass: getenv("MYSQL_PASS", "lendcore"),

		RedisAddr:    getenv("REDIS_ADDR", "redis:6379"),
		IdempTTLSecs: 300,

		DarajaBaseURL:        getenv("DARAJA_BASE_URL", "https://sandbox.safaricom.co.ke"),
		DarajaConsumerKey:    os.Getenv("DARAJA_CONSUMER_KEY"),
		DarajaConsumerSecret: os.Getenv("DARAJA_CONSUMER_SECRET"),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RedisDB = n
		}
	}
	if v := os.Getenv("IDEMPOTENCY_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.IdempTTLSecs = n
		}
	}

	ceiling, err := decimal.NewFromString(getenv("AUTO_APPROVE_CEILING", "5000"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTO_APPROVE_CEILING: %w", err)
	}
	c.AutoApproveCeiling = ceiling

	catalog, err := product.ParseCatalog(getenv("PRODUCT_CATALOG", defaultCatalog))
	if err != nil {
		return nil, err
	}
	c.Products = catalog

	return c, nil
}

func (c *Config) Validate() error {
	if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
		return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
	}
	// ensure port is valid
	if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
		return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if c.AutoApproveCeiling.Sign() < 0 {
		return errors.New("AUTO_APPROVE_CEILING must not be negative")
	}
	if c.Products.Len() == 0 {
		return errors.New("empty product catalog")
	}
	return nil
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// multiStatements=true is handy for migrations; parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?multiStatements=true&parseTime=true&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}
