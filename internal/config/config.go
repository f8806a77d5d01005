package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string
	LogLevel string

	DeviceID string

	APIBaseURL         string
	APITimeout         time.Duration
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration

	RedisAddr    string
	MySQLDSN     string
	KafkaBrokers []string
	KafkaTopic   string

	OrderCallTimeout     time.Duration
	MaxParallelOrders    int
	GuardTTL             time.Duration
	AllowUnknownLocation bool

	// DeviceLat and DeviceLng are nil when the device has no location fix.
	DeviceLat *float64
	DeviceLng *float64
}

func Load() Config {
	return Config{
		HTTPAddr: getenv("HTTP_ADDR", ":8080"),
		GRPCAddr: getenv("GRPC_ADDR", ":50051"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		DeviceID: getenv("DEVICE_ID", "default"),

		APIBaseURL:         getenv("API_BASE_URL", "http://localhost:9000"),
		APITimeout:         getDuration("API_TIMEOUT", 15*time.Second),
		BreakerMaxFailures: uint32(getInt("BREAKER_MAX_FAILURES", 5)),
		BreakerOpenTimeout: getDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second),

		RedisAddr:    getenv("REDIS_ADDR", "localhost:6379"),
		MySQLDSN:     os.Getenv("MYSQL_DSN"),
		KafkaBrokers: splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   getenv("KAFKA_TOPIC", "checkout-events"),

		OrderCallTimeout:     getDuration("ORDER_CALL_TIMEOUT", 10*time.Second),
		MaxParallelOrders:    getInt("MAX_PARALLEL_ORDERS", 0),
		GuardTTL:             getDuration("CHECKOUT_GUARD_TTL", 10*time.Minute),
		AllowUnknownLocation: getBool("ALLOW_UNKNOWN_LOCATION", false),

		DeviceLat: getFloat("DEVICE_LAT"),
		DeviceLng: getFloat("DEVICE_LNG"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) int {
	v, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}

func getBool(k string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}

func getDuration(k string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(k))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getFloat(k string) *float64 {
	v, err := strconv.ParseFloat(os.Getenv(k), 64)
	if err != nil {
		return nil
	}
	return &v
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
