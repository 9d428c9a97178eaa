package tenantclient

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls the tenant-management client.
type Config struct {
	BaseURL string
	Timeout time.Duration

	// ReadRetries applies to GETs only. Mutations are sent once.
	ReadRetries int
	RetryDelay  time.Duration

	RateLimit int
	RateBurst int

	BreakerEnabled     bool
	BreakerFailures    int
	BreakerMinRequests int
	BreakerRecovery    time.Duration
}

func LoadFromEnv() Config {
	return Config{
		BaseURL: strings.TrimRight(os.Getenv("TENANT_URL"), "/"),
		Timeout: time.Second * time.Duration(getInt("TENANT_SERVICE_TIMEOUT", 10)),

		ReadRetries: getInt("TENANT_SERVICE_READ_RETRIES", 2),
		RetryDelay:  time.Millisecond * time.Duration(getInt("TENANT_SERVICE_RETRY_DELAY_MS", 200)),

		RateLimit: getInt("TENANT_SERVICE_RATE_LIMIT", 600),
		RateBurst: getInt("TENANT_SERVICE_RATE_BURST", 10),

		BreakerEnabled:     os.Getenv("TENANT_SERVICE_ENABLE_CIRCUIT_BREAKER") != "false",
		BreakerFailures:    getInt("TENANT_SERVICE_CIRCUIT_BREAKER_FAILURE_THRESHOLD", 5),
		BreakerMinRequests: getInt("TENANT_SERVICE_CIRCUIT_BREAKER_MIN_REQUESTS", 10),
		BreakerRecovery:    time.Second * time.Duration(getInt("TENANT_SERVICE_CIRCUIT_BREAKER_RECOVERY_TIME", 30)),
	}
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
