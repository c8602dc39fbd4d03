package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type APIConfig struct {
	Addr             string
	ContentFile      string
	PriceCap         float64
	PriceFloor       float64
	Variability      float64
	BalancingTrigger float64
	TickEvery        time.Duration
}

func LoadAPIFromEnv() APIConfig {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("GRIDLOCK_API_ADDR", ":8080")
	}

	return APIConfig{
		Addr:             addr,
		ContentFile:      strings.TrimSpace(os.Getenv("GRIDLOCK_CONTENT_FILE")),
		PriceCap:         envFloatDefault("GRIDLOCK_PRICE_CAP", 300),
		PriceFloor:       envFloatDefault("GRIDLOCK_PRICE_FLOOR", -50),
		Variability:      envFloatDefault("GRIDLOCK_DEMAND_VARIABILITY", 0.08),
		BalancingTrigger: envFloatDefault("GRIDLOCK_BALANCING_TRIGGER", 150_000),
		TickEvery:        envDurationDefault("GRIDLOCK_TICK_EVERY", time.Second),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envFloatDefault(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
