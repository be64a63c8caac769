package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	checkinService "HotelGate/internal/api/checkin/service"
	checkoutService "HotelGate/internal/api/checkout/service"
	"HotelGate/pkg/backend"
	"github.com/sirupsen/logrus"
)

// GateConfig collects the environment-driven settings of the gate workflow.
type GateConfig struct {
	Port     string
	Backend  backend.Config
	Checkin  checkinService.Config
	Checkout checkoutService.PollConfig
}

func LoadGateConfig(logger *logrus.Logger) GateConfig {
	checkin := checkinService.DefaultConfig()
	checkin.FramingInterval = envDuration(logger, "FRAMING_INTERVAL", checkin.FramingInterval)
	checkin.Thresholds.MaxCenterOffset = envFloat(logger, "FRAMING_MAX_OFFSET", checkin.Thresholds.MaxCenterOffset)
	checkin.Thresholds.MaxAreaFraction = envFloat(logger, "FRAMING_MAX_AREA", checkin.Thresholds.MaxAreaFraction)
	checkin.Thresholds.MinAreaFraction = envFloat(logger, "FRAMING_MIN_AREA", checkin.Thresholds.MinAreaFraction)
	checkin.ReferenceCapture = envBool(logger, "GATE_REFERENCE_CAPTURE", checkin.ReferenceCapture)
	checkin.AutoRestart = envBool(logger, "GATE_AUTO_RESTART", checkin.AutoRestart)
	checkin.ResolveTimeout = envDuration(logger, "GATE_RESOLVE_TIMEOUT", checkin.ResolveTimeout)
	checkin.SubmitTimeout = envDuration(logger, "GATE_SUBMIT_TIMEOUT", checkin.SubmitTimeout)

	if codes := os.Getenv("GATE_SUCCESS_CODES"); codes != "" {
		var parsed []string
		for _, code := range strings.Split(codes, ",") {
			if code = strings.TrimSpace(code); code != "" {
				parsed = append(parsed, code)
			}
		}
		if len(parsed) > 0 {
			checkin.SuccessCodes = parsed
		}
	}

	if tz := os.Getenv("GATE_TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			logger.Warnf("Invalid GATE_TIMEZONE %q, using local time: %v", tz, err)
		} else {
			checkin.Location = loc
		}
	}

	checkout := checkoutService.DefaultPollConfig()
	checkout.Interval = envDuration(logger, "CHECKOUT_POLL_INTERVAL", checkout.Interval)
	checkout.MaxAttempts = envInt(logger, "CHECKOUT_POLL_ATTEMPTS", checkout.MaxAttempts)

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	return GateConfig{
		Port: port,
		Backend: backend.Config{
			BaseURL: os.Getenv("BACKEND_BASE_URL"),
			Token:   os.Getenv("BACKEND_TOKEN"),
			Timeout: envDuration(logger, "BACKEND_TIMEOUT", 10*time.Second),
		},
		Checkin:  checkin,
		Checkout: checkout,
	}
}

func envDuration(logger *logrus.Logger, key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		logger.Warnf("Invalid %s %q, using %s", key, raw, fallback)
		return fallback
	}
	return d
}

func envFloat(logger *logrus.Logger, key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f <= 0 {
		logger.Warnf("Invalid %s %q, using %v", key, raw, fallback)
		return fallback
	}
	return f
}

func envInt(logger *logrus.Logger, key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		logger.Warnf("Invalid %s %q, using %d", key, raw, fallback)
		return fallback
	}
	return n
}

func envBool(logger *logrus.Logger, key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		logger.Warnf("Invalid %s %q, using %t", key, raw, fallback)
		return fallback
	}
	return b
}
