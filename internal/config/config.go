package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker          string
	MQTTClientIDMonitor string
	MQTTClientIDConsole string
	MQTTClientIDWeb     string
	MQTTClientIDReplay  string

	// Topics
	TopicFused          string
	TopicConstellations string

	// GNSS receiver transport: "serial", "i2c" or "file"
	GNSSTransport  string
	GNSSSerialPort string
	GNSSBaudRate   int
	GNSSI2CBus     string
	GNSSI2CAddr    uint16
	GNSSReplayFile string

	// Sentence handling. When true, sentences failing whole-sentence NMEA
	// validation (including checksum) are dropped before they reach the
	// decoder. The decoder itself never checks checksums.
	StrictChecksum bool

	// Fusion
	FusionAlgorithm  string // "simple" or "advanced"
	FusionIntervalMS int    // milliseconds

	// Nominal accuracy overrides in meters; 0 keeps the built-in default.
	AccuracyGPS     float64
	AccuracyGLONASS float64
	AccuracyGALILEO float64
	AccuracyBEIDOU  float64
	// Explicit global fused-accuracy override; 0 keeps the derived value.
	GlobalAccuracy float64

	// Web Server
	WebServerPort int
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: unexported so other packages cannot access it directly.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access.
//
// External code must use InitGlobal() to set and Get() to read.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := defaults()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		MQTTClientIDMonitor: "gnss-monitor",
		MQTTClientIDConsole: "gnss-console-subscriber",
		MQTTClientIDWeb:     "gnss-web-subscriber",
		MQTTClientIDReplay:  "gnss-replay",
		TopicFused:          "gnss/fused",
		TopicConstellations: "gnss/constellations",
		GNSSTransport:       "serial",
		GNSSI2CAddr:         0x42,
		FusionAlgorithm:     "simple",
		FusionIntervalMS:    1000,
		WebServerPort:       8080,
	}
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_MONITOR":
		c.MQTTClientIDMonitor = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_REPLAY":
		c.MQTTClientIDReplay = value

	// Topics
	case "TOPIC_FUSED":
		c.TopicFused = value
	case "TOPIC_CONSTELLATIONS":
		c.TopicConstellations = value

	// GNSS receiver
	case "GNSS_TRANSPORT":
		if value != "serial" && value != "i2c" && value != "file" {
			return fmt.Errorf("GNSS_TRANSPORT must be serial, i2c or file, got %q", value)
		}
		c.GNSSTransport = value
	case "GNSS_SERIAL_PORT":
		c.GNSSSerialPort = value
	case "GNSS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GNSS_BAUD_RATE %q: %w", value, err)
		}
		c.GNSSBaudRate = rate
	case "GNSS_I2C_BUS":
		c.GNSSI2CBus = value
	case "GNSS_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid GNSS_I2C_ADDR %q: %w", value, err)
		}
		c.GNSSI2CAddr = uint16(addr)
	case "GNSS_REPLAY_FILE":
		c.GNSSReplayFile = value

	// Sentence handling
	case "STRICT_CHECKSUM":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid STRICT_CHECKSUM %q: %w", value, err)
		}
		c.StrictChecksum = b

	// Fusion
	case "FUSION_ALGORITHM":
		if value != "simple" && value != "advanced" {
			return fmt.Errorf("FUSION_ALGORITHM must be simple or advanced, got %q", value)
		}
		c.FusionAlgorithm = value
	case "FUSION_INTERVAL_MS":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid FUSION_INTERVAL_MS %q: %w", value, err)
		}
		if interval <= 0 {
			return fmt.Errorf("FUSION_INTERVAL_MS must be positive, got %d", interval)
		}
		c.FusionIntervalMS = interval

	// Accuracy
	case "ACCURACY_GPS":
		return setAccuracy(&c.AccuracyGPS, key, value)
	case "ACCURACY_GLONASS":
		return setAccuracy(&c.AccuracyGLONASS, key, value)
	case "ACCURACY_GALILEO":
		return setAccuracy(&c.AccuracyGALILEO, key, value)
	case "ACCURACY_BEIDOU":
		return setAccuracy(&c.AccuracyBEIDOU, key, value)
	case "GLOBAL_ACCURACY":
		return setAccuracy(&c.GlobalAccuracy, key, value)

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

func setAccuracy(dst *float64, key, value string) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v <= 0 {
		return fmt.Errorf("%s must be positive meters, got %v", key, v)
	}
	*dst = v
	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	switch c.GNSSTransport {
	case "serial":
		if c.GNSSSerialPort == "" {
			return fmt.Errorf("GNSS_SERIAL_PORT is required for serial transport")
		}
		if c.GNSSBaudRate == 0 {
			return fmt.Errorf("GNSS_BAUD_RATE is required for serial transport")
		}
	case "i2c":
		if c.GNSSI2CAddr == 0 {
			return fmt.Errorf("GNSS_I2C_ADDR is required for i2c transport")
		}
	case "file":
		if c.GNSSReplayFile == "" {
			return fmt.Errorf("GNSS_REPLAY_FILE is required for file transport")
		}
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
