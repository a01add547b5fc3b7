package main

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"secure_ocpp_cp/internal/transport"
)

const envPrefix = "SECURECP"

// Config holds the node settings. Values come from defaults, then the
// optional config file, then SECURECP_* environment variables, then flags.
type Config struct {
	ChargePointID string
	CentralSystem string
	ControlPort   string
	DBPath        string
	LogLevel      log.Level

	SecureData SecureDataConfig
}

type SecureDataConfig struct {
	VendorID     string
	MessageID    string
	Peer         string
	Timeout      time.Duration
	MasterSecret string
	Parameter    uint16
	KeyID        uint16
	// SigningSeed is a hex Ed25519 seed. Empty disables signing.
	SigningSeed string
	// TrustedKeys are hex Ed25519 public keys. Empty disables verification.
	TrustedKeys []string
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("db", "db")
	v.SetDefault("log.level", "info")
	v.SetDefault("securedata.vendor-id", transport.DefaultVendorID)
	v.SetDefault("securedata.message-id", transport.DefaultMessageID)
	v.SetDefault("securedata.peer", "CSMS")
	v.SetDefault("securedata.timeout", transport.DefaultTimeout)
	v.SetDefault("securedata.parameter", 0)
	v.SetDefault("securedata.key-id", 1)
	return v
}

// NewConfig loads configFile, if given, on top of the defaults.
func NewConfig(configFile string) (*Config, error) {
	v := newViper()
	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", configFile)
		}
	}
	return parseConfig(v)
}

func parseConfig(v *viper.Viper) (*Config, error) {
	level, err := GetLogLevel(v.GetString("log.level"))
	if err != nil {
		return nil, err
	}
	config := &Config{
		ChargePointID: v.GetString("cp"),
		CentralSystem: v.GetString("cs"),
		ControlPort:   v.GetString("control-port"),
		DBPath:        v.GetString("db"),
		LogLevel:      level,
		SecureData: SecureDataConfig{
			VendorID:     v.GetString("securedata.vendor-id"),
			MessageID:    v.GetString("securedata.message-id"),
			Peer:         v.GetString("securedata.peer"),
			Timeout:      v.GetDuration("securedata.timeout"),
			MasterSecret: v.GetString("securedata.master-secret"),
			SigningSeed:  v.GetString("securedata.signing-seed"),
			TrustedKeys:  v.GetStringSlice("securedata.trusted-keys"),
		},
	}
	parameter := v.GetUint("securedata.parameter")
	keyID := v.GetUint("securedata.key-id")
	if parameter > 0xffff || keyID > 0xffff {
		return nil, fmt.Errorf("securedata.parameter and securedata.key-id must fit in 16 bits")
	}
	config.SecureData.Parameter = uint16(parameter)
	config.SecureData.KeyID = uint16(keyID)

	if seed := config.SecureData.SigningSeed; seed != "" {
		if b, err := hex.DecodeString(seed); err != nil || len(b) != 32 {
			return nil, fmt.Errorf("securedata.signing-seed must be 64 hex characters")
		}
	}
	for _, k := range config.SecureData.TrustedKeys {
		if b, err := hex.DecodeString(k); err != nil || len(b) != 32 {
			return nil, fmt.Errorf("securedata.trusted-keys: %q is not a hex Ed25519 public key", k)
		}
	}
	return config, nil
}

// GetLogLevel converts the level string to a logrus level.
func GetLogLevel(level string) (log.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return log.DebugLevel, nil
	case "info":
		return log.InfoLevel, nil
	case "warn":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("invalid log.level setting %q", level)
	}
}
