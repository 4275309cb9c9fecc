package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the portal daemon configuration
type Config struct {
	Gateway struct {
		// Base URL of the TollGate gateway, e.g. http://192.168.1.1:2121
		Address string `yaml:"address"`
		// Optional websocket mint proxy, e.g. ws://192.168.1.1:2122/mint-proxy
		MintProxyAddress string `yaml:"mint_proxy_address"`
	} `yaml:"gateway"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Portal struct {
		PollIntervalSeconds int `yaml:"poll_interval_seconds"`
		AutoCloseSeconds    int `yaml:"auto_close_seconds"`
		SessionTTLMinutes   int `yaml:"session_ttl_minutes"`
	} `yaml:"portal"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// GlobalConfig is the global configuration instance
var GlobalConfig Config

// LoadConfig reads and parses the YAML configuration file into GlobalConfig
func LoadConfig(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, &GlobalConfig); err != nil {
		return err
	}

	// Validate required fields
	if GlobalConfig.Gateway.Address == "" {
		return fmt.Errorf("gateway.address is required in %s", filePath)
	}
	if GlobalConfig.Server.Port < 1 || GlobalConfig.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	// Defaults for the flow timings and session housekeeping
	if GlobalConfig.Portal.PollIntervalSeconds <= 0 {
		GlobalConfig.Portal.PollIntervalSeconds = 5
	}
	if GlobalConfig.Portal.AutoCloseSeconds <= 0 {
		GlobalConfig.Portal.AutoCloseSeconds = 3
	}
	if GlobalConfig.Portal.SessionTTLMinutes <= 0 {
		GlobalConfig.Portal.SessionTTLMinutes = 30
	}
	if GlobalConfig.Log.Level == "" {
		GlobalConfig.Log.Level = "info"
	}

	return nil
}
