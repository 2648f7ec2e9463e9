package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/go-sif/sifacc/cluster"
	"github.com/go-sif/sifacc/logging"
	"gopkg.in/yaml.v3"
)

const (
	// HostEnv overrides Config.Server.Host
	HostEnv = "SIFACC_HOST"
	// PortEnv overrides Config.Server.Port
	PortEnv = "SIFACC_PORT"
)

// Config is the file-based configuration of a driver-side accumulator service
type Config struct {
	LogLevel    string                `yaml:"log_level"`
	MetricsAddr string                `yaml:"metrics_addr"`
	Server      cluster.ServerOptions `yaml:"server"`
	Client      cluster.ClientOptions `yaml:"client"`
}

// Default returns a Config with no file or environment applied
func Default() *Config {
	return &Config{LogLevel: "INFO"}
}

// Load reads a YAML Config from path, expanding ${VAR} references and then applying
// environment overrides. An empty path yields the defaults plus overrides.
func Load(path string) (*Config, error) {
	conf := Default()
	if len(path) > 0 {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err = Parse([]byte(os.ExpandEnv(string(raw))), conf); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(conf); err != nil {
		return nil, err
	}
	conf.LogLevel = logging.LogLevelToString(logging.StringToLogLevel(conf.LogLevel))
	return conf, nil
}

// Parse decodes YAML into conf, rejecting unknown fields
func Parse(raw []byte, conf *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(conf); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func applyEnv(conf *Config) error {
	if host := os.Getenv(HostEnv); len(host) > 0 {
		conf.Server.Host = host
	}
	if port := os.Getenv(PortEnv); len(port) > 0 {
		p, err := strconv.Atoi(port)
		if err != nil || p < 0 || p > 65535 {
			return fmt.Errorf("$%s=%q is not a valid port", PortEnv, port)
		}
		conf.Server.Port = p
	}
	return nil
}
