package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Defaults per spec §6 ("CLI / configuration").
const (
	DefaultListenAddr = "127.0.0.1:1080"
	DefaultMaxSlots   = 64
	DefaultFrameCap   = 4096
)

// Config is shared by both the guest and host binaries. ListenAddr only
// matters on the guest (it binds the SOCKS5 listener); Endpoint is the
// only field both peers require.
type Config struct {
	Endpoint   string `json:"endpoint"`
	ListenAddr string `json:"listen_addr"`
	MaxSlots   int    `json:"max_slots"`
	FrameCap   int    `json:"frame_cap"`
}

// UnmarshalJSON accepts the current field names plus the short-lived
// aliases ("device" for the transport path, "proxy_port" for a bare port
// rather than a full listen address) that shipped in earlier config files.
func (c *Config) UnmarshalJSON(data []byte) error {
	aux := struct {
		Endpoint       string `json:"endpoint"`
		EndpointLegacy string `json:"device"`
		ListenAddr     string `json:"listen_addr"`
		ProxyPort      int    `json:"proxy_port"`
		MaxSlots       int    `json:"max_slots"`
		FrameCap       int    `json:"frame_cap"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	c.Endpoint = aux.Endpoint
	if c.Endpoint == "" {
		c.Endpoint = aux.EndpointLegacy
	}
	c.ListenAddr = aux.ListenAddr
	if c.ListenAddr == "" && aux.ProxyPort != 0 {
		c.ListenAddr = fmt.Sprintf("127.0.0.1:%d", aux.ProxyPort)
	}
	c.MaxSlots = aux.MaxSlots
	c.FrameCap = aux.FrameCap
	return nil
}

// LoadConfig reads a JSON config file and applies defaults for any field
// the file left at its zero value.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var cfg Config
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.MaxSlots <= 0 {
		c.MaxSlots = DefaultMaxSlots
	}
	if c.FrameCap <= 0 {
		c.FrameCap = DefaultFrameCap
	}
}
