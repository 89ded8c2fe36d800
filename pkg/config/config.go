// Package config loads ticketblaster settings.
//
// Settings come from three layers, later layers winning:
//
//  1. Built-in defaults ([Default])
//  2. An optional TOML file, $XDG_CONFIG_HOME/ticketblaster/config.toml
//  3. TICKETBLASTER_SMTP_* environment variables
//
// The SMTP password is never read from the file. It comes from the
// environment or the OS keyring (see [ResolvePassword]).
package config

import (
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/ticketblaster/pkg/errors"
	"github.com/matzehuels/ticketblaster/pkg/fonts"
	"github.com/matzehuels/ticketblaster/pkg/ticket"
)

// AppName is used for the config directory and the keyring service.
const AppName = "ticketblaster"

// Environment variables consulted by ApplyEnv and ResolvePassword.
const (
	EnvHost     = "TICKETBLASTER_SMTP_HOST"
	EnvPort     = "TICKETBLASTER_SMTP_PORT"
	EnvSender   = "TICKETBLASTER_SMTP_SENDER"
	EnvPassword = "TICKETBLASTER_SMTP_PASSWORD"
)

// Config is the full set of settings.
type Config struct {
	SMTP   SMTP          `toml:"smtp"`
	Layout ticket.Layout `toml:"layout"`
	Ticket Ticket        `toml:"ticket"`
	Mail   Mail          `toml:"mail"`
	Fonts  Fonts         `toml:"fonts"`
}

// SMTP describes the outgoing relay.
type SMTP struct {
	Host               string `toml:"host"`
	Port               int    `toml:"port"`
	Sender             string `toml:"sender"`
	SSL                bool   `toml:"ssl"` // implicit TLS; false uses STARTTLS when offered
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
}

// Ticket holds the initial ticket inputs.
type Ticket struct {
	Background string `toml:"background"`
	Payload    string `toml:"payload"`
	Name       string `toml:"name"`
	OpaqueQR   bool   `toml:"opaque_qr"`
}

// Mail holds the initial message text.
type Mail struct {
	Subject string `toml:"subject"`
	Body    string `toml:"body"`
}

// Fonts overrides the name font lookup.
type Fonts struct {
	Candidates      []string `toml:"candidates"`
	DisableEmbedded bool     `toml:"disable_embedded"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		SMTP: SMTP{
			Host: "smtp.gmail.com",
			Port: 465,
			SSL:  true,
		},
		Layout: ticket.DefaultLayout(),
		Ticket: Ticket{
			Background: "ticket_bg.png",
			Payload:    "VALID ADMISSION 2025",
			Name:       "John Doe",
		},
		Mail: Mail{
			Subject: "Your Event Ticket",
			Body:    "Here is your ticket. Do not lose it.",
		},
		Fonts: Fonts{
			Candidates: append([]string(nil), fonts.DefaultCandidates...),
		},
	}
}

// Path returns the default config file location.
func Path() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, AppName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeConfig, err, "cannot locate home directory")
	}
	return filepath.Join(home, ".config", AppName, "config.toml"), nil
}

// Load reads the config file at path on top of the defaults and applies
// environment overrides. An empty path means the default location, where a
// missing file is not an error; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := Path()
		if err != nil {
			return cfg, err
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil {
		if err := decodeFile(path, &cfg); err != nil {
			return cfg, err
		}
	} else if explicit || !os.IsNotExist(err) {
		return cfg, errors.Wrap(errors.ErrCodeConfig, err, "cannot read config %s", path)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func decodeFile(path string, cfg *Config) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return errors.Wrap(errors.ErrCodeConfig, err, "invalid config %s", path)
	}
	if md.IsDefined("smtp", "password") {
		return errors.New(errors.ErrCodeConfig,
			"%s: smtp.password is not allowed; use %s or the OS keyring", path, EnvPassword)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return errors.New(errors.ErrCodeConfig, "%s: unknown key %q", path, undecoded[0].String())
	}
	return nil
}

// ApplyEnv overrides SMTP settings from TICKETBLASTER_SMTP_* variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvHost); v != "" {
		c.SMTP.Host = v
	}
	if v := os.Getenv(EnvSender); v != "" {
		c.SMTP.Sender = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := errors.ParseInt(EnvPort, v)
		if err != nil {
			return errors.Wrap(errors.ErrCodeConfig, err, "invalid environment")
		}
		c.SMTP.Port = port
	}
	return nil
}

// Validate checks settings that would otherwise fail deep inside a send.
func (c Config) Validate() error {
	if c.SMTP.Host == "" {
		return errors.New(errors.ErrCodeConfig, "smtp.host is empty")
	}
	return errors.ValidatePort(c.SMTP.Port)
}

// Encode writes cfg as TOML.
func Encode(w io.Writer, cfg Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return errors.Wrap(errors.ErrCodeConfig, err, "cannot encode config")
	}
	return nil
}
