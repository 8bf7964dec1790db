/*
Package config loads the service's settings document. Mirrors the original
source's config.rs field-for-field (UdpSettings/Settings, defaults, load
order) but expressed as Go struct tags over gopkg.in/yaml.v2 instead of
serde_yaml.
*/
package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"

	"github.com/ipaggregator/ipaggregator/internal/ipaggerr"
)

const systemSettingsPath = "/etc/ipaggregator/settings.yaml"

// ReceiverSettings configures the inbound transport.
type ReceiverSettings struct {
	Kind string `yaml:"kind"` // "datagram" or "bus"
	Bind string `yaml:"bind"`
	Bus  struct {
		Hosts []string `yaml:"hosts"`
		Topic string   `yaml:"topic"`
		Group string   `yaml:"group"`
	} `yaml:"bus"`
}

// SenderSettings configures the outbound transport.
type SenderSettings struct {
	Kind   string `yaml:"kind"` // "datagram" or "bus"
	Target string `yaml:"target"`
	Bus    struct {
		Hosts      []string `yaml:"hosts"`
		Topic      string   `yaml:"topic"`
		AckSeconds int      `yaml:"ack_seconds"`
	} `yaml:"bus"`
}

// Settings is the full recognized configuration document.
type Settings struct {
	Receiver ReceiverSettings `yaml:"receiver"`
	Sender   SenderSettings   `yaml:"sender"`

	PublishTimerSeconds int  `yaml:"publish_timer"`
	AutoAddBroadcast    bool `yaml:"auto_add_broadcast"`
	AutoAddZeroed       bool `yaml:"auto_add_zeroed"`
	ClearAfterDump      bool `yaml:"clear_after_dump"`
}

// Defaults returns the settings used when no file could be loaded.
func Defaults() Settings {
	s := Settings{
		PublishTimerSeconds: 30,
		AutoAddBroadcast:    true,
		AutoAddZeroed:       true,
		ClearAfterDump:      false,
	}
	s.Receiver.Kind = "datagram"
	s.Receiver.Bind = "127.0.0.1:6788"
	s.Sender.Kind = "datagram"
	s.Sender.Target = "127.0.0.1:6789"
	s.Sender.Bus.AckSeconds = 1
	return s
}

// Load tries, in order: explicitPath (if non-empty), ~/.ipaggregator/settings.yaml,
// then /etc/ipaggregator/settings.yaml. Any failure along the way - including
// a parse failure on the explicit path - is logged as a warning and treated
// as "try the next location"; if nothing could be loaded, Defaults() is
// returned. This function never returns an error: per the ConfigParse
// policy, the caller always ends up with a usable Settings value.
func Load(explicitPath string) Settings {
	candidates := []string{}
	if explicitPath != "" {
		candidates = append(candidates, explicitPath)
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".ipaggregator", "settings.yaml"))
	}
	candidates = append(candidates, systemSettingsPath)

	for _, path := range candidates {
		settings, err := loadFile(path)
		if err != nil {
			logrus.WithError(err).WithField("path", path).Warn("settings load failed, trying next location")
			continue
		}
		logrus.WithField("path", path).Info("loaded settings")
		return settings
	}

	logrus.Warn("no settings file could be loaded, using defaults")
	return Defaults()
}

func loadFile(path string) (Settings, error) {
	settings := Defaults()

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ipaggerr.ErrConfigParse, err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ipaggerr.ErrConfigParse, err)
	}
	return settings, nil
}
