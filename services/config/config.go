// Package config holds the device profile: everything about one
// deployment that is decided before the unit goes into the field. On
// hardware the profile is compiled in; on the host simulator it is
// loaded from a YAML file. Either way the parsed profile is published
// retained on the bus so services pick their sections up at startup.
package config

import (
	"errors"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Eli-S-Bridge/ETAG-V9.3/bus"
	"github.com/Eli-S-Bridge/ETAG-V9.3/services/power"
	"github.com/Eli-S-Bridge/ETAG-V9.3/types"
)

const configPrefix = "config"

// Profile is one deployment's configuration.
type Profile struct {
	// Device is the 4-character identifier stamped into the log header
	// and the parameter page.
	Device string `yaml:"device"`

	// FlashPages sizes the dataflash array.
	FlashPages uint32 `yaml:"flash_pages"`

	// DedupWindowSeconds spaces repeated reads of one tag.
	DedupWindowSeconds int32 `yaml:"dedup_window_s"`

	// LoggingMode is "full" or "flash_only".
	LoggingMode string `yaml:"logging_mode"`

	Power PowerProfile `yaml:"power"`
}

type PowerProfile struct {
	CycleThreshold uint32 `yaml:"cycle_threshold"`
	PauseMS        uint32 `yaml:"pause_ms"`
	Night          Night  `yaml:"night"`
}

type Night struct {
	Enabled                bool  `yaml:"enabled"`
	SleepHour, SleepMinute uint8 `yaml:"-"`
	WakeHour, WakeMinute   uint8 `yaml:"-"`

	// Sleep and Wake are "hh:mm" in the file.
	Sleep string `yaml:"sleep"`
	Wake  string `yaml:"wake"`
}

// Default is what a device with no stored profile runs.
func Default() Profile {
	return Profile{
		Device:             "ETAG",
		FlashPages:         2048,
		DedupWindowSeconds: 5,
		LoggingMode:        "full",
		Power: PowerProfile{
			CycleThreshold: 500,
			PauseMS:        1000,
			Night: Night{
				Enabled: true,
				Sleep:   "21:00", SleepHour: 21,
				Wake: "06:00", WakeHour: 6,
			},
		},
	}
}

// Load parses a YAML profile. Absent fields take the defaults; the
// result is validated.
func Load(raw []byte) (Profile, error) {
	p := Default()
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Profile{}, err
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func (p *Profile) Validate() error {
	if len(p.Device) != 4 {
		return errors.New("config: device wants exactly 4 characters")
	}
	if p.FlashPages < 3 {
		return errors.New("config: flash_pages below minimum of 3")
	}
	if p.LoggingMode != "full" && p.LoggingMode != "flash_only" {
		return errors.New("config: logging_mode wants full or flash_only")
	}
	var err error
	if p.Power.Night.SleepHour, p.Power.Night.SleepMinute, err = parseHHMM(p.Power.Night.Sleep); err != nil {
		return err
	}
	if p.Power.Night.WakeHour, p.Power.Night.WakeMinute, err = parseHHMM(p.Power.Night.Wake); err != nil {
		return err
	}
	return nil
}

// Mode maps the profile string onto the on-flash logging mode byte.
func (p Profile) Mode() types.LoggingMode {
	if p.LoggingMode == "flash_only" {
		return types.ModeFlashOnly
	}
	return types.ModeFull
}

// PowerConfig builds the scheduler configuration for this profile.
func (p Profile) PowerConfig() power.Config {
	cfg := power.DefaultConfig()
	cfg.CycleThreshold = p.Power.CycleThreshold
	if p.Power.PauseMS > 0 {
		cfg.Pause = time.Duration(p.Power.PauseMS) * time.Millisecond
	}
	cfg.NightEnabled = p.Power.Night.Enabled
	cfg.SleepHour, cfg.SleepMinute = p.Power.Night.SleepHour, p.Power.Night.SleepMinute
	cfg.WakeHour, cfg.WakeMinute = p.Power.Night.WakeHour, p.Power.Night.WakeMinute
	return cfg
}

// Publish pushes the profile sections retained, one topic per section,
// so services subscribing later still receive them.
func (p Profile) Publish(conn *bus.Connection) {
	conn.Publish(conn.NewMessage(bus.T(configPrefix, "device"), p.Device, true))
	conn.Publish(conn.NewMessage(bus.T(configPrefix, "power"), p.Power, true))
	conn.Publish(conn.NewMessage(bus.T(configPrefix, "logging"), p.LoggingMode, true))
}

func parseHHMM(s string) (h, m uint8, err error) {
	bad := errors.New("config: time wants hh:mm, got " + s)
	if len(s) != 5 || s[2] != ':' {
		return 0, 0, bad
	}
	for _, i := range [4]int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, 0, bad
		}
	}
	h = (s[0]-'0')*10 + (s[1] - '0')
	m = (s[3]-'0')*10 + (s[4] - '0')
	if h > 23 || m > 59 {
		return 0, 0, bad
	}
	return h, m, nil
}
