package config

import (
	"testing"
	"time"

	"github.com/Eli-S-Bridge/ETAG-V9.3/bus"
	"github.com/Eli-S-Bridge/ETAG-V9.3/types"
)

func TestLoadAppliesDefaults(t *testing.T) {
	p, err := Load([]byte("device: WREN\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Device != "WREN" {
		t.Fatalf("device %q", p.Device)
	}
	if p.FlashPages != 2048 || p.DedupWindowSeconds != 5 {
		t.Fatalf("defaults not applied: %+v", p)
	}
	if p.Power.Night.SleepHour != 21 || p.Power.Night.WakeHour != 6 {
		t.Fatalf("night window %+v", p.Power.Night)
	}
}

func TestLoadFullProfile(t *testing.T) {
	raw := []byte(`
device: ET02
flash_pages: 128
dedup_window_s: 10
logging_mode: flash_only
power:
  cycle_threshold: 50
  pause_ms: 250
  night:
    enabled: true
    sleep: "22:30"
    wake: "05:45"
`)
	p, err := Load(raw)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Mode() != types.ModeFlashOnly {
		t.Fatalf("mode %v", p.Mode())
	}
	cfg := p.PowerConfig()
	if cfg.CycleThreshold != 50 || cfg.Pause != 250*time.Millisecond {
		t.Fatalf("power config %+v", cfg)
	}
	if cfg.SleepHour != 22 || cfg.SleepMinute != 30 || cfg.WakeHour != 5 || cfg.WakeMinute != 45 {
		t.Fatalf("night window %+v", cfg)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"bad device":  "device: TOOLONG\n",
		"tiny flash":  "flash_pages: 2\n",
		"bad mode":    "logging_mode: loud\n",
		"bad time":    "power: {night: {sleep: \"25:00\"}}\n",
		"bad format":  "power: {night: {wake: \"6am\"}}\n",
	}
	for name, raw := range cases {
		if _, err := Load([]byte(raw)); err == nil {
			t.Errorf("%s: accepted %q", name, raw)
		}
	}
}

func TestEmbeddedProfiles(t *testing.T) {
	p, err := Embedded("field")
	if err != nil {
		t.Fatalf("field profile: %v", err)
	}
	if p.Device != "ETAG" || !p.Power.Night.Enabled {
		t.Fatalf("field profile %+v", p)
	}
	if _, err := Embedded("nope"); err == nil {
		t.Fatal("unknown profile accepted")
	}
}

func TestPublishRetained(t *testing.T) {
	b := bus.NewBus(4)
	p := Default()
	p.Publish(b.NewConnection("config"))

	sub := b.NewConnection("svc").Subscribe(bus.T("config", "device"))
	select {
	case msg := <-sub.Channel():
		if msg.Payload.(string) != "ETAG" {
			t.Fatalf("payload %v", msg.Payload)
		}
	default:
		t.Fatal("no retained profile section")
	}
}
