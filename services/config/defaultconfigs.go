package config

import "errors"

// Embedded profiles, keyed by deployment name. Hardware builds select
// one at compile time; add entries here or generate them.

const profileField = `
device: ETAG
flash_pages: 2048
dedup_window_s: 5
logging_mode: full
power:
  cycle_threshold: 500
  pause_ms: 1000
  night:
    enabled: true
    sleep: "21:00"
    wake: "06:00"
`

const profileBench = `
device: BNCH
flash_pages: 64
dedup_window_s: 2
logging_mode: flash_only
power:
  cycle_threshold: 10
  pause_ms: 100
  night:
    enabled: false
    sleep: "21:00"
    wake: "06:00"
`

var embeddedProfiles = map[string][]byte{
	"field": []byte(profileField),
	"bench": []byte(profileBench),
}

// Embedded resolves a compiled-in profile by deployment name.
func Embedded(name string) (Profile, error) {
	raw, ok := embeddedProfiles[name]
	if !ok {
		return Profile{}, errors.New("config: no embedded profile named " + name)
	}
	return Load(raw)
}
