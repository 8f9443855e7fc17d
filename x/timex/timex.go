package timex

import "time"

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// PeriodFromHz returns a nanosecond period for a requested frequency.
// freqHz==0 is coerced to 1 to avoid division by zero.
func PeriodFromHz(freqHz uint32) uint64 {
	if freqHz == 0 {
		freqHz = 1
	}
	return uint64(1_000_000_000 / uint64(freqHz))
}

// PackClock packs a time of day as the decimal HHMMSS integer
// (12:34:56 -> 123456). This is the on-wire/display form; arithmetic
// on it is not second-accurate, use SecondsOfDay for that.
func PackClock(hour, minute, second uint8) uint32 {
	return uint32(hour)*10000 + uint32(minute)*100 + uint32(second)
}

// UnpackClock splits a decimal-packed HHMMSS value.
func UnpackClock(packed uint32) (hour, minute, second uint8) {
	return uint8(packed / 10000), uint8(packed / 100 % 100), uint8(packed % 100)
}

// SecondsOfDay converts a time of day to seconds since midnight.
func SecondsOfDay(hour, minute, second uint8) int32 {
	return int32(hour)*3600 + int32(minute)*60 + int32(second)
}

// ClockDiffSeconds returns the forward distance in seconds from a to b
// on a 24-hour clock, both given as seconds since midnight. The result
// is always in [0, 86400); a reading just after midnight is close to
// one just before it.
func ClockDiffSeconds(a, b int32) int32 {
	const day = 24 * 3600
	d := (b - a) % day
	if d < 0 {
		d += day
	}
	return d
}
