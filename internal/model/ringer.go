package model

import "strings"

// RingerMode is the system audio state a profile maps onto.
type RingerMode int

const (
	RingerNormal RingerMode = iota
	RingerVibrate
	RingerSilent
)

func (m RingerMode) String() string {
	switch m {
	case RingerVibrate:
		return "VIBRATE"
	case RingerSilent:
		return "SILENT"
	default:
		return "NORMAL"
	}
}

// RingerModeForProfile maps a profile string (case-insensitive) to a target
// ringer mode. Unrecognized profiles default to NORMAL; known reports
// whether the input matched the table so callers can log a data-quality
// warning on the fallback.
func RingerModeForProfile(profile string) (mode RingerMode, known bool) {
	switch strings.ToLower(profile) {
	case "ringing", "ring":
		return RingerNormal, true
	case "vibrate", "vibration":
		return RingerVibrate, true
	case "silent":
		return RingerSilent, true
	default:
		return RingerNormal, false
	}
}
