package model

// Mode is a threshold tier. The ranking engine walks the enabled modes
// in order and stops at the first one that yields a candidate.
type Mode string

const (
	ModeNormal  Mode = "normal"
	ModeRelaxed Mode = "relaxed"
	ModeForce   Mode = "force"
)

// AllModes is the default fallback order.
var AllModes = []Mode{ModeNormal, ModeRelaxed, ModeForce}

// Known reports whether m is a supported threshold tier.
func (m Mode) Known() bool {
	switch m {
	case ModeNormal, ModeRelaxed, ModeForce:
		return true
	}
	return false
}

// Chinese returns the display name used in logs and reports.
func (m Mode) Chinese() string {
	switch m {
	case ModeNormal:
		return "常规"
	case ModeRelaxed:
		return "放宽"
	case ModeForce:
		return "强制"
	}
	return string(m)
}
