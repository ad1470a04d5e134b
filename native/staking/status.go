package staking

import "fmt"

// PoolStatus is the lifecycle state of a pool.
type PoolStatus uint8

const (
	PoolActive PoolStatus = iota
	PoolPaused
	PoolDeprecated
	PoolEmergency
)

func (s PoolStatus) String() string {
	switch s {
	case PoolActive:
		return "active"
	case PoolPaused:
		return "paused"
	case PoolDeprecated:
		return "deprecated"
	case PoolEmergency:
		return "emergency"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

func (s PoolStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *PoolStatus) UnmarshalText(text []byte) error {
	v, err := parseEnum("pool status", string(text), uint8(PoolEmergency), func(b uint8) string { return PoolStatus(b).String() })
	if err != nil {
		return err
	}
	*s = PoolStatus(v)
	return nil
}

// PoolStatusFromByte converts a wire ordinal. Unknown values are rejected.
func PoolStatusFromByte(b uint8) (PoolStatus, error) {
	if b > uint8(PoolEmergency) {
		return 0, fmt.Errorf("%w: pool status %d", ErrInvalidEnum, b)
	}
	return PoolStatus(b), nil
}

// Pause moves an active pool to paused. Pausing a paused pool is a no-op.
func (s PoolStatus) Pause() (PoolStatus, error) {
	switch s {
	case PoolActive, PoolPaused:
		return PoolPaused, nil
	default:
		return s, fmt.Errorf("%w: cannot pause %s pool", ErrInvalidStatusTransition, s)
	}
}

// Resume moves a paused pool back to active. Resuming an active pool is a
// no-op.
func (s PoolStatus) Resume() (PoolStatus, error) {
	switch s {
	case PoolPaused, PoolActive:
		return PoolActive, nil
	default:
		return s, fmt.Errorf("%w: cannot resume %s pool", ErrInvalidStatusTransition, s)
	}
}

// SlashType names the misbehaviour a pool slashes for.
type SlashType uint8

const (
	SlashDowntime SlashType = iota
	SlashDoubleSign
	SlashInvalidAttestation
	SlashCensorship
	SlashCustom
)

func (t SlashType) String() string {
	switch t {
	case SlashDowntime:
		return "downtime"
	case SlashDoubleSign:
		return "double_sign"
	case SlashInvalidAttestation:
		return "invalid_attestation"
	case SlashCensorship:
		return "censorship"
	case SlashCustom:
		return "custom"
	default:
		return fmt.Sprintf("slash(%d)", uint8(t))
	}
}

func (t SlashType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *SlashType) UnmarshalText(text []byte) error {
	v, err := parseEnum("slash type", string(text), uint8(SlashCustom), func(b uint8) string { return SlashType(b).String() })
	if err != nil {
		return err
	}
	*t = SlashType(v)
	return nil
}

func SlashTypeFromByte(b uint8) (SlashType, error) {
	if b > uint8(SlashCustom) {
		return 0, fmt.Errorf("%w: slash type %d", ErrInvalidEnum, b)
	}
	return SlashType(b), nil
}

// PenaltyType classifies an entry of the penalty history.
type PenaltyType uint8

const (
	PenaltySlash PenaltyType = iota
	PenaltyEarlyWithdraw
	PenaltyEmergency
)

func (t PenaltyType) String() string {
	switch t {
	case PenaltySlash:
		return "slash"
	case PenaltyEarlyWithdraw:
		return "early_withdraw"
	case PenaltyEmergency:
		return "emergency"
	default:
		return fmt.Sprintf("penalty(%d)", uint8(t))
	}
}

func (t PenaltyType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *PenaltyType) UnmarshalText(text []byte) error {
	v, err := parseEnum("penalty type", string(text), uint8(PenaltyEmergency), func(b uint8) string { return PenaltyType(b).String() })
	if err != nil {
		return err
	}
	*t = PenaltyType(v)
	return nil
}

func PenaltyTypeFromByte(b uint8) (PenaltyType, error) {
	if b > uint8(PenaltyEmergency) {
		return 0, fmt.Errorf("%w: penalty type %d", ErrInvalidEnum, b)
	}
	return PenaltyType(b), nil
}

// parseEnum maps a rendered name back to its ordinal in [0, last].
func parseEnum(kind, text string, last uint8, name func(uint8) string) (uint8, error) {
	for b := uint8(0); b <= last; b++ {
		if name(b) == text {
			return b, nil
		}
	}
	return 0, fmt.Errorf("%w: %s %q", ErrInvalidEnum, kind, text)
}
