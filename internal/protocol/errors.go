package protocol

import (
	"towerproof.dev/internal/sim/engine"
	"towerproof.dev/internal/sim/replay"
)

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrInternal        = "E_INTERNAL"

	// Verdict reasons.
	ReasonVersionMismatch    = replay.ReasonVersionMismatch
	ReasonConfigMismatch     = replay.ReasonConfigMismatch
	ReasonTicksNotMonotonic  = replay.ReasonTicksNotMonotonic
	ReasonTickLimitExceeded  = replay.ReasonTickLimitExceeded
	ReasonAuditTickMissing   = replay.ReasonAuditTickMissing
	ReasonCheckpointMismatch = replay.ReasonCheckpointMismatch
	ReasonFinalHashMismatch  = replay.ReasonFinalHashMismatch

	// Event rejections (diagnostics only; a run is never failed for these).
	ErrStale         = engine.RejectStale
	ErrNotInChoice   = engine.RejectNotInChoice
	ErrInChoice      = engine.RejectInChoice
	ErrWrongWave     = engine.RejectWrongWave
	ErrOutOfRange    = engine.RejectOutOfRange
	ErrOutOfBounds   = engine.RejectOutOfBounds
	ErrInvalidTarget = engine.RejectTarget
	ErrCooldown      = engine.RejectCooldown
	ErrMaxLevel      = engine.RejectMaxLevel
	ErrNoResource    = engine.RejectNoResource
	ErrUnknownEvent  = engine.RejectUnknownEvent
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrInternal:        {},

	ReasonVersionMismatch:    {},
	ReasonConfigMismatch:     {},
	ReasonTicksNotMonotonic:  {},
	ReasonTickLimitExceeded:  {},
	ReasonAuditTickMissing:   {},
	ReasonCheckpointMismatch: {},
	ReasonFinalHashMismatch:  {},

	ErrStale:         {},
	ErrNotInChoice:   {},
	ErrInChoice:      {},
	ErrWrongWave:     {},
	ErrOutOfRange:    {},
	ErrOutOfBounds:   {},
	ErrInvalidTarget: {},
	ErrCooldown:      {},
	ErrMaxLevel:      {},
	ErrNoResource:    {},
	ErrUnknownEvent:  {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
