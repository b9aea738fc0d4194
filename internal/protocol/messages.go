package protocol

import (
	"towerproof.dev/internal/sim/checkpoint"
	"towerproof.dev/internal/sim/engine"
	"towerproof.dev/internal/sim/fixed"
)

// RUN_SUBMISSION (client -> verifier). Fixed-point values are raw Q16.16 integers.
type RunSubmissionMsg struct {
	Type            string                  `json:"type"`
	ProtocolVersion string                  `json:"protocol_version"`
	RunID           string                  `json:"run_id,omitempty"`
	SimVersion      int                     `json:"sim_version"`
	Seed            int32                   `json:"seed"`
	Config          engine.Config           `json:"config"`
	Events          []EventMsg              `json:"events"`
	Checkpoints     []checkpoint.Checkpoint `json:"checkpoints"`
	AuditTicks      []uint32                `json:"audit_ticks,omitempty"`
	FinalHash       uint32                  `json:"final_hash"`
	Score           int32                   `json:"score"`
}

// EventMsg is a tagged union keyed by Type. Only the fields of that type are read.
type EventMsg struct {
	Type        string      `json:"type"`
	Tick        uint32      `json:"tick"`
	Wave        uint32      `json:"wave,omitempty"`
	OptionIndex *int32      `json:"option_index,omitempty"`
	HeroID      uint32      `json:"hero_id,omitempty"`
	TargetID    uint32      `json:"target_id,omitempty"`
	Target      *fixed.Vec2 `json:"target,omitempty"`
}

// RUN_VERDICT (verifier -> client/API layer)
type RunVerdictMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	RunID           string            `json:"run_id,omitempty"`
	Success         bool              `json:"success"`
	Reason          string            `json:"reason,omitempty"`
	Detail          string            `json:"detail,omitempty"`
	FinalHash       uint32            `json:"final_hash"`
	Score           int32             `json:"score"`
	Outcome         string            `json:"outcome,omitempty"`
	TicksSimulated  uint32            `json:"ticks_simulated"`
	EventsDropped   uint32            `json:"events_dropped"`
	DroppedBy       map[string]uint32 `json:"dropped_by,omitempty"`
}
