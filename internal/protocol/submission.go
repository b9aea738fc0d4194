package protocol

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"towerproof.dev/internal/sim/autopilot"
	"towerproof.dev/internal/sim/engine"
	"towerproof.dev/internal/sim/replay"
)

// ErrMalformed marks submissions rejected before simulation (code E_PROTO_BAD_REQUEST).
var ErrMalformed = errors.New("malformed submission")

//go:embed submission.schema.json
var submissionSchemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func submissionSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("https://towerproof.dev/schemas/submission.schema.json", submissionSchemaJSON)
	})
	return schema, schemaErr
}

// ValidateSubmission checks raw JSON against the embedded submission schema.
func ValidateSubmission(b []byte) error {
	s, err := submissionSchema()
	if err != nil {
		return fmt.Errorf("compile submission schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// DecodeSubmission validates and decodes a RUN_SUBMISSION message.
func DecodeSubmission(b []byte) (RunSubmissionMsg, error) {
	if err := ValidateSubmission(b); err != nil {
		return RunSubmissionMsg{}, err
	}
	var m RunSubmissionMsg
	if err := json.Unmarshal(b, &m); err != nil {
		return RunSubmissionMsg{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if m.Type != TypeSubmission {
		return RunSubmissionMsg{}, fmt.Errorf("%w: type %q", ErrMalformed, m.Type)
	}
	return m, nil
}

// Input converts the submission into a verifier input. Audit ticks and the tick
// ceiling are chosen by the verifier, never by the client.
func (m RunSubmissionMsg) Input(auditTicks []uint32, maxTicks uint32) (replay.Input, error) {
	events, err := DecodeEvents(m.Events)
	if err != nil {
		return replay.Input{}, err
	}
	return replay.Input{
		SimVersion:          m.SimVersion,
		Seed:                m.Seed,
		Config:              m.Config,
		Events:              events,
		ExpectedCheckpoints: m.Checkpoints,
		ExpectedFinalHash:   m.FinalHash,
		AuditTicks:          auditTicks,
		MaxTicks:            maxTicks,
	}, nil
}

// NewSubmission packages a local recording for upload.
func NewSubmission(runID string, rec autopilot.Recording) (RunSubmissionMsg, error) {
	events, err := EncodeEvents(rec.Events)
	if err != nil {
		return RunSubmissionMsg{}, err
	}
	return RunSubmissionMsg{
		Type:            TypeSubmission,
		ProtocolVersion: Version,
		RunID:           runID,
		SimVersion:      rec.Config.Version,
		Seed:            rec.Seed,
		Config:          rec.Config,
		Events:          events,
		Checkpoints:     rec.Checkpoints,
		AuditTicks:      rec.AuditTicks,
		FinalHash:       rec.FinalHash,
		Score:           rec.Score,
	}, nil
}

func NewVerdict(runID string, res replay.Result) RunVerdictMsg {
	return RunVerdictMsg{
		Type:            TypeVerdict,
		ProtocolVersion: Version,
		RunID:           runID,
		Success:         res.Success,
		Reason:          res.Reason,
		Detail:          res.Detail,
		FinalHash:       res.FinalHash,
		Score:           res.Score,
		Outcome:         res.Outcome,
		TicksSimulated:  res.TicksSimulated,
		EventsDropped:   res.EventsDropped,
		DroppedBy:       res.DroppedBy,
	}
}

// EncodeEvents converts engine events to wire messages.
func EncodeEvents(events []engine.Event) ([]EventMsg, error) {
	out := make([]EventMsg, 0, len(events))
	for i, ev := range events {
		switch e := ev.(type) {
		case engine.ChooseRelic:
			idx := e.OptionIndex
			out = append(out, EventMsg{Type: EventChooseRelic, Tick: e.Tick, Wave: e.Wave, OptionIndex: &idx})
		case engine.MoveHero:
			target := e.Target
			out = append(out, EventMsg{Type: EventMoveHero, Tick: e.Tick, HeroID: e.HeroID, Target: &target})
		case engine.UpgradeHero:
			out = append(out, EventMsg{Type: EventUpgradeHero, Tick: e.Tick, HeroID: e.HeroID})
		case engine.ActivateSkill:
			out = append(out, EventMsg{Type: EventActivateSkill, Tick: e.Tick, HeroID: e.HeroID, TargetID: e.TargetID})
		default:
			return nil, fmt.Errorf("encode event %d: unsupported %T", i, ev)
		}
	}
	return out, nil
}

// DecodeEvents converts wire messages to engine events, preserving order. Structural
// problems (unknown type, missing fields) fail the whole log; semantic problems are
// left to the engine, which drops the event at its tick.
func DecodeEvents(msgs []EventMsg) ([]engine.Event, error) {
	out := make([]engine.Event, 0, len(msgs))
	for i, m := range msgs {
		switch m.Type {
		case EventChooseRelic:
			if m.OptionIndex == nil {
				return nil, fmt.Errorf("%w: event %d: option_index required", ErrMalformed, i)
			}
			out = append(out, engine.ChooseRelic{Tick: m.Tick, Wave: m.Wave, OptionIndex: *m.OptionIndex})
		case EventMoveHero:
			if m.Target == nil {
				return nil, fmt.Errorf("%w: event %d: target required", ErrMalformed, i)
			}
			out = append(out, engine.MoveHero{Tick: m.Tick, HeroID: m.HeroID, Target: *m.Target})
		case EventUpgradeHero:
			out = append(out, engine.UpgradeHero{Tick: m.Tick, HeroID: m.HeroID})
		case EventActivateSkill:
			out = append(out, engine.ActivateSkill{Tick: m.Tick, HeroID: m.HeroID, TargetID: m.TargetID})
		default:
			return nil, fmt.Errorf("%w: event %d: unknown type %q", ErrMalformed, i, m.Type)
		}
	}
	return out, nil
}
