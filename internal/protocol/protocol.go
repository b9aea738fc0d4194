// Package protocol defines the JSON wire format between a game client and the
// verifier: run submissions in, verdicts out.
package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeSubmission = "RUN_SUBMISSION"
	TypeVerdict    = "RUN_VERDICT"
)

// Event types inside a submission.
const (
	EventChooseRelic   = "CHOOSE_RELIC"
	EventMoveHero      = "MOVE_HERO"
	EventUpgradeHero   = "UPGRADE_HERO"
	EventActivateSkill = "ACTIVATE_SKILL"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
