package models

import "fmt"

// LifeStage is the dog maturity label of a post.
type LifeStage string

const (
	StageDoggo   LifeStage = "doggo"
	StageFloofer LifeStage = "floofer"
	StagePupper  LifeStage = "pupper"
	StagePuppo   LifeStage = "puppo"
	StageUnknown LifeStage = "unknown"
)

// StagePrecedence is the order in which active stage fields are resolved.
var StagePrecedence = []LifeStage{StageDoggo, StageFloofer, StagePupper, StagePuppo}

// ParseLifeStage parses a serialized stage. The empty string maps to
// StageUnknown.
func ParseLifeStage(s string) (LifeStage, error) {
	switch LifeStage(s) {
	case StageDoggo, StageFloofer, StagePupper, StagePuppo, StageUnknown:
		return LifeStage(s), nil
	case "":
		return StageUnknown, nil
	}
	return "", fmt.Errorf("unknown life stage %q", s)
}
