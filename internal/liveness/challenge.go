package liveness

import (
	"fmt"
	"math/rand/v2"
)

// ChallengeType is the action the subject is asked to perform
type ChallengeType string

const (
	ChallengeBlink     ChallengeType = "blink"
	ChallengeTurnLeft  ChallengeType = "turn_left"
	ChallengeTurnRight ChallengeType = "turn_right"
	ChallengeSmile     ChallengeType = "smile"
)

// RequiredBlinks is how many blinks satisfy ChallengeBlink
const RequiredBlinks = 1

var challenges = []ChallengeType{ChallengeBlink, ChallengeTurnLeft, ChallengeTurnRight, ChallengeSmile}

var instructions = map[ChallengeType]string{
	ChallengeBlink:     "Parpadea",
	ChallengeTurnLeft:  "Gira la cabeza a la izquierda",
	ChallengeTurnRight: "Gira la cabeza a la derecha",
	ChallengeSmile:     "Sonríe",
}

// Instruction returns the text shown to the subject
func (c ChallengeType) Instruction() string {
	return instructions[c]
}

func (c ChallengeType) Valid() bool {
	_, ok := instructions[c]
	return ok
}

// ParseChallenge validates a challenge name
func ParseChallenge(s string) (ChallengeType, error) {
	c := ChallengeType(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown challenge %q", s)
	}
	return c, nil
}

// RandomChallenge picks one challenge uniformly
func RandomChallenge() ChallengeType {
	return challenges[rand.IntN(len(challenges))]
}
