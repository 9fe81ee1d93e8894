package domain

import "errors"

var ErrInvalidChoice = errors.New("invalid choice")

// Choice is one of the three canonical hand shapes.
type Choice string

const (
	Rock     Choice = "rock"
	Paper    Choice = "paper"
	Scissors Choice = "scissors"
)

// beats maps each choice to the choice it defeats.
var beats = map[Choice]Choice{
	Rock:     Scissors,
	Scissors: Paper,
	Paper:    Rock,
}

// ParseChoice validates raw client input before it reaches the resolver.
func ParseChoice(raw string) (Choice, error) {
	c := Choice(raw)
	if _, ok := beats[c]; !ok {
		return "", ErrInvalidChoice
	}
	return c, nil
}

// Outcome is the transient result of one round. It is never stored.
type Outcome string

const (
	Side1Win Outcome = "side1_win"
	Side2Win Outcome = "side2_win"
	Tie      Outcome = "tie"
)

// Resolve computes the round outcome for two parsed choices.
func Resolve(a, b Choice) Outcome {
	if a == b {
		return Tie
	}
	if beats[a] == b {
		return Side1Win
	}
	return Side2Win
}
