package training

import "errors"

var (
	// ErrAlreadyTraining is returned when Train targets an agent already in training.
	ErrAlreadyTraining = errors.New("agent already training")
	ErrAgentNotFound   = errors.New("agent not found")
)
