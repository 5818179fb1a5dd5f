package service

import "errors"

var (
	ErrAlreadyProcessing = errors.New("email is already being processed")
	ErrDeliveryFailed    = errors.New("email could not be delivered")
)
