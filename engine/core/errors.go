package core

import (
	"errors"
)

var (
	// ErrCapabilityQuery marks a device whose capabilities could not be read.
	// Such a device is ineligible for selection.
	ErrCapabilityQuery = errors.New("capability query failed")
	// ErrNoSuitableDevice is returned when every candidate device scored zero.
	ErrNoSuitableDevice = errors.New("no suitable physical device")
	// ErrResourceCreation wraps a failed native object creation.
	ErrResourceCreation = errors.New("resource creation failed")
)
