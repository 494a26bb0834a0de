package audio

import "errors"

// ErrNoAudioDevice indicates no audio input device was found or detected.
var ErrNoAudioDevice = errors.New("no audio input device found")

// ErrLoopbackNotFound indicates no loopback device was detected.
var ErrLoopbackNotFound = errors.New("loopback device not found")
