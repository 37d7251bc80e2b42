// Package media enumerates capture devices and acquires streams of local
// tracks from them. Devices are synthetic: each track generates RTP packets
// at its media clock rate so the call carries live media without capture
// hardware.
package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/1ureka/mungesdp/internal/util"
)

// Kind is the category of a capture device.
type Kind string

const (
	KindAudioInput Kind = "audio-input"
	KindVideoInput Kind = "video-input"
)

// Device describes one capture device.
type Device struct {
	ID    string `json:"deviceId"`
	Label string `json:"label"`
	Kind  Kind   `json:"kind"`
}

// Selection picks one device per kind by ID. An empty ID selects the first
// device of that kind.
type Selection struct {
	AudioID string
	VideoID string
}

// Source is the capture capability.
type Source interface {
	Enumerate(ctx context.Context) ([]Device, error)
	Acquire(ctx context.Context, sel Selection) (*Stream, error)
}

var (
	ErrNoDevice         = errors.New("no capture device available")
	ErrUnknownDevice    = errors.New("unknown device")
	ErrPermissionDenied = errors.New("permission denied")
)

// DeviceError reports a failed acquisition.
type DeviceError struct {
	DeviceID string
	Err      error
}

func (e *DeviceError) Error() string {
	if e.DeviceID == "" {
		return fmt.Sprintf("media acquisition failed: %v", e.Err)
	}
	return fmt.Sprintf("media acquisition failed for %q: %v", e.DeviceID, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// Options splits devices into audio and video choices. Devices with an empty
// label are named "Audio N" or "Video N" by their position within the kind.
// Devices of any other kind are logged and skipped.
func Options(devices []Device) (audio, video []Device) {
	for _, d := range devices {
		switch d.Kind {
		case KindAudioInput:
			if d.Label == "" {
				d.Label = fmt.Sprintf("Audio %d", len(audio)+1)
			}
			audio = append(audio, d)
		case KindVideoInput:
			if d.Label == "" {
				d.Label = fmt.Sprintf("Video %d", len(video)+1)
			}
			video = append(video, d)
		default:
			util.LogDebug("unknown device kind %q (id=%s)", d.Kind, d.ID)
		}
	}
	return audio, video
}
