package media

import (
	"context"

	"github.com/1ureka/mungesdp/internal/util"
)

// Synthetic is a Source backed by a fixed device list.
type Synthetic struct {
	Devices []Device
	Denied  bool // every Acquire fails with ErrPermissionDenied
}

// DefaultDevices is one microphone without a label and one test pattern camera.
func DefaultDevices() []Device {
	return []Device{
		{ID: "synthetic-audio-0", Kind: KindAudioInput},
		{ID: "synthetic-video-0", Label: "Test Pattern", Kind: KindVideoInput},
	}
}

// NewSynthetic returns a source over devices, or DefaultDevices when none
// are given.
func NewSynthetic(devices ...Device) *Synthetic {
	if len(devices) == 0 {
		devices = DefaultDevices()
	}
	return &Synthetic{Devices: devices}
}

func (s *Synthetic) Enumerate(ctx context.Context) ([]Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	audio, video := Options(s.Devices)
	return append(audio, video...), nil
}

func (s *Synthetic) Acquire(ctx context.Context, sel Selection) (*Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Denied {
		return nil, &DeviceError{Err: ErrPermissionDenied}
	}

	audio, video := Options(s.Devices)

	audioDev, err := pick(audio, sel.AudioID)
	if err != nil {
		return nil, err
	}
	videoDev, err := pick(video, sel.VideoID)
	if err != nil {
		return nil, err
	}
	if audioDev == nil && videoDev == nil {
		return nil, &DeviceError{Err: ErrNoDevice}
	}

	util.LogDebug("selected audio source: %s", sel.AudioID)
	util.LogDebug("selected video source: %s", sel.VideoID)

	stream := newStream()
	for _, d := range []*Device{audioDev, videoDev} {
		if d == nil {
			continue
		}
		tr, err := newTrack(*d, stream.ID())
		if err != nil {
			stream.Stop()
			return nil, &DeviceError{DeviceID: d.ID, Err: err}
		}
		stream.add(tr)
	}

	return stream, nil
}

// pick resolves id within devices. An empty id picks the first device, or
// none when the kind has no devices.
func pick(devices []Device, id string) (*Device, error) {
	if id == "" {
		if len(devices) == 0 {
			return nil, nil
		}
		return &devices[0], nil
	}
	for i := range devices {
		if devices[i].ID == id {
			return &devices[i], nil
		}
	}
	return nil, &DeviceError{DeviceID: id, Err: ErrUnknownDevice}
}
