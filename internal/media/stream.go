package media

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// Stream is a set of live tracks acquired together.
type Stream struct {
	id     string
	tracks []*Track
}

func newStream() *Stream {
	return &Stream{id: uuid.NewString()}
}

func (s *Stream) add(t *Track) { s.tracks = append(s.tracks, t) }

func (s *Stream) ID() string { return s.id }

// Tracks returns every track, audio first.
func (s *Stream) Tracks() []*Track { return s.tracks }

func (s *Stream) AudioTracks() []*Track { return s.byKind(KindAudioInput) }
func (s *Stream) VideoTracks() []*Track { return s.byKind(KindVideoInput) }

func (s *Stream) byKind(kind Kind) []*Track {
	var out []*Track
	for _, t := range s.tracks {
		if t.device.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}

// Stop ends every track. Safe to call more than once.
func (s *Stream) Stop() {
	for _, t := range s.tracks {
		t.Stop()
	}
}

// Track is one live local track fed by a packet generator.
type Track struct {
	device Device
	local  *webrtc.TrackLocalStaticRTP

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// frame parameters of the generator per kind
type profile struct {
	codec    webrtc.RTPCodecCapability
	interval time.Duration
	payload  []byte
}

var profiles = map[Kind]profile{
	KindAudioInput: {
		codec:    webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		interval: 20 * time.Millisecond,
		payload:  []byte{0xf8, 0xff, 0xfe}, // opus silence
	},
	KindVideoInput: {
		codec:    webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
		interval: time.Second / 30,
		payload:  []byte{0x10, 0x00, 0x00, 0x9d, 0x01, 0x2a},
	},
}

func newTrack(d Device, streamID string) (*Track, error) {
	p := profiles[d.Kind]

	kind := "audio"
	if d.Kind == KindVideoInput {
		kind = "video"
	}

	local, err := webrtc.NewTrackLocalStaticRTP(p.codec, kind+"-"+uuid.NewString(), streamID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &Track{
		device: d,
		local:  local,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go t.pump(ctx, p)

	return t, nil
}

// pump writes one packet per frame interval until the track is stopped.
// Writes before the track is bound to a connection are dropped by pion.
func (t *Track) pump(ctx context.Context, p profile) {
	defer close(t.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	step := uint32(p.interval.Seconds() * float64(p.codec.ClockRate))
	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version: 2,
			Marker:  true,
		},
		Payload: p.payload,
	}

	for {
		select {
		case <-ticker.C:
			// A write fails only for a binding that went away; the
			// generator keeps running for the remaining ones.
			_ = t.local.WriteRTP(pkt)
			pkt.SequenceNumber++
			pkt.Timestamp += step

		case <-ctx.Done():
			return
		}
	}
}

// Local returns the track to attach to a connection.
func (t *Track) Local() webrtc.TrackLocal { return t.local }

func (t *Track) Kind() Kind    { return t.device.Kind }
func (t *Track) Label() string { return t.device.Label }

// Live reports whether the generator is still running.
func (t *Track) Live() bool {
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

// Stop ends the generator and waits for it to exit.
func (t *Track) Stop() {
	t.stopOnce.Do(func() {
		t.cancel()
		<-t.done
	})
}
