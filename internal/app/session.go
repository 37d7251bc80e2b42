// Package app ties a media source and an agent factory to the coordinator
// of the current call. After a hangup the next media acquisition starts a
// new call with a fresh coordinator.
package app

import (
	"context"
	"sync"

	"github.com/1ureka/mungesdp/internal/agent"
	"github.com/1ureka/mungesdp/internal/config"
	"github.com/1ureka/mungesdp/internal/media"
	"github.com/1ureka/mungesdp/internal/negotiation"
	"github.com/1ureka/mungesdp/internal/util"
)

// Session exposes the operator actions of the demo.
type Session struct {
	ctx     context.Context
	cfg     config.Config
	factory agent.Factory
	source  media.Source

	mu     sync.Mutex
	coord  *negotiation.Coordinator
	cancel context.CancelFunc
	calls  int
}

// NewSession starts the first call's coordinator. Everything stops when ctx
// is cancelled or Close is called.
func NewSession(ctx context.Context, cfg config.Config, factory agent.Factory, source media.Source) *Session {
	s := &Session{ctx: ctx, cfg: cfg, factory: factory, source: source}
	s.renew()
	return s
}

// renew replaces the coordinator. Callers hold mu or own s exclusively.
func (s *Session) renew() {
	if s.cancel != nil {
		s.cancel()
		<-s.coord.Done()
	}

	ctx, cancel := context.WithCancel(s.ctx)
	s.coord = negotiation.New(s.cfg, s.factory, s.source)
	s.cancel = cancel
	s.calls++

	go s.coord.Run(ctx)
	util.LogDebug("call #%d ready", s.calls)
}

func (s *Session) current() *negotiation.Coordinator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coord
}

// Calls returns how many coordinators have been started.
func (s *Session) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Devices lists the capture devices with display labels filled in.
func (s *Session) Devices(ctx context.Context) ([]media.Device, error) {
	return s.source.Enumerate(ctx)
}

// AcquireMedia starts a new call first when the current one has ended.
func (s *Session) AcquireMedia(ctx context.Context, sel media.Selection) error {
	s.mu.Lock()
	snap, err := s.coord.Snapshot(ctx)
	if err == nil && snap.State == negotiation.StateClosed {
		s.renew()
	}
	c := s.coord
	s.mu.Unlock()

	if err != nil {
		return err
	}
	return c.AcquireMedia(ctx, sel)
}

func (s *Session) CreateConnections(ctx context.Context) error {
	return s.current().CreateConnections(ctx)
}

func (s *Session) CreateOffer(ctx context.Context) (string, error) {
	return s.current().CreateOffer(ctx)
}

func (s *Session) ApplyOffer(ctx context.Context, text string) error {
	return s.current().ApplyOffer(ctx, text)
}

func (s *Session) CreateAnswer(ctx context.Context) (string, error) {
	return s.current().CreateAnswer(ctx)
}

func (s *Session) ApplyAnswer(ctx context.Context, text string) error {
	return s.current().ApplyAnswer(ctx, text)
}

func (s *Session) Hangup(ctx context.Context) error {
	return s.current().Hangup(ctx)
}

func (s *Session) Snapshot(ctx context.Context) (negotiation.Snapshot, error) {
	return s.current().Snapshot(ctx)
}

// Close ends the current call and stops its coordinator.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
	<-s.coord.Done()
}
