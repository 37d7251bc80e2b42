package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/1ureka/mungesdp/internal/app"
	"github.com/1ureka/mungesdp/internal/media"
	"github.com/1ureka/mungesdp/internal/negotiation"
	"github.com/1ureka/mungesdp/internal/session"
	"github.com/1ureka/mungesdp/internal/util"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server serves the control surface for one session.
type Server struct {
	session  *app.Session
	listener net.Listener
}

func NewServer(s *app.Session) *Server {
	return &Server{session: s}
}

// Handler returns the HTTP routes: /ws for actions and /devices for the
// device list.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/devices", s.handleDevices)
	return mux
}

// Start begins listening on addr. Returns the bound address.
func (s *Server) Start(addr string) (net.Addr, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start control server: %w", err)
	}
	s.listener = listener

	go func() {
		_ = http.Serve(listener, s.Handler())
	}()

	return listener.Addr(), nil
}

// Close shuts down the listener, preventing new connections.
func (s *Server) Close() {
	if s.listener != nil {
		s.listener.Close()
	}
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.session.Devices(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(DevicesResponse{Devices: devices})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	util.LogInfo("control client connected: %s", r.RemoteAddr)

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			var (
				syntaxErr *json.SyntaxError
				typeErr   *json.UnmarshalTypeError
			)
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				if err := conn.WriteJSON(Response{Type: TypeError, Kind: KindRequest, Error: err.Error()}); err != nil {
					return
				}
				continue
			}
			util.LogDebug("control client gone: %v", err)
			return
		}

		if err := conn.WriteJSON(s.serve(r.Context(), req)); err != nil {
			util.LogWarning("failed to write control reply: %v", err)
			return
		}
	}
}

// serve runs one action and builds its reply. Failures never end the
// connection; the UI corrects its input and sends the action again.
func (s *Server) serve(ctx context.Context, req Request) Response {
	var err error

	switch req.Action {
	case ActionAcquireMedia:
		err = s.session.AcquireMedia(ctx, media.Selection{AudioID: req.Audio, VideoID: req.Video})
	case ActionCreateConnections:
		err = s.session.CreateConnections(ctx)
	case ActionCreateOffer:
		_, err = s.session.CreateOffer(ctx)
	case ActionApplyOffer:
		err = s.session.ApplyOffer(ctx, req.SDP)
	case ActionCreateAnswer:
		_, err = s.session.CreateAnswer(ctx)
	case ActionApplyAnswer:
		err = s.session.ApplyAnswer(ctx, req.SDP)
	case ActionHangup:
		err = s.session.Hangup(ctx)
	case ActionSnapshot:
	default:
		return Response{Type: TypeError, Action: req.Action, Kind: KindRequest, Error: fmt.Sprintf("unknown action %q", req.Action)}
	}

	if err != nil {
		return Response{Type: TypeError, Action: req.Action, Kind: classify(err), Error: err.Error()}
	}

	snap, err := s.session.Snapshot(ctx)
	if err != nil {
		return Response{Type: TypeError, Action: req.Action, Kind: classify(err), Error: err.Error()}
	}
	return Response{Type: TypeSnapshot, Action: req.Action, Snapshot: &snap}
}

func classify(err error) ErrorKind {
	var (
		derr *media.DeviceError
		verr *session.ValidationError
		nerr *negotiation.NegotiationError
	)
	switch {
	case errors.As(err, &derr):
		return KindDevice
	case errors.As(err, &verr):
		return KindValidation
	case errors.As(err, &nerr):
		return KindNegotiation
	case errors.Is(err, negotiation.ErrInvalidTransition):
		return KindTransition
	case errors.Is(err, negotiation.ErrClosed):
		return KindClosed
	default:
		return KindInternal
	}
}
