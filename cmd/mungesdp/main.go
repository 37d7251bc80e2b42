// mungesdp: CLI entry point.
//
// This tool runs two WebRTC peer connections in one process and lets the
// operator drive their offer/answer exchange by hand, editing each session
// description before it is applied to both ends.
//
// It can be driven interactively from the terminal (default) or by a remote
// UI over a WebSocket control surface (-listen).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/1ureka/mungesdp/internal/agent"
	"github.com/1ureka/mungesdp/internal/app"
	"github.com/1ureka/mungesdp/internal/config"
	"github.com/1ureka/mungesdp/internal/control"
	"github.com/1ureka/mungesdp/internal/media"
	"github.com/1ureka/mungesdp/internal/negotiation"
	"github.com/1ureka/mungesdp/internal/session"
	"github.com/1ureka/mungesdp/internal/util"
)

var version = "dev"

func main() {
	// Root context, cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := config.Default()

	// CLI flags.
	listen := flag.String("listen", "", "Serve the WebSocket control surface on this address instead of prompting")
	stun := flag.String("stun", strings.Join(cfg.ICEServers, ","), "Comma separated STUN URLs (empty for host candidates only)")
	flag.DurationVar(&cfg.HeartbeatInterval, "heartbeat", cfg.HeartbeatInterval, "Data channel counter interval")
	flag.StringVar(&cfg.ChannelLabel, "label", cfg.ChannelLabel, "Label of the initiator's data channel")
	flag.BoolVar(&cfg.Offer.ReceiveAudio, "recvAudio", cfg.Offer.ReceiveAudio, "Offer to receive audio")
	flag.BoolVar(&cfg.Offer.ReceiveVideo, "recvVideo", cfg.Offer.ReceiveVideo, "Offer to receive video")
	flag.BoolVar(&cfg.StrictValidation, "strict", false, "Reject edited descriptions that do not parse before applying them")
	flag.BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")
	flag.Parse()

	cfg.ICEServers = splitList(*stun)
	if *listen != "" {
		cfg.Mode = config.ModeControl
		cfg.ListenAddr = *listen
	}

	if cfg.Debug {
		util.EnableDebug()
	}

	if err := cfg.Validate(); err != nil {
		util.LogError("invalid configuration: %v", err)
		os.Exit(1)
	}

	pterm.Info.Println(fmt.Sprintf("mungesdp v%s", version))
	pterm.Println()

	factory, err := agent.NewPionFactory(cfg)
	if err != nil {
		util.LogError("failed to set up WebRTC: %v", err)
		os.Exit(1)
	}

	s := app.NewSession(ctx, cfg, factory, media.NewSynthetic())
	defer s.Close()

	util.StartStatsReporter(ctx, 10*time.Second)

	switch cfg.Mode {
	case config.ModeControl:
		runControl(ctx, s, cfg.ListenAddr)
	default:
		runInteractive(ctx, s)
	}

	util.LogInfo("bye")
}

// ---------------------------------------------------------------------------
// Run modes
// ---------------------------------------------------------------------------

// runControl serves the WebSocket control surface until ctx is cancelled.
func runControl(ctx context.Context, s *app.Session, addr string) {
	srv := control.NewServer(s)
	bound, err := srv.Start(addr)
	if err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
	defer srv.Close()

	util.LogSuccess("control surface listening on ws://%s/ws", bound)
	<-ctx.Done()
}

const (
	optAcquire     = "Acquire media"
	optConnect     = "Create connections"
	optCreateOffer = "Create offer"
	optApplyOffer  = "Apply offer"
	optCreateAns   = "Create answer"
	optApplyAns    = "Apply answer"
	optHangup      = "Hang up"
	optQuit        = "Quit"
)

// runInteractive prompts for one action at a time until the operator quits
// or ctx is cancelled.
func runInteractive(ctx context.Context, s *app.Session) {
	for ctx.Err() == nil {
		snap, err := s.Snapshot(ctx)
		if err != nil {
			return
		}

		choice, err := pterm.DefaultInteractiveSelect.
			WithOptions([]string{optAcquire, optConnect, optCreateOffer, optApplyOffer, optCreateAns, optApplyAns, optHangup, optQuit}).
			WithDefaultText(fmt.Sprintf("State: %s, choose an action", snap.State)).
			Show()
		if err != nil || choice == optQuit {
			return
		}
		pterm.Println()

		report(runAction(ctx, s, snap, choice))
	}
}

func runAction(ctx context.Context, s *app.Session, snap negotiation.Snapshot, choice string) error {
	switch choice {
	case optAcquire:
		sel, err := askSelection(ctx, s)
		if err != nil {
			return err
		}
		return s.AcquireMedia(ctx, sel)

	case optConnect:
		return s.CreateConnections(ctx)

	case optCreateOffer:
		text, err := s.CreateOffer(ctx)
		if err == nil {
			showDescription("Offer", text)
		}
		return err

	case optApplyOffer:
		return s.ApplyOffer(ctx, editDescription("Offer", snap.Offer))

	case optCreateAns:
		text, err := s.CreateAnswer(ctx)
		if err == nil {
			showDescription("Answer", text)
		}
		return err

	case optApplyAns:
		return s.ApplyAnswer(ctx, editDescription("Answer", snap.Answer))

	case optHangup:
		return s.Hangup(ctx)
	}
	return nil
}

// report prints the outcome of an action. Nothing here is fatal: the
// operator fixes the input and picks the action again.
func report(err error) {
	var (
		derr *media.DeviceError
		verr *session.ValidationError
	)
	switch {
	case err == nil:
	case errors.As(err, &derr):
		pterm.Error.Println(err.Error())
	case errors.As(err, &verr):
		util.LogWarning("%v", err)
	case errors.Is(err, negotiation.ErrInvalidTransition), errors.Is(err, negotiation.ErrClosed):
		util.LogWarning("%v", err)
	default:
		util.LogError("%v", err)
	}
	pterm.Println()
}

// ---------------------------------------------------------------------------
// Helper Functions
// ---------------------------------------------------------------------------

// splitList turns a comma separated flag value into its non-empty items.
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// askSelection lets the operator pick a device per kind when there is a choice.
func askSelection(ctx context.Context, s *app.Session) (media.Selection, error) {
	devices, err := s.Devices(ctx)
	if err != nil {
		return media.Selection{}, err
	}
	audio, video := media.Options(devices)

	return media.Selection{
		AudioID: askDevice("Audio source", audio),
		VideoID: askDevice("Video source", video),
	}, nil
}

func askDevice(prompt string, devices []media.Device) string {
	if len(devices) < 2 {
		return ""
	}

	labels := make([]string, len(devices))
	for i, d := range devices {
		labels[i] = d.Label
	}

	choice, _ := pterm.DefaultInteractiveSelect.
		WithOptions(labels).
		WithDefaultText(prompt).
		Show()

	for _, d := range devices {
		if d.Label == choice {
			return d.ID
		}
	}
	return ""
}

func showDescription(title, text string) {
	pterm.DefaultSection.Println(title)
	pterm.Println(text)
}

// editDescription opens the text region for editing. A disabled region is
// submitted unchanged so the coordinator can reject the action.
func editDescription(title string, region negotiation.Region) string {
	if !region.Enabled {
		return region.Text
	}

	text, _ := pterm.DefaultInteractiveTextInput.
		WithMultiLine(true).
		WithDefaultText(title + " (edit, then Tab to submit)").
		WithDefaultValue(region.Text).
		Show()
	pterm.Println()
	return text
}
