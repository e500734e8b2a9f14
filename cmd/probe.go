package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/BioHazard786/dogfight/internal/config"
	"github.com/BioHazard786/dogfight/internal/logging"
	"github.com/BioHazard786/dogfight/internal/probe"
	"github.com/BioHazard786/dogfight/internal/ui"
)

// errProbeFailed is returned when the probe ran but some guest failed.
var errProbeFailed = errors.New("relay probe failed")

var (
	probeOpts     config.ProbeOptions
	signalingOnly bool
	plainOutput   bool
	probeLogLevel string
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check a relay end to end with a host and guests",
	Long: `probe connects a host and one or more guests to a relay, opens a room,
negotiates a WebRTC data channel between the host and every guest through
the relay, measures a ping round trip, and checks that guests are told when
the host leaves.`,
	Example: `  dogfight probe
  dogfight probe --url wss://relay.example.com/pocket-dogfight-ws --guests 3
  dogfight probe --signaling-only --plain`,
	RunE: runProbe,
}

func init() {
	flags := probeCmd.Flags()
	flags.StringVarP(&probeOpts.URL, "url", "u", "", "relay WebSocket URL (env: DOGFIGHT_RELAY_URL)")
	flags.StringVarP(&probeOpts.Room, "room", "r", "", "open this room code instead of a generated one")
	flags.IntVarP(&probeOpts.Guests, "guests", "g", 0, fmt.Sprintf("number of guests, 1 to %d", config.MaxProbeGuests))
	flags.DurationVarP(&probeOpts.Timeout, "timeout", "t", 0, "overall probe timeout")
	flags.StringSliceVar(&probeOpts.STUN, "stun", nil, "STUN server URLs")
	flags.BoolVar(&signalingOnly, "signaling-only", false, "check routing only, without WebRTC")
	flags.BoolVar(&plainOutput, "plain", false, "disable the live view")
	flags.StringVar(&probeLogLevel, "log-level", "error", "debug, info, warn or error")

	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadProbe(probeOpts)
	if err != nil {
		return err
	}
	logger := logging.Init(probeLogLevel, "text")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	opts := probe.Options{
		URL:           cfg.URL,
		RoomCode:      cfg.Room,
		Guests:        cfg.Guests,
		Timeout:       cfg.Timeout,
		STUN:          cfg.STUN,
		SignalingOnly: signalingOnly,
		Logger:        logger,
	}

	tty := term.IsTerminal(os.Stdout.Fd())
	stopView := func() {}
	switch {
	case tty && !plainOutput:
		view := ui.NewProbeUI(cfg.URL)
		opts.OnUpdate = func(u probe.Update) {
			view.Update(statusFromUpdate(u))
		}
		view.Start()
		stopView = view.Stop
	case tty:
		stopView = ui.RunConnectionSpinner(fmt.Sprintf("Probing %s with %d guest(s)...", cfg.URL, cfg.Guests))
	default:
		ui.PrintInfof("Probing %s with %d guest(s)", cfg.URL, cfg.Guests)
	}

	result, err := probe.Run(ctx, opts)
	stopView()
	if err != nil {
		return err
	}

	printProbeResult(result)
	if !result.OK() {
		return errProbeFailed
	}
	return nil
}

func statusFromUpdate(u probe.Update) ui.PeerStatus {
	status := ui.PeerStatus{
		Peer:  u.Peer,
		Role:  u.Role,
		State: string(u.State),
		RTT:   u.RTT,
	}
	if u.Err != nil {
		status.Err = u.Err.Error()
	}
	return status
}

func printProbeResult(r *probe.Result) {
	mode := "webrtc"
	if r.SignalingOnly {
		mode = "signaling only"
	}

	rows := make([]ui.ProbeResultRow, 0, len(r.Guests))
	for _, g := range r.Guests {
		row := ui.ProbeResultRow{
			Peer:         g.PeerID,
			Joined:       g.Joined,
			Connected:    g.Connected,
			SawHostLeave: g.SawHostLeave,
			RTT:          g.RTT,
		}
		if g.Err != nil {
			row.Err = g.Err.Error()
		}
		rows = append(rows, row)
	}

	fmt.Println()
	fmt.Println(ui.ProbeSummaryView(ui.ProbeSummary{
		URL:      r.URL,
		RoomCode: r.RoomCode,
		HostID:   r.HostID,
		Mode:     mode,
		Elapsed:  r.Elapsed.Round(time.Millisecond),
		OK:       r.OK(),
	}))
	fmt.Println(ui.ProbeTableView(rows))
}
