// Command rtpmidid runs a single RTP-MIDI/AppleMIDI backend instance as a
// standalone daemon: it parses a flag set describing one instance plus the
// backend-global mDNS options, starts the backend, and polls it until
// interrupted, printing every decoded channel event to stdout.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/mattjbishop/rtpmidi/backend"
)

// pollInterval is the fixed socket-drain cadence used in the absence of a
// real readiness multiplexer (see DESIGN.md's "No managed-fd poller" note).
// It is independent of Backend.Interval, which only paces the slower
// announce/sync/re-invite service tick.
const pollInterval = 2 * time.Millisecond

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "rtpmidid:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		name          = flag.String("name", "rtpmidi", "instance name, used as the mDNS instance label")
		mode          = flag.String("mode", "", "instance mode: direct or apple (required)")
		bind          = flag.String("bind", "", "local bind address, e.g. 0.0.0.0:5004")
		ssrc          = flag.String("ssrc", "", "SSRC as decimal or 0x-prefixed hex; random if unset")
		peers         = flag.StringArray("peer", nil, "direct-mode peer address host:port, repeatable")
		learn         = flag.Bool("learn", false, "direct mode: learn peers from inbound traffic")
		invites       = flag.StringArray("invite", nil, "apple mode: mDNS session-name pattern to invite, repeatable")
		join          = flag.String("join", "", "apple mode: session-name pattern this instance accepts invites from")
		epnTx         = flag.String("epn-tx", "long", "RPN/NRPN transmit form: short or long")
		noteOff       = flag.Bool("note-off", false, "surface NoteOff events as-is instead of folding to Note/0")
		mdnsName      = flag.String("mdns-name", "", "backend-global mDNS hostname label; defaults to the OS hostname")
		mdnsIfaces    = flag.StringArray("mdns-interface", nil, "restrict mDNS to this interface name, repeatable")
		detect        = flag.Bool("detect", true, "log every decoded inbound channel event")
		logLevel      = flag.String("log-level", "info", "log level: debug, info, warn, error")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		return fmt.Errorf("invalid -log-level %q: %w", *logLevel, err)
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()

	b := backend.New(log)

	if *mdnsName != "" {
		if err := b.Configure("mdns-name", *mdnsName); err != nil {
			return err
		}
	}
	for _, i := range *mdnsIfaces {
		if err := b.Configure("mdns-interface", i); err != nil {
			return err
		}
	}
	if err := b.Configure("detect", boolFlag(*detect)); err != nil {
		return err
	}

	inst := b.AddInstance(*name)
	if err := configureInstance(inst, *mode, *bind, *ssrc, *peers, *learn, *invites, *join, *epnTx, *noteOff); err != nil {
		return err
	}

	if err := b.Start(); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer b.Shutdown()

	log.Info().Str("name", *name).Str("mode", *mode).Msg("rtpmidid: backend started")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			log.Info().Msg("rtpmidid: shutting down")
			return nil
		case <-ticker.C:
			b.Process(func(ev backend.Event) {
				fmt.Printf("%s ch%d %s control=%d value=%.4f\n", ev.Instance.Name, ev.Channel, ev.Type, ev.Control, ev.Value)
			})
		}
	}
}

func configureInstance(inst *backend.Instance, mode, bind, ssrc string, peers []string, learn bool, invites []string, join, epnTx string, noteOff bool) error {
	if mode == "" {
		return fmt.Errorf("-mode is required (direct or apple)")
	}
	if err := inst.ConfigureInstance("mode", mode); err != nil {
		return err
	}
	if bind != "" {
		if err := inst.ConfigureInstance("bind", bind); err != nil {
			return err
		}
	}
	if ssrc != "" {
		if err := inst.ConfigureInstance("ssrc", ssrc); err != nil {
			return err
		}
	}
	for _, p := range peers {
		if err := inst.ConfigureInstance("peer", p); err != nil {
			return err
		}
	}
	if learn {
		if err := inst.ConfigureInstance("learn", "true"); err != nil {
			return err
		}
	}
	for _, pat := range invites {
		if err := inst.ConfigureInstance("invite", pat); err != nil {
			return err
		}
	}
	if join != "" {
		if err := inst.ConfigureInstance("join", join); err != nil {
			return err
		}
	}
	if err := inst.ConfigureInstance("epn-tx", epnTx); err != nil {
		return err
	}
	if noteOff {
		if err := inst.ConfigureInstance("note-off", "true"); err != nil {
			return err
		}
	}
	return nil
}

func boolFlag(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
