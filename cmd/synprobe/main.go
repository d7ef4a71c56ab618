// Command synprobe drives a raw link-layer TCP SYN scan against a stream of
// targets read from stdin, emitting one JSON scan result per line on
// stdout (spec.md §1, §6).
package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"

	"github.com/eightbitlabs/synprobe/internal/config"
	"github.com/eightbitlabs/synprobe/internal/endpoint"
	"github.com/eightbitlabs/synprobe/internal/handshake"
	"github.com/eightbitlabs/synprobe/internal/ingest"
	"github.com/eightbitlabs/synprobe/internal/resultstream"
	"github.com/eightbitlabs/synprobe/internal/scanner"
)

type cliArgs struct {
	Interface  string `arg:"required,--interface" help:"network interface to bind the raw socket to"`
	SrcMAC     string `arg:"required,--src-mac" help:"source ethernet address"`
	DstMAC     string `arg:"required,--dst-mac" help:"destination ethernet address (typically the gateway)"`
	SrcIPv4    string `arg:"--src-ipv4" help:"source IPv4 address, required if any target is IPv4"`
	SrcIPv6    string `arg:"--src-ipv6" help:"source IPv6 address, required if any target is IPv6"`
	SrcPort    uint16 `arg:"required,--src-port" help:"source TCP port used for every probe"`
	Handshakes string `arg:"required,--handshakes" help:"path to the handshake definition YAML file"`
	Verbose    bool   `arg:"-v,--verbose" help:"enable debug logging"`
}

func main() {
	var args cliArgs
	arg.MustParse(&args)

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if args.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	entry := logrus.NewEntry(log)

	cfg, err := config.Build(config.Args{
		SrcMAC:         args.SrcMAC,
		DstMAC:         args.DstMAC,
		SrcIPv4:        args.SrcIPv4,
		SrcIPv6:        args.SrcIPv6,
		SrcPort:        args.SrcPort,
		HandshakesFile: args.Handshakes,
	})
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	handshakes, err := handshake.Load(cfg.HandshakesFile)
	if err != nil {
		log.WithError(err).Fatal("loading handshakes")
	}
	log.WithField("count", len(handshakes)).Info("loaded handshakes")

	ep, err := endpoint.Open(args.Interface)
	if err != nil {
		log.WithError(err).Fatal("opening endpoint")
	}

	s := scanner.New(cfg, handshakes, ep, entry)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigc
		log.Info("shutting down")
		if err := s.Shutdown(); err != nil {
			log.WithError(err).Warn("shutdown")
		}
	}()

	targets, ingestErrs := ingest.Stream(os.Stdin)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for t := range targets {
			if err := config.Validate(cfg, t); err != nil {
				log.WithError(err).Warn("skipping target")
				continue
			}
			if err := s.ScanTarget(t); err != nil {
				log.WithError(err).Warn("scanning target")
			}
		}
		if err := <-ingestErrs; err != nil {
			log.WithError(err).Error("reading targets")
		}
	}()

	go func() {
		<-done
		// Linger so replies to the last probes can still arrive.
		time.Sleep(5 * time.Second)
		if err := s.Shutdown(); err != nil {
			log.WithError(err).Debug("shutdown after target stream ended")
		}
	}()

	if err := resultstream.Emit(os.Stdout, s.Results()); err != nil {
		log.WithError(err).Fatal("emitting results")
	}
}
