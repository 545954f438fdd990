package telnet

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"time"
)

// CapabilitySnapshot is the immutable result of probing a connected
// terminal's rendering abilities. It is computed once during Initialize and
// only read afterwards; the content adapter and session logic consult it
// for every outbound write.
type CapabilitySnapshot struct {
	ANSI         bool   // terminal honors ANSI escape sequences
	CP437        bool   // terminal renders raw code page 437 bytes
	Modern       bool   // modern emulator (UTF-8, VT220+) vs legacy BBS client
	TerminalType string // classification from device attributes or TTYPE
	Client       string // client software label from TTYPE, if reported
}

// legacyClients are TTYPE fingerprints of BBS terminal programs that render
// CP437 natively. Anything not on this list is assumed to be a modern
// emulator that wants Unicode.
var legacyClients = []string{
	"syncterm",
	"netrunner",
	"qodem",
	"magiterm",
	"mtelnet",
	"ansi-bbs",
}

const (
	dsrProbe = "\x1b[6n" // Device Status Report; reply ESC[row;colR
	daProbe  = "\x1b[c"  // Primary Device Attributes; reply ESC[?...c
)

// prober runs the two-step capability probe: an ANSI DSR probe and a
// device-attributes probe, each bounded by its own short timeout. The peer
// never responding is a normal outcome and must not stall the connection
// beyond the sum of the two windows.
type prober struct {
	neg     *Negotiator
	out     *Writer
	logger  *slog.Logger
	timeout time.Duration
}

// run returns the capability snapshot for the connection. Every failure
// path (timeout, I/O error, unparseable reply) falls back to the safest
// rendering choice for an unknown client: ANSI-capable, modern, no CP437.
func (p *prober) run(ctx context.Context) CapabilitySnapshot {
	snap := CapabilitySnapshot{
		ANSI:   true,
		Modern: true,
	}

	// Step 1: ANSI probe. A reply containing '[' and 'R' confirms ANSI;
	// silence also leaves it enabled. Modern terminals routinely ignore
	// DSR over telnet, and treating silence as "no ANSI" would degrade
	// exactly the clients that render it best.
	reply, ok := p.collect(ctx, dsrProbe, func(buf []byte) bool {
		return bytes.IndexByte(buf, 'R') >= 0
	})
	if !ok {
		return snap
	}
	if strings.Contains(reply, "[") && strings.Contains(reply, "R") {
		snap.ANSI = true
		p.logger.Debug("ANSI probe reply", "len", len(reply))
	} else {
		p.logger.Debug("ANSI probe silent, assuming capable")
	}

	// Step 2: device attributes, for terminal classification.
	reply, ok = p.collect(ctx, daProbe, func(buf []byte) bool {
		return bytes.IndexByte(buf, 'c') >= 0
	})
	if !ok {
		return snap
	}
	switch {
	case strings.Contains(reply, "?62;") || strings.Contains(reply, "?63;"):
		snap.TerminalType = "VT220+"
		snap.Modern = true
	case strings.Contains(reply, "?1;") || strings.Contains(reply, "?6"):
		snap.TerminalType = "VT100"
	}

	// Step 3: client fingerprinting from the negotiated terminal type.
	// Known legacy BBS clients want raw CP437; everything else gets
	// Unicode conversion on output.
	ttype := p.neg.TerminalType()
	snap.Client = ttype
	if isLegacyClient(ttype) {
		snap.CP437 = true
		snap.Modern = false
	}

	if snap.TerminalType == "" {
		if ttype != "" {
			snap.TerminalType = ttype
		} else {
			snap.TerminalType = "ANSI"
		}
	}

	p.logger.Debug("Capability probe complete",
		"ansi", snap.ANSI, "cp437", snap.CP437, "modern", snap.Modern,
		"terminal", snap.TerminalType, "client", snap.Client)

	return snap
}

// collect writes a probe sequence and accumulates reply bytes until done
// reports a complete reply or the window closes. ok=false means the
// connection died; a timeout returns whatever arrived with ok=true.
func (p *prober) collect(ctx context.Context, probe string, done func([]byte) bool) (string, bool) {
	if _, err := p.out.Write([]byte(probe)); err != nil {
		return "", false
	}

	var buf []byte
	deadline := time.Now().Add(p.timeout)
	for {
		remain := time.Until(deadline)
		if remain <= 0 {
			return string(buf), true
		}
		b, timedOut, ok := p.neg.NextTimeout(ctx, remain)
		if !ok {
			return string(buf), false
		}
		if timedOut {
			return string(buf), true
		}
		buf = append(buf, b)
		if done(buf) {
			return string(buf), true
		}
		if len(buf) >= 32 {
			return string(buf), true
		}
	}
}

func isLegacyClient(ttype string) bool {
	t := strings.ToLower(ttype)
	if t == "" {
		return false
	}
	for _, name := range legacyClients {
		if strings.Contains(t, name) {
			return true
		}
	}
	return false
}
