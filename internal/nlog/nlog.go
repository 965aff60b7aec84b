// Package nlog is the dsebus logger: timestamped, severity-leveled writes
// to stderr or to the SIMBUS_TRACEFILE sink, each line written as soon as
// it is formatted.
/*
 * Copyright (c) 2024, dsebus authors.
 */
package nlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

type severity int

const (
	sevInfo severity = iota
	sevWarn
	sevErr
)

const maxLineSize = 2 * 1024

// one output writer guarded by mw; each line is formatted in its own
// strings.Builder and written under the lock. Unlike the teacher's nlog
// (cmn/nlog), we don't rotate between multiple buffers for non-blocking
// handoff -- our log volume is cycles/sec, not requests/sec, so a direct
// write under a mutex is plenty.
type nlog struct {
	mw  sync.Mutex
	out io.Writer
}

var (
	std     = &nlog{out: os.Stderr}
	verbose bool
)

// SetOutput redirects all subsequent writes, e.g. to SIMBUS_TRACEFILE.
func SetOutput(w io.Writer) {
	std.mw.Lock()
	std.out = w
	std.mw.Unlock()
}

// SetVerbose toggles sevInfo emission (maps to --logger=1..5, see cmd/*).
func SetVerbose(v bool) { verbose = v }

func InfoDepth(depth int, args ...any) { log(sevInfo, depth+1, "", args...) }
func Infoln(args ...any)               { log(sevInfo, 1, "", args...) }
func Infof(format string, args ...any) { log(sevInfo, 1, format, args...) }

func Warningln(args ...any)               { log(sevWarn, 1, "", args...) }
func Warningf(format string, args ...any) { log(sevWarn, 1, format, args...) }

func ErrorDepth(depth int, args ...any) { log(sevErr, depth+1, "", args...) }
func Errorln(args ...any)               { log(sevErr, 1, "", args...) }
func Errorf(format string, args ...any) { log(sevErr, 1, format, args...) }

func log(sev severity, depth int, format string, args ...any) {
	if sev == sevInfo && !verbose {
		return
	}
	var b strings.Builder
	formatHdr(sev, depth+1, &b)
	if format == "" {
		fmt.Fprintln(&b, args...)
	} else {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}
	line := b.String()
	if len(line) > maxLineSize {
		line = line[:maxLineSize]
	}

	std.mw.Lock()
	io.WriteString(std.out, line)
	std.mw.Unlock()
}

func formatHdr(s severity, depth int, b *strings.Builder) {
	const char = "IWE"
	_, fn, ln, ok := runtime.Caller(2 + depth)
	b.WriteByte(char[s])
	b.WriteByte(' ')
	b.WriteString(time.Now().Format("15:04:05.000000"))
	b.WriteByte(' ')
	if ok {
		if idx := strings.LastIndexByte(fn, filepath.Separator); idx >= 0 {
			fn = fn[idx+1:]
		}
		b.WriteString(fn)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(ln))
		b.WriteByte(' ')
	}
}

// Flush is a no-op placeholder kept for symmetry with the teacher's nlog
// API; our writer has no internal buffering left to drain.
func Flush(...bool) {}
