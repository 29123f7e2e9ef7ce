package shutdown

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"sealchat/pkg/logger"
)

type crashDump struct {
	Time   string `json:"time"`
	Reason string `json:"reason"`
	Error  string `json:"error,omitempty"`
	Stack  string `json:"stack"`
}

// Abort logs a fatal startup error, writes a crash dump next to the DB
// path and exits. The delay gives log sinks time to flush.
func Abort(contextMsg string, err error, dbPath string, delaySeconds ...int) {
	delay := 5
	if len(delaySeconds) > 0 && delaySeconds[0] >= 0 {
		delay = delaySeconds[0]
	}
	logger.Error("startup_fatal", "msg", contextMsg, "error", err)
	path, derr := writeCrashDump(dbPath, contextMsg, err)
	if derr != nil {
		logger.Error("crash_dump_write_failed", "error", derr)
		fmt.Fprintf(os.Stderr, "FAILED TO WRITE CRASH DUMP: %v\n", derr)
	} else {
		logger.Info("wrote_crash_dump", "path", path)
		fmt.Fprintf(os.Stderr, "CRASH DUMP WRITTEN: %s\n", path)
	}
	for i := delay; i > 0; i-- {
		logger.Info("exiting_in_seconds", "seconds", i)
		time.Sleep(1 * time.Second)
	}
	os.Exit(2)
}

func writeCrashDump(dbPath, reason string, cause error) (string, error) {
	dir := filepath.Join(dbPath, "state", "abort")
	if dbPath == "" {
		dir = "abort"
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	buf := make([]byte, 1<<20)
	n := runtime.Stack(buf, true)
	d := crashDump{
		Time:   time.Now().UTC().Format(time.RFC3339Nano),
		Reason: reason,
		Stack:  string(buf[:n]),
	}
	if cause != nil {
		d.Error = cause.Error()
	}
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("crash-%d.json", time.Now().UnixNano()))
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// SetupSignalHandler installs handlers for SIGINT/SIGTERM and SIGPIPE and
// returns a cancellable context. The returned context is cancelled when
// any of the watched signals arrives.
func SetupSignalHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigc
		logger.Info("signal_received", "signal", s.String(), "msg", "shutdown requested")
		cancel()
	}()

	// SIGPIPE gets a goroutine stack dump to aid diagnostics
	sigpipe := make(chan os.Signal, 1)
	signal.Notify(sigpipe, syscall.SIGPIPE)
	go func() {
		s := <-sigpipe
		buf := make([]byte, 1<<20)
		n := runtime.Stack(buf, true)
		logger.Info("signal_received", "signal", s.String(), "dump", string(buf[:n]))
		cancel()
	}()

	return ctx, cancel
}
