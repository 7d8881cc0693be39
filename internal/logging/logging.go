// Package logging hands out per-domain loggers that share one level filter.
//
// Messages are expected to start with a level tag, e.g.
//
//	log.Printf("[ERROR] Cannot dispatch %q: %s", tag, err)
//
// Lines without a tag are always written.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/hashicorp/logutils"
)

// Log domains used across the daemon.
const (
	App        = "App"
	Ledger     = "Ledger"
	Queue      = "Queue"
	Scanner    = "Scanner"
	Settings   = "Settings"
	Permission = "Permission"
	Notify     = "Notify"
	Realtime   = "Realtime"
	Store      = "Store"
	API        = "API"
)

// Levels in increasing severity.
var Levels = []logutils.LogLevel{"TRACE", "DEBUG", "INFO", "WARN", "ERROR"}

var (
	mu     sync.Mutex
	filter = &logutils.LevelFilter{
		Levels:   Levels,
		MinLevel: "INFO",
		Writer:   os.Stderr,
	}
)

// Configure sets the minimum level and the destination for every logger.
// Unknown levels are rejected.
func Configure(level string, w io.Writer) error {
	lvl := logutils.LogLevel(strings.ToUpper(level))
	known := false
	for _, l := range Levels {
		if l == lvl {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown log level %q", level)
	}

	mu.Lock()
	defer mu.Unlock()
	filter.SetMinLevel(lvl)
	if w != nil {
		filter.Writer = w
	}
	return nil
}

// GetLogger returns a logger for the given domain.
func GetLogger(domain string) *log.Logger {
	return log.New(writer{}, domain+" ", log.Ldate|log.Ltime)
}

// writer forwards to the shared filter under the package lock, so
// Configure can swap the destination at any time.
type writer struct{}

func (writer) Write(p []byte) (int, error) {
	mu.Lock()
	defer mu.Unlock()
	return filter.Write(p)
}
