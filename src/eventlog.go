package imogen

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/lestrrat-go/strftime"
)

/*------------------------------------------------------------------
 *
 * Purpose:	Save incoming and outgoing MIDI activity to a CSV log,
 *		the harmonizer's descendant of the packet logger: instead
 *		of exploded AX.25/APRS fields, each row is one TimedEvent
 *		crossing the engine boundary. Daily file names are built
 *		from a user-supplied strftime pattern rather than a fixed
 *		layout, so the operator can match whatever rotation scheme
 *		the rest of their logging already uses.
 *
 *------------------------------------------------------------------*/

// EventLog appends TimedEvents to a CSV file, rolling to a new file
// whenever the formatted name changes.
type EventLog struct {
	dir     string
	pattern string

	fp       *os.File
	openName string
}

// NewEventLog prepares a logger that writes into dir, naming each file by
// formatting pattern (an strftime layout, e.g. "imogen-%Y-%m-%d.csv")
// against the current time. An empty dir disables logging; Write becomes
// a no-op.
func NewEventLog(dir, pattern string) (*EventLog, error) {
	if dir == "" {
		return &EventLog{}, nil
	}

	var stat, statErr = os.Stat(dir)
	if statErr != nil {
		if mkErr := os.MkdirAll(dir, 0755); mkErr != nil {
			return nil, fmt.Errorf("imogen: creating event log directory %s: %w", dir, mkErr)
		}
	} else if !stat.IsDir() {
		return nil, fmt.Errorf("imogen: event log location %s is not a directory", dir)
	}

	return &EventLog{dir: dir, pattern: pattern}, nil
}

// Write appends one timed event, rotating to a new daily file if the
// formatted name has changed since the last call.
func (l *EventLog) Write(direction string, e TimedEvent) error {
	if l.dir == "" {
		return nil
	}

	var now = time.Now()

	var name, err = strftime.Format(l.pattern, now)
	if err != nil {
		return fmt.Errorf("imogen: formatting event log name: %w", err)
	}

	if l.fp != nil && name != l.openName {
		if closeErr := l.Close(); closeErr != nil {
			return closeErr
		}
	}

	if l.fp == nil {
		var fullPath = filepath.Join(l.dir, name)

		var _, statErr = os.Stat(fullPath)
		var alreadyThere = statErr == nil

		var f, openErr = os.OpenFile(fullPath, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0644)
		if openErr != nil {
			return fmt.Errorf("imogen: opening event log %s: %w", fullPath, openErr)
		}

		l.fp = f
		l.openName = name

		if !alreadyThere {
			fmt.Fprintln(l.fp, "utime,isotime,direction,kind,note,velocity,value,controller,ccvalue")
		}
	}

	var w = csv.NewWriter(l.fp)
	var writeErr = w.Write([]string{
		strconv.FormatInt(now.Unix(), 10),
		now.UTC().Format("2006-01-02T15:04:05Z"),
		direction,
		strconv.Itoa(int(e.Kind)),
		strconv.Itoa(int(e.Note)),
		strconv.Itoa(int(e.Velocity)),
		strconv.Itoa(e.Value),
		strconv.Itoa(int(e.Controller)),
		strconv.Itoa(int(e.CCValue)),
	})
	if writeErr != nil {
		return fmt.Errorf("imogen: writing event log row: %w", writeErr)
	}

	w.Flush()

	return w.Error()
}

// Close closes the currently open log file, if any.
func (l *EventLog) Close() error {
	if l.fp == nil {
		return nil
	}

	var err = l.fp.Close()
	l.fp = nil
	l.openName = ""

	return err
}
