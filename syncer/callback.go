package syncer

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	atomicfile "github.com/natefinch/atomic"
	"github.com/pkg/errors"

	"github.com/mscherer/backintime/logging"
)

// Severity is the single digit written as the first line of the message
// file: 0 for an ordinary informational/change line, 1 for an error.
type Severity int

const (
	SeverityInfo  Severity = 0
	SeverityError Severity = 1
)

// Flags is the mutable two-element classification state threaded through a
// whole syncer run: index 0 is set once any error line has been seen, index
// 1 once any change line has been seen. It is exported as a struct rather
// than a raw array so callers can read it without knowing the original
// vector's field order.
type Flags struct {
	ErrorSeen  bool
	ChangeSeen bool
}

var rsyncErrorPattern = regexp.MustCompile(`^rsync:`)

// isTransferCode reports whether an itemize-changes code's first field
// indicates an actual file transfer happened, as opposed to a
// directory-metadata-only update.
func isTransferCode(itemization string) bool {
	if len(itemization) == 0 {
		return false
	}

	switch itemization[0] {
	case '<', '>', 'h', 's':
		return true
	case 'c':
		return len(itemization) > 1 && itemization[1] != 'd'
	default:
		return false
	}
}

func isDirMetadataCode(itemization string) bool {
	return strings.HasPrefix(itemization, "cd") || strings.HasPrefix(itemization, ".d")
}

const sentinelPrefix = "BACKINTIME: "

// Sink is where a Callback writes the two run-scoped artifacts spec.md
// §4.F describes: the message file (always overwritten atomically, always
// exactly two lines) and the log file (appended to, one line per call).
type Sink struct {
	MessagePath string
	LogPath     string

	mu     sync.Mutex
	logFile io.WriteCloser
}

// OpenSink wraps logFile, which the caller has already opened for
// appending. The message file is created lazily on first write, since it is
// always replaced wholesale rather than appended to.
func OpenSink(messagePath, logPath string, logFile io.WriteCloser) *Sink {
	return &Sink{MessagePath: messagePath, LogPath: logPath, logFile: logFile}
}

// Close releases the underlying log file handle.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.logFile == nil {
		return nil
	}

	return s.logFile.Close()
}

func (s *Sink) writeMessage(severity Severity, text string) error {
	body := fmt.Sprintf("%d\n%s", severity, text)
	return atomicfile.WriteFile(s.MessagePath, strings.NewReader(body))
}

func (s *Sink) appendLog(level byte, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.logFile == nil {
		return nil
	}

	if _, err := fmt.Fprintf(s.logFile, "[%c] %s\n", level, text); err != nil {
		return err
	}

	if f, ok := s.logFile.(interface{ Sync() error }); ok {
		return f.Sync()
	}

	return nil
}

// Callback implements spec.md §4.F: classify one line of syncer stdout,
// update Flags, and write to both the message file and the log file.
//
// Every line first gets a provisional message-file write of
// "Take snapshot (rsync: <line>)" tagged severity 0; classification then
// overwrites that same file with the line's final message, on every branch
// (error, change, directory metadata and plain info). This two-phase
// sequencing matches the original tool's exec_rsync callback, which always
// writes the provisional message before deciding whether the line warrants
// a more specific one.
func Callback(sink *Sink, log logging.Logger, flags *Flags, line string) error {
	provisional := fmt.Sprintf("Take snapshot (rsync: %s)", line)
	if err := sink.writeMessage(SeverityInfo, provisional); err != nil {
		return errors.Wrap(err, "writing provisional message")
	}

	switch {
	case rsyncErrorPattern.MatchString(line):
		flags.ErrorSeen = true

		text := "Error: " + line
		if err := sink.writeMessage(SeverityError, text); err != nil {
			return errors.Wrap(err, "writing error message")
		}

		log.Error(text)

		return sink.appendLog('E', text)

	case strings.HasPrefix(line, sentinelPrefix):
		itemization := strings.TrimPrefix(line, sentinelPrefix)

		switch {
		case isTransferCode(itemization):
			flags.ChangeSeen = true

			if err := sink.writeMessage(SeverityInfo, itemization); err != nil {
				return errors.Wrap(err, "writing change message")
			}

			log.Infof("change: %s", itemization)

			return sink.appendLog('C', itemization)

		case isDirMetadataCode(itemization):
			if err := sink.writeMessage(SeverityInfo, itemization); err != nil {
				return errors.Wrap(err, "writing metadata message")
			}

			log.Debugw("dir metadata", "item", itemization)

			return sink.appendLog('I', itemization)

		default:
			if err := sink.writeMessage(SeverityInfo, itemization); err != nil {
				return errors.Wrap(err, "writing info message")
			}

			log.Debugw("info", "item", itemization)

			return sink.appendLog('I', itemization)
		}

	default:
		if err := sink.writeMessage(SeverityInfo, line); err != nil {
			return errors.Wrap(err, "writing info message")
		}

		log.Debugw("info", "line", line)

		return sink.appendLog('I', line)
	}
}

// StreamLines reads newline-delimited text from r, invoking Callback for
// each line in arrival order. It returns the first error encountered,
// stopping the stream.
func StreamLines(r io.Reader, sink *Sink, log logging.Logger, flags *Flags) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		if err := Callback(sink, log, flags, scanner.Text()); err != nil {
			return err
		}
	}

	return scanner.Err()
}
