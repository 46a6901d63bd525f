package ffmpeg

import (
	"bufio"
	"bytes"
	"io"
	"regexp"
	"strconv"
	"time"

	"github.com/jmylchreest/streamsift/pkg/format"
)

// EventType classifies a parsed stderr event.
type EventType string

// Event types.
const (
	EventStart    EventType = "start"
	EventDuration EventType = "duration"
	EventProgress EventType = "progress"
	EventError    EventType = "error"
)

// Event is one structured observation from a running encoder.
type Event struct {
	Type     EventType
	Command  string        // EventStart
	Duration time.Duration // EventDuration
	Progress Progress      // EventProgress
	Message  string        // EventError
}

// Progress represents FFmpeg progress information.
type Progress struct {
	Frame      int64         `json:"frame"`
	FPS        float64       `json:"fps"`
	Bitrate    string        `json:"bitrate"`
	TotalSize  int64         `json:"total_size"` // kilobytes
	Time       time.Duration `json:"time"`
	Timemark   string        `json:"timemark"`
	Speed      float64       `json:"speed"`
	DupFrames  int64         `json:"dup_frames"`
	DropFrames int64         `json:"drop_frames"`
}

var (
	frameRe    = regexp.MustCompile(`frame=\s*(\d+)`)
	fpsRe      = regexp.MustCompile(`fps=\s*([\d.]+)`)
	bitrateRe  = regexp.MustCompile(`bitrate=\s*([\d.]+\s*\w+/s)`)
	sizeRe     = regexp.MustCompile(`size=\s*(\d+)`)
	timeRe     = regexp.MustCompile(`time=\s*(\d+:\d+:\d+\.\d+)`)
	speedRe    = regexp.MustCompile(`speed=\s*([\d.]+)x`)
	dupRe      = regexp.MustCompile(`dup=\s*(\d+)`)
	dropRe     = regexp.MustCompile(`drop=\s*(\d+)`)
	durationRe = regexp.MustCompile(`Duration:\s*(\d+:\d+:\d+\.\d+)`)
	errorRe    = regexp.MustCompile(`(?i)(\berror\b|invalid|no such file|server returned|conversion failed|not found|could not)`)
)

// maxStderrLineSize bounds a single stderr line. Longer lines stop parsing
// but the stream is still drained.
const maxStderrLineSize = 1 << 20

// ParseEvents reads encoder stderr until EOF and sends the events it
// recognises on out. Progress events are dropped when out is full; duration
// and error events are always delivered. tap, when non-nil, receives every
// raw line. r is always read to EOF, even when scanning fails, and the scan
// error is returned.
func ParseEvents(r io.Reader, out chan<- Event, tap func(line string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStderrLineSize)
	scanner.Split(scanStatLines)

	var progress Progress
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if tap != nil {
			tap(line)
		}

		if m := durationRe.FindStringSubmatch(line); len(m) > 1 {
			if secs, ok := format.Timemark(m[1]); ok {
				out <- Event{Type: EventDuration, Duration: time.Duration(secs * float64(time.Second))}
			}
			continue
		}

		if parseProgressLine(line, &progress) {
			select {
			case out <- Event{Type: EventProgress, Progress: progress}:
			default:
			}
			continue
		}

		if errorRe.MatchString(line) {
			out <- Event{Type: EventError, Message: line}
		}
	}

	err := scanner.Err()
	_, _ = io.Copy(io.Discard, r)
	return err
}

// parseProgressLine updates p from a stats line. It reports false when the
// line carries no timemark.
func parseProgressLine(line string, p *Progress) bool {
	m := timeRe.FindStringSubmatch(line)
	if len(m) < 2 {
		return false
	}
	p.Timemark = m[1]
	if secs, ok := format.Timemark(m[1]); ok {
		p.Time = time.Duration(secs * float64(time.Second))
	}

	if matches := frameRe.FindStringSubmatch(line); len(matches) > 1 {
		p.Frame, _ = strconv.ParseInt(matches[1], 10, 64)
	}
	if matches := fpsRe.FindStringSubmatch(line); len(matches) > 1 {
		p.FPS, _ = strconv.ParseFloat(matches[1], 64)
	}
	if matches := bitrateRe.FindStringSubmatch(line); len(matches) > 1 {
		p.Bitrate = matches[1]
	}
	if matches := sizeRe.FindStringSubmatch(line); len(matches) > 1 {
		p.TotalSize, _ = strconv.ParseInt(matches[1], 10, 64)
	}
	if matches := speedRe.FindStringSubmatch(line); len(matches) > 1 {
		p.Speed, _ = strconv.ParseFloat(matches[1], 64)
	}
	if matches := dupRe.FindStringSubmatch(line); len(matches) > 1 {
		p.DupFrames, _ = strconv.ParseInt(matches[1], 10, 64)
	}
	if matches := dropRe.FindStringSubmatch(line); len(matches) > 1 {
		p.DropFrames, _ = strconv.ParseInt(matches[1], 10, 64)
	}
	return true
}

// scanStatLines splits on either \n or \r. FFmpeg rewrites its stats line
// in place with carriage returns.
func scanStatLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
