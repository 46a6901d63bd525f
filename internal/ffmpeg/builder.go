// Package ffmpeg builds and runs encoder processes and parses their stderr
// into structured progress events.
package ffmpeg

import (
	"fmt"
	"strings"
	"time"
)

// PipeOutput is the output target that makes the encoder write to stdout.
const PipeOutput = "pipe:1"

type input struct {
	args []string
	url  string
}

// CommandBuilder builds FFmpeg commands with a fluent API.
type CommandBuilder struct {
	binary          string
	logLevel        string
	globalArgs      []string
	overwrite       bool
	pendingArgs     []string
	pendingHeaders  []string
	inputs          []input
	filterArgs      []string
	outputArgs      []string
	output          string
	stderrLogPath   string
	monitorInterval time.Duration
}

// NewCommandBuilder creates a new FFmpeg command builder.
func NewCommandBuilder(ffmpegPath string) *CommandBuilder {
	return &CommandBuilder{
		binary:   ffmpegPath,
		logLevel: "info",
	}
}

// LogLevel sets the FFmpeg log level.
func (b *CommandBuilder) LogLevel(level string) *CommandBuilder {
	if level != "" {
		b.logLevel = level
	}
	return b
}

// HideBanner hides the FFmpeg banner.
func (b *CommandBuilder) HideBanner() *CommandBuilder {
	b.globalArgs = append(b.globalArgs, "-hide_banner")
	return b
}

// Stats enables progress stats output on stderr.
func (b *CommandBuilder) Stats() *CommandBuilder {
	b.globalArgs = append(b.globalArgs, "-stats")
	return b
}

// Overwrite enables output file overwriting.
func (b *CommandBuilder) Overwrite() *CommandBuilder {
	b.overwrite = true
	return b
}

// InputArgs adds arguments that apply to the next Input.
func (b *CommandBuilder) InputArgs(args ...string) *CommandBuilder {
	b.pendingArgs = append(b.pendingArgs, args...)
	return b
}

// Header adds an HTTP request header to the next Input.
func (b *CommandBuilder) Header(name, value string) *CommandBuilder {
	b.pendingHeaders = append(b.pendingHeaders, name+": "+value+"\r\n")
	return b
}

// ForwardedFor attributes the next Input's request to ip.
func (b *CommandBuilder) ForwardedFor(ip string) *CommandBuilder {
	if ip == "" {
		return b
	}
	return b.Header("X-Forwarded-For", ip)
}

// Reconnect enables automatic reconnection for the next network Input.
func (b *CommandBuilder) Reconnect() *CommandBuilder {
	return b.InputArgs(
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5")
}

// Input adds an input source, consuming any pending input arguments and headers.
func (b *CommandBuilder) Input(url string) *CommandBuilder {
	args := append([]string{}, b.pendingArgs...)
	if len(b.pendingHeaders) > 0 {
		args = append(args, "-headers", strings.Join(b.pendingHeaders, ""))
	}
	b.inputs = append(b.inputs, input{args: args, url: url})
	b.pendingArgs = nil
	b.pendingHeaders = nil
	return b
}

// Map selects a stream for the output, e.g. "0:a" or "1:v".
func (b *CommandBuilder) Map(spec string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-map", spec)
	return b
}

// NoVideo drops any video stream from the output.
func (b *CommandBuilder) NoVideo() *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-vn")
	return b
}

// VideoCodec sets the video codec.
func (b *CommandBuilder) VideoCodec(codec string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-c:v", codec)
	return b
}

// AudioCodec sets the audio codec.
func (b *CommandBuilder) AudioCodec(codec string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-c:a", codec)
	return b
}

// AudioBitrate sets the audio bitrate.
func (b *CommandBuilder) AudioBitrate(bitrate string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-b:a", bitrate)
	return b
}

// VideoFilter adds a video filter to the chain.
func (b *CommandBuilder) VideoFilter(filter string) *CommandBuilder {
	if filter != "" {
		b.filterArgs = append(b.filterArgs, filter)
	}
	return b
}

// Format forces the output muxer.
func (b *CommandBuilder) Format(muxer string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-f", muxer)
	return b
}

// FragmentedMP4 makes MP4 output streamable on a non-seekable pipe.
func (b *CommandBuilder) FragmentedMP4() *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-movflags", "frag_keyframe+empty_moov+default_base_moof")
	return b
}

// Output sets the output destination.
func (b *CommandBuilder) Output(output string) *CommandBuilder {
	b.output = output
	return b
}

// StderrLogPath sets a file path to append FFmpeg stderr output to.
func (b *CommandBuilder) StderrLogPath(path string) *CommandBuilder {
	b.stderrLogPath = path
	return b
}

// MonitorInterval sets how often process resource usage is sampled.
// Zero disables monitoring.
func (b *CommandBuilder) MonitorInterval(d time.Duration) *CommandBuilder {
	b.monitorInterval = d
	return b
}

// Build builds the command.
func (b *CommandBuilder) Build() (*Command, error) {
	if len(b.inputs) == 0 {
		return nil, fmt.Errorf("ffmpeg command needs at least one input")
	}
	if b.output == "" {
		return nil, fmt.Errorf("ffmpeg command needs an output")
	}

	args := []string{"-loglevel", b.logLevel}
	args = append(args, b.globalArgs...)
	if b.overwrite {
		args = append(args, "-y")
	}

	inputs := make([]string, 0, len(b.inputs))
	for _, in := range b.inputs {
		args = append(args, in.args...)
		args = append(args, "-i", in.url)
		inputs = append(inputs, in.url)
	}

	if len(b.filterArgs) > 0 {
		args = append(args, "-vf", strings.Join(b.filterArgs, ","))
	}
	args = append(args, b.outputArgs...)
	args = append(args, b.output)

	return &Command{
		Binary:          b.binary,
		Args:            args,
		Inputs:          inputs,
		Output:          b.output,
		stderrLogPath:   b.stderrLogPath,
		monitorInterval: b.monitorInterval,
	}, nil
}
