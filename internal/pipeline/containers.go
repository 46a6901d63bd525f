package pipeline

import "github.com/jmylchreest/streamsift/internal/ffmpeg"

// container describes how a job's output is encoded and muxed.
type container struct {
	Ext        string
	Muxer      string
	AudioCodec string
	VideoCodec string
	// copyVideo lets unfiltered video pass through without re-encoding.
	copyVideo bool
	// fragmentOnStream switches to a fragmented layout when the output
	// cannot be seeked.
	fragmentOnStream bool
	audioBitrate     string
}

var audioContainers = map[string]container{
	"mp3":  {Ext: "mp3", Muxer: "mp3", AudioCodec: "libmp3lame", audioBitrate: "192k"},
	"m4a":  {Ext: "m4a", Muxer: "ipod", AudioCodec: "aac", fragmentOnStream: true, audioBitrate: "192k"},
	"opus": {Ext: "opus", Muxer: "ogg", AudioCodec: "libopus", audioBitrate: "160k"},
}

var videoContainers = map[string]container{
	"mkv":  {Ext: "mkv", Muxer: "matroska", AudioCodec: "aac", VideoCodec: "libx264", copyVideo: true},
	"mp4":  {Ext: "mp4", Muxer: "mp4", AudioCodec: "aac", VideoCodec: "libx264", fragmentOnStream: true},
	"webm": {Ext: "webm", Muxer: "webm", AudioCodec: "libopus", VideoCodec: "libvpx-vp9"},
}

func containerFor(kind Kind, name string) (container, bool) {
	if kind == KindAudio {
		c, ok := audioContainers[name]
		return c, ok
	}
	c, ok := videoContainers[name]
	return c, ok
}

// apply writes the codec and muxer arguments for the container.
func (c container) apply(b *ffmpeg.CommandBuilder, kind Kind, filter string, mode Mode) {
	if kind == KindAudio {
		b.NoVideo()
	} else if c.copyVideo && filter == "" {
		b.VideoCodec("copy")
	} else {
		b.VideoCodec(c.VideoCodec)
	}

	if kind != KindVideo {
		b.AudioCodec(c.AudioCodec)
		if c.audioBitrate != "" {
			b.AudioBitrate(c.audioBitrate)
		}
	}

	b.Format(c.Muxer)
	if mode == ModeStream && c.fragmentOnStream {
		b.FragmentedMP4()
	}
}
