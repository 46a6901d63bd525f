package engine

// Document is the subset of the prober's JSON dump the engine consumes.
type Document struct {
	ID                   string     `json:"id"`
	Title                string     `json:"title"`
	Channel              string     `json:"channel"`
	ChannelID            string     `json:"channel_id"`
	ChannelURL           string     `json:"channel_url"`
	Uploader             string     `json:"uploader"`
	UploaderURL          string     `json:"uploader_url"`
	Duration             float64    `json:"duration"`
	ViewCount            int64      `json:"view_count"`
	LikeCount            int64      `json:"like_count"`
	CommentCount         int64      `json:"comment_count"`
	ChannelFollowerCount int64      `json:"channel_follower_count"`
	WebpageURL           string     `json:"webpage_url"`
	OriginalURL          string     `json:"original_url"`
	Thumbnail            string     `json:"thumbnail"`
	UploadDate           string     `json:"upload_date"`
	Description          string     `json:"description"`
	Categories           []string   `json:"categories"`
	Tags                 []string   `json:"tags"`
	LiveStatus           string     `json:"live_status"`
	Formats              []RawTrack `json:"formats"`
}

// RawTrack is one entry of the prober's format list. Every descriptor is
// optional; pointer fields distinguish "absent" from zero.
type RawTrack struct {
	FormatID      string   `json:"format_id"`
	Format        string   `json:"format"`
	FormatNote    string   `json:"format_note"`
	Filesize      *float64 `json:"filesize"`
	Protocol      string   `json:"protocol"`
	Container     string   `json:"container"`
	Ext           string   `json:"ext"`
	URL           string   `json:"url"`
	TBR           *float64 `json:"tbr"`
	ABR           *float64 `json:"abr"`
	VBR           *float64 `json:"vbr"`
	ASR           *float64 `json:"asr"`
	AudioChannels *int     `json:"audio_channels"`
	ACodec        string   `json:"acodec"`
	VCodec        string   `json:"vcodec"`
	FPS           *float64 `json:"fps"`
	Height        *int     `json:"height"`
	Width         *int     `json:"width"`
	Resolution    string   `json:"resolution"`
	AspectRatio   *float64 `json:"aspect_ratio"`
	DynamicRange  string   `json:"dynamic_range"`
	Language      string   `json:"language"`
}

// AudioTrack is a track carrying only audio descriptors.
type AudioTrack struct {
	ID         string  `json:"id"`
	Note       string  `json:"note"`
	Descriptor string  `json:"descriptor"`
	Size       int64   `json:"size"`
	SizeText   string  `json:"sizeText"`
	URL        string  `json:"url"`
	Ext        string  `json:"ext"`
	Container  string  `json:"container,omitempty"`
	Protocol   string  `json:"protocol"`
	Codec      string  `json:"codec"`
	Bitrate    float64 `json:"bitrate"`
	SampleRate float64 `json:"sampleRate"`
	Channels   int     `json:"channels"`
	Language   string  `json:"language,omitempty"`
}

// VideoTrack is a track carrying only video descriptors.
type VideoTrack struct {
	ID           string  `json:"id"`
	Note         string  `json:"note"`
	Descriptor   string  `json:"descriptor"`
	Size         int64   `json:"size"`
	SizeText     string  `json:"sizeText"`
	URL          string  `json:"url"`
	Ext          string  `json:"ext"`
	Container    string  `json:"container,omitempty"`
	Protocol     string  `json:"protocol"`
	Codec        string  `json:"codec"`
	Bitrate      float64 `json:"bitrate"`
	FPS          float64 `json:"fps"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	Resolution   string  `json:"resolution"`
	AspectRatio  float64 `json:"aspectRatio"`
	DynamicRange string  `json:"dynamicRange"`
}

// ManifestTrack is a track delivered through an adaptive manifest.
type ManifestTrack struct {
	ID           string  `json:"id"`
	Note         string  `json:"note"`
	Descriptor   string  `json:"descriptor"`
	URL          string  `json:"url"`
	Protocol     string  `json:"protocol"`
	Bitrate      float64 `json:"bitrate"`
	Resolution   string  `json:"resolution"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	FPS          float64 `json:"fps"`
	VideoCodec   string  `json:"videoCodec"`
	AudioCodec   string  `json:"audioCodec"`
	DynamicRange string  `json:"dynamicRange"`
}

// Metadata is the flattened video-level information of a probe result.
type Metadata struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Channel       string   `json:"channel"`
	ChannelID     string   `json:"channelId"`
	ChannelURL    string   `json:"channelUrl"`
	Uploader      string   `json:"uploader"`
	UploaderURL   string   `json:"uploaderUrl"`
	Duration      float64  `json:"duration"`
	DurationText  string   `json:"durationText"`
	ViewCount     int64    `json:"viewCount"`
	LikeCount     int64    `json:"likeCount"`
	CommentCount  int64    `json:"commentCount"`
	FollowerCount int64    `json:"followerCount"`
	WebpageURL    string   `json:"webpageUrl"`
	OriginalURL   string   `json:"originalUrl"`
	Thumbnail     string   `json:"thumbnail"`
	UploadDate    string   `json:"uploadDate"`
	Description   string   `json:"description"`
	Categories    []string `json:"categories"`
	Tags          []string `json:"tags"`
	LiveStatus    string   `json:"liveStatus"`
}

// Catalogue is the resolved, bucketed view of every available track.
// It is built fresh per resolution and must be treated as read-only.
type Catalogue struct {
	AudioLow  *AudioTrack `json:"audioLow"`
	AudioHigh *AudioTrack `json:"audioHigh"`
	VideoLow  *VideoTrack `json:"videoLow"`
	VideoHigh *VideoTrack `json:"videoHigh"`

	AudioLowByNote  map[string]AudioTrack `json:"audioLowByNote"`
	AudioHighByNote map[string]AudioTrack `json:"audioHighByNote"`
	VideoLowByNote  map[string]VideoTrack `json:"videoLowByNote"`
	VideoHighByNote map[string]VideoTrack `json:"videoHighByNote"`

	AudioLowDRC  map[string]AudioTrack `json:"audioLowDRC"`
	AudioHighDRC map[string]AudioTrack `json:"audioHighDRC"`
	VideoLowHDR  map[string]VideoTrack `json:"videoLowHDR"`
	VideoHighHDR map[string]VideoTrack `json:"videoHighHDR"`

	ManifestLow  map[string]ManifestTrack `json:"manifestLow"`
	ManifestHigh map[string]ManifestTrack `json:"manifestHigh"`

	IPAddress string   `json:"ipAddress"`
	Metadata  Metadata `json:"metaData"`
}
