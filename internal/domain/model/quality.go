package model

// QualityProfile describes one target rendition: resolution, bitrates and
// encoder knobs. Profiles are static configuration, never persisted per video.
type QualityProfile struct {
	// Name is the rendition identifier (e.g. "240p") used in storage paths
	// and in Video.QualityURLs keys.
	Name string
	// Height is the target video height in pixels. Width is derived to keep
	// the aspect ratio.
	Height int
	// Preset is the x264 speed/quality tradeoff.
	Preset string
	// CRF is the constant rate factor (higher = smaller/worse).
	CRF int
	// VideoBitrate is the target/max video bitrate, ffmpeg notation (e.g. "800k").
	VideoBitrate string
	// AudioBitrate is the AAC bitrate (e.g. "96k").
	AudioBitrate string
}

// DefaultMaxHeight caps the largest rendition the pipeline will produce.
const DefaultMaxHeight = 720

// qualityCatalog is ordered by ascending height. The order doubles as
// publish priority: the smallest profile encodes fastest and becomes the
// first watchable rendition.
var qualityCatalog = []QualityProfile{
	{Name: "144p", Height: 144, Preset: "veryfast", CRF: 35, VideoBitrate: "100k", AudioBitrate: "48k"},
	{Name: "240p", Height: 240, Preset: "veryfast", CRF: 33, VideoBitrate: "200k", AudioBitrate: "64k"},
	{Name: "360p", Height: 360, Preset: "veryfast", CRF: 30, VideoBitrate: "400k", AudioBitrate: "96k"},
	{Name: "480p", Height: 480, Preset: "veryfast", CRF: 28, VideoBitrate: "800k", AudioBitrate: "96k"},
	{Name: "720p", Height: 720, Preset: "veryfast", CRF: 26, VideoBitrate: "2000k", AudioBitrate: "128k"},
}

// QualityCatalog returns a copy of the full profile catalog.
func QualityCatalog() []QualityProfile {
	out := make([]QualityProfile, len(qualityCatalog))
	copy(out, qualityCatalog)
	return out
}

// ProfileByName looks up a catalog profile by rendition name.
func ProfileByName(name string) (QualityProfile, bool) {
	for _, p := range qualityCatalog {
		if p.Name == name {
			return p, true
		}
	}
	return QualityProfile{}, false
}

// SelectProfiles returns the profiles to produce for a source of the given
// height, smallest first. The pipeline never upscales and never exceeds
// maxHeight. A source below the smallest catalog entry still gets that
// smallest profile so every video ends up with at least one rendition.
func SelectProfiles(sourceHeight, maxHeight int) []QualityProfile {
	if maxHeight <= 0 {
		maxHeight = DefaultMaxHeight
	}

	var selected []QualityProfile
	for _, p := range qualityCatalog {
		if p.Height <= sourceHeight && p.Height <= maxHeight {
			selected = append(selected, p)
		}
	}

	if len(selected) == 0 {
		selected = append(selected, qualityCatalog[0])
	}

	return selected
}

// QualityNames maps a profile slice to its rendition names, preserving order.
func QualityNames(profiles []QualityProfile) []string {
	names := make([]string, len(profiles))
	for i, p := range profiles {
		names[i] = p.Name
	}
	return names
}
