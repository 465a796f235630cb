package quality

import (
	"math"
	"strings"
)

// Tier labels derived from pixel height.
const (
	Tier2160p = "2160p"
	Tier1080p = "1080p"
	Tier720p  = "720p"
	Tier480p  = "480p"
	TierSD    = "SD"
)

// Inputs holds the probed technical metadata the scorer consumes. Missing
// inputs are zero values and contribute nothing to their component.
type Inputs struct {
	Height             int
	VideoCodec         string
	BitrateKbps        float64
	AudioChannels      float64
	AudioTrackCount    int
	SubtitleTrackCount int
	HDRType            string
}

// MaxScore is the upper clamp for the quality score.
const MaxScore = 200

// TierForHeight maps pixel height to a discrete resolution tier label.
func TierForHeight(height int) string {
	switch {
	case height >= 2160:
		return Tier2160p
	case height >= 1080:
		return Tier1080p
	case height >= 720:
		return Tier720p
	case height >= 480:
		return Tier480p
	default:
		return TierSD
	}
}

// Score computes the quality score for the given inputs. Identical inputs
// always produce identical outputs.
func Score(in Inputs) int {
	total := float64(resolutionComponent(in.Height))
	total += float64(codecComponent(in.VideoCodec))
	total += bitrateComponent(in.BitrateKbps, in.Height)
	total += float64(audioChannelComponent(in.AudioChannels))
	total += float64(multiAudioComponent(in.AudioTrackCount))
	total += float64(subtitleComponent(in.SubtitleTrackCount))
	total += float64(hdrComponent(in.HDRType))

	score := int(math.Round(total))
	if score < 0 {
		return 0
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

func resolutionComponent(height int) int {
	switch {
	case height >= 2160:
		return 100
	case height >= 1080:
		return 75
	case height >= 720:
		return 50
	case height >= 480:
		return 25
	default:
		return 10
	}
}

func codecComponent(codec string) int {
	switch strings.ToLower(strings.TrimSpace(codec)) {
	case "av1":
		return 22
	case "hevc", "h265", "x265":
		return 20
	case "vp9":
		return 18
	case "h264", "avc", "x264":
		return 15
	default:
		return 5
	}
}

// idealBitrateKbps returns the reference bitrate for the asset's resolution
// tier. Assets at or above the ideal earn the full bitrate component.
func idealBitrateKbps(height int) float64 {
	switch TierForHeight(height) {
	case Tier2160p:
		return 50000
	case Tier1080p:
		return 10000
	case Tier720p:
		return 5000
	case Tier480p:
		return 2000
	default:
		return 1000
	}
}

func bitrateComponent(bitrateKbps float64, height int) float64 {
	if bitrateKbps <= 0 {
		return 0
	}
	ratio := bitrateKbps / idealBitrateKbps(height)
	if ratio > 1 {
		ratio = 1
	}
	return ratio * 30
}

func audioChannelComponent(channels float64) int {
	switch {
	case channels >= 5.0:
		return 15
	case channels >= 2.0:
		return 10
	default:
		return 5
	}
}

func multiAudioComponent(trackCount int) int {
	extra := (trackCount - 1) * 3
	if extra < 0 {
		extra = 0
	}
	if extra > 10 {
		extra = 10
	}
	return extra
}

func subtitleComponent(trackCount int) int {
	points := trackCount * 2
	if points < 0 {
		return 0
	}
	if points > 10 {
		return 10
	}
	return points
}

func hdrComponent(hdrType string) int {
	switch strings.TrimSpace(hdrType) {
	case "HDR10", "DolbyVision", "HLG":
		return 15
	default:
		return 0
	}
}
