package probe

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"mediavault/internal/language"
	"mediavault/internal/services"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index         int               `json:"index"`
	CodecName     string            `json:"codec_name"`
	CodecType     string            `json:"codec_type"`
	Duration      string            `json:"duration"`
	BitRate       string            `json:"bit_rate"`
	Width         int               `json:"width"`
	Height        int               `json:"height"`
	Channels      int               `json:"channels"`
	AvgFrameRate  string            `json:"avg_frame_rate"`
	ColorPrimaries string           `json:"color_primaries"`
	ColorTransfer string            `json:"color_transfer"`
	Tags          map[string]string `json:"tags"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

// HDR type labels stored on the asset row.
const (
	HDRTypeSDR         = "SDR"
	HDRTypeHDR10       = "HDR10"
	HDRTypeDolbyVision = "DolbyVision"
	HDRTypeHLG         = "HLG"
	HDRTypeUnknown     = "unknown"
)

// Metadata is the interpreted technical profile of a media file, ready for
// the quality scorer and the catalog.
type Metadata struct {
	Container          string
	VideoCodec         string
	AudioCodec         string
	Width              int
	Height             int
	BitrateKbps        float64
	FramerateFPS       float64
	DurationSeconds    float64
	AudioChannels      float64
	AudioTrackCount    int
	SubtitleTrackCount int
	AudioLanguages     []string
	SubtitleLanguages  []string
	HDRType            string
}

// DominantAudioLanguage returns the first audio language, or empty.
func (m Metadata) DominantAudioLanguage() string {
	return language.Dominant(m.AudioLanguages)
}

// Prober runs ffprobe under a wall-clock timeout.
type Prober struct {
	binary  string
	timeout time.Duration
}

// NewProber constructs a prober for the given ffprobe binary and per-file
// timeout.
func NewProber(binary string, timeout time.Duration) *Prober {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Prober{binary: binary, timeout: timeout}
}

// Probe executes ffprobe against the provided path and interprets the
// streams into a Metadata profile.
func (p *Prober) Probe(ctx context.Context, path string) (Metadata, error) {
	result, err := p.inspect(ctx, path)
	if err != nil {
		return Metadata{}, err
	}
	return Interpret(result), nil
}

func (p *Prober) inspect(ctx context.Context, path string) (Result, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, services.Wrap(services.ErrProbeFailed, "probe", "inspect", "empty path", nil)
	}

	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, p.binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.Output()
	if err != nil {
		if probeCtx.Err() != nil && !errors.Is(ctx.Err(), context.Canceled) {
			return Result{}, services.Wrap(services.ErrProbeFailed, "probe", "inspect", "ffprobe timed out after "+p.timeout.String(), probeCtx.Err())
		}
		detail := strings.TrimSpace(stderrOf(err))
		if detail == "" {
			detail = err.Error()
		}
		return Result{}, services.Wrap(services.ErrProbeFailed, "probe", "inspect", detail, err)
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, services.Wrap(services.ErrProbeFailed, "probe", "parse", "unparseable ffprobe output", err)
	}
	return result, nil
}

func stderrOf(err error) string {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return string(exitErr.Stderr)
	}
	return ""
}

// Interpret maps raw ffprobe streams onto the Metadata profile: resolution
// and codec from the first video stream, bitrate from the format layer with
// a per-stream sum fallback, languages per stream tag, channel layout from
// the first audio stream.
func Interpret(result Result) Metadata {
	meta := Metadata{
		Container: normalizeContainer(result.Format.FormatName),
		HDRType:   HDRTypeUnknown,
	}

	var streamBitrateSum float64
	audioLangs := make([]string, 0, 2)
	subLangs := make([]string, 0, 2)

	for _, stream := range result.Streams {
		if rate := parseFloat(stream.BitRate); rate > 0 {
			streamBitrateSum += rate
		}
		switch strings.ToLower(stream.CodecType) {
		case "video":
			if meta.VideoCodec == "" {
				meta.VideoCodec = strings.ToLower(strings.TrimSpace(stream.CodecName))
				meta.Width = stream.Width
				meta.Height = stream.Height
				meta.FramerateFPS = parseFrameRate(stream.AvgFrameRate)
				meta.HDRType = hdrTypeFor(stream)
			}
		case "audio":
			meta.AudioTrackCount++
			if meta.AudioCodec == "" {
				meta.AudioCodec = strings.ToLower(strings.TrimSpace(stream.CodecName))
				meta.AudioChannels = channelLayout(stream.Channels)
			}
			if lang := language.ExtractFromTags(stream.Tags); lang != "" {
				audioLangs = append(audioLangs, lang)
			}
		case "subtitle":
			meta.SubtitleTrackCount++
			if lang := language.ExtractFromTags(stream.Tags); lang != "" {
				subLangs = append(subLangs, lang)
			}
		}
	}

	meta.DurationSeconds = parseFloat(result.Format.Duration)
	bitrate := parseFloat(result.Format.BitRate)
	if bitrate <= 0 {
		bitrate = streamBitrateSum
	}
	if bitrate > 0 {
		meta.BitrateKbps = bitrate / 1000
	}

	meta.AudioLanguages = language.NormalizeList(audioLangs)
	meta.SubtitleLanguages = language.NormalizeList(subLangs)
	return meta
}

// hdrTypeFor derives the HDR label from color primaries and transfer
// characteristics. Dolby Vision shows up as an smpte2084 transfer with a
// dvhe/dvh1 codec tag; plain smpte2084 over bt2020 is HDR10.
func hdrTypeFor(stream Stream) string {
	codec := strings.ToLower(stream.CodecName)
	transfer := strings.ToLower(stream.ColorTransfer)
	primaries := strings.ToLower(stream.ColorPrimaries)

	switch {
	case strings.HasPrefix(codec, "dvhe"), strings.HasPrefix(codec, "dvh1"):
		return HDRTypeDolbyVision
	case transfer == "smpte2084":
		return HDRTypeHDR10
	case transfer == "arib-std-b67":
		return HDRTypeHLG
	case transfer == "" && primaries == "":
		return HDRTypeUnknown
	default:
		return HDRTypeSDR
	}
}

// channelLayout converts a channel count to the conventional decimal layout
// label (2 -> 2.0, 6 -> 5.1, 8 -> 7.1).
func channelLayout(channels int) float64 {
	switch {
	case channels <= 0:
		return 0
	case channels == 1:
		return 1.0
	case channels == 2:
		return 2.0
	case channels <= 6:
		return float64(channels-1) + 0.1
	default:
		return float64(channels-1) + 0.1
	}
}

func normalizeContainer(formatName string) string {
	name := strings.ToLower(strings.TrimSpace(formatName))
	if name == "" {
		return ""
	}
	// ffprobe reports demuxer lists like "matroska,webm" or "mov,mp4,m4a,3gp".
	first := strings.Split(name, ",")[0]
	switch first {
	case "matroska":
		return "mkv"
	case "mov":
		return "mp4"
	default:
		return first
	}
}

func parseFrameRate(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" || value == "0/0" {
		return 0
	}
	if num, den, found := strings.Cut(value, "/"); found {
		n := parseFloat(num)
		d := parseFloat(den)
		if d == 0 {
			return 0
		}
		rate := n / d
		return math.Round(rate*1000) / 1000
	}
	return parseFloat(value)
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil && parsed >= 0 {
		return parsed
	}
	return 0
}
