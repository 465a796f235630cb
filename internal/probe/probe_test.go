package probe

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInterpret(t *testing.T) {
	result := Result{
		Format: Format{
			FormatName: "matroska,webm",
			Duration:   "5400.25",
			BitRate:    "8500000",
		},
		Streams: []Stream{
			{
				CodecType:     "video",
				CodecName:     "hevc",
				Width:         3840,
				Height:        2160,
				AvgFrameRate:  "24000/1001",
				ColorTransfer: "smpte2084",
			},
			{
				CodecType: "audio",
				CodecName: "eac3",
				Channels:  6,
				Tags:      map[string]string{"language": "eng"},
			},
			{
				CodecType: "audio",
				CodecName: "aac",
				Channels:  2,
				Tags:      map[string]string{"language": "jpn"},
			},
			{
				CodecType: "subtitle",
				CodecName: "subrip",
				Tags:      map[string]string{"language": "eng"},
			},
		},
	}

	meta := Interpret(result)
	if meta.Container != "mkv" {
		t.Errorf("Container = %q, want mkv", meta.Container)
	}
	if meta.VideoCodec != "hevc" || meta.Height != 2160 {
		t.Errorf("video = %s/%d, want hevc/2160", meta.VideoCodec, meta.Height)
	}
	if meta.HDRType != HDRTypeHDR10 {
		t.Errorf("HDRType = %s, want HDR10", meta.HDRType)
	}
	if meta.BitrateKbps != 8500 {
		t.Errorf("BitrateKbps = %v, want 8500", meta.BitrateKbps)
	}
	if meta.AudioChannels != 5.1 {
		t.Errorf("AudioChannels = %v, want 5.1", meta.AudioChannels)
	}
	if meta.AudioTrackCount != 2 || meta.SubtitleTrackCount != 1 {
		t.Errorf("tracks = %d audio / %d subtitle, want 2/1", meta.AudioTrackCount, meta.SubtitleTrackCount)
	}
	if len(meta.AudioLanguages) != 2 || meta.AudioLanguages[0] != "en" || meta.AudioLanguages[1] != "ja" {
		t.Errorf("AudioLanguages = %v, want [en ja]", meta.AudioLanguages)
	}
	if meta.DominantAudioLanguage() != "en" {
		t.Errorf("DominantAudioLanguage = %q, want en", meta.DominantAudioLanguage())
	}
	if meta.FramerateFPS != 23.976 {
		t.Errorf("FramerateFPS = %v, want 23.976", meta.FramerateFPS)
	}
}

func TestInterpretBitrateFallsBackToStreamSum(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video", CodecName: "h264", Height: 1080, BitRate: "4000000"},
			{CodecType: "audio", CodecName: "aac", Channels: 2, BitRate: "256000"},
		},
	}
	meta := Interpret(result)
	if meta.BitrateKbps != 4256 {
		t.Errorf("BitrateKbps = %v, want 4256", meta.BitrateKbps)
	}
}

func TestInterpretDolbyVision(t *testing.T) {
	meta := Interpret(Result{Streams: []Stream{{CodecType: "video", CodecName: "dvhe", Height: 2160}}})
	if meta.HDRType != HDRTypeDolbyVision {
		t.Errorf("HDRType = %s, want DolbyVision", meta.HDRType)
	}
}

func TestFingerprint(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.bin")
	if err := os.WriteFile(path, []byte("mediavault"), 0o644); err != nil {
		t.Fatal(err)
	}

	first, err := Fingerprint(path, 4)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	second, err := Fingerprint(path, 1024)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if first != second {
		t.Errorf("chunk size changed digest: %s vs %s", first, second)
	}
	if len(first) != 32 {
		t.Errorf("digest length = %d, want 32 hex chars", len(first))
	}
}

func TestFingerprintEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Fingerprint(path, 0)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if got != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Errorf("empty-file digest = %s", got)
	}
}

func TestFingerprintMissingFile(t *testing.T) {
	if _, err := Fingerprint(filepath.Join(t.TempDir(), "nope.bin"), 0); err == nil {
		t.Fatal("expected error for missing file")
	}
}
