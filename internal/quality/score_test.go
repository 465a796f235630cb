package quality_test

import (
	"testing"

	"mediavault/internal/quality"
)

func TestScoreComponents(t *testing.T) {
	cases := []struct {
		name     string
		inputs   quality.Inputs
		expected int
	}{
		{
			name:     "zero inputs floor",
			inputs:   quality.Inputs{},
			// 10 resolution floor + 5 codec floor + 5 audio floor
			expected: 20,
		},
		{
			name: "reference 1080p h264 stereo",
			inputs: quality.Inputs{
				Height:        1080,
				VideoCodec:    "h264",
				BitrateKbps:   5000,
				AudioChannels: 2.0,
			},
			// 75 + 15 + (5000/10000)*30 + 10
			expected: 115,
		},
		{
			name: "4k hevc hdr surround",
			inputs: quality.Inputs{
				Height:             2160,
				VideoCodec:         "hevc",
				BitrateKbps:        60000,
				AudioChannels:      5.1,
				AudioTrackCount:    3,
				SubtitleTrackCount: 4,
				HDRType:            "HDR10",
			},
			// 100 + 20 + 30 + 15 + 6 + 8 + 15
			expected: 194,
		},
		{
			name: "av1 outranks hevc at equal terms",
			inputs: quality.Inputs{
				Height:     1080,
				VideoCodec: "av1",
			},
			// 75 + 22 + 5
			expected: 102,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := quality.Score(tc.inputs); got != tc.expected {
				t.Fatalf("Score = %d, want %d", got, tc.expected)
			}
		})
	}
}

func TestScoreBounds(t *testing.T) {
	max := quality.Inputs{
		Height:             4320,
		VideoCodec:         "av1",
		BitrateKbps:        1 << 30,
		AudioChannels:      7.1,
		AudioTrackCount:    20,
		SubtitleTrackCount: 20,
		HDRType:            "DolbyVision",
	}
	if got := quality.Score(max); got < 0 || got > quality.MaxScore {
		t.Fatalf("Score out of bounds: %d", got)
	}
}

func TestScoreDeterministic(t *testing.T) {
	in := quality.Inputs{Height: 720, VideoCodec: "vp9", BitrateKbps: 2500, AudioChannels: 2.0}
	first := quality.Score(in)
	for i := 0; i < 10; i++ {
		if got := quality.Score(in); got != first {
			t.Fatalf("Score not deterministic: %d vs %d", got, first)
		}
	}
}

func TestTierForHeight(t *testing.T) {
	cases := []struct {
		height int
		tier   string
	}{
		{2160, quality.Tier2160p},
		{1080, quality.Tier1080p},
		{720, quality.Tier720p},
		{480, quality.Tier480p},
		{360, quality.TierSD},
		{0, quality.TierSD},
	}
	for _, tc := range cases {
		if got := quality.TierForHeight(tc.height); got != tc.tier {
			t.Errorf("TierForHeight(%d) = %s, want %s", tc.height, got, tc.tier)
		}
	}
}
