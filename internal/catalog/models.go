package catalog

import (
	"encoding/json"
	"time"
)

// MediaKind values mirror the filename parser's classification.
const (
	KindMovie       = "movie"
	KindTV          = "tv"
	KindDocumentary = "documentary"
	KindOther       = "other"
	KindUnknown     = "unknown"
)

// Recommendation values attached to duplicate members and groups.
const (
	ActionKeep       = "keep"
	ActionStage      = "stage"
	ActionReview     = "review"
	ActionStageLower = "stage_lower"
)

// Duplicate group kinds.
const (
	GroupExact = "exact"
	GroupFuzzy = "fuzzy"
)

// Archive operation kinds.
const (
	OpStage   = "stage"
	OpDelete  = "delete"
	OpRestore = "restore"
)

// Scan run lifecycle.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"

	ScanKindFull        = "full"
	ScanKindIncremental = "incremental"
)

// MediaAsset is the canonical record for a discovered file.
type MediaAsset struct {
	ID                 int64
	LogicalPath        string
	Filename           string
	SizeBytes          int64
	ContentFingerprint string
	Container          string
	VideoCodec         string
	AudioCodec         string
	Width              int
	Height             int
	ResolutionTier     string
	BitrateKbps        float64
	FramerateFPS       float64
	DurationSeconds    float64
	AudioChannels      float64
	AudioTrackCount    int
	SubtitleTrackCount int
	AudioLanguages     []string
	SubtitleLanguages  []string
	DominantAudioLang  string
	HDRType            string
	ParsedTitle        string
	ParsedYear         int
	ParsedSeason       int
	ParsedEpisode      int
	ParsedReleaseGroup string
	MediaKind          string
	QualityScore       int

	// Reserved enrichment columns, written only through the scanner's
	// enrichment hook.
	ExternalID     string
	CanonicalTitle string
	Overview       string
	Rating         float64
	PosterRef      string

	IsStaged  bool
	IsDeleted bool

	DiscoveredAt      time.Time
	LastScannedAt     time.Time
	MetadataUpdatedAt time.Time
	DeletedAt         *time.Time
}

// Live reports whether the asset is neither staged nor deleted.
func (a *MediaAsset) Live() bool { return !a.IsStaged && !a.IsDeleted }

// HasEnglishAudio reports whether any audio track is tagged English.
func (a *MediaAsset) HasEnglishAudio() bool {
	for _, lang := range a.AudioLanguages {
		if lang == "en" {
			return true
		}
	}
	return false
}

// HasEnglishSubtitles reports whether any subtitle track is tagged English.
func (a *MediaAsset) HasEnglishSubtitles() bool {
	for _, lang := range a.SubtitleLanguages {
		if lang == "en" {
			return true
		}
	}
	return false
}

// DuplicateGroup is a set of assets judged to be the same content.
type DuplicateGroup struct {
	ID                int64
	GroupFingerprint  string
	Kind              string
	Confidence        float64
	Title             string
	Year              int
	Season            int
	Episode           int
	MediaKind         string
	MemberCount       int
	RecommendedAction string
	ActionReason      string
	Reviewed          bool
	ReviewedAt        *time.Time
	DetectedAt        time.Time
}

// DuplicateMember is a (group, asset) edge carrying rank and the
// per-member recommendation.
type DuplicateMember struct {
	ID                int64
	GroupID           int64
	AssetID           int64
	Rank              int
	RecommendedAction string
	ActionReason      string
}

// PendingMetadataKind tags the known shapes of the free-form metadata
// carried by a pending deletion.
type PendingMetadataKind string

const (
	// MetadataNormalStaging marks a stage where the source file was moved.
	MetadataNormalStaging PendingMetadataKind = "normal_staging"
	// MetadataSourceMissing marks a stage recorded without a file move.
	MetadataSourceMissing PendingMetadataKind = "source_missing"
	// MetadataOpaque holds a map written by another tool; it round-trips
	// unchanged through Extra.
	MetadataOpaque PendingMetadataKind = "opaque"
)

// PendingMetadata is the in-memory form of the metadata_json column. The
// staging shapes are enumerated by Kind; keys beyond the known shape live
// in Extra and survive persistence untouched.
type PendingMetadata struct {
	Kind  PendingMetadataKind
	Extra map[string]any
}

// NewPendingMetadata builds the metadata for a stage operation.
func NewPendingMetadata(sourceMissing bool) PendingMetadata {
	if sourceMissing {
		return PendingMetadata{Kind: MetadataSourceMissing}
	}
	return PendingMetadata{Kind: MetadataNormalStaging}
}

// SourceMissing reports whether the staged source file was absent at stage
// time.
func (m PendingMetadata) SourceMissing() bool { return m.Kind == MetadataSourceMissing }

// AsMap flattens the metadata back into its persisted map form. Known
// kinds contribute the source_missing marker; opaque maps pass through.
func (m PendingMetadata) AsMap() map[string]any {
	out := make(map[string]any, len(m.Extra)+1)
	for k, v := range m.Extra {
		out[k] = v
	}
	switch m.Kind {
	case MetadataSourceMissing:
		out["source_missing"] = true
	case MetadataNormalStaging:
		out["source_missing"] = false
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// PendingMetadataFromMap classifies a persisted map into its tagged form.
// Maps without the source_missing marker stay opaque.
func PendingMetadataFromMap(raw map[string]any) PendingMetadata {
	missing, ok := raw["source_missing"].(bool)
	if !ok {
		if len(raw) == 0 {
			return PendingMetadata{Kind: MetadataOpaque}
		}
		return PendingMetadata{Kind: MetadataOpaque, Extra: raw}
	}
	meta := PendingMetadata{Kind: MetadataNormalStaging}
	if missing {
		meta.Kind = MetadataSourceMissing
	}
	for k, v := range raw {
		if k == "source_missing" {
			continue
		}
		if meta.Extra == nil {
			meta.Extra = make(map[string]any)
		}
		meta.Extra[k] = v
	}
	return meta
}

// MarshalJSON emits the persisted map form so callers see the catalog
// schema rather than the in-memory tags.
func (m PendingMetadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.AsMap())
}

func (m *PendingMetadata) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = PendingMetadataFromMap(raw)
	return nil
}

// PendingDeletion is a single artifact moved to the holding area and
// awaiting an explicit approval or restore.
type PendingDeletion struct {
	ID                    int64
	AssetID               int64
	OriginalLogicalPath   string
	StagedPath            string
	SizeBytes             int64
	Reason                string
	GroupID               int64
	BetterAssetID         int64
	QualityDelta          int
	LanguageConcern       bool
	LanguageConcernReason string
	StagedAt              time.Time
	Approved              bool
	ApprovedAt            *time.Time
	ApprovedBy            string
	DeletedAt             *time.Time
	Metadata              PendingMetadata
}

// Staged reports whether the row is still in the STAGED state.
func (p *PendingDeletion) Staged() bool { return p.DeletedAt == nil }

// ArchiveOperation is one entry in the append-only mutation log.
type ArchiveOperation struct {
	ID              int64
	AssetID         int64
	Kind            string
	SourcePath      string
	DestinationPath string
	Success         bool
	ErrorMessage    string
	PerformedAt     time.Time
	PerformedBy     string
	Metadata        map[string]any
}

// ScanError is one structured per-file error recorded on a scan run.
type ScanError struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ScanRun records one scanner execution.
type ScanRun struct {
	ID             int64
	RunUUID        string
	Kind           string
	Roots          []string
	Status         string
	StartedAt      time.Time
	FinishedAt     *time.Time
	FilesFound     int
	FilesNew       int
	FilesUpdated   int
	FilesUnchanged int
	FilesDeleted   int
	ErrorsCount    int
	ErrorDetails   []ScanError
	FailureReason  string
}
