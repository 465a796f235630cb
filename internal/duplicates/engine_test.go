package duplicates_test

import (
	"context"
	"errors"
	"testing"

	"mediavault/internal/catalog"
	"mediavault/internal/duplicates"
	"mediavault/internal/logging"
	"mediavault/internal/parse"
	"mediavault/internal/services"
	"mediavault/internal/testsupport"
)

func seedMovie(t *testing.T, store *catalog.Store, path, fingerprint, title string, year, score int, size int64, audioLangs, subLangs []string) *catalog.MediaAsset {
	t.Helper()
	return testsupport.SeedAsset(t, store, path, func(a *catalog.MediaAsset) {
		a.ContentFingerprint = fingerprint
		a.ParsedTitle = title
		a.ParsedYear = year
		a.QualityScore = score
		a.SizeBytes = size
		a.MediaKind = catalog.KindMovie
		a.AudioLanguages = audioLangs
		a.SubtitleLanguages = subLangs
		if len(audioLangs) > 0 {
			a.DominantAudioLang = audioLangs[0]
		}
	})
}

func seedEpisode(t *testing.T, store *catalog.Store, path, title string, season, episode, score int, audioLangs []string) *catalog.MediaAsset {
	t.Helper()
	return testsupport.SeedAsset(t, store, path, func(a *catalog.MediaAsset) {
		a.ParsedTitle = title
		a.ParsedSeason = season
		a.ParsedEpisode = episode
		a.QualityScore = score
		a.MediaKind = catalog.KindTV
		a.AudioLanguages = audioLangs
		if len(audioLangs) > 0 {
			a.DominantAudioLang = audioLangs[0]
		}
	})
}

// Exact duplicates with identical quality: rank 1 by path tie-break keeps,
// the other goes to review because the delta is zero.
func TestRebuildExactDuplicateSameQuality(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	const fp = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	seedMovie(t, store, "/library/a/The.Matrix.mkv", fp, "The Matrix", 1999, 115, 1000, []string{"en"}, nil)
	seedMovie(t, store, "/library/b/The.Matrix.mkv", fp, "The Matrix", 1999, 115, 1000, []string{"en"}, nil)

	engine := duplicates.New(cfg, store, logging.NewNop())
	report, err := engine.Rebuild(ctx)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if report.ExactGroups != 1 || report.FuzzyGroups != 0 {
		t.Fatalf("report = %+v", report)
	}

	group, err := store.GetGroupByFingerprint(ctx, "exact:"+fp)
	if err != nil || group == nil {
		t.Fatalf("group missing: %v", err)
	}
	if group.Confidence != 100 || group.Kind != catalog.GroupExact {
		t.Errorf("group = %+v", group)
	}

	members, err := store.ListMembers(ctx, group.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 2 {
		t.Fatalf("members = %d", len(members))
	}

	rank1, err := store.GetAssetByID(ctx, members[0].AssetID)
	if err != nil {
		t.Fatal(err)
	}
	if rank1.LogicalPath != "/library/a/The.Matrix.mkv" {
		t.Errorf("rank 1 = %s, want alphabetic tie-break winner", rank1.LogicalPath)
	}
	if members[0].RecommendedAction != catalog.ActionKeep {
		t.Errorf("rank 1 action = %s", members[0].RecommendedAction)
	}
	if members[1].RecommendedAction != catalog.ActionReview {
		t.Errorf("rank 2 action = %s, want review (zero delta)", members[1].RecommendedAction)
	}
}

// Fuzzy TV duplicate where the lower-quality member holds the only English
// audio: the guardrail forces review instead of stage. The parsed titles
// come from the filename parser exactly as a scan would record them, so a
// run-together spelling on one side must still land in the group.
func TestRebuildLanguageGuardrail(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	lowRes := parse.Parse("redwarf.s01e01.480p.mkv")
	highRes := parse.Parse("Red.Dwarf.S01E01.1080p.mkv")
	if !lowRes.HasEpisode() || !highRes.HasEpisode() {
		t.Fatalf("parse lost the episode markers: %+v / %+v", lowRes, highRes)
	}
	seedEpisode(t, store, "/library/redwarf.s01e01.480p.mkv", lowRes.Title, lowRes.Season, lowRes.Episode, 70, []string{"en"})
	seedEpisode(t, store, "/library/Red.Dwarf.S01E01.1080p.mkv", highRes.Title, highRes.Season, highRes.Episode, 140, []string{"de"})

	engine := duplicates.New(cfg, store, logging.NewNop())
	report, err := engine.Rebuild(ctx)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if report.FuzzyGroups != 1 {
		t.Fatalf("fuzzy groups = %d, want 1", report.FuzzyGroups)
	}

	groups, err := store.ListGroups(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || groups[0].Kind != catalog.GroupFuzzy {
		t.Fatalf("groups = %+v", groups)
	}

	members, err := store.ListMembers(ctx, groups[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 2 {
		t.Fatalf("members = %d", len(members))
	}
	lower := members[1]
	if lower.RecommendedAction != catalog.ActionReview {
		t.Errorf("action = %s, want review", lower.RecommendedAction)
	}
	if lower.ActionReason != duplicates.LanguageConcernReason {
		t.Errorf("reason = %q", lower.ActionReason)
	}
	if groups[0].RecommendedAction != catalog.ActionReview {
		t.Errorf("group action = %s, want review", groups[0].RecommendedAction)
	}
}

func TestRebuildStagesLargeDelta(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	seedMovie(t, store, "/library/a/Movie.2020.2160p.mkv", "", "Movie", 2020, 180, 9000, []string{"en"}, nil)
	seedMovie(t, store, "/library/b/Movie.2020.480p.mkv", "", "Movie", 2020, 60, 1000, []string{"en"}, nil)

	engine := duplicates.New(cfg, store, logging.NewNop())
	if _, err := engine.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}

	groups, err := store.ListGroups(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %d", len(groups))
	}
	members, err := store.ListMembers(ctx, groups[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if members[1].RecommendedAction != catalog.ActionStage {
		t.Errorf("action = %s, want stage", members[1].RecommendedAction)
	}
	if groups[0].RecommendedAction != catalog.ActionStageLower {
		t.Errorf("group action = %s, want stage_lower", groups[0].RecommendedAction)
	}
}

// Rebuilding twice over an unchanged asset set yields identical rows, and
// review state set between rebuilds survives.
func TestRebuildIdempotentAndPreservesReview(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	const fp = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	seedMovie(t, store, "/library/a/Dupe.2020.mkv", fp, "Dupe", 2020, 100, 1000, []string{"en"}, nil)
	seedMovie(t, store, "/library/b/Dupe.2020.mkv", fp, "Dupe", 2020, 100, 1000, []string{"en"}, nil)

	engine := duplicates.New(cfg, store, logging.NewNop())
	if _, err := engine.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}
	first, err := store.ListGroups(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 1 {
		t.Fatalf("groups = %d", len(first))
	}
	if err := store.MarkGroupReviewed(ctx, first[0].ID, true); err != nil {
		t.Fatal(err)
	}

	if _, err := engine.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}
	second, err := store.ListGroups(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != 1 {
		t.Fatalf("groups after second rebuild = %d", len(second))
	}
	if second[0].ID != first[0].ID || second[0].GroupFingerprint != first[0].GroupFingerprint {
		t.Errorf("group identity changed across rebuilds")
	}
	if !second[0].Reviewed {
		t.Error("reviewed flag lost on rebuild")
	}
	if !second[0].DetectedAt.Equal(first[0].DetectedAt) {
		t.Error("detected_at changed on rebuild")
	}
}

// A fingerprint held by a single live asset forms no group, and stale
// groups disappear when their members do.
func TestRebuildDropsSingletonsAndStaleGroups(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	const fp = "cccccccccccccccccccccccccccccccc"
	a := seedMovie(t, store, "/library/a/Once.2020.mkv", fp, "Once", 2020, 100, 1000, []string{"en"}, nil)
	seedMovie(t, store, "/library/b/Once.2020.mkv", fp, "Once", 2020, 90, 900, []string{"en"}, nil)

	engine := duplicates.New(cfg, store, logging.NewNop())
	if _, err := engine.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}
	groups, err := store.ListGroups(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %d", len(groups))
	}

	// Remove one member from the live set; the group must vanish.
	if _, err := store.MarkAssetsDeleted(ctx, []int64{a.ID}, a.LastScannedAt); err != nil {
		t.Fatal(err)
	}
	report, err := engine.Rebuild(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.GroupsDeleted != 1 {
		t.Errorf("groups_deleted = %d, want 1", report.GroupsDeleted)
	}
	groups, err = store.ListGroups(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 0 {
		t.Errorf("stale group still present: %+v", groups)
	}
}

func TestRebuildConflictOnConcurrentLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	// Hold the advisory lock the way a concurrent rebuild would.
	blocker := duplicates.NewLock(cfg)
	locked, err := blocker.TryLock()
	if err != nil || !locked {
		t.Fatalf("TryLock: locked=%v err=%v", locked, err)
	}
	defer func() { _ = blocker.Unlock() }()

	engine := duplicates.New(cfg, store, logging.NewNop())
	_, err = engine.Rebuild(context.Background())
	if !errors.Is(err, services.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}
