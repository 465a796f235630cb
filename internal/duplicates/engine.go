package duplicates

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"

	"mediavault/internal/catalog"
	"mediavault/internal/config"
	"mediavault/internal/logging"
	"mediavault/internal/services"
)

// Report summarizes one rebuild.
type Report struct {
	ExactGroups   int
	FuzzyGroups   int
	MembersTotal  int
	GroupsDeleted int64
	Elapsed       time.Duration
}

// Engine rebuilds the duplicate group tables from the live asset set.
type Engine struct {
	cfg      *config.Config
	store    *catalog.Store
	logger   *slog.Logger
	lockPath string
}

// New constructs an engine. The rebuild lock file lives next to the
// catalog database.
func New(cfg *config.Config, store *catalog.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		cfg:      cfg,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "duplicates"),
		lockPath: filepath.Join(cfg.Paths.CatalogDir, "duplicates.lock"),
	}
}

// NewLock returns the advisory rebuild lock for the configured catalog
// directory. Rebuild acquires the same lock internally.
func NewLock(cfg *config.Config) *flock.Flock {
	return flock.New(filepath.Join(cfg.Paths.CatalogDir, "duplicates.lock"))
}

// group is an in-memory duplicate group before persistence, ordered members
// included.
type group struct {
	fingerprint string
	kind        string
	confidence  float64
	title       string
	year        int
	season      int
	episode     int
	mediaKind   string
	members     []*rankedMember
}

type rankedMember struct {
	asset  *catalog.MediaAsset
	rank   int
	action string
	reason string
}

// Rebuild recomputes every duplicate group. It is idempotent and
// destructive toward the group tables: groups whose fingerprints vanish
// are deleted, reappearing groups keep their reviewed state and detection
// time, and members are replaced wholesale. Concurrent rebuilds fail with
// a conflict via a named advisory lock.
func (e *Engine) Rebuild(ctx context.Context) (*Report, error) {
	start := time.Now()

	lock := flock.New(e.lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "duplicates", "acquire lock", "lock "+e.lockPath, err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrConflict, "duplicates", "acquire lock", "another rebuild is in progress", nil)
	}
	defer func() { _ = lock.Unlock() }()

	assets, err := e.store.ListLiveAssets(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrDependency, "duplicates", "list assets", "catalog unreachable", err)
	}

	exactGroups, grouped := e.exactPass(assets)
	fuzzyGroups := e.fuzzyPass(assets, grouped)

	groups := append(exactGroups, fuzzyGroups...)
	for _, g := range groups {
		e.rank(g)
		e.recommend(g)
	}

	report := &Report{ExactGroups: len(exactGroups), FuzzyGroups: len(fuzzyGroups)}
	err = e.store.WithTx(ctx, func(tx *sql.Tx) error {
		keep := make([]string, 0, len(groups))
		for _, g := range groups {
			keep = append(keep, g.fingerprint)
		}
		deleted, err := catalog.DeleteGroupsNotIn(ctx, tx, keep)
		if err != nil {
			return err
		}
		report.GroupsDeleted = deleted

		for _, g := range groups {
			row := &catalog.DuplicateGroup{
				GroupFingerprint:  g.fingerprint,
				Kind:              g.kind,
				Confidence:        g.confidence,
				Title:             g.title,
				Year:              g.year,
				Season:            g.season,
				Episode:           g.episode,
				MediaKind:         g.mediaKind,
				MemberCount:       len(g.members),
				RecommendedAction: groupAction(g),
				ActionReason:      groupReason(g),
			}
			if err := catalog.UpsertGroup(ctx, tx, row); err != nil {
				return err
			}
			members := make([]*catalog.DuplicateMember, 0, len(g.members))
			for _, m := range g.members {
				members = append(members, &catalog.DuplicateMember{
					AssetID:           m.asset.ID,
					Rank:              m.rank,
					RecommendedAction: m.action,
					ActionReason:      m.reason,
				})
			}
			if err := catalog.ReplaceMembers(ctx, tx, row.ID, members); err != nil {
				return err
			}
			report.MembersTotal += len(members)
		}
		return nil
	})
	if err != nil {
		return nil, services.Wrap(services.ErrDependency, "duplicates", "persist rebuild", "rebuild transaction failed", err)
	}

	report.Elapsed = time.Since(start)
	e.logger.Info("duplicate rebuild finished",
		logging.Int("exact_groups", report.ExactGroups),
		logging.Int("fuzzy_groups", report.FuzzyGroups),
		logging.Int("members", report.MembersTotal),
		logging.Int64("groups_deleted", report.GroupsDeleted),
		logging.Duration("elapsed", report.Elapsed))
	return report, nil
}

// exactPass groups assets sharing a non-empty content fingerprint. Only
// fingerprints held by two or more live assets form a group.
func (e *Engine) exactPass(assets []*catalog.MediaAsset) ([]*group, map[int64]struct{}) {
	byFingerprint := make(map[string][]*catalog.MediaAsset)
	order := make([]string, 0)
	for _, asset := range assets {
		if asset.ContentFingerprint == "" {
			continue
		}
		if _, seen := byFingerprint[asset.ContentFingerprint]; !seen {
			order = append(order, asset.ContentFingerprint)
		}
		byFingerprint[asset.ContentFingerprint] = append(byFingerprint[asset.ContentFingerprint], asset)
	}

	grouped := make(map[int64]struct{})
	var groups []*group
	for _, fingerprint := range order {
		members := byFingerprint[fingerprint]
		if len(members) < 2 {
			continue
		}
		first := members[0]
		g := &group{
			fingerprint: "exact:" + fingerprint,
			kind:        catalog.GroupExact,
			confidence:  100,
			title:       first.ParsedTitle,
			year:        first.ParsedYear,
			season:      first.ParsedSeason,
			episode:     first.ParsedEpisode,
			mediaKind:   first.MediaKind,
		}
		for _, asset := range members {
			g.members = append(g.members, &rankedMember{asset: asset})
			grouped[asset.ID] = struct{}{}
		}
		groups = append(groups, g)
	}
	return groups, grouped
}

// fuzzyPass clusters the remaining assets by parsed identity. An asset
// joins the first cluster containing a member it matches; input order is
// the store's logical-path order, so clustering is deterministic.
func (e *Engine) fuzzyPass(assets []*catalog.MediaAsset, grouped map[int64]struct{}) []*group {
	threshold := e.cfg.Duplicates.FuzzySimilarityThreshold

	var clusters []*group
	for _, asset := range assets {
		if _, done := grouped[asset.ID]; done {
			continue
		}
		if asset.ParsedTitle == "" {
			continue
		}
		if asset.MediaKind != catalog.KindMovie && asset.MediaKind != catalog.KindTV {
			continue
		}

		placed := false
		for _, cluster := range clusters {
			if cluster.mediaKind != asset.MediaKind {
				continue
			}
			for _, member := range cluster.members {
				if pairMatch(asset, member.asset, threshold) {
					cluster.members = append(cluster.members, &rankedMember{asset: asset})
					placed = true
					break
				}
			}
			if placed {
				break
			}
		}
		if !placed {
			first := &group{
				kind:      catalog.GroupFuzzy,
				title:     asset.ParsedTitle,
				year:      asset.ParsedYear,
				season:    asset.ParsedSeason,
				episode:   asset.ParsedEpisode,
				mediaKind: asset.MediaKind,
				members:   []*rankedMember{{asset: asset}},
			}
			clusters = append(clusters, first)
		}
	}

	groups := make([]*group, 0, len(clusters))
	for _, cluster := range clusters {
		if len(cluster.members) < 2 {
			continue
		}
		cluster.fingerprint = fuzzyFingerprint(cluster)
		cluster.confidence = clusterConfidence(cluster)
		groups = append(groups, cluster)
	}
	return groups
}

// pairMatch applies the per-kind identity rules.
func pairMatch(a, b *catalog.MediaAsset, threshold int) bool {
	similarity := Similarity(a.ParsedTitle, b.ParsedTitle)
	switch a.MediaKind {
	case catalog.KindTV:
		return a.ParsedSeason == b.ParsedSeason &&
			a.ParsedEpisode == b.ParsedEpisode &&
			similarity >= threshold
	case catalog.KindMovie:
		if a.ParsedYear == 0 && b.ParsedYear == 0 {
			return similarity >= 95
		}
		return a.ParsedYear == b.ParsedYear && similarity >= threshold
	default:
		return false
	}
}

func fuzzyFingerprint(g *group) string {
	first := g.members[0].asset
	key := tokenSort(first.ParsedTitle)
	switch g.mediaKind {
	case catalog.KindTV:
		return fmt.Sprintf("fuzzy:%s:%s:s%02de%02d", g.mediaKind, key, first.ParsedSeason, first.ParsedEpisode)
	default:
		return fmt.Sprintf("fuzzy:%s:%s:%d", g.mediaKind, key, first.ParsedYear)
	}
}

// clusterConfidence is the minimum title similarity between the cluster's
// first member and every other member.
func clusterConfidence(g *group) float64 {
	confidence := 100
	first := g.members[0].asset
	for _, member := range g.members[1:] {
		if sim := Similarity(first.ParsedTitle, member.asset.ParsedTitle); sim < confidence {
			confidence = sim
		}
	}
	return float64(confidence)
}

// rank orders members by quality score descending, then size descending,
// then logical path ascending, and assigns ranks starting at 1.
func (e *Engine) rank(g *group) {
	sort.SliceStable(g.members, func(i, j int) bool {
		a, b := g.members[i].asset, g.members[j].asset
		if a.QualityScore != b.QualityScore {
			return a.QualityScore > b.QualityScore
		}
		if a.SizeBytes != b.SizeBytes {
			return a.SizeBytes > b.SizeBytes
		}
		return a.LogicalPath < b.LogicalPath
	})
	for i, member := range g.members {
		member.rank = i + 1
	}
}

// recommend assigns per-member recommendations. Rank 1 keeps; lower ranks
// stage or go to review depending on the quality delta and the language
// guardrails.
func (e *Engine) recommend(g *group) {
	best := g.members[0]
	best.action = catalog.ActionKeep
	best.reason = "highest quality in group"

	for _, member := range g.members[1:] {
		delta := best.asset.QualityScore - member.asset.QualityScore
		concern, concernReason, _ := CheckLanguageGuardrail(member.asset, best.asset)

		switch {
		case delta < 20:
			member.action = catalog.ActionReview
			member.reason = "close quality; human judgment required"
		case concern:
			member.action = catalog.ActionReview
			member.reason = concernReason
		default:
			member.action = catalog.ActionStage
			member.reason = fmt.Sprintf("quality delta %d below best member", delta)
		}
	}
}

func groupAction(g *group) string {
	for _, member := range g.members {
		if member.action == catalog.ActionReview {
			return catalog.ActionReview
		}
	}
	return catalog.ActionStageLower
}

func groupReason(g *group) string {
	if groupAction(g) == catalog.ActionReview {
		return "one or more members need human review"
	}
	return "lower-ranked members can be staged"
}
