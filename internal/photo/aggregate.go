package photo

import (
	"slices"

	"github.com/sells-group/suplook/internal/model"
)

// DefaultMaxPhotos bounds the photos kept per lead.
const DefaultMaxPhotos = 10

// Aggregate orders candidates by source priority, keeping discovery order
// within a source, derives the tier from the full list, and then truncates to
// limit photos. A non-positive limit keeps everything.
func Aggregate(candidates []model.Photo, delivery model.DeliveryPresence, limit int) ([]model.Photo, model.Tier) {
	ordered := slices.Clone(candidates)
	slices.SortStableFunc(ordered, func(a, b model.Photo) int {
		return a.Source.Priority() - b.Source.Priority()
	})

	tier := ClassifyTier(ordered, delivery)

	if limit > 0 && len(ordered) > limit {
		ordered = ordered[:limit]
	}
	if ordered == nil {
		ordered = []model.Photo{}
	}
	return ordered, tier
}

// ClassifyTier applies the tier policy in order: any directory photo is
// tier 1; otherwise any social photo or delivery listing is tier 2;
// otherwise tier 3.
func ClassifyTier(photos []model.Photo, delivery model.DeliveryPresence) model.Tier {
	if hasSource(photos, model.SourceDirectory) {
		return model.TierDirectory
	}
	if hasSource(photos, model.SourceSocial) || delivery.Any() {
		return model.TierSecondary
	}
	return model.TierRuleOnly
}

func hasSource(photos []model.Photo, src model.PhotoSource) bool {
	return slices.ContainsFunc(photos, func(p model.Photo) bool { return p.Source == src })
}
