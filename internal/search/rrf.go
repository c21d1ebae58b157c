package search

import (
	"regexp"
	"sort"

	"github.com/cortexlabs/codeindex/internal/storage"
)

// DefaultRRFK is the standard Reciprocal Rank Fusion constant.
const DefaultRRFK = 60

// MinSimilarity is the vector-search similarity floor (spec §4.3 step 5).
const MinSimilarity = 0.25

// bucketKey identifies one of the six RRF buckets: granularity × source.
type bucketKey struct {
	granularity storage.ContentType
	source      string // "fts" | "vector"
}

// scoredItem is one content item accumulating RRF score across buckets.
type scoredItem struct {
	ContentID   string
	Granularity storage.ContentType
	FilePath    string
	Name        string
	Content     string
	StartLine   int
	EndLine     int
	Score       float64
	hasLines    bool
}

// rankedBucket is a granularity/source-specific ranked list ready for RRF,
// generalized from the teacher's two-list mergeRRF into N lists summed by
// content_id (spec §4.3 step 6).
type rankedBucket struct {
	key   bucketKey
	items []scoredItem
}

// fuse implements RRF across however many buckets are supplied: contribute
// weight/(k+rank+1) per item per bucket, summing on content_id collision and
// backfilling (start_line, end_line) from later occurrences when the first
// occurrence lacked them.
func fuse(buckets []rankedBucket, weights map[storage.ContentType]float64, k int) []scoredItem {
	if k <= 0 {
		k = DefaultRRFK
	}

	merged := make(map[string]*scoredItem)
	order := make([]string, 0)

	for _, bucket := range buckets {
		weight := weights[bucket.key.granularity]
		if weight == 0 {
			weight = 1.0
		}
		for rank, item := range bucket.items {
			existing, ok := merged[item.ContentID]
			if !ok {
				copyItem := item
				copyItem.Score = 0
				merged[item.ContentID] = &copyItem
				existing = merged[item.ContentID]
				order = append(order, item.ContentID)
			}
			existing.Score += weight / float64(k+rank+1)
			if !existing.hasLines && item.hasLines {
				existing.StartLine = item.StartLine
				existing.EndLine = item.EndLine
				existing.hasLines = true
			}
			if existing.Content == "" && item.Content != "" {
				existing.Content = item.Content
			}
			if existing.Name == "" && item.Name != "" {
				existing.Name = item.Name
			}
		}
	}

	out := make([]scoredItem, 0, len(order))
	for _, id := range order {
		out = append(out, *merged[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// applyShortTokenBoost implements spec §4.3 step 7: tokens of length 1-3
// boost by 1.5x any item whose content matches \btoken\b, then re-sorts.
func applyShortTokenBoost(items []scoredItem, queryTerms []string) []scoredItem {
	var shortTokens []string
	for _, t := range queryTerms {
		if len(t) >= 1 && len(t) <= 3 {
			shortTokens = append(shortTokens, t)
		}
	}
	if len(shortTokens) == 0 {
		return items
	}

	res := make([]scoredItem, len(items))
	copy(res, items)
	for _, tok := range shortTokens {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(tok) + `\b`)
		for i := range res {
			if re.MatchString(res[i].Content) || re.MatchString(res[i].Name) {
				res[i].Score *= 1.5
			}
		}
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].Score > res[j].Score })
	return res
}
