package ledger

import "sort"

func sortSummaries(summaries []VideoSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].UpdatedAt.Equal(summaries[j].UpdatedAt) {
			return summaries[i].VideoID < summaries[j].VideoID
		}
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
}
