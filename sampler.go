package classifier

import (
	"math/rand"
	"sort"
)

// StrategicSampler selects the bounded subset of records promoted to the LLM
// tier in balanced mode. It spends the budget where the expensive tier buys
// the most: claim-flagged records first, then a proportional slice of every
// sentiment stratum, then a seeded uniform fill. Given identical inputs,
// budget and seed, the selection is fully reproducible.
type StrategicSampler struct {
	budget int
	seed   int64
}

// NewStrategicSampler creates a sampler with an absolute record budget
func NewStrategicSampler(budget int, seed int64) *StrategicSampler {
	return &StrategicSampler{budget: budget, seed: seed}
}

// Sample returns exactly min(budget, len(labels)) unique record positions,
// in ascending order. labels holds the cheap-phase labels, aligned with the
// input collection.
func (s *StrategicSampler) Sample(labels []Label) []int {
	n := len(labels)
	budget := s.budget
	if budget >= n {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}
	if budget <= 0 {
		return nil
	}

	selected := make([]int, 0, budget)
	taken := make([]bool, n)

	// 1. Claim-flagged records, in index order, up to the budget
	for i := 0; i < n && len(selected) < budget; i++ {
		if labels[i].IsClaim != nil && *labels[i].IsClaim {
			selected = append(selected, i)
			taken[i] = true
		}
	}

	// 2. Spread the remaining budget proportionally across sentiment strata
	if remaining := budget - len(selected); remaining > 0 {
		strata := make(map[string][]int)
		unselected := 0
		for i := 0; i < n; i++ {
			if taken[i] {
				continue
			}
			strata[labels[i].Sentiment] = append(strata[labels[i].Sentiment], i)
			unselected++
		}

		sentiments := make([]string, 0, len(strata))
		for sentiment := range strata {
			sentiments = append(sentiments, sentiment)
		}
		sort.Strings(sentiments)

		for _, sentiment := range sentiments {
			stratum := strata[sentiment]
			quota := remaining * len(stratum) / unselected
			for i := 0; i < quota && i < len(stratum) && len(selected) < budget; i++ {
				selected = append(selected, stratum[i])
				taken[stratum[i]] = true
			}
		}
	}

	// 3. Seeded uniform fill from whatever is left
	if len(selected) < budget {
		var rest []int
		for i := 0; i < n; i++ {
			if !taken[i] {
				rest = append(rest, i)
			}
		}
		rng := rand.New(rand.NewSource(s.seed))
		rng.Shuffle(len(rest), func(a, b int) { rest[a], rest[b] = rest[b], rest[a] })
		for _, i := range rest {
			if len(selected) == budget {
				break
			}
			selected = append(selected, i)
		}
	}

	sort.Ints(selected)
	return selected
}
