package mocktest

import (
	"math"
	"math/rand/v2"
	"sort"
	"strconv"

	"github.com/cloudtutor/cloudtutor/internal/model"
)

// Session length bounds, inclusive.
const (
	MinQuestions = 40
	MaxQuestions = 60
)

// BuildSession samples a randomized full-length practice exam from the
// question bank, between MinQuestions and MaxQuestions items, and derives
// a plan describing the sampled domain mix. Question ids are renumbered
// "1".."N" so callers never see bank internals.
func BuildSession() (*model.Plan, *model.Exam) {
	count := MinQuestions + rand.IntN(MaxQuestions-MinQuestions+1)

	perm := rand.Perm(len(questionBank))
	questions := make([]model.Question, count)
	for i := 0; i < count; i++ {
		q := questionBank[perm[i]]
		q.ID = strconv.Itoa(i + 1)
		questions[i] = q
	}

	domainCounts := make(map[string]int)
	domains := make([]string, 0, 8)
	for _, q := range questions {
		if domainCounts[q.Domain] == 0 {
			domains = append(domains, q.Domain)
		}
		domainCounts[q.Domain]++
	}
	sort.SliceStable(domains, func(a, b int) bool {
		return domainCounts[domains[a]] > domainCounts[domains[b]]
	})

	weights := make(map[string]float64, len(domainCounts))
	for domain, n := range domainCounts {
		weights[domain] = math.Round(float64(n)/float64(count)*1000) / 1000
	}

	nextFocus := make([]string, 0, 3)
	for _, domain := range domains {
		mid := string(model.DefaultMisconceptionForDomain(domain))
		if containsString(nextFocus, mid) {
			continue
		}
		nextFocus = append(nextFocus, mid)
		if len(nextFocus) == 3 {
			break
		}
	}
	if len(nextFocus) == 0 {
		nextFocus = []string{string(model.MisconceptionTerms)}
	}

	plan := &model.Plan{
		Domains:         domains,
		Weights:         weights,
		TargetQuestions: count,
		NextFocus:       nextFocus,
	}
	return plan, &model.Exam{Questions: questions}
}

func containsString(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
