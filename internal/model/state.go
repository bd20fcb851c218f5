package model

import "time"

// DomainStat holds per-domain history. Attempted and Correct only grow;
// Score is an exponentially weighted proficiency in [0,1].
type DomainStat struct {
	Attempted int     `json:"attempted"`
	Correct   int     `json:"correct"`
	Score     float64 `json:"score"`
}

// MisconceptionRecord tracks how often a misconception recurred.
type MisconceptionRecord struct {
	MisconceptionID MisconceptionID `json:"misconception_id"`
	Count           int             `json:"count"`
	LastSeen        time.Time       `json:"last_seen"`
}

// StudentState is the durable per-user record, read at plan time and
// written once at session end. Counters are monotonic: sessions add to
// them, nothing resets them.
type StudentState struct {
	DomainStats      map[string]DomainStat `json:"domain_stats"`
	Misconceptions   []MisconceptionRecord `json:"misconceptions"`
	PreferredMinutes int                   `json:"preferred_minutes"`
	LastSession      time.Time             `json:"last_session,omitzero"`
}

// NewStudentState returns a zeroed state for a first-time user.
func NewStudentState() *StudentState {
	return &StudentState{
		DomainStats:      make(map[string]DomainStat),
		PreferredMinutes: 30,
	}
}

// scoreDecay weights the previous proficiency score against the current
// session's result when blending.
const scoreDecay = 0.6

// ApplyDiagnosis merges one session's diagnosis into the state.
// domainOf maps question id to its domain tag. The update is built in
// memory; persistence is the caller's single atomic save.
func (s *StudentState) ApplyDiagnosis(diag *Diagnosis, domainOf map[string]string, now time.Time) {
	if s.DomainStats == nil {
		s.DomainStats = make(map[string]DomainStat)
	}
	s.LastSession = now

	type tally struct{ attempted, correct int }
	perDomain := make(map[string]*tally)
	for _, r := range diag.Results {
		domain := domainOf[r.ID]
		if domain == "" {
			domain = "unknown"
		}
		tl := perDomain[domain]
		if tl == nil {
			tl = &tally{}
			perDomain[domain] = tl
		}
		tl.attempted++
		if r.Correct {
			tl.correct++
		}
	}

	for domain, tl := range perDomain {
		stat := s.DomainStats[domain]
		stat.Attempted += tl.attempted
		stat.Correct += tl.correct

		sessionScore := float64(tl.correct) / float64(tl.attempted)
		prev := stat.Score
		if stat.Attempted == tl.attempted {
			// First contact with this domain: no history to blend.
			prev = 0.5
		}
		stat.Score = round3(scoreDecay*prev + (1-scoreDecay)*sessionScore)

		s.DomainStats[domain] = stat
	}

	existing := make(map[MisconceptionID]int, len(s.Misconceptions))
	for i, m := range s.Misconceptions {
		existing[m.MisconceptionID] = i
	}
	for _, mid := range diag.TopMisconceptions {
		if idx, ok := existing[mid]; ok {
			s.Misconceptions[idx].Count++
			s.Misconceptions[idx].LastSeen = now
			continue
		}
		s.Misconceptions = append(s.Misconceptions, MisconceptionRecord{
			MisconceptionID: mid,
			Count:           1,
			LastSeen:        now,
		})
		existing[mid] = len(s.Misconceptions) - 1
	}
}

func round3(v float64) float64 {
	return float64(int(v*1000+0.5)) / 1000
}
