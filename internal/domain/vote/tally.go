package vote

import (
	"sort"

	"github.com/google/uuid"
)

// OptionResult is the count for one option
type OptionResult struct {
	OptionID   uuid.UUID   `json:"option_id"`
	Label      string      `json:"label"`
	Position   int         `json:"position"`
	Count      int         `json:"count"`
	Percentage float64     `json:"percentage"`
	Voters     []uuid.UUID `json:"voters,omitempty"`
}

// Results is the tally of a vote
type Results struct {
	VoteID         uuid.UUID      `json:"vote_id"`
	Status         Status         `json:"status"`
	TotalResponses int            `json:"total_responses"`
	TotalVoters    int            `json:"total_voters"`
	Options        []OptionResult `json:"options"`
	Leading        []uuid.UUID    `json:"leading"`
}

// Tally sums response rows into per-option counts. Options are returned in
// position order; percentages are relative to the number of distinct voters.
// Responses for unknown options are ignored. Voter ids are only listed when
// the vote is not anonymous.
func Tally(v *Vote, responses []*Response) *Results {
	options := make([]Option, len(v.Options))
	copy(options, v.Options)
	sort.SliceStable(options, func(i, j int) bool { return options[i].Position < options[j].Position })

	index := make(map[uuid.UUID]int, len(options))
	results := &Results{
		VoteID:  v.ID,
		Status:  v.Status,
		Options: make([]OptionResult, len(options)),
		Leading: []uuid.UUID{},
	}
	for i, o := range options {
		index[o.ID] = i
		results.Options[i] = OptionResult{OptionID: o.ID, Label: o.Label, Position: o.Position}
	}

	voters := make(map[uuid.UUID]bool)
	for _, r := range responses {
		i, ok := index[r.OptionID]
		if !ok || r.VoteID != v.ID {
			continue
		}
		results.Options[i].Count++
		results.TotalResponses++
		voters[r.ProfileID] = true
		if !v.Anonymous {
			results.Options[i].Voters = append(results.Options[i].Voters, r.ProfileID)
		}
	}
	results.TotalVoters = len(voters)

	best := 0
	for i := range results.Options {
		if results.TotalVoters > 0 {
			results.Options[i].Percentage = float64(results.Options[i].Count) * 100 / float64(results.TotalVoters)
		}
		best = max(best, results.Options[i].Count)
	}
	if best > 0 {
		for _, o := range results.Options {
			if o.Count == best {
				results.Leading = append(results.Leading, o.OptionID)
			}
		}
	}

	return results
}
