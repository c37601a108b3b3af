package scoring

import (
	"sort"

	"github.com/andersCTO/monstrens-natt/internal/model"
)

// Number of named players required for a guess row to count as correct
const playersPerCorrectRow = 2

// Service computes final scores from faction ground truth and submitted
// guesses
type Service struct{}

// New creates a new scoring service
func New() *Service {
	return &Service{}
}

// Calculate scores each submission independently:
//
//   - +1 for every guess row whose two named players both truly belong to
//     the guessed faction.
//   - -1 for every named player who truly shares the submitter's own faction
//     but was guessed into a different one.
//
// A submitter without a resolved faction (e.g. the host) can still earn the
// +1 term; the own-faction penalty never triggers for them. Results are
// sorted by score descending with submission order preserved on ties.
func (s *Service) Calculate(players []*model.Player, submissions []model.Submission) []model.Score {
	factions := make(map[model.ConnectionID]string, len(players))
	names := make(map[model.ConnectionID]string, len(players))
	for _, p := range players {
		names[p.ID] = p.Name
		if p.Faction != "" {
			factions[p.ID] = p.Faction
		}
	}

	scores := make([]model.Score, 0, len(submissions))
	for _, sub := range submissions {
		var score, correctRows, wrongOwnFaction int
		submitterFaction := factions[sub.PlayerID]

		for _, guess := range sub.Guesses {
			correct := 0
			for _, target := range guess.Players {
				if factions[target] == guess.Faction {
					correct++
				}
			}
			if correct == playersPerCorrectRow {
				score++
				correctRows++
			}

			for _, target := range guess.Players {
				actual, ok := factions[target]
				if !ok {
					continue
				}
				if submitterFaction != "" && actual == submitterFaction && actual != guess.Faction {
					score--
					wrongOwnFaction++
				}
			}
		}

		name := names[sub.PlayerID]
		if name == "" {
			name = "Unknown"
		}
		scores = append(scores, model.Score{
			PlayerID:   sub.PlayerID,
			PlayerName: name,
			Score:      score,
			Details: model.ScoreDetails{
				CorrectRows:     correctRows,
				WrongOwnFaction: wrongOwnFaction,
			},
		})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})

	return scores
}
