package assign

import (
	"log/slog"

	"github.com/andersCTO/monstrens-natt/internal/dependencies/random"
	"github.com/andersCTO/monstrens-natt/internal/faction"
	"github.com/andersCTO/monstrens-natt/internal/model"
)

// Player counts below this use a reduced faction subset
const fullCatalogThreshold = 10

// Service partitions a player set into balanced faction groups
type Service struct {
	catalog *faction.Catalog
	random  random.Random
	logger  *slog.Logger
}

// New creates a new assignment service
func New(catalog *faction.Catalog, rnd random.Random, logger *slog.Logger) *Service {
	return &Service{
		catalog: catalog,
		random:  rnd,
		logger:  logger,
	}
}

// Assign maps every player to exactly one faction. Small games draw from a
// shuffled subset of max(3, N/2) factions; games of 10+ use all five. Slots
// are distributed as evenly as integer division allows, with the first
// `remainder` factions (in shuffled order) taking one extra player.
func (s *Service) Assign(players []model.ConnectionID) map[model.ConnectionID]string {
	assignments := make(map[model.ConnectionID]string, len(players))
	n := len(players)
	if n == 0 {
		return assignments
	}

	names := s.catalog.Names()
	random.Shuffle(s.random, names)

	k := len(names)
	if n < fullCatalogThreshold {
		k = max(3, n/2)
		if k > len(names) {
			k = len(names)
		}
	}
	active := names[:k]

	base := n / k
	remainder := n % k

	pool := make([]string, 0, n)
	for i, name := range active {
		count := base
		if i < remainder {
			count++
		}
		for j := 0; j < count; j++ {
			pool = append(pool, name)
		}
	}

	random.Shuffle(s.random, pool)

	for i, id := range players {
		assignments[id] = pool[i]
		s.logger.Debug("faction assigned",
			slog.String("player_id", string(id)),
			slog.String("faction", pool[i]))
	}

	return assignments
}
