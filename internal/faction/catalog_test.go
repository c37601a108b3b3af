package faction

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/andersCTO/monstrens-natt/internal/dependencies/random"
	"github.com/andersCTO/monstrens-natt/internal/model"
)

type CatalogSuite struct {
	suite.Suite
	catalog *Catalog
}

func TestCatalogSuite(t *testing.T) {
	suite.Run(t, new(CatalogSuite))
}

func (s *CatalogSuite) SetupTest() {
	s.catalog = NewCatalog(random.New())
}

func (s *CatalogSuite) TestAllReturnsFiveFactionsInStableOrder() {
	first := s.catalog.All()
	second := s.catalog.All()

	s.Len(first, 5)
	for i := range first {
		s.Equal(first[i].Name, second[i].Name)
	}
	s.Equal("Vampyr", first[0].Name)
	s.Equal("De Fördömda", first[4].Name)
}

func (s *CatalogSuite) TestNamesMatchAll() {
	names := s.catalog.Names()
	all := s.catalog.All()

	s.Len(names, len(all))
	for i, f := range all {
		s.Equal(f.Name, names[i])
	}
}

func (s *CatalogSuite) TestByNameSucceeds() {
	f, err := s.catalog.ByName("Varulv")
	s.Require().NoError(err)

	s.Equal("Varulv", f.Name)
	s.Equal("🐺", f.Symbol)
	s.NotEmpty(f.Description)
	s.Len(f.TellingTales, 3)
	s.Len(f.ForbiddenWords, 5)
	s.Len(f.FavoritePhrases, 3)
}

func (s *CatalogSuite) TestByNameUnknownFaction() {
	_, err := s.catalog.ByName("Zombie")
	s.ErrorIs(err, model.ErrFactionNotFound)
}

func (s *CatalogSuite) TestRandomizedSubsetBoundedSizes() {
	f, err := s.catalog.RandomizedSubset("Häxa")
	s.Require().NoError(err)

	s.Len(f.TellingTales, 3)
	s.Len(f.ForbiddenWords, 5)
	s.Len(f.FavoritePhrases, 3)
}

func (s *CatalogSuite) TestRandomizedSubsetDrawsFromCatalogData() {
	original, err := s.catalog.ByName("Vampyr")
	s.Require().NoError(err)

	f, err := s.catalog.RandomizedSubset("Vampyr")
	s.Require().NoError(err)

	for _, tale := range f.TellingTales {
		s.Contains(original.TellingTales, tale)
	}
	for _, word := range f.ForbiddenWords {
		s.Contains(original.ForbiddenWords, word)
	}
	for _, phrase := range f.FavoritePhrases {
		s.Contains(original.FavoritePhrases, phrase)
	}
}

func (s *CatalogSuite) TestRandomizedSubsetUnknownFaction() {
	_, err := s.catalog.RandomizedSubset("Zombie")
	s.ErrorIs(err, model.ErrFactionNotFound)
}

func (s *CatalogSuite) TestRandomizedSubsetDoesNotMutateCatalog() {
	before, _ := s.catalog.ByName("Vampyr")
	for i := 0; i < 10; i++ {
		_, _ = s.catalog.RandomizedSubset("Vampyr")
	}
	after, _ := s.catalog.ByName("Vampyr")

	s.Equal(before.TellingTales, after.TellingTales)
	s.Equal(before.ForbiddenWords, after.ForbiddenWords)
	s.Equal(before.FavoritePhrases, after.FavoritePhrases)
}

func (s *CatalogSuite) TestRandomNameIsCatalogMember() {
	names := s.catalog.Names()
	for i := 0; i < 20; i++ {
		s.Contains(names, s.catalog.RandomName())
	}
}
