package faction

import (
	"github.com/andersCTO/monstrens-natt/internal/dependencies/random"
	"github.com/andersCTO/monstrens-natt/internal/model"
)

// Sizes of the randomized reveal subsets
const (
	tellsShown     = 3
	forbiddenShown = 5
	phrasesShown   = 3
)

// Info holds the static metadata for one faction
type Info struct {
	Name            string   `json:"name"`
	Symbol          string   `json:"symbol"`
	Description     string   `json:"description"`
	Color           string   `json:"color"`
	TellingTales    []string `json:"tellingTales"`
	ForbiddenWords  []string `json:"forbiddenWords"`
	FavoritePhrases []string `json:"favoritePhrases"`
}

// Catalog is the read-only registry of the five factions
type Catalog struct {
	random  random.Random
	ordered []Info
	byName  map[string]Info
}

// NewCatalog creates the catalog with the fixed faction set
func NewCatalog(rnd random.Random) *Catalog {
	c := &Catalog{
		random:  rnd,
		ordered: factionData(),
		byName:  make(map[string]Info),
	}
	for _, f := range c.ordered {
		c.byName[f.Name] = f
	}
	return c
}

// All returns every faction in declaration order
func (c *Catalog) All() []Info {
	out := make([]Info, len(c.ordered))
	for i, f := range c.ordered {
		out[i] = cloneInfo(f)
	}
	return out
}

// Names returns the faction names in declaration order
func (c *Catalog) Names() []string {
	names := make([]string, len(c.ordered))
	for i, f := range c.ordered {
		names[i] = f.Name
	}
	return names
}

// ByName returns the faction with the given name
func (c *Catalog) ByName(name string) (Info, error) {
	f, ok := c.byName[name]
	if !ok {
		return Info{}, model.ErrFactionNotFound
	}
	return cloneInfo(f), nil
}

// RandomizedSubset returns the faction with its tells, forbidden words and
// phrases independently shuffled and truncated to the reveal sizes, so each
// role reveal feels fresh without ever exceeding the fixed bounds.
func (c *Catalog) RandomizedSubset(name string) (Info, error) {
	f, err := c.ByName(name)
	if err != nil {
		return Info{}, err
	}
	f.TellingTales = c.shuffledPrefix(f.TellingTales, tellsShown)
	f.ForbiddenWords = c.shuffledPrefix(f.ForbiddenWords, forbiddenShown)
	f.FavoritePhrases = c.shuffledPrefix(f.FavoritePhrases, phrasesShown)
	return f, nil
}

// RandomName picks a uniformly random faction name, used for late joiners
func (c *Catalog) RandomName() string {
	return c.ordered[c.random.Intn(len(c.ordered))].Name
}

func (c *Catalog) shuffledPrefix(items []string, n int) []string {
	random.Shuffle(c.random, items)
	if len(items) > n {
		items = items[:n]
	}
	return items
}

func cloneInfo(f Info) Info {
	f.TellingTales = append([]string(nil), f.TellingTales...)
	f.ForbiddenWords = append([]string(nil), f.ForbiddenWords...)
	f.FavoritePhrases = append([]string(nil), f.FavoritePhrases...)
	return f
}

func factionData() []Info {
	return []Info{
		{
			Name:        "Vampyr",
			Symbol:      "🧛",
			Description: "Odödliga varelser som smyger i nattens skuggor och suger livsenergi ur sina offer.",
			Color:       "bg-red-600",
			TellingTales: []string{
				"Du känner dig alltid piggare på kvällen än på morgonen",
				"Du har en mystisk motvilja mot vitlök",
				"Du föredrar ditt kött rött, mycket rött",
			},
			ForbiddenWords: []string{
				"Blod",
				"Hals",
				"Bett",
				"Mörker",
				"Odödlig",
			},
			FavoritePhrases: []string{
				"Jag vill suga...",
				"Natten är ung",
				"Kom närmare",
			},
		},
		{
			Name:        "Varulv",
			Symbol:      "🐺",
			Description: "Människor med en vild och farlig förbannelse – vid fullmåne förvandlas de till vargliknande monster.",
			Color:       "bg-amber-700",
			TellingTales: []string{
				"Du blir ovanligt uppjagad vid fullmåne",
				"Du har märkligt mycket kroppsbehåring",
				"Du föredrar att äta med händerna",
			},
			ForbiddenWords: []string{
				"Måne",
				"Varg",
				"Yla",
				"Päls",
				"Förvandling",
			},
			FavoritePhrases: []string{
				"Jag känner mig vild ikväll",
				"Instinkterna tar över",
				"Det ligger i naturen",
			},
		},
		{
			Name:        "Häxa",
			Symbol:      "🔮",
			Description: "Mäktiga utövare av mörk magi, experter på brygder, besvärjelser och förbannelser.",
			Color:       "bg-purple-600",
			TellingTales: []string{
				"Du samlar på ovanliga örter och \"ingredienser\"",
				"Du pratar ibland med ditt husdjur som om det förstår",
				"Du har en speciell förmåga att \"känna\" saker innan de händer",
			},
			ForbiddenWords: []string{
				"Trolldryck",
				"Besvärjelse",
				"Kruka",
				"Magi",
				"Kvast",
			},
			FavoritePhrases: []string{
				"Jag har känslan att...",
				"Stjärnorna säger att...",
				"En liten ritual aldrig skadar",
			},
		},
		{
			Name:        "Monsterjägare",
			Symbol:      "⚔️",
			Description: "Modiga krigare dedikerade till att skydda mänskligheten från övernaturliga hot.",
			Color:       "bg-blue-600",
			TellingTales: []string{
				"Du har alltid en kniv eller verktyg på dig \"för säkerhets skull\"",
				"Du är misstänksam mot nya människor tills de bevisat sig pålitliga",
				"Du känner dig tryggare med ryggen mot väggen",
			},
			ForbiddenWords: []string{
				"Vapen",
				"Jakt",
				"Stake",
				"Silver",
				"Skydda",
			},
			FavoritePhrases: []string{
				"Man kan aldrig vara för försiktig",
				"Jag har sett värre",
				"Var uppmärksam",
			},
		},
		{
			Name:        "De Fördömda",
			Symbol:      "💀",
			Description: "Dömda själar som varken tillhör de levande eller de döda – rastlösa andar med oavslutade angelägenheter.",
			Color:       "bg-gray-700",
			TellingTales: []string{
				"Du känner dig ibland \"frånkopplad\" från världen omkring dig",
				"Du har svårt att komma ihåg vissa perioder av ditt liv",
				"Folk säger ibland att du \"ser rakt igenom dem\"",
			},
			ForbiddenWords: []string{
				"Död",
				"Spöke",
				"Ande",
				"Himmel",
				"Helvete",
			},
			FavoritePhrases: []string{
				"Jag känner mig tom",
				"Det här känns inte riktigt",
				"Jag väntar på något",
			},
		},
	}
}
