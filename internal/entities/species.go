package entities

import "strings"

type Species struct {
	Name  string
	Emoji string
	Class string
}

func (s Species) Title() string {
	if s.Name == "" {
		return ""
	}

	return strings.ToUpper(s.Name[:1]) + s.Name[1:]
}

var knownSpecies = map[string]Species{
	"setosa":     {Name: "setosa", Emoji: "🌱", Class: "species-setosa"},
	"versicolor": {Name: "versicolor", Emoji: "🌿", Class: "species-versicolor"},
	"virginica":  {Name: "virginica", Emoji: "💐", Class: "species-virginica"},
}

func LookupSpecies(label string) (Species, bool) {
	s, ok := knownSpecies[label]
	return s, ok
}
