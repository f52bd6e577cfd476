package session

import (
	"slices"
	"strings"

	"github.com/alkime/voicecollector/pkg/collections"
)

// drugNames is the closed list of drugs volunteers can record.
var drugNames = []string{
	"Paracetamol",
	"Ibuprofen",
	"Amoxicillin",
	"Metformin",
	"Atorvastatin",
	"Omeprazole",
	"Amlodipine",
	"Simvastatin",
	"Levothyroxine",
	"Warfarin",
	"Ciprofloxacin",
	"Prednisone",
	"Hydrochlorothiazide",
	"Acetaminophen",
	"Dexamethasone",
}

// Drugs returns the drug catalog in display order.
func Drugs() []string {
	return slices.Clone(drugNames)
}

// LookupDrug resolves name case-insensitively against the catalog and
// returns its canonical spelling.
func LookupDrug(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}

	return collections.Find(drugNames, func(d string) bool {
		return strings.EqualFold(d, name)
	})
}

// Gender is the self-reported speaker gender recorded with each sample.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

// Genders returns the selectable genders in display order.
func Genders() []Gender {
	return []Gender{GenderMale, GenderFemale}
}

// ParseGender resolves s case-insensitively.
func ParseGender(s string) (Gender, bool) {
	s = strings.TrimSpace(s)

	return collections.Find(Genders(), func(g Gender) bool {
		return strings.EqualFold(string(g), s)
	})
}
