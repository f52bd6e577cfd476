package session

import "strings"

// NotFromPharmacy is the affiliation recorded for unaffiliated volunteers.
const NotFromPharmacy = "Not from pharmacy"

// Field names reported in ValidationError.
const (
	FieldPharmacyName = "pharmacyName"
	FieldGender       = "gender"
	FieldDrugName     = "drugName"
)

// Metadata is the demographic information collected on the info step.
type Metadata struct {
	AffiliatedWithPharmacy bool   `json:"affiliatedWithPharmacy"`
	PharmacyName           string `json:"pharmacyName,omitempty"`
	Gender                 Gender `json:"gender"`
	DrugName               string `json:"drugName"`
}

// Normalize validates m and returns a copy with canonical gender and drug
// spellings. The pharmacy name is trimmed, and dropped for unaffiliated
// volunteers.
func (m Metadata) Normalize() (Metadata, error) {
	var fields []FieldError

	m.PharmacyName = strings.TrimSpace(m.PharmacyName)
	if !m.AffiliatedWithPharmacy {
		m.PharmacyName = ""
	} else if m.PharmacyName == "" {
		fields = append(fields, FieldError{Field: FieldPharmacyName, Reason: "required when affiliated with a pharmacy"})
	}

	switch g, ok := ParseGender(string(m.Gender)); {
	case strings.TrimSpace(string(m.Gender)) == "":
		fields = append(fields, FieldError{Field: FieldGender, Reason: "required"})
	case !ok:
		fields = append(fields, FieldError{Field: FieldGender, Reason: "must be Male or Female"})
	default:
		m.Gender = g
	}

	switch d, ok := LookupDrug(m.DrugName); {
	case strings.TrimSpace(m.DrugName) == "":
		fields = append(fields, FieldError{Field: FieldDrugName, Reason: "required"})
	case !ok:
		fields = append(fields, FieldError{Field: FieldDrugName, Reason: "not in the drug list"})
	default:
		m.DrugName = d
	}

	if len(fields) > 0 {
		return Metadata{}, &ValidationError{Fields: fields}
	}

	return m, nil
}

// Affiliation returns the pharmacy name, or NotFromPharmacy.
func (m Metadata) Affiliation() string {
	if m.AffiliatedWithPharmacy {
		return m.PharmacyName
	}

	return NotFromPharmacy
}
