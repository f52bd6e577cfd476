package session_test

import (
	"testing"

	"github.com/alkime/voicecollector/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrugs(t *testing.T) {
	t.Parallel()

	drugs := session.Drugs()
	require.Len(t, drugs, 15)
	assert.Equal(t, "Paracetamol", drugs[0])
	assert.Equal(t, "Dexamethasone", drugs[len(drugs)-1])

	drugs[0] = "Mutated"
	assert.Equal(t, "Paracetamol", session.Drugs()[0], "catalog is copied")
}

func TestLookupDrug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "Ibuprofen", want: "Ibuprofen", ok: true},
		{in: "  hydrochlorothiazide ", want: "Hydrochlorothiazide", ok: true},
		{in: "WARFARIN", want: "Warfarin", ok: true},
		{in: "Aspirin"},
		{in: ""},
	}

	for _, tt := range tests {
		got, ok := session.LookupDrug(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseGender(t *testing.T) {
	t.Parallel()

	g, ok := session.ParseGender("male")
	require.True(t, ok)
	assert.Equal(t, session.GenderMale, g)

	g, ok = session.ParseGender(" FEMALE")
	require.True(t, ok)
	assert.Equal(t, session.GenderFemale, g)

	_, ok = session.ParseGender("")
	assert.False(t, ok)
}

func TestMetadata_Affiliation(t *testing.T) {
	t.Parallel()

	assert.Equal(t, session.NotFromPharmacy, session.Metadata{PharmacyName: "ignored"}.Affiliation())
	assert.Equal(t, "Green Life",
		session.Metadata{AffiliatedWithPharmacy: true, PharmacyName: "Green Life"}.Affiliation())
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	_, err := session.Metadata{AffiliatedWithPharmacy: true}.Normalize()

	var verr *session.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "please fill in all fields: pharmacyName, gender, drugName", err.Error())
	assert.False(t, verr.Has("nope"))
}

func TestStep_Text(t *testing.T) {
	t.Parallel()

	for _, s := range session.Steps() {
		b, err := s.MarshalText()
		require.NoError(t, err)

		var back session.Step
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, s, back)
	}

	var s session.Step
	require.Error(t, s.UnmarshalText([]byte("review")))
	assert.Equal(t, "Record", session.StepRecord.Label())
}
