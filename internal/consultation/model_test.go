package consultation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	rec := New(" call-1 ")
	assert.Equal(t, "call-1", rec.CallMeta.CallID)
	assert.Nil(t, rec.Symptoms.Severity)
	assert.Nil(t, rec.Analysis.Successful)
	assert.NotNil(t, rec.Analysis.RawCustomData)
	assert.Equal(t, 0, rec.Symptoms.AdditionalSymptoms.Len())

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	var decoded map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []any{}, decoded["symptoms"]["additionalSymptoms"])
	assert.Equal(t, []any{}, decoded["symptoms"]["medicationsTaken"])
	assert.Contains(t, decoded["symptoms"], "severity")
	assert.Nil(t, decoded["symptoms"]["severity"])
	assert.Equal(t, map[string]any{}, decoded["analysis"]["rawCustomData"])
}

func TestSymptomsFirstWriteWins(t *testing.T) {
	var s Symptoms
	assert.True(t, s.SetSeverity(8))
	assert.False(t, s.SetSeverity(3))
	require.NotNil(t, s.Severity)
	assert.Equal(t, 8, *s.Severity)

	assert.True(t, s.SetDuration("2 days"))
	assert.False(t, s.SetDuration("3 weeks"))
	assert.Equal(t, "2 days", s.Duration)

	assert.False(t, s.SetLocation(""))
	assert.True(t, s.SetLocation("posterior head"))
	assert.False(t, s.SetLocation("back"))
	assert.Equal(t, "posterior head", s.Location)
}

func TestSeverityZeroIsPresent(t *testing.T) {
	var s Symptoms
	assert.True(t, s.SetSeverity(0))
	require.NotNil(t, s.Severity)
	assert.False(t, s.SetSeverity(5))
}

func TestAddSymptomPromotesFirstLabel(t *testing.T) {
	var s Symptoms
	assert.True(t, s.AddSymptom("Headache"))
	assert.True(t, s.AddSymptom("Nausea"))
	assert.False(t, s.AddSymptom("headache"))
	assert.Equal(t, "Headache", s.PrimaryCondition)
	assert.Equal(t, []string{"Headache", "Nausea"}, s.AdditionalSymptoms.Values())
}

func TestAddSymptomKeepsExistingPrimary(t *testing.T) {
	var s Symptoms
	s.SetPrimaryCondition("Migraine")
	s.AddSymptom("Pain")
	assert.Equal(t, "Migraine", s.PrimaryCondition)
	assert.Equal(t, []string{"Pain"}, s.AdditionalSymptoms.Values())
}

func TestContactFullName(t *testing.T) {
	assert.Equal(t, "Jane Doe", Contact{FirstName: "Jane", LastName: "Doe"}.FullName())
	assert.Equal(t, "Jane", Contact{FirstName: " Jane "}.FullName())
	assert.Equal(t, "", Contact{}.FullName())
}
