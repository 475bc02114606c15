package slots

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalscan/breathmon/backend/internal/domain/entities"
)

func testContext() entities.EncounterContext {
	co := 4.2
	o2 := 14.5
	hr := 72
	return entities.EncounterContext{
		PatientName:    "Ada Obi",
		Age:            54,
		Gender:         "female",
		Symptoms:       "shortness of breath",
		History:        "asthma",
		Notes:          "follow up in two weeks",
		MedicationType: "Allopathy",
		Sensors: entities.SensorReading{
			CO:        &co,
			O2:        &o2,
			HeartRate: &hr,
		},
	}
}

func TestBasePrompt_IsDeterministic(t *testing.T) {
	ec := testContext()
	assert.Equal(t, BasePrompt(ec), BasePrompt(ec))
}

func TestBasePrompt_RendersPatientAndSensors(t *testing.T) {
	prompt := BasePrompt(testContext())

	assert.Contains(t, prompt, "- Name: Ada Obi")
	assert.Contains(t, prompt, "- Age: 54")
	assert.Contains(t, prompt, "- Symptoms: shortness of breath")
	assert.Contains(t, prompt, "| CO (Carbon Monoxide) | 4.2 ppm |")
	assert.Contains(t, prompt, "| O2 (Oxygen Level) | 14.5 %Vol |")
	assert.Contains(t, prompt, "| Heart Rate | 72 bpm |")
}

func TestBasePrompt_OmitsAbsentSensorChannels(t *testing.T) {
	ec := testContext()
	ec.Sensors.CO = nil

	prompt := BasePrompt(ec)

	assert.NotContains(t, prompt, "Carbon Monoxide")
	assert.Contains(t, prompt, "Oxygen Level")
}

func TestBasePrompt_MissingFieldsRenderAsNA(t *testing.T) {
	prompt := BasePrompt(entities.EncounterContext{})

	assert.Contains(t, prompt, "- Name: N/A")
	assert.Contains(t, prompt, "- Age: N/A")
	assert.Contains(t, prompt, "- Symptoms: N/A")
}

func TestSlotPrompts_ShareBaseAndDiffer(t *testing.T) {
	ec := testContext()
	base := BasePrompt(ec)

	seen := make(map[string]entities.SlotID)
	for _, slot := range append(entities.FastPathSlots(), entities.AsyncSlots()...) {
		def, ok := Lookup(slot)
		require.True(t, ok, "slot %s not registered", slot)

		prompt := def.Build(ec)
		assert.True(t, strings.HasPrefix(prompt, base), "slot %s does not start with the base prompt", slot)

		if other, dup := seen[prompt]; dup {
			t.Errorf("slots %s and %s build identical prompts", other, slot)
		}
		seen[prompt] = slot
	}
}

func TestMedicationPrompt_EmbedsSelectedType(t *testing.T) {
	ec := testContext()
	ec.MedicationType = "Ayurvedic"

	def, ok := Lookup(entities.SlotMedication)
	require.True(t, ok)

	assert.Contains(t, def.Build(ec), "Medication type selected by doctor: Ayurvedic")
}

func TestSystemPrompt_ForbidsRawValues(t *testing.T) {
	assert.Contains(t, SystemPrompt(), "Do not display or repeat raw sensor values")
}
