package slots

import "github.com/vitalscan/breathmon/backend/internal/domain/entities"

// Definition describes how one slot is produced. Adding a slot is a row
// in the registry, not a new control-flow branch.
type Definition struct {
	ID   entities.SlotID
	Name string

	// Build renders the slot's instruction from the encounter context.
	Build func(ec entities.EncounterContext) string

	// Ready reports whether the slot's conditional input is present.
	// Nil means the slot is unconditional.
	Ready func(ec entities.EncounterContext) bool

	// Sentinel is written as the slot output, without any generation
	// call, when Ready returns false.
	Sentinel string

	// UsesAttachments routes the slot to the attachment-capable backend.
	UsesAttachments bool
}

// SentinelNoAttachments is the fixed imaging output when no files were
// attached to the encounter. The exact text is part of the client contract.
const SentinelNoAttachments = "No files were uploaded"

// SentinelNoMedicationType is the fixed medication output when the
// doctor did not select a treatment modality.
const SentinelNoMedicationType = "No medication preference was selected"

var registry = map[entities.SlotID]Definition{
	entities.SlotInitial: {
		ID:    entities.SlotInitial,
		Name:  "initial",
		Build: func(ec entities.EncounterContext) string { return initialPrompt(BasePrompt(ec)) },
	},
	entities.SlotDiagnosis: {
		ID:    entities.SlotDiagnosis,
		Name:  "diagnosis",
		Build: func(ec entities.EncounterContext) string { return diagnosisPrompt(BasePrompt(ec)) },
	},
	entities.SlotOrgan: {
		ID:    entities.SlotOrgan,
		Name:  "organ_impact",
		Build: func(ec entities.EncounterContext) string { return organPrompt(BasePrompt(ec)) },
	},
	entities.SlotSummary: {
		ID:    entities.SlotSummary,
		Name:  "summary",
		Build: func(ec entities.EncounterContext) string { return summaryPrompt(BasePrompt(ec)) },
	},
	entities.SlotAnalysis: {
		ID:    entities.SlotAnalysis,
		Name:  "analysis",
		Build: func(ec entities.EncounterContext) string { return analysisPrompt(BasePrompt(ec)) },
	},
	entities.SlotAlerts: {
		ID:    entities.SlotAlerts,
		Name:  "alerts",
		Build: func(ec entities.EncounterContext) string { return alertsPrompt(BasePrompt(ec)) },
	},
	entities.SlotActions: {
		ID:    entities.SlotActions,
		Name:  "actions",
		Build: func(ec entities.EncounterContext) string { return actionsPrompt(BasePrompt(ec)) },
	},
	entities.SlotMedication: {
		ID:       entities.SlotMedication,
		Name:     "medication",
		Build:    func(ec entities.EncounterContext) string { return medicationPrompt(BasePrompt(ec), ec.MedicationType) },
		Ready:    func(ec entities.EncounterContext) bool { return ec.MedicationType != "" },
		Sentinel: SentinelNoMedicationType,
	},
	entities.SlotInsights: {
		ID:    entities.SlotInsights,
		Name:  "insights",
		Build: func(ec entities.EncounterContext) string { return insightsPrompt(BasePrompt(ec)) },
	},
	entities.SlotImaging: {
		ID:              entities.SlotImaging,
		Name:            "imaging",
		Build:           func(ec entities.EncounterContext) string { return imagingPrompt(BasePrompt(ec)) },
		Ready:           func(ec entities.EncounterContext) bool { return len(ec.Attachments) > 0 },
		Sentinel:        SentinelNoAttachments,
		UsesAttachments: true,
	},
	entities.SlotTable: {
		ID:    entities.SlotTable,
		Name:  "table",
		Build: func(ec entities.EncounterContext) string { return tablePrompt(BasePrompt(ec)) },
	},
}

// Lookup returns the definition for a slot id.
func Lookup(id entities.SlotID) (Definition, bool) {
	def, ok := registry[id]
	return def, ok
}

// IsReady reports whether the slot's conditional precondition is met.
func (d Definition) IsReady(ec entities.EncounterContext) bool {
	if d.Ready == nil {
		return true
	}
	return d.Ready(ec)
}
