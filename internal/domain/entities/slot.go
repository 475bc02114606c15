package entities

import "strconv"

// SlotID identifies one of the fixed generation outputs attached to a
// report job. The numbering is part of the client protocol and mirrors
// the device app's section order.
type SlotID int

const (
	SlotInitial    SlotID = 1 // respiratory quotient analysis, fast path
	SlotDiagnosis  SlotID = 2
	SlotOrgan      SlotID = 3
	SlotSummary    SlotID = 4
	SlotAnalysis   SlotID = 5
	SlotAlerts     SlotID = 6
	SlotActions    SlotID = 7
	SlotMedication SlotID = 8 // conditional on medication preference
	SlotInsights   SlotID = 9
	SlotImaging    SlotID = 10 // conditional on uploaded attachments
	SlotTable      SlotID = 11 // clinical-alerts table, fast path
)

var slotNames = map[SlotID]string{
	SlotInitial:    "initial",
	SlotDiagnosis:  "diagnosis",
	SlotOrgan:      "organ_impact",
	SlotSummary:    "summary",
	SlotAnalysis:   "analysis",
	SlotAlerts:     "alerts",
	SlotActions:    "actions",
	SlotMedication: "medication",
	SlotInsights:   "insights",
	SlotImaging:    "imaging",
	SlotTable:      "table",
}

// Name returns the stable lowercase name for the slot, or its number
// when the slot is not part of the known set.
func (s SlotID) Name() string {
	if name, ok := slotNames[s]; ok {
		return name
	}
	return strconv.Itoa(int(s))
}

// String implements fmt.Stringer.
func (s SlotID) String() string {
	return s.Name()
}

// ParseSlotID parses a numeric slot identifier. It does not validate
// membership in the known set; unknown slots surface as `invalid`
// status downstream rather than as a parse error.
func ParseSlotID(raw string) (SlotID, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	return SlotID(n), nil
}

// FastPathSlots are produced synchronously during report creation.
func FastPathSlots() []SlotID {
	return []SlotID{SlotInitial, SlotTable}
}

// AsyncSlots are fanned out as independent background tasks.
func AsyncSlots() []SlotID {
	return []SlotID{
		SlotDiagnosis, SlotOrgan, SlotSummary, SlotAnalysis, SlotAlerts,
		SlotActions, SlotMedication, SlotInsights, SlotImaging,
	}
}
