package slots

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vitalscan/breathmon/backend/internal/domain/entities"
)

// Prompt building is pure and deterministic: identical encounter context
// yields byte-identical instruction text. Absent sensor channels are
// omitted from the rendered table rather than failing the build.

// SystemPrompt returns the instruction shared by every text slot.
func SystemPrompt() string {
	return systemPrompt
}

const systemPrompt = `You are a Medical AI specializing in real-time patient monitoring, diagnosis, prognosis, and treatment recommendation. You assist healthcare professionals by analyzing multimodal patient data including breath sensor inputs, vital signs, clinical notes, and imaging findings. All assessments must follow evidence-based medical reasoning and prioritize patient safety.

Strictly use the following normal ranges for interpretation. These values are calibrated for the monitoring device and are the only acceptable reference:
- Carbon Monoxide (CO): 0 to 10 ppm
- Carbon Dioxide (CO2): 20,000 to 50,000 ppm
- Oxygen Level (O2): 13% to 16%
- Ammonia (NH3): 0 to 1.5 ppm
- Hydrogen (H2): 0 to 16 ppm
- Blood Oxygen Saturation (SpO2): greater than 85%
- Heart Rate: 60 to 100 bpm
- Respiratory Quotient (RQ): 0.7 to 1.0

Always include a disclaimer that AI-generated output is not a substitute for professional medical judgment, and emphasize the necessity of clinical correlation. Do not display or repeat raw sensor values to the user; only provide medical interpretation.`

type sensorRow struct {
	label string
	value string
	unit  string
}

func formatFloat(v *float64, unit string) (string, bool) {
	if v == nil {
		return "", false
	}
	return strconv.FormatFloat(*v, 'f', -1, 64) + unit, true
}

func formatInt(v *int, unit string) (string, bool) {
	if v == nil {
		return "", false
	}
	return strconv.Itoa(*v) + unit, true
}

func sensorRows(s entities.SensorReading) []sensorRow {
	rows := make([]sensorRow, 0, 9)
	add := func(label, value string, ok bool) {
		if ok {
			rows = append(rows, sensorRow{label: label, value: value})
		}
	}

	v, ok := formatFloat(s.NH3, " ppm")
	add("NH3 (Ammonia)", v, ok)
	v, ok = formatFloat(s.CO, " ppm")
	add("CO (Carbon Monoxide)", v, ok)
	v, ok = formatFloat(s.O2, " %Vol")
	add("O2 (Oxygen Level)", v, ok)
	v, ok = formatFloat(s.CO2, " ppm")
	add("CO2 (Carbon Dioxide)", v, ok)
	v, ok = formatFloat(s.SpO2, " %")
	add("SpO2", v, ok)
	v, ok = formatInt(s.HeartRate, " bpm")
	add("Heart Rate", v, ok)
	v, ok = formatFloat(s.RQ, "")
	add("Respiratory Quotient (RQ)", v, ok)
	v, ok = formatFloat(s.Hydrogen, "")
	add("Hydrogen (H2)", v, ok)
	v, ok = formatFloat(s.Formaldehyde, "")
	add("Formaldehyde", v, ok)
	return rows
}

func orNA(value string) string {
	if value == "" {
		return "N/A"
	}
	return value
}

// BasePrompt renders the patient monitoring context shared by every
// slot instruction.
func BasePrompt(ec entities.EncounterContext) string {
	var b strings.Builder
	b.WriteString("### Real-Time Patient Monitoring Report\n")
	b.WriteString("**Patient Info:**\n")
	fmt.Fprintf(&b, "- Name: %s\n", orNA(ec.PatientName))
	if ec.Age > 0 {
		fmt.Fprintf(&b, "- Age: %d\n", ec.Age)
	} else {
		b.WriteString("- Age: N/A\n")
	}
	fmt.Fprintf(&b, "- Gender: %s\n", orNA(ec.Gender))
	fmt.Fprintf(&b, "- Symptoms: %s\n", orNA(ec.Symptoms))
	fmt.Fprintf(&b, "- Medical History: %s\n", orNA(ec.History))
	fmt.Fprintf(&b, "- Doctor Notes: %s\n", orNA(ec.Notes))
	b.WriteString("**Vital Signs & Sensor Data:**\n")
	b.WriteString("| Parameter | Value |\n")
	b.WriteString("|-----------|-------|\n")
	for _, row := range sensorRows(ec.Sensors) {
		fmt.Fprintf(&b, "| %s | %s |\n", row.label, row.value)
	}
	return b.String()
}

const noRawValues = "Do not share raw sensor values or ranges in the output. Simply tell the analysis."

func initialPrompt(base string) string {
	return base + `
This is Respiratory Quotient (RQ) monitoring. Please do an analysis of the Respiratory Quotient.
` + noRawValues
}

func diagnosisPrompt(base string) string {
	return base + `
Continuously analyze and interpret vital signs and patient-reported symptoms.
Detect early signs of deterioration or improvement.
Generate timely alerts for critical parameters (e.g., sepsis risk, respiratory failure, hypotension).
` + noRawValues
}

func organPrompt(base string) string {
	return base + `
Provide a comprehensive diagnosis with impact on all the organs one by one. Discuss potential organ system impacts for liver, cardiovascular, renal, respiratory and nervous systems.
Assess the risk of this patient being diabetic, and add a special recommendation note in case the patient is diabetic.
Suggest potential diseases based on symptoms and sensor data.
` + noRawValues
}

func summaryPrompt(base string) string {
	return base + `
Present a very short and concise case summary: overview of findings, urgency level, and suggested next steps.
` + noRawValues
}

func analysisPrompt(base string) string {
	return base + `
- Assess the patient's respiratory and metabolic status based on real-time sensor readings.
- Detect early warning signs of toxicity, hypoxia, or metabolic disorders.
- Predict potential organ dysfunction based on sensor and vital sign trends.
` + noRawValues
}

func alertsPrompt(base string) string {
	return base + `
Provide a brief paragraph describing any Condition Alert, and a brief paragraph describing any Critical Value Alert.
` + noRawValues
}

func actionsPrompt(base string) string {
	return base + `
Share the analysis in paragraph form:
1. Clinical Management: adjust oxygen, fluids, drugs, etc.
2. Monitoring: ABG, imaging, vitals repeat schedule.
3. Lifestyle Changes: dietary and exercise recommendations.
` + noRawValues
}

func medicationPrompt(base, medicationType string) string {
	return base + fmt.Sprintf(`
Medication type selected by doctor: %s
Give treatment based only on the medication type selected by the doctor.
Based on evidence-based guidelines, suggest treatments, medications, and interventions. Cite sources or guidelines for Allopathy-based suggestions (e.g., IDSA, AHA, WHO protocols).
Ensure Homeopathic or Ayurvedic recommendations include dosage, frequency and contraindications.
`, medicationType) + noRawValues
}

func insightsPrompt(base string) string {
	return base + `
- Predicted 24-hour Mortality Risk: [XX%]
- Ventilator Weaning Probability: [XX%]
- Recovery Time Estimate: [XX Days]
` + noRawValues
}

func imagingPrompt(base string) string {
	return base + `
For each shared MRI, CT, X-ray, or Ultrasound attachment, generate a separate structured analysis:
1. Imaging Type (MRI, CT, Ultrasound, X-ray)
2. Key Observations (e.g., tumor presence, fractures, hemorrhage, fluid accumulation)
3. Preliminary Interpretation (without replacing radiologist evaluation)
4. Clinical Relevance (how findings correlate with symptoms)
5. Suggested Follow-Up (need for biopsy, specialist referral, repeat scan)
The sensor data is exhaled-breath readings; correlate imaging findings with them.
` + noRawValues
}

func tablePrompt(base string) string {
	return base + `
Clinical Alerts:
Based on the sensor data and metabolic test results (Respiratory Quotient, Metabolic Efficiency Index, Detox Load Ratio, Oxygen Utilization Factor, Stress Load Index), list any immediate or significant clinical alerts as short, high-priority bullet points.

Clinical Interpretation:
Provide 1-3 bullet points explaining the implications of the findings for metabolic efficiency, detoxification burden, oxygen usage, or stress response.

Suggested Actions:
Provide 1-3 clinically appropriate, actionable suggestions: further evaluations, lab tests, lifestyle changes, or referrals.

KEEP IT SHORT AND GIVE OUTPUT IN POINTS ONLY AND NOT PARAGRAPHS.
Do not mix markdown heading and bold markers together; the frontend parser cannot handle it.
` + noRawValues
}
