package vision

// ElementType identifies a recognizable electric circuit component.
type ElementType string

// Component types the analyzer is allowed to report. Anything else coming
// back from the model is dropped during normalization.
const (
	ElementBattery   ElementType = "battery"
	ElementResistor  ElementType = "resistor"
	ElementLamp      ElementType = "lamp"
	ElementSwitch    ElementType = "switch"
	ElementAmmeter   ElementType = "ammeter"
	ElementVoltmeter ElementType = "voltmeter"
	ElementRheostat  ElementType = "rheostat"
)

var allowedElementTypes = map[ElementType]bool{
	ElementBattery:   true,
	ElementResistor:  true,
	ElementLamp:      true,
	ElementSwitch:    true,
	ElementAmmeter:   true,
	ElementVoltmeter: true,
	ElementRheostat:  true,
}

// Element is a single component the model identified in the diagram.
type Element struct {
	Type  ElementType `json:"type"`
	Label string      `json:"label,omitempty"`
	Count int         `json:"count"`
}

// Analysis is the structured result of one circuit diagram analysis.
type Analysis struct {
	Elements    []Element `json:"elements"`
	Confidence  float64   `json:"confidence"`
	Assumptions []string  `json:"assumptions,omitempty"`
	Summary     string    `json:"summary,omitempty"`
}

// responseSchema mirrors the JSON we ask the model to produce.
type responseSchema struct {
	Elements []struct {
		Type  string `json:"type"`
		Label string `json:"label"`
		Count int    `json:"count"`
	} `json:"elements"`
	Confidence  float64  `json:"confidence"`
	Assumptions []string `json:"assumptions"`
	Summary     string   `json:"summary"`
}
