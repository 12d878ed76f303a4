package model

import "fmt"

// Persona identifies one of the app's virtual assistants. Each persona
// keeps an independent progress ledger.
type Persona string

const (
	// PersonaDr is the technical assistant (pharmacist register).
	PersonaDr Persona = "dr"
	// PersonaGa is the empathetic assistant (patient register).
	PersonaGa Persona = "ga"
)

// Personas lists every valid persona, in display order.
var Personas = []Persona{PersonaDr, PersonaGa}

// IsValid reports whether p is one of the fixed persona identifiers.
func (p Persona) IsValid() bool {
	switch p {
	case PersonaDr, PersonaGa:
		return true
	default:
		return false
	}
}

// InvalidPersonaError is returned when an operation names a persona
// outside the fixed set. It is rejected before any state mutation.
type InvalidPersonaError struct {
	Persona Persona
}

func (e *InvalidPersonaError) Error() string {
	return fmt.Sprintf("model: invalid persona %q", string(e.Persona))
}
