package domain

// CrudOutcome reports the result of a staging operation on the generic CRUD
// service. Storage failures are returned as errors, never folded into an
// outcome; Success is false only for the nil-payload precondition.
type CrudOutcome struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Entity  any    `json:"entity"`
	Extra   any    `json:"extra,omitempty"`
}
