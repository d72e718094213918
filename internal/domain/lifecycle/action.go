// Package lifecycle es la máquina de estados de los trabajos de reacondicionamiento:
// legalidad de transiciones, contabilidad de tiempos y política de roles.
// No conoce persistencia ni transporte.
package lifecycle

import (
	"fmt"

	"github.com/jhoicas/recon-api/internal/domain"
	"github.com/jhoicas/recon-api/internal/domain/entity"
)

// Action operación de ciclo de vida solicitada sobre un trabajo.
type Action string

const (
	ActionStart         Action = "start"
	ActionPause         Action = "pause"
	ActionAddTechnician Action = "addTechnician"
	ActionComplete      Action = "complete"
	ActionQCDecision    Action = "qcDecision"
	ActionCancel        Action = "cancel"
)

// Actor identidad autenticada que solicita la transición.
type Actor struct {
	ID             string
	Role           entity.Role
	EmployeeNumber string
}

// TransitionError la acción no es legal desde el estado actual del trabajo.
// errors.Is(err, domain.ErrIllegalTransition) es verdadero.
type TransitionError struct {
	From   entity.JobStatus
	Action Action
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transición ilegal: %s no permitido con estado %q", e.Action, e.From)
}

// Is permite comparar con domain.ErrIllegalTransition.
func (e *TransitionError) Is(target error) bool {
	return target == domain.ErrIllegalTransition
}

func illegal(from entity.JobStatus, action Action) error {
	return &TransitionError{From: from, Action: action}
}

// CanTransition tabla de legalidad del grafo de estados.
func CanTransition(from entity.JobStatus, action Action) bool {
	switch from {
	case entity.JobStatusPending:
		return action == ActionStart || action == ActionCancel
	case entity.JobStatusInProgress:
		switch action {
		case ActionPause, ActionAddTechnician, ActionComplete, ActionCancel:
			return true
		}
		return false
	case entity.JobStatusPaused:
		switch action {
		case ActionStart, ActionAddTechnician, ActionComplete, ActionCancel:
			return true
		}
		return false
	case entity.JobStatusCompleted:
		// re-revisión de un trabajo completado sin QC (ver DESIGN.md)
		return action == ActionQCDecision || action == ActionCancel
	case entity.JobStatusQCRequired:
		// start = retrabajo
		switch action {
		case ActionStart, ActionQCDecision, ActionCancel:
			return true
		}
		return false
	case entity.JobStatusQCApproved, entity.JobStatusCancelled:
		return false
	}
	return false
}
