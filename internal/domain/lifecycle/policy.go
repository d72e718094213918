package lifecycle

import (
	"fmt"

	"github.com/jhoicas/recon-api/internal/domain"
	"github.com/jhoicas/recon-api/internal/domain/entity"
)

// Authorize capa de autorización, independiente de la legalidad del grafo:
//   - manager: todas las acciones.
//   - salesperson: solo qcDecision.
//   - detailer: start/pause/complete sobre sus propios trabajos (start también reclama
//     un trabajo sin técnicos), addTechnician siempre; nunca qcDecision ni cancel.
func Authorize(actor Actor, action Action, job *entity.Job) error {
	if action == ActionQCDecision {
		return AuthorizeQC(actor)
	}
	switch actor.Role {
	case entity.RoleManager:
		return nil
	case entity.RoleSalesperson:
		return forbidden(actor, action)
	case entity.RoleDetailer:
		switch action {
		case ActionAddTechnician:
			return nil
		case ActionStart:
			if job.HasTechnician(actor.ID) || len(job.AssignedTechnicianIDs) == 0 {
				return nil
			}
		case ActionPause, ActionComplete:
			if job.HasTechnician(actor.ID) {
				return nil
			}
		case ActionCancel:
		}
		return forbidden(actor, action)
	}
	return forbidden(actor, action)
}

// AuthorizeQC compuerta de QC: solo manager y salesperson deciden, sin importar el estado del trabajo.
func AuthorizeQC(actor Actor) error {
	switch actor.Role {
	case entity.RoleManager, entity.RoleSalesperson:
		return nil
	case entity.RoleDetailer:
	}
	return forbidden(actor, ActionQCDecision)
}

func forbidden(actor Actor, action Action) error {
	return fmt.Errorf("%w: el rol %q no puede ejecutar %s", domain.ErrForbidden, actor.Role, action)
}
