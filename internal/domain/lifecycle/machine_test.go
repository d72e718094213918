package lifecycle_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/recon-api/internal/domain"
	"github.com/jhoicas/recon-api/internal/domain/entity"
	"github.com/jhoicas/recon-api/internal/domain/lifecycle"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

var (
	detailerD1  = lifecycle.Actor{ID: "d1", Role: entity.RoleDetailer, EmployeeNumber: "E-100"}
	salesperson = lifecycle.Actor{ID: "s1", Role: entity.RoleSalesperson, EmployeeNumber: "E-200"}
	manager     = lifecycle.Actor{ID: "m1", Role: entity.RoleManager, EmployeeNumber: "E-300"}
)

func at(minutes int) time.Time {
	return t0.Add(time.Duration(minutes) * time.Minute)
}

func newPendingJob(qcRequired bool) *entity.Job {
	return &entity.Job{
		ID:         "job-1",
		VIN:        "1HGCM82633A004352",
		Status:     entity.JobStatusPending,
		QCRequired: qcRequired,
	}
}

func requireInvariants(t *testing.T, job *entity.Job) {
	t.Helper()
	require.NoError(t, lifecycle.CheckInvariants(job))
}

// ──────────────────────────────────────────────────────────────────────────────
// Fórmula de tiempo
// ──────────────────────────────────────────────────────────────────────────────

func TestElapsed(t *testing.T) {
	cases := []struct {
		name   string
		start  time.Time
		end    time.Time
		paused int
		want   int
	}{
		{"sin pausa", t0, at(70), 0, 70},
		{"con pausa", t0, at(70), 10, 60},
		{"30m29s redondea a 30", t0, t0.Add(29*time.Second + 30*time.Minute), 0, 30},
		{"30m30s redondea a 31", t0, t0.Add(30*time.Second + 30*time.Minute), 0, 31},
		{"29s redondea a 0", t0, t0.Add(29*time.Second), 0, 0},
		{"pausa mayor que lo transcurrido se fija en cero", t0, at(5), 10, 0},
		{"fin antes del inicio (desfase de reloj) se fija en cero", at(10), t0, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, lifecycle.Elapsed(tc.start, tc.end, tc.paused))
		})
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Transiciones
// ──────────────────────────────────────────────────────────────────────────────

// start en T0, pausa en T0+30, reanuda en T0+40, completa en T0+70.
func TestRoundTrip_PausaYReanudacion(t *testing.T) {
	job := newPendingJob(false)

	require.NoError(t, lifecycle.Start(job, detailerD1, t0))
	require.NoError(t, lifecycle.Pause(job, at(30), "almuerzo"))
	requireInvariants(t, job)
	require.NoError(t, lifecycle.Start(job, detailerD1, at(40)))
	requireInvariants(t, job)
	require.NoError(t, lifecycle.Complete(job, at(70)))
	requireInvariants(t, job)

	assert.Equal(t, entity.JobStatusCompleted, job.Status)
	assert.Equal(t, 10, job.PauseDurationMinutes)
	assert.Equal(t, 60, job.DurationMinutes)
	assert.Equal(t, t0, *job.StartTime, "startTime se fija una sola vez")
}

func TestStart_FijaStartTimeYAsignaDetailer(t *testing.T) {
	job := newPendingJob(false)
	require.NoError(t, lifecycle.Start(job, detailerD1, t0))

	assert.Equal(t, entity.JobStatusInProgress, job.Status)
	require.NotNil(t, job.StartTime)
	assert.Equal(t, []string{"d1"}, job.AssignedTechnicianIDs)
	require.Len(t, job.ActiveTechnicians, 1)
	assert.True(t, job.ActiveTechnicians[0].IsOpen())
}

func TestStart_ManagerNoSeAsignaComoTecnico(t *testing.T) {
	job := newPendingJob(false)
	require.NoError(t, lifecycle.Start(job, manager, t0))
	assert.Empty(t, job.AssignedTechnicianIDs)
}

func TestPause_DosVeces_EsIlegal(t *testing.T) {
	job := newPendingJob(false)
	require.NoError(t, lifecycle.Start(job, detailerD1, t0))
	require.NoError(t, lifecycle.Pause(job, at(10), ""))

	err := lifecycle.Pause(job, at(11), "")
	require.ErrorIs(t, err, domain.ErrIllegalTransition)

	var terr *lifecycle.TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, entity.JobStatusPaused, terr.From)
	assert.Equal(t, lifecycle.ActionPause, terr.Action)

	assert.Equal(t, at(10), *job.PausedAt, "el segundo pause no modifica el trabajo")
}

func TestComplete_DesdePausa_CierraLaPausa(t *testing.T) {
	job := newPendingJob(false)
	require.NoError(t, lifecycle.Start(job, detailerD1, t0))
	require.NoError(t, lifecycle.Pause(job, at(20), ""))
	require.NoError(t, lifecycle.Complete(job, at(50)))
	requireInvariants(t, job)

	assert.Nil(t, job.PausedAt)
	assert.Equal(t, 30, job.PauseDurationMinutes)
	assert.Equal(t, 20, job.DurationMinutes)
	for _, s := range job.ActiveTechnicians {
		assert.False(t, s.IsOpen(), "completar cierra las sesiones de técnicos")
	}
}

func TestResume_RelojAtrasado_NoRestaPausa(t *testing.T) {
	job := newPendingJob(false)
	require.NoError(t, lifecycle.Start(job, detailerD1, t0))
	require.NoError(t, lifecycle.Pause(job, at(20), ""))
	// reanudación con reloj anterior a la pausa
	require.NoError(t, lifecycle.Start(job, detailerD1, at(15)))
	assert.Equal(t, 0, job.PauseDurationMinutes, "la duración de pausa nunca decrece")
}

func TestComplete_PausaMayorQueTotal_DuracionCero(t *testing.T) {
	job := newPendingJob(false)
	require.NoError(t, lifecycle.Start(job, detailerD1, at(30)))
	job.PauseDurationMinutes = 90 // acumulado corrupto por carreras previas
	require.NoError(t, lifecycle.Complete(job, at(40)))
	assert.Equal(t, 0, job.DurationMinutes)
	requireInvariants(t, job)
}

func TestAddTechnician_Idempotente(t *testing.T) {
	job := newPendingJob(false)
	require.NoError(t, lifecycle.Start(job, detailerD1, t0))
	require.NoError(t, lifecycle.AddTechnician(job, "d2", at(5)))
	require.NoError(t, lifecycle.AddTechnician(job, "d2", at(6)))

	assert.Equal(t, []string{"d1", "d2"}, job.AssignedTechnicianIDs)
	assert.Len(t, job.ActiveTechnicians, 2)
}

func TestAddTechnician_EnPending_EsIlegal(t *testing.T) {
	job := newPendingJob(false)
	assert.ErrorIs(t, lifecycle.AddTechnician(job, "d2", t0), domain.ErrIllegalTransition)
}

func TestCancel_DesdePausa_LimpiaPausedAt(t *testing.T) {
	job := newPendingJob(false)
	require.NoError(t, lifecycle.Start(job, detailerD1, t0))
	require.NoError(t, lifecycle.Pause(job, at(10), ""))
	require.NoError(t, lifecycle.Cancel(job, manager, at(25)))
	requireInvariants(t, job)

	assert.Equal(t, entity.JobStatusCancelled, job.Status)
	assert.Nil(t, job.PausedAt)
	assert.Equal(t, 15, job.PauseDurationMinutes)
	assert.Equal(t, at(25), *job.EndTime)
	assert.Equal(t, "m1", job.CancelledBy)

	assert.ErrorIs(t, lifecycle.Cancel(job, manager, at(30)), domain.ErrIllegalTransition)
}

func TestCancel_QCApproved_EsIlegal(t *testing.T) {
	job := newPendingJob(false)
	require.NoError(t, lifecycle.Start(job, detailerD1, t0))
	require.NoError(t, lifecycle.Complete(job, at(10)))
	require.NoError(t, lifecycle.QCDecision(job, manager, true, "", at(11)))
	assert.ErrorIs(t, lifecycle.Cancel(job, manager, at(12)), domain.ErrIllegalTransition)
}

func TestQCDecision_SobreCompleted_ReRevision(t *testing.T) {
	job := newPendingJob(false)
	require.NoError(t, lifecycle.Start(job, detailerD1, t0))
	require.NoError(t, lifecycle.Complete(job, at(45)))
	require.NoError(t, lifecycle.QCDecision(job, salesperson, false, "manchas en el tablero", at(50)))

	assert.Equal(t, entity.JobStatusQCRequired, job.Status)
	assert.True(t, job.QCRequired)
	assert.Equal(t, "manchas en el tablero", job.QCNotes)
	assert.Empty(t, job.QCCompletedBy, "un rechazo no registra aprobador")
}

// Retrabajo: QC Required → In Progress. El tiempo esperando QC no se cuenta como trabajo.
func TestRetrabajo_NoCuentaEsperaDeQC(t *testing.T) {
	job := newPendingJob(true)
	require.NoError(t, lifecycle.Start(job, detailerD1, t0))
	require.NoError(t, lifecycle.Complete(job, at(60)))
	require.NoError(t, lifecycle.QCDecision(job, salesperson, false, "rehacer llantas", at(70)))

	require.NoError(t, lifecycle.Start(job, detailerD1, at(90)))
	requireInvariants(t, job)
	assert.Equal(t, entity.JobStatusInProgress, job.Status)
	assert.Nil(t, job.CompletedAt, "el retrabajo reingresa al camino con reloj activo")
	assert.Nil(t, job.EndTime)
	assert.Equal(t, 30, job.PauseDurationMinutes)

	require.NoError(t, lifecycle.Complete(job, at(100)))
	assert.Equal(t, 70, job.DurationMinutes)
	require.NoError(t, lifecycle.QCDecision(job, manager, true, "ok", at(105)))
	requireInvariants(t, job)
	assert.Equal(t, 70, job.DurationMinutes)
	assert.Len(t, job.QCHistory, 2)
}

// Escenario completo del detailer D1 con QC obligatorio.
func TestEscenario_QCRequeridoConRechazoYAprobacion(t *testing.T) {
	job := newPendingJob(true)

	require.NoError(t, lifecycle.Authorize(detailerD1, lifecycle.ActionStart, job))
	require.NoError(t, lifecycle.Start(job, detailerD1, t0))
	assert.Equal(t, entity.JobStatusInProgress, job.Status)
	require.NotNil(t, job.StartTime)

	require.NoError(t, lifecycle.Authorize(detailerD1, lifecycle.ActionPause, job))
	require.NoError(t, lifecycle.Pause(job, at(20), "esperando repuesto"))
	assert.Equal(t, entity.JobStatusPaused, job.Status)
	require.NotNil(t, job.PausedAt)

	require.NoError(t, lifecycle.Start(job, detailerD1, at(25)))
	assert.Equal(t, entity.JobStatusInProgress, job.Status)
	assert.Equal(t, 5, job.PauseDurationMinutes)

	require.NoError(t, lifecycle.Authorize(detailerD1, lifecycle.ActionComplete, job))
	require.NoError(t, lifecycle.Complete(job, at(65)))
	assert.Equal(t, entity.JobStatusQCRequired, job.Status)
	assert.True(t, job.QCRequired)
	assert.Equal(t, 60, job.DurationMinutes)

	// D1 intenta aprobar su propio trabajo
	err := lifecycle.Authorize(detailerD1, lifecycle.ActionQCDecision, job)
	require.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, entity.JobStatusQCRequired, job.Status)

	require.NoError(t, lifecycle.Authorize(salesperson, lifecycle.ActionQCDecision, job))
	require.NoError(t, lifecycle.QCDecision(job, salesperson, false, "falta aspirar maletero", at(70)))
	assert.Equal(t, entity.JobStatusQCRequired, job.Status)
	assert.Equal(t, "falta aspirar maletero", job.QCNotes)

	require.NoError(t, lifecycle.Authorize(manager, lifecycle.ActionQCDecision, job))
	require.NoError(t, lifecycle.QCDecision(job, manager, true, "aprobado", at(80)))
	requireInvariants(t, job)
	assert.Equal(t, entity.JobStatusQCApproved, job.Status)
	assert.Equal(t, 60, job.DurationMinutes, "la aprobación recalcula sin cambiar la duración")
	assert.Equal(t, "m1", job.QCCompletedBy)
	assert.Equal(t, "E-300", job.QCEmployeeNumber)
	assert.Equal(t, at(80), *job.QCCompletedAt)
	assert.Equal(t, at(65), *job.CompletedAt, "completedAt no se sobrescribe")
}

// ──────────────────────────────────────────────────────────────────────────────
// Tabla de legalidad
// ──────────────────────────────────────────────────────────────────────────────

var allStatuses = []entity.JobStatus{
	entity.JobStatusPending, entity.JobStatusInProgress, entity.JobStatusPaused,
	entity.JobStatusCompleted, entity.JobStatusQCRequired, entity.JobStatusQCApproved,
	entity.JobStatusCancelled,
}

var allActions = []lifecycle.Action{
	lifecycle.ActionStart, lifecycle.ActionPause, lifecycle.ActionAddTechnician,
	lifecycle.ActionComplete, lifecycle.ActionQCDecision, lifecycle.ActionCancel,
}

func jobInStatus(status entity.JobStatus) *entity.Job {
	job := &entity.Job{ID: "j", Status: status, AssignedTechnicianIDs: []string{"d1"}}
	switch status {
	case entity.JobStatusInProgress:
		job.StartTime = timeRef(t0)
	case entity.JobStatusPaused:
		job.StartTime = timeRef(t0)
		job.PausedAt = timeRef(at(10))
	case entity.JobStatusCompleted, entity.JobStatusQCRequired, entity.JobStatusQCApproved, entity.JobStatusCancelled:
		job.StartTime = timeRef(t0)
		job.EndTime = timeRef(at(30))
		job.CompletedAt = timeRef(at(30))
		job.DurationMinutes = 30
	}
	return job
}

func apply(job *entity.Job, action lifecycle.Action, now time.Time) error {
	switch action {
	case lifecycle.ActionStart:
		return lifecycle.Start(job, manager, now)
	case lifecycle.ActionPause:
		return lifecycle.Pause(job, now, "")
	case lifecycle.ActionAddTechnician:
		return lifecycle.AddTechnician(job, "d9", now)
	case lifecycle.ActionComplete:
		return lifecycle.Complete(job, now)
	case lifecycle.ActionQCDecision:
		return lifecycle.QCDecision(job, manager, true, "", now)
	case lifecycle.ActionCancel:
		return lifecycle.Cancel(job, manager, now)
	}
	return nil
}

// Toda acción ilegal falla con ErrIllegalTransition sin modificar el trabajo,
// y toda acción legal deja el trabajo cumpliendo las invariantes.
func TestTablaDeLegalidad_NuncaNoOpSilencioso(t *testing.T) {
	for _, status := range allStatuses {
		for _, action := range allActions {
			job := jobInStatus(status)
			before := job.Clone()
			err := apply(job, action, at(45))
			if lifecycle.CanTransition(status, action) {
				assert.NoError(t, err, "%s desde %s debe ser legal", action, status)
				assert.NoError(t, lifecycle.CheckInvariants(job), "%s desde %s", action, status)
				continue
			}
			assert.ErrorIs(t, err, domain.ErrIllegalTransition, "%s desde %s debe ser ilegal", action, status)
			assert.Equal(t, before, job, "%s ilegal desde %s no debe mutar el trabajo", action, status)
		}
	}
}

func TestCanTransition_TerminalesSinSalida(t *testing.T) {
	for _, action := range allActions {
		assert.False(t, lifecycle.CanTransition(entity.JobStatusQCApproved, action))
		assert.False(t, lifecycle.CanTransition(entity.JobStatusCancelled, action))
	}
}

func timeRef(t time.Time) *time.Time { return &t }
