package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/recon-api/internal/application/dto"
	"github.com/jhoicas/recon-api/internal/application/usecase"
)

// JobHandler maneja el ciclo de vida de los trabajos (protegido).
type JobHandler struct {
	uc *usecase.JobUseCase
}

// NewJobHandler construye el handler.
func NewJobHandler(uc *usecase.JobUseCase) *JobHandler {
	return &JobHandler{uc: uc}
}

// List godoc
// @Summary      Listar trabajos
// @Tags         jobs
// @Security     Bearer
// @Produce      json
// @Param        status  query  string  false  "Estado (Pending, In Progress, Paused, Completed, QC Required, QC Approved, Cancelled)"
// @Param        limit   query  int     false  "Límite"  default(20)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200     {object}  dto.JobListResponse
// @Failure      400     {object}  dto.ErrorResponse
// @Router       /api/jobs [get]
func (h *JobHandler) List(c *fiber.Ctx) error {
	page := dto.PageRequest{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
	out, err := h.uc.List(c.UserContext(), c.Query("status"), page)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener trabajo por ID
// @Tags         jobs
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del trabajo"
// @Success      200  {object}  dto.JobResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/jobs/{id} [get]
func (h *JobHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Create godoc
// @Summary      Crear trabajo (Pending)
// @Tags         jobs
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateJobRequest  true  "Datos del vehículo y servicio"
// @Success      201   {object}  dto.JobResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/jobs [post]
func (h *JobHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateJobRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.Create(c.UserContext(), actorFrom(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Join godoc
// @Summary      Unirse al trabajo abierto de un VIN
// @Description  Si no hay trabajo In Progress o Paused para el VIN se crea uno en In Progress (201).
// @Tags         jobs
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.JoinJobRequest  true  "vin y datos para el alta"
// @Success      200   {object}  dto.JobResponse
// @Success      201   {object}  dto.JobResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.TransitionErrorResponse
// @Router       /api/jobs/join [post]
func (h *JobHandler) Join(c *fiber.Ctx) error {
	var in dto.JoinJobRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, created, err := h.uc.JoinByVIN(c.UserContext(), actorFrom(c), in)
	if err != nil {
		return respondError(c, err)
	}
	if created {
		return c.Status(fiber.StatusCreated).JSON(out)
	}
	return c.JSON(out)
}

// Start godoc
// @Summary      Iniciar, reanudar o reabrir para retrabajo
// @Tags         jobs
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del trabajo"
// @Success      200  {object}  dto.JobResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.TransitionErrorResponse
// @Router       /api/jobs/{id}/start [post]
func (h *JobHandler) Start(c *fiber.Ctx) error {
	out, err := h.uc.Start(c.UserContext(), actorFrom(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Pause godoc
// @Summary      Pausar trabajo
// @Tags         jobs
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string               true   "ID del trabajo"
// @Param        body  body  dto.PauseJobRequest  false  "Motivo"
// @Success      200   {object}  dto.JobResponse
// @Failure      409   {object}  dto.TransitionErrorResponse
// @Router       /api/jobs/{id}/pause [post]
func (h *JobHandler) Pause(c *fiber.Ctx) error {
	var in dto.PauseJobRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return invalidBody(c)
		}
	}
	out, err := h.uc.Pause(c.UserContext(), actorFrom(c), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// AddTechnician godoc
// @Summary      Agregar técnico
// @Tags         jobs
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                    true  "ID del trabajo"
// @Param        body  body  dto.AddTechnicianRequest  true  "technician_id"
// @Success      200   {object}  dto.JobResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.TransitionErrorResponse
// @Router       /api/jobs/{id}/technicians [post]
func (h *JobHandler) AddTechnician(c *fiber.Ctx) error {
	var in dto.AddTechnicianRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.AddTechnician(c.UserContext(), actorFrom(c), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Complete godoc
// @Summary      Completar trabajo
// @Tags         jobs
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del trabajo"
// @Success      200  {object}  dto.JobResponse
// @Failure      409  {object}  dto.TransitionErrorResponse
// @Router       /api/jobs/{id}/complete [post]
func (h *JobHandler) Complete(c *fiber.Ctx) error {
	out, err := h.uc.Complete(c.UserContext(), actorFrom(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// QCDecision godoc
// @Summary      Decisión de control de calidad
// @Tags         jobs
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true  "ID del trabajo"
// @Param        body  body  dto.QCDecisionRequest  true  "passed, notes"
// @Success      200   {object}  dto.JobResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.TransitionErrorResponse
// @Router       /api/jobs/{id}/qc [post]
func (h *JobHandler) QCDecision(c *fiber.Ctx) error {
	var in dto.QCDecisionRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.QCDecision(c.UserContext(), actorFrom(c), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Cancel godoc
// @Summary      Cancelar trabajo
// @Tags         jobs
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del trabajo"
// @Success      200  {object}  dto.JobResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.TransitionErrorResponse
// @Router       /api/jobs/{id}/cancel [post]
func (h *JobHandler) Cancel(c *fiber.Ctx) error {
	out, err := h.uc.Cancel(c.UserContext(), actorFrom(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}
