package patient

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/medsafe-api/internal/handler"
	"github.com/jwalitptl/medsafe-api/internal/model"
	"github.com/jwalitptl/medsafe-api/internal/service/prescription"
	"github.com/jwalitptl/medsafe-api/pkg/httputil"
)

type HistoryService interface {
	Add(ctx context.Context, actor *model.Actor, patientID uuid.UUID, req model.CreateHistoryRequest) (*model.MedicalHistoryRecord, error)
	List(ctx context.Context, actor *model.Actor, patientID uuid.UUID) ([]*model.MedicalHistoryRecord, error)
}

type PrescriptionService interface {
	Submit(ctx context.Context, actor *model.Actor, patientID uuid.UUID, draft model.PrescriptionDraft, ack prescription.Acknowledger) (*prescription.Result, error)
	Preview(ctx context.Context, actor *model.Actor, patientID uuid.UUID, draft model.PrescriptionDraft) (*model.SafetyReport, error)
	List(ctx context.Context, actor *model.Actor, patientID uuid.UUID) ([]*model.Prescription, error)
}

// Handler serves a patient's record: medical history and prescriptions.
// Access is decided by the services: the patient, or a doctor holding a grant.
type Handler struct {
	history       HistoryService
	prescriptions PrescriptionService
}

func NewHandler(history HistoryService, prescriptions PrescriptionService) *Handler {
	return &Handler{history: history, prescriptions: prescriptions}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients/:patientId")
	{
		patients.GET("/history", h.ListHistory)
		patients.POST("/history", h.AddHistory)

		patients.GET("/prescriptions", h.ListPrescriptions)
		patients.POST("/prescriptions", h.SubmitPrescription)
		patients.POST("/prescriptions/preview", h.PreviewPrescription)
	}
}

func (h *Handler) ListHistory(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	patientID, ok := handler.UUIDParam(c, "patientId")
	if !ok {
		return
	}

	records, err := h.history.List(c.Request.Context(), actor, patientID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, records)
}

func (h *Handler) AddHistory(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	patientID, ok := handler.UUIDParam(c, "patientId")
	if !ok {
		return
	}

	var req model.CreateHistoryRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	rec, err := h.history.Add(c.Request.Context(), actor, patientID, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, rec)
}

func (h *Handler) ListPrescriptions(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	patientID, ok := handler.UUIDParam(c, "patientId")
	if !ok {
		return
	}

	prescriptions, err := h.prescriptions.List(c.Request.Context(), actor, patientID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, prescriptions)
}

// SubmitPrescription runs the safety gates. A gate the client has not
// acknowledged stops the submission with 409 and the findings to show.
func (h *Handler) SubmitPrescription(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	patientID, ok := handler.UUIDParam(c, "patientId")
	if !ok {
		return
	}

	var req model.SubmitPrescriptionRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	ack := prescription.Flags{
		AcknowledgeConflicts:    req.AcknowledgeConflicts,
		AcknowledgeInteractions: req.AcknowledgeInteractions,
	}
	result, err := h.prescriptions.Submit(c.Request.Context(), actor, patientID, req.PrescriptionDraft, ack)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if result.Cancelled {
		details := gin.H{"stage": result.Stage}
		message := "prescription has drug-allergy conflicts"
		if result.Stage == prescription.StageDrugInteraction {
			details["interactions"] = result.Interactions
			message = "prescription has drug interactions"
		} else {
			details["conflicts"] = result.Conflicts
		}
		httputil.RespondWithDetails(c, http.StatusConflict, message, details)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, result.Prescription)
}

func (h *Handler) PreviewPrescription(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	patientID, ok := handler.UUIDParam(c, "patientId")
	if !ok {
		return
	}

	var draft model.PrescriptionDraft
	if !handler.BindJSON(c, &draft) {
		return
	}

	report, err := h.prescriptions.Preview(c.Request.Context(), actor, patientID, draft)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, report)
}
