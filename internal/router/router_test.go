package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	accesshandler "github.com/jwalitptl/medsafe-api/internal/handler/access"
	"github.com/jwalitptl/medsafe-api/internal/handler/health"
	ocrhandler "github.com/jwalitptl/medsafe-api/internal/handler/ocr"
	patienthandler "github.com/jwalitptl/medsafe-api/internal/handler/patient"
	profilehandler "github.com/jwalitptl/medsafe-api/internal/handler/profile"
	refillhandler "github.com/jwalitptl/medsafe-api/internal/handler/refill"
	reminderhandler "github.com/jwalitptl/medsafe-api/internal/handler/reminder"
	wearablehandler "github.com/jwalitptl/medsafe-api/internal/handler/wearable"
	"github.com/jwalitptl/medsafe-api/internal/middleware"
	"github.com/jwalitptl/medsafe-api/internal/model"
	"github.com/jwalitptl/medsafe-api/internal/repository/memory"
	"github.com/jwalitptl/medsafe-api/internal/safety"
	"github.com/jwalitptl/medsafe-api/internal/service/access"
	"github.com/jwalitptl/medsafe-api/internal/service/audit"
	"github.com/jwalitptl/medsafe-api/internal/service/history"
	"github.com/jwalitptl/medsafe-api/internal/service/ocr"
	"github.com/jwalitptl/medsafe-api/internal/service/prescription"
	"github.com/jwalitptl/medsafe-api/internal/service/profile"
	"github.com/jwalitptl/medsafe-api/internal/service/record"
	"github.com/jwalitptl/medsafe-api/internal/service/refill"
	"github.com/jwalitptl/medsafe-api/internal/service/reminder"
	"github.com/jwalitptl/medsafe-api/internal/service/wearable"
	"github.com/jwalitptl/medsafe-api/pkg/auth"
	"github.com/jwalitptl/medsafe-api/pkg/logger"
	"github.com/jwalitptl/medsafe-api/pkg/metrics"
)

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *struct {
		Code     int             `json:"code"`
		Message  string          `json:"message"`
		Redirect string          `json:"redirect"`
		Details  json.RawMessage `json:"details"`
	} `json:"error"`
}

type RouterSuite struct {
	suite.Suite
	store        *memory.Store
	engine       *gin.Engine
	jwt          auth.JWTService
	patient      model.Actor
	doctor       model.Actor
	patientToken string
	doctorToken  string
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	s.store = memory.NewStore()
	m := metrics.NewForTest()
	log := logger.Nop()
	engine := safety.NewEngine(safety.DefaultKnowledgeBase())

	accessSvc := access.NewService(s.store.AccessTokens(), s.store.Outbox(), access.Config{
		DefaultTTL: 30 * time.Minute,
		MaxTTL:     24 * time.Hour,
	}, m, log)
	wearableSvc := wearable.NewService(wearable.NewSimulatedSource(time.Minute), log)
	prescriptionSvc := prescription.NewService(prescription.Deps{
		Prescriptions: s.store.Prescriptions(),
		Profiles:      s.store.Profiles(),
		History:       s.store.History(),
		Access:        accessSvc,
		Audit:         audit.NewWriter(s.store.History(), m, log),
		Readings:      wearableSvc,
		Engine:        engine,
		Metrics:       m,
		Logger:        log,
	})
	recordSvc := record.NewService(accessSvc, s.store.Profiles(), s.store.History(), s.store.Prescriptions(),
		wearableSvc, engine.Drift, log)

	registry := prometheus.NewRegistry()
	handlers := Handlers{
		Health:   health.NewHandler(registry, map[string]health.Check{}),
		Access:   accesshandler.NewHandler(accessSvc, recordSvc),
		Patient:  patienthandler.NewHandler(history.NewService(s.store.History(), accessSvc), prescriptionSvc),
		Profile:  profilehandler.NewHandler(profile.NewService(s.store.Profiles())),
		OCR:      ocrhandler.NewHandler(ocr.NewService(ocr.Config{}, m, log)),
		Wearable: wearablehandler.NewHandler(wearableSvc),
		Refill:   refillhandler.NewHandler(refill.NewService(s.store.Refills(), log)),
		Reminder: reminderhandler.NewHandler(reminder.NewService(s.store.Reminders())),
	}

	s.jwt = auth.NewJWTService("test-secret", "medsafe")
	r := NewRouter(middleware.NewAuthMiddleware(s.jwt), handlers, RouterConfig{
		RateLimit:      100,
		RateBurst:      100,
		TokenRateLimit: 100,
		TokenRateBurst: 100,
		CORSConfig:     middleware.DefaultCORSConfig(),
		MetricsPrefix:  "test",
		Registerer:     registry,
	})
	r.Setup()
	s.engine = r.Engine()

	s.patient = model.Actor{ID: uuid.New(), Role: model.RolePatient}
	s.doctor = model.Actor{ID: uuid.New(), Role: model.RoleDoctor}
	var err error
	s.patientToken, err = s.jwt.GenerateAccessToken(s.patient, time.Hour)
	s.Require().NoError(err)
	s.doctorToken, err = s.jwt.GenerateAccessToken(s.doctor, time.Hour)
	s.Require().NoError(err)
}

func (s *RouterSuite) do(method, path, bearer string, body interface{}) (int, envelope) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w.Code, env
}

func (s *RouterSuite) issueToken() string {
	code, env := s.do(http.MethodPost, "/api/v1/access-tokens", s.patientToken, gin.H{"ttl_minutes": 30})
	s.Require().Equal(http.StatusCreated, code)
	var issued model.IssuedToken
	s.Require().NoError(json.Unmarshal(env.Data, &issued))
	s.Require().Len(issued.Token, 64)
	return issued.Token
}

func (s *RouterSuite) TestHealthIsPublic() {
	code, _ := s.do(http.MethodGet, "/api/v1/health/live", "", nil)
	s.Equal(http.StatusOK, code)

	code, _ = s.do(http.MethodGet, "/api/v1/health/ready", "", nil)
	s.Equal(http.StatusOK, code)
}

func (s *RouterSuite) TestAuthenticationRequired() {
	code, env := s.do(http.MethodGet, "/api/v1/profile", "", nil)
	s.Equal(http.StatusUnauthorized, code)
	s.Equal("error", env.Status)
}

func (s *RouterSuite) TestPatientOnlyRoutes() {
	code, _ := s.do(http.MethodGet, "/api/v1/reminders", s.doctorToken, nil)
	s.Equal(http.StatusForbidden, code)

	code, _ = s.do(http.MethodGet, "/api/v1/reminders", s.patientToken, nil)
	s.Equal(http.StatusOK, code)
}

func (s *RouterSuite) TestTokenValidateAndDoctorAccess() {
	token := s.issueToken()

	code, env := s.do(http.MethodGet, "/api/v1/access-tokens/validate?token="+token, s.doctorToken, nil)
	s.Require().Equal(http.StatusOK, code)
	var validation model.TokenValidation
	s.Require().NoError(json.Unmarshal(env.Data, &validation))
	s.True(validation.Valid)
	s.Equal(s.patient.ID, *validation.PatientID)

	code, env = s.do(http.MethodGet, "/api/v1/doctor-access?token="+token, s.doctorToken, nil)
	s.Require().Equal(http.StatusOK, code)
	var view record.View
	s.Require().NoError(json.Unmarshal(env.Data, &view))
	s.Equal(s.patient.ID, view.PatientID)

	// a second doctor cannot reuse the link
	other, err := s.jwt.GenerateAccessToken(model.Actor{ID: uuid.New(), Role: model.RoleDoctor}, time.Hour)
	s.Require().NoError(err)
	code, env = s.do(http.MethodGet, "/api/v1/doctor-access?token="+token, other, nil)
	s.Equal(http.StatusUnprocessableEntity, code)
	s.Require().NotNil(env.Error)
	s.Equal(record.DoctorDashboard, env.Error.Redirect)
}

func (s *RouterSuite) TestDoctorAccessRedirects() {
	code, env := s.do(http.MethodGet, "/api/v1/doctor-access?token=not-a-token", s.doctorToken, nil)
	s.Equal(http.StatusUnprocessableEntity, code)
	s.Require().NotNil(env.Error)
	s.Equal("invalid access link", env.Error.Message)
	s.Equal(record.DoctorDashboard, env.Error.Redirect)

	token := s.issueToken()
	code, env = s.do(http.MethodGet, "/api/v1/doctor-access?token="+token, s.patientToken, nil)
	s.Equal(http.StatusForbidden, code)
	s.Require().NotNil(env.Error)
	s.Equal(record.PatientDashboard, env.Error.Redirect)
}

func (s *RouterSuite) TestSubmitRequiresAcknowledgement() {
	code, _ := s.do(http.MethodPut, "/api/v1/profile", s.patientToken, gin.H{
		"name":      "Ada",
		"allergies": []string{"Penicillin"},
	})
	s.Require().Equal(http.StatusOK, code)

	token := s.issueToken()
	code, _ = s.do(http.MethodPost, "/api/v1/access-tokens/use", s.doctorToken, gin.H{"token": token})
	s.Require().Equal(http.StatusOK, code)

	path := "/api/v1/patients/" + s.patient.ID.String() + "/prescriptions"
	draft := gin.H{
		"title":       "Chest infection",
		"medications": []gin.H{{"name": "Amoxicillin", "dosage": "500mg", "frequency": "3x daily"}},
	}

	code, env := s.do(http.MethodPost, path, s.doctorToken, draft)
	s.Require().Equal(http.StatusConflict, code)
	var details struct {
		Stage     string                 `json:"stage"`
		Conflicts []model.ConflictResult `json:"conflicts"`
	}
	s.Require().NoError(json.Unmarshal(env.Error.Details, &details))
	s.Equal(string(prescription.StageAllergyConflict), details.Stage)
	s.Require().Len(details.Conflicts, 1)
	s.Equal("Penicillin", details.Conflicts[0].Allergy)

	list, err := s.store.Prescriptions().ListByPatient(context.Background(), s.patient.ID)
	s.Require().NoError(err)
	s.Empty(list)

	draft["acknowledge_conflicts"] = true
	code, env = s.do(http.MethodPost, path, s.doctorToken, draft)
	s.Require().Equal(http.StatusCreated, code)
	var created model.Prescription
	s.Require().NoError(json.Unmarshal(env.Data, &created))
	s.True(created.IsVerified)
	s.Equal(model.UploadSourceDoctor, created.UploadSource)

	s.Contains(s.store.EventTypes(), model.EventPrescriptionCreated)
}

func (s *RouterSuite) TestSubmitWithoutGrantIsForbidden() {
	path := "/api/v1/patients/" + s.patient.ID.String() + "/prescriptions"
	code, _ := s.do(http.MethodPost, path, s.doctorToken, gin.H{"title": "x"})
	s.Equal(http.StatusForbidden, code)
}

func (s *RouterSuite) TestValidationErrorsListFields() {
	code, env := s.do(http.MethodPost, "/api/v1/reminders", s.patientToken, gin.H{
		"medication_name": "  ",
		"frequency":       "daily",
		"reminder_times":  []string{"8am"},
	})
	s.Require().Equal(http.StatusBadRequest, code)
	var fields []struct {
		Field string `json:"field"`
	}
	s.Require().NoError(json.Unmarshal(env.Error.Details, &fields))
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Field)
	}
	s.ElementsMatch([]string{"medication_name", "reminder_times[0]"}, names)
}

func (s *RouterSuite) TestScanWithoutGatewayDegrades() {
	code, env := s.do(http.MethodPost, "/api/v1/prescriptions/scan", s.patientToken, gin.H{"image_base64": "aGVsbG8="})
	s.Require().Equal(http.StatusOK, code)
	var extraction model.Extraction
	s.Require().NoError(json.Unmarshal(env.Data, &extraction))
	s.Empty(extraction.Medications)
	s.NotEmpty(extraction.Warning)
}

func (s *RouterSuite) TestRefillLifecycle() {
	code, env := s.do(http.MethodPost, "/api/v1/refills", s.patientToken, gin.H{"medication_name": "Metformin"})
	s.Require().Equal(http.StatusCreated, code)
	var created model.RefillRequest
	s.Require().NoError(json.Unmarshal(env.Data, &created))

	respond := "/api/v1/refills/" + created.ID.String() + "/respond"
	code, _ = s.do(http.MethodPost, respond, s.doctorToken, gin.H{"status": "approved"})
	s.Require().Equal(http.StatusOK, code)

	code, _ = s.do(http.MethodPost, respond, s.doctorToken, gin.H{"status": "denied"})
	s.Equal(http.StatusConflict, code)
}
