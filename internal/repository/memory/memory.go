// Package memory holds map-backed repositories with the same semantics as the
// postgres ones. Service tests run against them.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/medsafe-api/internal/model"
	"github.com/jwalitptl/medsafe-api/internal/repository"
)

// Store backs every repository in this package. Writes that the postgres
// repositories perform in one transaction happen under one lock here.
type Store struct {
	mu  sync.Mutex
	Now func() time.Time

	tokens        map[string]*model.AccessToken
	prescriptions []*model.Prescription
	history       []*model.MedicalHistoryRecord
	profiles      map[uuid.UUID]*model.Profile
	refills       map[uuid.UUID]*model.RefillRequest
	reminders     map[uuid.UUID]*model.MedicationReminder
	Events        []*model.OutboxEvent

	// FailHistoryWrites makes every medical history insert fail.
	FailHistoryWrites error
}

func NewStore() *Store {
	return &Store{
		Now:       time.Now,
		tokens:    map[string]*model.AccessToken{},
		profiles:  map[uuid.UUID]*model.Profile{},
		refills:   map[uuid.UUID]*model.RefillRequest{},
		reminders: map[uuid.UUID]*model.MedicationReminder{},
	}
}

func (s *Store) stage(event *model.OutboxEvent) {
	if event != nil {
		s.Events = append(s.Events, event)
	}
}

// EventTypes returns the types of staged outbox events in order.
func (s *Store) EventTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]string, 0, len(s.Events))
	for _, e := range s.Events {
		types = append(types, e.EventType)
	}
	return types
}

type AccessTokens struct{ *Store }

func (s *Store) AccessTokens() repository.AccessTokenRepository { return AccessTokens{s} }

func (r AccessTokens) Create(_ context.Context, token *model.AccessToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *token
	cp.Token = ""
	r.tokens[token.TokenHash] = &cp
	return nil
}

func (r AccessTokens) FindUnexpired(_ context.Context, tokenHash string) (*model.AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[tokenHash]
	if !ok || !r.Now().Before(t.ExpiresAt) {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r AccessTokens) Consume(_ context.Context, tokenHash string, doctorID uuid.UUID) (*model.AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.Now()
	t, ok := r.tokens[tokenHash]
	if !ok || !now.Before(t.ExpiresAt) || (t.UsedBy != nil && *t.UsedBy != doctorID) {
		return nil, repository.ErrTokenUnavailable
	}
	t.UsedBy = &doctorID
	if t.UsedAt == nil {
		t.UsedAt = &now
	}
	cp := *t
	return &cp, nil
}

func (r AccessTokens) HasGrant(_ context.Context, doctorID, patientID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.Now()
	for _, t := range r.tokens {
		if t.PatientID == patientID && t.UsedBy != nil && *t.UsedBy == doctorID && now.Before(t.ExpiresAt) {
			return true, nil
		}
	}
	return false, nil
}

func (r AccessTokens) ListActiveByPatient(_ context.Context, patientID uuid.UUID) ([]*model.AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.Now()
	out := []*model.AccessToken{}
	for _, t := range r.tokens {
		if t.PatientID == patientID && now.Before(t.ExpiresAt) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r AccessTokens) DeleteExpiredBefore(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, t := range r.tokens {
		if t.ExpiresAt.Before(before) {
			delete(r.tokens, k)
			n++
		}
	}
	return n, nil
}

type Prescriptions struct{ *Store }

func (s *Store) Prescriptions() repository.PrescriptionRepository { return Prescriptions{s} }

func (r Prescriptions) CreateWithEvent(_ context.Context, p *model.Prescription, event *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.prescriptions = append(r.prescriptions, &cp)
	r.stage(event)
	return nil
}

// ListByPatient returns newest first; later inserts count as newer when timestamps tie.
func (r Prescriptions) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*model.Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Prescription{}
	for i := len(r.prescriptions) - 1; i >= 0; i-- {
		if p := r.prescriptions[i]; p.PatientID == patientID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type History struct{ *Store }

func (s *Store) History() repository.MedicalHistoryRepository { return History{s} }

func (r History) Create(_ context.Context, record *model.MedicalHistoryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailHistoryWrites != nil {
		return r.FailHistoryWrites
	}
	cp := *record
	r.history = append(r.history, &cp)
	return nil
}

func (r History) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*model.MedicalHistoryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.MedicalHistoryRecord{}
	for i := len(r.history) - 1; i >= 0; i-- {
		if h := r.history[i]; h.PatientID == patientID {
			cp := *h
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DateRecorded.After(out[j].DateRecorded) })
	return out, nil
}

type Profiles struct{ *Store }

func (s *Store) Profiles() repository.ProfileRepository { return Profiles{s} }

func (r Profiles) Get(_ context.Context, userID uuid.UUID) (*model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r Profiles) Upsert(_ context.Context, profile *model.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *profile
	if existing, ok := r.profiles[profile.UserID]; ok {
		cp.CreatedAt = existing.CreatedAt
	}
	r.profiles[profile.UserID] = &cp
	return nil
}

type Refills struct{ *Store }

func (s *Store) Refills() repository.RefillRepository { return Refills{s} }

func (r Refills) CreateWithEvent(_ context.Context, req *model.RefillRequest, event *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *req
	r.refills[req.ID] = &cp
	r.stage(event)
	return nil
}

func (r Refills) Get(_ context.Context, id uuid.UUID) (*model.RefillRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.refills[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (r Refills) list(keep func(*model.RefillRequest) bool) []*model.RefillRequest {
	out := []*model.RefillRequest{}
	for _, req := range r.refills {
		if keep(req) {
			cp := *req
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r Refills) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*model.RefillRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.list(func(req *model.RefillRequest) bool { return req.PatientID == patientID })
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r Refills) ListPending(_ context.Context, page model.Pagination) ([]*model.RefillRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.list(func(req *model.RefillRequest) bool { return req.Status == model.RefillStatusPending })
	start := page.Offset()
	if start > len(out) {
		return []*model.RefillRequest{}, nil
	}
	end := start + page.Limit()
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], nil
}

func (r Refills) Respond(_ context.Context, req *model.RefillRequest, event *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.refills[req.ID]
	if !ok || existing.Status != model.RefillStatusPending {
		return repository.ErrStateConflict
	}
	existing.Status = req.Status
	existing.DoctorResponse = req.DoctorResponse
	existing.DoctorID = req.DoctorID
	existing.UpdatedAt = req.UpdatedAt
	r.stage(event)
	return nil
}

type Reminders struct{ *Store }

func (s *Store) Reminders() repository.ReminderRepository { return Reminders{s} }

func (r Reminders) Create(_ context.Context, reminder *model.MedicationReminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *reminder
	r.reminders[reminder.ID] = &cp
	return nil
}

func (r Reminders) Get(_ context.Context, id uuid.UUID) (*model.MedicationReminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rem, ok := r.reminders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *rem
	return &cp, nil
}

func (r Reminders) Update(_ context.Context, reminder *model.MedicationReminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.reminders[reminder.ID]
	if !ok || existing.UserID != reminder.UserID {
		return repository.ErrNotFound
	}
	cp := *reminder
	cp.IsActive = existing.IsActive
	cp.CreatedAt = existing.CreatedAt
	r.reminders[reminder.ID] = &cp
	return nil
}

func (r Reminders) Delete(_ context.Context, id, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.reminders[id]
	if !ok || existing.UserID != userID {
		return repository.ErrNotFound
	}
	delete(r.reminders, id)
	return nil
}

func (r Reminders) ListByUser(_ context.Context, userID uuid.UUID) ([]*model.MedicationReminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.MedicationReminder{}
	for _, rem := range r.reminders {
		if rem.UserID == userID {
			cp := *rem
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r Reminders) SetActive(_ context.Context, id, userID uuid.UUID, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.reminders[id]
	if !ok || existing.UserID != userID {
		return repository.ErrNotFound
	}
	existing.IsActive = active
	existing.UpdatedAt = r.Now()
	return nil
}

type Outbox struct{ *Store }

func (s *Store) Outbox() repository.OutboxRepository { return Outbox{s} }

func (r Outbox) Create(_ context.Context, event *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stage(event)
	return nil
}

func (r Outbox) ProcessPending(_ context.Context, limit int, fn func(*model.OutboxEvent) repository.OutboxResult) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.Now()
	handled := 0
	for _, e := range r.Events {
		if handled >= limit {
			break
		}
		if e.Status != model.OutboxStatusPending && e.Status != model.OutboxStatusRetry {
			continue
		}
		if e.RetryAt != nil && e.RetryAt.After(now) {
			continue
		}
		res := fn(e)
		e.Status = res.Status
		e.ErrorMessage = res.Error
		e.RetryAt = res.RetryAt
		if res.Status == model.OutboxStatusProcessed {
			e.ProcessedAt = &now
		} else {
			e.RetryCount++
		}
		e.UpdatedAt = now
		handled++
	}
	return handled, nil
}

func (r Outbox) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.Events[:0]
	var n int64
	for _, e := range r.Events {
		if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	r.Events = kept
	return n, nil
}
