package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"mailpilot/models"
)

// memStore is an in-memory Store used by the engine tests. It mirrors the
// semantics of the GORM store, including the conditional enrollment claim.
type memStore struct {
	mu sync.Mutex

	nextID      uint
	followUps   map[uint]*models.FollowUp
	sequences   map[uint]*models.EmailSequence
	enrollments map[uint]*models.SequenceEnrollment
	contacts    map[uint]*models.Contact
	insights    []models.Insight
	analytics   []models.EmailAnalytic
	stepSent    map[uint]int

	// errOn maps a method name to an error that method should return,
	// simulating StoreUnavailable.
	errOn map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		followUps:   make(map[uint]*models.FollowUp),
		sequences:   make(map[uint]*models.EmailSequence),
		enrollments: make(map[uint]*models.SequenceEnrollment),
		contacts:    make(map[uint]*models.Contact),
		stepSent:    make(map[uint]int),
		errOn:       make(map[string]error),
	}
}

func (m *memStore) fail(op string) error {
	if err, ok := m.errOn[op]; ok {
		return &StoreError{Op: op, Err: err}
	}
	return nil
}

func (m *memStore) id() uint {
	m.nextID++
	return m.nextID
}

func (m *memStore) GetFollowUp(_ context.Context, userID, id uint) (*models.FollowUp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetFollowUp"); err != nil {
		return nil, err
	}
	f, ok := m.followUps[id]
	if !ok || f.UserID != userID {
		return nil, &NotFoundError{Kind: "follow-up", ID: id}
	}
	cp := *f
	return &cp, nil
}

func (m *memStore) CreateFollowUp(_ context.Context, f *models.FollowUp) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateFollowUp"); err != nil {
		return err
	}
	f.ID = m.id()
	cp := *f
	m.followUps[f.ID] = &cp
	return nil
}

func (m *memStore) UpdateFollowUp(_ context.Context, id uint, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateFollowUp"); err != nil {
		return err
	}
	f, ok := m.followUps[id]
	if !ok {
		return &NotFoundError{Kind: "follow-up", ID: id}
	}
	for k, v := range fields {
		switch k {
		case "status":
			f.Status = v.(string)
		case "due_at":
			f.DueAt = v.(time.Time)
		case "completed_at":
			if v == nil {
				f.CompletedAt = nil
			} else {
				t := v.(time.Time)
				f.CompletedAt = &t
			}
		}
	}
	return nil
}

func (m *memStore) ListFollowUps(_ context.Context, userID uint, status string) ([]models.FollowUp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListFollowUps"); err != nil {
		return nil, err
	}
	var out []models.FollowUp
	for _, f := range m.followUps {
		if f.UserID == userID && (status == "" || f.Status == status) {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	return out, nil
}

func (m *memStore) ListOverdueFollowUps(_ context.Context, userID uint, now time.Time) ([]models.FollowUp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListOverdueFollowUps"); err != nil {
		return nil, err
	}
	var out []models.FollowUp
	for _, f := range m.followUps {
		if f.UserID == userID && f.IsOverdue(now) {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	return out, nil
}

func (m *memStore) GetSequence(_ context.Context, id uint) (*models.EmailSequence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetSequence"); err != nil {
		return nil, err
	}
	s, ok := m.sequences[id]
	if !ok {
		return nil, &NotFoundError{Kind: "sequence", ID: id}
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) ListDueEnrollments(_ context.Context, now time.Time) ([]models.SequenceEnrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListDueEnrollments"); err != nil {
		return nil, err
	}
	var out []models.SequenceEnrollment
	for _, e := range m.enrollments {
		if e.Status == models.EnrollmentStatusActive && e.NextSendAt != nil && !e.NextSendAt.After(now) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ClaimEnrollment(_ context.Context, id uint, expected, claimUntil time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ClaimEnrollment"); err != nil {
		return false, err
	}
	e, ok := m.enrollments[id]
	if !ok || e.Status != models.EnrollmentStatusActive || e.NextSendAt == nil {
		return false, nil
	}
	if !e.NextSendAt.Equal(expected) {
		return false, nil
	}
	t := claimUntil
	e.NextSendAt = &t
	return true, nil
}

func (m *memStore) UpdateEnrollment(_ context.Context, id uint, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateEnrollment"); err != nil {
		return err
	}
	e, ok := m.enrollments[id]
	if !ok {
		return &NotFoundError{Kind: "enrollment", ID: id}
	}
	for k, v := range fields {
		switch k {
		case "status":
			e.Status = v.(string)
		case "current_step":
			e.CurrentStep = v.(int)
		case "completed_at":
			if v == nil {
				e.CompletedAt = nil
			} else {
				t := v.(time.Time)
				e.CompletedAt = &t
			}
		case "next_send_at":
			if v == nil {
				e.NextSendAt = nil
			} else {
				t := v.(time.Time)
				e.NextSendAt = &t
			}
		}
	}
	return nil
}

func (m *memStore) IncrementStepSent(_ context.Context, stepID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("IncrementStepSent"); err != nil {
		return err
	}
	m.stepSent[stepID]++
	return nil
}

func (m *memStore) GetContact(_ context.Context, id uint) (*models.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetContact"); err != nil {
		return nil, err
	}
	c, ok := m.contacts[id]
	if !ok {
		return nil, &NotFoundError{Kind: "contact", ID: id}
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) MarkContacted(_ context.Context, contactID uint, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("MarkContacted"); err != nil {
		return err
	}
	c, ok := m.contacts[contactID]
	if !ok {
		return &NotFoundError{Kind: "contact", ID: contactID}
	}
	t := now
	c.LastContactedAt = &t
	c.TotalEmailsSent++
	return nil
}

func (m *memStore) CountColdContacts(_ context.Context, userID uint, scoreBelow int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CountColdContacts"); err != nil {
		return 0, err
	}
	var n int64
	for _, c := range m.contacts {
		if c.UserID == userID && c.RelationshipScore < scoreBelow {
			n++
		}
	}
	return n, nil
}

func (m *memStore) CreateInsight(_ context.Context, in *models.Insight) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateInsight"); err != nil {
		return err
	}
	in.ID = m.id()
	m.insights = append(m.insights, *in)
	return nil
}

func (m *memStore) HasOpenInsight(_ context.Context, userID uint, insightType string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("HasOpenInsight"); err != nil {
		return false, err
	}
	for _, in := range m.insights {
		if in.UserID != userID || in.Type != insightType || in.IsDismissed {
			continue
		}
		if in.ExpiresAt != nil && in.ExpiresAt.Before(now) {
			continue
		}
		return true, nil
	}
	return false, nil
}

func (m *memStore) RecordSend(_ context.Context, a *models.EmailAnalytic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("RecordSend"); err != nil {
		return err
	}
	m.analytics = append(m.analytics, *a)
	return nil
}

// addContact, addSequence, addEnrollment, addFollowUp seed test fixtures.

func (m *memStore) addContact(c models.Contact) uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id()
	m.contacts[c.ID] = &c
	return c.ID
}

func (m *memStore) addSequence(s models.EmailSequence) uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.id()
	for i := range s.Steps {
		s.Steps[i].ID = m.id()
		s.Steps[i].SequenceID = s.ID
	}
	m.sequences[s.ID] = &s
	return s.ID
}

func (m *memStore) addEnrollment(e models.SequenceEnrollment) uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.id()
	m.enrollments[e.ID] = &e
	return e.ID
}

func (m *memStore) enrollment(id uint) models.SequenceEnrollment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.enrollments[id]
}

func (m *memStore) followUp(id uint) models.FollowUp {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.followUps[id]
}

// staleStore wraps memStore but serves a frozen due list, simulating an
// overlapping scheduler that read enrollments before the first tick wrote
// them back. Claims still hit the live store.
type staleStore struct {
	*memStore
	stale []models.SequenceEnrollment
}

func (s *staleStore) ListDueEnrollments(context.Context, time.Time) ([]models.SequenceEnrollment, error) {
	out := make([]models.SequenceEnrollment, len(s.stale))
	copy(out, s.stale)
	return out, nil
}

// fakeClock is a settable Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock { return &fakeClock{now: now} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type sendCall struct {
	To      string
	Subject string
	Body    string
}

// recordingSender captures sends and can be told to fail.
type recordingSender struct {
	mu    sync.Mutex
	calls []sendCall
	err   error
}

func (s *recordingSender) Send(_ context.Context, to, subject, body string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.calls = append(s.calls, sendCall{To: to, Subject: subject, Body: body})
	return fmt.Sprintf("msg-%d", len(s.calls)), nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

var errBoom = errors.New("boom")
