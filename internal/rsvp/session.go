package rsvp

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/Raymond9734/event-rsvp-backend/internal/models"
)

// Backend is the remote side of an RSVP page
type Backend interface {
	Fetch(ctx context.Context, token string) (*models.RSVPRecord, error)
	ValidateName(ctx context.Context, token, fullname string) error
	Submit(ctx context.Context, token string, req models.SubmitRSVPRequest) (*models.RSVPState, error)
}

// Phase is the load state of a session
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseError
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseError:
		return "error"
	case PhaseReady:
		return "ready"
	default:
		return "unknown"
	}
}

var (
	// ErrSuperseded is returned by an operation whose result arrived after a
	// newer load or Close. Its result was discarded.
	ErrSuperseded = errors.New("rsvp: superseded by a newer load")

	ErrClosed     = errors.New("rsvp: session closed")
	ErrNotReady   = errors.New("rsvp: record not loaded")
	ErrSubmitting = errors.New("rsvp: submission already in progress")
)

// Messages shown for local validation failures
const (
	msgNameRequired   = "Please enter your full name"
	msgStatusRequired = "Please let us know whether you will attend"
	msgLocked         = "Your RSVP has already been recorded and can no longer be changed"
	msgAttendance     = "Attendance is set by choosing a response"
	msgGeneric        = "Something went wrong. Please try again."
)

// Session is the state of one RSVP page. It is safe for concurrent use; each
// load bumps a generation counter and results from older generations are
// dropped instead of applied.
type Session struct {
	backend Backend

	mu         sync.Mutex
	generation uint64
	closed     bool

	token      string
	phase      Phase
	loadErr    error
	record     *models.RSVPRecord
	fullname   string
	status     models.RSVPStatus
	responses  map[string]any
	submitting bool
}

// View is a snapshot of a session for rendering
type View struct {
	Phase      Phase
	Err        error
	Record     *models.RSVPRecord
	Fullname   string
	Status     models.RSVPStatus
	Responses  map[string]any
	Submitting bool
	Locked     bool
	CanSubmit  bool
	Controls   []Control
}

// NewSession creates a session backed by backend
func NewSession(backend Backend) *Session {
	return &Session{
		backend: backend,
		phase:   PhaseLoading,
	}
}

// Load fetches the record for token and makes it current. If another Load or
// Close happens while the fetch is in flight, the result is discarded and
// ErrSuperseded is returned.
func (s *Session) Load(ctx context.Context, token string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.generation++
	gen := s.generation
	s.token = token
	s.phase = PhaseLoading
	s.loadErr = nil
	s.record = nil
	s.submitting = false
	s.mu.Unlock()

	record, err := s.backend.Fetch(ctx, token)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return ErrSuperseded
	}
	if err == nil && record == nil {
		err = ErrNotReady
	}
	if err != nil {
		s.phase = PhaseError
		s.loadErr = err
		return err
	}

	s.record = record
	s.fullname = record.Guest.Fullname
	s.status = record.RSVP.Status
	if s.status == "" {
		s.status = models.RSVPPending
	}
	s.responses = maps.Clone(record.RSVP.Responses)
	if s.responses == nil {
		s.responses = make(map[string]any)
	}
	s.phase = PhaseReady
	return nil
}

// Close tears the session down. In-flight loads and submits resolve as
// ErrSuperseded without touching state.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.generation++
}

// Phase returns the current load phase
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Locked reports whether the loaded record refuses changes. The persisted
// status decides this, not the status chosen locally.
func (s *Session) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lockedLocked()
}

// Fields returns the dynamic fields to render
func (s *Session) Fields() []Field {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil {
		return nil
	}
	return RenderedFields(s.record.Form)
}

// View returns a snapshot of the session
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		Phase:      s.phase,
		Err:        s.loadErr,
		Fullname:   s.fullname,
		Status:     s.status,
		Responses:  maps.Clone(s.responses),
		Submitting: s.submitting,
		Locked:     s.lockedLocked(),
	}
	if s.record != nil {
		record := *s.record
		record.RSVP.Responses = maps.Clone(record.RSVP.Responses)
		record.Form.Fields = slices.Clone(record.Form.Fields)
		for i := range record.Form.Fields {
			record.Form.Fields[i].Options = slices.Clone(record.Form.Fields[i].Options)
		}
		v.Record = &record

		disabled := v.Submitting || v.Locked
		for _, f := range RenderedFields(s.record.Form) {
			v.Controls = append(v.Controls, f.Control(disabled))
		}
	}
	v.CanSubmit = s.canSubmitLocked()
	return v
}

// SetFullname updates the name typed by the guest
func (s *Session) SetFullname(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	s.fullname = name
	return nil
}

// SelectStatus picks a status chip. The attendance response follows the
// status in the same update.
func (s *Session) SelectStatus(status models.RSVPStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	if !status.IsValid() {
		return models.ErrInvalidInput("unknown RSVP status " + string(status))
	}

	responses := maps.Clone(s.responses)
	responses[models.AttendanceField] = string(status)
	s.status = status
	s.responses = responses
	return nil
}

// SetResponse records the answer to a dynamic field
func (s *Session) SetResponse(name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	if name == models.AttendanceField {
		return models.ErrInvalidInput(msgAttendance)
	}

	responses := maps.Clone(s.responses)
	responses[name] = value
	s.responses = responses
	return nil
}

// CanSubmit reports whether the submit control is enabled
func (s *Session) CanSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canSubmitLocked()
}

// Submit runs the submission pipeline. Local checks fail before any network
// call. On success the record is patched with the stored answer; on failure
// the session is left as it was.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.phase != PhaseReady || s.record == nil {
		s.mu.Unlock()
		return ErrNotReady
	}
	if s.submitting {
		s.mu.Unlock()
		return ErrSubmitting
	}
	fullname := strings.TrimSpace(s.fullname)
	if fullname == "" {
		s.mu.Unlock()
		return models.ErrInvalidInput(msgNameRequired)
	}
	if !s.status.IsAnswer() {
		s.mu.Unlock()
		return models.ErrInvalidInput(msgStatusRequired)
	}
	if s.lockedLocked() {
		s.mu.Unlock()
		return models.ErrLockedWithMsg(msgLocked)
	}
	for _, f := range RenderedFields(s.record.Form) {
		if err := f.Validate(s.responses[f.Definition().Name]); err != nil {
			s.mu.Unlock()
			return err
		}
	}

	gen := s.generation
	token := s.token
	validateName := s.record.Form.EnableNameValidation
	req := models.SubmitRSVPRequest{
		Fullname:  fullname,
		Status:    s.status,
		Responses: maps.Clone(s.responses),
	}
	req.Responses[models.AttendanceField] = string(s.status)
	s.submitting = true
	s.mu.Unlock()

	if validateName {
		if err := s.backend.ValidateName(ctx, token, fullname); err != nil {
			return s.finishSubmit(gen, nil, err)
		}
	}

	state, err := s.backend.Submit(ctx, token, req)
	if err == nil && state == nil {
		state = &models.RSVPState{Status: req.Status, Responses: req.Responses}
	}
	return s.finishSubmit(gen, state, err)
}

func (s *Session) finishSubmit(gen uint64, state *models.RSVPState, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return ErrSuperseded
	}
	s.submitting = false
	if err != nil {
		return err
	}

	s.record.RSVP = models.RSVPState{
		Status:      state.Status,
		Responses:   maps.Clone(state.Responses),
		RespondedAt: state.RespondedAt,
	}
	s.status = state.Status
	s.responses = maps.Clone(state.Responses)
	if s.responses == nil {
		s.responses = make(map[string]any)
	}
	return nil
}

func (s *Session) lockedLocked() bool {
	return s.record != nil && s.record.Locked()
}

func (s *Session) canSubmitLocked() bool {
	return s.phase == PhaseReady && !s.submitting && !s.lockedLocked()
}

func (s *Session) editableLocked() error {
	if s.phase != PhaseReady || s.record == nil {
		return ErrNotReady
	}
	if s.submitting {
		return ErrSubmitting
	}
	if s.lockedLocked() {
		return models.ErrLockedWithMsg(msgLocked)
	}
	return nil
}

// UserMessage turns an error from a session into text for the guest. The
// backend's message is used when it sent one.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return msgGeneric
}
