package worksheet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/mathpro/internal/llm"
	"github.com/pavelanni/mathpro/internal/model"
)

// DefaultViewTTL is how long an untouched view is kept.
const DefaultViewTTL = 2 * time.Hour

// Step is the screen a view is on.
type Step int

const (
	StepInput Step = iota
	StepWorksheet
	StepDocument
)

func (s Step) String() string {
	switch s {
	case StepWorksheet:
		return "worksheet"
	case StepDocument:
		return "document"
	}
	return "input"
}

// MarshalText encodes the step by name.
func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a step name.
func (s *Step) UnmarshalText(text []byte) error {
	switch string(text) {
	case "input":
		*s = StepInput
	case "worksheet":
		*s = StepWorksheet
	case "document":
		*s = StepDocument
	default:
		return fmt.Errorf("unknown step %q", text)
	}
	return nil
}

// Library is the part of the worksheet library a Driver needs.
type Library interface {
	Get(ctx context.Context, id int64) (*model.LibraryEntry, error)
	Save(ctx context.Context, entry model.LibraryEntry) (int64, error)
}

// ContentGenerator produces validated worksheet content. *Generator implements it.
type ContentGenerator interface {
	Generate(ctx context.Context, req llm.WorksheetRequest) (model.Content, error)
}

// GenerateRequest describes a worksheet to author into an existing view.
type GenerateRequest struct {
	LessonName string
	Attachment *llm.Attachment
}

// view is one browser-facing worksheet flow.
type view struct {
	mu       sync.Mutex
	id       string
	owner    int64
	step     Step
	grade    string
	category model.Category
	content  model.Content
	entryID  int64
	saved    bool
	session  *Session
	touched  atomic.Int64 // unix nanos, read without mu
}

// QuestionView pairs a question with its session state.
type QuestionView struct {
	model.Question
	Policy SubmissionPolicy `json:"policy"`
	State  QuestionState    `json:"state"`
}

// ViewState is a point-in-time copy of a view, safe to render.
type ViewState struct {
	ID         string         `json:"id"`
	Owner      int64          `json:"-"`
	Step       Step           `json:"step"`
	Grade      string         `json:"grade"`
	Category   model.Category `json:"category"`
	LessonName string         `json:"lesson_name"`
	EntryID    int64          `json:"entry_id,omitempty"`
	Saved      bool           `json:"saved"`
	HintsFirst bool           `json:"hints_first"`
	Questions  []QuestionView `json:"questions,omitempty"`
	Summary    *Snapshot      `json:"summary,omitempty"`
	Document   *model.Content `json:"-"`
}

// Driver owns the live worksheet views.
type Driver struct {
	mu        sync.RWMutex
	views     map[string]*view
	generator ContentGenerator
	library   Library
	ttl       time.Duration
	now       func() time.Time
}

// NewDriver creates a Driver. A zero ttl means DefaultViewTTL.
func NewDriver(gen ContentGenerator, lib Library, ttl time.Duration) *Driver {
	if ttl <= 0 {
		ttl = DefaultViewTTL
	}
	return &Driver{
		views:     make(map[string]*view),
		generator: gen,
		library:   lib,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Start opens a view on the input form.
func (d *Driver) Start(owner int64, grade string, category model.Category) ViewState {
	v := &view{
		id:       uuid.NewString(),
		owner:    owner,
		step:     StepInput,
		grade:    grade,
		category: category,
	}
	v.touch(d.now())
	d.mu.Lock()
	d.sweepLocked()
	d.views[v.id] = v
	d.mu.Unlock()
	return v.state()
}

// Generate authors a worksheet into the view. The view is only updated when
// generation succeeds; the result lands on whatever the view is when the
// call returns.
func (d *Driver) Generate(ctx context.Context, viewID string, req GenerateRequest) (ViewState, error) {
	v, err := d.lookup(viewID)
	if err != nil {
		return ViewState{}, err
	}

	v.mu.Lock()
	authoring := llm.WorksheetRequest{
		LessonName: req.LessonName,
		Grade:      v.grade,
		Category:   v.category,
		Attachment: req.Attachment,
	}
	v.mu.Unlock()

	content, err := d.generator.Generate(ctx, authoring)
	if err != nil {
		return ViewState{}, err
	}

	// The view may have been closed while the AI was working.
	if _, err := d.lookup(viewID); err != nil {
		return ViewState{}, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.step = StepWorksheet
	v.content = content
	v.session = NewSession(content.Questions)
	v.entryID = 0
	v.saved = false
	return v.stateLocked(), nil
}

// Open loads a library entry into a new view and routes it to the graded
// worksheet or to the document viewer.
func (d *Driver) Open(ctx context.Context, owner int64, entryID int64) (ViewState, error) {
	entry, err := d.library.Get(ctx, entryID)
	if err != nil {
		return ViewState{}, err
	}

	v := &view{
		id:       uuid.NewString(),
		owner:    owner,
		grade:    entry.Grade,
		category: entry.Category,
		content:  entry.Content,
		entryID:  entry.ID,
		saved:    true,
	}
	v.touch(d.now())
	if v.content.LessonName == "" {
		v.content.LessonName = entry.Name
	}

	switch entry.Content.Kind() {
	case model.KindStructured:
		v.step = StepWorksheet
		v.session = NewSession(entry.Content.Questions)
	case model.KindDocument:
		v.step = StepDocument
	default:
		return ViewState{}, fmt.Errorf("open worksheet %d: %w", entryID, ErrEmptyContent)
	}

	d.mu.Lock()
	d.sweepLocked()
	d.views[v.id] = v
	d.mu.Unlock()
	return v.state(), nil
}

// View returns the current state of a view.
func (d *Driver) View(viewID string) (ViewState, error) {
	v, err := d.lookup(viewID)
	if err != nil {
		return ViewState{}, err
	}
	return v.state(), nil
}

// Answer records an answer according to the question's submission policy.
func (d *Driver) Answer(viewID string, qid model.QuestionID, value string) (ViewState, error) {
	return d.withSession(viewID, func(s *Session) error {
		_, err := s.Answer(qid, value)
		return err
	})
}

// Confirm grades a drafted free-text answer.
func (d *Driver) Confirm(viewID string, qid model.QuestionID) (ViewState, error) {
	return d.withSession(viewID, func(s *Session) error {
		_, err := s.Confirm(qid)
		return err
	})
}

// Reset starts the attempt over. The saved flag is kept.
func (d *Driver) Reset(viewID string) (ViewState, error) {
	return d.withSession(viewID, func(s *Session) error {
		s.Reset()
		return nil
	})
}

// Save stores a freshly generated worksheet in the library. A view saves at
// most once; a failed save leaves the session untouched.
func (d *Driver) Save(ctx context.Context, viewID string, name string, createdBy int64) (ViewState, error) {
	v, err := d.lookup(viewID)
	if err != nil {
		return ViewState{}, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.step != StepWorksheet {
		return v.stateLocked(), ErrNotGraded
	}
	if v.saved {
		return v.stateLocked(), ErrAlreadySaved
	}

	if name == "" {
		name = v.content.LessonName
	}
	id, err := d.library.Save(ctx, model.LibraryEntry{
		Name:      name,
		Grade:     v.grade,
		Category:  v.category,
		Content:   v.content,
		CreatedBy: createdBy,
	})
	if err != nil {
		return v.stateLocked(), err
	}

	v.saved = true
	v.entryID = id
	slog.Info("worksheet saved to library", "view", v.id, "entry", id, "name", name)
	return v.stateLocked(), nil
}

// Close discards a view.
func (d *Driver) Close(viewID string) {
	d.mu.Lock()
	delete(d.views, viewID)
	d.mu.Unlock()
}

// Len returns the number of live views.
func (d *Driver) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.views)
}

func (d *Driver) withSession(viewID string, fn func(*Session) error) (ViewState, error) {
	v, err := d.lookup(viewID)
	if err != nil {
		return ViewState{}, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.session == nil {
		return v.stateLocked(), ErrNotGraded
	}
	err = fn(v.session)
	return v.stateLocked(), err
}

// lookup finds a live view and refreshes its TTL. Expired views are swept here.
func (d *Driver) lookup(viewID string) (*view, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sweepLocked()
	v, ok := d.views[viewID]
	if !ok {
		return nil, ErrUnknownView
	}
	v.touch(d.now())
	return v, nil
}

func (d *Driver) sweepLocked() {
	cutoff := d.now().Add(-d.ttl).UnixNano()
	for id, v := range d.views {
		if v.touched.Load() < cutoff {
			delete(d.views, id)
		}
	}
}

func (v *view) touch(t time.Time) {
	v.touched.Store(t.UnixNano())
}

func (v *view) state() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stateLocked()
}

func (v *view) stateLocked() ViewState {
	vs := ViewState{
		ID:         v.id,
		Owner:      v.owner,
		Step:       v.step,
		Grade:      v.grade,
		Category:   v.category,
		LessonName: v.content.LessonName,
		EntryID:    v.entryID,
		Saved:      v.saved,
		HintsFirst: v.category.HintsFirst(),
	}
	switch v.step {
	case StepWorksheet:
		if v.session == nil {
			break
		}
		questions := v.session.Questions()
		vs.Questions = make([]QuestionView, len(questions))
		for i, q := range questions {
			st, _ := v.session.State(q.ID)
			vs.Questions[i] = QuestionView{Question: q, Policy: PolicyFor(q.Type), State: st}
		}
		snap := v.session.Snapshot()
		vs.Summary = &snap
	case StepDocument:
		doc := v.content
		vs.Document = &doc
	}
	return vs
}
