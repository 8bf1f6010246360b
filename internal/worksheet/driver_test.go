package worksheet

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/mathpro/internal/llm"
	"github.com/pavelanni/mathpro/internal/model"
)

type fakeLibrary struct {
	mu      sync.Mutex
	entries map[int64]model.LibraryEntry
	nextID  int64
	saveErr error
	saves   int
}

func newFakeLibrary(entries ...model.LibraryEntry) *fakeLibrary {
	lib := &fakeLibrary{entries: make(map[int64]model.LibraryEntry)}
	for _, e := range entries {
		lib.entries[e.ID] = e
		lib.nextID = max(lib.nextID, e.ID)
	}
	return lib
}

func (f *fakeLibrary) Get(_ context.Context, id int64) (*model.LibraryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &e, nil
}

func (f *fakeLibrary) Save(_ context.Context, entry model.LibraryEntry) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	f.nextID++
	entry.ID = f.nextID
	f.entries[entry.ID] = entry
	return entry.ID, nil
}

type funcGenerator func(ctx context.Context, req llm.WorksheetRequest) (model.Content, error)

func (f funcGenerator) Generate(ctx context.Context, req llm.WorksheetRequest) (model.Content, error) {
	return f(ctx, req)
}

func staticGenerator(content model.Content) funcGenerator {
	return func(context.Context, llm.WorksheetRequest) (model.Content, error) { return content, nil }
}

func structured(n int) model.Content {
	return model.Content{Type: model.SourceGenerated, LessonName: "Phân số", Questions: shortAnswers(n)}
}

func TestDriverGenerateFlow(t *testing.T) {
	var got llm.WorksheetRequest
	gen := funcGenerator(func(_ context.Context, req llm.WorksheetRequest) (model.Content, error) {
		got = req
		return structured(10), nil
	})
	d := NewDriver(gen, newFakeLibrary(), 0)

	vs := d.Start(7, "6", model.CategoryConsolidation)
	assert.Equal(t, StepInput, vs.Step)
	assert.Nil(t, vs.Summary)

	vs, err := d.Generate(context.Background(), vs.ID, GenerateRequest{LessonName: "Phân số"})
	require.NoError(t, err)
	assert.Equal(t, StepWorksheet, vs.Step)
	assert.Equal(t, "6", got.Grade)
	assert.Equal(t, model.CategoryConsolidation, got.Category)
	assert.True(t, vs.HintsFirst)
	assert.False(t, vs.Saved)
	require.Len(t, vs.Questions, 10)
	assert.Equal(t, PolicyConfirm, vs.Questions[0].Policy)
	require.NotNil(t, vs.Summary)
	assert.Equal(t, 10, vs.Summary.Total)
	assert.Equal(t, int64(7), vs.Owner)

	for _, q := range vs.Questions {
		_, err := d.Answer(vs.ID, q.ID, q.CorrectAnswer)
		require.NoError(t, err)
		vs, err = d.Confirm(vs.ID, q.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, 10.0, vs.Summary.Score)
	assert.True(t, vs.Summary.Completed)

	vs, err = d.Reset(vs.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, vs.Summary.Score)
	assert.Equal(t, 0, vs.Summary.Answered)
}

func TestDriverGenerateFailureLeavesViewUntouched(t *testing.T) {
	fail := &GenerationError{Reason: ReasonEmpty, Err: ErrNoQuestions}
	calls := 0
	gen := funcGenerator(func(context.Context, llm.WorksheetRequest) (model.Content, error) {
		calls++
		if calls == 1 {
			return structured(3), nil
		}
		return model.Content{}, fail
	})
	d := NewDriver(gen, newFakeLibrary(), 0)
	vs := d.Start(1, "7", model.CategoryPractice)

	vs, err := d.Generate(context.Background(), vs.ID, GenerateRequest{LessonName: "a"})
	require.NoError(t, err)
	_, err = d.Answer(vs.ID, "1", "0")
	require.NoError(t, err)
	before, err := d.Confirm(vs.ID, "1")
	require.NoError(t, err)

	_, err = d.Generate(context.Background(), vs.ID, GenerateRequest{LessonName: "b"})
	assert.ErrorIs(t, err, fail)

	after, err := d.View(vs.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestDriverLastResolvedWins(t *testing.T) {
	release := make(chan struct{})
	gen := funcGenerator(func(_ context.Context, req llm.WorksheetRequest) (model.Content, error) {
		if req.LessonName == "slow" {
			<-release
			return structured(20), nil
		}
		return structured(5), nil
	})
	d := NewDriver(gen, newFakeLibrary(), 0)
	vs := d.Start(1, "8", model.CategoryPractice)

	done := make(chan ViewState)
	go func() {
		st, _ := d.Generate(context.Background(), vs.ID, GenerateRequest{LessonName: "slow"})
		done <- st
	}()

	fast, err := d.Generate(context.Background(), vs.ID, GenerateRequest{LessonName: "fast"})
	require.NoError(t, err)
	assert.Len(t, fast.Questions, 5)

	close(release)
	slow := <-done
	assert.Len(t, slow.Questions, 20)

	current, err := d.View(vs.ID)
	require.NoError(t, err)
	assert.Len(t, current.Questions, 20)
}

func TestDriverSaveOnce(t *testing.T) {
	lib := newFakeLibrary()
	d := NewDriver(staticGenerator(structured(4)), lib, 0)
	vs := d.Start(3, "9", model.CategoryPractice)
	vs, err := d.Generate(context.Background(), vs.ID, GenerateRequest{LessonName: "Phân số"})
	require.NoError(t, err)

	vs, err = d.Save(context.Background(), vs.ID, "", 3)
	require.NoError(t, err)
	assert.True(t, vs.Saved)
	assert.NotZero(t, vs.EntryID)

	_, err = d.Save(context.Background(), vs.ID, "", 3)
	assert.ErrorIs(t, err, ErrAlreadySaved)
	assert.Equal(t, 1, lib.saves)

	saved := lib.entries[vs.EntryID]
	assert.Equal(t, "Phân số", saved.Name)
	assert.Equal(t, "9", saved.Grade)
	assert.Equal(t, int64(3), saved.CreatedBy)

	// Reset keeps the saved flag.
	vs, err = d.Reset(vs.ID)
	require.NoError(t, err)
	assert.True(t, vs.Saved)
}

func TestDriverSaveFailureKeepsSession(t *testing.T) {
	lib := newFakeLibrary()
	lib.saveErr = errors.New("connection reset")
	d := NewDriver(staticGenerator(structured(4)), lib, 0)
	vs := d.Start(3, "9", model.CategoryPractice)
	vs, err := d.Generate(context.Background(), vs.ID, GenerateRequest{})
	require.NoError(t, err)
	_, err = d.Answer(vs.ID, "2", "2")
	require.NoError(t, err)
	before, err := d.Confirm(vs.ID, "2")
	require.NoError(t, err)

	after, err := d.Save(context.Background(), vs.ID, "x", 3)
	require.Error(t, err)
	assert.Equal(t, before, after)
	assert.False(t, after.Saved)

	lib.saveErr = nil
	after, err = d.Save(context.Background(), vs.ID, "x", 3)
	require.NoError(t, err)
	assert.True(t, after.Saved)
	assert.Equal(t, before.Summary, after.Summary)
}

func TestDriverSaveRequiresWorksheet(t *testing.T) {
	d := NewDriver(staticGenerator(structured(1)), newFakeLibrary(), 0)
	vs := d.Start(1, "6", model.CategoryPractice)
	_, err := d.Save(context.Background(), vs.ID, "x", 1)
	assert.ErrorIs(t, err, ErrNotGraded)
	_, err = d.Answer(vs.ID, "1", "x")
	assert.ErrorIs(t, err, ErrNotGraded)
}

func TestDriverOpenDispatch(t *testing.T) {
	lib := newFakeLibrary(
		model.LibraryEntry{ID: 1, Name: "Đề 1", Grade: "6", Category: model.CategoryPractice, Content: structured(20)},
		model.LibraryEntry{ID: 2, Name: "Đề scan", Grade: "7", Category: model.CategoryConsolidation, Content: model.Content{
			Type: model.SourceUploaded, FileName: "de.pdf", FileType: "application/pdf", FileSize: 4, Data: []byte("%PDF"),
		}},
		model.LibraryEntry{ID: 3, Name: "Lạ", Grade: "8", Category: model.CategoryPractice, Content: model.Content{
			Type: model.SourceUploaded, Questions: shortAnswers(2), Data: []byte("x"),
		}},
		model.LibraryEntry{ID: 4, Name: "Legacy", Grade: "8", Category: model.CategoryPractice, Content: model.Content{Data: []byte("<html>")}},
		model.LibraryEntry{ID: 5, Name: "Rỗng", Grade: "9", Category: model.CategoryEssay},
	)
	d := NewDriver(staticGenerator(model.Content{}), lib, 0)

	vs, err := d.Open(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, StepWorksheet, vs.Step)
	assert.Nil(t, vs.Document)
	assert.Len(t, vs.Questions, 20)
	assert.True(t, vs.Saved)
	assert.Equal(t, 0.5, vs.Summary.PointsPerQuestion)

	for _, id := range []int64{2, 3, 4} {
		vs, err = d.Open(context.Background(), 1, id)
		require.NoError(t, err)
		assert.Equal(t, StepDocument, vs.Step, "entry %d", id)
		assert.NotNil(t, vs.Document)
		assert.Empty(t, vs.Questions)
		assert.Nil(t, vs.Summary)
	}

	_, err = d.Open(context.Background(), 1, 5)
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestDriverCloseAndExpiry(t *testing.T) {
	d := NewDriver(staticGenerator(structured(1)), newFakeLibrary(), time.Minute)
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	a := d.Start(1, "6", model.CategoryPractice)
	b := d.Start(1, "6", model.CategoryPractice)
	assert.Equal(t, 2, d.Len())

	d.Close(a.ID)
	_, err := d.View(a.ID)
	assert.ErrorIs(t, err, ErrUnknownView)

	now = now.Add(30 * time.Second)
	_, err = d.View(b.ID)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = d.View(b.ID)
	assert.ErrorIs(t, err, ErrUnknownView)
	assert.Equal(t, 0, d.Len())
}

func TestDriverGenerateIntoClosedView(t *testing.T) {
	var d *Driver
	gen := funcGenerator(func(_ context.Context, _ llm.WorksheetRequest) (model.Content, error) {
		return structured(2), nil
	})
	d = NewDriver(gen, newFakeLibrary(), 0)
	vs := d.Start(1, "6", model.CategoryPractice)
	d.generator = funcGenerator(func(ctx context.Context, req llm.WorksheetRequest) (model.Content, error) {
		d.Close(vs.ID)
		return gen(ctx, req)
	})

	_, err := d.Generate(context.Background(), vs.ID, GenerateRequest{})
	assert.ErrorIs(t, err, ErrUnknownView)
}

func TestViewStateJSONDecodes(t *testing.T) {
	vs := ViewState{
		ID:         "v1",
		Step:       StepWorksheet,
		Grade:      "8",
		Category:   model.CategoryPractice,
		LessonName: "Hằng đẳng thức",
		Questions: []QuestionView{
			{Question: model.Question{ID: "1", Type: model.QuestionMultipleChoice}, Policy: PolicyImmediate,
				State: QuestionState{Value: "A", Submitted: true, Locked: true, Verdict: VerdictCorrect}},
			{Question: model.Question{ID: "2", Type: model.QuestionShortAnswer}, Policy: PolicyConfirm,
				State: QuestionState{Draft: "4,6"}},
		},
	}
	data, err := json.Marshal(vs)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"step":"worksheet"`)
	assert.Contains(t, string(data), `"verdict":"correct"`)
	assert.Contains(t, string(data), `"policy":"confirm"`)

	var got ViewState
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, StepWorksheet, got.Step)
	require.Len(t, got.Questions, 2)
	assert.Equal(t, VerdictCorrect, got.Questions[0].State.Verdict)
	assert.Equal(t, PolicyImmediate, got.Questions[0].Policy)
	assert.Equal(t, VerdictUngraded, got.Questions[1].State.Verdict)
	assert.Equal(t, PolicyConfirm, got.Questions[1].Policy)

	var step Step
	assert.Error(t, step.UnmarshalText([]byte("review")))
	var v Verdict
	assert.Error(t, v.UnmarshalText([]byte("partial")))
	var p SubmissionPolicy
	assert.Error(t, p.UnmarshalText([]byte("later")))
}
