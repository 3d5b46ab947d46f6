package workouts

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Raventwist88/ontrakk/internal/storage/memory"
)

func newTestHandlers() (*Handlers, *Service) {
	svc := NewService(memory.New())
	return NewHandlers(svc), svc
}

func doJSON(t *testing.T, handler http.HandlerFunc, method, target, id string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if id != "" {
		req.SetPathValue("id", id)
	}
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func decodeWorkout(t *testing.T, rr *httptest.ResponseRecorder) Workout {
	t.Helper()
	var w Workout
	if err := json.NewDecoder(rr.Body).Decode(&w); err != nil {
		t.Fatalf("decode workout: %v", err)
	}
	return w
}

func TestWorkoutsCreateAppliesDefaults(t *testing.T) {
	h, _ := newTestHandlers()

	rr := doJSON(t, h.HandleCreate, http.MethodPost, "/v1/workouts", "", WorkoutRequest{
		Name: "Push day",
		Date: "2024-05-01",
		Exercises: []ExerciseRequest{
			{Name: "Bench Press"},
		},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	w := decodeWorkout(t, rr)
	if w.ID == "" {
		t.Fatal("expected generated id")
	}
	if w.Status != StatusPlanned {
		t.Fatalf("expected status planned, got %s", w.Status)
	}
	ex := w.Exercises[0]
	if ex.Sets != DefaultSets || ex.Reps != DefaultReps || ex.Rest != DefaultRest {
		t.Fatalf("expected defaults 3x10 rest 60, got %dx%d rest %d", ex.Sets, ex.Reps, ex.Rest)
	}
}

func TestWorkoutsCreateValidation(t *testing.T) {
	h, _ := newTestHandlers()
	badSets := 0

	cases := []WorkoutRequest{
		{Name: ""},
		{Name: "Legs", Date: "01/05/2024"},
		{Name: "Legs", Exercises: []ExerciseRequest{{Name: ""}}},
		{Name: "Legs", Exercises: []ExerciseRequest{{Name: "Squat", Sets: &badSets}}},
	}
	for i, req := range cases {
		rr := doJSON(t, h.HandleCreate, http.MethodPost, "/v1/workouts", "", req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("case %d: expected 400, got %d", i, rr.Code)
		}
	}
}

func TestWorkoutsSessionLifecycle(t *testing.T) {
	h, svc := newTestHandlers()
	ctx := context.Background()

	w, err := svc.CreateFromTemplate(ctx, "abab-day-1", "2024-05-01")
	if err != nil {
		t.Fatalf("create from template: %v", err)
	}

	// sets cannot be logged before the session starts
	rr := doJSON(t, h.HandleLogSet, http.MethodPost, "/v1/workouts/x/sets", w.ID, LogSetRequest{ExerciseIndex: 0, Weight: 80, Reps: 6})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 before start, got %d", rr.Code)
	}

	rr = doJSON(t, h.HandleStart, http.MethodPost, "/v1/workouts/x/start", w.ID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := decodeWorkout(t, rr); got.Status != StatusInProgress || got.StartedAt == nil {
		t.Fatalf("expected in-progress with startedAt, got %s", got.Status)
	}

	rr = doJSON(t, h.HandleStart, http.MethodPost, "/v1/workouts/x/start", w.ID, nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("second start: expected 409, got %d", rr.Code)
	}

	for i := 0; i < 3; i++ {
		rr = doJSON(t, h.HandleLogSet, http.MethodPost, "/v1/workouts/x/sets", w.ID, LogSetRequest{ExerciseIndex: 0, Weight: 80, Reps: 6})
		if rr.Code != http.StatusOK {
			t.Fatalf("log set %d: expected 200, got %d: %s", i, rr.Code, rr.Body.String())
		}
	}

	rr = doJSON(t, h.HandleLogSet, http.MethodPost, "/v1/workouts/x/sets", w.ID, LogSetRequest{ExerciseIndex: 99, Reps: 6})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad exercise index: expected 400, got %d", rr.Code)
	}

	rr = doJSON(t, h.HandleComplete, http.MethodPost, "/v1/workouts/x/complete", w.ID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d", rr.Code)
	}
	if got := decodeWorkout(t, rr); got.CompletedAt == nil {
		t.Fatal("expected completedAt to be set")
	}

	rr = doJSON(t, h.HandleSummary, http.MethodGet, "/v1/workouts/x/summary", w.ID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("summary: expected 200, got %d", rr.Code)
	}
	var sum Summary
	if err := json.NewDecoder(rr.Body).Decode(&sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if sum.TotalSets != 8 || sum.CompletedSets != 3 {
		t.Fatalf("expected 3 of 8 sets, got %d of %d", sum.CompletedSets, sum.TotalSets)
	}
	if sum.Volume != 3*80*6 {
		t.Fatalf("expected volume 1440, got %v", sum.Volume)
	}

	rr = doJSON(t, h.HandleProgression, http.MethodGet, "/v1/workouts/x/progression", w.ID, nil)
	var prog ProgressionResponse
	if err := json.NewDecoder(rr.Body).Decode(&prog); err != nil {
		t.Fatalf("decode progression: %v", err)
	}
	if prog.Suggestions[0].Kind != ProgressionWeight || prog.Suggestions[0].Weight != 82.5 {
		t.Fatalf("expected +2.5kg on bench press, got %+v", prog.Suggestions[0])
	}
	if prog.Suggestions[1].Kind != ProgressionNone {
		t.Fatalf("expected no suggestion without logged sets, got %+v", prog.Suggestions[1])
	}

	rr = doJSON(t, h.HandleUpdate, http.MethodPut, "/v1/workouts/x", w.ID, WorkoutRequest{Name: "Renamed"})
	if rr.Code != http.StatusConflict {
		t.Fatalf("update after completion: expected 409, got %d", rr.Code)
	}
}

func TestWorkoutsGetAndDeleteNotFound(t *testing.T) {
	h, _ := newTestHandlers()

	rr := doJSON(t, h.HandleGet, http.MethodGet, "/v1/workouts/missing", "missing", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get: expected 404, got %d", rr.Code)
	}
	rr = doJSON(t, h.HandleDelete, http.MethodDelete, "/v1/workouts/missing", "missing", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("delete: expected 404, got %d", rr.Code)
	}
}

func TestWorkoutsListOrdersByDate(t *testing.T) {
	h, svc := newTestHandlers()
	ctx := context.Background()
	for _, date := range []string{"2024-05-03", "", "2024-05-01"} {
		if _, err := svc.Create(ctx, &WorkoutRequest{Name: "W " + date, Date: date}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	rr := doJSON(t, h.HandleList, http.MethodGet, "/v1/workouts", "", nil)
	var resp ListResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(resp.Workouts) != 3 {
		t.Fatalf("expected 3 workouts, got %d", len(resp.Workouts))
	}
	if resp.Workouts[0].Date != "2024-05-01" || resp.Workouts[2].Date != "" {
		t.Fatalf("unexpected order: %s, %s, %s", resp.Workouts[0].Date, resp.Workouts[1].Date, resp.Workouts[2].Date)
	}
}

func TestTemplatesListAndInstantiate(t *testing.T) {
	h, _ := newTestHandlers()

	rr := doJSON(t, h.HandleListTemplates, http.MethodGet, "/v1/templates", "", nil)
	var resp TemplatesResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode templates: %v", err)
	}
	if len(resp.Templates) != 4 {
		t.Fatalf("expected 4 split days, got %d", len(resp.Templates))
	}
	types := ""
	for _, tpl := range resp.Templates {
		types += tpl.Type
	}
	if types != "ABAB" {
		t.Fatalf("expected A/B/A/B split, got %s", types)
	}

	rr = doJSON(t, h.HandleInstantiate, http.MethodPost, "/v1/templates/abab-day-2/instantiate", "abab-day-2", InstantiateRequest{Date: "2024-06-01"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("instantiate: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	w := decodeWorkout(t, rr)
	if w.TemplateID != "abab-day-2" || len(w.Exercises) != 7 || w.Exercises[0].Rest != DefaultRest {
		t.Fatalf("unexpected workout from template: %+v", w)
	}

	rr = doJSON(t, h.HandleInstantiate, http.MethodPost, "/v1/templates/nope/instantiate", "nope", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown template: expected 404, got %d", rr.Code)
	}
}
