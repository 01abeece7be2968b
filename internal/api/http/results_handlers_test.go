package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	authmw "github.com/campusforge/registrar/internal/auth/middleware"
	"github.com/campusforge/registrar/internal/gpa"
	"github.com/campusforge/registrar/internal/rbac"
	"github.com/campusforge/registrar/internal/result"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	cases := []struct {
		kind   result.Kind
		status int
	}{
		{result.KindValidation, http.StatusBadRequest},
		{result.KindState, http.StatusConflict},
		{result.KindForbidden, http.StatusForbidden},
		{result.KindNotFound, http.StatusNotFound},
		{result.KindConflict, http.StatusConflict},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, result.E(c.kind, "boom"))
		if rec.Code != c.status {
			t.Errorf("kind %s -> %d, want %d", c.kind, rec.Code, c.status)
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("kind %s: bad body: %v", c.kind, err)
		}
		if body["kind"] != string(c.kind) || body["error"] != "boom" {
			t.Errorf("kind %s: body = %v", c.kind, body)
		}
	}
}

type engine struct {
	store  *result.MemoryStore
	ctrl   *result.Controller
	router chi.Router
	assign result.CourseAssignment
}

func newTestRouter(t *testing.T) *engine {
	t.Helper()
	store := result.NewMemoryStore()
	ctrl := result.NewController(store)
	a, err := store.CreateAssignment(context.Background(), result.CourseAssignment{
		CourseID: "cs101", LecturerID: "lec-1", AssignedBy: "hod-1",
		AcademicYear: "2025/2026", Semester: "1", CreditUnits: 3,
	})
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}
	store.Enroll("cs101", "stu-1", "Ada")

	r := chi.NewRouter()
	r.Put("/results/course/{assignmentID}/student/{studentID}", UpsertResultHandler(ctrl))
	r.Post("/results/course/{assignmentID}/submit", SubmitResultsHandler(ctrl))
	r.Get("/results/student", StudentResultsHandler(gpa.New(store)))
	return &engine{store: store, ctrl: ctrl, router: r, assign: a}
}

func asUser(req *http.Request, sub, role string) *http.Request {
	ctx := authmw.WithSubject(req.Context(), sub)
	ctx = rbac.WithRole(ctx, role)
	return req.WithContext(ctx)
}

func TestUpsertAndSubmitEndpoints(t *testing.T) {
	e := newTestRouter(t)
	body := `{"assessments":[
		{"type":"quiz","name":"Quiz 1","max_score":100,"obtained_score":80,"weight":20},
		{"type":"midterm","name":"Midterm","max_score":100,"obtained_score":70,"weight":30},
		{"type":"final","name":"Final","max_score":100,"obtained_score":90,"weight":50}]}`

	req := httptest.NewRequest("PUT", "/results/course/"+e.assign.ID+"/student/stu-1", strings.NewReader(body))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, asUser(req, "lec-1", "lecturer"))
	if rec.Code != http.StatusOK {
		t.Fatalf("upsert = %d: %s", rec.Code, rec.Body.String())
	}
	var r result.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &r); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if r.LetterGrade != "B" || r.Status != result.StatusDraft {
		t.Fatalf("got %s/%s, want B/draft", r.LetterGrade, r.Status)
	}

	// wrong lecturer is a 403, not a 404
	req = httptest.NewRequest("PUT", "/results/course/"+e.assign.ID+"/student/stu-1", strings.NewReader(body))
	rec = httptest.NewRecorder()
	e.router.ServeHTTP(rec, asUser(req, "lec-2", "lecturer"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign lecturer upsert = %d, want 403", rec.Code)
	}

	req = httptest.NewRequest("POST", "/results/course/"+e.assign.ID+"/submit", nil)
	rec = httptest.NewRecorder()
	e.router.ServeHTTP(rec, asUser(req, "lec-1", "lecturer"))
	if rec.Code != http.StatusOK {
		t.Fatalf("submit = %d: %s", rec.Code, rec.Body.String())
	}

	// resubmission is a conflict
	req = httptest.NewRequest("POST", "/results/course/"+e.assign.ID+"/submit", nil)
	rec = httptest.NewRecorder()
	e.router.ServeHTTP(rec, asUser(req, "lec-1", "lecturer"))
	if rec.Code != http.StatusConflict {
		t.Fatalf("second submit = %d, want 409", rec.Code)
	}
}

func TestStudentEndpointOnlySeesPublished(t *testing.T) {
	e := newTestRouter(t)
	ctx := context.Background()
	lect := result.Identity{Sub: "lec-1", Role: "lecturer"}
	hod := result.Identity{Sub: "hod-1", Role: "hod"}

	in := result.UpsertInput{Assessments: []result.Assessment{
		{Type: result.AssessmentFinal, Name: "Final", MaxScore: 100, ObtainedScore: 90, Weight: 100},
	}}
	if _, err := e.ctrl.UpsertAssessments(ctx, lect, e.assign.ID, "stu-1", in); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	fetch := func() gpa.Report {
		req := httptest.NewRequest("GET", "/results/student?academic_year=2025/2026&semester=1", nil)
		rec := httptest.NewRecorder()
		e.router.ServeHTTP(rec, asUser(req, "stu-1", "student"))
		if rec.Code != http.StatusOK {
			t.Fatalf("student view = %d: %s", rec.Code, rec.Body.String())
		}
		var rep gpa.Report
		if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return rep
	}

	if rep := fetch(); rep.Courses != 0 {
		t.Fatalf("draft visible to student: %+v", rep)
	}

	if _, err := e.ctrl.SubmitAll(ctx, lect, e.assign.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := e.ctrl.Approve(ctx, hod, e.assign.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if rep := fetch(); rep.Courses != 0 {
		t.Fatalf("finalized-but-unpublished visible to student: %+v", rep)
	}

	if _, err := e.ctrl.Publish(ctx, hod, e.assign.ID); err != nil {
		t.Fatalf("publish: %v", err)
	}
	rep := fetch()
	if rep.Courses != 1 || rep.GPA != 3.7 { // 90% -> A-
		t.Fatalf("published report = %+v, want 1 course gpa 3.7", rep)
	}
}
