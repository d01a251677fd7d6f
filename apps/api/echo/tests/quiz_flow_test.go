package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/trezcool/shule/core/course"
	"github.com/trezcool/shule/core/guardian"
	"github.com/trezcool/shule/core/org"
	"github.com/trezcool/shule/core/quiz"
	"github.com/trezcool/shule/core/role"
	"github.com/trezcool/shule/core/user"
)

// Test_quizFlow walks the full path from organization signup to a graded
// attempt, checking the authorization seams along the way.
func Test_quizFlow(t *testing.T) {
	ctx := context.Background()

	// open the organization
	var signupResp struct {
		Organization org.Organization `json:"organization"`
		Owner        user.User        `json:"owner"`
	}
	req, rec := newRequest(http.MethodPost, "/v1/accounts/signup/organization", map[string]interface{}{
		"org_name": "Green Hills Academy",
		"owner": user.NewUser{
			FirstName:       "Olive",
			LastName:        "Owner",
			Email:           "owner@test.cd",
			Password:        "S3cr3t!pwd",
			PasswordConfirm: "S3cr3t!pwd",
		},
	})
	do(t, req, rec, http.StatusCreated, &signupResp)
	o, ownerToken := signupResp.Organization, getToken(t, signupResp.Owner)

	student := signup(t, "student", "student@test.cd")
	studentToken := getToken(t, student)

	// the owner creates a course; the student may not
	var c course.Course
	req, rec = newAuthRequest(http.MethodPost, "/v1/courses", ownerToken, course.NewCourse{
		Title: "Biology", Scope: o.Scope(),
	})
	do(t, req, rec, http.StatusCreated, &c)

	req, rec = newAuthRequest(http.MethodPost, "/v1/courses", studentToken, course.NewCourse{
		Title: "Underwater Basket Weaving", Scope: o.Scope(),
	})
	do(t, req, rec, http.StatusForbidden)

	// a teacher granted into the org scope can enroll the student
	teacher := signup(t, "solo-teacher", "teach@test.cd")
	if _, err := roleSvc.Grant(ctx, teacher.ID, role.OrgTeacher, o.Scope()); err != nil {
		t.Fatalf("Grant() failed: %v", err)
	}
	var e course.Enrollment
	req, rec = newAuthRequest(http.MethodPost, "/v1/courses/"+c.ID+"/enroll", getToken(t, teacher), map[string]string{
		"student_id": student.ID,
	})
	do(t, req, rec, http.StatusCreated, &e)
	if e.Status != course.StatusActive {
		t.Fatalf("enroll status = %s, want %s", e.Status, course.StatusActive)
	}

	// build and publish a two-question quiz
	var item1, item2 quiz.QuestionBankItem
	req, rec = newAuthRequest(http.MethodPost, "/v1/questions", ownerToken, map[string]interface{}{
		"scope": o.Scope(), "qtype": "mcq", "prompt": "Powerhouse of the cell?",
		"options": []string{"Nucleus", "Mitochondria"}, "correct_index": 1,
	})
	do(t, req, rec, http.StatusCreated, &item1)
	req, rec = newAuthRequest(http.MethodPost, "/v1/questions", ownerToken, map[string]interface{}{
		"scope": o.Scope(), "qtype": "true_false", "prompt": "Plant cells have walls.",
		"options": []string{"True", "False"}, "correct_index": 0,
	})
	do(t, req, rec, http.StatusCreated, &item2)

	var q quiz.Quiz
	req, rec = newAuthRequest(http.MethodPost, "/v1/quizzes", ownerToken, map[string]interface{}{
		"course_id": c.ID, "title": "Cells", "max_attempts": 2,
	})
	do(t, req, rec, http.StatusCreated, &q)

	req, rec = newAuthRequest(http.MethodPost, "/v1/quizzes/"+q.ID+"/questions", ownerToken, map[string]interface{}{
		"question_id": item1.ID, "points": 1, "position": 1,
	})
	do(t, req, rec, http.StatusCreated)
	req, rec = newAuthRequest(http.MethodPost, "/v1/quizzes/"+q.ID+"/questions", ownerToken, map[string]interface{}{
		"question_id": item2.ID, "points": 1, "position": 2,
	})
	do(t, req, rec, http.StatusCreated)

	// students cannot publish
	req, rec = newAuthRequest(http.MethodPost, "/v1/quizzes/"+q.ID+"/publish", studentToken)
	do(t, req, rec, http.StatusForbidden)
	req, rec = newAuthRequest(http.MethodPost, "/v1/quizzes/"+q.ID+"/publish", ownerToken)
	do(t, req, rec, http.StatusOK)

	// the student attempts the quiz
	var a quiz.Attempt
	req, rec = newAuthRequest(http.MethodPost, "/v1/quizzes/"+q.ID+"/attempts", studentToken)
	do(t, req, rec, http.StatusCreated, &a)
	if a.AttemptNumber != 1 {
		t.Fatalf("attempt_number = %d, want 1", a.AttemptNumber)
	}

	// only one in-progress attempt at a time
	req, rec = newAuthRequest(http.MethodPost, "/v1/quizzes/"+q.ID+"/attempts", studentToken)
	do(t, req, rec, http.StatusConflict)

	one := 1
	req, rec = newAuthRequest(http.MethodPost, "/v1/attempts/"+a.ID+"/submit", studentToken, map[string]interface{}{
		"answers": []quiz.SubmittedAnswer{
			{QuestionID: item1.ID, Choice: &one}, // correct
			{QuestionID: item2.ID, Choice: &one}, // wrong
		},
	})
	do(t, req, rec, http.StatusOK, &a)
	if a.Score != 1 || a.Percentage != 50 {
		t.Errorf("score = %v (%v%%), want 1 (50%%)", a.Score, a.Percentage)
	}

	// a completed attempt is never re-graded
	req, rec = newAuthRequest(http.MethodPost, "/v1/attempts/"+a.ID+"/submit", studentToken, map[string]interface{}{})
	do(t, req, rec, http.StatusConflict)

	// the student reads their own history; a stranger may not
	var attempts []quiz.Attempt
	req, rec = newAuthRequest(http.MethodGet, "/v1/quizzes/"+q.ID+"/attempts", studentToken)
	do(t, req, rec, http.StatusOK, &attempts)
	if len(attempts) != 1 {
		t.Errorf("attempts = %d, want 1", len(attempts))
	}

	g := signup(t, "guardian", "mom@test.cd")
	guardianToken := getToken(t, g)
	req, rec = newAuthRequest(http.MethodGet, "/v1/quizzes/"+q.ID+"/attempts?student_id="+student.ID, guardianToken)
	do(t, req, rec, http.StatusForbidden)

	// an accepted guardian link opens the read path
	var l guardian.Link
	req, rec = newAuthRequest(http.MethodPost, "/v1/guardians/links", guardianToken, map[string]string{
		"student_id": student.ID, "relationship_kind": "parent",
	})
	do(t, req, rec, http.StatusCreated, &l)
	req, rec = newAuthRequest(http.MethodPost, "/v1/guardians/links/"+l.ID+"/respond", studentToken, map[string]bool{
		"accept": true,
	})
	do(t, req, rec, http.StatusOK)

	req, rec = newAuthRequest(http.MethodGet, "/v1/quizzes/"+q.ID+"/attempts?student_id="+student.ID, guardianToken)
	do(t, req, rec, http.StatusOK, &attempts)
	if len(attempts) != 1 {
		t.Errorf("guardian attempts = %d, want 1", len(attempts))
	}

	var children []user.User
	req, rec = newAuthRequest(http.MethodGet, "/v1/guardians/children", guardianToken)
	do(t, req, rec, http.StatusOK, &children)
	if len(children) != 1 || children[0].ID != student.ID {
		t.Errorf("children = %v, want the student", children)
	}
}
