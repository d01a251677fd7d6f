package quiz

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

var (
	// errors
	ErrNotFound             = core.NewNotFoundError("quiz not found")
	ErrQuestionNotFound     = core.NewNotFoundError("question not found")
	ErrAttemptNotFound      = core.NewNotFoundError("attempt not found")
	ErrQuizNotPublished     = core.NewInvalidStateError("quiz is not published")
	ErrNotEnrolled          = core.NewInvalidStateError("student is not actively enrolled in the quiz's course")
	ErrAttemptActive        = core.NewConflictError("attempt_already_active")
	ErrQuestionLinked       = core.NewConflictError("question already in quiz")
	ErrAttemptLimitExceeded = core.NewInvalidStateError("attempt limit exceeded")
	ErrAttemptCompleted     = core.NewInvalidStateError("attempt is no longer in progress")
	ErrAlreadyPublished     = core.NewInvalidStateError("quiz is already published")
	ErrUnauthorizedAttempt  = core.NewAuthorizationError(core.DenyNotSelf)

	errBadScope        = errors.New("question must belong to an organization or a solo teacher")
	errUnknownQType    = errors.New("unknown question type")
	errTooFewOptions   = errors.New("mcq questions need at least 2 options")
	errBadCorrectIndex = errors.New("correct index is out of range")
	errNoCorrectText   = errors.New("short answer questions need a correct answer")
	errBadMaxAttempts  = errors.New("max attempts must be at least 1")
	errBadPoints       = errors.New("points must be positive")
)

type (
	Repository interface {
		CreateQuestion(ctx context.Context, q QuestionBankItem) (QuestionBankItem, error)
		GetQuestionByID(ctx context.Context, id string) (QuestionBankItem, error)
		ListQuestionsByScope(ctx context.Context, scope core.Scope) ([]QuestionBankItem, error)

		CreateQuiz(ctx context.Context, q Quiz) (Quiz, error)
		GetQuizByID(ctx context.Context, id string) (Quiz, error)
		UpdateQuiz(ctx context.Context, q Quiz) (Quiz, error)
		ListQuizzesByCourse(ctx context.Context, courseID string) ([]Quiz, error)

		// AddQuizQuestion fails with ErrQuestionLinked when the question is
		// already in the quiz.
		AddQuizQuestion(ctx context.Context, qq QuizQuestion) (QuizQuestion, error)
		ListQuizQuestions(ctx context.Context, quizID string) ([]QuizQuestion, error)

		// CreateAttempt atomically checks-and-creates: it fails with
		// ErrAttemptActive when an in_progress attempt exists for the
		// (student, quiz) pair, fails with ErrAttemptLimitExceeded when
		// maxAttempts > 0 and the student's non-abandoned attempt count has
		// reached it, and otherwise assigns AttemptNumber as the count of all
		// prior attempts plus one. Two concurrent calls for the same pair must
		// not both succeed.
		CreateAttempt(ctx context.Context, a Attempt, maxAttempts int) (Attempt, error)
		GetAttemptByID(ctx context.Context, id string) (Attempt, error)
		// FinishAttempt compare-and-swaps the attempt into its terminal state;
		// it fails with ErrAttemptCompleted when the stored attempt is no
		// longer in_progress.
		FinishAttempt(ctx context.Context, a Attempt) (Attempt, error)
		// ListAttempts returns the student's attempts ordered by StartedAt
		// descending.
		ListAttempts(ctx context.Context, studentID, quizID string) ([]Attempt, error)
		AppendViolation(ctx context.Context, attemptID string, v Violation) (Attempt, error)
	}

	// EnrollmentChecker gates attempts on active course membership.
	EnrollmentChecker interface {
		IsActivelyEnrolled(ctx context.Context, studentID, courseID string) (bool, error)
	}

	Service struct {
		repo       Repository
		enrollment EnrollmentChecker
		sink       core.IntentSink
	}
)

func NewService(repo Repository, enrollment EnrollmentChecker, sink core.IntentSink) *Service {
	return &Service{repo: repo, enrollment: enrollment, sink: sink}
}

func (svc *Service) CreateQuestion(ctx context.Context, nq NewQuestion, creatorID string) (QuestionBankItem, error) {
	if err := nq.Validate(); err != nil {
		return QuestionBankItem{}, err
	}
	now := time.Now().UTC()
	q := QuestionBankItem{
		ID:           uuid.New().String(),
		Scope:        nq.Scope,
		QType:        nq.QType,
		Prompt:       nq.Prompt,
		Options:      nq.Options,
		CorrectIndex: nq.CorrectIndex,
		CorrectText:  nq.CorrectText,
		WordLimit:    nq.WordLimit,
		Rubric:       nq.Rubric,
		CreatedBy:    creatorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.CreateQuestion(ctx, q)
}

func (svc *Service) GetQuestionByID(ctx context.Context, id string) (QuestionBankItem, error) {
	return svc.repo.GetQuestionByID(ctx, id)
}

func (svc *Service) ListQuestionsByScope(ctx context.Context, scope core.Scope) ([]QuestionBankItem, error) {
	return svc.repo.ListQuestionsByScope(ctx, scope)
}

func (svc *Service) CreateQuiz(ctx context.Context, nq NewQuiz, creatorID string) (Quiz, error) {
	if err := nq.Validate(); err != nil {
		return Quiz{}, err
	}
	now := time.Now().UTC()
	q := Quiz{
		ID:          uuid.New().String(),
		CourseID:    nq.CourseID,
		Title:       nq.Title,
		Description: nq.Description,
		MaxAttempts: nq.MaxAttempts,
		TimeLimit:   nq.TimeLimit,
		CreatedBy:   creatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateQuiz(ctx, q)
}

func (svc *Service) GetQuizByID(ctx context.Context, id string) (Quiz, error) {
	return svc.repo.GetQuizByID(ctx, id)
}

func (svc *Service) ListQuizzesByCourse(ctx context.Context, courseID string) ([]Quiz, error) {
	return svc.repo.ListQuizzesByCourse(ctx, courseID)
}

// Publish makes a draft quiz attemptable. Publishing twice fails.
func (svc *Service) Publish(ctx context.Context, quizID string) (Quiz, error) {
	q, err := svc.repo.GetQuizByID(ctx, quizID)
	if err != nil {
		return Quiz{}, err
	}
	if q.Published() {
		return Quiz{}, ErrAlreadyPublished
	}
	now := time.Now().UTC()
	q.PublishedAt = null.TimeFrom(now)
	q.UpdatedAt = now
	q, err = svc.repo.UpdateQuiz(ctx, q)
	if err != nil {
		return Quiz{}, err
	}
	svc.sink.Emit(core.NewIntent(core.IntentQuizPublished, map[string]interface{}{
		"quiz_id":   q.ID,
		"course_id": q.CourseID,
	}))
	return q, nil
}

// AddQuestion links a bank question into a quiz with a per-quiz point value.
func (svc *Service) AddQuestion(ctx context.Context, quizID, questionID string, points float64, position int, randomize bool) (QuizQuestion, error) {
	if points <= 0 {
		return QuizQuestion{}, core.NewValidationError(errBadPoints, core.FieldError{Field: "points", Error: errBadPoints.Error()})
	}
	if _, err := svc.repo.GetQuizByID(ctx, quizID); err != nil {
		return QuizQuestion{}, err
	}
	if _, err := svc.repo.GetQuestionByID(ctx, questionID); err != nil {
		return QuizQuestion{}, err
	}
	qq := QuizQuestion{
		ID:         uuid.New().String(),
		QuizID:     quizID,
		QuestionID: questionID,
		Points:     points,
		Position:   position,
		Randomize:  randomize,
	}
	return svc.repo.AddQuizQuestion(ctx, qq)
}

// Start opens a new attempt for the student. Preconditions are checked in
// order: published, actively enrolled, no active attempt, attempt limit.
func (svc *Service) Start(ctx context.Context, studentID, quizID string) (Attempt, error) {
	q, err := svc.repo.GetQuizByID(ctx, quizID)
	if err != nil {
		return Attempt{}, err
	}
	if !q.Published() {
		return Attempt{}, ErrQuizNotPublished
	}
	enrolled, err := svc.enrollment.IsActivelyEnrolled(ctx, studentID, q.CourseID)
	if err != nil {
		return Attempt{}, err
	}
	if !enrolled {
		return Attempt{}, ErrNotEnrolled
	}

	a := Attempt{
		ID:        uuid.New().String(),
		QuizID:    quizID,
		StudentID: studentID,
		Status:    AttemptInProgress,
		StartedAt: time.Now().UTC(),
	}
	maxAttempts := 0
	if q.MaxAttempts.Valid {
		maxAttempts = q.MaxAttempts.Int
	}
	return svc.repo.CreateAttempt(ctx, a, maxAttempts)
}

// Submit grades the attempt and completes it. Retrying a completed attempt
// fails with ErrAttemptCompleted rather than re-grading.
func (svc *Service) Submit(ctx context.Context, attemptID, studentID string, answers []SubmittedAnswer) (Attempt, error) {
	a, err := svc.repo.GetAttemptByID(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.StudentID != studentID {
		return Attempt{}, ErrUnauthorizedAttempt
	}
	if a.Status != AttemptInProgress {
		return Attempt{}, ErrAttemptCompleted
	}

	links, err := svc.repo.ListQuizQuestions(ctx, a.QuizID)
	if err != nil {
		return Attempt{}, err
	}
	sort.Slice(links, func(i, j int) bool { return links[i].Position < links[j].Position })

	byQuestion := make(map[string]SubmittedAnswer, len(answers))
	for _, ans := range answers {
		byQuestion[ans.QuestionID] = ans
	}

	var score, total float64
	log := make([]AnswerRecord, 0, len(links))
	for _, link := range links {
		item, err := svc.repo.GetQuestionByID(ctx, link.QuestionID)
		if err != nil {
			return Attempt{}, err
		}
		total += link.Points

		rec := AnswerRecord{
			QuestionID: link.QuestionID,
			QType:      item.QType,
			PointsMax:  link.Points,
		}
		// A missing answer counts as incorrect, not an error.
		if ans, ok := byQuestion[link.QuestionID]; ok {
			rec.Choice = ans.Choice
			rec.Text = ans.Text
			rec.Correct = grade(item, ans)
		}
		if rec.Correct {
			rec.PointsAwarded = link.Points
			score += link.Points
		}
		log = append(log, rec)
	}

	now := time.Now().UTC()
	a.Status = AttemptCompleted
	a.FinishedAt = null.TimeFrom(now)
	a.TimeSpent = int64(now.Sub(a.StartedAt).Seconds())
	a.Score = score
	a.Percentage = 0
	if total > 0 {
		a.Percentage = score / total * 100
	}
	a.AnswerLog = log

	a, err = svc.repo.FinishAttempt(ctx, a)
	if err != nil {
		return Attempt{}, err
	}
	svc.sink.Emit(core.NewIntent(core.IntentAttemptCompleted, map[string]interface{}{
		"attempt_id": a.ID,
		"quiz_id":    a.QuizID,
		"student_id": a.StudentID,
		"score":      a.Score,
		"percentage": a.Percentage,
	}))
	return a, nil
}

// grade auto-scores a single answer. Essays are never auto-scored.
func grade(item QuestionBankItem, ans SubmittedAnswer) bool {
	switch item.QType {
	case QTypeMCQ, QTypeTrueFalse:
		return ans.Choice != nil && item.CorrectIndex.Valid && *ans.Choice == item.CorrectIndex.Int
	case QTypeShortAnswer:
		return strings.EqualFold(strings.TrimSpace(ans.Text), strings.TrimSpace(item.CorrectText))
	}
	return false
}

// Abandon discards an in-progress attempt. It does not count against the
// attempt limit.
func (svc *Service) Abandon(ctx context.Context, attemptID, studentID string) (Attempt, error) {
	a, err := svc.repo.GetAttemptByID(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.StudentID != studentID {
		return Attempt{}, ErrUnauthorizedAttempt
	}
	if a.Status != AttemptInProgress {
		return Attempt{}, ErrAttemptCompleted
	}
	a.Status = AttemptAbandoned
	a.FinishedAt = null.TimeFrom(time.Now().UTC())
	return svc.repo.FinishAttempt(ctx, a)
}

// GetAttempts returns the student's attempt history, most recent first.
func (svc *Service) GetAttempts(ctx context.Context, studentID, quizID string) ([]Attempt, error) {
	return svc.repo.ListAttempts(ctx, studentID, quizID)
}

func (svc *Service) GetAttemptByID(ctx context.Context, id string) (Attempt, error) {
	return svc.repo.GetAttemptByID(ctx, id)
}

// RecordViolation appends a proctoring event to an in-progress attempt.
func (svc *Service) RecordViolation(ctx context.Context, attemptID, studentID, kind string) (Attempt, error) {
	a, err := svc.repo.GetAttemptByID(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.StudentID != studentID {
		return Attempt{}, ErrUnauthorizedAttempt
	}
	if a.Status != AttemptInProgress {
		return Attempt{}, ErrAttemptCompleted
	}
	return svc.repo.AppendViolation(ctx, attemptID, Violation{Kind: kind, At: time.Now().UTC()})
}
