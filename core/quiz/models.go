package quiz

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

// Question types form a closed set.
type QType string

const (
	QTypeMCQ         QType = "mcq"
	QTypeTrueFalse   QType = "true_false"
	QTypeShortAnswer QType = "short_answer"
	QTypeEssay       QType = "essay"
)

func (t QType) Valid() bool {
	switch t {
	case QTypeMCQ, QTypeTrueFalse, QTypeShortAnswer, QTypeEssay:
		return true
	}
	return false
}

// QuestionBankItem is qtype-tagged question content, owned by the same scope
// as the courses it is used in. Only the fields relevant to its QType are set.
type QuestionBankItem struct {
	ID     string     `json:"id"`
	Scope  core.Scope `json:"scope"`
	QType  QType      `json:"qtype"`
	Prompt string     `json:"prompt"`

	// mcq / true_false
	Options      []string `json:"options,omitempty"`
	CorrectIndex null.Int `json:"correct_index,omitempty"`
	// short_answer
	CorrectText string `json:"correct_text,omitempty"`
	// essay
	WordLimit null.Int `json:"word_limit,omitempty"`
	Rubric    string   `json:"rubric,omitempty"`

	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewQuestion contains information needed to add a question to the bank.
type NewQuestion struct {
	Scope  core.Scope `json:"scope"`
	QType  QType      `json:"qtype" validate:"required"`
	Prompt string     `json:"prompt" validate:"required"`

	Options      []string `json:"options"`
	CorrectIndex null.Int `json:"correct_index"`
	CorrectText  string   `json:"correct_text"`
	WordLimit    null.Int `json:"word_limit"`
	Rubric       string   `json:"rubric"`
}

func (nq *NewQuestion) Validate() error {
	nq.Prompt = core.CleanString(nq.Prompt)
	nq.CorrectText = core.CleanString(nq.CorrectText)
	if err := core.Validate.Struct(nq); err != nil {
		return err
	}
	if nq.Scope.IsZero() || !nq.Scope.Valid() {
		return core.NewValidationError(errBadScope, core.FieldError{Field: "scope", Error: errBadScope.Error()})
	}
	switch nq.QType {
	case QTypeMCQ:
		if len(nq.Options) < 2 {
			return core.NewValidationError(errTooFewOptions, core.FieldError{Field: "options", Error: errTooFewOptions.Error()})
		}
		if !nq.CorrectIndex.Valid || nq.CorrectIndex.Int < 0 || nq.CorrectIndex.Int >= len(nq.Options) {
			return core.NewValidationError(errBadCorrectIndex, core.FieldError{Field: "correct_index", Error: errBadCorrectIndex.Error()})
		}
	case QTypeTrueFalse:
		if !nq.CorrectIndex.Valid || nq.CorrectIndex.Int < 0 || nq.CorrectIndex.Int > 1 {
			return core.NewValidationError(errBadCorrectIndex, core.FieldError{Field: "correct_index", Error: errBadCorrectIndex.Error()})
		}
	case QTypeShortAnswer:
		if nq.CorrectText == "" {
			return core.NewValidationError(errNoCorrectText, core.FieldError{Field: "correct_text", Error: errNoCorrectText.Error()})
		}
	case QTypeEssay:
		// no auto-gradable fields
	default:
		return core.NewValidationError(errUnknownQType, core.FieldError{Field: "qtype", Error: errUnknownQType.Error()})
	}
	return nil
}

// Quiz belongs to a course. A nil PublishedAt means draft; draft quizzes are
// never attemptable.
type Quiz struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	MaxAttempts null.Int  `json:"max_attempts,omitempty"` // null = unlimited
	TimeLimit   null.Int  `json:"time_limit,omitempty"`   // seconds
	PublishedAt null.Time `json:"published_at,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

func (q Quiz) Published() bool { return q.PublishedAt.Valid }

// NewQuiz contains information needed to create a draft Quiz.
type NewQuiz struct {
	CourseID    string   `json:"course_id" validate:"required"`
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	MaxAttempts null.Int `json:"max_attempts"`
	TimeLimit   null.Int `json:"time_limit"`
}

func (nq *NewQuiz) Validate() error {
	nq.Title = core.CleanString(nq.Title)
	if err := core.Validate.Struct(nq); err != nil {
		return err
	}
	if nq.MaxAttempts.Valid && nq.MaxAttempts.Int < 1 {
		return core.NewValidationError(errBadMaxAttempts, core.FieldError{Field: "max_attempts", Error: errBadMaxAttempts.Error()})
	}
	return nil
}

// QuizQuestion links a bank question into a quiz, with a per-quiz point
// override and ordering.
type QuizQuestion struct {
	ID         string   `json:"id"`
	QuizID     string   `json:"quiz_id"`
	QuestionID string   `json:"question_id"`
	Points     float64  `json:"points"`
	Position   int      `json:"position"`
	Randomize  bool     `json:"randomize"`
}

// Attempt statuses: in_progress -> completed | abandoned (terminal).
type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptAbandoned  AttemptStatus = "abandoned"
)

func (s AttemptStatus) Terminal() bool { return s == AttemptCompleted || s == AttemptAbandoned }

// SubmittedAnswer is one student answer keyed by question id. Choice carries
// the selected index for mcq/true_false; Text carries short_answer/essay text.
type SubmittedAnswer struct {
	QuestionID string `json:"question_id" validate:"required"`
	Choice     *int   `json:"choice,omitempty"`
	Text       string `json:"text,omitempty"`
}

// AnswerRecord is the persisted per-question grading breakdown.
type AnswerRecord struct {
	QuestionID    string  `json:"question_id"`
	QType         QType   `json:"qtype"`
	Choice        *int    `json:"choice,omitempty"`
	Text          string  `json:"text,omitempty"`
	Correct       bool    `json:"correct"`
	PointsAwarded float64 `json:"points_awarded"`
	PointsMax     float64 `json:"points_max"`
}

// Violation records a proctoring event observed during an attempt.
type Violation struct {
	Kind string    `json:"kind"`
	At   time.Time `json:"at"` // UTC
}

// Attempt is one student's pass through a quiz. At most one in_progress
// Attempt exists per (student, quiz) pair.
type Attempt struct {
	ID            string         `json:"id"`
	QuizID        string         `json:"quiz_id"`
	StudentID     string         `json:"student_id"`
	AttemptNumber int            `json:"attempt_number"`
	Status        AttemptStatus  `json:"status"`
	StartedAt     time.Time      `json:"started_at"` // UTC
	FinishedAt    null.Time      `json:"finished_at,omitempty"`
	TimeSpent     int64          `json:"time_spent"` // seconds
	Score         float64        `json:"score"`
	Percentage    float64        `json:"percentage"`
	AnswerLog     []AnswerRecord `json:"answer_log,omitempty"`
	Violations    []Violation    `json:"violations,omitempty"`
}
