package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/friendsofgo/errors"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/quiz"
)

type questionRow struct {
	ID            string    `db:"id"`
	OrgID         string    `db:"org_id"`
	SoloTeacherID string    `db:"solo_teacher_id"`
	QType         string    `db:"qtype"`
	Prompt        string    `db:"prompt"`
	Options       []byte    `db:"options"`
	CorrectIndex  null.Int  `db:"correct_index"`
	CorrectText   string    `db:"correct_text"`
	WordLimit     null.Int  `db:"word_limit"`
	Rubric        string    `db:"rubric"`
	CreatedBy     string    `db:"created_by"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r questionRow) toQuestion() (quiz.QuestionBankItem, error) {
	var options []string
	if len(r.Options) > 0 {
		if err := json.Unmarshal(r.Options, &options); err != nil {
			return quiz.QuestionBankItem{}, errors.Wrap(err, "decoding options")
		}
	}
	return quiz.QuestionBankItem{
		ID:           r.ID,
		Scope:        core.Scope{Org: r.OrgID, SoloTeacher: r.SoloTeacherID},
		QType:        quiz.QType(r.QType),
		Prompt:       r.Prompt,
		Options:      options,
		CorrectIndex: r.CorrectIndex,
		CorrectText:  r.CorrectText,
		WordLimit:    r.WordLimit,
		Rubric:       r.Rubric,
		CreatedBy:    r.CreatedBy,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}, nil
}

type quizRow struct {
	ID          string    `db:"id"`
	CourseID    string    `db:"course_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	MaxAttempts null.Int  `db:"max_attempts"`
	TimeLimit   null.Int  `db:"time_limit"`
	PublishedAt null.Time `db:"published_at"`
	CreatedBy   string    `db:"created_by"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r quizRow) toQuiz() quiz.Quiz {
	return quiz.Quiz{
		ID:          r.ID,
		CourseID:    r.CourseID,
		Title:       r.Title,
		Description: r.Description,
		MaxAttempts: r.MaxAttempts,
		TimeLimit:   r.TimeLimit,
		PublishedAt: r.PublishedAt,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type quizQuestionRow struct {
	ID         string  `db:"id"`
	QuizID     string  `db:"quiz_id"`
	QuestionID string  `db:"question_id"`
	Points     float64 `db:"points"`
	Position   int     `db:"ordering"`
	Randomize  bool    `db:"randomize"`
}

func (r quizQuestionRow) toQuizQuestion() quiz.QuizQuestion {
	return quiz.QuizQuestion{
		ID:         r.ID,
		QuizID:     r.QuizID,
		QuestionID: r.QuestionID,
		Points:     r.Points,
		Position:   r.Position,
		Randomize:  r.Randomize,
	}
}

type attemptRow struct {
	ID            string    `db:"id"`
	QuizID        string    `db:"quiz_id"`
	StudentID     string    `db:"student_id"`
	AttemptNumber int       `db:"attempt_number"`
	Status        string    `db:"status"`
	StartedAt     time.Time `db:"started_at"`
	FinishedAt    null.Time `db:"finished_at"`
	TimeSpent     int64     `db:"time_spent"`
	Score         float64   `db:"score"`
	Percentage    float64   `db:"percentage"`
	AnswerLog     []byte    `db:"answer_log"`
	Violations    []byte    `db:"violations"`
}

func (r attemptRow) toAttempt() (quiz.Attempt, error) {
	a := quiz.Attempt{
		ID:            r.ID,
		QuizID:        r.QuizID,
		StudentID:     r.StudentID,
		AttemptNumber: r.AttemptNumber,
		Status:        quiz.AttemptStatus(r.Status),
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
		TimeSpent:     r.TimeSpent,
		Score:         r.Score,
		Percentage:    r.Percentage,
	}
	if len(r.AnswerLog) > 0 {
		if err := json.Unmarshal(r.AnswerLog, &a.AnswerLog); err != nil {
			return quiz.Attempt{}, errors.Wrap(err, "decoding answer log")
		}
	}
	if len(r.Violations) > 0 {
		if err := json.Unmarshal(r.Violations, &a.Violations); err != nil {
			return quiz.Attempt{}, errors.Wrap(err, "decoding violations")
		}
	}
	return a, nil
}

type quizRepository struct {
	db *sqlx.DB
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db *sqlx.DB) quiz.Repository {
	return &quizRepository{db: db}
}

func (repo *quizRepository) CreateQuestion(ctx context.Context, q quiz.QuestionBankItem) (quiz.QuestionBankItem, error) {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return quiz.QuestionBankItem{}, errors.Wrap(err, "encoding options")
	}
	ins := `
INSERT INTO question_bank_item (id, org_id, solo_teacher_id, qtype, prompt, options, correct_index, correct_text, word_limit, rubric, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err = repo.db.ExecContext(ctx, ins,
		q.ID, q.Scope.Org, q.Scope.SoloTeacher, string(q.QType), q.Prompt, options,
		q.CorrectIndex, q.CorrectText, q.WordLimit, q.Rubric, q.CreatedBy, q.CreatedAt, q.UpdatedAt,
	)
	if err != nil {
		return quiz.QuestionBankItem{}, errors.Wrap(err, "creating question")
	}
	return q, nil
}

func (repo *quizRepository) GetQuestionByID(ctx context.Context, id string) (quiz.QuestionBankItem, error) {
	var row questionRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM question_bank_item WHERE id = $1`, id); err != nil {
		if isNoRows(err) {
			return quiz.QuestionBankItem{}, quiz.ErrQuestionNotFound
		}
		return quiz.QuestionBankItem{}, errors.Wrap(err, "getting question")
	}
	return row.toQuestion()
}

func (repo *quizRepository) ListQuestionsByScope(ctx context.Context, scope core.Scope) ([]quiz.QuestionBankItem, error) {
	var rows []questionRow
	q := `SELECT * FROM question_bank_item WHERE org_id = $1 AND solo_teacher_id = $2 ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, q, scope.Org, scope.SoloTeacher); err != nil {
		return nil, errors.Wrap(err, "listing questions")
	}
	items := make([]quiz.QuestionBankItem, 0, len(rows))
	for _, row := range rows {
		item, err := row.toQuestion()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (repo *quizRepository) CreateQuiz(ctx context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	ins := `
INSERT INTO quiz (id, course_id, title, description, max_attempts, time_limit, published_at, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := repo.db.ExecContext(ctx, ins,
		q.ID, q.CourseID, q.Title, q.Description, q.MaxAttempts, q.TimeLimit,
		q.PublishedAt, q.CreatedBy, q.CreatedAt, q.UpdatedAt,
	)
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "creating quiz")
	}
	return q, nil
}

func (repo *quizRepository) GetQuizByID(ctx context.Context, id string) (quiz.Quiz, error) {
	var row quizRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM quiz WHERE id = $1`, id); err != nil {
		if isNoRows(err) {
			return quiz.Quiz{}, quiz.ErrNotFound
		}
		return quiz.Quiz{}, errors.Wrap(err, "getting quiz")
	}
	return row.toQuiz(), nil
}

func (repo *quizRepository) UpdateQuiz(ctx context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	upd := `
UPDATE quiz SET title = $2, description = $3, max_attempts = $4, time_limit = $5, published_at = $6, updated_at = $7
WHERE id = $1
RETURNING *`
	var row quizRow
	err := repo.db.GetContext(ctx, &row, upd, q.ID, q.Title, q.Description, q.MaxAttempts, q.TimeLimit, q.PublishedAt, q.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return quiz.Quiz{}, quiz.ErrNotFound
		}
		return quiz.Quiz{}, errors.Wrap(err, "updating quiz")
	}
	return row.toQuiz(), nil
}

func (repo *quizRepository) ListQuizzesByCourse(ctx context.Context, courseID string) ([]quiz.Quiz, error) {
	var rows []quizRow
	q := `SELECT * FROM quiz WHERE course_id = $1 ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "listing quizzes")
	}
	quizzes := make([]quiz.Quiz, 0, len(rows))
	for _, row := range rows {
		quizzes = append(quizzes, row.toQuiz())
	}
	return quizzes, nil
}

func (repo *quizRepository) AddQuizQuestion(ctx context.Context, qq quiz.QuizQuestion) (quiz.QuizQuestion, error) {
	ins := `
INSERT INTO quiz_question (id, quiz_id, question_id, points, ordering, randomize)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := repo.db.ExecContext(ctx, ins, qq.ID, qq.QuizID, qq.QuestionID, qq.Points, qq.Position, qq.Randomize)
	if err != nil {
		if isUniqueViolation(err, "quiz_question_quiz_id_question_id_key") {
			return quiz.QuizQuestion{}, quiz.ErrQuestionLinked
		}
		return quiz.QuizQuestion{}, errors.Wrap(err, "adding quiz question")
	}
	return qq, nil
}

func (repo *quizRepository) ListQuizQuestions(ctx context.Context, quizID string) ([]quiz.QuizQuestion, error) {
	var rows []quizQuestionRow
	q := `SELECT * FROM quiz_question WHERE quiz_id = $1 ORDER BY ordering`
	if err := repo.db.SelectContext(ctx, &rows, q, quizID); err != nil {
		return nil, errors.Wrap(err, "listing quiz questions")
	}
	links := make([]quiz.QuizQuestion, 0, len(rows))
	for _, row := range rows {
		links = append(links, row.toQuizQuestion())
	}
	return links, nil
}

func (repo *quizRepository) CreateAttempt(ctx context.Context, a quiz.Attempt, maxAttempts int) (quiz.Attempt, error) {
	tx, err := repo.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return quiz.Attempt{}, errors.Wrap(err, "starting attempt")
	}
	defer func() { _ = tx.Rollback() }()

	var prior, nonAbandoned, active int
	count := `
SELECT count(*),
       count(*) FILTER (WHERE status <> 'abandoned'),
       count(*) FILTER (WHERE status = 'in_progress')
FROM quiz_attempt WHERE student_id = $1 AND quiz_id = $2`
	if err = tx.QueryRowContext(ctx, count, a.StudentID, a.QuizID).Scan(&prior, &nonAbandoned, &active); err != nil {
		return quiz.Attempt{}, errors.Wrap(err, "counting attempts")
	}
	// the active-attempt conflict takes precedence over the limit
	if active > 0 {
		return quiz.Attempt{}, quiz.ErrAttemptActive
	}
	if maxAttempts > 0 && nonAbandoned >= maxAttempts {
		return quiz.Attempt{}, quiz.ErrAttemptLimitExceeded
	}
	a.AttemptNumber = prior + 1

	ins := `
INSERT INTO quiz_attempt (id, quiz_id, student_id, attempt_number, status, started_at, time_spent, score, percentage)
VALUES ($1, $2, $3, $4, $5, $6, 0, 0, 0)`
	if _, err = tx.ExecContext(ctx, ins, a.ID, a.QuizID, a.StudentID, a.AttemptNumber, string(a.Status), a.StartedAt); err != nil {
		if isUniqueViolation(err, "quiz_attempt_active_key") {
			return quiz.Attempt{}, quiz.ErrAttemptActive
		}
		return quiz.Attempt{}, errors.Wrap(err, "creating attempt")
	}
	if err = tx.Commit(); err != nil {
		// a serialization failure means a concurrent start won
		if isUniqueViolation(err, "quiz_attempt_active_key") {
			return quiz.Attempt{}, quiz.ErrAttemptActive
		}
		return quiz.Attempt{}, errors.Wrap(err, "creating attempt")
	}
	return a, nil
}

func (repo *quizRepository) GetAttemptByID(ctx context.Context, id string) (quiz.Attempt, error) {
	var row attemptRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM quiz_attempt WHERE id = $1`, id); err != nil {
		if isNoRows(err) {
			return quiz.Attempt{}, quiz.ErrAttemptNotFound
		}
		return quiz.Attempt{}, errors.Wrap(err, "getting attempt")
	}
	return row.toAttempt()
}

func (repo *quizRepository) FinishAttempt(ctx context.Context, a quiz.Attempt) (quiz.Attempt, error) {
	answerLog, err := json.Marshal(a.AnswerLog)
	if err != nil {
		return quiz.Attempt{}, errors.Wrap(err, "encoding answer log")
	}
	// the status guard makes this a compare-and-swap: a retried submit
	// updates zero rows instead of re-grading
	upd := `
UPDATE quiz_attempt SET status = $2, finished_at = $3, time_spent = $4, score = $5, percentage = $6, answer_log = $7
WHERE id = $1 AND status = 'in_progress'
RETURNING *`
	var row attemptRow
	err = repo.db.GetContext(ctx, &row, upd, a.ID, string(a.Status), a.FinishedAt, a.TimeSpent, a.Score, a.Percentage, answerLog)
	if err != nil {
		if isNoRows(err) {
			if _, getErr := repo.GetAttemptByID(ctx, a.ID); getErr != nil {
				return quiz.Attempt{}, getErr
			}
			return quiz.Attempt{}, quiz.ErrAttemptCompleted
		}
		return quiz.Attempt{}, errors.Wrap(err, "finishing attempt")
	}
	return row.toAttempt()
}

func (repo *quizRepository) ListAttempts(ctx context.Context, studentID, quizID string) ([]quiz.Attempt, error) {
	var rows []attemptRow
	q := `SELECT * FROM quiz_attempt WHERE student_id = $1 AND quiz_id = $2 ORDER BY started_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, studentID, quizID); err != nil {
		return nil, errors.Wrap(err, "listing attempts")
	}
	attempts := make([]quiz.Attempt, 0, len(rows))
	for _, row := range rows {
		a, err := row.toAttempt()
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, nil
}

func (repo *quizRepository) AppendViolation(ctx context.Context, attemptID string, v quiz.Violation) (quiz.Attempt, error) {
	event, err := json.Marshal(v)
	if err != nil {
		return quiz.Attempt{}, errors.Wrap(err, "encoding violation")
	}
	upd := `
UPDATE quiz_attempt SET violations = COALESCE(violations, '[]'::jsonb) || $2::jsonb
WHERE id = $1
RETURNING *`
	var row attemptRow
	if err = repo.db.GetContext(ctx, &row, upd, attemptID, event); err != nil {
		if isNoRows(err) {
			return quiz.Attempt{}, quiz.ErrAttemptNotFound
		}
		return quiz.Attempt{}, errors.Wrap(err, "recording violation")
	}
	return row.toAttempt()
}
