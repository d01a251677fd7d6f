package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/quiz"
)

type quizRepository struct {
	questions *questionTable
	quizzes   *quizTable
	attempts  *attemptTable
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db *DB) quiz.Repository {
	return &quizRepository{questions: db.question, quizzes: db.quiz, attempts: db.attempt}
}

func (repo *quizRepository) CreateQuestion(ctx context.Context, q quiz.QuestionBankItem) (quiz.QuestionBankItem, error) {
	repo.questions.Lock()
	defer repo.questions.Unlock()
	repo.questions.table[q.ID] = &q
	return q, nil
}

func (repo *quizRepository) GetQuestionByID(ctx context.Context, id string) (quiz.QuestionBankItem, error) {
	repo.questions.RLock()
	defer repo.questions.RUnlock()

	if q, ok := repo.questions.table[id]; ok {
		return *q, nil
	}
	return quiz.QuestionBankItem{}, quiz.ErrQuestionNotFound
}

func (repo *quizRepository) ListQuestionsByScope(ctx context.Context, scope core.Scope) ([]quiz.QuestionBankItem, error) {
	repo.questions.RLock()
	defer repo.questions.RUnlock()

	items := make([]quiz.QuestionBankItem, 0)
	for _, q := range repo.questions.table {
		if q.Scope.Equal(scope) {
			items = append(items, *q)
		}
	}
	return items, nil
}

func (repo *quizRepository) CreateQuiz(ctx context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	repo.quizzes.Lock()
	defer repo.quizzes.Unlock()
	repo.quizzes.table[q.ID] = &q
	return q, nil
}

func (repo *quizRepository) GetQuizByID(ctx context.Context, id string) (quiz.Quiz, error) {
	repo.quizzes.RLock()
	defer repo.quizzes.RUnlock()

	if q, ok := repo.quizzes.table[id]; ok {
		return *q, nil
	}
	return quiz.Quiz{}, quiz.ErrNotFound
}

func (repo *quizRepository) UpdateQuiz(ctx context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	repo.quizzes.Lock()
	defer repo.quizzes.Unlock()

	orig, ok := repo.quizzes.table[q.ID]
	if !ok {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	orig.Title = q.Title
	orig.Description = q.Description
	orig.MaxAttempts = q.MaxAttempts
	orig.TimeLimit = q.TimeLimit
	orig.PublishedAt = q.PublishedAt
	orig.UpdatedAt = q.UpdatedAt
	repo.quizzes.table[q.ID] = orig
	return *orig, nil
}

func (repo *quizRepository) ListQuizzesByCourse(ctx context.Context, courseID string) ([]quiz.Quiz, error) {
	repo.quizzes.RLock()
	defer repo.quizzes.RUnlock()

	quizzes := make([]quiz.Quiz, 0)
	for _, q := range repo.quizzes.table {
		if q.CourseID == courseID {
			quizzes = append(quizzes, *q)
		}
	}
	return quizzes, nil
}

func (repo *quizRepository) AddQuizQuestion(ctx context.Context, qq quiz.QuizQuestion) (quiz.QuizQuestion, error) {
	repo.quizzes.Lock()
	defer repo.quizzes.Unlock()

	// a question may be linked into a quiz once
	for _, other := range repo.quizzes.links {
		if other.QuizID == qq.QuizID && other.QuestionID == qq.QuestionID {
			return quiz.QuizQuestion{}, quiz.ErrQuestionLinked
		}
	}
	repo.quizzes.links[qq.ID] = &qq
	return qq, nil
}

func (repo *quizRepository) ListQuizQuestions(ctx context.Context, quizID string) ([]quiz.QuizQuestion, error) {
	repo.quizzes.RLock()
	defer repo.quizzes.RUnlock()

	links := make([]quiz.QuizQuestion, 0)
	for _, qq := range repo.quizzes.links {
		if qq.QuizID == quizID {
			links = append(links, *qq)
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].Position < links[j].Position })
	return links, nil
}

func (repo *quizRepository) CreateAttempt(ctx context.Context, a quiz.Attempt, maxAttempts int) (quiz.Attempt, error) {
	repo.attempts.Lock()
	defer repo.attempts.Unlock()

	// active-attempt check, limit check and numbering all happen under the
	// same write lock so concurrent starts cannot both pass
	var prior, nonAbandoned int
	for _, other := range repo.attempts.table {
		if other.StudentID != a.StudentID || other.QuizID != a.QuizID {
			continue
		}
		if other.Status == quiz.AttemptInProgress {
			return quiz.Attempt{}, quiz.ErrAttemptActive
		}
		prior++
		if other.Status != quiz.AttemptAbandoned {
			nonAbandoned++
		}
	}
	if maxAttempts > 0 && nonAbandoned >= maxAttempts {
		return quiz.Attempt{}, quiz.ErrAttemptLimitExceeded
	}

	a.AttemptNumber = prior + 1
	repo.attempts.table[a.ID] = &a
	return a, nil
}

func (repo *quizRepository) GetAttemptByID(ctx context.Context, id string) (quiz.Attempt, error) {
	repo.attempts.RLock()
	defer repo.attempts.RUnlock()

	if a, ok := repo.attempts.table[id]; ok {
		return *a, nil
	}
	return quiz.Attempt{}, quiz.ErrAttemptNotFound
}

func (repo *quizRepository) FinishAttempt(ctx context.Context, a quiz.Attempt) (quiz.Attempt, error) {
	repo.attempts.Lock()
	defer repo.attempts.Unlock()

	orig, ok := repo.attempts.table[a.ID]
	if !ok {
		return quiz.Attempt{}, quiz.ErrAttemptNotFound
	}
	// compare-and-swap out of in_progress only
	if orig.Status != quiz.AttemptInProgress {
		return quiz.Attempt{}, quiz.ErrAttemptCompleted
	}
	orig.Status = a.Status
	orig.FinishedAt = a.FinishedAt
	orig.TimeSpent = a.TimeSpent
	orig.Score = a.Score
	orig.Percentage = a.Percentage
	orig.AnswerLog = a.AnswerLog
	repo.attempts.table[a.ID] = orig
	return *orig, nil
}

func (repo *quizRepository) ListAttempts(ctx context.Context, studentID, quizID string) ([]quiz.Attempt, error) {
	repo.attempts.RLock()
	defer repo.attempts.RUnlock()

	attempts := make([]quiz.Attempt, 0)
	for _, a := range repo.attempts.table {
		if a.StudentID == studentID && a.QuizID == quizID {
			attempts = append(attempts, *a)
		}
	}
	sort.Slice(attempts, func(i, j int) bool { return attempts[i].StartedAt.After(attempts[j].StartedAt) })
	return attempts, nil
}

func (repo *quizRepository) AppendViolation(ctx context.Context, attemptID string, v quiz.Violation) (quiz.Attempt, error) {
	repo.attempts.Lock()
	defer repo.attempts.Unlock()

	orig, ok := repo.attempts.table[attemptID]
	if !ok {
		return quiz.Attempt{}, quiz.ErrAttemptNotFound
	}
	orig.Violations = append(orig.Violations, v)
	return *orig, nil
}
