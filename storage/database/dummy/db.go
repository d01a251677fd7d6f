package dummydb

import (
	"sync"

	"github.com/trezcool/shule/core/course"
	"github.com/trezcool/shule/core/guardian"
	"github.com/trezcool/shule/core/org"
	"github.com/trezcool/shule/core/quiz"
	"github.com/trezcool/shule/core/role"
	"github.com/trezcool/shule/core/user"
)

type (
	DB struct {
		user       *userTable
		role       *roleTable
		org        *orgTable
		guardian   *guardianTable
		course     *courseTable
		enrollment *enrollmentTable
		question   *questionTable
		quiz       *quizTable
		attempt    *attemptTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	roleTable struct {
		sync.RWMutex
		table map[string]*role.Assignment
	}

	orgTable struct {
		sync.RWMutex
		table map[string]*org.Organization
	}

	guardianTable struct {
		sync.RWMutex
		table map[string]*guardian.Link
	}

	courseTable struct {
		sync.RWMutex
		table map[string]*course.Course
	}

	enrollmentTable struct {
		sync.RWMutex
		table map[string]*course.Enrollment
	}

	questionTable struct {
		sync.RWMutex
		table map[string]*quiz.QuestionBankItem
	}

	quizTable struct {
		sync.RWMutex
		table map[string]*quiz.Quiz
		links map[string]*quiz.QuizQuestion
	}

	attemptTable struct {
		sync.RWMutex
		table map[string]*quiz.Attempt
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		role:       &roleTable{table: make(map[string]*role.Assignment)},
		org:        &orgTable{table: make(map[string]*org.Organization)},
		guardian:   &guardianTable{table: make(map[string]*guardian.Link)},
		course:     &courseTable{table: make(map[string]*course.Course)},
		enrollment: &enrollmentTable{table: make(map[string]*course.Enrollment)},
		question:   &questionTable{table: make(map[string]*quiz.QuestionBankItem)},
		quiz:       &quizTable{table: make(map[string]*quiz.Quiz), links: make(map[string]*quiz.QuizQuestion)},
		attempt:    &attemptTable{table: make(map[string]*quiz.Attempt)},
	}
	return db, nil
}
