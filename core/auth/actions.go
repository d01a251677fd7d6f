package auth

import "github.com/trezcool/shule/core/role"

// Action names the capability being exercised against a resource.
type Action string

const (
	ActionCreateCourse        Action = "create_course"
	ActionUpdateCourse        Action = "update_course"
	ActionViewCourse          Action = "view_course"
	ActionCreateQuiz          Action = "create_quiz"
	ActionPublishQuiz         Action = "publish_quiz"
	ActionAddQuizQuestion     Action = "add_quiz_question"
	ActionCreateQuestion      Action = "create_question"
	ActionEnrollStudent       Action = "enroll_student"
	ActionSetEnrollmentStatus Action = "set_enrollment_status"
	ActionGrantRole           Action = "grant_role"
	ActionRevokeRole          Action = "revoke_role"
	ActionRenameOrganization  Action = "rename_organization"
	ActionReadStudentProfile  Action = "read_student_profile"
	ActionReadStudentGrades   Action = "read_student_grades"
	ActionReadAttempts        Action = "read_attempts"
)

// rule is one row of the static action permission table.
// Roles are checked against the resource's owning scope with exact-match
// semantics; AllowSelf admits the student who owns the resource; AllowGuardian
// admits guardians holding an accepted link to that student.
type rule struct {
	Roles         []role.Role
	AllowSelf     bool
	AllowGuardian bool
}

var staffRoles = []role.Role{role.OrgOwner, role.OrgAdmin, role.OrgTeacher, role.SoloTeacher}

var adminRoles = []role.Role{role.OrgOwner, role.OrgAdmin}

// actionRules is the full action -> requirements table. Actions absent from
// the table are denied outright.
var actionRules = map[Action]rule{
	ActionCreateCourse:        {Roles: staffRoles},
	ActionUpdateCourse:        {Roles: staffRoles},
	ActionViewCourse:          {Roles: staffRoles},
	ActionCreateQuiz:          {Roles: staffRoles},
	ActionPublishQuiz:         {Roles: staffRoles},
	ActionAddQuizQuestion:     {Roles: staffRoles},
	ActionCreateQuestion:      {Roles: staffRoles},
	ActionEnrollStudent:       {Roles: staffRoles},
	ActionSetEnrollmentStatus: {Roles: staffRoles},
	ActionGrantRole:           {Roles: adminRoles},
	ActionRevokeRole:          {Roles: adminRoles},
	ActionRenameOrganization:  {Roles: []role.Role{role.OrgOwner}},
	ActionReadStudentProfile:  {Roles: adminRoles, AllowSelf: true, AllowGuardian: true},
	ActionReadStudentGrades:   {Roles: staffRoles, AllowSelf: true, AllowGuardian: true},
	ActionReadAttempts:        {Roles: staffRoles, AllowSelf: true, AllowGuardian: true},
}
