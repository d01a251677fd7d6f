package core

// Scope is the tenancy anchor for role assignments and resource ownership:
// an Organization or a solo teacher's personal namespace. At most one side is
// set; the zero Scope marks tenant-independent roles (pure student/guardian).
type Scope struct {
	Org         string `json:"org,omitempty"`
	SoloTeacher string `json:"solo_teacher,omitempty"`
}

func OrgScope(orgID string) Scope { return Scope{Org: orgID} }

func SoloScope(teacherID string) Scope { return Scope{SoloTeacher: teacherID} }

func (s Scope) IsOrg() bool { return s.Org != "" }

func (s Scope) IsSolo() bool { return s.SoloTeacher != "" }

func (s Scope) IsZero() bool { return s.Org == "" && s.SoloTeacher == "" }

// Valid reports whether at most one side of the scope is set.
func (s Scope) Valid() bool { return !(s.IsOrg() && s.IsSolo()) }

// Equal is an exact comparison; a zero scope never equals a set one.
func (s Scope) Equal(other Scope) bool {
	return s.Org == other.Org && s.SoloTeacher == other.SoloTeacher
}

func (s Scope) String() string {
	switch {
	case s.IsOrg():
		return "org:" + s.Org
	case s.IsSolo():
		return "solo:" + s.SoloTeacher
	default:
		return "none"
	}
}
