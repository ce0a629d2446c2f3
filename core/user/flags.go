package user

// Flags are the four access flags derived from a user's profile and level.
type Flags struct {
	IsAdmin           bool
	IsSuperadmin      bool
	IsTeacherActive   bool
	IsPresenterActive bool
}

// flagTable maps every (profile, level) pair to its flags. Keeping the whole
// policy in one table avoids the ordering pitfalls of deriving each flag in a
// separate mutation pass.
var flagTable = map[Profile]map[Level]Flags{
	ProfileProfessor: {
		LevelSuperadmin: {IsAdmin: true, IsSuperadmin: true, IsTeacherActive: true},
		LevelAdmin:      {IsAdmin: true, IsTeacherActive: true},
		LevelDefault:    {IsTeacherActive: true},
	},
	ProfilePresenter: {
		LevelSuperadmin: {IsAdmin: true, IsSuperadmin: true, IsPresenterActive: true},
		LevelAdmin:      {IsAdmin: true, IsPresenterActive: true},
		LevelDefault:    {IsPresenterActive: true},
	},
	ProfileListener: {
		LevelSuperadmin: {IsAdmin: true, IsSuperadmin: true},
		LevelAdmin:      {IsAdmin: true},
		LevelDefault:    {},
	},
}

// ComputeFlags derives the access flags for a (profile, level) pair.
//
// teacherActive is the caller's explicit intent for the teacher flag; it is
// honoured only for Professors below Superadmin level. A Superadmin Professor
// is always teacher-active, and non-Professors can never be.
func ComputeFlags(profile Profile, level Level, teacherActive *bool) Flags {
	flags := flagTable[profile][level]
	if profile == ProfileProfessor && level != LevelSuperadmin && teacherActive != nil {
		flags.IsTeacherActive = *teacherActive
	}
	return flags
}

// Apply sets the derived flags on usr.
func (f Flags) Apply(usr *User) {
	usr.IsAdmin = f.IsAdmin
	usr.IsSuperadmin = f.IsSuperadmin
	usr.IsTeacherActive = f.IsTeacherActive
	usr.IsPresenterActive = f.IsPresenterActive
}
