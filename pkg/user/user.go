package user

type Role string

const (
	RoleParent Role = "parent"
	RoleChild  Role = "child"
)

type User struct {
	Id  int
	Uid string
	// Username is the login identity: an email address for parents, a chosen name for children.
	Username    string
	DisplayName string
	Role        Role
	// ParentId is set for children only.
	ParentId     int
	PasswordHash string
}

func (u User) IsParent() bool {
	return u.Role == RoleParent
}
