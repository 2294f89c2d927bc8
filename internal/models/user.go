package models

type UserRole string
type Role = UserRole

const (
	RoleStudent UserRole = "student"
	RoleFaculty UserRole = "faculty"
	RoleAdmin   UserRole = "admin"
)

// Roles lists every valid role in display order.
var Roles = []UserRole{RoleStudent, RoleFaculty, RoleAdmin}

func (r UserRole) IsValid() bool {
	for _, v := range Roles {
		if r == v {
			return true
		}
	}
	return false
}

type User struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"passwordHash,omitempty"`
	Role         UserRole `json:"role"`

	// Profile info
	StudentID  string `json:"studentId,omitempty"`
	Department string `json:"department,omitempty"`
	Year       *int   `json:"year,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address,omitempty"`

	// Status
	IsActive  bool    `json:"isActive"`
	LastLogin *string `json:"lastLogin,omitempty"`

	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func (User) CollectionName() string {
	return "users"
}

// UserResponse is the public view of a user. It never carries credentials.
type UserResponse struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Role       UserRole `json:"role"`
	StudentID  string   `json:"studentId,omitempty"`
	Department string   `json:"department,omitempty"`
	Year       *int     `json:"year,omitempty"`
	Phone      string   `json:"phone,omitempty"`
	Address    string   `json:"address,omitempty"`
	IsActive   bool     `json:"isActive"`
	LastLogin  *string  `json:"lastLogin,omitempty"`
	CreatedAt  string   `json:"createdAt"`
	UpdatedAt  string   `json:"updatedAt"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		StudentID:  u.StudentID,
		Department: u.Department,
		Year:       u.Year,
		Phone:      u.Phone,
		Address:    u.Address,
		IsActive:   u.IsActive,
		LastLogin:  u.LastLogin,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// Credential fields stripped from any record leaving the service.
var SecretUserFields = []string{"password", "passwordHash"}

// StripSecrets removes credential fields from a raw user record in place.
func StripSecrets(r map[string]any) map[string]any {
	for _, f := range SecretUserFields {
		delete(r, f)
	}
	return r
}
