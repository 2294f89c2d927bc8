package validator

import (
	"encoding/json"
	"strings"

	"github.com/SAP-F-2025/college-portal-service/internal/models"
)

// CreateUserRequest represents the request structure for creating users
type CreateUserRequest struct {
	Name     string          `json:"name" validate:"trimmed_min=2" message:"Name is required and must be at least 2 characters long"`
	Email    string          `json:"email" validate:"required,contains=@" message:"Valid email is required"`
	Password string          `json:"password" validate:"min=6" message:"Password is required and must be at least 6 characters long"`
	Role     models.UserRole `json:"role" validate:"user_role" message:"Valid role is required (student, faculty, or admin)"`

	StudentID  *string `json:"studentId" message:"Student ID must be a string"`
	Department *string `json:"department" message:"Department must be a string"`
	Year       *int    `json:"year" validate:"omitempty,study_year" message:"Year must be a number between 1 and 4"`
	Phone      *string `json:"phone" message:"Phone must be a string"`
	Address    *string `json:"address" message:"Address must be a string"`
}

// UpdateUserRequest carries only the fields a client supplied.
type UpdateUserRequest struct {
	Name       *string          `json:"name" validate:"omitempty,trimmed_min=2" message:"Name must be at least 2 characters long"`
	Email      *string          `json:"email" validate:"omitempty,contains=@" message:"Valid email is required"`
	Role       *models.UserRole `json:"role" validate:"omitempty,user_role" message:"Role must be student, faculty, or admin"`
	StudentID  *string          `json:"studentId" message:"Student ID must be a string"`
	Department *string          `json:"department" message:"Department must be a string"`
	Year       *int             `json:"year" validate:"omitempty,study_year" message:"Year must be a number between 1 and 4"`
	Phone      *string          `json:"phone" message:"Phone must be a string"`
	Address    *string          `json:"address" message:"Address must be a string"`
	IsActive   *bool            `json:"isActive" message:"isActive must be a boolean"`
}

// Fields converts the supplied values into a record patch.
func (r *UpdateUserRequest) Fields() models.Record {
	fields := models.Record{}
	setString(fields, "name", r.Name)
	if r.Email != nil {
		fields["email"] = strings.ToLower(strings.TrimSpace(*r.Email))
	}
	if r.Role != nil {
		fields["role"] = string(*r.Role)
	}
	setString(fields, "studentId", r.StudentID)
	setString(fields, "department", r.Department)
	if r.Year != nil {
		fields["year"] = float64(*r.Year)
	}
	setString(fields, "phone", r.Phone)
	setString(fields, "address", r.Address)
	if r.IsActive != nil {
		fields["isActive"] = *r.IsActive
	}
	return fields
}

// UserListQuery holds the raw query string of a user listing.
type UserListQuery struct {
	Page       string          `form:"page"`
	Limit      string          `form:"limit"`
	Role       models.UserRole `form:"role"`
	Department string          `form:"department"`
	Search     string          `form:"search"`
}

// LoginRequest represents a login attempt
type LoginRequest struct {
	Email    string `json:"email" validate:"required,contains=@" message:"Valid email is required"`
	Password string `json:"password" validate:"required" message:"Password is required"`
}

// CreateMenuItemRequest represents the request structure for creating menu items
type CreateMenuItemRequest struct {
	ID            string            `json:"id" message:"ID must be a string"`
	Label         string            `json:"label" validate:"trimmed_min=1" message:"Label is required"`
	Icon          string            `json:"icon" message:"Icon must be a string"`
	Route         string            `json:"route" message:"Route must be a string"`
	ParentID      *string           `json:"parentId" message:"Parent ID must be a string"`
	Order         *int              `json:"order" message:"Order must be an integer"`
	IsActive      *bool             `json:"isActive" message:"isActive must be a boolean"`
	RequiredRoles []models.UserRole `json:"requiredRoles" validate:"omitempty,menu_role" message:"Required roles must be a list of distinct roles (student, faculty, admin)"`
}

// Nullable records whether a JSON field was supplied at all. An explicit
// null is supplied with a nil Value.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// Some returns a supplied, non-null value.
func Some[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: &v}
}

// Null returns an explicit JSON null.
func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		n.Set, n.Value = true, nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Set, n.Value = true, &v
	return nil
}

// UpdateMenuItemRequest carries only the fields a client supplied. A null or
// empty parentId moves the item to the root.
type UpdateMenuItemRequest struct {
	Label         *string           `json:"label" validate:"omitempty,trimmed_min=1" message:"Label cannot be empty"`
	Icon          *string           `json:"icon" message:"Icon must be a string"`
	Route         *string           `json:"route" message:"Route must be a string"`
	ParentID      Nullable[string]  `json:"parentId" message:"Parent ID must be a string"`
	Order         *int              `json:"order" message:"Order must be an integer"`
	IsActive      *bool             `json:"isActive" message:"isActive must be a boolean"`
	RequiredRoles []models.UserRole `json:"requiredRoles" validate:"omitempty,menu_role" message:"Required roles must be a list of distinct roles (student, faculty, admin)"`
}

// Fields converts the supplied values into a record patch.
func (r *UpdateMenuItemRequest) Fields() models.Record {
	fields := models.Record{}
	setString(fields, "label", r.Label)
	setString(fields, "icon", r.Icon)
	setString(fields, "route", r.Route)
	if r.ParentID.Set {
		if p := r.NewParent(); p == "" {
			fields["parentId"] = nil
		} else {
			fields["parentId"] = p
		}
	}
	if r.Order != nil {
		fields["order"] = float64(*r.Order)
	}
	if r.IsActive != nil {
		fields["isActive"] = *r.IsActive
	}
	if r.RequiredRoles != nil {
		roles := make([]any, len(r.RequiredRoles))
		for i, role := range r.RequiredRoles {
			roles[i] = string(role)
		}
		fields["requiredRoles"] = roles
	}
	return fields
}

// NewParent returns the requested parent id, "" meaning root or not supplied.
func (r *UpdateMenuItemRequest) NewParent() string {
	if r.ParentID.Value == nil {
		return ""
	}
	return *r.ParentID.Value
}

func setString(fields models.Record, key string, v *string) {
	if v != nil {
		fields[key] = *v
	}
}
