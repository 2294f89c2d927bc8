package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SAP-F-2025/college-portal-service/internal/models"
	"github.com/SAP-F-2025/college-portal-service/internal/pipeline"
	"github.com/SAP-F-2025/college-portal-service/internal/query"
)

var (
	ErrEmailTaken     = errors.New("email already taken")
	ErrStudentIDTaken = errors.New("student id already taken")
	ErrInvalidSearch  = errors.New("invalid search pattern")
)

// UserFilters defines filters for user queries
type UserFilters struct {
	Query      string // Search query for name or email
	Role       models.UserRole
	Department string
	IsActive   *bool
}

// Predicate builds the record query matching f. Query is a case-insensitive
// regular expression tested against name and email.
func (f UserFilters) Predicate() (query.Predicate, error) {
	var terms []query.Predicate
	if f.Role != "" {
		terms = append(terms, query.Eq("role", string(f.Role)))
	}
	if f.Department != "" {
		terms = append(terms, query.Eq("department", f.Department))
	}
	if f.IsActive != nil {
		terms = append(terms, query.Eq("isActive", *f.IsActive))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		name, err := query.Pattern("name", q, "i")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSearch, err)
		}
		email, _ := query.Pattern("email", q, "i")
		terms = append(terms, query.AnyOf(name, email))
	}
	if len(terms) == 0 {
		return query.All{}, nil
	}
	return query.AllOf(terms...), nil
}

// UserRepository interface for user operations. Create and Update enforce
// email and student id uniqueness inside the write, failing with
// ErrEmailTaken or ErrStudentIDTaken.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, filters UserFilters) ([]*models.User, error)
	Update(ctx context.Context, id string, fields models.Record) (*models.User, error)
	Delete(ctx context.Context, id string) (*models.User, error)

	// Statistics
	Count(ctx context.Context, q query.Predicate) (int, error)
	Aggregate(ctx context.Context, p pipeline.Pipeline) ([]map[string]any, error)
	Collection() Collection
}

type userRepository struct {
	c Collection
}

func NewUserRepository(c Collection) UserRepository {
	return &userRepository{c: c}
}

func (r *userRepository) Collection() Collection { return r.c }

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	rec, err := models.ToRecord(user)
	if err != nil {
		return err
	}
	if user.ID == "" {
		delete(rec, models.FieldID)
	}
	saved, err := r.c.Create(ctx, rec, uniqueUserGuards(user.Email, user.StudentID, "")...)
	if err != nil {
		return err
	}
	return saved.Decode(user)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return decodeOne[models.User](r.c.FindByID(ctx, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return decodeOne[models.User](r.c.FindOne(ctx, query.Eq("email", NormalizeEmail(email))))
}

func (r *userRepository) List(ctx context.Context, filters UserFilters) ([]*models.User, error) {
	q, err := filters.Predicate()
	if err != nil {
		return nil, err
	}
	recs, err := r.c.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	return DecodeAll[models.User](recs)
}

func (r *userRepository) Update(ctx context.Context, id string, fields models.Record) (*models.User, error) {
	email, _ := fields["email"].(string)
	studentID, _ := fields["studentId"].(string)
	return decodeOne[models.User](r.c.FindByIDAndUpdate(ctx, id, fields, uniqueUserGuards(email, studentID, id)...))
}

func (r *userRepository) Delete(ctx context.Context, id string) (*models.User, error) {
	return decodeOne[models.User](r.c.FindByIDAndDelete(ctx, id))
}

// uniqueUserGuards rejects a write whose email or non-empty student id
// belongs to a user other than excludeID.
func uniqueUserGuards(email, studentID, excludeID string) []Guard {
	others := func(q query.Predicate) query.Predicate {
		if excludeID == "" {
			return q
		}
		return query.AllOf(q, query.NotEq(models.FieldID, excludeID))
	}
	var guards []Guard
	if email != "" {
		guards = append(guards, Unique(others(query.Eq("email", NormalizeEmail(email))), ErrEmailTaken))
	}
	if studentID != "" {
		guards = append(guards, Unique(others(query.Eq("studentId", studentID)), ErrStudentIDTaken))
	}
	return guards
}

func (r *userRepository) Count(ctx context.Context, q query.Predicate) (int, error) {
	return r.c.CountDocuments(ctx, q)
}

func (r *userRepository) Aggregate(ctx context.Context, p pipeline.Pipeline) ([]map[string]any, error) {
	return r.c.Aggregate(ctx, p)
}

// NormalizeEmail trims and lowercases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DecodeAll converts records into typed models.
func DecodeAll[T any](recs []models.Record) ([]*T, error) {
	out := make([]*T, 0, len(recs))
	for _, rec := range recs {
		v := new(T)
		if err := rec.Decode(v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func decodeOne[T any](rec models.Record, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	v := new(T)
	if err := rec.Decode(v); err != nil {
		return nil, err
	}
	return v, nil
}
