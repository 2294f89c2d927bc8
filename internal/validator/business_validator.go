package validator

import (
	"strconv"
	"strings"

	"github.com/SAP-F-2025/college-portal-service/internal/menutree"
	"github.com/SAP-F-2025/college-portal-service/internal/models"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100

	DefaultActivityLimit = 10
	MaxActivityLimit     = 50
)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	v *Validator
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	return New().GetBusinessValidator()
}

// ValidateUserCreate validates user creation
func (bv *BusinessValidator) ValidateUserCreate(req *CreateUserRequest) ValidationErrors {
	return bv.v.Validate(req)
}

// ValidateUserUpdate validates a partial user update
func (bv *BusinessValidator) ValidateUserUpdate(req *UpdateUserRequest) ValidationErrors {
	return bv.v.Validate(req)
}

// ValidateMenuItemCreate validates menu item creation
func (bv *BusinessValidator) ValidateMenuItemCreate(req *CreateMenuItemRequest) ValidationErrors {
	errs := bv.v.Validate(req)
	if strings.TrimSpace(req.ID) != req.ID {
		errs = append(errs, ValidationError{
			Field:   "id",
			Message: "ID cannot start or end with whitespace",
			Value:   req.ID,
			Rule:    "business_logic",
		})
	}
	return errs
}

// ValidateMenuItemUpdate validates a partial menu item update
func (bv *BusinessValidator) ValidateMenuItemUpdate(req *UpdateMenuItemRequest) ValidationErrors {
	return bv.v.Validate(req)
}

// ValidateParent checks that moving id under parentID keeps the menu a forest.
// items is the full current collection.
func (bv *BusinessValidator) ValidateParent(items []models.MenuItem, id, parentID string) ValidationErrors {
	if parentID == "" {
		return nil
	}

	var errs ValidationErrors
	found := false
	for i := range items {
		if items[i].ID == parentID {
			found = true
			break
		}
	}
	switch {
	case !found:
		errs = append(errs, ValidationError{
			Field:   "parentId",
			Message: "Parent menu item not found",
			Value:   parentID,
			Rule:    "parent_exists",
		})
	case parentID == id:
		errs = append(errs, ValidationError{
			Field:   "parentId",
			Message: "Menu item cannot be its own parent",
			Value:   parentID,
			Rule:    "no_cycles",
		})
	case id != "" && menutree.IsDescendant(items, id, parentID):
		errs = append(errs, ValidationError{
			Field:   "parentId",
			Message: "Menu item cannot be moved under one of its descendants",
			Value:   parentID,
			Rule:    "no_cycles",
		})
	}
	return errs
}

// ValidatePagination parses page and limit query values. Empty values take
// the defaults.
func (bv *BusinessValidator) ValidatePagination(page, limit string) (int, int, ValidationErrors) {
	var errs ValidationErrors

	p, ok := parsePositive(page, 1)
	if !ok {
		errs = append(errs, ValidationError{
			Field:   "page",
			Message: "Page must be a positive integer",
			Value:   page,
			Rule:    "pagination",
		})
	}

	l, ok := parsePositive(limit, DefaultPageLimit)
	if !ok || l > MaxPageLimit {
		errs = append(errs, ValidationError{
			Field:   "limit",
			Message: "Limit must be a positive integer between 1 and 100",
			Value:   limit,
			Rule:    "pagination",
		})
	}

	return p, l, errs
}

// ActivityLimit parses the activity feed limit, clamping it to 1..50.
func (bv *BusinessValidator) ActivityLimit(limit string) int {
	n, ok := parsePositive(limit, DefaultActivityLimit)
	if !ok {
		return DefaultActivityLimit
	}
	return min(n, MaxActivityLimit)
}

func parsePositive(s string, fallback int) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fallback, false
	}
	return n, true
}
