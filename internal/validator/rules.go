package validator

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/college-portal-service/internal/models"
)

func registerRules(validate *validator.Validate) {
	// Single role: student, faculty or admin
	validate.RegisterValidation("user_role", func(fl validator.FieldLevel) bool {
		return models.UserRole(fl.Field().String()).IsValid()
	})

	// Year of study (1-4)
	validate.RegisterValidation("study_year", func(fl validator.FieldLevel) bool {
		year := fl.Field().Int()
		return year >= 1 && year <= 4
	})

	// Role list of a menu item: every entry valid, no repeats
	validate.RegisterValidation("menu_role", func(fl validator.FieldLevel) bool {
		roles, ok := fl.Field().Interface().([]models.UserRole)
		if !ok {
			return false
		}
		seen := make(map[models.UserRole]bool, len(roles))
		for _, r := range roles {
			if !r.IsValid() || seen[r] {
				return false
			}
			seen[r] = true
		}
		return true
	})

	// Minimum length in characters after trimming whitespace
	validate.RegisterValidation("trimmed_min", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) >= n
	})
}
