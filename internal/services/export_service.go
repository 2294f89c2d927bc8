package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/college-portal-service/internal/models"
	"github.com/SAP-F-2025/college-portal-service/internal/repositories"
)

const usersSheet = "Users"

var userColumns = []string{
	"ID", "Name", "Email", "Role", "Student ID", "Department", "Year",
	"Phone", "Address", "Active", "Last Login", "Created At",
}

type exportService struct {
	users  repositories.UserRepository
	logger *slog.Logger
}

func NewExportService(repo repositories.Repository, logger *slog.Logger) ExportService {
	return &exportService{
		users:  repositories.NewUserRepository(repo.Users()),
		logger: logger,
	}
}

func (s *exportService) ExportUsers(ctx context.Context) ([]byte, error) {
	users, err := s.users.List(ctx, repositories.UserFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	sortNewestFirst(users)

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Error("Failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", usersSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(userColumns))
	for i, c := range userColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(usersSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetRowStyle(usersSheet, 1, 1, bold); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for i, u := range users {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := userRow(u)
		if err := f.SetSheetRow(usersSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write user %s: %w", u.ID, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info("Users exported", "count", len(users))
	return buf.Bytes(), nil
}

func userRow(u *models.User) []any {
	year := ""
	if u.Year != nil {
		year = strconv.Itoa(*u.Year)
	}
	return []any{
		u.ID, u.Name, u.Email, string(u.Role), u.StudentID, u.Department, year,
		u.Phone, u.Address, u.IsActive, deref(u.LastLogin), u.CreatedAt,
	}
}
