package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/SAP-F-2025/college-portal-service/internal/cache"
	"github.com/SAP-F-2025/college-portal-service/internal/models"
	"github.com/SAP-F-2025/college-portal-service/internal/pipeline"
	"github.com/SAP-F-2025/college-portal-service/internal/query"
	"github.com/SAP-F-2025/college-portal-service/internal/repositories"
)

const (
	dashboardStatsKey = "dashboard:stats"
	recentUsersLimit  = 5
	day               = 24 * time.Hour
)

// ===== SERVICE IMPLEMENTATION =====

type dashboardService struct {
	repo   repositories.Repository
	users  repositories.UserRepository
	cache  *cache.CacheManager
	logger *slog.Logger
	now    func() time.Time
}

func NewDashboardService(repo repositories.Repository, cm *cache.CacheManager, logger *slog.Logger) DashboardService {
	return newDashboardService(repo, cm, logger, time.Now)
}

func newDashboardService(repo repositories.Repository, cm *cache.CacheManager, logger *slog.Logger, now func() time.Time) *dashboardService {
	return &dashboardService{
		repo:   repo,
		users:  repositories.NewUserRepository(repo.Users()),
		cache:  cm,
		logger: logger,
		now:    now,
	}
}

// snapshot returns every user record without credentials.
func (s *dashboardService) snapshot(ctx context.Context) ([]map[string]any, error) {
	recs, err := s.users.Collection().ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read users: %w", err)
	}
	docs := models.Records(recs)
	for _, d := range docs {
		models.StripSecrets(d)
	}
	return docs, nil
}

func (s *dashboardService) GetDashboardStats(ctx context.Context) (*DashboardStatsResponse, error) {
	s.logger.Info("Getting dashboard stats")

	var stats DashboardStatsResponse
	err := s.cache.Stats.CacheOrExecute(ctx, dashboardStatsKey, &stats, cache.StatsCacheConfig.TTL, func() (any, error) {
		return s.computeStats(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *dashboardService) computeStats(ctx context.Context) (*DashboardStatsResponse, error) {
	docs, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()

	stats := &DashboardStatsResponse{
		DepartmentStats: []DepartmentCount{},
		RecentUsers:     []RecentUser{},
		MonthlyStats:    []MonthlyCount{},
	}

	// Overview
	stats.Overview.TotalUsers = len(docs)
	stats.Overview.ActiveUsers = len(query.Filter(docs, query.Eq("isActive", true)))
	stats.Overview.InactiveUsers = stats.Overview.TotalUsers - stats.Overview.ActiveUsers
	stats.Overview.NewUsersThisMonth = len(query.Filter(docs, query.AtLeast(models.FieldCreatedAt, models.FormatTime(now.Add(-30*day)))))

	// Role distribution
	roles, err := pipeline.Run(docs, pipeline.Group{
		Key:    pipeline.FieldKey("role"),
		Fields: []pipeline.Field{{Name: "count", Acc: pipeline.CountAcc{}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to group roles: %w", err)
	}
	for _, g := range roles {
		n := toInt(g["count"])
		switch g["_id"] {
		case string(models.RoleStudent):
			stats.RoleDistribution.Students = n
		case string(models.RoleFaculty):
			stats.RoleDistribution.Faculty = n
		case string(models.RoleAdmin):
			stats.RoleDistribution.Admins = n
		}
	}

	// Department distribution
	departments, err := pipeline.Run(docs,
		pipeline.Match{Query: hasDepartment()},
		pipeline.Group{
			Key:    pipeline.FieldKey("department"),
			Fields: []pipeline.Field{{Name: "count", Acc: pipeline.CountAcc{}}},
		},
		pipeline.Sort{{Path: "count", Desc: true}},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to group departments: %w", err)
	}
	for _, g := range departments {
		name, _ := g["_id"].(string)
		stats.DepartmentStats = append(stats.DepartmentStats, DepartmentCount{ID: name, Count: toInt(g["count"])})
	}

	// Recent users
	recent, err := pipeline.Run(docs, pipeline.Sort{{Path: models.FieldCreatedAt, Desc: true}})
	if err != nil {
		return nil, err
	}
	for _, d := range recent[:min(recentUsersLimit, len(recent))] {
		stats.RecentUsers = append(stats.RecentUsers, RecentUser{
			Name:       stringField(d, "name"),
			Email:      stringField(d, "email"),
			Role:       models.UserRole(stringField(d, "role")),
			Department: stringField(d, "department"),
			CreatedAt:  stringField(d, models.FieldCreatedAt),
		})
	}

	// Monthly registrations over the last year
	monthly, err := pipeline.Run(withCreatedMonth(docs),
		pipeline.Match{Query: query.AtLeast(models.FieldCreatedAt, models.FormatTime(now.Add(-365*day)))},
		pipeline.Group{
			Key: pipeline.CompositeKey{
				{Name: "year", Path: "created.year"},
				{Name: "month", Path: "created.month"},
			},
			Fields: []pipeline.Field{{Name: "count", Acc: pipeline.CountAcc{}}},
		},
		pipeline.Sort{{Path: "_id.year"}, {Path: "_id.month"}},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to group registrations: %w", err)
	}
	for _, g := range monthly {
		key, _ := g["_id"].(map[string]any)
		if key["year"] == nil {
			continue
		}
		stats.MonthlyStats = append(stats.MonthlyStats, MonthlyCount{
			Month: fmt.Sprintf("%d-%02d", toInt(key["year"]), toInt(key["month"])),
			Count: toInt(g["count"]),
		})
	}

	return stats, nil
}

// GetRecentActivity merges the latest registrations and logins, newest first.
func (s *dashboardService) GetRecentActivity(ctx context.Context, limit int) ([]ActivityResponse, error) {
	s.logger.Info("Getting recent activity", "limit", limit)

	docs, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	registrations, err := pipeline.Run(docs, pipeline.Sort{{Path: models.FieldCreatedAt, Desc: true}})
	if err != nil {
		return nil, err
	}
	logins, err := pipeline.Run(docs,
		pipeline.Match{Query: query.AllOf(query.Present("lastLogin"), query.NotEq("lastLogin", ""))},
		pipeline.Sort{{Path: "lastLogin", Desc: true}},
	)
	if err != nil {
		return nil, err
	}

	activities := make([]ActivityResponse, 0, 2*limit)
	for _, d := range registrations[:min(limit, len(registrations))] {
		name, role := stringField(d, "name"), stringField(d, "role")
		activities = append(activities, ActivityResponse{
			Type:        "registration",
			User:        name,
			Email:       stringField(d, "email"),
			Role:        models.UserRole(role),
			Timestamp:   stringField(d, models.FieldCreatedAt),
			Description: fmt.Sprintf("%s registered as %s", name, role),
		})
	}
	for _, d := range logins[:min(limit, len(logins))] {
		name := stringField(d, "name")
		activities = append(activities, ActivityResponse{
			Type:        "login",
			User:        name,
			Email:       stringField(d, "email"),
			Role:        models.UserRole(stringField(d, "role")),
			Timestamp:   stringField(d, "lastLogin"),
			Description: fmt.Sprintf("%s logged in", name),
		})
	}

	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].Timestamp > activities[j].Timestamp
	})
	return activities[:min(limit, len(activities))], nil
}

// GetDepartmentBreakdown reports per-department totals and year spread,
// largest department first.
func (s *dashboardService) GetDepartmentBreakdown(ctx context.Context) ([]DepartmentBreakdownResponse, error) {
	s.logger.Info("Getting department breakdown")

	docs, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	groups, err := pipeline.Run(docs,
		pipeline.Match{Query: hasDepartment()},
		pipeline.Group{
			Key: pipeline.FieldKey("department"),
			Fields: []pipeline.Field{
				{Name: "totalStudents", Acc: pipeline.CountAcc{}},
				{Name: "active", Acc: pipeline.PushAcc{Path: "isActive"}},
				{Name: "years", Acc: pipeline.PushAcc{Path: "year"}},
			},
		},
		pipeline.Project{
			{Name: "department", Expr: pipeline.Include{Path: "_id"}},
			{Name: "totalStudents", Expr: pipeline.Include{Path: "totalStudents"}},
			{Name: "active", Expr: pipeline.Include{Path: "active"}},
			{Name: "yearDistribution", Expr: pipeline.CountValues{
				Input:   "years",
				Initial: map[string]any{"1": 0, "2": 0, "3": 0, "4": 0},
			}},
		},
		pipeline.Sort{{Path: "totalStudents", Desc: true}},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to group departments: %w", err)
	}

	out := make([]DepartmentBreakdownResponse, 0, len(groups))
	for _, g := range groups {
		total := toInt(g["totalStudents"])
		active := 0
		flags, _ := g["active"].([]any)
		for _, f := range flags {
			if f == true {
				active++
			}
		}

		years := map[string]int{"1": 0, "2": 0, "3": 0, "4": 0}
		counted, _ := g["yearDistribution"].(map[string]any)
		for y := range years {
			years[y] = toInt(counted[y])
		}

		name, _ := g["department"].(string)
		out = append(out, DepartmentBreakdownResponse{
			Department:       name,
			TotalStudents:    total,
			ActiveStudents:   active,
			InactiveStudents: total - active,
			YearDistribution: years,
		})
	}
	return out, nil
}

// GetSystemHealth reports engagement counters. Status is "degraded" when
// storage or cache fail their health checks.
func (s *dashboardService) GetSystemHealth(ctx context.Context) (*SystemHealthResponse, error) {
	s.logger.Info("Getting system health")

	resp := &SystemHealthResponse{
		SystemStatus: "healthy",
		Storage:      s.repo.Driver(),
		Cache:        s.cache.Backend(),
	}
	if err := s.repo.Ping(ctx); err != nil {
		s.logger.Warn("Storage health check failed", "error", err)
		resp.SystemStatus = "degraded"
	}
	if err := s.cache.HealthCheck(ctx); err != nil {
		s.logger.Warn("Cache health check failed", "error", err)
		resp.SystemStatus = "degraded"
	}

	docs, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := models.FormatTime(s.now().Add(-30 * day))
	withLogin := query.AllOf(query.Present("lastLogin"), query.NotEq("lastLogin", ""))

	resp.TotalUsers = len(docs)
	resp.ActiveUsers = len(query.Filter(docs, query.Eq("isActive", true)))
	resp.InactiveUsers = resp.TotalUsers - resp.ActiveUsers
	resp.UsersWithLogin = len(query.Filter(docs, withLogin))
	resp.InactiveUsers30Days = resp.TotalUsers - len(query.Filter(docs, query.AllOf(withLogin, query.AtLeast("lastLogin", cutoff))))
	if resp.TotalUsers > 0 {
		rate := float64(resp.UsersWithLogin) / float64(resp.TotalUsers) * 100
		resp.EngagementRate = math.Round(rate*100) / 100
	}
	return resp, nil
}

// Aggregate runs a client pipeline over the user collection. Credentials
// are removed before the first stage.
func (s *dashboardService) Aggregate(ctx context.Context, p pipeline.Pipeline) ([]map[string]any, error) {
	s.logger.Info("Running aggregation", "stages", len(p))

	docs, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out, err := p.Run(docs)
	if err != nil {
		return nil, NewValidationError("Invalid pipeline", err.Error())
	}
	return out, nil
}

func hasDepartment() query.Predicate {
	return query.AllOf(query.Present("department"), query.NotEq("department", ""))
}

// withCreatedMonth returns copies of docs carrying created.year and
// created.month derived from createdAt.
func withCreatedMonth(docs []map[string]any) []map[string]any {
	out := make([]map[string]any, len(docs))
	for i, d := range docs {
		c := make(map[string]any, len(d)+1)
		for k, v := range d {
			c[k] = v
		}
		if t, err := models.ParseTime(stringField(d, models.FieldCreatedAt)); err == nil {
			c["created"] = map[string]any{"year": t.Year(), "month": int(t.Month())}
		}
		out[i] = c
	}
	return out
}

func stringField(doc map[string]any, field string) string {
	s, _ := doc[field].(string)
	return s
}

func toInt(v any) int {
	if f, ok := query.ToFloat(v); ok {
		return int(f)
	}
	if s, ok := v.(string); ok {
		n, _ := strconv.Atoi(s)
		return n
	}
	return 0
}
