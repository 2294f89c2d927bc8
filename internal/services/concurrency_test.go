package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/SAP-F-2025/college-portal-service/internal/models"
	"github.com/SAP-F-2025/college-portal-service/internal/query"
)

// runTogether starts n calls of fn at the same moment and waits for all.
func runTogether(n int, fn func(i int)) {
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			fn(i)
		}(i)
	}
	close(start)
	wg.Wait()
}

func TestUserService_ConcurrentCreateKeepsEmailUnique(t *testing.T) {
	tests := []struct {
		name    string
		req     func(i int) CreateUserRequest
		field   string
		wantMsg string
	}{
		{
			name: "same email",
			req: func(i int) CreateUserRequest {
				return CreateUserRequest{
					Name:     fmt.Sprintf("User %d", i),
					Email:    "Same@College.edu",
					Password: "secret123",
					Role:     models.RoleStudent,
				}
			},
			field:   "email",
			wantMsg: "User with this email already exists",
		},
		{
			name: "same student id",
			req: func(i int) CreateUserRequest {
				return CreateUserRequest{
					Name:      fmt.Sprintf("User %d", i),
					Email:     fmt.Sprintf("user%d@college.edu", i),
					Password:  "secret123",
					Role:      models.RoleStudent,
					StudentID: ptr("STU-001"),
				}
			},
			field:   "studentId",
			wantMsg: "Student ID already exists",
		},
	}

	const workers = 8
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			svc := env.userService()
			ctx := context.Background()

			var mu sync.Mutex
			created := 0
			var failures []error
			runTogether(workers, func(i int) {
				req := tt.req(i)
				_, err := svc.Create(ctx, &req)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					failures = append(failures, err)
					return
				}
				created++
			})

			if created != 1 {
				t.Errorf("successful creates = %d, want 1", created)
			}
			for _, err := range failures {
				assertKind(t, err, ErrConflict, tt.wantMsg)
			}
			recs, err := env.repo.users.ReadAll(ctx)
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if len(recs) != 1 {
				t.Errorf("stored users = %d, want 1", len(recs))
			}
		})
	}
}

func TestUserService_ConcurrentUpdateKeepsEmailUnique(t *testing.T) {
	env := newTestEnv(t)
	svc := env.userService()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 6; i++ {
		u := env.mustCreateUser(t, fmt.Sprintf("User %d", i), fmt.Sprintf("user%d@college.edu", i), models.RoleStudent)
		ids = append(ids, u.ID)
	}

	var mu sync.Mutex
	updated := 0
	runTogether(len(ids), func(i int) {
		_, err := svc.Update(ctx, ids[i], &UpdateUserRequest{Email: ptr("taken@college.edu")})
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err == nil:
			updated++
		case !errors.Is(err, ErrConflict):
			t.Errorf("Update(%s) error = %v, want conflict", ids[i], err)
		}
	})

	if updated != 1 {
		t.Errorf("successful updates = %d, want 1", updated)
	}
	n, err := env.repo.users.CountDocuments(ctx, query.Eq("email", "taken@college.edu"))
	if err != nil {
		t.Fatalf("CountDocuments() error = %v", err)
	}
	if n != 1 {
		t.Errorf("users holding the email = %d, want 1", n)
	}
}

func TestMenuService_ConcurrentDeleteAndCreateChild(t *testing.T) {
	const rounds = 20
	for round := 0; round < rounds; round++ {
		env, svc := seededMenu(t)
		ctx := context.Background()

		var mu sync.Mutex
		var deleteErr error
		childCreated := 0
		runTogether(5, func(i int) {
			if i == 0 {
				err := svc.Delete(ctx, "remote-settings")
				mu.Lock()
				deleteErr = err
				mu.Unlock()
				return
			}
			_, err := svc.Create(ctx, &CreateMenuItemRequest{
				Label:    fmt.Sprintf("Setting %d", i),
				ParentID: ptr("remote-settings"),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				childCreated++
			case !errors.Is(err, ErrValidationFailed):
				t.Errorf("Create() error = %v, want validation failure", err)
			}
		})

		children, err := env.repo.menu.CountDocuments(ctx, query.Eq("parentId", "remote-settings"))
		if err != nil {
			t.Fatalf("CountDocuments() error = %v", err)
		}
		parents, err := env.repo.menu.CountDocuments(ctx, query.Eq(models.FieldID, "remote-settings"))
		if err != nil {
			t.Fatalf("CountDocuments() error = %v", err)
		}

		if children != childCreated {
			t.Fatalf("round %d: stored children = %d, created = %d", round, children, childCreated)
		}
		if parents == 0 && children > 0 {
			t.Fatalf("round %d: %d children left without their parent", round, children)
		}
		if deleteErr == nil && parents != 0 {
			t.Fatalf("round %d: delete succeeded but parent is still stored", round)
		}
		if deleteErr != nil {
			assertKind(t, deleteErr, ErrValidationFailed, "Cannot delete menu item with children. Please delete or reassign children first.")
		}
	}
}
