package docstore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/SAP-F-2025/college-portal-service/internal/models"
	"github.com/SAP-F-2025/college-portal-service/internal/pipeline"
	"github.com/SAP-F-2025/college-portal-service/internal/query"
	"github.com/SAP-F-2025/college-portal-service/internal/repositories"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 589000000, time.UTC)

func newTestCollection(initial ...models.Record) (*Collection, *MemoryStorage) {
	storage := NewMemoryStorage(initial...)
	seq := 0
	c := New("users", storage,
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func(time.Time) string {
			seq++
			return fmt.Sprintf("gen-%d", seq)
		}),
	)
	return c, storage
}

func TestCollection_CreateThenFindByID(t *testing.T) {
	tests := []struct {
		name  string
		input models.Record
	}{
		{name: "flat", input: models.Record{"name": "Ada", "role": "student", "year": float64(2)}},
		{name: "nested", input: models.Record{"profile": map[string]any{"city": "Hue"}, "tags": []any{"a", "b"}}},
		{name: "empty", input: models.Record{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			c, _ := newTestCollection()

			created, err := c.Create(ctx, tt.input)
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			got, err := c.FindByID(ctx, created.ID())
			if err != nil {
				t.Fatalf("FindByID() error = %v", err)
			}

			want := tt.input.Clone()
			want[models.FieldID] = "gen-1"
			want[models.FieldCreatedAt] = "2025-03-14T09:26:53.589Z"
			want[models.FieldUpdatedAt] = "2025-03-14T09:26:53.589Z"
			if !reflect.DeepEqual(got, want) {
				t.Errorf("FindByID() = %v, want %v", got, want)
			}
			if _, ok := tt.input[models.FieldID]; ok {
				t.Errorf("Create() mutated its input")
			}
		})
	}
}

func TestCollection_InsertManyIDs(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCollection(models.Record{"id": "gen-1"})

	created, err := c.InsertMany(ctx, []models.Record{{"id": "fixed"}, {}})
	if err != nil {
		t.Fatalf("InsertMany() error = %v", err)
	}
	if created[0].ID() != "fixed" {
		t.Errorf("caller id = %q, want fixed", created[0].ID())
	}
	if created[1].ID() != "gen-2" {
		t.Errorf("generated id = %q, want gen-2 after skipping the taken gen-1", created[1].ID())
	}

	_, err = c.InsertMany(ctx, []models.Record{{"name": "x"}, {"id": "fixed"}})
	if !errors.Is(err, repositories.ErrDuplicateID) {
		t.Fatalf("InsertMany() error = %v, want ErrDuplicateID", err)
	}
	n, _ := c.CountDocuments(ctx, nil)
	if n != 3 {
		t.Errorf("count after rejected batch = %d, want 3", n)
	}
}

func TestCollection_UpdateOneIdempotent(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCollection()
	created, err := c.Create(ctx, models.Record{"name": "Ada", "year": float64(1), "meta": map[string]any{"a": 1.0, "b": 2.0}})
	if err != nil {
		t.Fatal(err)
	}

	update := models.Record{"year": float64(2), "meta": map[string]any{"a": 5.0}, "id": "hijack", "createdAt": "never"}
	first, err := c.FindByIDAndUpdate(ctx, created.ID(), update)
	if err != nil {
		t.Fatalf("first update error = %v", err)
	}
	second, err := c.UpdateOne(ctx, query.Eq("name", "Ada"), update)
	if err != nil {
		t.Fatalf("second update error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeat update changed fields: %v vs %v", first, second)
	}
	if first.ID() != created.ID() || first.CreatedAt() != created.CreatedAt() {
		t.Errorf("update changed identity: %v", first)
	}
	if !reflect.DeepEqual(first["meta"], map[string]any{"a": 5.0}) {
		t.Errorf("nested value was merged instead of replaced: %v", first["meta"])
	}
}

func TestCollection_NotFound(t *testing.T) {
	ctx := context.Background()
	c, storage := newTestCollection(models.Record{"id": "1", "name": "Ada"})

	if _, err := c.FindByID(ctx, "missing"); !repositories.IsNotFoundError(err) {
		t.Errorf("FindByID() error = %v, want not found", err)
	}
	if _, err := c.FindByIDAndUpdate(ctx, "missing", models.Record{"name": "x"}); !repositories.IsNotFoundError(err) {
		t.Errorf("FindByIDAndUpdate() error = %v, want not found", err)
	}
	if _, err := c.FindByIDAndDelete(ctx, "missing"); !repositories.IsNotFoundError(err) {
		t.Errorf("FindByIDAndDelete() error = %v, want not found", err)
	}
	if storage.Writes() != 0 {
		t.Errorf("failed operations persisted %d snapshots", storage.Writes())
	}
}

func TestCollection_Deletes(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCollection(
		models.Record{"id": "1", "role": "student"},
		models.Record{"id": "2", "role": "faculty"},
		models.Record{"id": "3", "role": "student"},
	)

	deleted, err := c.DeleteOne(ctx, query.Eq("role", "faculty"))
	if err != nil || deleted.ID() != "2" {
		t.Fatalf("DeleteOne() = %v, %v", deleted, err)
	}

	tests := []struct {
		name string
		q    query.Predicate
		want int
	}{
		{name: "no match", q: query.Eq("role", "admin"), want: 0},
		{name: "students", q: query.Eq("role", "student"), want: 2},
		{name: "already empty", q: nil, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := c.DeleteMany(ctx, tt.q)
			if err != nil {
				t.Fatal(err)
			}
			if n != tt.want {
				t.Errorf("DeleteMany() = %d, want %d", n, tt.want)
			}
		})
	}
}

func TestCollection_ReadWriteAll(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCollection()

	got, err := c.ReadAll(ctx)
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("ReadAll() on empty = %v, %v", got, err)
	}

	recs := []models.Record{{"id": "a", "n": 1.0}, {"id": "b", "n": 2.0}}
	if err := c.WriteAll(ctx, recs); err != nil {
		t.Fatal(err)
	}
	recs[0]["n"] = 99.0

	got, _ = c.ReadAll(ctx)
	if len(got) != 2 || got[0]["n"] != 1.0 {
		t.Errorf("ReadAll() = %v", got)
	}
	got[1]["n"] = 42.0
	again, _ := c.FindByID(ctx, "b")
	if again["n"] != 2.0 {
		t.Errorf("mutating a read result leaked into the store")
	}
}

func TestCollection_FindAndAggregate(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCollection(
		models.Record{"id": "1", "dept": "CS", "year": 1.0},
		models.Record{"id": "2", "dept": "CS", "year": 2.0},
		models.Record{"id": "3", "dept": "EE", "year": 1.0},
	)

	found, err := c.Find(ctx, query.Within("year", 1, 2))
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 2 || found[0].ID() != "1" || found[1].ID() != "3" {
		t.Errorf("Find() = %v", found)
	}

	one, err := c.FindOne(ctx, query.Eq("dept", "CS"))
	if err != nil || one.ID() != "1" {
		t.Errorf("FindOne() = %v, %v", one, err)
	}

	out, err := c.Aggregate(ctx, pipeline.Pipeline{
		pipeline.Group{Key: pipeline.FieldKey("dept"), Fields: []pipeline.Field{{Name: "count", Acc: pipeline.CountAcc{}}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	counts := map[any]any{}
	for _, g := range out {
		counts[g["_id"]] = g["count"]
	}
	if !reflect.DeepEqual(counts, map[any]any{"CS": 2, "EE": 1}) {
		t.Errorf("Aggregate() = %v", out)
	}
}

func TestCollection_Guards(t *testing.T) {
	errTaken := errors.New("taken")
	errChildren := errors.New("has children")
	seed := []models.Record{
		{"id": "a", "email": "a@x.edu", "parentId": nil},
		{"id": "b", "email": "b@x.edu", "parentId": "a"},
	}

	tests := []struct {
		name    string
		op      func(ctx context.Context, c *Collection) error
		wantErr error
	}{
		{
			name: "create passes unique guard",
			op: func(ctx context.Context, c *Collection) error {
				_, err := c.Create(ctx, models.Record{"email": "c@x.edu"}, repositories.Unique(query.Eq("email", "c@x.edu"), errTaken))
				return err
			},
		},
		{
			name: "create blocked by unique guard",
			op: func(ctx context.Context, c *Collection) error {
				_, err := c.Create(ctx, models.Record{"email": "a@x.edu"}, repositories.Unique(query.Eq("email", "a@x.edu"), errTaken))
				return err
			},
			wantErr: errTaken,
		},
		{
			name: "first failing guard wins",
			op: func(ctx context.Context, c *Collection) error {
				_, err := c.Create(ctx, models.Record{"parentId": "a"},
					repositories.Unique(query.Eq(models.FieldID, "zz"), errTaken),
					repositories.Unique(query.Eq("parentId", "a"), errChildren),
					repositories.Unique(query.All{}, errTaken))
				return err
			},
			wantErr: errChildren,
		},
		{
			name: "update ignores the record itself",
			op: func(ctx context.Context, c *Collection) error {
				q := query.AllOf(query.Eq("email", "a@x.edu"), query.NotEq(models.FieldID, "a"))
				_, err := c.FindByIDAndUpdate(ctx, "a", models.Record{"email": "a@x.edu"}, repositories.Unique(q, errTaken))
				return err
			},
		},
		{
			name: "update blocked by another record",
			op: func(ctx context.Context, c *Collection) error {
				q := query.AllOf(query.Eq("email", "b@x.edu"), query.NotEq(models.FieldID, "a"))
				_, err := c.FindByIDAndUpdate(ctx, "a", models.Record{"email": "b@x.edu"}, repositories.Unique(q, errTaken))
				return err
			},
			wantErr: errTaken,
		},
		{
			name: "missing record wins over guard",
			op: func(ctx context.Context, c *Collection) error {
				_, err := c.FindByIDAndUpdate(ctx, "zz", models.Record{}, repositories.Unique(query.All{}, errTaken))
				return err
			},
			wantErr: repositories.ErrNotFound,
		},
		{
			name: "delete blocked by children",
			op: func(ctx context.Context, c *Collection) error {
				_, err := c.FindByIDAndDelete(ctx, "a", repositories.Unique(query.Eq("parentId", "a"), errTaken))
				return err
			},
			wantErr: errTaken,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			c, storage := newTestCollection(seed...)

			err := tt.op(ctx, c)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil && storage.Writes() != 0 {
				t.Errorf("Writes() = %d after a rejected write", storage.Writes())
			}
		})
	}
}
