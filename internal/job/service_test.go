package job

import (
	"context"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"resumeMatcher/internal/database"
	"resumeMatcher/internal/errcode"
)

func newTestService(t *testing.T) (*Service, *database.UserStore) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sqlite: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	users := database.NewUserStore(db)
	return NewService(database.NewJobStore(db), users, nil), users
}

func createRecruiter(t *testing.T, users *database.UserStore, email string) {
	t.Helper()
	user := &database.User{
		Username:     strings.Split(email, "@")[0],
		Email:        email,
		PasswordHash: "x",
		Role:         database.RoleRecruiter,
	}
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("create recruiter: %v", err)
	}
}

func ptr[T any](v T) *T { return &v }

func sampleInput() CreateInput {
	return CreateInput{
		Title:           "Engineer",
		Description:     "Build things",
		Company:         "Acme",
		Location:        "Remote",
		Requirements:    "3 years",
		Benefits:        "Snacks",
		SalaryMin:       ptr(1000.0),
		SalaryMax:       ptr(2000.0),
		JobType:         database.JobTypeFullTime,
		ExperienceLevel: database.ExperienceMid,
		Skills:          []string{"go", "sql"},
	}
}

func TestCreateRequiresKnownCaller(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), sampleInput(), "ghost@c.com")
	if !errors.Is(err, errcode.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateSetsOwnerAndTimestamps(t *testing.T) {
	svc, users := newTestService(t)
	createRecruiter(t, users, "r@c.com")
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)
	svc.now = func() time.Time { return fixed }

	created, err := svc.Create(context.Background(), sampleInput(), "r@c.com")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.RecruiterEmail != "r@c.com" || !created.Active {
		t.Fatalf("unexpected owner fields: %+v", created)
	}
	want := fixed.Truncate(time.Microsecond)
	if !created.CreatedAt.Equal(want) || !created.UpdatedAt.Equal(want) {
		t.Fatalf("timestamps = %v / %v, want %v", created.CreatedAt, created.UpdatedAt, want)
	}
	if !reflect.DeepEqual(created.Skills, []string{"go", "sql"}) {
		t.Fatalf("skills = %v", created.Skills)
	}
}

func TestCreateRejectsNegativeSalary(t *testing.T) {
	svc, users := newTestService(t)
	createRecruiter(t, users, "r@c.com")
	in := sampleInput()
	in.SalaryMin = ptr(-1.0)

	_, err := svc.Create(context.Background(), in, "r@c.com")
	var e *errcode.Error
	if !errors.As(err, &e) || e.Kind != errcode.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := e.Fields["salaryMin"]; !ok {
		t.Fatalf("expected salaryMin field, got %v", e.Fields)
	}
}

func TestUpdateOnlyTitleLeavesOtherFields(t *testing.T) {
	svc, users := newTestService(t)
	createRecruiter(t, users, "r@c.com")
	ctx := context.Background()

	created, err := svc.Create(ctx, sampleInput(), "r@c.com")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	before, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	after, err := svc.Update(ctx, created.ID, UpdateInput{Title: ptr("Senior Engineer")}, "r@c.com")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if after.Title != "Senior Engineer" {
		t.Fatalf("title = %q", after.Title)
	}
	if !after.UpdatedAt.After(before.UpdatedAt) {
		t.Fatalf("updatedAt did not increase: %v -> %v", before.UpdatedAt, after.UpdatedAt)
	}

	reloaded, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	reloaded.Title = before.Title
	reloaded.UpdatedAt = before.UpdatedAt
	if !reflect.DeepEqual(*reloaded, *before) {
		t.Fatalf("untouched fields changed:\nbefore %+v\nafter  %+v", *before, *reloaded)
	}
}

func TestUpdatedAtStrictlyIncreasesWithStalledClock(t *testing.T) {
	svc, users := newTestService(t)
	createRecruiter(t, users, "r@c.com")
	ctx := context.Background()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	created, err := svc.Create(ctx, sampleInput(), "r@c.com")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	prev := created.UpdatedAt
	for i := 0; i < 3; i++ {
		updated, err := svc.Update(ctx, created.ID, UpdateInput{Benefits: ptr("more")}, "r@c.com")
		if err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
		if !updated.UpdatedAt.After(prev) {
			t.Fatalf("update %d: updatedAt %v not after %v", i, updated.UpdatedAt, prev)
		}
		prev = updated.UpdatedAt
	}
}

func TestUpdateReplacesSkillsOnlyWhenPresent(t *testing.T) {
	svc, users := newTestService(t)
	createRecruiter(t, users, "r@c.com")
	ctx := context.Background()

	created, err := svc.Create(ctx, sampleInput(), "r@c.com")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Update(ctx, created.ID, UpdateInput{Location: ptr("Berlin")}, "r@c.com")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !reflect.DeepEqual(updated.Skills, []string{"go", "sql"}) {
		t.Fatalf("skills changed without being sent: %v", updated.Skills)
	}

	updated, err = svc.Update(ctx, created.ID, UpdateInput{Skills: ptr([]string{"rust"})}, "r@c.com")
	if err != nil {
		t.Fatalf("update skills: %v", err)
	}
	if !reflect.DeepEqual(updated.Skills, []string{"rust"}) {
		t.Fatalf("skills = %v", updated.Skills)
	}
}

func TestNonOwnerAndMissingAreIndistinguishable(t *testing.T) {
	svc, users := newTestService(t)
	createRecruiter(t, users, "r@c.com")
	createRecruiter(t, users, "r2@c.com")
	ctx := context.Background()

	created, err := svc.Create(ctx, sampleInput(), "r@c.com")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, notOwned := svc.Update(ctx, created.ID, UpdateInput{Title: ptr("x")}, "r2@c.com")
	_, missing := svc.Update(ctx, created.ID+100, UpdateInput{Title: ptr("x")}, "r@c.com")
	for _, err := range []error{notOwned, missing} {
		if !errors.Is(err, errcode.ErrNotFoundOrForbidden) {
			t.Fatalf("expected not-found-or-forbidden, got %v", err)
		}
	}
	if notOwned.Error() != missing.Error() {
		t.Fatalf("messages differ: %q vs %q", notOwned.Error(), missing.Error())
	}

	delNotOwned := svc.Delete(ctx, created.ID, "r2@c.com")
	delMissing := svc.Delete(ctx, created.ID+100, "r@c.com")
	if !errors.Is(delNotOwned, errcode.ErrNotFoundOrForbidden) || !errors.Is(delMissing, errcode.ErrNotFoundOrForbidden) {
		t.Fatalf("delete errors = %v / %v", delNotOwned, delMissing)
	}

	if err := svc.Delete(ctx, created.ID, "r@c.com"); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := svc.Get(ctx, created.ID); !errors.Is(err, errcode.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestListPagingAndSkills(t *testing.T) {
	svc, users := newTestService(t)
	createRecruiter(t, users, "r@c.com")
	ctx := context.Background()

	for _, skills := range [][]string{{"go"}, {"rust", "c"}, {"java"}, {"go", "rust"}, {}} {
		in := sampleInput()
		in.Skills = skills
		if _, err := svc.Create(ctx, in, "r@c.com"); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	page, err := svc.List(ctx, Filter{Skills: []string{"go,rust"}}, 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalElements != 3 || page.Size != DefaultPageSize || page.TotalPages != 1 {
		t.Fatalf("unexpected page meta: %+v", page)
	}
	for _, job := range page.Content {
		if !containsAny(job.Skills, "go", "rust") {
			t.Fatalf("job %d has neither tag: %v", job.ID, job.Skills)
		}
	}

	page, err = svc.List(ctx, Filter{}, 1, 2)
	if err != nil {
		t.Fatalf("list page 1: %v", err)
	}
	if page.TotalElements != 5 || page.TotalPages != 3 || len(page.Content) != 2 {
		t.Fatalf("unexpected paging: %+v", page)
	}

	page, err = svc.List(ctx, Filter{}, 0, 1000)
	if err != nil {
		t.Fatalf("list max: %v", err)
	}
	if page.Size != MaxPageSize {
		t.Fatalf("size = %d, want %d", page.Size, MaxPageSize)
	}
}

func TestListHugePageIsEmpty(t *testing.T) {
	svc, users := newTestService(t)
	createRecruiter(t, users, "r@c.com")
	ctx := context.Background()
	if _, err := svc.Create(ctx, sampleInput(), "r@c.com"); err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, p := range []int{math.MaxInt / 10, math.MaxInt} {
		page, err := svc.List(ctx, Filter{}, p, 20)
		if err != nil {
			t.Fatalf("list page %d: %v", p, err)
		}
		if len(page.Content) != 0 || page.TotalElements != 1 {
			t.Fatalf("page %d: expected no rows, got %d (total %d)", p, len(page.Content), page.TotalElements)
		}
		if page.Page <= 0 {
			t.Fatalf("page %d reported as %d", p, page.Page)
		}
	}
}

func TestListMine(t *testing.T) {
	svc, users := newTestService(t)
	createRecruiter(t, users, "r@c.com")
	createRecruiter(t, users, "r2@c.com")
	ctx := context.Background()

	for _, owner := range []string{"r@c.com", "r2@c.com", "r@c.com"} {
		if _, err := svc.Create(ctx, sampleInput(), owner); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	mine, err := svc.ListMine(ctx, "r@c.com")
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("got %d jobs, want 2", len(mine))
	}
	for _, job := range mine {
		if job.RecruiterEmail != "r@c.com" {
			t.Fatalf("foreign job in list: %+v", job)
		}
	}
}

func TestNormalizeSkills(t *testing.T) {
	got := normalizeSkills([]string{"go, rust", " go", "", "c"})
	if !reflect.DeepEqual(got, []string{"go", "rust", "c"}) {
		t.Fatalf("normalizeSkills = %v", got)
	}
	if normalizeSkills([]string{" , "}) != nil {
		t.Fatal("expected nil for blank input")
	}
}

func containsAny(have []string, want ...string) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}
