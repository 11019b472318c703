package api

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"resumeMatcher/internal/auth"
	"resumeMatcher/internal/database"
	"resumeMatcher/internal/job"
	"resumeMatcher/internal/resume"
)

func testKeys(t *testing.T) ([]byte, []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return privPEM, pubPEM
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

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

	priv, pub := testKeys(t)
	tokens, err := auth.NewAuthService(priv, pub, "resume-matcher-test", time.Hour)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}

	users := database.NewUserStore(db)
	jobStore := database.NewJobStore(db)
	router := NewRouter(nil, "")
	RegisterRoutes(router, Services{
		Tokens:   tokens,
		Sessions: auth.NewSessionService(users, tokens, nil),
		Jobs:     job.NewService(jobStore, users, nil),
		Resumes: resume.NewService(resume.Dependencies{
			Resumes: database.NewResumeStore(db),
			Jobs:    jobStore,
		}),
		MaxUploadBytes: 1 << 20,
	})
	return &testServer{router: router, db: db}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func (s *testServer) register(t *testing.T, username, email, password string, role database.Role) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/v1/auth/register", "", gin.H{
		"username": username, "email": email, "password": password,
		"firstName": "F", "lastName": "L", "role": role,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("register %s: %d %s", email, w.Code, w.Body.String())
	}
	return decode[auth.Session](t, w).Token
}

func TestJobOwnershipScenario(t *testing.T) {
	s := newTestServer(t)

	ownerToken := s.register(t, "recruiter", "r@c.com", "pw1", database.RoleRecruiter)

	w := s.do(t, http.MethodPost, "/v1/jobs", ownerToken, gin.H{
		"title": "Engineer", "description": "Build", "company": "Acme", "location": "Remote", "skills": []string{"go"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create job: %d %s", w.Code, w.Body.String())
	}
	created := decode[job.Response](t, w)
	jobPath := "/v1/jobs/" + strconv.FormatUint(uint64(created.ID), 10)

	w = s.do(t, http.MethodGet, "/v1/jobs?skills=go", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}
	page := decode[job.Page](t, w)
	if page.TotalElements != 1 || page.Content[0].ID != created.ID {
		t.Fatalf("expected created job in listing, got %+v", page)
	}

	s.register(t, "recruiter2", "r2@c.com", "pw2", database.RoleRecruiter)
	w = s.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"email": "r2@c.com", "password": "pw2"})
	if w.Code != http.StatusOK {
		t.Fatalf("login r2: %d %s", w.Code, w.Body.String())
	}
	otherToken := decode[auth.Session](t, w).Token

	notOwned := s.do(t, http.MethodDelete, jobPath, otherToken, nil)
	missing := s.do(t, http.MethodDelete, "/v1/jobs/999999", otherToken, nil)
	if notOwned.Code != http.StatusNotFound || missing.Code != http.StatusNotFound {
		t.Fatalf("delete statuses = %d / %d", notOwned.Code, missing.Code)
	}
	if notOwned.Body.String() != missing.Body.String() {
		t.Fatalf("not-owned and missing responses differ: %s vs %s", notOwned.Body.String(), missing.Body.String())
	}

	if w := s.do(t, http.MethodDelete, jobPath, ownerToken, nil); w.Code != http.StatusNoContent {
		t.Fatalf("owner delete: %d %s", w.Code, w.Body.String())
	}
	if w := s.do(t, http.MethodGet, jobPath, "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("get after delete: %d", w.Code)
	}
}

func TestRegisterAndLoginErrors(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "alice@x.com", "secret", database.RoleJobSeeker)

	w := s.do(t, http.MethodPost, "/v1/auth/register", "", gin.H{
		"username": "alice2", "email": "ALICE@x.com", "password": "secret",
		"firstName": "A", "lastName": "B", "role": "JOB_SEEKER",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate email status = %d", w.Code)
	}

	w = s.do(t, http.MethodPost, "/v1/auth/register", "", gin.H{
		"username": "bob", "email": "not-an-email", "password": "",
		"firstName": "A", "lastName": "B", "role": "ADMIN",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid register status = %d", w.Code)
	}
	body := decode[struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}](t, w)
	for _, field := range []string{"email", "password", "role"} {
		if _, ok := body.Fields[field]; !ok {
			t.Fatalf("expected field %q in %v", field, body.Fields)
		}
	}

	wrongPassword := s.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"email": "alice@x.com", "password": "nope"})
	unknownUser := s.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"email": "ghost@x.com", "password": "nope"})
	if wrongPassword.Code != http.StatusUnauthorized || unknownUser.Code != http.StatusUnauthorized {
		t.Fatalf("login statuses = %d / %d", wrongPassword.Code, unknownUser.Code)
	}
	if wrongPassword.Body.String() != unknownUser.Body.String() {
		t.Fatalf("login failures distinguishable: %s vs %s", wrongPassword.Body.String(), unknownUser.Body.String())
	}
}

func TestResumeLoginAndMe(t *testing.T) {
	s := newTestServer(t)

	first := s.do(t, http.MethodPost, "/v1/auth/resume-login", "", gin.H{"email": "a@x.com", "firstName": "Ann"})
	second := s.do(t, http.MethodPost, "/v1/auth/resume-login", "", gin.H{"email": "a@x.com", "firstName": "Other"})
	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("resume-login statuses = %d / %d", first.Code, second.Code)
	}
	if got := decode[auth.Session](t, second); got.FirstName != "Ann" || got.Role != database.RoleJobSeeker {
		t.Fatalf("profile must not change on repeat login: %+v", got)
	}

	token := decode[auth.Session](t, first).Token
	w := s.do(t, http.MethodGet, "/v1/auth/me", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me: %d %s", w.Code, w.Body.String())
	}
	me := decode[map[string]any](t, w)
	if me["email"] != "a@x.com" || me["username"] != "a" {
		t.Fatalf("unexpected me %+v", me)
	}
	if _, leaked := me["passwordHash"]; leaked {
		t.Fatal("password hash must not be serialized")
	}

	if w := s.do(t, http.MethodGet, "/v1/auth/me", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("me without token: %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/v1/auth/me", "garbage", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("me with bad token: %d", w.Code)
	}

	var count int64
	s.db.Model(&database.User{}).Where("email = ?", "a@x.com").Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one user, got %d", count)
	}
}

func TestJobMutationsRequireRecruiter(t *testing.T) {
	s := newTestServer(t)
	seekerToken := s.register(t, "seeker", "s@x.com", "pw", database.RoleJobSeeker)

	w := s.do(t, http.MethodPost, "/v1/jobs", seekerToken, gin.H{
		"title": "x", "description": "x", "company": "x", "location": "x",
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("seeker create status = %d", w.Code)
	}
	if w := s.do(t, http.MethodPost, "/v1/jobs", "", gin.H{"title": "x"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous create status = %d", w.Code)
	}
}

func TestPartialUpdateOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "rec", "rec@x.com", "pw", database.RoleRecruiter)

	w := s.do(t, http.MethodPost, "/v1/jobs", token, gin.H{
		"title": "Engineer", "description": "Build", "company": "Acme", "location": "Remote",
		"salaryMin": 100, "salaryMax": 200, "jobType": "FULL_TIME", "skills": []string{"go", "sql"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	created := decode[job.Response](t, w)
	path := "/v1/jobs/" + strconv.FormatUint(uint64(created.ID), 10)

	w = s.do(t, http.MethodPut, path, token, gin.H{"title": "Staff Engineer"})
	if w.Code != http.StatusOK {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}
	updated := decode[job.Response](t, w)
	if updated.Title != "Staff Engineer" || updated.Company != "Acme" || *updated.SalaryMax != 200 ||
		updated.JobType != database.JobTypeFullTime || len(updated.Skills) != 2 {
		t.Fatalf("partial update clobbered fields: %+v", updated)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("updatedAt did not advance")
	}

	if w := s.do(t, http.MethodPut, path, token, gin.H{"salaryMin": -5}); w.Code != http.StatusBadRequest {
		t.Fatalf("negative salary status = %d", w.Code)
	}
	if w := s.do(t, http.MethodPut, "/v1/jobs/abc", token, gin.H{"title": "x"}); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid id status = %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/v1/jobs/mine", token, nil)
	if w.Code != http.StatusOK || len(decode[[]job.Response](t, w)) != 1 {
		t.Fatalf("mine: %d %s", w.Code, w.Body.String())
	}
}

func TestResumeEndpoints(t *testing.T) {
	s := newTestServer(t)
	token := decode[auth.Session](t, s.do(t, http.MethodPost, "/v1/auth/resume-login", "", gin.H{"email": "cv@x.com"})).Token

	w := s.do(t, http.MethodPost, "/v1/resumes", token, gin.H{"fileName": "cv.txt", "text": "Go engineer"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create resume: %d %s", w.Code, w.Body.String())
	}
	created := decode[resume.Response](t, w)
	if created.Status != database.ResumeStatusRaw {
		t.Fatalf("without AI the resume stays raw, got %q", created.Status)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "cv2.txt")
	_, _ = part.Write([]byte("Rust engineer"))
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/v1/resumes/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	up := httptest.NewRecorder()
	s.router.ServeHTTP(up, req)
	if up.Code != http.StatusCreated {
		t.Fatalf("upload: %d %s", up.Code, up.Body.String())
	}

	w = s.do(t, http.MethodGet, "/v1/resumes", token, nil)
	if w.Code != http.StatusOK || len(decode[[]resume.Response](t, w)) != 2 {
		t.Fatalf("list resumes: %d %s", w.Code, w.Body.String())
	}

	matchPath := "/v1/resumes/" + strconv.FormatUint(uint64(created.ID), 10) + "/matches"
	w = s.do(t, http.MethodGet, matchPath, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("matches: %d %s", w.Code, w.Body.String())
	}
	if m := decode[resume.MatchResponse](t, w); m.Enriched || len(m.Matches) != 0 {
		t.Fatalf("expected empty fallback, got %+v", m)
	}

	linkPath := "/v1/resumes/" + strconv.FormatUint(uint64(created.ID), 10) + "/download-link"
	if w := s.do(t, http.MethodGet, linkPath, token, nil); w.Code != http.StatusNotFound {
		t.Fatalf("link without stored file: %d", w.Code)
	}

	otherToken := decode[auth.Session](t, s.do(t, http.MethodPost, "/v1/auth/resume-login", "", gin.H{"email": "other@x.com"})).Token
	resumePath := "/v1/resumes/" + strconv.FormatUint(uint64(created.ID), 10)
	if w := s.do(t, http.MethodGet, resumePath, otherToken, nil); w.Code != http.StatusNotFound {
		t.Fatalf("foreign resume status = %d", w.Code)
	}
	if w := s.do(t, http.MethodDelete, resumePath, token, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete resume: %d", w.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(nil, "s3cret")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("metrics without secret = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("X-Internal-Secret", "s3cret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "resumematcher_http_requests_total") {
		t.Fatalf("metrics status = %d", w.Code)
	}
}

type fakeCounter struct{ counts map[string]int64 }

func (f *fakeCounter) Incr(_ context.Context, key string) *redis.IntCmd {
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeCounter) Expire(context.Context, string, time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(true, nil)
}

func TestIncrWithTTL(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int64{}}
	for want := int64(1); want <= 3; want++ {
		got, err := incrWithTTL(context.Background(), counter, "k", time.Hour)
		if err != nil || got != want {
			t.Fatalf("incrWithTTL = %d, %v; want %d", got, err, want)
		}
	}
}

func TestLoginGuardWithoutRedisAllows(t *testing.T) {
	var guard *LoginGuard
	if v := guard.Check(context.Background(), "login", "1.2.3.4", "a@x.com"); v != guardAllow {
		t.Fatalf("nil guard verdict = %v", v)
	}
	guard = NewLoginGuard(nil, 1, 1, time.Minute)
	guard.RecordFailure(context.Background(), "a@x.com")
	if v := guard.Check(context.Background(), "login", "1.2.3.4", "a@x.com"); v != guardAllow {
		t.Fatalf("guard without redis verdict = %v", v)
	}
}
