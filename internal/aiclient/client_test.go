package aiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestAnalyzeResume(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/analyze-resume" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req AnalyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.ResumeText != "go developer" || req.FileType != "text" {
			t.Errorf("unexpected payload %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"skills":["go","sql"],"experience":"5 years","summary":"gopher","education":[],"certifications":[]}`))
	}))
	defer srv.Close()

	client, err := New(srv.URL+"/api/v1/", time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	got, err := client.AnalyzeResume(context.Background(), AnalyzeRequest{ResumeText: "go developer", FileName: "cv.txt", FileType: "text"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(got.Skills) != 2 || got.Experience != "5 years" || got.Summary != "gopher" {
		t.Fatalf("unexpected analysis %+v", got)
	}
}

func TestMatchJobs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req MatchRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.MaxMatches != 3 || len(req.AvailableJobs) != 1 || req.AvailableJobs[0].ID != 7 {
			t.Errorf("unexpected payload %+v", req)
		}
		_, _ = w.Write([]byte(`{"matches":[{"jobId":7,"jobTitle":"Engineer","company":"Acme","matchScore":0.8,"matchingSkills":["go"],"missingSkills":[],"explanation":"good fit"}]}`))
	}))
	defer srv.Close()

	client, err := New(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	got, err := client.MatchJobs(context.Background(), MatchRequest{
		ResumeText:    "go",
		ResumeSkills:  []string{"go"},
		AvailableJobs: []JobSummary{{ID: 7, Title: "Engineer", Company: "Acme"}},
		MaxMatches:    3,
	})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(got.Matches) != 1 || got.Matches[0].JobID != 7 || got.Matches[0].MatchScore != 0.8 {
		t.Fatalf("unexpected matches %+v", got)
	}
}

func TestErrorsSurface(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "non 2xx",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "model overloaded", http.StatusServiceUnavailable)
			},
			want: "status 503",
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"skills":`))
			},
			want: "decode",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			client, _ := New(srv.URL, time.Second)
			_, err := client.AnalyzeResume(context.Background(), AnalyzeRequest{})
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New("  ", 0); err == nil {
		t.Fatal("expected error for empty base url")
	}
}
