package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/matzehuels/depvet/pkg/config"
	"github.com/matzehuels/depvet/pkg/deps"
	"github.com/matzehuels/depvet/pkg/scan"
)

type memFetcher map[string]*deps.PackageMetadata

func (m memFetcher) Fetch(ctx context.Context, name string) (*deps.PackageMetadata, error) {
	if meta, ok := m[name]; ok {
		return meta, nil
	}
	return nil, errors.New("not found")
}

func testServer(t *testing.T) *Server {
	t.Helper()
	fetcher := memFetcher{
		"left-pad": {
			Name:     "left-pad",
			Latest:   "1.3.0",
			License:  "WTFPL",
			Versions: map[string]deps.VersionMetadata{"1.3.0": {}},
		},
	}
	scanner := scan.New(fetcher, nil, config.Default(), nil)
	return New(scanner, nil)
}

func TestHealthz(t *testing.T) {
	srv := httptest.NewServer(testServer(t).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestScanEndpoint(t *testing.T) {
	srv := httptest.NewServer(testServer(t).Handler())
	defer srv.Close()

	body := `{"manifest": {"name": "app", "version": "1.0.0", "dependencies": {"left-pad": "1.3.0"}}}`
	resp, err := http.Post(srv.URL+"/api/scan", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var report scan.Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if report.ID == "" || report.Root != "app" {
		t.Errorf("report = %+v", report)
	}
	if len(report.Packages) != 1 || report.Packages[0].Name != "left-pad" {
		t.Errorf("packages = %v", report.Packages)
	}

	// The finished report stays retrievable by id.
	resp2, err := http.Get(srv.URL + "/api/reports/" + report.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Errorf("report lookup status = %d, want 200", resp2.StatusCode)
	}
}

func TestScanEndpoint_BadRequests(t *testing.T) {
	srv := httptest.NewServer(testServer(t).Handler())
	defer srv.Close()

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"manifest":`},
		{name: "missing name", body: `{"manifest": {"version": "1.0.0"}}`},
		{name: "invalid name", body: `{"manifest": {"name": "../../etc/passwd"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/api/scan", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestReportLookup_Unknown(t *testing.T) {
	srv := httptest.NewServer(testServer(t).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/reports/no-such-id")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
