package digitalocean

import (
	"testing"
	"time"

	"github.com/SirCraft007/grade-api/config"
)

func TestReportKey(t *testing.T) {
	at := time.Date(2024, 1, 20, 8, 30, 5, 0, time.UTC)

	tests := []struct {
		prefix string
		want   string
	}{
		{"reports", "reports/user-7/20240120T083005Z.json"},
		{"/reports/nightly/", "reports/nightly/user-7/20240120T083005Z.json"},
		{"", "user-7/20240120T083005Z.json"},
	}
	for _, tt := range tests {
		if got := ReportKey(tt.prefix, 7, at); got != tt.want {
			t.Errorf("ReportKey(%q) = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestSpacesConfigFromEnv(t *testing.T) {
	cfg := SpacesConfigFromEnv(&config.EnviornmentVariable{
		DO_SPACES_ACCESS_KEY: "key",
		DO_SPACES_SECRET_KEY: "secret",
		DO_SPACES_BUCKET:     "grades",
		DO_SPACES_REGION:     "fra1",
	})
	if cfg.Endpoint != "fra1.digitaloceanspaces.com" {
		t.Errorf("Endpoint = %q, want regional default", cfg.Endpoint)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestSpacesConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  SpacesConfig
	}{
		{"missing bucket", SpacesConfig{Region: "fra1", AccessKey: "k", SecretKey: "s"}},
		{"missing region", SpacesConfig{Bucket: "b", AccessKey: "k", SecretKey: "s"}},
		{"missing keys", SpacesConfig{Bucket: "b", Region: "fra1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestFileURL(t *testing.T) {
	client := &SpacesClient{bucket: "grades", endpoint: "https://fra1.digitaloceanspaces.com"}
	want := "https://grades.fra1.digitaloceanspaces.com/reports/a.json"
	if got := client.FileURL("reports/a.json"); got != want {
		t.Errorf("FileURL() = %q, want %q", got, want)
	}
}
