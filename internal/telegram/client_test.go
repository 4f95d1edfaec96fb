package telegram

import (
	"strings"
	"testing"
	"time"

	"github.com/rewired-gh/dcompulse/internal/models"
)

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello World"},
		{"nsv_null_pct", "nsv\\_null\\_pct"},
		{"Price: $100.50", "Price: $100\\.50"},
		{"[link](url)", "\\[link\\]\\(url\\)"},
		{"+12.5%", "\\+12\\.5%"},
		{"2024-03-10", "2024\\-03\\-10"},
		{"", ""},
		{"_*[]()~`>#+-=|{}.!", "\\_\\*\\[\\]\\(\\)\\~\\`\\>\\#\\+\\-\\=\\|\\{\\}\\.\\!"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := escapeMarkdownV2(tt.input)
			if result != tt.expected {
				t.Errorf("escapeMarkdownV2(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNewClient_InvalidChatID(t *testing.T) {
	// chat ID is parsed before any network call
	_, err := NewClient("", "not-a-number", 3, time.Second)
	if err == nil {
		t.Error("Expected error for invalid chat ID, got nil")
	}
}

func sampleDashboard() models.Dashboard {
	latest := 130.0
	growth := -5.3
	return models.Dashboard{
		Brand:        "all",
		RunDate:      "2024-03-10",
		WindowDays:   91,
		SelectedDate: "2024-03-10",
		LatestValue:  &latest,
		Series:       make([]models.DailyPoint, 90),
		Growth:       models.GrowthMetric{RatioPercent: &growth},
		Share: []models.ShareEntry{
			{Label: "Acme", PercentOfTotal: 60},
			{Label: "Other", PercentOfTotal: 40},
		},
		Penetration: []models.PenetrationPoint{{Date: "2024-03-10", Percent: 25}},
		Alerts: []models.Alert{
			{Metric: "nsv_null_pct", Message: "nsv has 12% nulls", Impact: models.ImpactMedium, ConfidenceLabel: "88%"},
		},
	}
}

func TestFormatDashboard(t *testing.T) {
	d := sampleDashboard()
	msg := formatDashboard(d, d.Alerts)

	for _, want := range []string{
		"All Brands",
		"2024\\-03\\-10 \\(90/91 days\\)",
		"$130\\.00M",
		"📉 WoW: *\\-5\\.3%*",
		"Digital: 25\\.0%",
		"Acme: 60\\.0%",
		"nsv has 12% nulls \\[Medium, 88%\\]",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatDashboard_NeutralValues(t *testing.T) {
	msg := formatDashboard(models.Dashboard{Brand: "acme", RunDate: "2024-03-10", WindowDays: 91}, nil)

	if !strings.Contains(msg, "Latest NSV: n/a") || !strings.Contains(msg, "WoW: n/a") {
		t.Errorf("expected neutral values:\n%s", msg)
	}
	if strings.Contains(msg, "Data quality") || strings.Contains(msg, "Share") {
		t.Errorf("empty sections should be omitted:\n%s", msg)
	}
}

func TestHandleCommandText(t *testing.T) {
	var selected string
	cmds := Commands{
		Summary:     func() (models.Dashboard, bool) { return sampleDashboard(), true },
		SelectBrand: func(brand string) { selected = brand },
	}

	if got := handleCommandText("ping", "", cmds); got != "Pong" {
		t.Errorf("ping reply = %q", got)
	}
	if got := handleCommandText("summary", "", cmds); !strings.Contains(got, "NSV Dashboard") {
		t.Errorf("summary reply = %q", got)
	}
	if got := handleCommandText("brand", "  Acme ", cmds); !strings.Contains(got, "Acme") || selected != "Acme" {
		t.Errorf("brand reply = %q, selected = %q", got, selected)
	}
	if got := handleCommandText("brand", "", cmds); !strings.Contains(got, "Usage") {
		t.Errorf("empty brand reply = %q", got)
	}
	if got := handleCommandText("unknown", "", cmds); got != "" {
		t.Errorf("unknown command should be ignored, got %q", got)
	}

	none := Commands{Summary: func() (models.Dashboard, bool) { return models.Dashboard{}, false }}
	if got := handleCommandText("summary", "", none); !strings.Contains(got, "No dashboard") {
		t.Errorf("summary without data = %q", got)
	}
}
