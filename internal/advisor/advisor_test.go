package advisor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"agri-sentinel/internal/agri"
	"agri-sentinel/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// funcAdvisor adapts a function to agri.Advisor.
type funcAdvisor func(ctx context.Context, prompt string) (string, error)

func (f funcAdvisor) Advise(ctx context.Context, prompt string) (string, error) { return f(ctx, prompt) }
func (f funcAdvisor) Name() string                                               { return "func" }

func TestWithFallback(t *testing.T) {
	boom := errors.New("quota exceeded")

	tests := []struct {
		name    string
		advisor agri.Advisor
		timeout time.Duration
		want    string
		wantErr error
	}{
		{
			name:    "remote answer",
			advisor: NewStatic("Chaulage à la dolomie avant les pluies."),
			timeout: time.Second,
			want:    "Chaulage à la dolomie avant les pluies.",
		},
		{
			name:    "offline",
			advisor: NewStatic(""),
			timeout: time.Second,
			want:    "local",
			wantErr: ErrNoAdvice,
		},
		{
			name: "remote error",
			advisor: funcAdvisor(func(ctx context.Context, prompt string) (string, error) {
				return "", boom
			}),
			timeout: time.Second,
			want:    "local",
			wantErr: boom,
		},
		{
			name: "blank answer",
			advisor: funcAdvisor(func(ctx context.Context, prompt string) (string, error) {
				return "  \n", nil
			}),
			timeout: time.Second,
			want:    "local",
			wantErr: ErrNoAdvice,
		},
		{
			name: "timeout",
			advisor: funcAdvisor(func(ctx context.Context, prompt string) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			}),
			timeout: 20 * time.Millisecond,
			want:    "local",
			wantErr: context.DeadlineExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WithFallback(context.Background(), tt.advisor, tt.timeout, "prompt", "local")
			if got != tt.want {
				t.Errorf("WithFallback() = %q, want %q", got, tt.want)
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("WithFallback() error = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("WithFallback() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestWithFallback_ParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	slow := funcAdvisor(func(ctx context.Context, prompt string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	got, err := WithFallback(ctx, slow, time.Minute, "prompt", "local")
	if got != "local" {
		t.Errorf("WithFallback() = %q, want fallback", got)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("WithFallback() error = %v, want context.Canceled", err)
	}
}

func ptr[T any](v T) *T { return &v }

func TestFleetFallback(t *testing.T) {
	t.Run("empty fleet", func(t *testing.T) {
		if got := FleetFallback(nil); got != "Aucun véhicule enrôlé." {
			t.Errorf("FleetFallback(nil) = %q", got)
		}
	})

	t.Run("no alerts", func(t *testing.T) {
		fleet := []agri.FleetVehicle{{ID: "R-1", FuelLevel: 90, EngineHealth: 95}}
		got := FleetFallback(fleet)
		if !strings.Contains(got, "aucune alerte") {
			t.Errorf("FleetFallback() = %q, want no-alert summary", got)
		}
	})

	t.Run("alerts", func(t *testing.T) {
		fleet := []agri.FleetVehicle{
			{ID: "R-102", DriverName: "Jean", FuelLevel: 12, EngineHealth: 90},
			{ID: "R-103", DriverName: "Paul", FuelLevel: 80, EngineHealth: 40, TemperatureControl: true, CargoTemp: ptr(9.5)},
		}
		got := FleetFallback(fleet)
		for _, want := range []string{"R-102 (Jean) : ravitaillement", "R-103 (Paul) : contrôle moteur", "R-103 (Paul) : chaîne du froid rompue, soute à 9.5°C"} {
			if !strings.Contains(got, want) {
				t.Errorf("FleetFallback() missing %q in:\n%s", want, got)
			}
		}
	})
}

func TestFleetPrompt(t *testing.T) {
	prompt, err := FleetPrompt([]agri.FleetVehicle{{ID: "R-7", DriverName: "Ada"}})
	if err != nil {
		t.Fatalf("FleetPrompt() error = %v", err)
	}
	if !strings.Contains(prompt, `"id":"R-7"`) {
		t.Errorf("FleetPrompt() does not embed the fleet: %s", prompt)
	}
}

func TestNewAdvisorFromConfig(t *testing.T) {
	env := map[string]string{"GEMINI_API_KEY": "k-123"}
	getenv := func(k string) string { return env[k] }

	tests := []struct {
		name     string
		cfg      config.AdvisorConfig
		wantName string
		wantErr  bool
	}{
		{name: "default", cfg: config.AdvisorConfig{}, wantName: "static"},
		{name: "static", cfg: config.AdvisorConfig{Type: "static"}, wantName: "static"},
		{name: "genai", cfg: config.AdvisorConfig{Type: "genai", APIKeyEnv: "GEMINI_API_KEY", Model: "gemini-2.5-flash"}, wantName: "genai:gemini-2.5-flash"},
		{name: "genai default model", cfg: config.AdvisorConfig{Type: "genai", APIKeyEnv: "GEMINI_API_KEY"}, wantName: "genai:" + DefaultModel},
		{name: "genai key unset", cfg: config.AdvisorConfig{Type: "genai", APIKeyEnv: "MISSING"}, wantErr: true},
		{name: "genai no env name", cfg: config.AdvisorConfig{Type: "genai"}, wantErr: true},
		{name: "unknown", cfg: config.AdvisorConfig{Type: "oracle"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewAdvisorFromConfig(context.Background(), tt.cfg, getenv)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewAdvisorFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", got.Name(), tt.wantName)
			}
		})
	}
}

func TestTimeout(t *testing.T) {
	if got := Timeout(config.AdvisorConfig{}); got != DefaultTimeout {
		t.Errorf("Timeout(zero) = %v, want %v", got, DefaultTimeout)
	}
	if got := Timeout(config.AdvisorConfig{TimeoutSeconds: 3}); got != 3*time.Second {
		t.Errorf("Timeout(3) = %v, want 3s", got)
	}
}
