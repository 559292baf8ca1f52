package chatconfig

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestModelsForPartitionsCatalog(t *testing.T) {
	openai := ModelsFor(ProviderOpenAI)
	anthropic := ModelsFor(ProviderAnthropic)
	if len(openai) != 3 || len(anthropic) != 3 {
		t.Fatalf("expected 3+3 models, got %d+%d", len(openai), len(anthropic))
	}
	for _, m := range anthropic {
		if m.Provider != ProviderAnthropic {
			t.Fatalf("model %q listed under wrong provider", m.Value)
		}
	}
	if len(Catalog()) != len(openai)+len(anthropic) {
		t.Fatalf("catalog size mismatch")
	}
}

func TestDefaultIsConsistentAndValid(t *testing.T) {
	d := Default()
	if !d.ModelConsistent() {
		t.Fatalf("default model %q does not belong to %q", d.Model, d.Provider)
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if d.HasCredential() {
		t.Fatalf("default config must not carry a credential")
	}
}

func TestValidateReportsRanges(t *testing.T) {
	cfg := Default().WithTemperature(2.5).WithMaxTokens(50)
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected range errors")
	}
	if err := Default().WithProvider("gemini").Validate(); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestProviderJSON(t *testing.T) {
	var cfg Config
	if err := json.Unmarshal([]byte(`{"provider":"anthropic"}`), &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cfg.Provider != ProviderAnthropic {
		t.Fatalf("unexpected provider %q", cfg.Provider)
	}
	if err := json.Unmarshal([]byte(`{"provider":"cohere"}`), &cfg); err == nil {
		t.Fatalf("expected unknown provider to fail decoding")
	}

	b, err := json.Marshal(Default())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"apiKey":"","provider":"openai","model":"gpt-4-turbo","temperature":0.7,"maxTokens":1000}`
	if string(b) != want {
		t.Fatalf("unexpected wire form %s", b)
	}
}

func TestHasCredentialOnlyRejectsEmpty(t *testing.T) {
	if Default().HasCredential() {
		t.Fatalf("empty credential must not count")
	}
	if !Default().WithAPIKey("   ").HasCredential() {
		t.Fatalf("any non-empty credential counts")
	}
}

func TestSnapToStep(t *testing.T) {
	for in, want := range map[float64]float64{0.16: 0.2, 0.14: 0.1, 1.5: 1.5, 0: 0, 2: 2} {
		if got := SnapTemperature(in); got != want {
			t.Fatalf("SnapTemperature(%v) = %v, want %v", in, got, want)
		}
	}
	for in, want := range map[int]int{100: 100, 149: 100, 150: 200, 3999: 4000} {
		if got := SnapMaxTokens(in); got != want {
			t.Fatalf("SnapMaxTokens(%d) = %d, want %d", in, got, want)
		}
	}
}
