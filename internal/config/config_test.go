package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"API_PORT", "LOG_LEVEL", "VOICE_FIELD_TIMEOUT", "RATE_LIMIT_RPS"} {
		t.Setenv(key, "")
	}
	cfg := Load()

	if cfg.APIPort != "8080" {
		t.Fatalf("APIPort = %q, want 8080", cfg.APIPort)
	}
	if cfg.VoiceFieldTimeout != 12*time.Second {
		t.Fatalf("VoiceFieldTimeout = %v, want 12s", cfg.VoiceFieldTimeout)
	}
	if cfg.NATSSubject != "kyc.audit" {
		t.Fatalf("NATSSubject = %q", cfg.NATSSubject)
	}
}

func TestLoadOverridesAndBadValues(t *testing.T) {
	t.Setenv("API_PORT", "9999")
	t.Setenv("VOICE_FIELD_TIMEOUT", "3s")
	t.Setenv("RATE_LIMIT_BURST", "not-a-number")

	cfg := Load()
	if cfg.APIPort != "9999" {
		t.Fatalf("APIPort = %q, want 9999", cfg.APIPort)
	}
	if cfg.VoiceFieldTimeout != 3*time.Second {
		t.Fatalf("VoiceFieldTimeout = %v, want 3s", cfg.VoiceFieldTimeout)
	}
	if cfg.RateLimitBurst != 10 {
		t.Fatalf("RateLimitBurst = %d, want fallback 10", cfg.RateLimitBurst)
	}
}

func TestLoadPolicyDefaults(t *testing.T) {
	policy, err := LoadPolicy("")
	if err != nil {
		t.Fatalf("LoadPolicy: %v", err)
	}
	if policy.StrictIDMatch || policy.StrictPANFormat {
		t.Fatal("strict rules must default off")
	}
	if policy.NameSimilarityThreshold != 40 {
		t.Fatalf("NameSimilarityThreshold = %d, want 40", policy.NameSimilarityThreshold)
	}
}

func TestLoadPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	content := []byte("strict_pan_format: true\nname_similarity_threshold: 60\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	policy, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("LoadPolicy: %v", err)
	}
	if !policy.StrictPANFormat {
		t.Fatal("StrictPANFormat not applied")
	}
	if policy.NameSimilarityThreshold != 60 {
		t.Fatalf("NameSimilarityThreshold = %d, want 60", policy.NameSimilarityThreshold)
	}
	// Fields absent from the file keep defaults.
	if policy.FaceMatchFallbackConfidence != 70 {
		t.Fatalf("FaceMatchFallbackConfidence = %d, want 70", policy.FaceMatchFallbackConfidence)
	}
}

func TestLoadPolicyMissingFile(t *testing.T) {
	if _, err := LoadPolicy("/nonexistent/policy.yaml"); err == nil {
		t.Fatal("expected error for missing policy file")
	}
}
