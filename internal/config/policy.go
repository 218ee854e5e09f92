package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy is the operator-tunable verification policy. The defaults mirror
// the permissive demo behavior; stricter rules are opt-in.
type Policy struct {
	// StrictIDMatch requires the identifier extracted during capture to
	// agree with previously entered onboarding data. When false, any
	// classified document counts as a match.
	StrictIDMatch bool `yaml:"strict_id_match"`

	// StrictPANFormat requires the extracted PAN value to match the
	// ABCDE1234F shape; otherwise any non-unknown classification passes.
	StrictPANFormat bool `yaml:"strict_pan_format"`

	// NameSimilarityThreshold is the minimum word-set overlap percentage
	// for the cross-document name check.
	NameSimilarityThreshold int `yaml:"name_similarity_threshold"`

	// FaceMatchFallbackConfidence is reported when the comparison call
	// fails and the pipeline falls back to a permissive pass.
	FaceMatchFallbackConfidence int `yaml:"face_match_fallback_confidence"`
}

func DefaultPolicy() Policy {
	return Policy{
		StrictIDMatch:               false,
		StrictPANFormat:             false,
		NameSimilarityThreshold:     40,
		FaceMatchFallbackConfidence: 70,
	}
}

// LoadPolicy reads the YAML policy file at path, falling back to the
// defaults when path is empty. Unset numeric fields keep their defaults.
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return policy, fmt.Errorf("read policy file: %w", err)
	}
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return policy, fmt.Errorf("parse policy file: %w", err)
	}

	if policy.NameSimilarityThreshold <= 0 || policy.NameSimilarityThreshold > 100 {
		policy.NameSimilarityThreshold = DefaultPolicy().NameSimilarityThreshold
	}
	if policy.FaceMatchFallbackConfidence <= 0 || policy.FaceMatchFallbackConfidence > 100 {
		policy.FaceMatchFallbackConfidence = DefaultPolicy().FaceMatchFallbackConfidence
	}
	return policy, nil
}
