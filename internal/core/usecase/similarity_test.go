package usecase

import "testing"

func TestNameSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"RAHUL SHARMA", "SHARMA RAHUL", 100},
		{"rahul sharma", "RAHUL SHARMA", 100},
		{"", "ANYTHING", 0},
		{"ANYTHING", "", 0},
		{"", "", 0},
		{"RAHUL KUMAR SHARMA", "RAHUL SHARMA", 67},
		{"ASHA RAO", "VIKRAM SINGH", 0},
		{"ASHA RAO", "ASHA SINGH", 33},
	}

	for _, tt := range tests {
		if got := NameSimilarity(tt.a, tt.b); got != tt.want {
			t.Errorf("NameSimilarity(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
