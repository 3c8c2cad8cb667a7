package database

import "testing"

func TestValidateRate(t *testing.T) {
	valid := []string{"5-S", "100-M", "1000-H", "20000-D", "10-s"}
	for _, rate := range valid {
		if err := ValidateRate(rate); err != nil {
			t.Errorf("ValidateRate(%q) = %v, want nil", rate, err)
		}
	}

	invalid := []string{"", "5", "5-", "-S", "abc-S", "0-S", "-5-M", "5-W", "5-S-extra"}
	for _, rate := range invalid {
		if err := ValidateRate(rate); err == nil {
			t.Errorf("ValidateRate(%q) = nil, want error", rate)
		}
	}
}
