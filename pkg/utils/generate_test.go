package utils

import (
	"strings"
	"testing"
)

func TestGenerateConfirmationCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := GenerateConfirmationCode()
		if err != nil {
			t.Fatalf("GenerateConfirmationCode() error = %v", err)
		}
		if len(code) != CodeLength {
			t.Fatalf("len(%q) = %d, want %d", code, len(code), CodeLength)
		}
		for _, r := range code {
			if !strings.ContainsRune(CodeAlphabet, r) {
				t.Fatalf("code %q contains %q outside the alphabet", code, r)
			}
		}
		if _, ok := NormalizeConfirmationCode(code); !ok {
			t.Fatalf("generated code %q does not normalize", code)
		}
		seen[code] = true
	}

	// 32^8 possibilities; 200 draws colliding would point at a broken source
	if len(seen) < 199 {
		t.Errorf("only %d distinct codes in 200 draws", len(seen))
	}
}

func TestNormalizeConfirmationCode(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"ABCD1234", "ABCD1234", true},
		{"abcd-1234", "ABCD1234", true},
		{"  abcd1234 ", "ABCD1234", true},
		{"AB-CD-12-34", "ABCD1234", true},
		{"ABCD123", "", false},
		{"ABCD12345", "", false},
		{"ABCD_234", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := NormalizeConfirmationCode(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("NormalizeConfirmationCode(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFormatConfirmationCode(t *testing.T) {
	if got := FormatConfirmationCode("ABCD2345"); got != "ABCD-2345" {
		t.Errorf("FormatConfirmationCode() = %q, want ABCD-2345", got)
	}
	if got := FormatConfirmationCode("SHORT"); got != "SHORT" {
		t.Errorf("FormatConfirmationCode() = %q, want input unchanged", got)
	}
}

func TestParseUUID(t *testing.T) {
	id := GenerateUUID()
	got, err := ParseUUID(id.String())
	if err != nil || got != id {
		t.Fatalf("ParseUUID(%q) = %v, %v", id, got, err)
	}

	for _, in := range []string{"", "not-a-uuid", "00000000-0000-0000-0000-000000000000"} {
		if _, err := ParseUUID(in); err == nil {
			t.Errorf("ParseUUID(%q) returned no error", in)
		}
	}
}
