package encryption

import (
	"strings"
	"testing"
)

func TestGeneratePassword(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 8, 16, 64} {
		pw, err := GeneratePassword(n)
		if err != nil {
			t.Fatalf("GeneratePassword(%d): %v", n, err)
		}
		if len(pw) != n {
			t.Errorf("len(GeneratePassword(%d)) = %d", n, len(pw))
		}
		for _, c := range pw {
			if !strings.ContainsRune(PasswordCharset, c) {
				t.Errorf("GeneratePassword(%d) produced %q outside the charset", n, c)
			}
		}
	}
}

func TestGeneratePassword_Distinct(t *testing.T) {
	t.Parallel()

	a, _ := GeneratePassword(32)
	b, _ := GeneratePassword(32)
	if a == b {
		t.Error("two generated passwords are identical")
	}
}

func TestGeneratePassword_InvalidLength(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, -1} {
		if _, err := GeneratePassword(n); err == nil {
			t.Errorf("GeneratePassword(%d) error = nil", n)
		}
	}
}
