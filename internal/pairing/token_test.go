package pairing

import "testing"

func TestSameToken(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{name: "equal", a: "abc123", b: "abc123", want: true},
		{name: "different", a: "abc123", b: "abc124", want: false},
		{name: "different length", a: "abc", b: "abc123", want: false},
		{name: "both empty", a: "", b: "", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameToken(tt.a, tt.b); got != tt.want {
				t.Errorf("SameToken(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestRedactToken(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{token: "", want: ""},
		{token: "abc", want: "***"},
		{token: "abc123", want: "abc1********"},
		{token: "0123456789abcdef0123456789abcdef", want: "0123********"},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			if got := RedactToken(tt.token); got != tt.want {
				t.Errorf("RedactToken(%q) = %q, want %q", tt.token, got, tt.want)
			}
		})
	}
}
