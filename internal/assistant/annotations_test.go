package assistant

import "testing"

func TestStripAnnotations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "no markers", in: "Hello, world", want: "Hello, world"},
		{name: "empty", in: "", want: ""},
		{name: "trailing citation", in: "Hi there【1†source】", want: "Hi there"},
		{name: "several citations", in: "A【4:0†doc.pdf】 and B【4:1†doc.pdf】.", want: "A and B."},
		{name: "shortest match", in: "x【a】y【b】z", want: "xyz"},
		{name: "nested opens", in: "【a【b】c】", want: "c】"},
		{name: "unclosed", in: "keep 【this", want: "keep 【this"},
		{name: "across newline", in: "a【b\nc】d", want: "a【b\nc】d"},
		{name: "other brackets untouched", in: "[1] (2) {3}", want: "[1] (2) {3}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := StripAnnotations(tt.in)
			if got != tt.want {
				t.Fatalf("StripAnnotations(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if again := StripAnnotations(got); again != got {
				t.Fatalf("not idempotent: %q -> %q", got, again)
			}
		})
	}
}
