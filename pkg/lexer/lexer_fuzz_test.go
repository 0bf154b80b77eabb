package lexer

import (
	"testing"
)

// FuzzTokenize feeds random inputs to the lexer to catch panics.
func FuzzTokenize(f *testing.F) {
	seeds := []string{
		`(defun square (x) (* x x))`,
		`(let ((x 1) (y x)) (+ x y))`,
		`42 3.14 -1 0 .5 1e10 -`,
		`"hello" "with\nescape" "quote\""`,
		`; just a comment`,
		``,
		"\t\n\r",
		`"unterminated`,
		`"""`,
		`@#$^&`,
		`((((`,
		`))`,
	}

	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("Tokenize panicked on input %q: %v", input, r)
				}
			}()
			Tokenize(input, "fuzz.pl")
		}()
	})
}
