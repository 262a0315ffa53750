package rules

import "golang.org/x/text/cases"

// fold applies Unicode-aware case folding. This handles complex Unicode
// characters correctly, unlike strings.ToLower. A fresh caser is built
// per call because cases.Caser is stateful and not safe to share across
// goroutines.
func fold(s string) string { return cases.Fold().String(s) }
