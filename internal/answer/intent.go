package answer

import "strings"

// Lexical cues that the answer likely aggregates evidence across sections or
// pages rather than living in a single passage.
var globalTerms = []string{
	"limitations",
	"challenges",
	"stages",
	"roles",
	"implications",
	"advantages",
	"disadvantages",
	"why",
	"how does",
	"overall",
	"across",
	"compared to",
	"difference between",
}

// NeedsGlobalContext reports whether the question asks for a cross-section
// synthesis, which widens assembly to multiple candidates.
func NeedsGlobalContext(question string) bool {
	q := strings.ToLower(question)
	for _, term := range globalTerms {
		if strings.Contains(q, term) {
			return true
		}
	}
	return false
}
