package profile

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"movora/internal/table"
)

// DefaultThreshold is the header similarity above which two columns are
// reported as likely the same field.
const DefaultThreshold = 0.8

var (
	reToken = regexp.MustCompile(`[a-z0-9]+`)

	headerTokenAliases = map[string]string{
		"cc":       "displacement",
		"kmpl":     "mileage",
		"seats":    "seating",
		"capacity": "",
		"cost":     "price",
		"rs":       "",
		"inr":      "",
		"model":    "name",
		"bhp":      "power",
		"kmph":     "speed",
		"the":      "",
	}
)

// Suggestion pairs a column that the merge would drop with its closest
// counterpart in the other source.
type Suggestion struct {
	Column      string  `json:"column"`
	Source      string  `json:"source"`
	Candidate   string  `json:"candidate"`
	OtherSource string  `json:"other_source"`
	Score       float64 `json:"score"`
}

// Suggest compares the columns a and b do not share and returns, for each
// column of a, the best-scoring column of b at or above threshold.
func Suggest(a, b *table.Dataset, threshold float64) []Suggestion {
	inA := make(map[string]bool, len(a.Columns))
	for _, c := range a.Columns {
		inA[c] = true
	}
	var onlyB []string
	inB := make(map[string]bool, len(b.Columns))
	for _, c := range b.Columns {
		inB[c] = true
		if !inA[c] {
			onlyB = append(onlyB, c)
		}
	}

	var out []Suggestion
	for _, ca := range a.Columns {
		if inB[ca] {
			continue
		}
		best, bestScore := "", 0.0
		for _, cb := range onlyB {
			if s := HeaderSimilarity(ca, cb); s > bestScore {
				best, bestScore = cb, s
			}
		}
		if best != "" && bestScore >= threshold {
			out = append(out, Suggestion{Column: ca, Source: a.Name, Candidate: best, OtherSource: b.Name, Score: round6(bestScore)})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// HeaderSimilarity is the larger of the normalized edit similarity of the
// joined header tokens and the Jaccard index of the token sets.
func HeaderSimilarity(a, b string) float64 {
	at := HeaderTokens(a)
	bt := HeaderTokens(b)
	aNorm := strings.Join(at, "")
	bNorm := strings.Join(bt, "")
	if aNorm == "" && bNorm == "" {
		return 1
	}
	seq := editSimilarity(aNorm, bNorm)
	aSet := make(map[string]struct{}, len(at))
	bSet := make(map[string]struct{}, len(bt))
	for _, t := range at {
		aSet[t] = struct{}{}
	}
	for _, t := range bt {
		bSet[t] = struct{}{}
	}
	var jacc float64
	if len(aSet) > 0 && len(bSet) > 0 {
		inter := 0
		for t := range aSet {
			if _, ok := bSet[t]; ok {
				inter++
			}
		}
		jacc = float64(inter) / float64(len(aSet)+len(bSet)-inter)
	}
	return math.Max(seq, jacc)
}

// HeaderTokens lowercases name, splits it into alphanumeric runs and maps
// common listing synonyms onto one token.
func HeaderTokens(name string) []string {
	raw := reToken.FindAllString(strings.ToLower(name), -1)
	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		if v, ok := headerTokenAliases[t]; ok {
			t = v
		}
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// editSimilarity is 1 - distance/longer length, over runes.
func editSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	return 1 - float64(editDistance(ra, rb))/float64(max(len(ra), len(rb)))
}

// editDistance is the Levenshtein distance, keeping one row of the table.
func editDistance(a, b []rune) int {
	row := make([]int, len(b)+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(a); i++ {
		diag := row[0]
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			above := row[j]
			row[j] = min(above+1, row[j-1]+1, diag+cost)
			diag = above
		}
	}
	return row[len(b)]
}

func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }
