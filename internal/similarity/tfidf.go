package similarity

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// Tokens are runs of at least two word characters. Underscore counts as a
// word character so segmented compounds like "công_nghệ" stay whole.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]{2,}`)

// Tokenize lowercases doc and splits it into terms.
func Tokenize(doc string) []string {
	return tokenPattern.FindAllString(strings.ToLower(doc), -1)
}

// Vectorizer is a TF-IDF vector space. The vocabulary and idf weights come
// only from the documents it was fit on.
type Vectorizer struct {
	vocabulary map[string]int
	idf        []float64
}

// Vector is an L2-normalized sparse vector with ascending term indices.
type Vector struct {
	Indices []int
	Values  []float64
}

// Fit builds the vocabulary and smoothed idf weights from docs.
// It returns ok=false when docs contain no terms at all.
func Fit(docs []string) (*Vectorizer, bool) {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, term := range Tokenize(doc) {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	if len(df) == 0 {
		return nil, false
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	n := float64(len(docs))
	v := &Vectorizer{
		vocabulary: make(map[string]int, len(terms)),
		idf:        make([]float64, len(terms)),
	}
	for idx, term := range terms {
		v.vocabulary[term] = idx
		v.idf[idx] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	return v, true
}

// Size returns the vocabulary size.
func (v *Vectorizer) Size() int {
	return len(v.vocabulary)
}

// Has reports whether term is part of the vocabulary.
func (v *Vectorizer) Has(term string) bool {
	_, ok := v.vocabulary[term]
	return ok
}

// Transform projects docs into the fitted space. Terms outside the
// vocabulary are ignored; a document without known terms is a zero vector.
func (v *Vectorizer) Transform(docs []string) []Vector {
	out := make([]Vector, len(docs))
	for i, doc := range docs {
		out[i] = v.transform(doc)
	}
	return out
}

func (v *Vectorizer) transform(doc string) Vector {
	counts := make(map[int]float64)
	for _, term := range Tokenize(doc) {
		if idx, ok := v.vocabulary[term]; ok {
			counts[idx]++
		}
	}

	vec := Vector{
		Indices: make([]int, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	for idx := range counts {
		vec.Indices = append(vec.Indices, idx)
	}
	sort.Ints(vec.Indices)

	norm := 0.0
	for _, idx := range vec.Indices {
		w := counts[idx] * v.idf[idx]
		vec.Values = append(vec.Values, w)
		norm += w * w
	}

	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec.Values {
			vec.Values[i] /= norm
		}
	}

	return vec
}

// Cosine returns the cosine similarity of two normalized vectors. Zero
// vectors are dissimilar to everything.
func Cosine(a, b Vector) float64 {
	dot := 0.0
	i, j := 0, 0
	for i < len(a.Indices) && j < len(b.Indices) {
		switch {
		case a.Indices[i] == b.Indices[j]:
			dot += a.Values[i] * b.Values[j]
			i++
			j++
		case a.Indices[i] < b.Indices[j]:
			i++
		default:
			j++
		}
	}
	return dot
}
