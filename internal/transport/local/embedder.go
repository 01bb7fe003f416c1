// Package local is an offline embedding model: hashed word and character n-gram features.
// It needs no network or model weights, which makes it the last-resort fallback model.
package local

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/kailas-cloud/canonic/internal/domain"
)

// DefaultDimensions is used when Config.Dimensions is not set.
const DefaultDimensions = 384

const (
	wordWeight    = 1.0
	trigramWeight = 0.5
)

// Config holds the local model settings.
type Config struct {
	Dimensions int
}

// Embedder maps text to an L2-normalised feature-hashing vector.
// Identical input always yields the identical vector.
type Embedder struct {
	dimensions int
}

// NewEmbedder creates the local embedding model.
func NewEmbedder(cfg Config) *Embedder {
	dim := cfg.Dimensions
	if dim <= 0 {
		dim = DefaultDimensions
	}
	return &Embedder{dimensions: dim}
}

// Dimensions returns the vector size.
func (e *Embedder) Dimensions() int { return e.dimensions }

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("local embed: %w", err)
	}
	return domain.EmbeddingResult{Embedding: e.vector(text)}, nil
}

// BatchEmbed implements domain.BatchEmbedder.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("local batch embed [%d]: %w", i, err)
		}
		out[i] = e.vector(t)
	}
	return domain.BatchEmbeddingResult{Embeddings: out}, nil
}

// HealthCheck always succeeds.
func (e *Embedder) HealthCheck(_ context.Context) error { return nil }

func (e *Embedder) vector(text string) []float32 {
	vec := make([]float32, e.dimensions)
	for _, w := range tokenize(normalize(text)) {
		e.add(vec, "w:"+w, wordWeight)
		padded := []rune(" " + w + " ")
		for i := 0; i+3 <= len(padded); i++ {
			e.add(vec, "t:"+string(padded[i:i+3]), trigramWeight)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}

// add hashes a feature into a bucket; the top bit picks the sign to cancel collision bias.
func (e *Embedder) add(vec []float32, feature string, weight float32) {
	h := xxhash.Sum64String(feature)
	bucket := int(h % uint64(e.dimensions))
	if h>>63 == 1 {
		weight = -weight
	}
	vec[bucket] += weight
}

// normalize folds compatibility forms, case and accents ("Crédito" -> "credito").
func normalize(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// tokenize splits text into words of letters and digits.
func tokenize(text string) []string {
	var words []string
	var word strings.Builder

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			word.WriteRune(r)
		} else if word.Len() > 0 {
			words = append(words, word.String())
			word.Reset()
		}
	}
	if word.Len() > 0 {
		words = append(words, word.String())
	}

	return words
}
