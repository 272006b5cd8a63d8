package embedding

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strings"
	"unicode"
)

const (
	DefaultHashingDimensions = 384
	maxTokens                = 256
	// tokenSeedSalt is the second PCG seed word; changing it changes every vector.
	tokenSeedSalt = 0x9e3779b97f4a7c15
)

var errNoTokens = errors.New("text has no tokens")

// HashingModel is an in-process embedding model. Every token maps to a fixed
// pseudo-random direction, so texts sharing vocabulary point the same way.
type HashingModel struct {
	dims int
}

func NewHashingModel(dims int) *HashingModel {
	if dims <= 0 {
		dims = DefaultHashingDimensions
	}
	return &HashingModel{dims: dims}
}

func (m *HashingModel) Name() string {
	return fmt.Sprintf("hashing-%d", m.dims)
}

func (m *HashingModel) Dimensions() int {
	return m.dims
}

func (m *HashingModel) Load(ctx context.Context) error {
	return ctx.Err()
}

func (m *HashingModel) Encode(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil, errNoTokens
	}
	if len(tokens) > maxTokens {
		tokens = tokens[:maxTokens]
	}

	sum := make([]float64, m.dims)
	for _, token := range tokens {
		rng := rand.New(rand.NewPCG(uint64(hashToken(token)), tokenSeedSalt))
		for i := range sum {
			sum[i] += rng.NormFloat64()
		}
	}

	out := make([]float32, m.dims)
	n := float64(len(tokens))
	for i, v := range sum {
		out[i] = float32(v / n)
	}
	return out, nil
}

func (m *HashingModel) Close() error {
	return nil
}

func hashToken(token string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return h.Sum32()
}

func tokenize(s string) []string {
	if s == "" {
		return nil
	}
	out := make([]string, 0, 32)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}
