package compiler

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Estimator converts text to an estimated token cost and back.
type Estimator interface {
	// Estimate returns the token cost of text.
	Estimate(text string) int
	// BudgetChars returns how many characters roughly fit in tokens.
	BudgetChars(tokens int) int
}

// RatioEstimator estimates tokens with a fixed characters-per-token
// ratio. Cheap, deterministic, and the default.
type RatioEstimator struct {
	CharsPerToken float64
}

// NewRatioEstimator returns a RatioEstimator, defaulting to 4 chars per
// token when ratio <= 0.
func NewRatioEstimator(ratio float64) RatioEstimator {
	if ratio <= 0 {
		ratio = 4.0
	}
	return RatioEstimator{CharsPerToken: ratio}
}

func (e RatioEstimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	n := int(float64(len(text)) / e.CharsPerToken)
	if n < 1 {
		n = 1
	}
	return n
}

func (e RatioEstimator) BudgetChars(tokens int) int {
	if tokens <= 0 {
		return 0
	}
	return int(float64(tokens) * e.CharsPerToken)
}

// TiktokenEstimator counts real BPE tokens via tiktoken's cl100k_base
// encoding. More accurate, slower; selected with token_counter:
// "tiktoken" in config.
type TiktokenEstimator struct {
	enc      *tiktoken.Tiktoken
	fallback RatioEstimator
}

// NewTiktokenEstimator initializes the cl100k_base encoder.
func NewTiktokenEstimator(fallbackRatio float64) (*TiktokenEstimator, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("init tiktoken: %w", err)
	}
	return &TiktokenEstimator{
		enc:      enc,
		fallback: NewRatioEstimator(fallbackRatio),
	}, nil
}

func (e *TiktokenEstimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	return len(e.enc.Encode(text, nil, nil))
}

// BudgetChars still uses the ratio: characters-per-token is only needed
// for sizing skeleton slices, where an approximation is fine.
func (e *TiktokenEstimator) BudgetChars(tokens int) int {
	return e.fallback.BudgetChars(tokens)
}
