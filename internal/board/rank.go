package board

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	rankBase = 1000
	rankStep = 1000

	// MaxRankScale is the number of fractional digits an allocated rank may
	// carry before its column is renumbered.
	MaxRankScale = 12

	// MaxRebalanceCards is the largest column that is renumbered. A renumber
	// rewrites every card row of the column in one storage transaction.
	MaxRebalanceCards = 64
)

var half = decimal.New(5, -1)

// Rank is a column-local sort key. Arithmetic on ranks is exact.
type Rank struct {
	d decimal.Decimal
}

var (
	// RankBase seeds every new column's NextRank.
	RankBase = NewRank(rankBase)
	// RankStep is the gap between appended cards.
	RankStep = NewRank(rankStep)
)

// NewRank returns the rank for an integer value.
func NewRank(v int64) Rank {
	return Rank{d: decimal.NewFromInt(v)}
}

// ParseRank decodes the text form produced by Rank.String.
func ParseRank(s string) (Rank, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Rank{}, fmt.Errorf("parse rank %q: %w", s, err)
	}
	return Rank{d: d}, nil
}

// MustParseRank is ParseRank for literals.
func MustParseRank(s string) Rank {
	r, err := ParseRank(s)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Rank) String() string { return r.d.String() }

// Cmp returns -1, 0 or +1 comparing r with o.
func (r Rank) Cmp(o Rank) int { return r.d.Cmp(o.d) }

func (r Rank) Less(o Rank) bool  { return r.d.LessThan(o.d) }
func (r Rank) Equal(o Rank) bool { return r.d.Equal(o.d) }

// IsPositive reports whether r > 0.
func (r Rank) IsPositive() bool { return r.d.IsPositive() }

// Add returns r + o.
func (r Rank) Add(o Rank) Rank { return Rank{d: r.d.Add(o.d)} }

// Half returns r / 2.
func (r Rank) Half() Rank { return Rank{d: r.d.Mul(half)} }

// Midpoint returns (a + b) / 2.
func Midpoint(a, b Rank) Rank { return Rank{d: a.d.Add(b.d).Mul(half)} }

// Scale is the number of significant fractional digits of r.
func (r Rank) Scale() int {
	s := r.d.String()
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}

func (r Rank) MarshalText() ([]byte, error) {
	return []byte(r.d.String()), nil
}

func (r *Rank) UnmarshalText(text []byte) error {
	parsed, err := ParseRank(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func maxRank(a, b Rank) Rank {
	if a.Less(b) {
		return b
	}
	return a
}
