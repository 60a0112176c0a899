// Package dice implements the seeded dice expression language and the
// shared d20 check resolution used by ask_roll, talk, and attack.
//
// Expressions have the form [-]?NdM([+-]K)?, with multiple terms joined by
// + and -: "2d6+1", "-1d4", "1d8+2-1d4". Evaluation is pure given a Roller,
// so a turn replays exactly from the same seed.
package dice

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
)

// Roller is a deterministic PRNG for one transaction or roll.
type Roller struct {
	rng  *rand.Rand
	seed int64
}

// NewRoller seeds a roller.
func NewRoller(seed int64) *Roller {
	return &Roller{rng: rand.New(rand.NewSource(seed)), seed: seed}
}

// Seed returns the seed the roller was created with.
func (r *Roller) Seed() int64 {
	return r.seed
}

// Die rolls a single die with the given number of sides, in [1, sides].
func (r *Roller) Die(sides int) int {
	if sides < 1 {
		return 1
	}
	return r.rng.Intn(sides) + 1
}

// term is one component of a dice expression: either count dice of size
// sides, or a flat constant. sign is +1 or -1.
type term struct {
	sign  int
	count int
	sides int // 0 means flat constant in count
	flat  int
}

// Expr is a parsed dice expression.
type Expr struct {
	raw   string
	terms []term
}

// String returns the original expression text.
func (e Expr) String() string {
	return e.raw
}

var diceTermRe = regexp.MustCompile(`^(\d*)d(\d+)$`)

// IsExpression reports whether a string looks like a dice expression.
func IsExpression(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// Parse parses a dice expression. A leading sign applies to the first term;
// later terms carry the sign of their joining operator.
func Parse(s string) (Expr, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Expr{}, fmt.Errorf("empty dice expression")
	}

	rest := raw
	sign := 1
	if strings.HasPrefix(rest, "-") {
		sign = -1
		rest = rest[1:]
	} else if strings.HasPrefix(rest, "+") {
		rest = rest[1:]
	}

	var terms []term
	for len(rest) > 0 {
		// Find the end of this term: next +/- not at position 0.
		end := len(rest)
		for i := 1; i < len(rest); i++ {
			if rest[i] == '+' || rest[i] == '-' {
				end = i
				break
			}
		}
		tok := strings.TrimSpace(rest[:end])
		if tok == "" {
			return Expr{}, fmt.Errorf("malformed dice expression %q", raw)
		}

		if m := diceTermRe.FindStringSubmatch(tok); m != nil {
			count := 1
			if m[1] != "" {
				n, err := strconv.Atoi(m[1])
				if err != nil || n < 1 {
					return Expr{}, fmt.Errorf("bad die count in %q", raw)
				}
				count = n
			}
			sides, err := strconv.Atoi(m[2])
			if err != nil || sides < 1 {
				return Expr{}, fmt.Errorf("bad die size in %q", raw)
			}
			terms = append(terms, term{sign: sign, count: count, sides: sides})
		} else {
			flat, err := strconv.Atoi(tok)
			if err != nil {
				return Expr{}, fmt.Errorf("malformed dice term %q in %q", tok, raw)
			}
			terms = append(terms, term{sign: sign, flat: flat})
		}

		if end == len(rest) {
			break
		}
		if rest[end] == '-' {
			sign = -1
		} else {
			sign = 1
		}
		rest = rest[end+1:]
	}

	if len(terms) == 0 {
		return Expr{}, fmt.Errorf("empty dice expression %q", raw)
	}
	return Expr{raw: raw, terms: terms}, nil
}

// Roll evaluates the expression. The returned rolled slice holds every
// individual die result, in roll order, for audit logging and replay.
func (e Expr) Roll(r *Roller) (total int, rolled []int) {
	for _, t := range e.terms {
		if t.sides > 0 {
			for i := 0; i < t.count; i++ {
				v := r.Die(t.sides)
				rolled = append(rolled, v)
				total += t.sign * v
			}
		} else {
			total += t.sign * t.flat
		}
	}
	return total, rolled
}

// RollString parses and rolls in one step.
func RollString(r *Roller, s string) (total int, rolled []int, err error) {
	e, err := Parse(s)
	if err != nil {
		return 0, nil, err
	}
	total, rolled = e.Roll(r)
	return total, rolled, nil
}

// ResolveDelta evaluates an effect delta that is either an integer or a
// dice expression string.
func ResolveDelta(r *Roller, delta interface{}) (int, []int, error) {
	switch v := delta.(type) {
	case nil:
		return 0, nil, fmt.Errorf("missing delta")
	case int:
		return v, nil, nil
	case int64:
		return int(v), nil, nil
	case float64:
		return int(v), nil, nil
	case string:
		return func() (int, []int, error) {
			total, rolled, err := RollString(r, v)
			if err != nil {
				return 0, nil, fmt.Errorf("bad dice delta %q: %w", v, err)
			}
			return total, rolled, nil
		}()
	default:
		return 0, nil, fmt.Errorf("unsupported delta type %T", delta)
	}
}
