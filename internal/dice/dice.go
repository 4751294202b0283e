// Package dice rolls dice expressions ("3d6+2") and d20 skill checks.
package dice

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

var exprRe = regexp.MustCompile(`^(\d*)d(\d+)([+-]\d+)?$`)

// Roller produces rolls from a seeded source, so a fixed seed replays the
// same sequence. One Roller is shared by all tool calls; the mutex keeps
// the underlying source safe for concurrent use.
type Roller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRoller creates a roller from a seed.
func NewRoller(seed int64) *Roller {
	return &Roller{rng: rand.New(rand.NewSource(seed))}
}

// RollResult is one resolved dice expression.
type RollResult struct {
	Expression string `json:"expression"`
	Rolls      []int  `json:"rolls"`
	Modifier   int    `json:"modifier,omitempty"`
	Total      int    `json:"total"`
}

// Roll parses and rolls an expression like "d20", "3d6" or "2d8+4".
func (r *Roller) Roll(expression string) (*RollResult, error) {
	expr := strings.ToLower(strings.ReplaceAll(expression, " ", ""))
	m := exprRe.FindStringSubmatch(expr)
	if m == nil {
		return nil, fmt.Errorf("cannot parse dice expression %q", expression)
	}

	count := 1
	if m[1] != "" {
		count, _ = strconv.Atoi(m[1])
	}
	sides, _ := strconv.Atoi(m[2])
	modifier := 0
	if m[3] != "" {
		modifier, _ = strconv.Atoi(m[3])
	}

	if count < 1 || count > 100 {
		return nil, fmt.Errorf("dice count %d out of range (1-100)", count)
	}
	if sides < 2 || sides > 1000 {
		return nil, fmt.Errorf("die size d%d out of range (d2-d1000)", sides)
	}

	res := &RollResult{Expression: expr, Modifier: modifier}
	r.mu.Lock()
	for i := 0; i < count; i++ {
		roll := r.rng.Intn(sides) + 1
		res.Rolls = append(res.Rolls, roll)
		res.Total += roll
	}
	r.mu.Unlock()
	res.Total += modifier
	return res, nil
}

// CheckResult is one resolved d20 check.
type CheckResult struct {
	Roll     int    `json:"roll"`
	Dropped  int    `json:"dropped,omitempty"`
	Modifier int    `json:"modifier"`
	Total    int    `json:"total"`
	DC       int    `json:"dc"`
	Success  bool   `json:"success"`
	Mode     string `json:"mode,omitempty"` // "advantage" or "disadvantage"
}

// Check rolls a d20 plus modifier against a DC. With advantage or
// disadvantage two dice are rolled and the higher or lower kept.
func (r *Roller) Check(modifier, dc int, mode string) (*CheckResult, error) {
	switch mode {
	case "", "normal", "advantage", "disadvantage":
	default:
		return nil, fmt.Errorf("unknown check mode %q", mode)
	}

	r.mu.Lock()
	first := r.rng.Intn(20) + 1
	kept, dropped := first, 0
	switch mode {
	case "advantage":
		second := r.rng.Intn(20) + 1
		kept, dropped = max(first, second), min(first, second)
	case "disadvantage":
		second := r.rng.Intn(20) + 1
		kept, dropped = min(first, second), max(first, second)
	}
	r.mu.Unlock()

	total := kept + modifier
	return &CheckResult{
		Roll:     kept,
		Dropped:  dropped,
		Modifier: modifier,
		Total:    total,
		DC:       dc,
		Success:  total >= dc,
		Mode:     mode,
	}, nil
}
