package skilltree

import (
	"fmt"
	"math"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/pbaille/sheet/internal/domain"
)

// DefaultFormula grants one bonus point per ten invested points.
const DefaultFormula = "floor(total / 10)"

// MaxPoints caps a single skill value.
const MaxPoints = 400

// Calculator derives tree and skill bonuses from invested points.
type Calculator struct {
	formula string
	program *vm.Program
}

// NewCalculator compiles formula. The expression sees total (sum of skill
// values), count (number of skills) and max (MaxPoints) and must return a
// number.
func NewCalculator(formula string) (*Calculator, error) {
	if formula == "" {
		formula = DefaultFormula
	}
	program, err := expr.Compile(formula, expr.Env(formulaEnv(0, 0)))
	if err != nil {
		return nil, fmt.Errorf("compile bonus formula %q: %w", formula, err)
	}
	c := &Calculator{formula: formula, program: program}
	if _, err := c.TreeBonus(0, 0); err != nil {
		return nil, err
	}
	return c, nil
}

// Formula returns the source expression.
func (c *Calculator) Formula() string {
	return c.formula
}

// TreeBonus evaluates the formula for the given totals.
func (c *Calculator) TreeBonus(total, count int) (int, error) {
	out, err := expr.Run(c.program, formulaEnv(total, count))
	if err != nil {
		return 0, fmt.Errorf("evaluate bonus formula %q: %w", c.formula, err)
	}
	switch v := out.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(math.Floor(v)), nil
	default:
		return 0, fmt.Errorf("bonus formula %q returned %T, want a number", c.formula, out)
	}
}

// Recompute clamps inputs and refreshes every derived field of tree.
func (c *Calculator) Recompute(tree domain.SkillTree) (domain.SkillTree, error) {
	out := tree
	out.Skills = make([]domain.Skill, len(tree.Skills))
	if out.ManualBonus < 0 {
		out.ManualBonus = 0
	}

	total := 0
	for i, skill := range tree.Skills {
		skill.Value = clamp(skill.Value, 0, MaxPoints)
		total += skill.Value
		out.Skills[i] = skill
	}

	bonus, err := c.TreeBonus(total, len(tree.Skills))
	if err != nil {
		return tree, err
	}
	out.TreeBonus = bonus
	for i := range out.Skills {
		out.Skills[i].Bonus = bonus + out.ManualBonus
		out.Skills[i].FinalValue = out.Skills[i].Value + out.Skills[i].Bonus
	}
	return out, nil
}

// TotalPoints sums the skill values of tree.
func TotalPoints(tree domain.SkillTree) int {
	total := 0
	for _, s := range tree.Skills {
		total += s.Value
	}
	return total
}

func formulaEnv(total, count int) map[string]any {
	return map[string]any{
		"total": total,
		"count": count,
		"max":   MaxPoints,
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
