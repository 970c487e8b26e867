package queryir

import "fmt"

// maxDepth bounds expression nesting. Deep trees are almost always
// compiler bugs; legitimate deck expressions stay shallow.
const maxDepth = 64

// Validate checks the structural rules of an expression:
//   - operand lists of Union/Intersection are non-empty
//   - every Reference has a seed and well-formed direction/depth
//   - nesting stays under maxDepth
func Validate(e Expr) error {
	return validate(e, 0)
}

func validate(e Expr, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("expression nesting exceeds %d levels", maxDepth)
	}

	switch node := e.(type) {
	case nil:
		return fmt.Errorf("nil expression")
	case All, Explicit:
		return nil
	case Property:
		if node.Name == "" {
			return fmt.Errorf("property selector needs a name")
		}
		return nil
	case Reference:
		if node.Seed == nil {
			return fmt.Errorf("reference traversal needs a seed")
		}
		switch node.Direction {
		case Outgoing, Incoming:
		default:
			return fmt.Errorf("unknown direction %q", node.Direction)
		}
		switch node.Depth {
		case One, Transitive:
		default:
			return fmt.Errorf("unknown depth %q", node.Depth)
		}
		return validate(node.Seed, depth+1)
	case Union:
		if len(node.Operands) == 0 {
			return fmt.Errorf("union needs at least one operand")
		}
		for i, op := range node.Operands {
			if err := validate(op, depth+1); err != nil {
				return fmt.Errorf("union operand %d: %w", i, err)
			}
		}
		return nil
	case Intersection:
		if len(node.Operands) == 0 {
			return fmt.Errorf("intersection needs at least one operand")
		}
		for i, op := range node.Operands {
			if err := validate(op, depth+1); err != nil {
				return fmt.Errorf("intersection operand %d: %w", i, err)
			}
		}
		return nil
	case Difference:
		if node.A == nil || node.B == nil {
			return fmt.Errorf("difference needs both operands")
		}
		if err := validate(node.A, depth+1); err != nil {
			return err
		}
		return validate(node.B, depth+1)
	case Complement:
		if node.E == nil {
			return fmt.Errorf("complement needs an operand")
		}
		return validate(node.E, depth+1)
	default:
		return fmt.Errorf("unknown expression type %T", e)
	}
}
