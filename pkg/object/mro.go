package object

import "fmt"

// Register computes c's method-resolution order using the C3-style
// algorithm from spec §4.3 and freezes both the MRO and the class's
// registration. Call once, after Parents is final.
//
// mro(C) = [C] ++ merge(mro(P1), ..., mro(Pn), [P1, ..., Pn])
//
// merge repeatedly picks a "good head": the first non-empty list whose
// head does not appear in the tail of any other list. It is appended to
// the result and stripped from the front of every list where it led.
//
// If no good head exists and lists remain, Register uses a lenient
// fallback rather than an error: we
// concatenate the remaining head of the first non-empty list and continue,
// rather than raising. A strict C3 implementation would reject this input
// as an inconsistent hierarchy.
func (c *Class) Register() error {
	if len(c.Parents) == 0 {
		c.MRO = []*Class{c, ObjectClass}
		c.registered = true
		return nil
	}

	sequences := make([][]*Class, 0, len(c.Parents)+1)
	for _, p := range c.Parents {
		if !p.registered {
			return fmt.Errorf("object: parent class %q has no computed MRO", p.Name)
		}
		sequences = append(sequences, append([]*Class(nil), p.MRO...))
	}
	sequences = append(sequences, append([]*Class(nil), c.Parents...))

	merged, err := mergeMRO(sequences)
	if err != nil {
		return err
	}

	c.MRO = append([]*Class{c}, merged...)
	c.registered = true
	return nil
}

func mergeMRO(sequences [][]*Class) ([]*Class, error) {
	var result []*Class

	for {
		sequences = dropEmpty(sequences)
		if len(sequences) == 0 {
			return result, nil
		}

		head := pickGoodHead(sequences)
		if head == nil {
			// Lenient fallback: no good head exists. Take the head of the
			// first remaining sequence anyway and strip it everywhere it
			// leads, rather than failing the linearization.
			head = sequences[0][0]
		}

		result = append(result, head)
		for i, seq := range sequences {
			if len(seq) > 0 && seq[0] == head {
				sequences[i] = seq[1:]
			}
		}
	}
}

func dropEmpty(sequences [][]*Class) [][]*Class {
	out := sequences[:0]
	for _, s := range sequences {
		if len(s) > 0 {
			out = append(out, s)
		}
	}
	return out
}

func pickGoodHead(sequences [][]*Class) *Class {
	for _, seq := range sequences {
		candidate := seq[0]
		if !appearsInAnyTail(candidate, sequences) {
			return candidate
		}
	}
	return nil
}

func appearsInAnyTail(candidate *Class, sequences [][]*Class) bool {
	for _, seq := range sequences {
		for _, c := range seq[1:] {
			if c == candidate {
				return true
			}
		}
	}
	return false
}
