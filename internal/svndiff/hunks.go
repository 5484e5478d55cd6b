package svndiff

// Hunk is a contiguous group of opcodes with up to `context` lines of
// surrounding equal context on each side, equivalent to one element of
// get_hunks' grouped-opcode-list output.
type Hunk struct {
	ops []opcode
}

// groupHunks splits a flat opcode list into context-bounded hunks:
// whenever an equal run is longer than 2*context, it is split so that
// `context` lines of padding stay attached to the hunk on each side and
// the excess equal lines in between become the gap separating two
// hunks — the same grouping get_hunks performs over difflib's opcodes.
func groupHunks(ops []opcode, context int) []Hunk {
	if len(ops) == 0 {
		return nil
	}

	trimmed := trimOuterContext(ops, context)
	if len(trimmed) == 0 {
		return nil
	}

	var hunks []Hunk
	var current []opcode
	for _, op := range trimmed {
		if op.kind == opEqual && op.i2-op.i1 > 2*context {
			if len(current) > 0 {
				current = append(current, opcode{opEqual, op.i1, op.i1 + context, op.j1, op.j1 + context})
				hunks = append(hunks, Hunk{ops: current})
			}
			current = []opcode{{opEqual, op.i2 - context, op.i2, op.j2 - context, op.j2}}
			continue
		}
		current = append(current, op)
	}
	if len(current) > 0 {
		hunks = append(hunks, Hunk{ops: current})
	}
	return hunks
}

// trimOuterContext shortens a leading or trailing pure-equal opcode down
// to at most `context` lines, since a diff never shows unlimited
// unchanged context at its very start or end.
func trimOuterContext(ops []opcode, context int) []opcode {
	out := append([]opcode{}, ops...)
	if len(out) == 0 {
		return out
	}
	if out[0].kind == opEqual {
		op := out[0]
		size := op.i2 - op.i1
		if size > context {
			out[0] = opcode{opEqual, op.i2 - context, op.i2, op.j2 - context, op.j2}
		}
	}
	if last := len(out) - 1; out[last].kind == opEqual {
		op := out[last]
		size := op.i2 - op.i1
		if size > context {
			out[last] = opcode{opEqual, op.i1, op.i1 + context, op.j1, op.j1 + context}
		}
	}
	return out
}
