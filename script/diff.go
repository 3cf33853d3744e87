package script

// keyedOp is one step turning a list of child keys into another. Index is a
// position in the list as it is when the step runs, so that the steps can be
// replayed in order.
type keyedOp struct {
	Insert bool
	Key    string
	Index  int
}

type point struct {
	x, y   int
	insert bool
}

// diffKeys returns a shortest sequence of removals and insertions turning a
// into b (Myers' algorithm). Keys present in both lists in the same relative
// order are kept.
func diffKeys(a, b []string) []keyedOp {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}

	n, m := len(a), len(b)
	max := n + m
	// v holds the furthest x reached on each diagonal, -1 once the diagonal
	// leaves the grid.
	v := make([]int, 2*max+2)
	trace := make([][]point, max+1)

	for d := 0; d <= max; d++ {
		trace[d] = make([]point, 2*max+1)
		for k := -d; k <= d; k += 2 {
			var x int
			var insert bool
			down := k != d && v[k+1+max] >= 0
			right := k != -d && v[k-1+max] >= 0
			switch {
			case d == 0:
				insert = true
			case down && (!right || v[k-1+max] < v[k+1+max]):
				x = v[k+1+max]
				insert = true
			case right:
				x = v[k-1+max] + 1
			default:
				v[k+max] = -1
				continue
			}
			y := x - k
			if x > n || y > m {
				v[k+max] = -1
				continue
			}
			trace[d][k+max] = point{x, y, insert}

			for x < n && y < m && a[x] == b[y] {
				x, y = x+1, y+1
			}
			v[k+max] = x
			if x >= n && y >= m {
				return editScript(trace, d, k+max, a, b)
			}
		}
	}
	return nil
}

// editScript backtracks from the end point of the last snake. While walking
// forward, the list holds b[:y] followed by a[x:], which gives the position
// of every step.
func editScript(trace [][]point, d, k int, a, b []string) []keyedOp {
	var ops []keyedOp
	for ; d >= 0; d-- {
		pt := trace[d][k]
		if pt.insert {
			if pt.y > 0 {
				ops = append(ops, keyedOp{Insert: true, Key: b[pt.y-1], Index: pt.y - 1})
			}
			k++
		} else {
			if pt.x > 0 {
				ops = append(ops, keyedOp{Key: a[pt.x-1], Index: pt.y})
			}
			k--
		}
	}
	for i, j := 0, len(ops)-1; i < j; i, j = i+1, j-1 {
		ops[i], ops[j] = ops[j], ops[i]
	}
	return ops
}
