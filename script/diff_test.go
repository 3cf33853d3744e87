package script

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/rand"
)

func applyKeyed(list []string, ops []keyedOp) []string {
	out := slices.Clone(list)
	for _, op := range ops {
		if op.Insert {
			out = slices.Insert(out, op.Index, op.Key)
		} else {
			out = slices.Delete(out, op.Index, op.Index+1)
		}
	}
	return out
}

func TestDiffKeys(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want []keyedOp
	}{
		{name: "empty"},
		{
			name: "append",
			b:    []string{"a", "b"},
			want: []keyedOp{{Insert: true, Key: "a", Index: 0}, {Insert: true, Key: "b", Index: 1}},
		},
		{
			name: "clear",
			a:    []string{"a", "b"},
			want: []keyedOp{{Key: "a", Index: 0}, {Key: "b", Index: 0}},
		},
		{
			name: "remove middle",
			a:    []string{"a", "b", "c"},
			b:    []string{"a", "c"},
			want: []keyedOp{{Key: "b", Index: 1}},
		},
		{
			name: "shift",
			a:    []string{"a", "b"},
			b:    []string{"b", "c"},
			want: []keyedOp{{Key: "a", Index: 0}, {Insert: true, Key: "c", Index: 1}},
		},
		{
			name: "same",
			a:    []string{"a", "b"},
			b:    []string{"a", "b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops := diffKeys(tt.a, tt.b)
			assert.Equal(t, tt.want, ops)
			assert.Equal(t, tt.b, applyKeyed(tt.a, ops))
		})
	}
}

func TestDiffKeysReplaysInOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	pick := func() []string {
		var keys []string
		for _, i := range rng.Perm(8)[:rng.Intn(9)] {
			keys = append(keys, fmt.Sprint(i))
		}
		return keys
	}
	for i := 0; i < 200; i++ {
		a, b := pick(), pick()
		ops := diffKeys(a, b)
		got := applyKeyed(a, ops)
		if len(b) == 0 {
			assert.Empty(t, got, "%v -> %v", a, b)
			continue
		}
		assert.Equal(t, b, got, "%v -> %v", a, b)
		assert.LessOrEqual(t, len(ops), len(a)+len(b))
	}
}
