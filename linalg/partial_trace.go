package linalg

import "github.com/pkg/errors"

// subIndex splits full basis indices of an n-qubit register into the index
// over the kept wires (in keep order) and the index over the remaining wires.
func subIndex(n int, keep []int) (kept, rest []int, err error) {
	seen := make(map[int]bool, len(keep))
	for _, w := range keep {
		if w < 0 || w >= n {
			return nil, nil, errors.Errorf("linalg: wire %d outside %d-qubit register", w, n)
		}
		if seen[w] {
			return nil, nil, errors.Errorf("linalg: wire %d kept twice", w)
		}
		seen[w] = true
	}
	var discard []int
	for w := range n {
		if !seen[w] {
			discard = append(discard, w)
		}
	}

	size := 1 << n
	kept = make([]int, size)
	rest = make([]int, size)
	for i := range size {
		for j, w := range keep {
			if i&WireBit(n, w) != 0 {
				kept[i] |= 1 << (len(keep) - 1 - j)
			}
		}
		for j, w := range discard {
			if i&WireBit(n, w) != 0 {
				rest[i] |= 1 << (len(discard) - 1 - j)
			}
		}
	}
	return kept, rest, nil
}

// PartialTrace traces out every wire of an n-qubit density matrix that is
// not in keep. Wire j of the result is keep[j], so keeping all wires in
// order returns rho unchanged.
func PartialTrace[T Scalar[T]](rho Matrix[T], n int, keep []int) (Matrix[T], error) {
	if rho.rows != 1<<n || rho.cols != 1<<n {
		return Matrix[T]{}, errors.Errorf("linalg: %dx%d matrix is not a %d-qubit density matrix", rho.rows, rho.cols, n)
	}
	kept, rest, err := subIndex(n, keep)
	if err != nil {
		return Matrix[T]{}, err
	}

	groups := make(map[int][]int)
	for i, r := range rest {
		groups[r] = append(groups[r], i)
	}

	dim := 1 << len(keep)
	out := NewMatrix[T](dim, dim)
	for _, idx := range groups {
		for _, a := range idx {
			for _, b := range idx {
				v := rho.At(a, b)
				if v.IsZero() {
					continue
				}
				out.Set(kept[a], kept[b], out.At(kept[a], kept[b]).Add(v))
			}
		}
	}
	return out, nil
}

// PartialDiagonal marginalises a probability vector over an n-qubit
// register onto the wires in keep.
func PartialDiagonal(probs []float64, n int, keep []int) ([]float64, error) {
	if len(probs) != 1<<n {
		return nil, errors.Errorf("linalg: %d probabilities for a %d-qubit register", len(probs), n)
	}
	kept, _, err := subIndex(n, keep)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 1<<len(keep))
	for i, p := range probs {
		out[kept[i]] += p
	}
	return out, nil
}
