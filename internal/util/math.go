package util

func Max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Combinations returns the k-subsets of items in lexicographic order.
func Combinations(items []int, k int) [][]int {
	if k <= 0 || k > len(items) {
		return nil
	}

	var result [][]int
	current := make([]int, 0, k)
	var walk func(start int)
	walk = func(start int) {
		if len(current) == k {
			result = append(result, append([]int(nil), current...))
			return
		}
		for i := start; i < len(items); i++ {
			current = append(current, items[i])
			walk(i + 1)
			current = current[:len(current)-1]
		}
	}
	walk(0)
	return result
}

// Permutations returns the ordered k-arrangements of items in lexicographic order.
func Permutations(items []int, k int) [][]int {
	if k <= 0 || k > len(items) {
		return nil
	}

	var result [][]int
	used := make([]bool, len(items))
	current := make([]int, 0, k)
	var walk func()
	walk = func() {
		if len(current) == k {
			result = append(result, append([]int(nil), current...))
			return
		}
		for i := range items {
			if used[i] {
				continue
			}
			used[i] = true
			current = append(current, items[i])
			walk()
			current = current[:len(current)-1]
			used[i] = false
		}
	}
	walk()
	return result
}

// Sequence returns 1..n.
func Sequence(n int) []int {
	if n <= 0 {
		return nil
	}
	seq := make([]int, n)
	for i := range seq {
		seq[i] = i + 1
	}
	return seq
}
