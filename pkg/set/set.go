// Package set is a small generic set used to compare resource and edge keys.
package set

import (
	"cmp"
	"slices"
)

type Set[T comparable] map[T]struct{}

func SetOf[T comparable](vs ...T) Set[T] {
	s := make(Set[T], len(vs))
	s.Add(vs...)
	return s
}

func (s Set[T]) Add(vs ...T) {
	for _, v := range vs {
		s[v] = struct{}{}
	}
}

func (s Set[T]) Contains(v T) bool {
	_, ok := s[v]
	return ok
}

func (s Set[T]) Len() int {
	return len(s)
}

func (s Set[T]) Union(other Set[T]) Set[T] {
	union := make(Set[T], len(s)+len(other))
	for k := range s {
		union[k] = struct{}{}
	}
	for k := range other {
		union[k] = struct{}{}
	}
	return union
}

// Difference returns the elements of `s` that are not in `other`.
func (s Set[T]) Difference(other Set[T]) Set[T] {
	diff := make(Set[T])
	for k := range s {
		if !other.Contains(k) {
			diff.Add(k)
		}
	}
	return diff
}

// Sorted returns the elements of `s` in ascending order.
func Sorted[T cmp.Ordered](s Set[T]) []T {
	res := make([]T, 0, len(s))
	for k := range s {
		res = append(res, k)
	}
	slices.Sort(res)
	return res
}
