package configs

import (
	"errors"
	"fmt"
	"iter"
)

// First decodes the value at path from the highest precedence file defining it.
// A missing value yields the zero T. Invalid configs panic.
func First[T any](loader Loader, path string) T {
	var value T
	if err := loader.AssignFirst(path, &value); err != nil {
		if errors.Is(err, ErrValueNotFound) {
			return value
		}
		panic(err)
	}
	return value
}

// All decodes the value at path from every file defining it, in precedence order.
func All[T any](loader Loader, path string) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for value, err := range loader.IterCueValues(path) {
			var v T
			if err == nil {
				if err = value.Decode(&v); err != nil {
					err = fmt.Errorf("config %s: %w", path, err)
				}
			}
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}
