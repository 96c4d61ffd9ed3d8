package tairepl

import (
	"fmt"
	"io"

	"github.com/reusee/tairepl/taipy"
	"github.com/reusee/tairepl/taiword"
)

// Intrinsic is a host function imported by generated code. Arguments and result are tagged words.
type Intrinsic func(mem taiword.Reader, args []taiword.Word) (taiword.Word, error)

// Intrinsics is the fixed set of host functions every module imports.
type Intrinsics struct {
	PrintNum  Intrinsic
	PrintBool Intrinsic
	PrintNone Intrinsic
	PrintStr  Intrinsic
	Abs       Intrinsic
	Min       Intrinsic
	Max       Intrinsic
	Pow       Intrinsic
}

// ordered returns the intrinsics in import order, keyed by import name.
func (i Intrinsics) ordered() []struct {
	name string
	fn   Intrinsic
} {
	fns := []Intrinsic{
		i.PrintNum,
		i.PrintBool,
		i.PrintNone,
		i.PrintStr,
		i.Abs,
		i.Min,
		i.Max,
		i.Pow,
	}
	ret := make([]struct {
		name string
		fn   Intrinsic
	}, len(fns))
	for j, fn := range fns {
		ret[j].name = taipy.Intrinsics[j].Name
		ret[j].fn = fn
	}
	return ret
}

func (i Intrinsics) validate() error {
	for _, entry := range i.ordered() {
		if entry.fn == nil {
			return fmt.Errorf("%w: %s", ErrMissingIntrinsic, entry.name)
		}
	}
	return nil
}

func intArg(w taiword.Word) (int64, error) {
	if !w.IsImmediate() {
		return 0, fmt.Errorf("%w: %v is not an int", taiword.ErrBadValue, w)
	}
	return w.Int(), nil
}

func intResult(n int64) (taiword.Word, error) {
	return taiword.Encode(taiword.IntType, n)
}

func printer(w io.Writer, t taiword.Type) Intrinsic {
	return func(mem taiword.Reader, args []taiword.Word) (taiword.Word, error) {
		v, err := taiword.Decode(t, args[0], mem)
		if err != nil {
			return 0, err
		}
		if _, err := fmt.Fprintln(w, taiword.Render(t, v)); err != nil {
			return 0, err
		}
		return args[0], nil
	}
}

func binaryInt(fn func(a, b int64) (int64, error)) Intrinsic {
	return func(_ taiword.Reader, args []taiword.Word) (taiword.Word, error) {
		a, err := intArg(args[0])
		if err != nil {
			return 0, err
		}
		b, err := intArg(args[1])
		if err != nil {
			return 0, err
		}
		n, err := fn(a, b)
		if err != nil {
			return 0, err
		}
		return intResult(n)
	}
}

// DefaultIntrinsics prints values to w one per line.
func DefaultIntrinsics(w io.Writer) Intrinsics {
	return Intrinsics{
		PrintNum:  printer(w, taiword.IntType),
		PrintBool: printer(w, taiword.BoolType),
		PrintNone: printer(w, taiword.NoneType),
		PrintStr:  printer(w, taiword.TextType),

		Abs: func(_ taiword.Reader, args []taiword.Word) (taiword.Word, error) {
			n, err := intArg(args[0])
			if err != nil {
				return 0, err
			}
			if n < 0 {
				n = -n
			}
			return intResult(n)
		},

		Min: binaryInt(func(a, b int64) (int64, error) {
			return min(a, b), nil
		}),

		Max: binaryInt(func(a, b int64) (int64, error) {
			return max(a, b), nil
		}),

		Pow: binaryInt(func(base, exp int64) (int64, error) {
			if exp < 0 {
				return 0, fmt.Errorf("%w: negative exponent %d", taiword.ErrOutOfRange, exp)
			}
			ret := int64(1)
			for range exp {
				ret *= base
				if ret > taiword.MaxInt || ret < taiword.MinInt {
					return 0, fmt.Errorf("%w: %d ** %d", taiword.ErrOutOfRange, base, exp)
				}
				if ret == 0 || ret == 1 && base == 1 {
					break
				}
			}
			return ret, nil
		}),
	}
}
