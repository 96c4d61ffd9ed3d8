package cmds

// Var defines a command setting the returned value from one argument,
// and name+"." resetting it to the zero value.
func Var[T any](name string, desc string) *T {
	value := new(T)
	Define(name, Func(func(v T) {
		*value = v
	}).Desc(desc))
	Define(name+".", Func(func() {
		var zero T
		*value = zero
	}).Desc("reset "+name))
	return value
}

// Switch defines name turning the returned flag on and "!"+name turning it off.
func Switch(name string, desc string) *bool {
	value := new(bool)
	Define(name, Func(func() {
		*value = true
	}).Desc(desc))
	Define("!"+name, Func(func() {
		*value = false
	}).Desc("disable "+name))
	return value
}

// Collect defines a command appending its argument each time it is given.
func Collect[T any](name string, desc string) *[]T {
	value := new([]T)
	Define(name, Func(func(v T) {
		*value = append(*value, v)
	}).Desc(desc))
	return value
}
