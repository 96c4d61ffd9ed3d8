package taivm

type Function struct {
	Name       string
	NumParams  int
	NumLocals  int
	Result     bool
	Code       []OpCode
	Constants  []int32
	Callees    []string
	LocalNames []string
}

// Import declares a host function the module expects at instantiation.
type Import struct {
	Module    string
	Name      string
	ID        string
	NumParams int
	Result    bool
}

type MemoryImport struct {
	Module   string
	Name     string
	MinPages uint32
}

type Export struct {
	Name string
	Func string
}

type Module struct {
	Memory  *MemoryImport
	Imports []Import
	Funcs   []*Function
	Exports []Export
}

func ImportKey(module, name string) string {
	return module + "." + name
}
