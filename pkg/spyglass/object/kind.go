package object

// Kind identifies the runtime category of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindObject
	KindFunc
)

var kindNames = [...]string{
	KindNull:   "null",
	KindBool:   "bool",
	KindInt:    "int",
	KindFloat:  "float",
	KindString: "string",
	KindObject: "object",
	KindFunc:   "func",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsPrimitive reports whether values of this kind carry no properties
// of their own. Primitives are rejected as wide-collection roots.
func (k Kind) IsPrimitive() bool {
	return k < KindObject
}
