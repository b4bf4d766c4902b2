package longrun

// Kind tags a Result. The values are the ones written to logs.
type Kind string

const (
	KindFinal Kind = "final"
	KindError Kind = "error"
)

// Result is the outcome delivered for a request: either Final or Failure.
// The set is closed; consumers branch on it with a type switch.
type Result interface {
	Kind() Kind
	sealed()
}

// Final carries the payload of a successfully completed request.
type Final struct {
	Payload []byte
}

// Failure carries the message of a request whose processing failed.
type Failure struct {
	Message string
}

func (Final) Kind() Kind   { return KindFinal }
func (Failure) Kind() Kind { return KindError }
func (Final) sealed()      {}
func (Failure) sealed()    {}
