package rest

// BindInput carries the arguments a binder serializes: the whole-object
// argument (InBody) and the named payload parameters (InPayload).
type BindInput struct {
	Object interface{}
	Params map[string]interface{}
}

// HasParams reports whether any named parameter was supplied.
func (in BindInput) HasParams() bool {
	return len(in.Params) > 0
}

// Binder writes call arguments into the request payload. Binders run in
// declaration order, before any filter.
type Binder interface {
	Bind(req *Request, in BindInput) error
}

// BinderFunc adapts a function to the Binder interface.
type BinderFunc func(req *Request, in BindInput) error

// Bind implements Binder.
func (f BinderFunc) Bind(req *Request, in BindInput) error {
	return f(req, in)
}
