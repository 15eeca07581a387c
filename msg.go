package quorum

// Msg is a request to take an action (make a state transition). It is just
// the request and must be validated by the handler. All authentication
// information is carried by the context.
type Msg interface {
	// Path returns the message path. This is used by the router to locate
	// the proper handler.
	//
	// Must be alphanumeric [0-9A-Za-z_\-/]+
	Path() string

	// Validate performs a sanity check of the message content. It must
	// not depend on the state.
	Validate() error
}

// Handler processes messages of a given path.
type Handler interface {
	Deliver(ctx Context, msg Msg) (*Result, error)
}

// Result is the outcome of a successfully handled message.
type Result struct {
	// Data is a machine readable result, for example the id of a created
	// entity.
	Data []byte
	// Log is a human readable information.
	Log string
}
