package desk

// EventHandler handles one event type inside the desk loop.
type EventHandler interface {
	Type() EventType
	Handle(ctx *HandlerContext, payload any, traceID string) (any, error)
}

// HandlerContext gives handlers access to the desk they run in.
type HandlerContext struct {
	desk *Desk
}

func NewHandlerContext(d *Desk) *HandlerContext {
	return &HandlerContext{desk: d}
}

func (c *HandlerContext) Desk() *Desk {
	return c.desk
}
