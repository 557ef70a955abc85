package desk

import "tradesim/internal/logger"

// HandlerRegistry maps event types to their handlers.
type HandlerRegistry struct {
	handlers map[EventType]EventHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		handlers: make(map[EventType]EventHandler),
	}
}

// Register adds h, replacing any handler of the same type.
func (r *HandlerRegistry) Register(h EventHandler) {
	if h == nil {
		return
	}
	r.handlers[h.Type()] = h
}

func (r *HandlerRegistry) Get(t EventType) (EventHandler, bool) {
	h, ok := r.handlers[t]
	return h, ok
}

func (r *HandlerRegistry) RegisterDefaultHandlers() {
	r.Register(&TickHandler{})
	r.Register(&ManualTradeHandler{})
	r.Register(&SizeOrderHandler{})
	r.Register(&BotUpdateHandler{})
	r.Register(&ExportHandler{})
	r.Register(&ImportHandler{})
	logger.Debugf("Desk: registered %d event handlers", len(r.handlers))
}
