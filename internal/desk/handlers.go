package desk

import (
	"fmt"

	"tradesim/internal/session"
)

type TickHandler struct{}

func (h *TickHandler) Type() EventType { return EvtTick }

func (h *TickHandler) Handle(ctx *HandlerContext, payload any, traceID string) (any, error) {
	p, ok := payload.(TickPayload)
	if !ok {
		return nil, payloadError(EvtTick, payload)
	}
	return ctx.Desk().handleTick(p)
}

type ManualTradeHandler struct{}

func (h *ManualTradeHandler) Type() EventType { return EvtManualTrade }

func (h *ManualTradeHandler) Handle(ctx *HandlerContext, payload any, traceID string) (any, error) {
	p, ok := payload.(ManualTradePayload)
	if !ok {
		return nil, payloadError(EvtManualTrade, payload)
	}
	return ctx.Desk().handleManualTrade(p, traceID)
}

type SizeOrderHandler struct{}

func (h *SizeOrderHandler) Type() EventType { return EvtSizeOrder }

func (h *SizeOrderHandler) Handle(ctx *HandlerContext, payload any, traceID string) (any, error) {
	p, ok := payload.(SizeOrderPayload)
	if !ok {
		return nil, payloadError(EvtSizeOrder, payload)
	}
	return ctx.Desk().sess.SizeOrder(p.Side, p.Percent)
}

type BotUpdateHandler struct{}

func (h *BotUpdateHandler) Type() EventType { return EvtBotUpdate }

func (h *BotUpdateHandler) Handle(ctx *HandlerContext, payload any, traceID string) (any, error) {
	p, ok := payload.(session.BotUpdate)
	if !ok {
		return nil, payloadError(EvtBotUpdate, payload)
	}
	return ctx.Desk().handleBotUpdate(p)
}

type ExportHandler struct{}

func (h *ExportHandler) Type() EventType { return EvtExport }

func (h *ExportHandler) Handle(ctx *HandlerContext, payload any, traceID string) (any, error) {
	return ctx.Desk().sess.Export()
}

type ImportHandler struct{}

func (h *ImportHandler) Type() EventType { return EvtImport }

func (h *ImportHandler) Handle(ctx *HandlerContext, payload any, traceID string) (any, error) {
	p, ok := payload.(session.State)
	if !ok {
		return nil, payloadError(EvtImport, payload)
	}
	return nil, ctx.Desk().handleImport(p)
}

func payloadError(t EventType, payload any) error {
	return fmt.Errorf("%s: unexpected payload %T", t, payload)
}
