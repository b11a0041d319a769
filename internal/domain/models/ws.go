package models

import "encoding/json"

// Listener-facing event names.
const (
	EventSubscribed    = "subscribed"
	EventUnsubscribed  = "unsubscribed"
	EventSubscriptions = "subscriptions"
	EventPriceUpdate   = "price_update"
	EventError         = "error"
)

// Listener request actions.
const (
	ActionSubscribe        = "subscribe"
	ActionUnsubscribe      = "unsubscribe"
	ActionGetSubscriptions = "get_subscriptions"
)

// WSRequest is a command received on a listener connection.
type WSRequest struct {
	Action string `json:"action"`
	Symbol string `json:"symbol,omitempty"`
}

// WSEvent is an outbound message pushed to a listener connection.
type WSEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// WSSymbolAck acknowledges subscribe/unsubscribe for one symbol.
type WSSymbolAck struct {
	Symbol string `json:"symbol"`
}

// WSSubscriptions lists the symbols a connection is registered for.
type WSSubscriptions struct {
	Symbols []string `json:"symbols"`
}

// WSError describes a rejected request; it never closes the connection.
type WSError struct {
	Message string `json:"message"`
}
