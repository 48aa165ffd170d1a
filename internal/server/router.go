package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"vcampus/internal/campus"
	"vcampus/internal/protocol"
)

// Request is what a handler sees of an inbound message.
type Request struct {
	ClientID string
	Msg      *protocol.Message
}

// Decode unmarshals the request payload into v.
func (r *Request) Decode(v any) error { return r.Msg.Decode(v) }

// HandlerFunc serves one request type. The returned value becomes the success
// payload; a returned error becomes the failure payload.
type HandlerFunc func(ctx context.Context, req *Request) (any, error)

// Router maps request types to handlers and builds the reply for every
// request it is given. It is not safe to call Handle while serving.
type Router struct {
	handlers map[protocol.MessageType]HandlerFunc
	logger   *slog.Logger
}

func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		handlers: make(map[protocol.MessageType]HandlerFunc),
		logger:   logger,
	}
	r.Handle(protocol.TypePing, func(context.Context, *Request) (any, error) { return nil, nil })
	return r
}

// Handle registers h for the request type t. It panics if t is not a
// request type, like http.ServeMux does for malformed patterns.
func (r *Router) Handle(t protocol.MessageType, h HandlerFunc) {
	if !protocol.IsRequest(t) {
		panic(fmt.Sprintf("server: %s is not a request type", t))
	}
	r.handlers[t] = h
}

// Serve runs the handler for msg and returns the reply to send back. It
// always returns a reply: ERROR when the type cannot be served, the
// operation's failure type when the handler fails.
func (r *Router) Serve(ctx context.Context, clientID string, msg *protocol.Message) *protocol.Message {
	op, ok := protocol.LookupOperation(msg.Type)
	if !ok {
		return ErrorReply(msg, fmt.Sprintf("unsupported message type %s", msg.Type))
	}
	h, ok := r.handlers[msg.Type]
	if !ok {
		return ErrorReply(msg, fmt.Sprintf("no handler for %s", msg.Type))
	}

	start := time.Now()
	result, err := h(ctx, &Request{ClientID: clientID, Msg: msg})
	if err != nil {
		r.logger.Info("request_failed",
			"client_id", clientID,
			"type", msg.Type,
			"error", err.Error(),
		)
		return reply(msg, op.Failure, campus.Failure{Reason: err.Error()})
	}
	r.logger.Debug("request_served",
		"client_id", clientID,
		"type", msg.Type,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return reply(msg, op.Success, result)
}

// ErrorReply builds an ERROR message answering msg.
func ErrorReply(msg *protocol.Message, reason string) *protocol.Message {
	return reply(msg, protocol.TypeError, campus.Failure{Reason: reason})
}

func reply(msg *protocol.Message, t protocol.MessageType, v any) *protocol.Message {
	out, err := msg.Reply(t, v)
	if err != nil {
		// the payload could not be encoded
		out, _ = protocol.NewMessage(protocol.TypeError, campus.Failure{Reason: err.Error()})
		out.ReplyTo = msg.ID
	}
	out.ID = uuid.NewString()
	out.Stamp(time.Now())
	return out
}
