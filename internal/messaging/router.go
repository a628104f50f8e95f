package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// ErrUnknownType is returned for requests with no registered handler.
var ErrUnknownType = errors.New("unknown message type")

// Handler processes one request. A nil result with a nil error sends no
// response.
type Handler func(ctx context.Context, request Request) (any, error)

// Router dispatches requests by type, one at a time in arrival order.
type Router struct {
	handlers map[string]Handler
	log      zerolog.Logger
}

// NewRouter returns an empty router.
func NewRouter(logger zerolog.Logger) *Router {
	return &Router{
		handlers: make(map[string]Handler),
		log:      logger.With().Str("component", "router").Logger(),
	}
}

// Handle registers handler for messageType, replacing any previous one.
func (router *Router) Handle(messageType string, handler Handler) {
	router.handlers[messageType] = handler
}

// Types returns the number of registered message types.
func (router *Router) Types() int {
	return len(router.handlers)
}

// Dispatch runs the handler for request.
func (router *Router) Dispatch(ctx context.Context, request Request) (any, error) {
	handler, ok := router.handlers[request.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, request.Type)
	}
	return handler(ctx, request)
}

// Serve reads requests from conn until EOF or ctx is cancelled. Each handler
// completes before the next frame is read. Malformed and oversized frames
// are logged and skipped.
func (router *Router) Serve(ctx context.Context, conn *Conn) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		request, err := conn.Receive()
		if err != nil {
			if errors.Is(err, io.EOF) {
				router.log.Info().Msg("channel closed")
				return nil
			}
			if errors.Is(err, ErrFrameTooLarge) || errors.Is(err, ErrMalformed) {
				router.log.Warn().Err(err).Msg("dropping frame")
				continue
			}
			return err
		}

		result, err := router.Dispatch(ctx, request)
		if err != nil {
			router.log.Error().Err(err).Str("type", request.Type).Msg("request failed")
		}
		if request.ID == nil {
			continue
		}

		var reply any
		switch {
		case err != nil:
			reply = ErrorResponse{ID: *request.ID, Type: TypeError, Error: err.Error()}
		case result != nil:
			reply = Response{ID: *request.ID, Type: TypeResponse, Result: result}
		default:
			continue
		}
		if sendErr := conn.Send(reply); sendErr != nil {
			return fmt.Errorf("reply to %s: %w", request.Type, sendErr)
		}
	}
}
