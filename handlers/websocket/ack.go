package websocket

import (
	"moodboard-server/core"

	socketio "github.com/zishang520/socket.io/v2/socket"
)

// ackInvoker answers a client's acknowledgement callback.
type ackInvoker func(err error, payload map[string]any)

// extractAck splits a trailing acknowledgement callback off an event's arguments.
func extractAck(datas []any) (ack ackInvoker, args []any) {
	if len(datas) == 0 {
		return nil, datas
	}
	if ack = asAck(datas[len(datas)-1]); ack == nil {
		return nil, datas
	}
	return ack, datas[:len(datas)-1]
}

// asAck adapts the callback shapes an ack can arrive as. socket.io hands over a
// func([]any, error); the others show up when handlers are driven in-process.
func asAck(candidate any) ackInvoker {
	switch fn := candidate.(type) {
	case func([]any, error):
		return func(err error, payload map[string]any) { fn([]any{payload}, err) }
	case func(error, map[string]any):
		return fn
	case func(map[string]any):
		return func(_ error, payload map[string]any) { fn(payload) }
	case func(...any):
		return func(_ error, payload map[string]any) { fn(payload) }
	}
	return nil
}

// respondWithAck answers the client's ack callback, if it sent one, and emits the same
// result as event. extra is merged into the status payload.
func respondWithAck(socket *socketio.Socket, ack ackInvoker, event string, ackErr error, extra map[string]any) {
	payload := statusPayload(ackErr)
	for k, v := range extra {
		payload[k] = v
	}

	if ack != nil {
		ack(ackErr, payload)
	}
	if event != "" && socket != nil {
		_ = socket.Emit(event, payload)
	}
}

// statusPayload is {"status": "ok"} or {"status": "error", "error": ..., "kind": ...}.
// Classified errors report their user-facing message.
func statusPayload(err error) map[string]any {
	if err == nil {
		return map[string]any{"status": "ok"}
	}
	payload := map[string]any{
		"status": "error",
		"error":  err.Error(),
	}
	if kind := core.KindOf(err); kind != "" {
		payload["kind"] = string(kind)
		payload["error"] = core.Classify(err).Message
	}
	return payload
}
