package pubsub

import (
	"context"
	"encoding/json"
)

// Publish marshals payload to JSON and publishes it on topic. The compiler
// ties the payload type to the call site; subscribers decode with Decode.
func Publish[T any](ctx context.Context, p Publisher, topic string, payload T) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.Publish(ctx, Message{
		Topic:   topic,
		Payload: data,
	})
}

// Decode unmarshals a message payload published with Publish.
func Decode[T any](msg Message) (T, error) {
	var payload T
	err := json.Unmarshal(msg.Payload, &payload)
	return payload, err
}
