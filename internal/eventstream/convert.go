package eventstream

import (
	"fmt"
	"time"

	"github.com/izyuumi/koe/internal/events"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ToStruct renders ev as {"kind", "session_id", "at", <payload>}.
func ToStruct(ev events.Event) (*structpb.Struct, error) {
	fields := map[string]any{
		"kind":       string(ev.Kind),
		"session_id": ev.SessionID,
	}
	if !ev.At.IsZero() {
		fields["at"] = ev.At.UTC().Format(time.RFC3339Nano)
	}
	for key, value := range ev.Payload() {
		fields[key] = value
	}
	if ev.Kind == events.KindSpeechError {
		fields["fatal"] = ev.Fatal
	}

	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", ev.Kind, err)
	}
	return msg, nil
}

// FromStruct is the inverse of ToStruct. Unknown fields are ignored.
func FromStruct(msg *structpb.Struct) (events.Event, error) {
	fields := msg.GetFields()
	kind := events.Kind(fields["kind"].GetStringValue())
	if kind == "" {
		return events.Event{}, fmt.Errorf("event is missing kind")
	}

	ev := events.Event{
		Kind:      kind,
		SessionID: fields["session_id"].GetStringValue(),
		Listening: fields["listening"].GetBoolValue(),
		Text:      fields["text"].GetStringValue(),
		Level:     fields["level"].GetNumberValue(),
		Message:   fields["message"].GetStringValue(),
		Fatal:     fields["fatal"].GetBoolValue(),
	}
	if raw := fields["at"].GetStringValue(); raw != "" {
		at, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return events.Event{}, fmt.Errorf("decode event time %q: %w", raw, err)
		}
		ev.At = at
	}
	return ev, nil
}

// MarshalJSON renders ev as a single-line JSON object.
func MarshalJSON(ev events.Event) ([]byte, error) {
	msg, err := ToStruct(ev)
	if err != nil {
		return nil, err
	}
	return protojson.MarshalOptions{}.Marshal(msg)
}
