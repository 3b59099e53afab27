package events

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/anonto42/socialape/backend/internal/docstore"
)

// FirestoreEvent is the payload of a Firestore document trigger:
// {"oldValue": {"name", "fields"}, "value": {"name", "fields"}}.
// A side is empty when the document did not exist.
type FirestoreEvent struct {
	OldValue firestoreDocument `json:"oldValue"`
	Value    firestoreDocument `json:"value"`
}

type firestoreDocument struct {
	Name   string                    `json:"name"`
	Fields map[string]firestoreValue `json:"fields"`
}

type firestoreValue struct {
	NullValue      *string         `json:"nullValue"`
	BooleanValue   *bool           `json:"booleanValue"`
	IntegerValue   *string         `json:"integerValue"`
	DoubleValue    *float64        `json:"doubleValue"`
	TimestampValue *string         `json:"timestampValue"`
	StringValue    *string         `json:"stringValue"`
	BytesValue     *string         `json:"bytesValue"`
	ReferenceValue *string         `json:"referenceValue"`
	MapValue       *firestoreMap   `json:"mapValue"`
	ArrayValue     *firestoreArray `json:"arrayValue"`
}

type firestoreMap struct {
	Fields map[string]firestoreValue `json:"fields"`
}

type firestoreArray struct {
	Values []firestoreValue `json:"values"`
}

// DecodeFirestoreEvent turns a raw trigger payload into a Change
func DecodeFirestoreEvent(payload []byte) (Change, error) {
	var ev FirestoreEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Change{}, fmt.Errorf("decode firestore event: %w", err)
	}
	return ev.Change()
}

func (ev FirestoreEvent) Change() (Change, error) {
	name := ev.Value.Name
	if name == "" {
		name = ev.OldValue.Name
	}
	if name == "" {
		return Change{}, fmt.Errorf("firestore event without document name")
	}
	collection, id, err := splitDocumentName(name)
	if err != nil {
		return Change{}, err
	}

	change := Change{Collection: collection, ID: id}
	if ev.OldValue.Name != "" {
		if change.Before, err = ev.OldValue.snapshot(id); err != nil {
			return Change{}, err
		}
	}
	if ev.Value.Name != "" {
		if change.After, err = ev.Value.snapshot(id); err != nil {
			return Change{}, err
		}
	}
	return change, nil
}

// splitDocumentName extracts the collection and id from
// projects/{p}/databases/{d}/documents/{collection}/{id}
func splitDocumentName(name string) (string, string, error) {
	_, path, ok := strings.Cut(name, "/documents/")
	if !ok {
		return "", "", fmt.Errorf("unexpected document name %q", name)
	}
	parts := strings.Split(path, "/")
	if len(parts) < 2 || len(parts)%2 != 0 {
		return "", "", fmt.Errorf("unexpected document path %q", path)
	}
	return parts[len(parts)-2], parts[len(parts)-1], nil
}

func (d firestoreDocument) snapshot(id string) (*docstore.Snapshot, error) {
	data, err := decodeFields(d.Fields)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", d.Name, err)
	}
	return &docstore.Snapshot{ID: id, Data: data}, nil
}

func decodeFields(fields map[string]firestoreValue) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		decoded, err := v.decode()
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		out[k] = decoded
	}
	return out, nil
}

func (v firestoreValue) decode() (interface{}, error) {
	switch {
	case v.NullValue != nil:
		return nil, nil
	case v.BooleanValue != nil:
		return *v.BooleanValue, nil
	case v.IntegerValue != nil:
		return strconv.ParseInt(*v.IntegerValue, 10, 64)
	case v.DoubleValue != nil:
		return *v.DoubleValue, nil
	case v.TimestampValue != nil:
		return *v.TimestampValue, nil
	case v.StringValue != nil:
		return *v.StringValue, nil
	case v.BytesValue != nil:
		return base64.StdEncoding.DecodeString(*v.BytesValue)
	case v.ReferenceValue != nil:
		return *v.ReferenceValue, nil
	case v.MapValue != nil:
		return decodeFields(v.MapValue.Fields)
	case v.ArrayValue != nil:
		out := make([]interface{}, 0, len(v.ArrayValue.Values))
		for _, item := range v.ArrayValue.Values {
			decoded, err := item.decode()
			if err != nil {
				return nil, err
			}
			out = append(out, decoded)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value type")
}
