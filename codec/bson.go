package codec

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// BSON encodes values as BSON documents.
//
// Values are normalized through their JSON form first so that types with
// custom JSON encoding (records, id sets) keep their shape. The result is
// wrapped in an envelope document {"v": ...} because BSON requires a
// document at the top level.
type BSON struct{}

type bsonEnvelope struct {
	V any `bson:"v"`
}

// Marshal encodes the value to BSON.
func (BSON) Marshal(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return bson.Marshal(bsonEnvelope{V: doc})
}

// Unmarshal decodes the BSON data into v.
func (BSON) Unmarshal(data []byte, v any) error {
	var env bson.M
	if err := bson.Unmarshal(data, &env); err != nil {
		return err
	}
	doc, ok := env["v"]
	if !ok {
		return fmt.Errorf("codec: bson envelope without value")
	}
	raw, err := json.Marshal(fromBSON(doc))
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// Name returns the unique name of the codec ("bson").
func (BSON) Name() string { return "bson" }

// fromBSON converts decoded BSON containers into plain maps and slices.
func fromBSON(v any) any {
	switch x := v.(type) {
	case bson.D:
		m := make(map[string]any, len(x))
		for _, e := range x {
			m[e.Key] = fromBSON(e.Value)
		}
		return m
	case bson.M:
		m := make(map[string]any, len(x))
		for k, item := range x {
			m[k] = fromBSON(item)
		}
		return m
	case bson.A:
		arr := make([]any, len(x))
		for i := range x {
			arr[i] = fromBSON(x[i])
		}
		return arr
	default:
		return x
	}
}
