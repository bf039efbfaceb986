// kvstore.go: PersistentStore adapter backed by a hive.go key-value store.
package scripting

import (
	"context"
	"encoding/json"

	"github.com/iotaledger/hive.go/kvstore"
	"github.com/pkg/errors"
)

// keySeparator joins script name and store name into a single KV key. The
// lexer rejects NUL in source, so neither component can contain it.
const keySeparator = "\x00"

// KVPersistentStore persists STORE values in any kvstore.KVStore backend
// (BadgerDB, RocksDB, or an in-memory map for tests). Values are encoded as
// a JSON envelope so lists keep their element type across restarts.
type KVPersistentStore struct {
	store kvstore.KVStore
}

func NewKVPersistentStore(store kvstore.KVStore) *KVPersistentStore {
	return &KVPersistentStore{store: store}
}

func (k *KVPersistentStore) ReadValues(ctx context.Context, keys map[StoreKey]struct{}) (map[StoreKey]Value, error) {
	result := make(map[StoreKey]Value, len(keys))
	for key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := k.store.Get(encodeStoreKey(key))
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read store '%s' of script '%s'", key.StoreName, key.ScriptName)
		}
		value, err := decodeStoredValue(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode store '%s' of script '%s'", key.StoreName, key.ScriptName)
		}
		result[key] = value
	}
	return result, nil
}

func (k *KVPersistentStore) StoreValues(ctx context.Context, values map[StoreKey]Value) error {
	for key, value := range values {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := encodeStoredValue(value)
		if err != nil {
			return errors.Wrapf(err, "failed to encode store '%s' of script '%s'", key.StoreName, key.ScriptName)
		}
		if err := k.store.Set(encodeStoreKey(key), raw); err != nil {
			return errors.Wrapf(err, "failed to write store '%s' of script '%s'", key.StoreName, key.ScriptName)
		}
	}
	return nil
}

func encodeStoreKey(key StoreKey) []byte {
	return []byte(key.ScriptName + keySeparator + key.StoreName)
}

// storedType mirrors DataType for the JSON envelope.
type storedType struct {
	Kind string      `json:"kind"`
	Elem *storedType `json:"elem,omitempty"`
}

// storedValue is the JSON wire form of a Value.
type storedValue struct {
	Kind  string        `json:"kind"`
	Num   float64       `json:"num,omitempty"`
	Str   string        `json:"str,omitempty"`
	Bool  bool          `json:"bool,omitempty"`
	Elem  *storedType   `json:"elem,omitempty"`
	Items []storedValue `json:"items,omitempty"`
}

func toStoredType(t DataType) *storedType {
	switch t.Kind {
	case KindNumber:
		return &storedType{Kind: "number"}
	case KindString:
		return &storedType{Kind: "string"}
	case KindBool:
		return &storedType{Kind: "bool"}
	case KindList:
		return &storedType{Kind: "list", Elem: toStoredType(t.ElemType())}
	default:
		return nil
	}
}

func fromStoredType(t *storedType) (DataType, error) {
	if t == nil {
		return DataType{}, errors.New("missing type")
	}
	switch t.Kind {
	case "number":
		return NumberType(), nil
	case "string":
		return StringType(), nil
	case "bool":
		return BoolType(), nil
	case "list":
		elem, err := fromStoredType(t.Elem)
		if err != nil {
			return DataType{}, err
		}
		return ListType(elem), nil
	default:
		return DataType{}, errors.Errorf("unknown type kind '%s'", t.Kind)
	}
}

func toStoredValue(v Value) storedValue {
	switch v.Tag {
	case VNumber:
		return storedValue{Kind: "number", Num: v.Num}
	case VString:
		return storedValue{Kind: "string", Str: v.Str}
	case VBool:
		return storedValue{Kind: "bool", Bool: v.Bool}
	case VList:
		items := make([]storedValue, 0, len(v.List))
		for _, item := range v.List {
			items = append(items, toStoredValue(item))
		}
		return storedValue{Kind: "list", Elem: toStoredType(v.Elem), Items: items}
	default:
		panic("invalid value tag")
	}
}

func fromStoredValue(sv storedValue) (Value, error) {
	switch sv.Kind {
	case "number":
		return NumberValue(sv.Num), nil
	case "string":
		return StringValue(sv.Str), nil
	case "bool":
		return BoolValue(sv.Bool), nil
	case "list":
		elem, err := fromStoredType(sv.Elem)
		if err != nil {
			return Value{}, errors.Wrap(err, "list value")
		}
		items := make([]Value, 0, len(sv.Items))
		for _, item := range sv.Items {
			value, err := fromStoredValue(item)
			if err != nil {
				return Value{}, err
			}
			items = append(items, value)
		}
		return ListValue(elem, items), nil
	default:
		return Value{}, errors.Errorf("unknown value kind '%s'", sv.Kind)
	}
}

func encodeStoredValue(v Value) ([]byte, error) {
	return json.Marshal(toStoredValue(v))
}

func decodeStoredValue(raw []byte) (Value, error) {
	var sv storedValue
	if err := json.Unmarshal(raw, &sv); err != nil {
		return Value{}, err
	}
	return fromStoredValue(sv)
}
