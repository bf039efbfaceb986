// kvstore_test.go
package scripting

import (
	"context"
	"testing"

	"github.com/iotaledger/hive.go/kvstore/mapdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKVPersistentStore_RoundTrip(t *testing.T) {
	store := NewKVPersistentStore(mapdb.NewMapDB())
	ctx := context.Background()

	key := StoreKey{ScriptName: "greeter", StoreName: "count"}
	values := map[StoreKey]Value{
		key: NumberValue(42),
		{ScriptName: "greeter", StoreName: "last"}:  StringValue("hello"),
		{ScriptName: "greeter", StoreName: "armed"}: BoolValue(true),
		{ScriptName: "greeter", StoreName: "log"}: ListValue(ListType(StringType()), []Value{
			ListValue(StringType(), []Value{StringValue("a"), StringValue("b")}),
			ListValue(StringType(), nil),
		}),
	}
	require.NoError(t, store.StoreValues(ctx, values))

	keys := make(map[StoreKey]struct{}, len(values))
	for k := range values {
		keys[k] = struct{}{}
	}
	read, err := store.ReadValues(ctx, keys)
	require.NoError(t, err)
	require.Len(t, read, len(values))
	for k, want := range values {
		assert.True(t, want.Equals(read[k]), "value mismatch for %v", k)
	}
}

func TestKVPersistentStore_MissingKeysAreAbsent(t *testing.T) {
	store := NewKVPersistentStore(mapdb.NewMapDB())

	read, err := store.ReadValues(context.Background(), map[StoreKey]struct{}{
		{ScriptName: "s", StoreName: "missing"}: {},
	})
	require.NoError(t, err)
	assert.Empty(t, read)
}

func TestKVPersistentStore_ScriptNamespacing(t *testing.T) {
	store := NewKVPersistentStore(mapdb.NewMapDB())
	ctx := context.Background()

	require.NoError(t, store.StoreValues(ctx, map[StoreKey]Value{
		{ScriptName: "a", StoreName: "x"}: NumberValue(1),
		{ScriptName: "b", StoreName: "x"}: NumberValue(2),
	}))

	read, err := store.ReadValues(ctx, map[StoreKey]struct{}{
		{ScriptName: "a", StoreName: "x"}: {},
	})
	require.NoError(t, err)
	require.Len(t, read, 1)
	assert.Equal(t, NumberValue(1), read[StoreKey{ScriptName: "a", StoreName: "x"}])
}

func TestKVPersistentStore_EmptyTypedList(t *testing.T) {
	store := NewKVPersistentStore(mapdb.NewMapDB())
	ctx := context.Background()

	key := StoreKey{ScriptName: "s", StoreName: "empty"}
	require.NoError(t, store.StoreValues(ctx, map[StoreKey]Value{
		key: ListValue(NumberType(), nil),
	}))

	read, err := store.ReadValues(ctx, map[StoreKey]struct{}{key: {}})
	require.NoError(t, err)
	got := read[key]
	assert.Equal(t, VList, got.Tag)
	assert.True(t, got.Elem.Equals(NumberType()))
	assert.Empty(t, got.List)
}

func TestKVPersistentStore_ExecutionEndToEnd(t *testing.T) {
	store := NewKVPersistentStore(mapdb.NewMapDB())
	src := `STORE counter = 0;
counter = counter + 1;
PRINT counter;`

	for want := 1; want <= 3; want++ {
		output, _, err := execScript(t, src, nil, store, nil)
		require.NoError(t, err)
		assert.Equal(t, formatNumber(float64(want)), output)
	}
}
