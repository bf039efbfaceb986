// builtins_test.go
package scripting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runWithBuiltins(t *testing.T, builtins *Builtins, src string) (string, error) {
	t.Helper()
	tokens, err := NewLexer(src).Tokenize()
	require.NoError(t, err)
	script, err := NewParser("test", tokens, builtins).Parse()
	require.NoError(t, err)
	output, _, err := script.Execute(context.Background(), AlwaysEmptyStore{}, nil, nil)
	return output, err
}

func TestBuiltin_Type(t *testing.T) {
	assert.Equal(t, "number", run(t, `PRINT 'type'(5);`))
	assert.Equal(t, "string", run(t, `PRINT 'type'('x');`))
	assert.Equal(t, "bool", run(t, `PRINT 'type'(true);`))
	assert.Equal(t, "list<number>", run(t, `PRINT 'type'([1]);`))
	assert.Equal(t, "list<list<string>>", run(t, `PRINT 'type'([['a']]);`))
	// `type` reports the static type without evaluating its argument.
	assert.Equal(t, "number", run(t, `PRINT 'type'(1 / 0);`))
}

func TestBuiltin_Length(t *testing.T) {
	assert.Equal(t, "3", run(t, `PRINT 'length'('abc');`))
	assert.Equal(t, "2", run(t, `PRINT 'length'([1, 2]);`))
	assert.Equal(t, "0", run(t, `PRINT 'length'('');`))

	err := runErr(t, `PRINT 'length'(5);`)
	assert.Contains(t, err.Error(), "'length' requires a string or list argument, got 'number'")
}

func TestBuiltin_StringFunctions(t *testing.T) {
	assert.Equal(t, "ABC", run(t, `PRINT 'upper'('abc');`))
	assert.Equal(t, "abc", run(t, `PRINT 'lower'('ABC');`))
	assert.Equal(t, "x", run(t, `PRINT 'trim'('  x  ');`))
	assert.Equal(t, "b_c", run(t, `PRINT 'replace'('a_c', 'a', 'b');`))

	err := runErr(t, `PRINT 'upper'(5);`)
	assert.Contains(t, err.Error(), "'upper' requires a string argument, got 'number'")
	err = runErr(t, `PRINT 'replace'('a', 'b', 3);`)
	assert.Contains(t, err.Error(), "third argument")
}

func TestBuiltin_Contains(t *testing.T) {
	assert.Equal(t, "true", run(t, `PRINT 'contains'('haystack', 'st');`))
	assert.Equal(t, "false", run(t, `PRINT 'contains'('haystack', 'xyz');`))
	assert.Equal(t, "true", run(t, `PRINT 'contains'([1, 2, 3], 2);`))
	assert.Equal(t, "false", run(t, `PRINT 'contains'([1, 2, 3], 9);`))

	err := runErr(t, `PRINT 'contains'([1, 2], 'x');`)
	assert.Contains(t, err.Error(), "needle to be of the same type")
	err = runErr(t, `PRINT 'contains'(1, 2);`)
	assert.Contains(t, err.Error(), "'contains' requires either both arguments to be strings")
}

func TestBuiltin_StartsEndsWith(t *testing.T) {
	assert.Equal(t, "true", run(t, `PRINT 'starts_with'('foobar', 'foo');`))
	assert.Equal(t, "false", run(t, `PRINT 'starts_with'('foobar', 'bar');`))
	assert.Equal(t, "true", run(t, `PRINT 'ends_with'('foobar', 'bar');`))

	err := runErr(t, `PRINT 'starts_with'('x', 5);`)
	assert.Contains(t, err.Error(), "'starts_with' requires string arguments, got 'string' and 'number'")
}

func TestBuiltin_MathFunctions(t *testing.T) {
	assert.Equal(t, "5", run(t, `PRINT 'abs'(-5);`))
	assert.Equal(t, "2", run(t, `PRINT 'floor'(2.9);`))
	assert.Equal(t, "3", run(t, `PRINT 'ceil'(2.1);`))
	assert.Equal(t, "3", run(t, `PRINT 'sqrt'(9);`))
	assert.Equal(t, "8", run(t, `PRINT 'pow'(2, 3);`))

	err := runErr(t, `PRINT 'sqrt'(-1);`)
	assert.Contains(t, err.Error(), "'sqrt' requires a non-negative argument, got -1")
}

func TestBuiltin_RoundHalfToEven(t *testing.T) {
	assert.Equal(t, "2", run(t, `PRINT 'round'(2.5);`))
	assert.Equal(t, "4", run(t, `PRINT 'round'(3.5);`))
	assert.Equal(t, "3", run(t, `PRINT 'round'(2.6);`))
	assert.Equal(t, "-2", run(t, `PRINT 'round'(-2.5);`))
}

func TestBuiltin_MinMax(t *testing.T) {
	assert.Equal(t, "1", run(t, `PRINT 'min'(3, 1, 2);`))
	assert.Equal(t, "3", run(t, `PRINT 'max'(3, 1, 2);`))
	assert.Equal(t, "7", run(t, `PRINT 'min'(7);`))

	// Single-list form.
	assert.Equal(t, "1", run(t, `PRINT 'min'([3, 1, 2]);`))
	assert.Equal(t, "3", run(t, `PRINT 'max'([3, 1, 2]);`))

	err := runErr(t, `PRINT 'min'(['a']);`)
	assert.Contains(t, err.Error(), "'min' requires number arguments, got list of string")
	err = runErr(t, `PRINT 'min'(1, 'x');`)
	assert.Contains(t, err.Error(), "'min' requires number arguments, got string at position 2")
	err = runErr(t, `PRINT 'min'();`)
	assert.Contains(t, err.Error(), "Expected at least 1 argument(s), got 0")
}

func TestBuiltin_Arity(t *testing.T) {
	err := runErr(t, `PRINT 'upper'('a', 'b');`)
	assert.Contains(t, err.Error(), "Expected 1 argument(s), got 2")
	err = runErr(t, `PRINT 'pow'(2);`)
	assert.Contains(t, err.Error(), "Expected 2 argument(s), got 1")
}

func TestBuiltin_Random(t *testing.T) {
	builtins := NewBuiltins(WithRandomSource(func() float64 { return 0.5 }))
	output, err := runWithBuiltins(t, builtins, `PRINT 'random'(10, 20);`)
	require.NoError(t, err)
	assert.Equal(t, "15", output)
}

func TestBuiltin_Timestamp(t *testing.T) {
	fixed := time.Date(2024, 5, 20, 12, 0, 0, 500_000_000, time.UTC)
	builtins := NewBuiltins(WithClock(func() time.Time { return fixed }))
	output, err := runWithBuiltins(t, builtins, `PRINT 'timestamp'();`)
	require.NoError(t, err)
	assert.Equal(t, "1716206400.5", output)
}

func TestBuiltin_Date(t *testing.T) {
	fixed := time.Date(2024, 5, 20, 14, 7, 9, 0, time.UTC) // a Monday
	builtins := NewBuiltins(WithClock(func() time.Time { return fixed }))

	output, err := runWithBuiltins(t, builtins, `PRINT 'date'('%Y-%m-%d %H:%M:%S');`)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-20 14:07:09", output)

	output, err = runWithBuiltins(t, builtins, `PRINT 'date'('%A %B %j %I%p %%');`)
	require.NoError(t, err)
	assert.Equal(t, "Monday May 141 02PM %", output)

	// Unknown directives pass through verbatim.
	output, err = runWithBuiltins(t, builtins, `PRINT 'date'('%Q');`)
	require.NoError(t, err)
	assert.Equal(t, "%Q", output)
}
