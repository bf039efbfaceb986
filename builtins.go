// builtins.go: the builtin function registry.
//
// Builtins receive their arguments unevaluated so that `type` can report the
// static type of its argument; every other builtin evaluates its arguments
// first thing. All builtins return their result as a string, which the call
// expression wraps back into a string value.
//
// The registry is an explicit value handed to the parser and carried by each
// compiled Script. There is no package-level mutable state; hosts that need
// deterministic time or randomness inject them via options.
package scripting

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// arityVariadic marks builtins accepting any number of arguments at or
	// above a minimum.
	arityVariadic = -1
)

type builtinFunc func(ec *execContext, args []Expression) (string, error)

type builtinFunction struct {
	arity   int // arityVariadic for variadic builtins
	minArgs int // only meaningful when variadic
	fn      builtinFunc
}

// Builtins is the fixed name-to-implementation table of builtin functions.
type Builtins struct {
	table     map[string]builtinFunction
	now       func() time.Time
	randFloat func() float64
}

// BuiltinsOption configures a Builtins registry.
type BuiltinsOption func(*Builtins)

// WithClock overrides the time source used by `timestamp` and `date`.
func WithClock(now func() time.Time) BuiltinsOption {
	return func(b *Builtins) { b.now = now }
}

// WithRandomSource overrides the uniform [0, 1) source used by `random`.
func WithRandomSource(randFloat func() float64) BuiltinsOption {
	return func(b *Builtins) { b.randFloat = randFloat }
}

// NewBuiltins creates the builtin registry.
func NewBuiltins(opts ...BuiltinsOption) *Builtins {
	b := &Builtins{
		now:       func() time.Time { return time.Now().UTC() },
		randFloat: rand.Float64,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.table = map[string]builtinFunction{
		"type":        {arity: 1, fn: builtinType},
		"length":      {arity: 1, fn: builtinLength},
		"upper":       {arity: 1, fn: builtinUpper},
		"lower":       {arity: 1, fn: builtinLower},
		"trim":        {arity: 1, fn: builtinTrim},
		"replace":     {arity: 3, fn: builtinReplace},
		"contains":    {arity: 2, fn: builtinContains},
		"starts_with": {arity: 2, fn: builtinStartsWith},
		"ends_with":   {arity: 2, fn: builtinEndsWith},
		"abs":         {arity: 1, fn: builtinAbs},
		"min":         {arity: arityVariadic, minArgs: 1, fn: builtinMin},
		"max":         {arity: arityVariadic, minArgs: 1, fn: builtinMax},
		"round":       {arity: 1, fn: builtinRound},
		"floor":       {arity: 1, fn: builtinFloor},
		"ceil":        {arity: 1, fn: builtinCeil},
		"sqrt":        {arity: 1, fn: builtinSqrt},
		"pow":         {arity: 2, fn: builtinPow},
		"random":      {arity: 2, fn: b.builtinRandom},
		"timestamp":   {arity: 0, fn: b.builtinTimestamp},
		"date":        {arity: 1, fn: b.builtinDate},
	}
	return b
}

// Has reports whether a builtin with the given name exists.
func (b *Builtins) Has(name string) bool {
	_, ok := b.table[name]
	return ok
}

// Names returns the builtin names in no particular order.
func (b *Builtins) Names() []string {
	names := make([]string, 0, len(b.table))
	for name := range b.table {
		names = append(names, name)
	}
	return names
}

func (b *Builtins) lookup(name string) (builtinFunction, bool) {
	fn, ok := b.table[name]
	return fn, ok
}

// callBuiltin checks the arity contract and dispatches.
func (ec *execContext) callBuiltin(name string, builtin builtinFunction, args []Expression) (string, error) {
	if builtin.arity == arityVariadic {
		if len(args) < builtin.minArgs {
			return "", rtErrf("Expected at least %d argument(s), got %d", builtin.minArgs, len(args))
		}
	} else if len(args) != builtin.arity {
		return "", rtErrf("Expected %d argument(s), got %d", builtin.arity, len(args))
	}
	return builtin.fn(ec, args)
}

func (ec *execContext) evalArgs(args []Expression) ([]Value, error) {
	values := make([]Value, 0, len(args))
	for _, arg := range args {
		value, err := ec.eval(arg)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// `type` reports the static type of its argument, not the runtime one.
func builtinType(_ *execContext, args []Expression) (string, error) {
	argumentType, err := staticTypeOf(args[0])
	if err != nil {
		return "", err
	}
	return argumentType.String(), nil
}

func builtinLength(ec *execContext, args []Expression) (string, error) {
	value, err := ec.eval(args[0])
	if err != nil {
		return "", err
	}
	switch value.Tag {
	case VString:
		return strconv.Itoa(utf8.RuneCountInString(value.Str)), nil
	case VList:
		return strconv.Itoa(len(value.List)), nil
	default:
		return "", rtErrf("'length' requires a string or list argument, got '%s'", value.Type())
	}
}

func stringArg(ec *execContext, arg Expression, name string) (string, error) {
	value, err := ec.eval(arg)
	if err != nil {
		return "", err
	}
	if value.Tag != VString {
		return "", rtErrf("'%s' requires a string argument, got '%s'", name, value.Type())
	}
	return value.Str, nil
}

func numberArg(ec *execContext, arg Expression, name string) (float64, error) {
	value, err := ec.eval(arg)
	if err != nil {
		return 0, err
	}
	if value.Tag != VNumber {
		return 0, rtErrf("'%s' requires a number argument, got %s", name, value.Type())
	}
	return value.Num, nil
}

func builtinUpper(ec *execContext, args []Expression) (string, error) {
	s, err := stringArg(ec, args[0], "upper")
	if err != nil {
		return "", err
	}
	return strings.ToUpper(s), nil
}

func builtinLower(ec *execContext, args []Expression) (string, error) {
	s, err := stringArg(ec, args[0], "lower")
	if err != nil {
		return "", err
	}
	return strings.ToLower(s), nil
}

func builtinTrim(ec *execContext, args []Expression) (string, error) {
	s, err := stringArg(ec, args[0], "trim")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

func builtinReplace(ec *execContext, args []Expression) (string, error) {
	text, err := ec.eval(args[0])
	if err != nil {
		return "", err
	}
	if text.Tag != VString {
		return "", rtErrf("'replace' can only replace substrings in string arguments, got '%s' instead",
			text.Type())
	}
	old, err := ec.eval(args[1])
	if err != nil {
		return "", err
	}
	if old.Tag != VString {
		return "", rtErrf(
			"'replace' requires a string as the second argument for the substring to be replaced, got '%s' instead",
			old.Type())
	}
	replacement, err := ec.eval(args[2])
	if err != nil {
		return "", err
	}
	if replacement.Tag != VString {
		return "", rtErrf(
			"'replace' requires a string as the third argument for the replacement substring, got '%s' instead",
			replacement.Type())
	}
	return strings.ReplaceAll(text.Str, old.Str, replacement.Str), nil
}

// `contains` is either a substring test (string, string) or a membership
// test (list, needle) with deep element equality.
func builtinContains(ec *execContext, args []Expression) (string, error) {
	haystack, err := ec.eval(args[0])
	if err != nil {
		return "", err
	}
	needle, err := ec.eval(args[1])
	if err != nil {
		return "", err
	}
	switch {
	case haystack.Tag == VString && needle.Tag == VString:
		return boolString(strings.Contains(haystack.Str, needle.Str)), nil
	case haystack.Tag == VList:
		if !needle.Type().Equals(haystack.Elem) {
			return "", rtErrf(
				"'contains' requires the needle to be of the same type as the elements of the haystack list, got '%s' and '%s'",
				needle.Type(), haystack.Type())
		}
		for _, element := range haystack.List {
			if needle.Equals(element) {
				return boolString(true), nil
			}
		}
		return boolString(false), nil
	default:
		return "", rtErrf("'contains' requires either both arguments to be strings, " +
			"or the first argument to be a list and the second argument to be a value")
	}
}

func builtinStartsWith(ec *execContext, args []Expression) (string, error) {
	text, err := ec.eval(args[0])
	if err != nil {
		return "", err
	}
	prefix, err := ec.eval(args[1])
	if err != nil {
		return "", err
	}
	if text.Tag != VString || prefix.Tag != VString {
		return "", rtErrf("'starts_with' requires string arguments, got '%s' and '%s'",
			text.Type(), prefix.Type())
	}
	return boolString(strings.HasPrefix(text.Str, prefix.Str)), nil
}

func builtinEndsWith(ec *execContext, args []Expression) (string, error) {
	text, err := ec.eval(args[0])
	if err != nil {
		return "", err
	}
	suffix, err := ec.eval(args[1])
	if err != nil {
		return "", err
	}
	if text.Tag != VString || suffix.Tag != VString {
		return "", rtErrf("'ends_with' requires string arguments, got '%s' and '%s'",
			text.Type(), suffix.Type())
	}
	return boolString(strings.HasSuffix(text.Str, suffix.Str)), nil
}

func builtinAbs(ec *execContext, args []Expression) (string, error) {
	n, err := numberArg(ec, args[0], "abs")
	if err != nil {
		return "", err
	}
	return formatNumber(math.Abs(n)), nil
}

// minMax implements `min`/`max`: variadic numbers, or a single list<number>.
func minMax(ec *execContext, args []Expression, name string, better func(a, b float64) bool) (string, error) {
	values, err := ec.evalArgs(args)
	if err != nil {
		return "", err
	}
	numbers := make([]float64, 0, len(values))
	if len(values) == 1 && values[0].Tag == VList {
		list := values[0]
		if list.Elem.Kind != KindNumber {
			return "", rtErrf("'%s' requires number arguments, got list of %s", name, list.Elem)
		}
		if len(list.List) == 0 {
			return "", rtErrf("'%s' requires a non-empty list", name)
		}
		for _, element := range list.List {
			numbers = append(numbers, element.Num)
		}
	} else {
		for i, value := range values {
			if value.Tag != VNumber {
				return "", rtErrf("'%s' requires number arguments, got %s at position %d",
					name, value.Type(), i+1)
			}
			numbers = append(numbers, value.Num)
		}
	}
	best := numbers[0]
	for _, n := range numbers[1:] {
		if better(n, best) {
			best = n
		}
	}
	return formatNumber(best), nil
}

func builtinMin(ec *execContext, args []Expression) (string, error) {
	return minMax(ec, args, "min", func(a, b float64) bool { return a < b })
}

func builtinMax(ec *execContext, args []Expression) (string, error) {
	return minMax(ec, args, "max", func(a, b float64) bool { return a > b })
}

func builtinRound(ec *execContext, args []Expression) (string, error) {
	n, err := numberArg(ec, args[0], "round")
	if err != nil {
		return "", err
	}
	// Banker's rounding: halves go to the nearest even integer.
	return formatNumber(math.RoundToEven(n)), nil
}

func builtinFloor(ec *execContext, args []Expression) (string, error) {
	n, err := numberArg(ec, args[0], "floor")
	if err != nil {
		return "", err
	}
	return formatNumber(math.Floor(n)), nil
}

func builtinCeil(ec *execContext, args []Expression) (string, error) {
	n, err := numberArg(ec, args[0], "ceil")
	if err != nil {
		return "", err
	}
	return formatNumber(math.Ceil(n)), nil
}

func builtinSqrt(ec *execContext, args []Expression) (string, error) {
	n, err := numberArg(ec, args[0], "sqrt")
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", rtErrf("'sqrt' requires a non-negative argument, got %s", formatNumber(n))
	}
	return formatNumber(math.Sqrt(n)), nil
}

func builtinPow(ec *execContext, args []Expression) (string, error) {
	values, err := ec.evalArgs(args)
	if err != nil {
		return "", err
	}
	for i, value := range values {
		if value.Tag != VNumber {
			return "", rtErrf("'pow' requires number arguments, got %s at position %d", value.Type(), i+1)
		}
	}
	return formatNumber(math.Pow(values[0].Num, values[1].Num)), nil
}

func (b *Builtins) builtinRandom(ec *execContext, args []Expression) (string, error) {
	values, err := ec.evalArgs(args)
	if err != nil {
		return "", err
	}
	for i, value := range values {
		if value.Tag != VNumber {
			return "", rtErrf("'random' requires number arguments, got %s at position %d", value.Type(), i+1)
		}
	}
	low, high := values[0].Num, values[1].Num
	return formatNumber(low + b.randFloat()*(high-low)), nil
}

func (b *Builtins) builtinTimestamp(_ *execContext, _ []Expression) (string, error) {
	seconds := float64(b.now().UnixNano()) / float64(time.Second)
	return formatNumber(seconds), nil
}

func (b *Builtins) builtinDate(ec *execContext, args []Expression) (string, error) {
	value, err := ec.eval(args[0])
	if err != nil {
		return "", err
	}
	if value.Tag != VString {
		return "", rtErrf("'date' requires a string argument, got %s", value.Type())
	}
	return strftime(b.now(), value.Str), nil
}

// strftime formats t with strftime-style directives. Unknown directives pass
// through verbatim.
func strftime(t time.Time, pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		if pattern[i] != '%' || i+1 >= len(pattern) {
			b.WriteByte(pattern[i])
			continue
		}
		i++
		switch pattern[i] {
		case 'Y':
			fmt.Fprintf(&b, "%04d", t.Year())
		case 'y':
			fmt.Fprintf(&b, "%02d", t.Year()%100)
		case 'm':
			fmt.Fprintf(&b, "%02d", int(t.Month()))
		case 'd':
			fmt.Fprintf(&b, "%02d", t.Day())
		case 'H':
			fmt.Fprintf(&b, "%02d", t.Hour())
		case 'I':
			hour := t.Hour() % 12
			if hour == 0 {
				hour = 12
			}
			fmt.Fprintf(&b, "%02d", hour)
		case 'M':
			fmt.Fprintf(&b, "%02d", t.Minute())
		case 'S':
			fmt.Fprintf(&b, "%02d", t.Second())
		case 'p':
			if t.Hour() < 12 {
				b.WriteString("AM")
			} else {
				b.WriteString("PM")
			}
		case 'a':
			b.WriteString(t.Format("Mon"))
		case 'A':
			b.WriteString(t.Format("Monday"))
		case 'b':
			b.WriteString(t.Format("Jan"))
		case 'B':
			b.WriteString(t.Format("January"))
		case 'j':
			fmt.Fprintf(&b, "%03d", t.YearDay())
		case '%':
			b.WriteByte('%')
		default:
			b.WriteByte('%')
			b.WriteByte(pattern[i])
		}
	}
	return b.String()
}
