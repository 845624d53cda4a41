package luaext

import (
	"math"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// Bounds used to fold out-of-range numbers onto values every accessor
// rejects, so a huge float never wraps into a valid id or value.
const (
	idCeiling    = math.MaxInt32
	valueCeiling = math.MaxUint32 + 1
)

// toNumber converts v the way Lua arithmetic does: numbers pass through and
// strings holding a numeral are parsed.
func toNumber(v lua.LValue) (float64, bool) {
	switch n := v.(type) {
	case lua.LNumber:
		return float64(n), true
	case lua.LString:
		s := strings.TrimSpace(string(n))
		if s == "" {
			return 0, false
		}
		if hex, neg := hexDigits(s); hex != "" {
			u, err := strconv.ParseUint(hex, 16, 64)
			if err != nil {
				return 0, false
			}
			if neg {
				return -float64(u), true
			}
			return float64(u), true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// hexDigits splits a "0x" numeral into its digits and sign.
func hexDigits(s string) (string, bool) {
	neg := false
	if strings.HasPrefix(s, "-") {
		neg, s = true, s[1:]
	}
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:], neg
	}
	return "", false
}

// truncate rounds f toward zero and clamps it into [-1, ceiling]. NaN and
// infinities map to -1.
func truncate(f float64, ceiling int64) int64 {
	switch {
	case math.IsNaN(f), math.IsInf(f, 0), f < -1:
		return -1
	case f > float64(ceiling):
		return ceiling
	default:
		return int64(f)
	}
}

// argID reads a variable id argument.
func argID(L *lua.LState, n int) (int, bool) {
	f, ok := toNumber(L.Get(n))
	if !ok {
		return 0, false
	}
	return int(truncate(f, idCeiling)), true
}

// argLength reads a string length argument.
func argLength(L *lua.LState, n int) (int, bool) {
	f, ok := toNumber(L.Get(n))
	if !ok {
		return 0, false
	}
	return int(truncate(f, idCeiling)), true
}

// argValue reads a flowint value argument. The range is checked on the
// number as given, so -0.5 or MaxUint32+0.5 never truncate into range.
func argValue(L *lua.LState, n int) (int64, bool) {
	f, ok := toNumber(L.Get(n))
	if !ok {
		return 0, false
	}
	switch {
	case f < 0:
		return -1, true
	case f > math.MaxUint32:
		return valueCeiling, true
	}
	return truncate(f, valueCeiling), true
}

// argString reads a string argument; numbers are converted to their Lua
// string form.
func argString(L *lua.LState, n int) (string, bool) {
	switch v := L.Get(n).(type) {
	case lua.LString:
		return string(v), true
	case lua.LNumber:
		return v.String(), true
	default:
		return "", false
	}
}

// auditValue converts a Lua argument into a value the audit log can
// serialize: integral numbers become int64, everything else a string.
func auditValue(v lua.LValue) any {
	switch x := v.(type) {
	case lua.LNumber:
		f := float64(x)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f)
		}
		return strconv.FormatFloat(f, 'g', -1, 64)
	case lua.LString:
		return string(x)
	case *lua.LNilType, lua.LBool:
		return v.String()
	default:
		return v.Type().String()
	}
}
