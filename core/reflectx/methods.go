package reflectx

import (
	"reflect"
	"sort"
	"strings"
	"unicode/utf8"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Methods returns the sorted names of the exported methods of v's type.
func Methods(v any) []string {
	t := reflect.TypeOf(v)

	methodNames := make([]string, 0, t.NumMethod())
	for i := 0; i < t.NumMethod(); i++ {
		methodNames = append(methodNames, t.Method(i).Name)
	}

	sort.Strings(methodNames)

	return methodNames
}

func methodType(v any, method string) (reflect.Type, bool) {
	methodVal := reflect.ValueOf(v).MethodByName(method)
	if !methodVal.IsValid() {
		return nil, false
	}
	return methodVal.Type(), true
}

// IsArgOfType checks if the i-th argument of the method is of the same type as argType.
func IsArgOfType(v any, method string, i int, argType any) bool {
	t, ok := methodType(v, method)
	if !ok || i < 0 || i >= t.NumIn() {
		return false
	}

	return t.In(i) == reflect.TypeOf(argType)
}

// MethodParamCounts returns the number of parameters and results of the
// method, or -1, -1 if there is no such method.
func MethodParamCounts(v any, method string) (in int, out int) {
	t, ok := methodType(v, method)
	if !ok {
		return -1, -1
	}

	return t.NumIn(), t.NumOut()
}

// MethodReturnsError checks if the last result of the method is an error.
func MethodReturnsError(v any, method string) bool {
	t, ok := methodType(v, method)
	if !ok || t.NumOut() == 0 {
		return false
	}

	return t.Out(t.NumOut()-1) == errorType
}

// Clone returns a shallow copy of the value a pointer points to, so that
// per-call state set on the copy never reaches the original.
func Clone(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return v
	}

	cp := reflect.New(rv.Elem().Type())
	cp.Elem().Set(rv.Elem())

	return cp.Interface()
}

func lowerFirstChar(s string) string {
	if s == "" {
		return ""
	}

	firstRune, size := utf8.DecodeRuneInString(s)

	return strings.ToLower(string(firstRune)) + s[size:]
}
