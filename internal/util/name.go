// Package util contains internal naming helpers.
//revive:disable:var-naming  // allow 'util' as an internal helpers package name
package util

import (
	"reflect"
	"runtime"
	"strings"
)

// FuncName returns the package-qualified name of fn without its import path,
// e.g. "main.fib" or "store.(*Repo).Load". Closures keep the compiler's
// suffix ("main.main.func1"); method values lose their "-fm" suffix.
// It returns "" for nil or non-function values.
func FuncName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return ""
	}
	name := f.Name()
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, "-fm")
}

// Label wraps name as "label(name)". An empty name yields "label(anonymous)".
func Label(label, name string) string {
	if name == "" {
		name = "anonymous"
	}
	return label + "(" + name + ")"
}
