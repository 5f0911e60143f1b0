package trigger

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

func litValue(t *ast.BasicLit) (reflect.Value, error) {
	switch t.Kind {
	case token.STRING, token.CHAR:
		// CHAR accepts single-quoted strings in action arguments
		return reflect.ValueOf(strings.Trim(t.Value, "\"'`")), nil
	case token.INT:
		i, err := strconv.ParseInt(t.Value, 10, 64)
		return reflect.ValueOf(i), err
	case token.FLOAT:
		f, err := strconv.ParseFloat(t.Value, 64)
		return reflect.ValueOf(f), err
	}
	return reflect.Value{}, errors.Errorf("literal %s not understood", t.Value)
}

// DynamicCall dispatches an action string like:
//
//	Switch('relay.light', true)
//
// to the matching method on obj by reflection.
func DynamicCall(obj interface{}, call string) (err error) {
	parsed, _ := parser.ParseExpr(call)
	ce, ok := parsed.(*ast.CallExpr)
	if !ok {
		return errors.Errorf("action %q doesn't parse", call)
	}

	name := fmt.Sprint(ce.Fun)
	method := reflect.ValueOf(obj).MethodByName(name)
	if !method.IsValid() {
		return errors.Errorf("action %s not found", name)
	}

	var args []reflect.Value
	for _, expr := range ce.Args {
		switch t := expr.(type) {
		case *ast.BasicLit:
			v, err := litValue(t)
			if err != nil {
				return err
			}
			args = append(args, v)
		case *ast.Ident:
			switch t.Name {
			case "true":
				args = append(args, reflect.ValueOf(true))
			case "false":
				args = append(args, reflect.ValueOf(false))
			default:
				return errors.Errorf("argument %s not understood", t.Name)
			}
		default:
			return errors.Errorf("argument %v not understood", t)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("calling %s: %s", call, r)
		}
	}()
	method.Call(args)
	return
}

var reSub = regexp.MustCompile(`\$(\w+)`)

// Substitute replaces $var references with values.
func Substitute(s string, vals map[string]string) string {
	return reSub.ReplaceAllStringFunc(s, func(k string) string {
		if v, ok := vals[k[1:]]; ok {
			return v
		}
		return k
	})
}
