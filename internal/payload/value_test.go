package payload

import (
	"encoding/json"
	"testing"
)

func TestDecode_PreservesOrderAndLiterals(t *testing.T) {
	t.Parallel()

	v, err := DecodeString(`{"z":1,"a":{"m":3571.20,"b":[true,null,"x"]},"k":1e3}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	obj, ok := v.Object()
	if !ok {
		t.Fatalf("want object, got %s", v.Kind())
	}
	keys := obj.Keys()
	if len(keys) != 3 || keys[0] != "z" || keys[1] != "a" || keys[2] != "k" {
		t.Fatalf("key order lost: %v", keys)
	}
	inner, _ := obj.Object("a")
	if got := inner.Value("m").Text(); got != "3571.20" {
		t.Fatalf("number literal want=3571.20 got=%s", got)
	}
	list, _ := inner.Items("b")
	if len(list) != 3 || list[0].Kind() != KindBool || !list[1].IsNull() || list[2].Text() != "x" {
		t.Fatalf("unexpected list: %s", inner.Value("b").Text())
	}

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"z":1,"a":{"m":3571.20,"b":[true,null,"x"]},"k":1e3}` {
		t.Fatalf("round trip changed output: %s", data)
	}
}

func TestDecode_Invalid(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "{", `{"a":}`, "not json"} {
		if _, err := DecodeString(in); err == nil {
			t.Fatalf("%q should fail", in)
		}
	}
}

func TestValue_Decimal(t *testing.T) {
	t.Parallel()

	cases := []struct {
		v    Value
		want string
		ok   bool
	}{
		{Number("1035.65"), "1035.65", true},
		{String("$17,856.00"), "17856", true},
		{String(" 61.85 "), "61.85", true},
		{String("FREE"), "0", false},
		{String(""), "0", false},
		{Bool(true), "0", false},
	}
	for _, tc := range cases {
		d, ok := tc.v.Decimal()
		if ok != tc.ok || d.String() != tc.want {
			t.Fatalf("%s(%q) want=%s/%v got=%s/%v", tc.v.Kind(), tc.v.Text(), tc.want, tc.ok, d.String(), ok)
		}
	}
}

func TestValue_Truthy(t *testing.T) {
	t.Parallel()

	truthy := []Value{String("a"), Number("1"), Number("0.5"), Bool(true), List(Null()), Obj(func() *Object {
		o := NewObject()
		o.Set("k", Null())
		return o
	}())}
	for _, v := range truthy {
		if !v.Truthy() {
			t.Fatalf("%s %q should be truthy", v.Kind(), v.Text())
		}
	}
	falsy := []Value{Null(), String(""), Number("0"), Number("0.00"), Bool(false), List(), Obj(nil)}
	for _, v := range falsy {
		if v.Truthy() {
			t.Fatalf("%s %q should be falsy", v.Kind(), v.Text())
		}
	}
}

func TestObject_SetDeleteEqual(t *testing.T) {
	t.Parallel()

	a := NewObject()
	a.Set("x", String("1"))
	a.Set("y", Number("2"))
	a.Set("x", String("3"))
	if keys := a.Keys(); len(keys) != 2 || keys[0] != "x" {
		t.Fatalf("overwrite should keep position: %v", keys)
	}

	b := NewObject()
	b.Set("y", Number("2"))
	b.Set("x", String("3"))
	if !a.Equal(b) {
		t.Fatalf("equal objects with different order should compare equal")
	}

	b.Delete("x")
	if b.Has("x") || b.Len() != 1 || a.Equal(b) {
		t.Fatalf("delete failed: %v", b.Keys())
	}

	var zero Object
	zero.Set("lazy", Null())
	if !zero.Has("lazy") {
		t.Fatalf("zero-value object should accept Set")
	}
}

func TestValue_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	var holder struct {
		Payload Value `json:"payload"`
	}
	if err := json.Unmarshal([]byte(`{"payload":{"b":1,"a":2}}`), &holder); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	obj, ok := holder.Payload.Object()
	if !ok || obj.Keys()[0] != "b" {
		t.Fatalf("unexpected payload: %s", holder.Payload.Text())
	}
}
