package yamldoc

import (
	"testing"
)

func TestToScalar(t *testing.T) {
	tests := []struct {
		in      string
		tag     string
		value   string
		encoded string
	}{
		{"true", "!!bool", "true", "true"},
		{"false", "!!bool", "false", "false"},
		{"TRUE", "!!str", "TRUE", `"TRUE"`},
		{"42", "!!int", "42", "42"},
		{"-7", "!!int", "-7", "-7"},
		{"007", "!!str", "007", `"007"`},
		{"0123", "!!str", "0123", `"0123"`},
		{"-0", "!!str", "-0", `"-0"`},
		{"-01.5", "!!str", "-01.5", `"-01.5"`},
		{"0", "!!int", "0", "0"},
		{"0.25", "!!float", "0.25", "0.25"},
		{" 12 ", "!!int", "12", "12"},
		{"3.1400", "!!float", "3.1400", "3.1400"},
		{"0.5", "!!float", "0.5", "0.5"},
		{".5", "!!float", "0.5", "0.5"},
		{"1.", "!!int", "1", "1"},
		{"1e3", "!!int", "1000", "1000"},
		{"1.5e-3", "!!float", "0.0015", "0.0015"},
		{"+1", "!!str", "+1", `"+1"`},
		{"1.2.3", "!!str", "1.2.3", "1.2.3"},
		{"0x1A", "!!str", "0x1A", `"0x1A"`},
		{"99999999999999999999", "!!str", "99999999999999999999", `"99999999999999999999"`},
		{"", "!!str", "", `""`},
		{"hello world", "!!str", "hello world", "hello world"},
		{"null", "!!str", "null", `"null"`},
	}
	for _, tt := range tests {
		n := ToScalar(tt.in)
		if n.Tag != tt.tag || n.Value != tt.value {
			t.Errorf("ToScalar(%q) = %s %q, want %s %q", tt.in, n.Tag, n.Value, tt.tag, tt.value)
			continue
		}
		d := New()
		if err := d.Set(P("v"), n); err != nil {
			t.Fatalf("set: %v", err)
		}
		if got, want := d.String(), "v: "+tt.encoded+"\n"; got != want {
			t.Errorf("ToScalar(%q) encoded as %q, want %q", tt.in, got, want)
		}
	}
}

func TestScalarText(t *testing.T) {
	d := MustParse("a: 3.1400\nb: ~\nc: [1]\nd: 'x'\n")
	cases := map[string]string{"a": "3.1400", "b": "", "c": "", "d": "x", "missing": ""}
	for key, want := range cases {
		if got := ScalarText(d.Get(P(key))); got != want {
			t.Errorf("ScalarText(%s): got %q, want %q", key, got, want)
		}
	}
}

func TestScalarBool(t *testing.T) {
	d := MustParse("a: false\nb: true\nc: nope\n")
	if v, ok := ScalarBool(d.Get(P("a"))); !ok || v {
		t.Errorf("a: got %v %v", v, ok)
	}
	if v, ok := ScalarBool(d.Get(P("b"))); !ok || !v {
		t.Errorf("b: got %v %v", v, ok)
	}
	if _, ok := ScalarBool(d.Get(P("c"))); ok {
		t.Error("c: expected not a bool")
	}
	if _, ok := ScalarBool(nil); ok {
		t.Error("nil: expected not a bool")
	}
}
