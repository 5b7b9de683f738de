package template

import "testing"

func scan(s string) (*Scanner, Context) {
	sc := NewScanner()
	sc.Feed(s)
	return sc, sc.Context(s)
}

func TestScannerStates(t *testing.T) {
	tests := []struct {
		in      string
		state   State
		tag     string
		attr    string
		value   string
		element string
	}{
		{"hello", StateText, "", "", "", ""},
		{"<div>", StateText, "", "", "", "div"},
		{"<div", StateTagName, "div", "", "", ""},
		{"<div ", StateBeforeAttrName, "div", "", "", ""},
		{`<div id`, StateAttrName, "div", "id", "", ""},
		{`<div id `, StateAfterAttrName, "div", "id", "", ""},
		{`<div id=`, StateBeforeAttrValue, "div", "id", "", ""},
		{`<div id="a b`, StateAttrValueQuoted, "div", "id", "a b", ""},
		{`<div id='x`, StateAttrValueQuoted, "div", "id", "x", ""},
		{`<div id=x`, StateAttrValueUnquoted, "div", "id", "x", ""},
		{`<div id="x" `, StateBeforeAttrName, "div", "", "", ""},
		{`<div id="x">`, StateText, "", "", "", "div"},
		{`<br/>`, StateText, "", "", "", ""},
		{`<div><br>`, StateText, "", "", "", "div"},
		{`<div><span></span>`, StateText, "", "", "", "div"},
		{`<div></div>`, StateText, "", "", "", ""},
		{`<ul><li><b></li>`, StateText, "", "", "", "ul"},
		{`<div><!-- <p> `, StateComment, "", "", "", "div"},
		{`<div><!-- <p> -->`, StateText, "", "", "", "div"},
		{`<!DOCTYPE html><p>`, StateText, "", "", "", "p"},
		{`<script>if (a<b) {`, StateRawText, "", "", "", "script"},
		{`<script>a<b</SCRIPT>`, StateText, "", "", "", ""},
		{`<div ONCLICK="`, StateAttrValueQuoted, "div", "onclick", "", ""},
		{`a < b`, StateText, "", "", "", ""},
		{`<input disabled/`, StateSelfClosing, "input", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, ctx := scan(tt.in)
			if ctx.State != tt.state {
				t.Errorf("State = %v, want %v", ctx.State, tt.state)
			}
			if ctx.Tag != tt.tag {
				t.Errorf("Tag = %q, want %q", ctx.Tag, tt.tag)
			}
			if ctx.Attr != tt.attr {
				t.Errorf("Attr = %q, want %q", ctx.Attr, tt.attr)
			}
			if ctx.AttrValue != tt.value {
				t.Errorf("AttrValue = %q, want %q", ctx.AttrValue, tt.value)
			}
			if ctx.Element != tt.element {
				t.Errorf("Element = %q, want %q", ctx.Element, tt.element)
			}
		})
	}
}

func TestScannerFeedIsIncremental(t *testing.T) {
	whole := `<div class="a"><p>text</p><input value='x'>`
	sc := NewScanner()
	for i := 0; i < len(whole); i++ {
		sc.Feed(whole[i : i+1])
	}
	_, want := scan(whole)
	if got := sc.Context(whole); got != want {
		t.Errorf("byte-wise Context = %+v, want %+v", got, want)
	}
}

func TestScannerTextFlags(t *testing.T) {
	tests := []struct {
		in       string
		endsTag  bool
		trailing bool
	}{
		{"<p>", true, false},
		{"<p>  \n", true, false},
		{"<p>Count: ", false, true},
		{"<p><b>x</b> tail", false, true},
		{"", false, false},
	}
	for _, tt := range tests {
		_, ctx := scan(tt.in)
		if ctx.EndsTag != tt.endsTag || ctx.TrailingText != tt.trailing {
			t.Errorf("%q: EndsTag=%v TrailingText=%v, want %v %v",
				tt.in, ctx.EndsTag, ctx.TrailingText, tt.endsTag, tt.trailing)
		}
	}
}

func TestScannerTrimSpread(t *testing.T) {
	sc, _ := scan("<div ...")
	if n := sc.TrimSpread(); n != 3 {
		t.Fatalf("TrimSpread() = %d, want 3", n)
	}
	if sc.state != StateBeforeAttrName {
		t.Errorf("state = %v after TrimSpread", sc.state)
	}

	sc, _ = scan("<div ... ")
	if n := sc.TrimSpread(); n != 4 {
		t.Errorf("TrimSpread() = %d, want 4", n)
	}

	sc, _ = scan("<div id")
	if n := sc.TrimSpread(); n != 0 {
		t.Errorf("TrimSpread() = %d on a normal attribute", n)
	}
}

func TestScannerRecordsNameEnd(t *testing.T) {
	sc, _ := scan(`<section id="a"><p>`)
	if len(sc.open) != 2 {
		t.Fatalf("open = %d, want 2", len(sc.open))
	}
	if sc.open[0].nameEnd != len("<section") {
		t.Errorf("section nameEnd = %d", sc.open[0].nameEnd)
	}
	if sc.open[1].nameEnd != len(`<section id="a"><p`) {
		t.Errorf("p nameEnd = %d", sc.open[1].nameEnd)
	}

	sc.shift(3, 10)
	if sc.open[0].nameEnd != len("<section")+10 || sc.pos != len(`<section id="a"><p>`)+10 {
		t.Error("shift did not move offsets after the insertion point")
	}
}
