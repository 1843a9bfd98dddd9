package namespace_test

import (
	"errors"
	"strings"
	"testing"

	"htmlns/namespace"
)

func TestAddNamespace(t *testing.T) {
	tests := []struct {
		name string
		html string
		ns   string
		want string
	}{
		{"plain text", "hello", "X", "hello"},
		{"empty html", "", "X", ""},
		{"empty namespace", "<div>hello</div>", "", "<div>hello</div>"},
		{"regular tag", "<div>hello</div>", "X", `<div class="X">hello</div>`},
		{"empty tag", "<div/>", "X", `<div class="X"/>`},
		{"empty tag with space", "<div />", "X", `<div class="X" />`},
		{"empty tag with space and class", `<div class="A" />`, "X", `<div class="A X" />`},
		{"nested tag", "<div><div>hello</div></div>", "X", `<div class="X"><div>hello</div></div>`},
		{"two tags", "<div>hello</div><div>goodbye</div>", "X", `<div class="X">hello</div><div class="X">goodbye</div>`},
		{"existing class double quotes", `<div class="foo">bar</div>`, "baz", `<div class="foo baz">bar</div>`},
		{"existing class single quotes", `<div class='foo'>bar</div>`, "baz", `<div class='foo baz'>bar</div>`},
		{"other attributes are kept",
			`<div id="id" class="foo" style="display:none;">bar</div>`, "baz",
			`<div id="id" class="foo baz" style="display:none;">bar</div>`},
		{"utf-8", `<div class="𝞪">𝟂</div>`, "𝞺", `<div class="𝞪 𝞺">𝟂</div>`},
		{"empty tag with existing class", `<span class="foo"/>`, "bar", `<span class="foo bar"/>`},
		{"newlines in tag", "<div\n\nclass\n\n=\n\n'foo'\n\n>bar</div>", "baz", "<div\n\nclass\n\n=\n\n'foo baz'\n\n>bar</div>"},
		{"apostrophe in double quoted value",
			`<div title="Adam's House" class="foo">bar</div>`, "baz",
			`<div title="Adam's House" class="foo baz">bar</div>`},
		{"double quote in single quoted value",
			`<div title='say "hi"'>bar</div>`, "baz",
			`<div title='say "hi"' class="baz">bar</div>`},
		{"XML prolog", `<?xml version="1.0"?><div>foo</div>`, "X", `<?xml version="1.0"?><div class="X">foo</div>`},
		{"DOCTYPE",
			`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd"><div>foo</div>`, "X",
			`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd"><div class="X">foo</div>`},
		{"lowercase doctype with quoted '>'", `<!doctype x "a>b"><p>1</p>`, "X", `<!doctype x "a>b"><p class="X">1</p>`},
		{"CDATA",
			`<![CDATA[ignore <div class="foo">]] </div>]]><div>foo</div>`, "X",
			`<![CDATA[ignore <div class="foo">]] </div>]]><div class="X">foo</div>`},
		{"comments",
			`<!-- blah <div class="foo">foo</div> - <span/>--><div>foo</div>`, "X",
			`<!-- blah <div class="foo">foo</div> - <span/>--><div class="X">foo</div>`},
		{"CDATA end delimiter", "<![CDATA[ ]>< ]]>", "X", "<![CDATA[ ]>< ]]>"},
		{"comment end delimiter", "<!-- ->< -->", "X", "<!-- ->< -->"},
		{"text around tags", "a <b>c</b> d", "X", `a <b class="X">c</b> d`},
		{"boolean attribute", `<input disabled type="checkbox"/>`, "X", `<input disabled type="checkbox" class="X"/>`},
		{"void element", `<br><p>x</p>`, "X", `<br class="X"><p class="X">x</p>`},
		{"void element nested", `<p>a<br>b</p>`, "X", `<p class="X">a<br>b</p>`},
		{"void end tag tolerated", `<p>a<br></br>b</p>`, "X", `<p class="X">a<br></br>b</p>`},
		{"uppercase class attribute", `<div CLASS="a">b</div>`, "X", `<div CLASS="a X">b</div>`},
		{"only first class attribute", `<div class="a" class="b">c</div>`, "X", `<div class="a X" class="b">c</div>`},
		{"class without value", `<div class>x</div>`, "X", `<div class="X">x</div>`},
		{"class without value before other attribute", `<div class id="a">x</div>`, "X", `<div class="X" id="a">x</div>`},
		{"class without value self-closing", `<br class/>`, "X", `<br class="X"/>`},
		{"bare class followed by valued class", `<div CLASS class="b">x</div>`, "X", `<div CLASS="X" class="b">x</div>`},
		{"empty class value", `<div class="">x</div>`, "X", `<div class="X">x</div>`},
		{"empty single quoted class value", `<div class=''>x</div>`, "X", `<div class='X'>x</div>`},
		{"space before closing bracket", `<div >x</div >`, "X", `<div  class="X">x</div >`},
		{"script content is opaque",
			`<script>if (a < b) { x = "<div>"; }</script><div>y</div>`, "X",
			`<script>if (a < b) { x = "<div>"; }</script><div class="X">y</div>`},
		{"style end tag case insensitive", `<style>p{}</STYLE><p>z</p>`, "X", `<style>p{}</STYLE><p class="X">z</p>`},
		{"self-closing ignored tag", `<script src="a.js"/><p>z</p>`, "X", `<script src="a.js"/><p class="X">z</p>`},
		{"whole document", `<html><head><title>t</title></head><body><div>x</div></body></html>`, "X",
			`<html><head><title>t</title></head><body><div>x</div></body></html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := namespace.AddNamespace(tt.html, tt.ns)
			if err != nil {
				t.Fatalf("AddNamespace(%q, %q) error = %v", tt.html, tt.ns, err)
			}
			if got != tt.want {
				t.Errorf("AddNamespace(%q, %q)\n got: %q\nwant: %q", tt.html, tt.ns, got, tt.want)
			}
		})
	}
}

func TestAddNamespace_IgnoredTags(t *testing.T) {
	for _, tag := range namespace.IgnoredTags {
		html := "<" + tag + ">foo</" + tag + ">"
		got, err := namespace.AddNamespace(html, "X")
		if err != nil {
			t.Errorf("<%s>: unexpected error %v", tag, err)
			continue
		}
		if got != html {
			t.Errorf("<%s>: got %q, want unchanged", tag, got)
		}
	}
}

func TestAddNamespace_Malformed(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{"unclosed tag", "<div>foo"},
		{"closing tag", "foo</div>"},
		{"wrong attr syntax", "<div foo=bar>foo</div>"},
		{"missing closing '>' on last tag", `<div foo="bar">foo</div`},
		{"end of string during attribute value", `<div foo="x`},
		{"end of string during doctype declaration", "<!DOCTYPE"},
		{"unterminated comment", "<!-- foo"},
		{"unterminated CDATA", "<![CDATA[ foo ]>"},
		{"unterminated prolog", `<?xml version="1.0"`},
		{"bare less-than", "<p>a < b</p>"},
		{"empty end tag", "<p>a</></p>"},
		{"slash inside tag", "<p / a>x</p>"},
		{"unterminated script", "<script>var a;"},
		{"end of string inside tag", "<div class"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := namespace.AddNamespace(tt.html, "X")
			if err == nil {
				t.Fatalf("AddNamespace(%q) = %q, expected error", tt.html, got)
			}
			if !errors.Is(err, namespace.ErrMalformed) {
				t.Errorf("error %v does not match ErrMalformed", err)
			}
			var se *namespace.SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("error %T is not *SyntaxError", err)
			}
			if se.Offset < 0 || se.Offset > len(tt.html) {
				t.Errorf("offset %d is out of input range", se.Offset)
			}
			if got != "" {
				t.Errorf("expected no output on error, got %q", got)
			}
		})
	}
}

func TestInject(t *testing.T) {
	ptr := func(s string) *string { return &s }

	t.Run("nil html", func(t *testing.T) {
		got, err := namespace.Inject(nil, ptr("X"))
		if err != nil || got != nil {
			t.Errorf("Inject(nil, X) = %v, %v; want nil, nil", got, err)
		}
	})

	t.Run("nil everything", func(t *testing.T) {
		got, err := namespace.Inject(nil, nil)
		if err != nil || got != nil {
			t.Errorf("Inject(nil, nil) = %v, %v; want nil, nil", got, err)
		}
	})

	t.Run("nil namespace", func(t *testing.T) {
		html := ptr("<div>hello</div>")
		got, err := namespace.Inject(html, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got == nil || *got != "<div>hello</div>" {
			t.Errorf("Inject(html, nil) = %v, want html unchanged", got)
		}
	})

	t.Run("namespace", func(t *testing.T) {
		got, err := namespace.Inject(ptr("<div>hello</div>"), ptr("X"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got == nil || *got != `<div class="X">hello</div>` {
			t.Errorf("Inject() = %v", got)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		got, err := namespace.Inject(ptr("<div>"), ptr("X"))
		if !errors.Is(err, namespace.ErrMalformed) {
			t.Errorf("expected ErrMalformed, got %v", err)
		}
		if got != nil {
			t.Errorf("expected nil result, got %q", *got)
		}
	})
}

func TestAddNamespace_LargeInput(t *testing.T) {
	var sb strings.Builder
	for range 1000 {
		sb.WriteString(`<li class="item"><a href="#">x</a></li>`)
	}
	got, err := namespace.AddNamespace(sb.String(), "list")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := strings.Count(got, `class="item list"`); n != 1000 {
		t.Errorf("namespaced %d elements, want 1000", n)
	}
	if strings.Contains(got, `<a href="#" class`) {
		t.Error("nested element was namespaced")
	}
}
