package component

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestCreateFillsEveryDocumentedKey(t *testing.T) {
	documented := map[Type][]string{
		TypeHeader: {"title", "subtitle", "align", "level", "style"},
		TypeNavbar: {"brand", "links", "sticky", "style"},
		TypeTable:  {"title", "columns", "rows", "striped", "style"},
		TypeForm:   {"title", "triggerLabel", "submitLabel", "fields", "style"},
		TypeFooter: {"text", "textColor", "backgroundColor", "align", "style"},
		TypeButton: {"label", "href", "variant", "style"},
		TypeText:   {"content", "style"},
	}
	for _, typ := range Types() {
		c, err := Create(typ)
		if err != nil {
			t.Fatalf("Create(%s) failed: %v", typ, err)
		}
		if c.Type != typ {
			t.Errorf("Create(%s) returned type %s", typ, c.Type)
		}
		m, err := toMap(c.Properties)
		if err != nil {
			t.Fatalf("toMap(%s) failed: %v", typ, err)
		}
		for _, key := range documented[typ] {
			v, ok := m[key]
			if !ok || v == nil {
				t.Errorf("%s: default properties lack %q", typ, key)
			}
		}
		if err := Validate(c); err != nil {
			t.Errorf("%s: defaults do not validate: %v", typ, err)
		}
	}
}

func TestCreateUnknownType(t *testing.T) {
	_, err := Create(Type("carousel"))
	if err == nil {
		t.Fatal("expected an error for an unknown type")
	}
	if !errors.Is(err, ErrUnknownType) {
		t.Errorf("error %v does not match ErrUnknownType", err)
	}
	var ute *UnknownTypeError
	if !errors.As(err, &ute) || ute.Type != "carousel" {
		t.Errorf("expected *UnknownTypeError for carousel, got %#v", err)
	}
}

func TestParseTypeAliases(t *testing.T) {
	cases := map[string]Type{
		"Header":     TypeHeader,
		"navigation": TypeNavbar,
		" modal ":    TypeForm,
		"paragraph":  TypeText,
	}
	for in, want := range cases {
		got, err := ParseType(in)
		if err != nil {
			t.Errorf("ParseType(%q) failed: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseType(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestCreateIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		c, err := Create(TypeButton)
		if err != nil {
			t.Fatal(err)
		}
		if seen[c.ID] {
			t.Fatalf("duplicate id %s", c.ID)
		}
		if !ValidID(c.ID) {
			t.Fatalf("generated id %s is not a valid element id", c.ID)
		}
		seen[c.ID] = true
	}
}

func TestRenderIsIdempotent(t *testing.T) {
	for _, typ := range Types() {
		c, _ := Create(typ)
		first, err := Render(c)
		if err != nil {
			t.Fatalf("Render(%s) failed: %v", typ, err)
		}
		second, err := Render(c)
		if err != nil {
			t.Fatalf("second Render(%s) failed: %v", typ, err)
		}
		if first != second {
			t.Errorf("%s: render output differs between calls", typ)
		}
		if !strings.Contains(first, `id="`+c.ID+`"`) {
			t.Errorf("%s: markup does not carry the component id", typ)
		}
	}
}

func TestRenderEscapesUserText(t *testing.T) {
	c, _ := Create(TypeHeader)
	if _, err := ApplyPatch(c, nil); err != nil {
		t.Fatal(err)
	}
	props, err := ApplyPatch(c, map[string]any{"title": `<script>alert("x")</script>`})
	if err != nil {
		t.Fatalf("ApplyPatch failed: %v", err)
	}
	c.Properties = props
	out, err := Render(c)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "<script>") {
		t.Errorf("title was not escaped: %s", out)
	}
	if !strings.Contains(out, "&lt;script&gt;") {
		t.Errorf("expected escaped script tag in %s", out)
	}
}

func TestRenderRejectsUnsafeLinks(t *testing.T) {
	c, _ := Create(TypeButton)
	c.Properties.(*ButtonProps).Href = "javascript:alert(1)"
	out, err := Render(c)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "javascript:") {
		t.Errorf("unsafe href was emitted: %s", out)
	}
}

func TestRenderSanitizesRichText(t *testing.T) {
	c, _ := Create(TypeText)
	c.Properties.(*TextProps).Content = `<p onclick="steal()">Hello <b>world</b></p><script>bad()</script>`
	out, err := Render(c)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "onclick") || strings.Contains(out, "bad()") {
		t.Errorf("rich text was not sanitized: %s", out)
	}
	if !strings.Contains(out, "<b>world</b>") {
		t.Errorf("allowed markup was dropped: %s", out)
	}

	c.Properties.(*TextProps).Content = "line one\nline two"
	out, _ = Render(c)
	if !strings.Contains(out, "line one<br>line two") {
		t.Errorf("plain text line breaks were not kept: %s", out)
	}
}

func TestRenderFlagsSelectWithoutOptions(t *testing.T) {
	c, _ := Create(TypeForm)
	form := c.Properties.(*FormProps)
	form.Fields = append(form.Fields, Field{ID: "country", Type: FieldSelect, Label: "Country", Options: []Option{}})

	if _, err := Render(c); err == nil {
		t.Fatal("expected Render to flag a select without options")
	} else if !errors.Is(err, ErrInvalid) {
		t.Errorf("expected a validation error, got %v", err)
	}
	if err := Validate(c); err == nil {
		t.Error("expected Validate to flag a select without options")
	}
	if err := ValidateField(form.Fields[2]); err == nil {
		t.Error("expected ValidateField to flag a select without options")
	}
}

func TestRenderOptionsKeepOrderAndFillGaps(t *testing.T) {
	c, _ := Create(TypeForm)
	form := c.Properties.(*FormProps)
	form.Fields = []Field{{
		ID:    "size",
		Type:  FieldSelect,
		Label: "Size",
		Options: []Option{
			{Value: "l", Text: "Large"},
			{Value: "", Text: "Medium"},
			{Value: "s", Text: ""},
		},
	}}
	out, err := Render(c)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	var values, texts []string
	doc.Find("select#" + FieldDomID(c.ID, "size") + " option").Each(func(_ int, s *goquery.Selection) {
		v, _ := s.Attr("value")
		values = append(values, v)
		texts = append(texts, s.Text())
	})
	if want := []string{"l", "Medium", "s"}; !reflect.DeepEqual(values, want) {
		t.Errorf("option values = %v, want %v", values, want)
	}
	if want := []string{"Large", "Medium", "s"}; !reflect.DeepEqual(texts, want) {
		t.Errorf("option texts = %v, want %v", texts, want)
	}

	form.Fields[0].Options = append(form.Fields[0].Options, Option{})
	if _, err := Render(c); err == nil {
		t.Error("expected an option with neither value nor text to be an error")
	}
}

func TestRenderAppliesStyle(t *testing.T) {
	c, _ := Create(TypeHeader)
	props, err := ApplyPatch(c, map[string]any{"style": map[string]any{"color": "#ff0000", "padding": "4px 8px"}})
	if err != nil {
		t.Fatal(err)
	}
	c.Properties = props
	out, _ := Render(c)
	if !strings.Contains(out, "color: #ff0000") || !strings.Contains(out, "padding: 4px 8px") {
		t.Errorf("style not applied: %s", out)
	}
}

func TestApplyPatchDeepMerges(t *testing.T) {
	c, _ := Create(TypeFooter)
	first, err := ApplyPatch(c, map[string]any{"style": map[string]any{"color": "red"}})
	if err != nil {
		t.Fatal(err)
	}
	c.Properties = first
	second, err := ApplyPatch(c, map[string]any{"style": map[string]any{"margin": "0"}, "text": "Bye"})
	if err != nil {
		t.Fatal(err)
	}
	f := second.(*FooterProps)
	if f.Style.Color != "red" || f.Style.Margin != "0" {
		t.Errorf("nested style was not merged: %+v", f.Style)
	}
	if f.Text != "Bye" || f.Align != "center" || f.TextColor != "#ffffff" {
		t.Errorf("unexpected footer after patch: %+v", f)
	}
	if c.Properties.(*FooterProps).Text == "Bye" {
		t.Error("ApplyPatch modified the component")
	}
}

func TestApplyPatchNullRestoresDefault(t *testing.T) {
	c, _ := Create(TypeHeader)
	c.Properties.(*HeaderProps).Title = "Custom"
	next, err := ApplyPatch(c, map[string]any{"title": nil})
	if err != nil {
		t.Fatal(err)
	}
	if got := next.(*HeaderProps).Title; got != "Page Title" {
		t.Errorf("title = %q, want default", got)
	}
}

func TestApplyPatchRejectsBadInput(t *testing.T) {
	c, _ := Create(TypeForm)
	cases := []struct {
		name  string
		patch map[string]any
	}{
		{"unknown key", map[string]any{"colour": "red"}},
		{"wrong type", map[string]any{"title": 42}},
		{"bad color", map[string]any{"style": map[string]any{"color": "red; background:url(x)"}}},
		{"bad regex", map[string]any{"fields": []any{
			map[string]any{"id": "zip", "type": "text", "label": "Zip", "validation": map[string]any{"pattern": "([0-9", "message": "digits"}},
		}}},
		{"bad field id", map[string]any{"fields": []any{
			map[string]any{"id": "1st", "type": "text", "label": "First"},
		}}},
		{"duplicate field id", map[string]any{"fields": []any{
			map[string]any{"id": "a", "type": "text"},
			map[string]any{"id": "a", "type": "email"},
		}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ApplyPatch(c, tc.patch)
			if err == nil {
				t.Fatal("expected an error")
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %T: %v", err, err)
			}
		})
	}
}

func TestApplyPatchListsReplace(t *testing.T) {
	c, _ := Create(TypeForm)
	next, err := ApplyPatch(c, map[string]any{"fields": []any{
		map[string]any{"id": "phone", "type": "tel", "label": "Phone"},
	}})
	if err != nil {
		t.Fatal(err)
	}
	fields := next.(*FormProps).Fields
	if len(fields) != 1 {
		t.Fatalf("fields = %d, want 1", len(fields))
	}
	if fields[0].Required {
		t.Error("replacement field inherited Required from the default list")
	}
	if fields[0].Options == nil {
		t.Error("options were not normalized to an empty list")
	}
}

func TestUnmarshalFillsMissingKeys(t *testing.T) {
	raw := `{"id":"legacy","type":"navigation","properties":{"brand":"Acme"}}`
	var c Component
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if c.Type != TypeNavbar {
		t.Errorf("type = %s, want navbar", c.Type)
	}
	n := c.Properties.(*NavbarProps)
	if n.Brand != "Acme" {
		t.Errorf("brand = %q", n.Brand)
	}
	if len(n.Links) != 3 {
		t.Errorf("links were not default-filled: %+v", n.Links)
	}

	var bad Component
	if err := json.Unmarshal([]byte(`{"id":"x","type":"slider","properties":{}}`), &bad); !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected unknown type error, got %v", err)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	c, _ := Create(TypeTable)
	c.Properties.(*TableProps).Rows = [][]string{{"Ann", "ann@example.com"}}
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	var back Component
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.ID != c.ID || back.Type != c.Type || !reflect.DeepEqual(back.Properties, c.Properties) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", back.Properties, c.Properties)
	}
}

func TestCloneIsDeep(t *testing.T) {
	c, _ := Create(TypeTable)
	cp := c.Clone()
	cp.Properties.(*TableProps).Columns[0] = "Changed"
	if c.Properties.(*TableProps).Columns[0] == "Changed" {
		t.Error("clone shares the columns slice")
	}
}

func TestEditableProperties(t *testing.T) {
	c, _ := Create(TypeHeader)
	eds := EditableProperties(c)
	byKey := make(map[string]Editable)
	for _, e := range eds {
		byKey[e.Key] = e
	}
	if e, ok := byKey["level"]; !ok || e.Kind != KindEnum || e.Value != "h1" || len(e.Choices) != 3 {
		t.Errorf("unexpected level descriptor: %+v", e)
	}
	if e, ok := byKey["style.color"]; !ok || e.Kind != KindColor {
		t.Errorf("unexpected style.color descriptor: %+v", e)
	}

	other, _ := Create(TypeHeader)
	other.Properties.(*HeaderProps).Title = "Different"
	if len(EditableProperties(other)) != len(eds) {
		t.Error("descriptor list depends on instance state")
	}
}

func TestPropertyFallsBackToDefault(t *testing.T) {
	c := &Component{ID: "h", Type: TypeHeader, Properties: &HeaderProps{Title: "Only title"}}
	if v, ok := Property(c, "title"); !ok || v != "Only title" {
		t.Errorf("title = %v, %v", v, ok)
	}
	if v, ok := Property(c, "level"); !ok || v != "" {
		t.Errorf("level = %v, %v", v, ok)
	}
	if _, ok := Property(c, "nonexistent"); ok {
		t.Error("expected ok=false for a key the type does not have")
	}
	c.Properties = nil
	if v, ok := Property(c, "level"); !ok || v != "h1" {
		t.Errorf("level without properties = %v, %v; want default h1", v, ok)
	}
}

func TestCatalog(t *testing.T) {
	cat := Catalog()
	if len(cat) != len(Types()) {
		t.Fatalf("catalog has %d entries, want %d", len(cat), len(Types()))
	}
	for i, d := range cat {
		if d.Type != Types()[i] {
			t.Errorf("entry %d is %s, want %s", i, d.Type, Types()[i])
		}
		if d.Label == "" || len(d.Properties) == 0 || d.Defaults == nil {
			t.Errorf("incomplete descriptor: %+v", d)
		}
	}
}

func TestCheckPattern(t *testing.T) {
	cases := []struct {
		pattern string
		ok      bool
	}{
		{`^[0-9]{5}$`, true},
		{`^\d{3}-\d{4}$`, true},
		{`^(?=.*[A-Z]).{8,}$`, true},
		{`^(?!admin).*$`, true},
		{`(?<=\$)\d+`, true},
		{`(?<year>\d{4})-\k<year>`, true},
		{`^(a)\1$`, true},
		{`^é+$`, true},
		{`^\/docs\/[^]*$`, true},
		{`^[\w.-]+$`, true},
		{`(?i)^abc$`, false},
		{`(?P<x>a)b`, false},
		{`(?s).`, false},
		{`^a\z`, false},
		{`\Aabc`, false},
		{`\Qa.b\E`, false},
		{`[[:alpha:]]+`, false},
		{`\pL+`, false},
		{`\x{41}`, false},
		{`([0-9`, false},
		{`(a`, false},
		{`abc\`, false},
	}
	for _, tc := range cases {
		err := CheckPattern(tc.pattern)
		if tc.ok && err != nil {
			t.Errorf("CheckPattern(%q) rejected a browser pattern: %v", tc.pattern, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("CheckPattern(%q) accepted a pattern the browser reads differently", tc.pattern)
		}
	}
}

func TestApplyPatchChecksBrowserPatterns(t *testing.T) {
	c, _ := Create(TypeForm)
	field := func(pattern string) map[string]any {
		return map[string]any{"fields": []any{
			map[string]any{"id": "pw", "type": "text", "label": "Password", "validation": map[string]any{"pattern": pattern}},
		}}
	}

	next, err := ApplyPatch(c, field(`^(?=.*[A-Z]).{8,}$`))
	if err != nil {
		t.Fatalf("lookahead pattern rejected: %v", err)
	}
	if got := next.(*FormProps).Fields[0].Validation.Pattern; got != `^(?=.*[A-Z]).{8,}$` {
		t.Errorf("stored pattern = %q", got)
	}

	for _, pattern := range []string{`(?i)^abc$`, `(?P<x>a)b`, `^a\z`} {
		_, err := ApplyPatch(c, field(pattern))
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("pattern %q: expected *ValidationError, got %v", pattern, err)
		}
	}
}
