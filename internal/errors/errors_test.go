package errors

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "compile error",
			code:    "E101",
			wantMsg: "Interpolation site cannot be classified",
			wantCat: CategoryCompile,
		},
		{
			name:    "hydration error",
			code:    "E141",
			wantMsg: "No sink registered for binding kind",
			wantCat: CategoryHydration,
		},
		{
			name:    "config error",
			code:    "E181",
			wantMsg: "Invalid configuration",
			wantCat: CategoryConfig,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestRefxError_Error(t *testing.T) {
	err := New("E100").WithDetail("3 literals for 3 values")
	want := "E100: Template arity mismatch: 3 literals for 3 values"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	site := New("E101").WithSite(2).WithDetail("")
	if !strings.Contains(site.Error(), "(value 2)") {
		t.Errorf("Error() = %q, want the site index", site.Error())
	}

	plain := Newf(CategoryCLI, "no template %q", "x.html")
	if plain.Error() != `no template "x.html"` {
		t.Errorf("Error() = %q", plain.Error())
	}
}

func TestRefxError_IsByCode(t *testing.T) {
	err := New("E101").WithSite(4)
	if !errors.Is(err, New("E101")) {
		t.Error("errors with the same code should match")
	}
	if errors.Is(err, New("E102")) {
		t.Error("errors with different codes should not match")
	}
	if Code(err) != "E101" || Code(errors.New("x")) != "" {
		t.Error("Code() mismatch")
	}
}

func TestRefxError_Wrap(t *testing.T) {
	inner := errors.New("permission denied")
	err := New("E180").Wrap(inner)

	if !errors.Is(err, inner) {
		t.Error("wrapped error should match with errors.Is")
	}
	if !strings.Contains(err.Error(), "permission denied") {
		t.Errorf("Error() = %q, want the cause", err.Error())
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E180") != nil {
		t.Error("FromError(nil) should return nil")
	}

	orig := New("E181")
	if got := FromError(orig, "E180"); got != orig {
		t.Error("FromError should return an existing RefxError unchanged")
	}

	got := FromError(errors.New("boom"), "E190")
	if got.Code != "E190" || got.Wrapped == nil {
		t.Errorf("FromError = %+v", got)
	}
}

func TestLocation_String(t *testing.T) {
	tests := []struct {
		name string
		loc  *Location
		want string
	}{
		{
			name: "nil location",
			loc:  nil,
			want: "",
		},
		{
			name: "with column",
			loc:  &Location{File: "card.html", Line: 10, Column: 5},
			want: "card.html:10:5",
		},
		{
			name: "without column",
			loc:  &Location{File: "card.html", Line: 10, Column: 0},
			want: "card.html:10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.loc.String()
			if got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWithSourceOffset(t *testing.T) {
	src := "<div>\n  <p>Total ${total} items</p>\n</div>\n"
	offset := strings.Index(src, "${")
	err := New("E101").WithSourceOffset("card.html", src, offset)

	if err.Location.Line != 2 || err.Location.Column != 12 {
		t.Errorf("Location = %s, want card.html:2:12", err.Location)
	}
	if err.ContextStart != 1 || len(err.Context) != 4 {
		t.Errorf("ContextStart=%d Context=%q", err.ContextStart, err.Context)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()

	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "card.html")
	content := `<div class="card">
  <h1>${title}</h1>
  <p>Total ${total} items</p>
</div>
`
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	err := New("E101").
		WithLocation(tmpFile, 3, 14).
		WithSuggestion("Move the value between tags").
		Wrap(errors.New("reactive value in text"))

	formatted := err.Format()

	for _, want := range []string{
		"E101",
		"Interpolation site cannot be classified",
		tmpFile,
		"→    3 │   <p>Total ${total} items</p>",
		"Cause: reactive value in text",
		"Hint: Move the value between tags",
	} {
		if !strings.Contains(formatted, want) {
			t.Errorf("Format() missing %q:\n%s", want, formatted)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("E102").WithLocation("card.html", 10, 5)
	compact := err.FormatCompact()

	want := "card.html:10:5: E102: Content binding outside an element"
	if compact != want {
		t.Errorf("FormatCompact() = %q, want %q", compact, want)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("E101").WithLocation("card.html", 10, 5).WithSite(3).Wrap(errors.New("boom"))

	var got map[string]any
	if jerr := json.Unmarshal([]byte(err.FormatJSON()), &got); jerr != nil {
		t.Fatalf("FormatJSON() is not JSON: %v", jerr)
	}
	want := map[string]any{
		"code":     "E101",
		"category": "compile",
		"message":  err.Message,
		"detail":   err.Detail,
		"location": map[string]any{"file": "card.html", "line": float64(10), "column": float64(5)},
		"site":     float64(3),
		"cause":    "boom",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FormatJSON() mismatch (-want +got):\n%s", diff)
	}
}

func TestGetAllCodes(t *testing.T) {
	codes := GetAllCodes()
	if len(codes) == 0 {
		t.Fatal("GetAllCodes() should return codes")
	}
	if codes[0] != "E100" {
		t.Errorf("codes[0] = %q, want E100 (sorted)", codes[0])
	}
}

func TestGetTemplate(t *testing.T) {
	template, ok := GetTemplate("E161")
	if !ok {
		t.Error("E161 should exist")
	}
	if template.Category != CategoryRuntime {
		t.Error("Template category mismatch")
	}

	_, ok = GetTemplate("E999")
	if ok {
		t.Error("E999 should not exist")
	}
}

func TestRegister(t *testing.T) {
	Register("E999", ErrorTemplate{
		Category: CategoryRuntime,
		Message:  "Custom test error",
		Detail:   "This is a test error",
	})

	err := New("E999")
	if err.Message != "Custom test error" {
		t.Errorf("Message = %q, want %q", err.Message, "Custom test error")
	}

	// Cleanup
	delete(registry, "E999")
}

func TestFormatWrapsDetail(t *testing.T) {
	DisableColors()
	defer DisableColors()

	err := New("E160").WithDetail(strings.Repeat("word ", 40))
	for _, line := range strings.Split(err.Format(), "\n") {
		if len(line) > detailWidth+2 {
			t.Errorf("line exceeds width: %q", line)
		}
	}
}

func TestFprint(t *testing.T) {
	DisableColors()
	defer DisableColors()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"coded", New("E190").WithDetail("page.html"), "ERROR E190: Cannot load template"},
		{"plain", errors.New("boom"), "ERROR: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b strings.Builder
			Fprint(&b, tt.err)
			if !strings.Contains(b.String(), tt.want) {
				t.Errorf("Fprint() = %q, want %q", b.String(), tt.want)
			}
			if strings.Contains(b.String(), "\033[") {
				t.Errorf("Fprint() has ANSI codes with colors disabled: %q", b.String())
			}
		})
	}
}

func TestEnableColors(t *testing.T) {
	EnableColors()
	defer DisableColors()

	if got := New("E100").Format(); !strings.Contains(got, "\033[") {
		t.Errorf("Format() with colors = %q, want ANSI codes", got)
	}
}
