package placeholders

import (
	"reflect"
	"testing"
)

func mustParse(t *testing.T, text string) []Item {
	t.Helper()
	items, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse(%q): %v", text, err)
	}
	return items
}

func TestNoPlaceholders(t *testing.T) {
	cases := []string{"", "b", "bob"}
	for _, text := range cases {
		got := mustParse(t, text)
		want := []Item{{Kind: Text, Text: text}}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("Parse(%q) = %+v, want %+v", text, got, want)
		}
	}
}

func TestInvalidPlaceholder(t *testing.T) {
	if _, err := Parse("{"); err == nil {
		t.Fatalf("expected error for bare '{'")
	}
	if _, err := Parse("{}"); err == nil {
		t.Fatalf("expected error for empty '{}'")
	}
	got := mustParse(t, "}")
	want := []Item{{Kind: Text, Text: "}"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Parse(%q) = %+v, want %+v", "}", got, want)
	}
}

func TestEscapedLeftBrace(t *testing.T) {
	got := mustParse(t, "{{}")
	want := []Item{{Kind: LeftBrace}, {Kind: Text, Text: "}"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Parse(\"{{}\") = %+v, want %+v", got, want)
	}
}

func TestScie(t *testing.T) {
	got := mustParse(t, "{scie}")
	want := []Item{{Kind: PlaceholderItem, Placeholder: Placeholder{Kind: Scie}}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v want %+v", got, want)
	}

	got = mustParse(t, "a{scie}boot")
	want = []Item{
		{Kind: Text, Text: "a"},
		{Kind: PlaceholderItem, Placeholder: Placeholder{Kind: Scie}},
		{Kind: Text, Text: "boot"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestDottedShortFormFile(t *testing.T) {
	got := mustParse(t, "{dotted.file.name}")
	want := []Item{{Kind: PlaceholderItem, Placeholder: Placeholder{Kind: FileName, Name: "dotted.file.name"}}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestNestedEnvPlaceholder(t *testing.T) {
	text := "{scie.env.embedded={scie.env.doubly_embedded={brackets}}}"
	got := mustParse(t, text)
	if len(got) != 1 || got[0].Kind != PlaceholderItem || got[0].Placeholder.Kind != Env {
		t.Fatalf("got %+v", got)
	}
	wantBody := "embedded={scie.env.doubly_embedded={brackets}}"
	if got[0].Placeholder.Name != wantBody {
		t.Fatalf("env body = %q, want %q", got[0].Placeholder.Name, wantBody)
	}
}

func TestFileHash(t *testing.T) {
	got := mustParse(t, "{scie.files:hash.cpython39}")
	want := Placeholder{Kind: FileHash, Name: "cpython39"}
	if len(got) != 1 || got[0].Placeholder != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestBindings(t *testing.T) {
	got := mustParse(t, "{scie.bindings.fetch}")
	if len(got) != 1 || got[0].Placeholder != (Placeholder{Kind: ScieBindingCmd, Name: "fetch"}) {
		t.Fatalf("got %+v", got)
	}
	got = mustParse(t, "{scie.bindings.fetch:OUTPUT}")
	want := Placeholder{Kind: ScieBindingEnv, Binding: "fetch", Env: "OUTPUT"}
	if len(got) != 1 || got[0].Placeholder != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestUserCacheDir(t *testing.T) {
	got := mustParse(t, "{scie.user.cache_dir=~/.cache}")
	want := Placeholder{Kind: UserCacheDir, Name: "~/.cache"}
	if len(got) != 1 || got[0].Placeholder != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if _, err := Parse("{scie.user.cache_dir}"); err == nil {
		t.Fatalf("expected error for missing fallback")
	}
}

func TestPlatform(t *testing.T) {
	for text, kind := range map[string]Kind{
		"{scie.platform}":      SciePlatform,
		"{scie.platform.arch}": SciePlatformArch,
		"{scie.platform.os}":   SciePlatformOs,
	} {
		got := mustParse(t, text)
		if len(got) != 1 || got[0].Placeholder.Kind != kind {
			t.Fatalf("Parse(%q) = %+v, want kind %v", text, got, kind)
		}
	}
}

func TestEscapeRuleNoBraces(t *testing.T) {
	for _, s := range []string{"plain text", "/usr/bin/python3", ""} {
		items := mustParse(t, s)
		if Render(items) != s {
			t.Fatalf("Render(Parse(%q)) = %q, want %q", s, Render(items), s)
		}
	}
}

func TestEscapeRuleDoubledBraces(t *testing.T) {
	s := "foo{bar"
	escaped := "foo{{bar"
	items := mustParse(t, escaped)
	for _, item := range items {
		if item.Kind == PlaceholderItem {
			t.Fatalf("expected no placeholder substitutions in %q, got %+v", escaped, items)
		}
	}
	var rebuilt string
	for _, item := range items {
		switch item.Kind {
		case Text:
			rebuilt += item.Text
		case LeftBrace:
			rebuilt += "{"
		}
	}
	if rebuilt != s {
		t.Fatalf("rebuilt = %q, want %q", rebuilt, s)
	}
}
