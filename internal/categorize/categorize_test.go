package categorize

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCategorize(t *testing.T) {
	c := Default()
	cases := map[string]string{
		"IFOOD *RESTAURANTE":  "alimentacao",
		"UBER EATS":           "alimentacao",
		"UBER *TRIP":          "transporte",
		"NETFLIX.COM":         "assinaturas",
		"AMAZON PRIME CANAL":  "assinaturas",
		"AMAZON MARKETPLACE":  "compras",
		"DROGASIL 123":        "saude",
		"LOJA XPTO":           "compras",
		"IOF COMPRA EXTERIOR": "taxas",
	}
	for desc, want := range cases {
		if got := c.Categorize(desc); got != want {
			t.Fatalf("Categorize(%q) = %q, want %q", desc, got, want)
		}
	}
}

func TestFirstMatchWins(t *testing.T) {
	c := New([]Rule{
		{Category: "Lazer", Keywords: []string{"SHOW"}},
		{Category: "educacao", Keywords: []string{"show", "curso"}},
	}, "outros")

	if got := c.Categorize("ingresso show"); got != "lazer" {
		t.Fatalf("got %q, want lazer", got)
	}
	if got := c.Categorize("curso online"); got != "educacao" {
		t.Fatalf("got %q, want educacao", got)
	}
	if got := c.Categorize("nada"); got != "outros" {
		t.Fatalf("got %q, want fallback", got)
	}
	cats := c.Categories()
	if len(cats) != 3 || cats[0] != "lazer" || cats[2] != "outros" {
		t.Fatalf("Categories() = %v", cats)
	}
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.toml")
	content := `
fallback = "diversos"

[[rule]]
category = "pets"
keywords = ["petz", "cobasi"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if got := c.Categorize("COBASI MORUMBI"); got != "pets" {
		t.Fatalf("got %q", got)
	}
	if got := c.Categorize("IFOOD"); got != "diversos" {
		t.Fatalf("got %q", got)
	}

	empty := filepath.Join(dir, "empty.toml")
	if err := os.WriteFile(empty, []byte(`fallback = "x"`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRules(empty); !errors.Is(err, ErrNoRules) {
		t.Fatalf("expected ErrNoRules, got %v", err)
	}

	if c, err := LoadRules(""); err != nil || c.Categorize("netflix") != "assinaturas" {
		t.Fatalf("empty path must fall back to defaults (err=%v)", err)
	}
}
