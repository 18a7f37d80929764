package rulespec

import (
	"strings"
	"testing"

	"github.com/chosenoffset/spyglass/pkg/spyglass"
)

func TestCompileKinds(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind spyglass.RuleKind
	}{
		{"prefix", `prefix "on"`, spyglass.MatchPrefix},
		{"suffix", `suffix "Handler"`, spyglass.MatchSuffix},
		{"includes", `includes "fetch"`, spyglass.MatchIncludes},
		{"regex", `regex "^get[A-Z]"`, spyglass.MatchRegex},
		{"all", `all`, spyglass.MatchPredicate},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rules, err := Compile(tc.src)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			if len(rules) != 1 {
				t.Fatalf("got %d rules", len(rules))
			}
			if rules[0].Kind != tc.kind {
				t.Errorf("kind = %v, want %v", rules[0].Kind, tc.kind)
			}
		})
	}
}

func TestCompileMultipleDeclarations(t *testing.T) {
	src := `
# watch dom handlers
prefix "on" => strip
suffix "Listener"; includes "fetch"
`
	rules, err := Compile(src)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("got %d rules, want 3", len(rules))
	}
	if rules[0].Transform == nil {
		t.Error("strip transform not attached")
	}
	if out := rules[0].Transform("onClick", nil, rules[0].Pattern); out != "Click" {
		t.Errorf("strip output = %q, want Click", out)
	}
}

func TestCompileLowerTransform(t *testing.T) {
	rules, err := Compile(`includes "Fetch" => lower`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if out := rules[0].Transform("doFetchNow", nil, rules[0].Pattern); out != "dofetchnow" {
		t.Errorf("lower output = %q", out)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown kind", `whatever "x"`, "unknown rule kind"},
		{"missing pattern", `prefix`, "expected quoted pattern"},
		{"empty pattern", `prefix ""`, "empty pattern"},
		{"bad regex", `regex "["`, "bad regex"},
		{"unknown transform", `prefix "on" => upper`, "unknown transform"},
		{"strip on includes", `includes "on" => strip`, "strip transform requires"},
		{"dangling arrow", `prefix "on" =>`, "expected transform name"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compile(tc.src)
			if err == nil {
				t.Fatal("Compile succeeded, want error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestParserCollectsAllErrors(t *testing.T) {
	p := New(NewLexer("bogus \"x\"\nnonsense \"y\""))
	p.ParseRules()
	if len(p.Errors()) != 2 {
		t.Errorf("got %d errors, want 2: %v", len(p.Errors()), p.Errors())
	}
}

func TestCompileRecoversAfterBadLine(t *testing.T) {
	p := New(NewLexer("bogus \"x\"\nprefix \"on\""))
	rules := p.ParseRules()
	if len(rules) != 1 {
		t.Errorf("got %d rules after recovery, want 1", len(rules))
	}
	if len(p.Errors()) != 1 {
		t.Errorf("got %d errors, want 1", len(p.Errors()))
	}
}

func TestLexerStringEscapes(t *testing.T) {
	rules, err := Compile(`regex "^\"quoted\""`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !rules[0].Regex.MatchString(`"quoted"`) {
		t.Error("escaped quote pattern does not match")
	}
}

func TestMustCompilePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustCompile did not panic on bad input")
		}
	}()
	MustCompile(`prefix`)
}
