package tokenizer

import (
	"reflect"
	"strings"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", []string{}},
		{"whitespace only", "   \t\n", []string{}},
		{"lowercases", "Deep Learning", []string{"deep", "learning"}},
		{"drops single letters", "a b cd e", []string{"cd"}},
		{"digits separate", "covid19vaccine", []string{"covid", "vaccine"}},
		{"punctuation separates", "health-care, finance.", []string{"health", "care", "finance"}},
		{"keeps order and duplicates", "data data mining", []string{"data", "data", "mining"}},
		{"non-ascii separates", "café über", []string{"caf", "ber"}},
		{"only digits", "2024 123", []string{}},
		{"apostrophe", "Don't stop", []string{"don", "stop"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTokenizeDeterministic(t *testing.T) {
	text := "Machine Learning for Medical Imaging: a Survey (2021)"
	first := Tokenize(text)
	for i := 0; i < 10; i++ {
		if got := Tokenize(text); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: got %v, want %v", i, got, first)
		}
	}
}

func TestTokenizeTermsAreNormalised(t *testing.T) {
	text := "Ünïcode MiXeD-case 42 x Tokens_and_UNDERSCORES"
	for _, term := range Tokenize(text) {
		if len(term) < MinTermLength {
			t.Errorf("term %q shorter than %d", term, MinTermLength)
		}
		if strings.ToLower(term) != term {
			t.Errorf("term %q not lowercase", term)
		}
		for _, r := range term {
			if r < 'a' || r > 'z' {
				t.Errorf("term %q contains non-letter %q", term, r)
			}
		}
	}
}
