package classifier

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"punctuation", "Marsalis Sr., has died. He was 96.", []string{"marsalis", "sr", "has", "died", "he", "was", "96"}},
		{"emoji only", "\U0001f600", nil},
		{"empty", "", nil},
		{"accents composed", "titulo TÍTULO", []string{"titulo", "título"}},
		{"decomposed accent normalized", "ti\u0301tulo", []string{"t\u00edtulo"}},
		{"fullwidth folded", "ＡＰ", []string{"ap"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokenize(tt.in)
			if tt.want == nil {
				require.Empty(t, got)
				return
			}
			require.Equal(t, tt.want, got)
		})
	}
}
