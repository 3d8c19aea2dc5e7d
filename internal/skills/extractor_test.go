package skills

import (
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "empty text",
			text: "",
			want: []string{},
		},
		{
			name: "no known skills",
			text: "I enjoy hiking, cooking and Rust.",
			want: []string{},
		},
		{
			name: "case insensitive",
			text: "Experienced in Python and SQL.",
			want: []string{"python", "sql"},
		},
		{
			name: "punctuation around tokens",
			text: "Skills: Java, JavaScript; HTML/CSS.",
			want: []string{"java", "javascript", "html", "css"},
		},
		{
			name: "plus signs survive",
			text: "Ten years of C++ development.",
			want: []string{"c++"},
		},
		{
			name: "javascript does not imply java",
			text: "JavaScript only.",
			want: []string{"javascript"},
		},
		{
			name: "duplicates collapse and output follows display order",
			text: "mongodb python MONGODB Python sql",
			want: []string{"python", "sql", "mongodb"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Extract(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
