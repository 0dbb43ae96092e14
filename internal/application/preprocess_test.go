package application

import "testing"

func TestStripComments(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "no comments",
			input: "SELECT Name FROM streets",
			want:  "SELECT Name FROM streets",
		},
		{
			name:  "trailing line comment",
			input: "SELECT 1 // note",
			want:  "SELECT 1",
		},
		{
			name:  "dash comment",
			input: "SELECT 1 --note",
			want:  "SELECT 1 ",
		},
		{
			name:  "inline block comment",
			input: "SELECT /* x */ 1",
			want:  "SELECT 1",
		},
		{
			name:  "multiline inline block comment",
			input: "SELECT /* a\nb */ 1",
			want:  "SELECT 1",
		},
		{
			name:  "block comment at end",
			input: "SELECT 1 /* done */",
			want:  "SELECT 1",
		},
		{
			name: "mixed comments across lines",
			input: `
        select name --table
        from streets
        /*
        block comment
        */ limit 3 `,
			want: "        select name " + " " + "        from streets" + " limit 3",
		},
		{
			name:  "blank lines are dropped",
			input: "SELECT 1\n\n\nFROM t\n",
			want:  "SELECT 1 FROM t",
		},
		{
			name:  "only comments",
			input: "-- nothing here\n/* nor here */",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripComments(tt.input); got != tt.want {
				t.Errorf("StripComments(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
