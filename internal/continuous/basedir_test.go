package continuous

import "testing"

func TestBaseDirectory(t *testing.T) {
	cases := []struct {
		pattern string
		want    string
	}{
		{"/data/backup/file.txt", "/data/backup/file.txt"},
		{"/data/backup/*.txt", "/data/backup"},
		{"/data/*/logs", "/data"},
		{"/data/backup/[abc]/x", "/data/backup"},
		{"*.txt", "/"},
		{"", ""},
	}
	for _, c := range cases {
		if got := BaseDirectory(c.pattern); got != c.want {
			t.Errorf("BaseDirectory(%q) = %q, want %q", c.pattern, got, c.want)
		}
	}
}
