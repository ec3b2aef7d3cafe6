package probe

import "testing"

func TestIgnoreMatchesName(t *testing.T) {
	ig := &Ignore{Name: []string{"**/*.log"}}
	if !ig.MatchesName("/var/log/app.log") {
		t.Fatalf("expected /var/log/app.log to match **/*.log")
	}
	if ig.MatchesName("/var/log/app.txt") {
		t.Fatalf("did not expect app.txt to match **/*.log")
	}
}

func TestIgnoreMatchesHash(t *testing.T) {
	ig := &Ignore{Hash: []string{"abc123"}}
	if !ig.MatchesHash("abc123") {
		t.Fatalf("expected known digest to match")
	}
	if ig.MatchesHash("def456") {
		t.Fatalf("did not expect unknown digest to match")
	}
}

func TestRenderFormat(t *testing.T) {
	tpl := "{filename}[{line:d}]: {company} {card_number_masked}"
	fields := map[string]string{
		"filename":           "/x/y.txt",
		"line":                "3",
		"company":             "VISA",
		"card_number_masked": "************1234",
	}
	got := renderFormat(tpl, fields)
	want := "/x/y.txt[3]: VISA ************1234"
	if got != want {
		t.Fatalf("renderFormat = %q, want %q", got, want)
	}
}

func TestRenderFormatMissingFieldRendersEmpty(t *testing.T) {
	got := renderFormat("{known} {missing}", map[string]string{"known": "x"})
	if got != "x " {
		t.Fatalf("renderFormat = %q, want %q", got, "x ")
	}
}
