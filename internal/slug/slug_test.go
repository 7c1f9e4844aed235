package slug

import "testing"

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Groceries":         "groceries",
		"  Eating Out!! ":   "eating_out",
		"snake_case__tag":   "snake_case_tag",
		"Продукты и Кафе":   "продукты_и_кафе",
		"2024 trip - Rome":  "2024_trip_rome",
		"!!!":               "",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSlugifyTruncates(t *testing.T) {
	got := Slugify("abcdefghij abcdefghij abcdefghij abcdefghij abcdefghij")
	if len([]rune(got)) > 40 || !IsSlug(got) {
		t.Fatalf("unexpected slug %q", got)
	}
}

func TestIsSlug(t *testing.T) {
	for _, s := range []string{"food", "a", "продукты", "x_1"} {
		if !IsSlug(s) {
			t.Fatalf("IsSlug(%q) = false", s)
		}
	}
	for _, s := range []string{"", "Food", "_x", "x_", "a__b", "a-b"} {
		if IsSlug(s) {
			t.Fatalf("IsSlug(%q) = true", s)
		}
	}
}
