package store

import "testing"

func TestRebind(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"select 1", "select 1"},
		{"select * from t where a = ? and b = ?", "select * from t where a = $1 and b = $2"},
		{"select '?' as q, x from t where y = ?", "select '?' as q, x from t where y = $1"},
		{"update t set note = 'it''s ?' where id = ?", "update t set note = 'it''s ?' where id = $1"},
		{"insert into t (a, b) values (?, ?) returning id", "insert into t (a, b) values ($1, $2) returning id"},
	}
	for _, tc := range cases {
		if got := Rebind(tc.in); got != tc.want {
			t.Fatalf("Rebind(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}
