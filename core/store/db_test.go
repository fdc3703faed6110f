package store

import (
	"strings"
	"testing"
)

func TestRebindPostgresPlaceholders(t *testing.T) {
	pg := &DB{driver: "pgx"}

	got := pg.rebind(`INSERT INTO places(district, city, province, region) VALUES(?,?,?,?) RETURNING id`)
	want := `INSERT INTO places(district, city, province, region) VALUES($1,$2,$3,$4) RETURNING id`
	if got != want {
		t.Fatalf("rebind = %q, want %q", got, want)
	}

	got = pg.rebind(`UPDATE reports SET occurred_on=?, time_of_day=?, day_of_week=?, case_status=?, proximity=?, indoors_or_outdoors=?, place_id=?, category_id=?, updated_at=? WHERE case_no=?`)
	if !strings.Contains(got, "updated_at=$9") || !strings.Contains(got, "case_no=$10") {
		t.Fatalf("ordinals past 9 wrong: %q", got)
	}
}

func TestRebindLeavesLiteralsAndSqliteAlone(t *testing.T) {
	pg := &DB{driver: "pgx"}
	got := pg.rebind(`SELECT '?' AS q FROM reports WHERE case_no=?`)
	want := `SELECT '?' AS q FROM reports WHERE case_no=$1`
	if got != want {
		t.Fatalf("rebind = %q, want %q", got, want)
	}

	lite := &DB{driver: "sqlite"}
	query := `SELECT id FROM reports WHERE case_no=?`
	if got := lite.rebind(query); got != query {
		t.Fatalf("sqlite query changed: %q", got)
	}
}
