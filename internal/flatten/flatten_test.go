package flatten

import (
	"slices"
	"testing"

	"github.com/jacoelho/cnpj/internal/entity"
	"github.com/jacoelho/cnpj/internal/match"
	"github.com/jacoelho/cnpj/internal/pathexpr"
)

func paths(t *testing.T, list string) []pathexpr.Path {
	t.Helper()

	parsed, err := pathexpr.ParseList(list)
	if err != nil {
		t.Fatalf("ParseList(%q) error = %v", list, err)
	}
	return parsed
}

func companyWith(partners ...string) *entity.Object {
	list := entity.NewList()
	for _, name := range partners {
		partner := entity.NewObject()
		partner.Set("nome", name)
		list.Append(partner)
	}

	obj := entity.NewObject()
	obj.Set("razaoSocial", "ACME CORP")
	obj.Set("socios", list)
	return obj
}

func TestHeader(t *testing.T) {
	t.Parallel()

	f := New(paths(t, "razaoSocial, socios[].nome"))
	if want := []string{"razaoSocial", "socios[].nome"}; !slices.Equal(f.Header(), want) {
		t.Fatalf("Header = %v, want %v", f.Header(), want)
	}
}

func TestRowsLockStep(t *testing.T) {
	t.Parallel()

	f := New(paths(t, "socios[].nome,razaoSocial"))
	rows := slices.Collect(f.Rows(companyWith("ANA", "BRUNO", "CARLA")))

	want := [][]any{
		{"ANA", "ACME CORP"},
		{"BRUNO", nil},
		{"CARLA", nil},
	}
	if len(rows) != len(want) {
		t.Fatalf("rows = %d, want %d", len(rows), len(want))
	}
	for i, row := range rows {
		if row.Index != i {
			t.Errorf("row %d Index = %d", i, row.Index)
		}
		if !slices.Equal(row.Values(), want[i]) {
			t.Errorf("row %d = %v, want %v", i, row.Values(), want[i])
		}
	}

	if got := rows[2].Cells[0].Path; got != "socios[2].nome" {
		t.Fatalf("row 2 path = %q, want socios[2].nome", got)
	}
	if rows[1].Cells[1].Present || rows[1].Cells[1].Path != "" {
		t.Fatalf("exhausted cell = %+v, want empty", rows[1].Cells[1])
	}
}

func TestRowsWithoutPartners(t *testing.T) {
	t.Parallel()

	f := New(paths(t, "razaoSocial,uf,socios[].nome"))
	rows := slices.Collect(f.Rows(companyWith()))
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}

	cells := rows[0].Cells
	if !cells[0].Present || cells[0].Value != "ACME CORP" {
		t.Errorf("razaoSocial cell = %+v", cells[0])
	}
	if cells[1].Present || cells[1].Value != nil || cells[1].Path != "uf" {
		t.Errorf("uf cell = %+v, want absent", cells[1])
	}
	if cells[2].Path != "" {
		t.Errorf("socios cell = %+v, want exhausted", cells[2])
	}
}

func TestRowsOnlyWildcardsOverEmptyCollection(t *testing.T) {
	t.Parallel()

	f := New(paths(t, "socios[].nome"))
	if rows := slices.Collect(f.Rows(companyWith())); len(rows) != 0 {
		t.Fatalf("rows = %d, want 0", len(rows))
	}
}

func TestRowMatches(t *testing.T) {
	t.Parallel()

	set, err := match.ParseSet("socios[].nome:BR", match.ModeAnd)
	if err != nil {
		t.Fatalf("ParseSet error = %v", err)
	}

	company := companyWith("ANA", "BRUNO")
	ok, mc := set.Evaluate(company)
	if !ok {
		t.Fatal("Evaluate = false, want true")
	}

	var matched []int
	for row := range New(paths(t, "razaoSocial,socios[].nome")).Rows(company) {
		if row.Matches(mc) {
			matched = append(matched, row.Index)
		}
	}
	if want := []int{1}; !slices.Equal(matched, want) {
		t.Fatalf("matched rows = %v, want %v", matched, want)
	}
}
