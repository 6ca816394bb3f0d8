package query

import (
	"errors"
	"reflect"
	"testing"
)

func TestSelectBuild(t *testing.T) {
	tests := []struct {
		name     string
		sel      Select
		ph       Placeholder
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "star no where",
			sel:     Select{Table: "aggregated_table"},
			ph:      Dollar,
			wantSQL: `SELECT * FROM "aggregated_table"`,
		},
		{
			name: "listing sample postgres",
			sel: Select{
				Table:   "listings",
				Columns: []string{"id", "property.type"},
				Where: And(
					In("property.type", "HOUSE", "APARTMENT"),
					Between("price.mainValue", 100000.0, 300000.0),
					Gte("extractDate", "2023-06-24"),
				),
				OrderBy: "extractDate",
				Desc:    true,
				Limit:   100,
			},
			ph: Dollar,
			wantSQL: `SELECT "id", "property.type" FROM "listings" WHERE ("property.type" IN ($1, $2)) AND ` +
				`("price.mainValue" BETWEEN $3 AND $4) AND ("extractDate" >= $5) ORDER BY "extractDate" DESC LIMIT $6`,
			wantArgs: []any{"HOUSE", "APARTMENT", 100000.0, 300000.0, "2023-06-24", 100},
		},
		{
			name: "sqlite placeholders",
			sel: Select{
				Table: "main.listings",
				Where: And(Eq("property.location.postalCode", "1170")),
				Limit: 5,
			},
			ph:       Question,
			wantSQL:  `SELECT * FROM "main"."listings" WHERE ("property.location.postalCode" = ?) LIMIT ?`,
			wantArgs: []any{"1170", 5},
		},
		{
			name:    "empty in matches nothing",
			sel:     Select{Table: "t", Where: In("a")},
			ph:      Dollar,
			wantSQL: `SELECT * FROM "t" WHERE 1 = 0`,
		},
		{
			name:    "empty and matches everything",
			sel:     Select{Table: "t", Where: And(nil, nil)},
			ph:      Dollar,
			wantSQL: `SELECT * FROM "t" WHERE 1 = 1`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := tt.sel.Build(tt.ph)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if sql != tt.wantSQL {
				t.Errorf("sql =\n  %s\nwant\n  %s", sql, tt.wantSQL)
			}
			if len(args) != len(tt.wantArgs) || (len(args) > 0 && !reflect.DeepEqual(args, tt.wantArgs)) {
				t.Errorf("args = %#v, want %#v", args, tt.wantArgs)
			}
		})
	}
}

func TestSelectBuild_ValuesNeverInlined(t *testing.T) {
	evil := `1170' OR '1'='1`
	sql, args, err := Select{Table: "listings", Where: In("postal", evil)}.Build(Dollar)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if want := `SELECT * FROM "listings" WHERE "postal" IN ($1)`; sql != want {
		t.Fatalf("sql = %s, want %s", sql, want)
	}
	if len(args) != 1 || args[0] != evil {
		t.Fatalf("args = %#v, want the raw value bound", args)
	}
}

func TestSelectBuild_InvalidIdentifiers(t *testing.T) {
	tests := []struct {
		name string
		sel  Select
	}{
		{"table with quote", Select{Table: `listings"; DROP TABLE x; --`}},
		{"empty table part", Select{Table: "main..listings"}},
		{"column with space", Select{Table: "t", Columns: []string{"price value"}}},
		{"predicate column", Select{Table: "t", Where: Gte(`a"b`, 1)}},
		{"order by", Select{Table: "t", OrderBy: "1; --"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.sel.Build(Dollar)
			if !errors.Is(err, ErrInvalidIdentifier) {
				t.Fatalf("err = %v, want ErrInvalidIdentifier", err)
			}
		})
	}
}
