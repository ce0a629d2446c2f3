package sqlxrepos

import (
	"testing"

	"github.com/wepgcomp/wepgcomp/core"
)

func Test_orderBy(t *testing.T) {
	tests := []struct {
		name     string
		ordering []core.DBOrdering
		want     string
	}{
		{name: "fallback when empty", want: " ORDER BY created_at DESC"},
		{
			name: "sortable fields pass through",
			ordering: []core.DBOrdering{
				{Field: "name", Ascending: true},
				{Field: "email"},
			},
			want: " ORDER BY name ASC, email DESC",
		},
		{
			name: "unknown fields are dropped",
			ordering: []core.DBOrdering{
				{Field: "password_hash"},
				{Field: "name", Ascending: true},
			},
			want: " ORDER BY name ASC",
		},
		{
			name:     "hostile field never reaches the SQL",
			ordering: []core.DBOrdering{{Field: `1; DROP TABLE "user" --`, Ascending: true}},
			want:     " ORDER BY created_at DESC",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := orderBy(tt.ordering, userSortable, "created_at DESC"); got != tt.want {
				t.Errorf("orderBy() = %q, want %q", got, tt.want)
			}
		})
	}
}
