package handlers

import (
	"testing"

	"ticket-bot/config"

	"github.com/stretchr/testify/assert"
)

func TestParseCategories(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []config.TicketCategory
	}{
		{
			name: "single with roles",
			raw:  "Sales:r1;r2",
			want: []config.TicketCategory{{Name: "Sales", StaffRoles: []string{"r1", "r2"}}},
		},
		{
			name: "multiple",
			raw:  "Sales:r1, Support:r2;r3 ,VIP",
			want: []config.TicketCategory{
				{Name: "Sales", StaffRoles: []string{"r1"}},
				{Name: "Support", StaffRoles: []string{"r2", "r3"}},
				{Name: "VIP"},
			},
		},
		{
			name: "empty segments ignored",
			raw:  ",Sales:r1,,",
			want: []config.TicketCategory{{Name: "Sales", StaffRoles: []string{"r1"}}},
		},
		{
			name: "empty input",
			raw:  "",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseCategories(tt.raw))
		})
	}
}

func TestMenuKey(t *testing.T) {
	assert.Equal(t, "g1:u1", menuKey("g1", "u1"))
	assert.NotEqual(t, menuKey("g1", "u2"), menuKey("g1", "u1"))
}
