package postgres

import (
	"strings"
	"testing"
)

// Partial updates must merge inside a single UPDATE statement so two
// concurrent patches on the same row cannot overwrite each other's
// fields. Every mutable column carries a COALESCE against its own
// current value; a read-modify-write in Go would reintroduce the lost
// update.
func TestUpdateUserQueryMergesInSQL(t *testing.T) {
	for _, col := range []string{"username", "external_account_id", "avatar_url", "bio"} {
		if !strings.Contains(updateUserQuery, col+" = COALESCE(") {
			t.Errorf("column %s is not merged with COALESCE", col)
		}
	}
}

func TestUpdateGameQueryMergesInSQL(t *testing.T) {
	for _, col := range []string{
		"title", "description", "version", "game_url",
		"thumbnail_url", "donation_url", "ad_script", "published",
	} {
		if !strings.Contains(updateGameQuery, col+" = COALESCE(") {
			t.Errorf("column %s is not merged with COALESCE", col)
		}
	}
}

func TestUpdateGameQueryLeavesImmutableColumns(t *testing.T) {
	set := updateGameQuery[:strings.Index(updateGameQuery, "WHERE")]
	for _, col := range []string{"plays", "author_id", "created_at"} {
		if strings.Contains(set, col+" =") {
			t.Errorf("immutable column %s appears in the SET clause", col)
		}
	}
}
