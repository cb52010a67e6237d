package googleDriveApi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/drive/v3"
)

func TestExpiredFileIDs(t *testing.T) {
	deadline := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	files := []*drive.File{
		{Id: "old", CreatedTime: "2025-05-28T10:00:00Z"},
		{Id: "fresh", CreatedTime: "2025-06-01T09:00:00Z"},
		{Id: "broken", CreatedTime: "yesterday"},
		{Id: "edge", CreatedTime: "2025-06-01T00:00:00Z"},
	}

	assert.Equal(t, []string{"old"}, expiredFileIDs(files, deadline))
}

func TestExpiredFileIDs_Empty(t *testing.T) {
	assert.Empty(t, expiredFileIDs(nil, time.Now()))
}
