package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FerventBolt/tesda-lms-api/internal/models"
)

func remoteLesson(id, title string) models.Lesson {
	return models.Lesson{ID: id, Title: title, Origin: models.OriginRemote}
}

func localLesson(id, title string) models.Lesson {
	return models.Lesson{ID: id, Title: title, Origin: models.OriginLocal}
}

func TestMergeLocalShadowsRemote(t *testing.T) {
	remote := []models.Lesson{
		remoteLesson("l1", "Safety Orientation"),
		remoteLesson("l2", "Hand Tools"),
		remoteLesson("l3", "Measurement"),
	}
	local := []models.Lesson{
		localLesson("l2", "Hand Tools (revised)"),
		localLesson("l9", "Shop Practice"),
	}

	merged := Merge(remote, local)
	require.Len(t, merged, 4)

	// The shadowed record keeps the slot of its first appearance.
	assert.Equal(t, "l1", merged[0].ID)
	assert.Equal(t, "l2", merged[1].ID)
	assert.Equal(t, "Hand Tools (revised)", merged[1].Title)
	assert.Equal(t, models.OriginLocal, merged[1].Origin)
	assert.Equal(t, "l3", merged[2].ID)
	assert.Equal(t, "l9", merged[3].ID)
}

func TestMergeEmptyTiers(t *testing.T) {
	assert.Empty(t, Merge[models.Lesson](nil, nil))

	onlyRemote := Merge([]models.Lesson{remoteLesson("l1", "Intro")}, nil)
	require.Len(t, onlyRemote, 1)
	assert.Equal(t, models.OriginRemote, onlyRemote[0].Origin)

	onlyLocal := Merge(nil, []models.Lesson{localLesson("l1", "Intro")})
	require.Len(t, onlyLocal, 1)
	assert.Equal(t, models.OriginLocal, onlyLocal[0].Origin)
}

func TestLocalOnlyStripsRemoteRecords(t *testing.T) {
	working := []models.Lesson{
		remoteLesson("l1", "Safety Orientation"),
		localLesson("l2", "Hand Tools (revised)"),
		remoteLesson("l3", "Measurement"),
		localLesson("l9", "Shop Practice"),
	}

	local := LocalOnly(working)
	require.Len(t, local, 2)
	assert.Equal(t, "l2", local[0].ID)
	assert.Equal(t, "l9", local[1].ID)
}

func TestFind(t *testing.T) {
	records := []models.Lesson{remoteLesson("l1", "Intro"), localLesson("l2", "Tools")}

	rec, ok := Find(records, "l2")
	require.True(t, ok)
	assert.Equal(t, "Tools", rec.Title)

	_, ok = Find(records, "missing")
	assert.False(t, ok)
}
