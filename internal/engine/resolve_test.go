package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curious-learning/funnel-cli/internal/model"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func crUser(id, country, language, event string, level int) model.UserRecord {
	return model.UserRecord{
		CRUserID:      id,
		FirstOpen:     day(1),
		Country:       country,
		AppLanguage:   language,
		FurthestEvent: event,
		MaxUserLevel:  level,
	}
}

func TestResolvePicksFurthestProgressRow(t *testing.T) {
	t.Parallel()

	progress := []model.UserRecord{
		crUser("u1", "Kenya", "swahili", model.EventTappedStart, 0),
		crUser("u1", "Kenya", "english", model.EventPuzzleCompleted, 0),
		crUser("u1", "Kenya", "swahili", model.EventDownloadCompleted, 0),
	}
	firstTouch := []model.UserRecord{
		crUser("u1", "Kenya", "swahili", "", 0),
	}

	res := Resolve(firstTouch, progress, model.SpaceCRUser)
	require.Len(t, res.Progress, 1)
	assert.Equal(t, model.EventPuzzleCompleted, res.Progress[0].FurthestEvent)
	assert.Equal(t, "english", res.Progress[0].AppLanguage)
}

func TestResolveLevelCompletedPrefersMaxLevel(t *testing.T) {
	t.Parallel()

	progress := []model.UserRecord{
		crUser("u1", "Kenya", "swahili", model.EventLevelCompleted, 3),
		crUser("u1", "Kenya", "english", model.EventLevelCompleted, 12),
		crUser("u1", "Kenya", "french", model.EventPuzzleCompleted, 0),
	}
	firstTouch := []model.UserRecord{crUser("u1", "Kenya", "swahili", "", 0)}

	res := Resolve(firstTouch, progress, model.SpaceCRUser)
	require.Len(t, res.Progress, 1)
	assert.Equal(t, 12, res.Progress[0].MaxUserLevel)
	assert.Equal(t, "english", res.Progress[0].AppLanguage)
}

func TestResolveTieKeepsFirstRow(t *testing.T) {
	t.Parallel()

	progress := []model.UserRecord{
		crUser("u1", "Kenya", "swahili", model.EventTappedStart, 0),
		crUser("u1", "Kenya", "english", model.EventTappedStart, 0),
	}
	firstTouch := []model.UserRecord{crUser("u1", "Kenya", "swahili", "", 0)}

	res := Resolve(firstTouch, progress, model.SpaceCRUser)
	require.Len(t, res.Progress, 1)
	assert.Equal(t, "swahili", res.Progress[0].AppLanguage)
}

// Two duplicate first-touch rows (French/France, Spanish/Spain); the single
// progress row is tagged Spanish/Spain. The Spanish/Spain first-touch row
// must become canonical for both tables.
func TestResolveDuplicateFirstTouchFollowsProgressWinner(t *testing.T) {
	t.Parallel()

	firstTouch := []model.UserRecord{
		crUser("u1", "France", "french", "", 0),
		crUser("u1", "Spain", "spanish", "", 0),
	}
	progress := []model.UserRecord{
		crUser("u1", "Spain", "spanish", model.EventPuzzleCompleted, 0),
	}

	res := Resolve(firstTouch, progress, model.SpaceCRUser)
	require.Len(t, res.FirstTouch, 1)
	assert.Equal(t, "Spain", res.FirstTouch[0].Country)
	assert.Equal(t, "spanish", res.FirstTouch[0].AppLanguage)
	require.Len(t, res.Progress, 1)
	assert.Equal(t, "Spain", res.Progress[0].Country)
}

func TestResolveDuplicateFirstTouchNoMatchKeepsFirst(t *testing.T) {
	t.Parallel()

	firstTouch := []model.UserRecord{
		crUser("u1", "France", "french", "", 0),
		crUser("u1", "Spain", "spanish", "", 0),
	}
	// Progress winner's metadata matches neither first-touch row.
	progress := []model.UserRecord{
		crUser("u1", "Kenya", "swahili", model.EventTappedStart, 0),
	}

	res := Resolve(firstTouch, progress, model.SpaceCRUser)
	require.Len(t, res.FirstTouch, 1)
	assert.Equal(t, "France", res.FirstTouch[0].Country)
}

func TestResolveDropsProgressOnlyUsers(t *testing.T) {
	t.Parallel()

	firstTouch := []model.UserRecord{crUser("u1", "Kenya", "swahili", "", 0)}
	progress := []model.UserRecord{
		crUser("u1", "Kenya", "swahili", model.EventTappedStart, 0),
		crUser("ghost", "Kenya", "swahili", model.EventLevelCompleted, 40),
	}

	res := Resolve(firstTouch, progress, model.SpaceCRUser)
	require.Len(t, res.Progress, 1)
	assert.Equal(t, "u1", res.Progress[0].CRUserID)
	// First-touch-only users stay on the first-touch side.
	assert.Len(t, res.FirstTouch, 1)
}

func TestResolveMissingProgressIsNotAnError(t *testing.T) {
	t.Parallel()

	firstTouch := []model.UserRecord{
		crUser("u1", "Kenya", "swahili", "", 0),
		crUser("u2", "Kenya", "swahili", "", 0),
	}
	progress := []model.UserRecord{
		crUser("u1", "Kenya", "swahili", model.EventTappedStart, 0),
	}

	res := Resolve(firstTouch, progress, model.SpaceCRUser)
	assert.Len(t, res.FirstTouch, 2)
	assert.Len(t, res.Progress, 1)
}

func TestResolveIdempotent(t *testing.T) {
	t.Parallel()

	firstTouch := []model.UserRecord{
		crUser("u1", "France", "french", "", 0),
		crUser("u1", "Spain", "spanish", "", 0),
		crUser("u2", "Kenya", "swahili", "", 0),
		crUser("u3", "Kenya", "swahili", "", 0),
	}
	progress := []model.UserRecord{
		crUser("u1", "Spain", "spanish", model.EventLevelCompleted, 8),
		crUser("u1", "France", "french", model.EventLevelCompleted, 2),
		crUser("u2", "Kenya", "swahili", model.EventDownloadCompleted, 0),
	}

	once := Resolve(firstTouch, progress, model.SpaceCRUser)
	twice := Resolve(once.FirstTouch, once.Progress, model.SpaceCRUser)
	assert.Equal(t, once, twice)
}

func TestResolveEmptyInputs(t *testing.T) {
	t.Parallel()

	res := Resolve(nil, nil, model.SpaceCRUser)
	assert.Empty(t, res.FirstTouch)
	assert.Empty(t, res.Progress)
}
